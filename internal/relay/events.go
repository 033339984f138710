package relay

import (
	"encoding/json"
	"fmt"

	"github.com/example/shuttle-tracker/internal/geo"
	"github.com/example/shuttle-tracker/internal/models"
)

// Client→server event names.
const (
	EvJoinService       = "joinService"
	EvSendLocation      = "sendLocation"
	EvStopService       = "stopService"
	EvRequestPassLoc    = "requestPassengerLocation"
	EvPassengerLocation = "passengerLocation"
)

// Server→room event names.
const (
	EvReceiveLocation  = "receiveLocation"
	EvServiceStopped   = "serviceStopped"
	EvShareLocationReq = "shareLocationRequest"
	EvDriverRecvPass   = "driverReceivePassengerLocation"
)

// Payloads are explicit tagged types, validated at the room boundary
// before any registry state is touched.

type joinPayload struct {
	ServiceID string
}

// joinService historically carries a bare string; newer clients send an
// object. Accept both.
func (p *joinPayload) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		p.ServiceID = s
		return nil
	}
	var obj struct {
		ServiceID string `json:"serviceId"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	p.ServiceID = obj.ServiceID
	return nil
}

type sendLocationPayload struct {
	ServiceID string              `json:"serviceId"`
	Location  models.LiveLocation `json:"location"`
}

type stopServicePayload struct {
	ServiceID string `json:"serviceId"`
}

type requestPassLocPayload struct {
	ServiceID string `json:"serviceId"`
}

type passengerLocationPayload struct {
	ServiceID   string              `json:"serviceId"`
	PassengerID string              `json:"passengerId"`
	Location    models.LiveLocation `json:"location"`
}

// passengerLocationOut is the driverReceivePassengerLocation payload.
type passengerLocationOut struct {
	PassengerID string              `json:"passengerId"`
	Location    models.LiveLocation `json:"location"`
}

func validateServiceID(id string) error {
	if id == "" {
		return fmt.Errorf("empty serviceId")
	}
	return nil
}

func validateLocation(l models.LiveLocation) error {
	if !geo.ValidCoord(l.Lat, l.Lon) {
		return fmt.Errorf("coordinate out of range: %f,%f", l.Lat, l.Lon)
	}
	return nil
}
