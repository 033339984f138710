package models

import "time"

type Coord struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// LiveLocation is the ephemeral position a driver or passenger emits over
// the relay. It is never persisted; each emission supersedes the last.
type LiveLocation struct {
	Lat       float64   `json:"latitude"`
	Lon       float64   `json:"longitude"`
	Heading   *float64  `json:"heading,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

func (l LiveLocation) Coord() Coord { return Coord{Lat: l.Lat, Lon: l.Lon} }

type Passenger struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Pickup *Coord `json:"pickup,omitempty"` // nil when no usable pickup coordinate
}

// Service is a shuttle route: one driver, an ordered passenger roster and
// an optional fixed final destination.
type Service struct {
	ID          string   `json:"id"`
	DriverID    string   `json:"driver_id"`
	Passengers  []string `json:"passengers"`
	Destination *Coord   `json:"destination,omitempty"`
	DestAddress string   `json:"destination_address,omitempty"`
	Active      bool     `json:"active"`
}

// AttendanceStatus values are the wire tokens the mobile clients already
// speak; do not translate them.
type AttendanceStatus string

const (
	StatusPending  AttendanceStatus = "BEKLIYOR"   // waiting for pickup
	StatusBoarded  AttendanceStatus = "BINDI"      // boarded
	StatusNoShow   AttendanceStatus = "BINMEDI"    // marked no-show
	StatusWillSkip AttendanceStatus = "GELMEYECEK" // absent in advance
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPending, StatusBoarded, StatusNoShow, StatusWillSkip:
		return true
	}
	return false
}

// AttendanceRecord holds one passenger's status for one service-day.
// At most one record exists per (service, passenger, date); writes replace.
type AttendanceRecord struct {
	ServiceID   string           `json:"service_id"`
	PassengerID string           `json:"passenger_id"`
	Date        string           `json:"date"` // YYYY-MM-DD
	Status      AttendanceStatus `json:"status"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// DateKey normalizes a time to the YYYY-MM-DD key attendance is stored under.
func DateKey(t time.Time) string { return t.Format("2006-01-02") }
