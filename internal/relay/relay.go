package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/shuttle-tracker/internal/dispatch"
	"github.com/example/shuttle-tracker/internal/models"
	"github.com/example/shuttle-tracker/internal/observability"
	"github.com/example/shuttle-tracker/internal/room"
	"github.com/example/shuttle-tracker/internal/storage"
)

// LocationStream receives every accepted driver emission, best effort.
type LocationStream interface {
	PublishLocation(serviceID string, loc models.LiveLocation) error
}

// Relay routes room-scoped tracking events: driver positions fan out to
// the room, passenger replies target the driver. Delivery is at-most-once
// in arrival order per room; there is no replay buffer, a reconnecting
// client misses the gap.
type Relay struct {
	Rooms  *room.Registry
	Store  storage.Store
	Pusher dispatch.Pusher // nil disables the push fallback
	Stream LocationStream  // nil disables the location stream
	Logger *slog.Logger

	PushTimeout time.Duration

	mu     sync.Mutex
	active map[string]bool                // room Idle/Active
	latest map[string]models.LiveLocation // last driver position, last write wins
}

func New(rooms *room.Registry, store storage.Store, pusher dispatch.Pusher, stream LocationStream, logger *slog.Logger) *Relay {
	return &Relay{
		Rooms:  rooms,
		Store:  store,
		Pusher: pusher,
		Stream: stream,
		Logger: logger,
		active: make(map[string]bool),
		latest: make(map[string]models.LiveLocation),
	}
}

// Handle dispatches one inbound frame from a session. Malformed frames
// are rejected before any room state changes.
func (r *Relay) Handle(ctx context.Context, s *room.Session, raw []byte) error {
	var env struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		observability.EventsRejected.Inc()
		return fmt.Errorf("malformed frame: %w", err)
	}

	var err error
	switch env.Event {
	case EvJoinService:
		err = r.handleJoin(s, env.Data)
	case EvSendLocation:
		err = r.handleSendLocation(s, env.Data)
	case EvStopService:
		err = r.handleStopService(s, env.Data)
	case EvRequestPassLoc:
		err = r.handleRequestPassengerLocation(ctx, s, env.Data)
	case EvPassengerLocation:
		err = r.handlePassengerLocation(s, env.Data)
	default:
		observability.EventsRejected.Inc()
		return fmt.Errorf("unknown event %q", env.Event)
	}
	if err != nil {
		observability.EventsRejected.Inc()
		return err
	}
	observability.EventsRelayed.WithLabelValues(env.Event).Inc()
	return nil
}

// Disconnect removes the session from every room; the transport close
// path calls it.
func (r *Relay) Disconnect(s *room.Session) {
	r.Rooms.LeaveAll(s)
	observability.RoomsActive.Set(float64(r.Rooms.RoomCount()))
}

// LatestLocation returns the most recent driver position seen for a room.
// Route and ETA recomputation read it without any queueing of stale
// intermediate positions.
func (r *Relay) LatestLocation(serviceID string) (models.LiveLocation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc, ok := r.latest[serviceID]
	return loc, ok
}

func (r *Relay) handleJoin(s *room.Session, data json.RawMessage) error {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("joinService payload: %w", err)
	}
	if err := validateServiceID(p.ServiceID); err != nil {
		return err
	}
	r.Rooms.Join(s, p.ServiceID)
	observability.RoomsActive.Set(float64(r.Rooms.RoomCount()))
	return nil
}

func (r *Relay) handleSendLocation(s *room.Session, data json.RawMessage) error {
	var p sendLocationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("sendLocation payload: %w", err)
	}
	if err := validateServiceID(p.ServiceID); err != nil {
		return err
	}
	if err := validateLocation(p.Location); err != nil {
		return err
	}
	if p.Location.Timestamp.IsZero() {
		p.Location.Timestamp = time.Now()
	}

	r.mu.Lock()
	r.active[p.ServiceID] = true
	r.latest[p.ServiceID] = p.Location
	r.mu.Unlock()

	// Sender never gets its own echo back.
	r.Rooms.Broadcast(p.ServiceID, EvReceiveLocation, p.Location, s)

	if r.Stream != nil {
		loc := p.Location
		serviceID := p.ServiceID
		go func() {
			if err := r.Stream.PublishLocation(serviceID, loc); err != nil {
				observability.StreamFailures.Inc()
				r.logger().Warn("location stream publish failed", "service_id", serviceID, "error", err)
			}
		}()
	}
	return nil
}

func (r *Relay) handleStopService(s *room.Session, data json.RawMessage) error {
	var p stopServicePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("stopService payload: %w", err)
	}
	if err := validateServiceID(p.ServiceID); err != nil {
		return err
	}

	r.mu.Lock()
	r.active[p.ServiceID] = false
	delete(r.latest, p.ServiceID)
	r.mu.Unlock()

	// Every current member hears the stop, sender included. Flipping the
	// persisted Service.active flag is the driver client's own call to the
	// persistence collaborator, not a relay side effect.
	r.Rooms.Broadcast(p.ServiceID, EvServiceStopped, nil, nil)
	return nil
}

func (r *Relay) handleRequestPassengerLocation(ctx context.Context, s *room.Session, data json.RawMessage) error {
	var p requestPassLocPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("requestPassengerLocation payload: %w", err)
	}
	if err := validateServiceID(p.ServiceID); err != nil {
		return err
	}

	r.Rooms.Broadcast(p.ServiceID, EvShareLocationReq, nil, s)

	if r.Pusher == nil || r.Store == nil {
		return nil
	}
	roster, err := r.Store.FindServiceRoster(ctx, p.ServiceID)
	if err != nil {
		r.logger().Warn("roster lookup failed, skipping push fallback", "service_id", p.ServiceID, "error", err)
		return nil
	}
	// Durable fallback for passengers without a live socket. Dispatched
	// after the broadcast, one task per recipient, failures isolated.
	go r.pushShareRequests(p.ServiceID, roster)
	return nil
}

func (r *Relay) pushShareRequests(serviceID string, roster []string) {
	timeout := r.PushTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	var wg sync.WaitGroup
	for _, passengerID := range roster {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			err := r.Pusher.Notify(ctx, id, "Konum isteği", "Sürücünüz konumunuzu istiyor", "share_location", map[string]string{"service_id": serviceID})
			if err != nil {
				observability.PushFailures.Inc()
				r.logger().Warn("push notify failed", "service_id", serviceID, "passenger_id", id, "error", err)
			}
		}(passengerID)
	}
	wg.Wait()
}

func (r *Relay) handlePassengerLocation(s *room.Session, data json.RawMessage) error {
	var p passengerLocationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("passengerLocation payload: %w", err)
	}
	if err := validateServiceID(p.ServiceID); err != nil {
		return err
	}
	if err := validateLocation(p.Location); err != nil {
		return err
	}

	out := passengerLocationOut{PassengerID: p.PassengerID, Location: p.Location}

	// Unicast to the tagged driver session. Rooms without one fall back to
	// broadcast-minus-sender, the wire behavior older clients expect.
	if driver, ok := r.Rooms.Driver(p.ServiceID); ok {
		return r.Rooms.SendToOne(driver, EvDriverRecvPass, out)
	}
	r.Rooms.Broadcast(p.ServiceID, EvDriverRecvPass, out, s)
	return nil
}

// Active reports whether a room has seen a driver location since creation
// or the last stopService.
func (r *Relay) Active(serviceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active[serviceID]
}

func (r *Relay) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
