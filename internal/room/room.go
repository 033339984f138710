package room

import (
	"sync"

	"github.com/google/uuid"
)

type Role string

const (
	RoleDriver    Role = "driver"
	RolePassenger Role = "passenger"
)

// Wire is the minimal write surface a session needs from its transport.
// *websocket.Conn satisfies it; tests substitute fakes.
type Wire interface {
	WriteJSON(v interface{}) error
}

// Envelope is the frame shape every relay event travels in.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// Session is one connected client, tagged with its role so the relay can
// target the driver explicitly instead of relying on room size.
type Session struct {
	ID     string
	Role   Role
	UserID string

	wire Wire
	mu   sync.Mutex
}

func NewSession(role Role, userID string, w Wire) *Session {
	return &Session{ID: uuid.NewString(), Role: role, UserID: userID, wire: w}
}

func (s *Session) Send(event string, payload interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wire.WriteJSON(Envelope{Event: event, Data: payload})
}

// Registry maps serviceID to the set of sessions currently joined to that
// service's room. It is an owned instance, never a package global, so tests
// can run independent registries side by side. All mutation goes through
// Join/Leave/LeaveAll; state is rebuilt from scratch after a restart, so
// clients re-join on reconnect.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[*Session]struct{}
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]map[*Session]struct{})}
}

// Join is idempotent: a duplicate join is a membership no-op but still
// re-establishes affiliation after a reconnect.
func (r *Registry) Join(s *Session, serviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[serviceID]
	if !ok {
		members = make(map[*Session]struct{})
		r.rooms[serviceID] = members
	}
	members[s] = struct{}{}
}

func (r *Registry) Leave(s *Session, serviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(s, serviceID)
}

// LeaveAll removes the session from every room; the transport close path
// calls it when a connection drops.
func (r *Registry) LeaveAll(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for serviceID := range r.rooms {
		r.removeLocked(s, serviceID)
	}
}

func (r *Registry) removeLocked(s *Session, serviceID string) {
	members, ok := r.rooms[serviceID]
	if !ok {
		return
	}
	delete(members, s)
	if len(members) == 0 {
		delete(r.rooms, serviceID)
	}
}

// Broadcast delivers event to every member of the room except exclude (may
// be nil). An empty or missing room delivers to zero recipients; that is
// not an error. Returns the number of successful deliveries.
func (r *Registry) Broadcast(serviceID, event string, payload interface{}, exclude *Session) int {
	targets := r.Members(serviceID)
	n := 0
	for _, m := range targets {
		if m == exclude {
			continue
		}
		if err := m.Send(event, payload); err == nil {
			n++
		}
	}
	return n
}

func (r *Registry) SendToOne(s *Session, event string, payload interface{}) error {
	return s.Send(event, payload)
}

// Driver returns the driver session for a room, if one is connected.
func (r *Registry) Driver(serviceID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for m := range r.rooms[serviceID] {
		if m.Role == RoleDriver {
			return m, true
		}
	}
	return nil, false
}

// Members returns a snapshot of the room so sends happen outside the lock.
func (r *Registry) Members(serviceID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[serviceID]
	out := make([]*Session, 0, len(members))
	for m := range members {
		out = append(out, m)
	}
	return out
}

func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// MembershipsOf lists the serviceIDs a session currently belongs to.
func (r *Registry) MembershipsOf(s *Session) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for serviceID, members := range r.rooms {
		if _, ok := members[s]; ok {
			out = append(out, serviceID)
		}
	}
	return out
}
