package room

import (
	"sync"
	"testing"
)

type fakeWire struct {
	mu   sync.Mutex
	sent []Envelope
}

func (f *fakeWire) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, v.(Envelope))
	return nil
}

func (f *fakeWire) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestJoinIsIdempotent(t *testing.T) {
	r := NewRegistry()
	s := NewSession(RolePassenger, "p1", &fakeWire{})
	r.Join(s, "svc1")
	r.Join(s, "svc1")
	if got := len(r.Members("svc1")); got != 1 {
		t.Fatalf("expected 1 member after duplicate join, got %d", got)
	}
}

func TestBroadcastExcludesSender(t *testing.T) {
	r := NewRegistry()
	wires := make([]*fakeWire, 4)
	sessions := make([]*Session, 4)
	for i := range wires {
		wires[i] = &fakeWire{}
		sessions[i] = NewSession(RolePassenger, "u", wires[i])
		r.Join(sessions[i], "svc1")
	}
	n := r.Broadcast("svc1", "receiveLocation", map[string]float64{"latitude": 1}, sessions[0])
	if n != 3 {
		t.Fatalf("expected 3 deliveries, got %d", n)
	}
	if wires[0].count() != 0 {
		t.Fatal("sender received its own echo")
	}
	for _, w := range wires[1:] {
		if w.count() != 1 {
			t.Fatalf("expected exactly one delivery, got %d", w.count())
		}
	}
}

func TestBroadcastEmptyRoomIsNoop(t *testing.T) {
	r := NewRegistry()
	if n := r.Broadcast("nobody-here", "serviceStopped", nil, nil); n != 0 {
		t.Fatalf("expected 0 deliveries, got %d", n)
	}
}

func TestLeaveAllRemovesEveryMembership(t *testing.T) {
	r := NewRegistry()
	s := NewSession(RoleDriver, "d1", &fakeWire{})
	r.Join(s, "svc1")
	r.Join(s, "svc2")
	r.LeaveAll(s)
	if len(r.MembershipsOf(s)) != 0 {
		t.Fatal("expected no memberships after LeaveAll")
	}
	if r.RoomCount() != 0 {
		t.Fatalf("expected empty rooms to be deleted, got %d", r.RoomCount())
	}
}

func TestDriverLookupIgnoresRoomSize(t *testing.T) {
	r := NewRegistry()
	d := NewSession(RoleDriver, "d1", &fakeWire{})
	r.Join(d, "svc1")
	for i := 0; i < 5; i++ {
		r.Join(NewSession(RolePassenger, "p", &fakeWire{}), "svc1")
	}
	got, ok := r.Driver("svc1")
	if !ok || got != d {
		t.Fatal("expected the tagged driver session")
	}
	if _, ok := r.Driver("svc2"); ok {
		t.Fatal("expected no driver for unknown room")
	}
}
