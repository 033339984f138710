package relay

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/example/shuttle-tracker/internal/models"
	"github.com/example/shuttle-tracker/internal/room"
	"github.com/example/shuttle-tracker/internal/storage"
)

type fakeWire struct {
	mu   sync.Mutex
	sent []room.Envelope
}

func (f *fakeWire) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, v.(room.Envelope))
	return nil
}

func (f *fakeWire) events() []room.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]room.Envelope(nil), f.sent...)
}

type fakePusher struct {
	mu    sync.Mutex
	calls []string
	done  chan string
}

func newFakePusher(buffer int) *fakePusher {
	return &fakePusher{done: make(chan string, buffer)}
}

func (f *fakePusher) Notify(_ context.Context, userID, _, _, _ string, _ map[string]string) error {
	f.mu.Lock()
	f.calls = append(f.calls, userID)
	f.mu.Unlock()
	f.done <- userID
	return nil
}

func frame(t *testing.T, event string, data interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]interface{}{"event": event, "data": data})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestDriverLocationFansOutToRoom(t *testing.T) {
	rooms := room.NewRegistry()
	r := New(rooms, storage.NewMemoryStore(), nil, nil, nil)

	driverWire := &fakeWire{}
	passWire := &fakeWire{}
	driver := room.NewSession(room.RoleDriver, "d1", driverWire)
	pass := room.NewSession(room.RolePassenger, "p1", passWire)

	ctx := context.Background()
	mustHandle(t, r, ctx, driver, frame(t, EvJoinService, "svc1"))
	mustHandle(t, r, ctx, pass, frame(t, EvJoinService, "svc1"))

	mustHandle(t, r, ctx, driver, frame(t, EvSendLocation, map[string]interface{}{
		"serviceId": "svc1",
		"location":  map[string]float64{"latitude": 41.01, "longitude": 28.90},
	}))

	got := passWire.events()
	if len(got) != 1 || got[0].Event != EvReceiveLocation {
		t.Fatalf("expected one receiveLocation, got %+v", got)
	}
	loc := got[0].Data.(models.LiveLocation)
	if loc.Lat != 41.01 || loc.Lon != 28.90 {
		t.Fatalf("expected literal coordinates back, got %+v", loc)
	}
	if len(driverWire.events()) != 0 {
		t.Fatal("sender received its own echo")
	}
	if !r.Active("svc1") {
		t.Fatal("room should be active after first location")
	}
}

func TestStopServiceReachesEveryMember(t *testing.T) {
	rooms := room.NewRegistry()
	r := New(rooms, storage.NewMemoryStore(), nil, nil, nil)
	ctx := context.Background()

	wires := make([]*fakeWire, 3)
	sessions := make([]*room.Session, 3)
	roles := []room.Role{room.RoleDriver, room.RolePassenger, room.RolePassenger}
	for i := range wires {
		wires[i] = &fakeWire{}
		sessions[i] = room.NewSession(roles[i], "u", wires[i])
		mustHandle(t, r, ctx, sessions[i], frame(t, EvJoinService, "svc1"))
	}

	mustHandle(t, r, ctx, sessions[0], frame(t, EvSendLocation, map[string]interface{}{
		"serviceId": "svc1", "location": map[string]float64{"latitude": 1, "longitude": 1},
	}))
	mustHandle(t, r, ctx, sessions[0], frame(t, EvStopService, map[string]string{"serviceId": "svc1"}))

	for i, w := range wires {
		stops := 0
		for _, e := range w.events() {
			if e.Event == EvServiceStopped {
				stops++
			}
		}
		if stops != 1 {
			t.Fatalf("member %d: expected exactly one serviceStopped, got %d", i, stops)
		}
	}
	if r.Active("svc1") {
		t.Fatal("room should be idle after stopService")
	}
	if _, ok := r.LatestLocation("svc1"); ok {
		t.Fatal("latest location should be cleared on stop")
	}
}

func TestStopServiceOnEmptyRoomIsNoop(t *testing.T) {
	r := New(room.NewRegistry(), storage.NewMemoryStore(), nil, nil, nil)
	d := room.NewSession(room.RoleDriver, "d1", &fakeWire{})
	if err := r.Handle(context.Background(), d, frame(t, EvStopService, map[string]string{"serviceId": "ghost"})); err != nil {
		t.Fatalf("empty-room stop should not error: %v", err)
	}
}

func TestRequestPassengerLocationBroadcastsAndPushes(t *testing.T) {
	rooms := room.NewRegistry()
	store := storage.NewMemoryStore()
	store.PutService(&models.Service{
		ID:         "svc1",
		DriverID:   "d1",
		Passengers: []string{"p1", "p2", "p3"}, // p3 has no live connection
	}, nil)
	pusher := newFakePusher(8)
	r := New(rooms, store, pusher, nil, nil)
	ctx := context.Background()

	driver := room.NewSession(room.RoleDriver, "d1", &fakeWire{})
	p1Wire, p2Wire := &fakeWire{}, &fakeWire{}
	p1 := room.NewSession(room.RolePassenger, "p1", p1Wire)
	p2 := room.NewSession(room.RolePassenger, "p2", p2Wire)

	mustHandle(t, r, ctx, driver, frame(t, EvJoinService, "svc1"))
	mustHandle(t, r, ctx, p1, frame(t, EvJoinService, "svc1"))
	mustHandle(t, r, ctx, p2, frame(t, EvJoinService, "svc1"))

	mustHandle(t, r, ctx, driver, frame(t, EvRequestPassLoc, map[string]string{"serviceId": "svc1"}))

	for _, w := range []*fakeWire{p1Wire, p2Wire} {
		got := w.events()
		if len(got) != 1 || got[0].Event != EvShareLocationReq {
			t.Fatalf("expected one shareLocationRequest, got %+v", got)
		}
	}

	// push dispatch is async; collect one notification per roster entry
	seen := map[string]int{}
	for i := 0; i < 3; i++ {
		select {
		case id := <-pusher.done:
			seen[id]++
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for push %d, seen=%v", i, seen)
		}
	}
	if seen["p3"] != 1 {
		t.Fatalf("disconnected passenger should be pushed exactly once, seen=%v", seen)
	}
}

func TestPassengerLocationUnicastsToDriver(t *testing.T) {
	rooms := room.NewRegistry()
	r := New(rooms, storage.NewMemoryStore(), nil, nil, nil)
	ctx := context.Background()

	driverWire := &fakeWire{}
	driver := room.NewSession(room.RoleDriver, "d1", driverWire)
	otherWire := &fakeWire{}
	other := room.NewSession(room.RolePassenger, "p2", otherWire)
	sender := room.NewSession(room.RolePassenger, "p1", &fakeWire{})

	mustHandle(t, r, ctx, driver, frame(t, EvJoinService, "svc1"))
	mustHandle(t, r, ctx, other, frame(t, EvJoinService, "svc1"))
	mustHandle(t, r, ctx, sender, frame(t, EvJoinService, "svc1"))

	mustHandle(t, r, ctx, sender, frame(t, EvPassengerLocation, map[string]interface{}{
		"serviceId":   "svc1",
		"passengerId": "p1",
		"location":    map[string]float64{"latitude": 40.0, "longitude": 29.0},
	}))

	got := driverWire.events()
	if len(got) != 1 || got[0].Event != EvDriverRecvPass {
		t.Fatalf("expected driverReceivePassengerLocation at driver, got %+v", got)
	}
	out := got[0].Data.(passengerLocationOut)
	if out.PassengerID != "p1" || out.Location.Lat != 40.0 {
		t.Fatalf("unexpected payload %+v", out)
	}
	if len(otherWire.events()) != 0 {
		t.Fatal("other passenger should not see the reply when a driver is tagged")
	}
}

func TestBoundaryValidationRejectsBadFrames(t *testing.T) {
	r := New(room.NewRegistry(), storage.NewMemoryStore(), nil, nil, nil)
	s := room.NewSession(room.RoleDriver, "d1", &fakeWire{})
	ctx := context.Background()

	cases := [][]byte{
		[]byte(`not json`),
		frame(t, "unknownEvent", nil),
		frame(t, EvJoinService, ""),
		frame(t, EvSendLocation, map[string]interface{}{
			"serviceId": "svc1",
			"location":  map[string]float64{"latitude": 95, "longitude": 0},
		}),
	}
	for i, raw := range cases {
		if err := r.Handle(ctx, s, raw); err == nil {
			t.Fatalf("case %d: expected rejection", i)
		}
	}
}

func TestLatestLocationIsLastWriteWins(t *testing.T) {
	r := New(room.NewRegistry(), storage.NewMemoryStore(), nil, nil, nil)
	d := room.NewSession(room.RoleDriver, "d1", &fakeWire{})
	ctx := context.Background()
	mustHandle(t, r, ctx, d, frame(t, EvJoinService, "svc1"))
	for _, lon := range []float64{1, 2, 3} {
		mustHandle(t, r, ctx, d, frame(t, EvSendLocation, map[string]interface{}{
			"serviceId": "svc1", "location": map[string]float64{"latitude": 0, "longitude": lon},
		}))
	}
	loc, ok := r.LatestLocation("svc1")
	if !ok || loc.Lon != 3 {
		t.Fatalf("expected latest lon=3, got %+v ok=%v", loc, ok)
	}
}

func mustHandle(t *testing.T, r *Relay, ctx context.Context, s *room.Session, raw []byte) {
	t.Helper()
	if err := r.Handle(ctx, s, raw); err != nil {
		t.Fatalf("handle: %v", err)
	}
}
