package attendance

import (
	"testing"
	"time"

	"github.com/example/shuttle-tracker/internal/models"
)

var today = time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)

func coord(lat, lon float64) *models.Coord { return &models.Coord{Lat: lat, Lon: lon} }

func rec(passengerID string, day time.Time, status models.AttendanceStatus) models.AttendanceRecord {
	return models.AttendanceRecord{
		ServiceID:   "svc1",
		PassengerID: passengerID,
		Date:        models.DateKey(day),
		Status:      status,
	}
}

func TestPendingPickupsFiltersBoardedAbsentAndCoordless(t *testing.T) {
	roster := []models.Passenger{
		{ID: "A", Pickup: coord(41, 29)},              // no record: defaults to pending
		{ID: "B", Pickup: coord(41.1, 29.1)},          // marked absent in advance
		{ID: "C"},                                     // no pickup coordinate
		{ID: "D", Pickup: coord(41.2, 29.2)},          // boarded
		{ID: "E", Pickup: coord(41.3, 29.3)},          // no-show marked, still routed
	}
	records := []models.AttendanceRecord{
		rec("B", today, models.StatusWillSkip),
		rec("D", today, models.StatusBoarded),
		rec("E", today, models.StatusNoShow),
	}

	got := PendingPickups(roster, records, today)
	want := []string{"A", "E"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %+v", want, got)
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestPendingPickupsScenarioABC(t *testing.T) {
	roster := []models.Passenger{
		{ID: "A", Pickup: coord(1, 1)},
		{ID: "B", Pickup: coord(2, 2)},
		{ID: "C"},
	}
	records := []models.AttendanceRecord{rec("B", today, models.StatusWillSkip)}
	got := PendingPickups(roster, records, today)
	if len(got) != 1 || got[0].ID != "A" {
		t.Fatalf("expected exactly [A], got %+v", got)
	}
}

func TestPendingPickupsIgnoresOtherDays(t *testing.T) {
	roster := []models.Passenger{{ID: "A", Pickup: coord(1, 1)}}
	yesterday := today.AddDate(0, 0, -1)
	records := []models.AttendanceRecord{rec("A", yesterday, models.StatusBoarded)}
	got := PendingPickups(roster, records, today)
	if len(got) != 1 {
		t.Fatalf("yesterday's boarding must not exclude today, got %+v", got)
	}
}

func TestPendingPickupsPreservesRosterOrder(t *testing.T) {
	roster := []models.Passenger{
		{ID: "Z", Pickup: coord(5, 5)},
		{ID: "M", Pickup: coord(1, 1)},
		{ID: "A", Pickup: coord(3, 3)},
	}
	got := PendingPickups(roster, nil, today)
	for i, want := range []string{"Z", "M", "A"} {
		if got[i].ID != want {
			t.Fatalf("filter must be stable, got %+v", got)
		}
	}
}
