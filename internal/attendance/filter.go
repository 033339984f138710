package attendance

import (
	"time"

	"github.com/example/shuttle-tracker/internal/models"
)

// PendingPickups computes the passengers still waiting to be picked up on
// the given day. A passenger with no record for the day defaults to
// BEKLIYOR. Excluded: status BINDI or GELMEYECEK, or no usable pickup
// coordinate. The filter is stable: survivors keep roster order; visit
// ordering is the optimizer's job, not this one's.
func PendingPickups(passengers []models.Passenger, records []models.AttendanceRecord, today time.Time) []models.Passenger {
	date := models.DateKey(today)
	byPassenger := make(map[string]models.AttendanceStatus, len(records))
	for _, r := range records {
		if r.Date == date {
			byPassenger[r.PassengerID] = r.Status
		}
	}
	out := make([]models.Passenger, 0, len(passengers))
	for _, p := range passengers {
		if p.Pickup == nil {
			continue
		}
		status, ok := byPassenger[p.ID]
		if !ok {
			status = models.StatusPending
		}
		if status == models.StatusBoarded || status == models.StatusWillSkip {
			continue
		}
		out = append(out, p)
	}
	return out
}
