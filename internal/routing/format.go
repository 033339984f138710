package routing

import (
	"fmt"
	"math"
	"time"
)

// FormatDistance renders meters the way the mobile clients display it:
// whole meters below a kilometer, otherwise one-decimal kilometers.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

// FormatDuration renders a duration in minutes ("dk"), hours+minutes past
// the hour mark. Sub-minute durations round up to 1 dk so the UI never
// shows a zero ETA.
func FormatDuration(d time.Duration) string {
	mins := int(math.Ceil(d.Minutes()))
	if mins < 1 {
		mins = 1
	}
	if mins < 60 {
		return fmt.Sprintf("%d dk", mins)
	}
	return fmt.Sprintf("%d sa %d dk", mins/60, mins%60)
}
