package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/shuttle-tracker/internal/models"
	"github.com/example/shuttle-tracker/internal/storage"
)

// FareHolder is the optional payments hook: a hold is placed when a
// passenger boards and settled when the day is reset at trip end.
type FareHolder interface {
	HoldBoardingFare(ctx context.Context, serviceID, passengerID string) error
	SettleDay(ctx context.Context, serviceID, date string) error
	ReleaseHold(ctx context.Context, serviceID, passengerID string) error
}

// Service is the attendance write path. All writes round-trip through the
// store before being treated as applied.
type Service struct {
	Store  storage.Store
	Fares  FareHolder // nil when boarding fares are not configured
	Logger *slog.Logger
}

// SetStatus records one passenger's status for one day, replacing any
// earlier record for the same key. A fare-hold failure never fails the
// attendance write itself.
func (s *Service) SetStatus(ctx context.Context, serviceID, passengerID string, day time.Time, status models.AttendanceStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid attendance status %q", status)
	}
	rec := models.AttendanceRecord{
		ServiceID:   serviceID,
		PassengerID: passengerID,
		Date:        models.DateKey(day),
		Status:      status,
		UpdatedAt:   time.Now(),
	}
	if err := s.Store.UpsertAttendance(ctx, rec); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	if s.Fares != nil {
		switch status {
		case models.StatusBoarded:
			if err := s.Fares.HoldBoardingFare(ctx, serviceID, passengerID); err != nil {
				s.logger().Warn("boarding fare hold failed", "service_id", serviceID, "passenger_id", passengerID, "error", err)
			}
		case models.StatusNoShow, models.StatusWillSkip:
			if err := s.Fares.ReleaseHold(ctx, serviceID, passengerID); err != nil {
				s.logger().Warn("fare hold release failed", "service_id", serviceID, "passenger_id", passengerID, "error", err)
			}
		}
	}
	return nil
}

// ResetDay clears the ledger for one service-day; drivers trigger it at
// trip end. Held fares for the day are settled first.
func (s *Service) ResetDay(ctx context.Context, serviceID string, day time.Time) error {
	date := models.DateKey(day)
	if s.Fares != nil {
		if err := s.Fares.SettleDay(ctx, serviceID, date); err != nil {
			s.logger().Warn("fare settlement failed", "service_id", serviceID, "date", date, "error", err)
		}
	}
	if err := s.Store.DeleteAttendanceForDate(ctx, serviceID, date); err != nil {
		return fmt.Errorf("reset attendance: %w", err)
	}
	return nil
}

// MarkAbsentAhead pre-populates GELMEYECEK for each given future day.
func (s *Service) MarkAbsentAhead(ctx context.Context, serviceID, passengerID string, days []time.Time) error {
	for _, d := range days {
		rec := models.AttendanceRecord{
			ServiceID:   serviceID,
			PassengerID: passengerID,
			Date:        models.DateKey(d),
			Status:      models.StatusWillSkip,
			UpdatedAt:   time.Now(),
		}
		if err := s.Store.UpsertAttendance(ctx, rec); err != nil {
			return fmt.Errorf("mark absent %s: %w", rec.Date, err)
		}
	}
	return nil
}

// Pending loads roster and ledger for the day and applies the filter.
func (s *Service) Pending(ctx context.Context, serviceID string, day time.Time) ([]models.Passenger, error) {
	passengers, err := s.Store.FindPassengers(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	records, err := s.Store.FindAttendance(ctx, serviceID, models.DateKey(day))
	if err != nil {
		return nil, fmt.Errorf("load attendance: %w", err)
	}
	return PendingPickups(passengers, records, day), nil
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
