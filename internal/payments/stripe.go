package payments

import (
	"context"
	"fmt"
	"sync"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// StripeFares places a manual-capture PaymentIntent hold when a passenger
// boards and captures the day's holds at trip end. Holds for passengers
// who end up marked absent are cancelled instead.
type StripeFares struct {
	AmountMinor int64 // per-boarding fare in the currency's minor unit
	Currency    string

	mu    sync.Mutex
	holds map[string]string // service|passenger -> payment intent id
}

func NewStripeFares(apiKey string, amountMinor int64, currency string) *StripeFares {
	stripe.Key = apiKey
	return &StripeFares{AmountMinor: amountMinor, Currency: currency, holds: make(map[string]string)}
}

func (s *StripeFares) HoldBoardingFare(ctx context.Context, serviceID, passengerID string) error {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(s.AmountMinor),
		Currency:      stripe.String(s.Currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	params.AddMetadata("service_id", serviceID)
	params.AddMetadata("passenger_id", passengerID)
	pi, err := paymentintent.New(params)
	if err != nil {
		return fmt.Errorf("create fare hold: %w", err)
	}
	s.mu.Lock()
	s.holds[holdKey(serviceID, passengerID)] = pi.ID
	s.mu.Unlock()
	return nil
}

func (s *StripeFares) ReleaseHold(ctx context.Context, serviceID, passengerID string) error {
	s.mu.Lock()
	id, ok := s.holds[holdKey(serviceID, passengerID)]
	if ok {
		delete(s.holds, holdKey(serviceID, passengerID))
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}
	if _, err := paymentintent.Cancel(id, nil); err != nil {
		return fmt.Errorf("cancel fare hold: %w", err)
	}
	return nil
}

// SettleDay captures every outstanding hold for the service. Failures are
// collected so one bad capture does not strand the rest.
func (s *StripeFares) SettleDay(ctx context.Context, serviceID, date string) error {
	s.mu.Lock()
	var ids []string
	for k, id := range s.holds {
		if len(k) > len(serviceID) && k[:len(serviceID)+1] == serviceID+"|" {
			ids = append(ids, id)
			delete(s.holds, k)
		}
	}
	s.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		if _, err := paymentintent.Capture(id, nil); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("capture %s: %w", id, err)
		}
	}
	return firstErr
}

func holdKey(serviceID, passengerID string) string { return serviceID + "|" + passengerID }
