package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/example/shuttle-tracker/internal/models"
)

var ErrNotFound = errors.New("not found")

// Store defines the persistence operations the relay and route pipeline
// need. Services, rosters and attendance are owned by this collaborator;
// the core never caches its writes as authoritative.
type Store interface {
	FindServiceByID(ctx context.Context, serviceID string) (*models.Service, error)
	FindServiceRoster(ctx context.Context, serviceID string) ([]string, error)
	FindPassengers(ctx context.Context, serviceID string) ([]models.Passenger, error)
	FindAttendance(ctx context.Context, serviceID, date string) ([]models.AttendanceRecord, error)
	UpsertAttendance(ctx context.Context, rec models.AttendanceRecord) error
	DeleteAttendanceForDate(ctx context.Context, serviceID, date string) error
	SetServiceActive(ctx context.Context, serviceID string, active bool) error
}

// MemoryStore backs local runs and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	services   map[string]*models.Service
	passengers map[string][]models.Passenger
	attendance map[string]models.AttendanceRecord // key: service|passenger|date
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		services:   make(map[string]*models.Service),
		passengers: make(map[string][]models.Passenger),
		attendance: make(map[string]models.AttendanceRecord),
	}
}

func attKey(serviceID, passengerID, date string) string {
	return serviceID + "|" + passengerID + "|" + date
}

func (m *MemoryStore) PutService(s *models.Service, roster []models.Passenger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[s.ID] = s
	m.passengers[s.ID] = roster
}

func (m *MemoryStore) FindServiceByID(_ context.Context, serviceID string) (*models.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.services[serviceID]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) FindServiceRoster(_ context.Context, serviceID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.services[serviceID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]string(nil), s.Passengers...), nil
}

func (m *MemoryStore) FindPassengers(_ context.Context, serviceID string) ([]models.Passenger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ps, ok := m.passengers[serviceID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]models.Passenger(nil), ps...), nil
}

func (m *MemoryStore) FindAttendance(_ context.Context, serviceID, date string) ([]models.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.AttendanceRecord
	for _, r := range m.attendance {
		if r.ServiceID == serviceID && r.Date == date {
			out = append(out, r)
		}
	}
	return out, nil
}

// UpsertAttendance replaces any existing record for the same key: last
// write wins, by construction at most one record per (service, passenger,
// date).
func (m *MemoryStore) UpsertAttendance(_ context.Context, rec models.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attendance[attKey(rec.ServiceID, rec.PassengerID, rec.Date)] = rec
	return nil
}

func (m *MemoryStore) DeleteAttendanceForDate(_ context.Context, serviceID, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, r := range m.attendance {
		if r.ServiceID == serviceID && r.Date == date {
			delete(m.attendance, k)
		}
	}
	return nil
}

func (m *MemoryStore) SetServiceActive(_ context.Context, serviceID string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[serviceID]
	if !ok {
		return ErrNotFound
	}
	s.Active = active
	return nil
}
