package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/shuttle-tracker/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) FindServiceByID(ctx context.Context, serviceID string) (*models.Service, error) {
	s := &models.Service{ID: serviceID}
	var destLat, destLon sql.NullFloat64
	var destAddr sql.NullString
	err := p.db.QueryRowContext(ctx,
		`SELECT driver_id, dest_lat, dest_lon, dest_address, active FROM services WHERE id=$1`,
		serviceID).Scan(&s.DriverID, &destLat, &destLon, &destAddr, &s.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if destLat.Valid && destLon.Valid {
		s.Destination = &models.Coord{Lat: destLat.Float64, Lon: destLon.Float64}
	}
	s.DestAddress = destAddr.String
	roster, err := p.FindServiceRoster(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	s.Passengers = roster
	return s, nil
}

func (p *PostgresStore) FindServiceRoster(ctx context.Context, serviceID string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT passenger_id FROM service_passengers WHERE service_id=$1 ORDER BY position`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (p *PostgresStore) FindPassengers(ctx context.Context, serviceID string) ([]models.Passenger, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT u.id, u.name, u.pickup_lat, u.pickup_lon
		 FROM service_passengers sp JOIN users u ON u.id = sp.passenger_id
		 WHERE sp.service_id=$1 ORDER BY sp.position`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Passenger
	for rows.Next() {
		var ps models.Passenger
		var lat, lon sql.NullFloat64
		if err := rows.Scan(&ps.ID, &ps.Name, &lat, &lon); err != nil {
			return nil, err
		}
		if lat.Valid && lon.Valid {
			ps.Pickup = &models.Coord{Lat: lat.Float64, Lon: lon.Float64}
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

func (p *PostgresStore) FindAttendance(ctx context.Context, serviceID, date string) ([]models.AttendanceRecord, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT passenger_id, status, updated_at FROM attendance WHERE service_id=$1 AND date=$2`,
		serviceID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.AttendanceRecord
	for rows.Next() {
		r := models.AttendanceRecord{ServiceID: serviceID, Date: date}
		if err := rows.Scan(&r.PassengerID, &r.Status, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertAttendance relies on the (service_id, passenger_id, date) unique
// index so concurrent writers for the same key serialize to last-write-wins
// instead of racing a find-then-insert.
func (p *PostgresStore) UpsertAttendance(ctx context.Context, rec models.AttendanceRecord) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO attendance(service_id, passenger_id, date, status, updated_at)
		 VALUES($1,$2,$3,$4,$5)
		 ON CONFLICT (service_id, passenger_id, date)
		 DO UPDATE SET status=EXCLUDED.status, updated_at=EXCLUDED.updated_at`,
		rec.ServiceID, rec.PassengerID, rec.Date, rec.Status, time.Now())
	return err
}

func (p *PostgresStore) DeleteAttendanceForDate(ctx context.Context, serviceID, date string) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM attendance WHERE service_id=$1 AND date=$2`, serviceID, date)
	return err
}

func (p *PostgresStore) SetServiceActive(ctx context.Context, serviceID string, active bool) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE services SET active=$1, updated_at=$2 WHERE id=$3`, active, time.Now(), serviceID)
	return err
}
