package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/shuttle-tracker/internal/models"
	"github.com/example/shuttle-tracker/internal/storage"
)

func (s *Server) handleSetAttendance(w http.ResponseWriter, r *http.Request) {
	serviceID := mux.Vars(r)["id"]
	var req struct {
		PassengerID string `json:"passenger_id"`
		Date        string `json:"date"` // YYYY-MM-DD, default today
		Status      string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	day, err := dayOrToday(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	if req.PassengerID == "" {
		writeError(w, http.StatusBadRequest, "passenger_id required")
		return
	}
	err = s.Attendance.SetStatus(r.Context(), serviceID, req.PassengerID, day, models.AttendanceStatus(req.Status))
	if err != nil {
		// A failed write surfaces to this caller only; nothing else blocks.
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetAttendance(w http.ResponseWriter, r *http.Request) {
	serviceID := mux.Vars(r)["id"]
	var req struct {
		Date string `json:"date"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	day, err := dayOrToday(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	if err := s.Attendance.ResetDay(r.Context(), serviceID, day); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdvanceAbsence(w http.ResponseWriter, r *http.Request) {
	serviceID := mux.Vars(r)["id"]
	var req struct {
		PassengerID string   `json:"passenger_id"`
		Dates       []string `json:"dates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.PassengerID == "" || len(req.Dates) == 0 {
		writeError(w, http.StatusBadRequest, "passenger_id and dates required")
		return
	}
	days := make([]time.Time, 0, len(req.Dates))
	for _, d := range req.Dates {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date "+d)
			return
		}
		days = append(days, t)
	}
	if err := s.Attendance.MarkAbsentAhead(r.Context(), serviceID, req.PassengerID, days); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	serviceID := mux.Vars(r)["id"]
	svc, err := s.Store.FindServiceByID(r.Context(), serviceID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	origin, ok := s.Relay.LatestLocation(serviceID)
	if !ok {
		writeError(w, http.StatusConflict, "no live driver position for service")
		return
	}
	pending, err := s.Attendance.Pending(r.Context(), serviceID, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	plan, err := s.Planner.Route(r.Context(), origin.Coord(), pending, svc.Destination)
	resp := map[string]interface{}{
		"order":      plan.Order,
		"last_point": plan.LastPoint,
	}
	if err != nil {
		// Geometry is best effort; the visit order alone still serves the UI.
		s.logger.Warn("route geometry unavailable", "service_id", serviceID, "error", err)
	} else {
		resp["points"] = plan.Geometry.Points
		resp["distance_text"] = plan.Geometry.DistanceText
		resp["duration_text"] = plan.Geometry.DurationText
	}
	if svc.Destination != nil {
		addr := svc.DestAddress
		if addr == "" && s.Geocoder != nil {
			if a, gerr := s.Geocoder.Reverse(r.Context(), *svc.Destination); gerr == nil {
				addr = a
			}
		}
		resp["destination_address"] = addr
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleETA(w http.ResponseWriter, r *http.Request) {
	serviceID := mux.Vars(r)["id"]
	origin, ok := s.Relay.LatestLocation(serviceID)
	if !ok {
		writeError(w, http.StatusConflict, "no live driver position for service")
		return
	}

	dest, err := s.etaDestination(r, serviceID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	est := s.estimatorFor(serviceID).Estimate(r.Context(), origin.Coord(), dest)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"distance_text":    est.DistanceText,
		"duration_text":    est.DurationText,
		"duration_seconds": est.DurationSeconds,
	})
}

// etaDestination resolves the destination for an ETA query: explicit
// lat/lon, a roster passenger's pickup, or the service destination.
func (s *Server) etaDestination(r *http.Request, serviceID string) (models.Coord, error) {
	q := r.URL.Query()
	if latS, lonS := q.Get("lat"), q.Get("lon"); latS != "" && lonS != "" {
		lat, err1 := strconv.ParseFloat(latS, 64)
		lon, err2 := strconv.ParseFloat(lonS, 64)
		if err1 != nil || err2 != nil {
			return models.Coord{}, errors.New("invalid lat/lon")
		}
		return models.Coord{Lat: lat, Lon: lon}, nil
	}
	if pid := q.Get("passenger_id"); pid != "" {
		passengers, err := s.Store.FindPassengers(r.Context(), serviceID)
		if err != nil {
			return models.Coord{}, err
		}
		for _, p := range passengers {
			if p.ID == pid {
				if p.Pickup == nil {
					return models.Coord{}, errors.New("passenger has no pickup coordinate")
				}
				return *p.Pickup, nil
			}
		}
		return models.Coord{}, errors.New("passenger not on roster")
	}
	svc, err := s.Store.FindServiceByID(r.Context(), serviceID)
	if err != nil {
		return models.Coord{}, err
	}
	if svc.Destination == nil {
		return models.Coord{}, errors.New("service has no destination")
	}
	return *svc.Destination, nil
}

func (s *Server) handleLastLocation(w http.ResponseWriter, r *http.Request) {
	serviceID := mux.Vars(r)["id"]
	if s.LastKnown == nil {
		writeError(w, http.StatusNotImplemented, "last-known location index not configured")
		return
	}
	loc, ok, err := s.LastKnown.Get(r.Context(), serviceID)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no known location")
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

// handlePresence reports who is in a room right now: member count,
// whether the driver's session is connected, and whether the room has
// seen a location since the last stop. Support tooling reads it when a
// parent claims the map is frozen.
func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	serviceID := mux.Vars(r)["id"]
	_, driverOnline := s.Rooms.Driver(serviceID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"members":       len(s.Rooms.Members(serviceID)),
		"driver_online": driverOnline,
		"active":        s.Relay.Active(serviceID),
	})
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	serviceID := mux.Vars(r)["id"]
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.Store.SetServiceActive(r.Context(), serviceID, req.Active); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "service not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func dayOrToday(date string) (time.Time, error) {
	if date == "" {
		return time.Now(), nil
	}
	return time.Parse("2006-01-02", date)
}
