package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/shuttle-tracker/internal/attendance"
	"github.com/example/shuttle-tracker/internal/config"
	"github.com/example/shuttle-tracker/internal/eta"
	"github.com/example/shuttle-tracker/internal/geo"
	"github.com/example/shuttle-tracker/internal/relay"
	"github.com/example/shuttle-tracker/internal/room"
	"github.com/example/shuttle-tracker/internal/route"
	"github.com/example/shuttle-tracker/internal/routing"
	"github.com/example/shuttle-tracker/internal/storage"
)

type Server struct {
	Cfg        config.ServerConfig
	Rooms      *room.Registry
	Relay      *relay.Relay
	Attendance *attendance.Service
	Planner    *route.Planner
	Router     routing.Router // nil: ETA always falls back to haversine
	Geocoder   routing.Geocoder
	LastKnown  geo.LastKnown
	Store      storage.Store

	logger *slog.Logger
	mux    *mux.Router

	etaMu      sync.Mutex
	estimators map[string]*eta.Estimator
}

func NewServer(cfg config.ServerConfig, logger *slog.Logger) *Server {
	s := &Server{
		Cfg:        cfg,
		logger:     logger,
		mux:        mux.NewRouter(),
		estimators: make(map[string]*eta.Estimator),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/ws", s.handleWS)
	s.mux.HandleFunc("/api/v1/services/{id}/attendance", s.handleSetAttendance).Methods("POST")
	s.mux.HandleFunc("/api/v1/services/{id}/attendance/reset", s.handleResetAttendance).Methods("POST")
	s.mux.HandleFunc("/api/v1/services/{id}/attendance/absences", s.handleAdvanceAbsence).Methods("POST")
	s.mux.HandleFunc("/api/v1/services/{id}/route", s.handleRoute).Methods("GET")
	s.mux.HandleFunc("/api/v1/services/{id}/eta", s.handleETA).Methods("GET")
	s.mux.HandleFunc("/api/v1/services/{id}/location", s.handleLastLocation).Methods("GET")
	s.mux.HandleFunc("/api/v1/services/{id}/presence", s.handlePresence).Methods("GET")
	s.mux.HandleFunc("/api/v1/services/{id}/active", s.handleSetActive).Methods("POST")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// estimatorFor keeps one throttled estimator per tracking session so the
// 30s window applies per service, not globally.
func (s *Server) estimatorFor(serviceID string) *eta.Estimator {
	s.etaMu.Lock()
	defer s.etaMu.Unlock()
	est, ok := s.estimators[serviceID]
	if !ok {
		est = &eta.Estimator{
			Router:          s.Router,
			Interval:        s.Cfg.ETAInterval,
			DefaultSpeedMps: s.Cfg.DefaultSpeedMps,
			Logger:          s.logger,
		}
		s.estimators[serviceID] = est
	}
	return est
}

// baseCtx scopes relay-side collaborator calls (roster lookups, push) to
// the process, not to the websocket request that happened to carry the
// frame.
func (s *Server) baseCtx() context.Context { return context.Background() }

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
