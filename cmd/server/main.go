package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/example/shuttle-tracker/internal/attendance"
	"github.com/example/shuttle-tracker/internal/config"
	"github.com/example/shuttle-tracker/internal/dispatch"
	"github.com/example/shuttle-tracker/internal/geo"
	httpapi "github.com/example/shuttle-tracker/internal/http"
	"github.com/example/shuttle-tracker/internal/ingest"
	"github.com/example/shuttle-tracker/internal/logging"
	"github.com/example/shuttle-tracker/internal/payments"
	"github.com/example/shuttle-tracker/internal/relay"
	"github.com/example/shuttle-tracker/internal/room"
	"github.com/example/shuttle-tracker/internal/route"
	"github.com/example/shuttle-tracker/internal/routing"
	"github.com/example/shuttle-tracker/internal/storage"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		logging.NewLogger("error").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	var store storage.Store
	if cfg.PGDSN != "" {
		if os.Getenv("MIGRATE") == "true" {
			if err := runMigrations(cfg.PGDSN); err != nil {
				logger.Error("migration failed", "error", err)
				os.Exit(1)
			}
			logger.Info("migrations applied")
		}
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			logger.Error("postgres unavailable", "error", err)
			os.Exit(1)
		}
		store = ps
	} else {
		logger.Warn("PG_DSN unset, using in-memory store")
		store = storage.NewMemoryStore()
	}

	var pusher dispatch.Pusher
	if cfg.PushEndpoint != "" {
		pusher = dispatch.NewFCMPusher(cfg.PushEndpoint, cfg.PushKey)
	}

	var stream relay.LocationStream
	var producer *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		producer = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		stream = producer
	}

	var router routing.Router
	var geocoder routing.Geocoder
	switch {
	case cfg.GoogleMapsKey != "":
		gr, err := routing.NewGoogleRouter(cfg.GoogleMapsKey)
		if err != nil {
			logger.Error("maps client init failed", "error", err)
			os.Exit(1)
		}
		router = gr
		gc, err := routing.NewGoogleGeocoder(cfg.GoogleMapsKey)
		if err != nil {
			logger.Error("geocoder init failed", "error", err)
			os.Exit(1)
		}
		geocoder = gc
	case cfg.OSRMEndpoint != "":
		router = routing.NewOSRMRouter(cfg.OSRMEndpoint)
	default:
		logger.Warn("no routing provider configured, ETA uses haversine fallback only")
	}

	var fares attendance.FareHolder
	if cfg.StripeKey != "" && cfg.FareAmountMinor > 0 {
		fares = payments.NewStripeFares(cfg.StripeKey, cfg.FareAmountMinor, cfg.FareCurrency)
	}

	rooms := room.NewRegistry()
	rl := relay.New(rooms, store, pusher, stream, logging.ForComponent(logger, "relay"))

	srv := httpapi.NewServer(cfg, logger)
	srv.Rooms = rooms
	srv.Relay = rl
	srv.Store = store
	srv.Router = router
	srv.Geocoder = geocoder
	srv.Attendance = &attendance.Service{Store: store, Fares: fares, Logger: logging.ForComponent(logger, "attendance")}
	srv.Planner = &route.Planner{Router: router, CallTimeout: cfg.RouteTimeout, Logger: logger}
	if cfg.RedisAddr != "" {
		srv.LastKnown = geo.NewRedisLastKnown(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
	}

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
		if producer != nil {
			_ = producer.Close()
		}
	}()

	logger.Info("shuttle tracker listening", "addr", cfg.HTTPAddr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func runMigrations(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	b, err := os.ReadFile(filepath.Join("migrations", "001_create_tracking.sql"))
	if err != nil {
		return err
	}
	_, err = db.Exec(string(b))
	return err
}
