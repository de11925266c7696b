// Command convoyd runs the drone convoy tracking server: the tracking
// engine, subscriber hub, and metrics surface wired together per §2's
// data-flow diagram, with graceful shutdown on SIGINT/SIGTERM as
// described in §5.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/picogrid/convoy-tracker/internal/demo"
	"github.com/picogrid/convoy-tracker/pkg/config"
	"github.com/picogrid/convoy-tracker/pkg/convoy"
	"github.com/picogrid/convoy-tracker/pkg/convoylog"
	"github.com/picogrid/convoy-tracker/pkg/domain"
	"github.com/picogrid/convoy-tracker/pkg/geo"
	"github.com/picogrid/convoy-tracker/pkg/hub"
	"github.com/picogrid/convoy-tracker/pkg/metrics"
	"github.com/picogrid/convoy-tracker/pkg/persistence"
	"github.com/picogrid/convoy-tracker/pkg/tracking"
	"github.com/picogrid/convoy-tracker/pkg/vision"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	demoFleet := flag.Int("demo-fleet", 0, "number of simulated drones to run (0 disables the demo generator)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := convoylog.New(convoylog.Options{Level: cfg.Server.LogLevel})
	log.Info().Str("version", version).Msg("convoyd starting")

	store := persistence.Store(persistence.NoopStore{})

	trackingCfg := tracking.Config{
		BatteryWarningPct:        cfg.Tracking.BatteryWarningPct,
		BatteryCriticalPct:       cfg.Tracking.BatteryCriticalPct,
		FuelWarningPct:           cfg.Tracking.FuelWarningPct,
		FuelCriticalPct:          cfg.Tracking.FuelCriticalPct,
		WaypointThresholdKm:      cfg.Tracking.WaypointThresholdKm,
		PositionHistoryLimit:     cfg.Tracking.PositionHistoryLimit,
		AlertChannelCapacity:     cfg.Tracking.AlertChannelCapacity,
		EventBusCapacity:         cfg.EventBus.Capacity,
		EventHistoryLimit:        cfg.EventBus.HistoryLimit,
		FormationToleranceMeters: cfg.Convoy.ToleranceMeters,
	}

	engine := tracking.New(trackingCfg, store, convoylog.Component(log, "tracking"))
	engine.Convoy().SetFormation(convoy.Formation(cfg.Convoy.DefaultFormation))
	engine.Convoy().SetSpacing(cfg.Convoy.SpacingMeters)

	if cfg.Vision.Enabled {
		engine.ConfigureVision(
			vision.Config{
				ProcessNoise:       cfg.Vision.ProcessNoise,
				MeasurementNoise:   cfg.Vision.MeasurementNoise,
				IoUThreshold:       cfg.Vision.IoUThreshold,
				MinFramesToConfirm: cfg.Vision.MinFramesToConfirm,
				MaxFramesToSkip:    cfg.Vision.MaxFramesToSkip,
				MaxTracks:          cfg.Vision.MaxTracks,
			},
			vision.CameraCalibration{
				FocalLengthX:    cfg.Vision.CameraFocalLengthX,
				FocalLengthY:    cfg.Vision.CameraFocalLengthY,
				PrincipalPointX: cfg.Vision.CameraPrincipalPointX,
				PrincipalPointY: cfg.Vision.CameraPrincipalPointY,
				Altitude:        cfg.Vision.CameraAltitude,
				Position:        geo.New(cfg.Vision.CameraLatitude, cfg.Vision.CameraLongitude, cfg.Vision.CameraAltitude),
				HeadingDeg:      cfg.Vision.CameraHeadingDeg,
			},
		)
		log.Info().Msg("visual tracker enabled")
	}

	reg := metrics.New()
	engine.SetMetrics(reg)

	engine.Start()
	defer engine.Stop()

	h := hub.New(engine, convoylog.Component(log, "hub"))
	h.SetMetrics(reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *demoFleet > 0 {
		gen := demo.New(engine, geo.New(34.5, 69.2, 500), *demoFleet, time.Now().UnixNano())
		stopDemo := make(chan struct{})
		go gen.Run(time.Second, stopDemo)
		go func() {
			<-ctx.Done()
			close(stopDemo)
		}()
		log.Info().Int("fleet", *demoFleet).Msg("demo telemetry generator running")
	}

	go staleDroneWatcher(ctx, engine, cfg.Server.StaleDroneTimeout, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthzHandler(version))
	mux.HandleFunc("/readyz", readyzHandler(store, reg))
	mux.Handle("/metrics", reg.Handler())
	mux.HandleFunc("/ws", h.ServeHTTP)
	if cfg.Vision.Enabled {
		mux.HandleFunc("/detections", detectionsHandler(engine))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: instrumentHandler(mux, reg),
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown failed")
	}
}

func healthzHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","version":%q,"timestamp":%q}`, version, time.Now().Format(time.RFC3339))
	}
}

func readyzHandler(store persistence.Store, reg *metrics.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok := store.HealthCheck(r.Context())
		if ok {
			reg.DBConnected.Set(1)
		} else {
			reg.DBConnected.Set(0)
		}
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// statusRecorder captures the status code a wrapped handler writes, so
// instrumentHandler can label the api_requests_total/duration metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack forwards to the underlying ResponseWriter so instrumenting
// the mux doesn't break the websocket upgrade at /ws.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying ResponseWriter does not support hijacking")
	}
	return hj.Hijack()
}

// instrumentHandler wraps h to record the API request counters and
// latency histogram named in §4.L for every HTTP request the server
// serves.
func instrumentHandler(h http.Handler, reg *metrics.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		h.ServeHTTP(rec, r)
		duration := time.Since(start).Seconds()

		status := strconv.Itoa(rec.status)
		reg.APIRequests.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		reg.APIRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(duration)
	})
}

// detectionsHandler accepts a frame's worth of visual detections and
// runs them through the engine's alternate ingestion path (§4.D/§4.E),
// returning the resulting tracking results.
func detectionsHandler(engine *tracking.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var detections []domain.Detection
		if err := json.NewDecoder(r.Body).Decode(&detections); err != nil {
			http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		results := engine.IngestDetections(detections)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(results)
	}
}

// staleDroneWatcher periodically logs drones that have gone quiet
// longer than timeout, per §4.F's checkStaleDrones.
func staleDroneWatcher(ctx context.Context, engine *tracking.Engine, timeout time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stale := engine.CheckStaleDrones(timeout)
			for _, id := range stale {
				log.Warn().Str("drone_id", string(id)).Msg("drone has gone stale")
			}
		}
	}
}
