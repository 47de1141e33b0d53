package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"codeberg.org/mutker/roadwatch/internal/alerting"
	"codeberg.org/mutker/roadwatch/internal/broadcast"
	"codeberg.org/mutker/roadwatch/internal/config"
	"codeberg.org/mutker/roadwatch/internal/engine"
	"codeberg.org/mutker/roadwatch/internal/logger"
	"codeberg.org/mutker/roadwatch/internal/metrics"
	"codeberg.org/mutker/roadwatch/internal/monitor"
	"codeberg.org/mutker/roadwatch/internal/patterns"
	"codeberg.org/mutker/roadwatch/internal/source"
	"codeberg.org/mutker/roadwatch/internal/telemetry"
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, logger.IsService()); err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug().Msg("Config loaded")
}

func main() {
	recorder, err := telemetry.NewService(telemetry.Config{
		DBPath:       cfg.TelemetryDB,
		BatchSize:    32,
		BatchTimeout: 5,
		Enabled:      cfg.Telemetry,
	}, logger.Default())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer recorder.Close()

	registry := prometheus.NewRegistry()
	collectors := metrics.NewCollectors(registry)

	eng := engine.New(
		engine.WithEscalation(monitor.EscalationRatios{
			Above: cfg.EscalateAbove,
			Below: cfg.EscalateBelow,
		}),
		engine.WithCollectors(collectors),
		engine.WithRecorder(recorder),
	)
	defer eng.Close()

	hub := broadcast.NewHub()
	defer hub.Close()

	if err := startEntity(eng, hub); err != nil {
		logger.Fatal().Err(err).Msg("failed to start monitoring")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	server := httpServer(eng, hub, registry)
	go func() {
		logger.Info().Str("listen", cfg.Listen).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP server failed")
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	eng.StopMonitoring(cfg.EntityID)
	logger.Info().Msg("Exiting...")
}

func startEntity(eng *engine.Engine, hub *broadcast.Hub) error {
	interval := time.Duration(cfg.Interval) * time.Second

	sources, err := buildSources()
	if err != nil {
		return err
	}

	entityCfg := engine.EntityConfig{
		Info: engine.SessionInfo{
			EntityID:   cfg.EntityID,
			ShiftStart: time.Now(),
			ShiftEnd:   time.Now().Add(8 * time.Hour),
		},
		Detectors: engine.DefaultSafetyBindings(sources, interval, monitor.WithSkipFunc(eng.RecordSkip)),
		Patterns: &engine.PatternBinding{
			Analyzer: patterns.NewAnalyzer(),
			Source:   transactionSource(),
			Interval: interval,
		},
	}
	entityCfg.Pipeline.Capacity = cfg.Capacity
	entityCfg.Pipeline.DedupeWindow = uint64(cfg.DedupeWindow)
	entityCfg.Status.FlashDuration = time.Duration(cfg.FlashSeconds) * time.Second

	if err := eng.StartMonitoring(cfg.EntityID, entityCfg); err != nil {
		return err
	}

	if _, err := eng.SubscribeAlerts(cfg.EntityID, hub.Subscriber()); err != nil {
		return err
	}
	if _, err := eng.SubscribeAlerts(cfg.EntityID, logAlert); err != nil {
		return err
	}

	return nil
}

func buildSources() (map[string]monitor.Source, error) {
	detectorIDs := []string{
		monitor.DetectorCollision,
		monitor.DetectorFatigue,
		monitor.DetectorDistraction,
		monitor.DetectorBehavior,
	}

	sources := make(map[string]monitor.Source, len(detectorIDs))
	for _, id := range detectorIDs {
		if cfg.RedisAddr == "" {
			sources[id] = source.NewSimulated(id, 0)
			continue
		}

		redisSource, err := source.NewRedisSource(source.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKeyPrefix + id,
		})
		if err != nil {
			return nil, err
		}
		sources[id] = redisSource
	}

	if cfg.RedisAddr == "" {
		logger.Info().Msg("No redis_addr configured; using simulated sample sources")
	}

	return sources, nil
}

// staticTransactions is the demo transaction set the pattern analyzer
// reruns each tick when no external feed is wired.
type staticTransactions struct {
	txs []patterns.Transaction
}

func (s staticTransactions) Transactions(_ context.Context) ([]patterns.Transaction, error) {
	return s.txs, nil
}

func transactionSource() patterns.TransactionSource {
	return staticTransactions{
		txs: []patterns.Transaction{
			{ID: "t1", DriverID: cfg.EntityID, VehicleID: "veh-1", LocationID: "loc-1", Amount: 52},
			{ID: "t2", DriverID: cfg.EntityID, VehicleID: "veh-1", LocationID: "loc-1", Amount: 48},
			{ID: "t3", DriverID: cfg.EntityID, VehicleID: "veh-1", LocationID: "loc-2", Amount: 61},
			{ID: "t4", DriverID: cfg.EntityID, VehicleID: "veh-2", LocationID: "loc-2", Amount: 55},
		},
	}
}

func logAlert(alert alerting.Alert) {
	logger.Info().
		Str("alert_id", alert.ID).
		Str("detector", alert.DetectorID).
		Str("subtype", alert.Subtype).
		Str("severity", string(alert.Severity)).
		Str("details", alert.Details).
		Msg(alert.Title)
}

func httpServer(eng *engine.Engine, hub *broadcast.Hub, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/alerts", hub)
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		snapshot := eng.GetStatus(cfg.EntityID)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"entity": cfg.EntityID,
			"status": snapshot.Status,
			"flash":  snapshot.Flash,
		})
	})
	mux.HandleFunc("/history", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(eng.GetAlertHistory(cfg.EntityID))
	})
	mux.HandleFunc("/session", func(w http.ResponseWriter, _ *http.Request) {
		info, err := eng.GetSessionInfo(cfg.EntityID)
		if err != nil {
			http.Error(w, "entity not monitored", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"entity":          info.EntityID,
			"shift_start":     info.ShiftStart,
			"shift_end":       info.ShiftEnd,
			"shift_remaining": info.ShiftRemaining(time.Now()).Seconds(),
		})
	})

	return &http.Server{
		Addr:    cfg.Listen,
		Handler: mux,
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
