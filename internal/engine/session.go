package engine

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/roadwatch/internal/alerting"
	"codeberg.org/mutker/roadwatch/internal/logger"
	"codeberg.org/mutker/roadwatch/internal/metrics"
	"codeberg.org/mutker/roadwatch/internal/monitor"
	"codeberg.org/mutker/roadwatch/internal/patterns"
	"codeberg.org/mutker/roadwatch/internal/status"
	"codeberg.org/mutker/roadwatch/internal/telemetry"
)

func patternsDefault() *patterns.Analyzer {
	return patterns.NewAnalyzer()
}

// session is one entity's monitoring state: its threshold store, alert
// pipeline, status aggregator and detector tasks. Sessions are created by
// StartMonitoring and torn down by StopMonitoring; nothing survives
// teardown.
type session struct {
	engine   *Engine
	entityID string
	info     SessionInfo
	cfg      EntityConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu orders start against stop: a session stopped before its loops
	// were spawned never spawns them.
	mu      sync.Mutex
	stopped bool

	store    *monitor.Store
	pipeline *alerting.Pipeline
	agg      *status.Aggregator
}

func newSession(e *Engine, entityID string, cfg EntityConfig) *session {
	ctx, cancel := context.WithCancel(context.Background())

	s := &session{
		engine:   e,
		entityID: entityID,
		info:     cfg.Info,
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		store:    monitor.NewStore(),
		pipeline: alerting.NewPipeline(cfg.Pipeline),
		agg:      status.NewAggregator(cfg.Status),
	}

	for _, b := range cfg.Detectors {
		s.store.Put(b.Detector.ID(), b.Thresholds)
	}

	return s
}

func (s *session) start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	s.agg.Activate()

	for i := range s.cfg.Detectors {
		binding := s.cfg.Detectors[i]
		s.wg.Add(1)
		go s.detectorLoop(binding)
	}

	if p := s.cfg.Patterns; p != nil && p.Source != nil {
		binding := *p
		if binding.Analyzer == nil {
			binding.Analyzer = patternsDefault()
		}
		s.wg.Add(1)
		go s.patternLoop(binding)
	}

	logger.Info().
		Str("entity", s.entityID).
		Int("detectors", len(s.cfg.Detectors)).
		Bool("patterns", s.cfg.Patterns != nil).
		Msg("Monitoring started")
}

// stop requests cooperative cancellation, waits for in-flight ticks to
// complete and flushes the rollup to inactive. Safe to call more than
// once and safe against a start that has not happened yet.
func (s *session) stop() {
	s.mu.Lock()
	alreadyStopped := s.stopped
	s.stopped = true
	s.mu.Unlock()

	if alreadyStopped {
		return
	}

	s.cancel()
	s.wg.Wait()
	s.agg.Deactivate()

	if c := s.engine.collectors; c != nil {
		c.EntityStatus.WithLabelValues(s.entityID).Set(metrics.StatusValue(status.Inactive))
	}

	logger.Info().
		Str("entity", s.entityID).
		Msg("Monitoring stopped")
}

func (s *session) detectorLoop(b DetectorBinding) {
	defer s.wg.Done()

	interval := b.Interval
	if interval <= 0 {
		interval = defaultTickInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var tick uint64
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			// Cancellation is checked at the top of each tick; an
			// in-flight tick completes, no new tick starts.
			if s.ctx.Err() != nil {
				return
			}
			tick++
			s.runDetectorTick(b, tick)
		}
	}
}

func (s *session) runDetectorTick(b DetectorBinding, tick uint64) {
	detectorID := b.Detector.ID()

	sample, err := b.Source.Next(s.ctx)
	if err != nil {
		logger.Warn().
			Str("entity", s.entityID).
			Str("detector", detectorID).
			Err(err).
			Msg("Sample source failed; silent tick")
		s.agg.ClearDetector(detectorID)
		return
	}
	if sample == nil {
		s.agg.ClearDetector(detectorID)
		return
	}

	cfg, ok := s.store.Snapshot(detectorID)
	if !ok {
		s.agg.ClearDetector(detectorID)
		return
	}

	findings := b.Detector.Evaluate(sample, cfg)
	classified := s.classifyAll(findings)
	s.finishTick(detectorID, tick, classified)
}

func (s *session) patternLoop(b PatternBinding) {
	defer s.wg.Done()

	interval := b.Interval
	if interval <= 0 {
		interval = defaultTickInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var tick uint64
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if s.ctx.Err() != nil {
				return
			}
			tick++
			s.runPatternTick(b, tick)
		}
	}
}

func (s *session) runPatternTick(b PatternBinding, tick uint64) {
	txs, err := b.Source.Transactions(s.ctx)
	if err != nil {
		logger.Warn().
			Str("entity", s.entityID).
			Err(err).
			Msg("Transaction source failed; silent tick")
		s.agg.ClearDetector(monitor.DetectorPatterns)
		return
	}

	findings := b.Analyzer.Analyze(txs, time.Now())
	classified := s.classifyAll(findings)
	s.finishTick(monitor.DetectorPatterns, tick, classified)
}

// finishTick runs the per-tick tail in strict order: aggregation, then
// publication, then observation.
func (s *session) finishTick(detectorID string, tick uint64, classified []monitor.Classified) {
	s.agg.SetFindings(detectorID, classified)
	alert := s.pipeline.Publish(tick, classified)
	s.observe(detectorID, classified, alert)
}

func (s *session) classifyAll(findings []monitor.Finding) []monitor.Classified {
	if len(findings) == 0 {
		return nil
	}

	classified := make([]monitor.Classified, 0, len(findings))
	for _, f := range findings {
		c := monitor.Classify(f, s.engine.escalation)
		classified = append(classified, monitor.Classified{
			Finding:  f,
			Severity: c.Severity,
			Tier:     c.Tier,
		})
	}

	return classified
}

func (s *session) observe(detectorID string, classified []monitor.Classified, alert *alerting.Alert) {
	snapshot := s.agg.Status()

	if c := s.engine.collectors; c != nil {
		c.SamplesEvaluated.WithLabelValues(detectorID).Inc()
		for i := range classified {
			c.FindingsRaised.WithLabelValues(detectorID, classified[i].Subtype).Inc()
		}
		switch {
		case alert != nil:
			c.AlertsPublished.WithLabelValues(detectorID, string(alert.Tier)).Inc()
		case len(classified) > 0:
			c.AlertsSuppressed.WithLabelValues(detectorID).Inc()
		}
		c.EntityStatus.WithLabelValues(s.entityID).Set(metrics.StatusValue(snapshot.Status))
	}

	if r := s.engine.recorder; r != nil {
		err := r.Record(s.ctx, &telemetry.TickSnapshot{
			Timestamp:    time.Now(),
			EntityID:     s.entityID,
			DetectorID:   detectorID,
			Status:       string(snapshot.Status),
			Findings:     len(classified),
			AlertEmitted: alert != nil,
		})
		if err != nil {
			logger.Debug().Err(err).Msg("Telemetry record failed")
		}
	}
}
