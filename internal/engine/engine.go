package engine

import (
	"sync"

	"codeberg.org/mutker/roadwatch/internal/alerting"
	"codeberg.org/mutker/roadwatch/internal/errors"
	"codeberg.org/mutker/roadwatch/internal/metrics"
	"codeberg.org/mutker/roadwatch/internal/monitor"
	"codeberg.org/mutker/roadwatch/internal/status"
	"codeberg.org/mutker/roadwatch/internal/telemetry"
)

// Engine owns the monitoring sessions of all entities. Each entity's state
// is fully independent; no cross-entity locking happens beyond the session
// table itself.
type Engine struct {
	mu         sync.RWMutex
	sessions   map[string]*session
	closed     bool
	escalation monitor.EscalationRatios
	collectors *metrics.Collectors
	recorder   telemetry.Collector
}

// Option configures an Engine.
type Option func(*Engine)

// WithEscalation overrides the default severity escalation ratios.
func WithEscalation(r monitor.EscalationRatios) Option {
	return func(e *Engine) {
		e.escalation = r
	}
}

// WithCollectors wires prometheus instrumentation.
func WithCollectors(c *metrics.Collectors) Option {
	return func(e *Engine) {
		e.collectors = c
	}
}

// WithRecorder wires the tick telemetry recorder.
func WithRecorder(r telemetry.Collector) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// New builds an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		sessions:   make(map[string]*session),
		escalation: monitor.DefaultEscalation(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// StartMonitoring begins monitoring an entity. Idempotent: re-issuing
// while active stops the running detector tasks and restarts them with
// the supplied config.
func (e *Engine) StartMonitoring(entityID string, cfg EntityConfig) error {
	errFactory := errors.New()

	if entityID == "" {
		return errFactory.WithMessage(errors.ErrInvalidArgument, "entity id is required")
	}

	if cfg.Info.EntityID == "" {
		cfg.Info.EntityID = entityID
	}

	s := newSession(e, entityID, cfg)

	// The swap is a single critical section so concurrent starts for the
	// same entity always displace exactly one session each; whatever was
	// displaced is stopped after the swap.
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return errFactory.New(ErrEngineClosed)
	}
	displaced := e.sessions[entityID]
	e.sessions[entityID] = s
	e.mu.Unlock()

	if displaced != nil {
		displaced.stop()
	}

	s.start()

	return nil
}

// StopMonitoring cancels an entity's detector tasks and flushes its status
// to inactive. Stopping an entity that is not monitored is a no-op.
func (e *Engine) StopMonitoring(entityID string) {
	e.mu.Lock()
	s := e.sessions[entityID]
	delete(e.sessions, entityID)
	e.mu.Unlock()

	if s != nil {
		s.stop()
	}
}

// UpdateConfig merges a partial threshold update into a detector's
// configuration. Takes effect on the detector's next tick; past alerts are
// never re-evaluated.
func (e *Engine) UpdateConfig(entityID, detectorID string, u monitor.ThresholdUpdate) (*monitor.Thresholds, error) {
	s, err := e.session(entityID)
	if err != nil {
		return nil, err
	}

	return s.store.Update(detectorID, u)
}

// GetConfig returns the current configuration snapshot for a detector.
func (e *Engine) GetConfig(entityID, detectorID string) (*monitor.Thresholds, error) {
	errFactory := errors.New()

	s, err := e.session(entityID)
	if err != nil {
		return nil, err
	}

	cfg, ok := s.store.Snapshot(detectorID)
	if !ok {
		return nil, errFactory.WithData(ErrDetectorNotFound, detectorID)
	}

	return cfg, nil
}

// SubscribeAlerts registers a callback invoked once per published alert,
// in publish order. Returns the subscription handle.
func (e *Engine) SubscribeAlerts(entityID string, fn alerting.Subscriber) (int, error) {
	s, err := e.session(entityID)
	if err != nil {
		return 0, err
	}

	return s.pipeline.Subscribe(fn), nil
}

// UnsubscribeAlerts removes a subscription.
func (e *Engine) UnsubscribeAlerts(entityID string, handle int) error {
	s, err := e.session(entityID)
	if err != nil {
		return err
	}

	s.pipeline.Unsubscribe(handle)

	return nil
}

// GetStatus returns the entity's current rollup status. Unknown or stopped
// entities are inactive.
func (e *Engine) GetStatus(entityID string) status.Snapshot {
	s, err := e.session(entityID)
	if err != nil {
		return status.Snapshot{Status: status.Inactive}
	}

	return s.agg.Status()
}

// GetAlertHistory returns the entity's retained alerts, most recent first,
// bounded by the pipeline capacity.
func (e *Engine) GetAlertHistory(entityID string) []alerting.Alert {
	s, err := e.session(entityID)
	if err != nil {
		return nil
	}

	return s.pipeline.History()
}

// GetSessionInfo returns the entity's display metadata.
func (e *Engine) GetSessionInfo(entityID string) (SessionInfo, error) {
	s, err := e.session(entityID)
	if err != nil {
		return SessionInfo{}, err
	}

	return s.info, nil
}

// Entities lists the currently monitored entity IDs.
func (e *Engine) Entities() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := make([]string, 0, len(e.sessions))
	for id := range e.sessions {
		ids = append(ids, id)
	}

	return ids
}

// RecordSkip counts a skipped rule evaluation. Matches monitor.SkipFunc so
// it can be handed to detectors via monitor.WithSkipFunc.
func (e *Engine) RecordSkip(detectorID, _, field string) {
	if e.collectors != nil {
		e.collectors.MalformedFields.WithLabelValues(detectorID, field).Inc()
	}
}

// Close stops all sessions. The engine accepts no new work afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	sessions := make([]*session, 0, len(e.sessions))
	for _, s := range e.sessions {
		sessions = append(sessions, s)
	}
	e.sessions = make(map[string]*session)
	e.mu.Unlock()

	for _, s := range sessions {
		s.stop()
	}
}

func (e *Engine) session(entityID string) (*session, error) {
	errFactory := errors.New()

	e.mu.RLock()
	defer e.mu.RUnlock()

	s, ok := e.sessions[entityID]
	if !ok {
		return nil, errFactory.WithData(ErrEntityNotFound, entityID)
	}

	return s, nil
}
