package alerting

import (
	"fmt"
	"sync"
	"time"

	"codeberg.org/mutker/roadwatch/internal/logger"
	"codeberg.org/mutker/roadwatch/internal/monitor"
	"github.com/google/uuid"
)

type dedupeKey struct {
	detectorID string
	subtype    string
}

// Pipeline assigns identity to classified findings, applies the dedupe
// window, keeps a capped most-recent-first history, and fans published
// alerts out to subscribers. Safe for concurrent use.
type Pipeline struct {
	// publishMu serializes publication so subscribers observe alerts in
	// history order.
	publishMu sync.Mutex

	mu       sync.RWMutex
	cfg      Config
	history  []Alert
	lastTick map[dedupeKey]uint64
	subs     map[int]Subscriber
	nextSub  int
	now      func() time.Time
}

// NewPipeline builds an alert pipeline.
func NewPipeline(cfg Config) *Pipeline {
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultCapacity
	}

	return &Pipeline{
		cfg:      cfg,
		history:  make([]Alert, 0, cfg.Capacity),
		lastTick: make(map[dedupeKey]uint64),
		subs:     make(map[int]Subscriber),
		now:      time.Now,
	}
}

// Publish selects at most one finding from a tick's batch, converts it to
// an alert and delivers it. Danger-tier findings take priority over
// warning-tier; ties resolve in evaluation order. Findings whose subtype
// emitted within the dedupe window are suppressed. Returns the published
// alert, or nil when the whole batch was suppressed or empty.
func (p *Pipeline) Publish(tick uint64, findings []monitor.Classified) *Alert {
	p.publishMu.Lock()
	defer p.publishMu.Unlock()

	candidate := p.pick(tick, findings)
	if candidate == nil {
		return nil
	}

	alert := p.newAlert(candidate)

	p.mu.Lock()
	p.lastTick[dedupeKey{candidate.DetectorID, candidate.Subtype}] = tick
	p.append(alert)
	subs := make([]Subscriber, 0, len(p.subs))
	for id := 0; id < p.nextSub; id++ {
		if fn, ok := p.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	p.mu.Unlock()

	for _, fn := range subs {
		deliver(fn, alert)
	}

	return &alert
}

// pick returns the highest-priority non-suppressed finding of the batch.
func (p *Pipeline) pick(tick uint64, findings []monitor.Classified) *monitor.Classified {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, tier := range []monitor.Tier{monitor.TierDanger, monitor.TierWarning} {
		for i := range findings {
			f := &findings[i]
			if f.Tier != tier {
				continue
			}
			if p.suppressed(tick, f) {
				continue
			}

			return f
		}
	}

	return nil
}

func (p *Pipeline) suppressed(tick uint64, f *monitor.Classified) bool {
	last, ok := p.lastTick[dedupeKey{f.DetectorID, f.Subtype}]
	if !ok {
		return false
	}

	return tick-last <= p.cfg.DedupeWindow
}

// append inserts an alert, evicting the oldest entry under cap pressure.
func (p *Pipeline) append(alert Alert) {
	if len(p.history) == p.cfg.Capacity {
		copy(p.history, p.history[1:])
		p.history = p.history[:len(p.history)-1]
	}
	p.history = append(p.history, alert)
}

// Subscribe registers a subscriber and returns its handle.
func (p *Pipeline) Subscribe(fn Subscriber) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn

	return id
}

// Unsubscribe removes a subscriber. Unknown handles are a no-op.
func (p *Pipeline) Unsubscribe(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.subs, id)
}

// History returns the retained alerts, most recent first.
func (p *Pipeline) History() []Alert {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Alert, len(p.history))
	for i, alert := range p.history {
		out[len(out)-1-i] = alert
	}

	return out
}

func (p *Pipeline) newAlert(f *monitor.Classified) Alert {
	direction := "above"
	if f.Direction == monitor.DirectionBelow {
		direction = "below"
	}

	timestamp := f.Timestamp
	if timestamp.IsZero() {
		timestamp = p.now()
	}

	return Alert{
		ID:         uuid.NewString(),
		DetectorID: f.DetectorID,
		Subtype:    f.Subtype,
		Key:        f.Key,
		Title:      f.Title,
		Details:    fmt.Sprintf("measured %.2f, %s threshold %.2f", f.Measured, direction, f.Threshold),
		Severity:   f.Severity,
		Tier:       f.Tier,
		Timestamp:  timestamp,
	}
}

// deliver invokes one subscriber, isolating panics so a failing callback
// cannot prevent delivery to the others.
func deliver(fn Subscriber, alert Alert) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Str("alert_id", alert.ID).
				Str("detector", alert.DetectorID).
				Interface("panic", r).
				Msg("Alert subscriber panicked")
		}
	}()

	fn(alert)
}
