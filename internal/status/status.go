package status

import (
	"sync"
	"time"

	"codeberg.org/mutker/roadwatch/internal/monitor"
)

// Status is the rollup state for one monitored entity.
type Status string

const (
	Inactive Status = "inactive"
	Normal   Status = "normal"
	Warning  Status = "warning"
	Danger   Status = "danger"
)

const defaultFlashDuration = 3 * time.Second

// Config controls the aggregator's display flash.
type Config struct {
	// FlashDuration is how long the UI-facing flash indicator stays lit
	// after a warning or danger transition. Clearing the flash never
	// touches alert history.
	FlashDuration time.Duration
}

// Snapshot is a point-in-time view of the rollup.
type Snapshot struct {
	Status Status
	// Flash is the self-clearing display indicator.
	Flash bool
}

// Aggregator reduces the current findings of an entity's detectors into a
// single rollup status. Status is derived, never stored: every call to
// SetFindings recomputes from the full current finding set. Safe for
// concurrent use.
type Aggregator struct {
	mu          sync.RWMutex
	perDetector map[string][]monitor.Classified
	active      bool
	sampled     bool
	current     Status
	flashUntil  time.Time
	flashFor    time.Duration
	now         func() time.Time
}

// NewAggregator builds an aggregator in the inactive state.
func NewAggregator(cfg Config) *Aggregator {
	if cfg.FlashDuration <= 0 {
		cfg.FlashDuration = defaultFlashDuration
	}

	return &Aggregator{
		perDetector: make(map[string][]monitor.Classified),
		current:     Inactive,
		flashFor:    cfg.FlashDuration,
		now:         time.Now,
	}
}

// Activate marks monitoring as started. Status stays inactive until the
// first tick reports findings (or their absence).
func (a *Aggregator) Activate() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.active = true
	a.sampled = false
	a.current = Inactive
	a.perDetector = make(map[string][]monitor.Classified)
}

// Deactivate flushes the rollup to inactive.
func (a *Aggregator) Deactivate() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.active = false
	a.sampled = false
	a.current = Inactive
	a.flashUntil = time.Time{}
	a.perDetector = make(map[string][]monitor.Classified)
}

// SetFindings replaces one detector's current findings and recomputes the
// rollup. Call once per tick per detector, with an empty slice for a clean
// tick.
func (a *Aggregator) SetFindings(detectorID string, findings []monitor.Classified) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.active {
		return
	}

	a.sampled = true
	a.perDetector[detectorID] = findings

	next := a.reduce()
	if next != a.current && (next == Warning || next == Danger) {
		a.flashUntil = a.now().Add(a.flashFor)
	}
	a.current = next
}

// ClearDetector drops one detector's findings without marking the entity
// as sampled. A detector with no data this tick contributes silence, which
// reduces the same as a clean tick, but it never pulls an entity out of
// inactive on its own.
func (a *Aggregator) ClearDetector(detectorID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.active {
		return
	}

	delete(a.perDetector, detectorID)

	next := a.reduce()
	if next != a.current && (next == Warning || next == Danger) {
		a.flashUntil = a.now().Add(a.flashFor)
	}
	a.current = next
}

// reduce implements the rollup state machine: danger when two or more
// distinct subtypes currently exceed, or any single finding is danger
// tier; warning when exactly one subtype exceeds; normal otherwise.
func (a *Aggregator) reduce() Status {
	if !a.sampled {
		return Inactive
	}

	subtypes := make(map[string]struct{})
	dangerTier := false
	for _, findings := range a.perDetector {
		for i := range findings {
			f := &findings[i]
			switch f.Tier {
			case monitor.TierDanger:
				dangerTier = true
				subtypes[f.Subtype] = struct{}{}
			case monitor.TierWarning:
				subtypes[f.Subtype] = struct{}{}
			}
		}
	}

	switch {
	case dangerTier || len(subtypes) >= 2:
		return Danger
	case len(subtypes) == 1:
		return Warning
	default:
		return Normal
	}
}

// Status returns the current rollup snapshot.
func (a *Aggregator) Status() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	flash := false
	if a.current == Warning || a.current == Danger {
		flash = a.now().Before(a.flashUntil)
	}

	return Snapshot{
		Status: a.current,
		Flash:  flash,
	}
}
