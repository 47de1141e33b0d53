package monitor

import (
	"sync"

	"codeberg.org/mutker/roadwatch/internal/errors"
)

const neutralSensitivity = 50.0

// Thresholds is one detector's configuration snapshot. Snapshots are
// immutable: updates produce a new value, readers keep seeing the snapshot
// they were handed.
type Thresholds struct {
	Enabled     bool
	Sensitivity float64
	Values      map[string]float64
	Flags       map[string]bool
}

// ThresholdUpdate is a partial configuration change. Nil pointers and
// absent map keys leave the current value untouched.
type ThresholdUpdate struct {
	Enabled     *bool
	Sensitivity *float64
	Values      map[string]float64
	Flags       map[string]bool
}

// NewThresholds builds an enabled configuration with neutral sensitivity.
func NewThresholds(values map[string]float64) Thresholds {
	copied := make(map[string]float64, len(values))
	for k, v := range values {
		copied[k] = v
	}

	return Thresholds{
		Enabled:     true,
		Sensitivity: neutralSensitivity,
		Values:      copied,
		Flags:       make(map[string]bool),
	}
}

// SubtypeEnabled reports whether a subtype participates in evaluation.
// Subtypes without an explicit flag are enabled.
func (t *Thresholds) SubtypeEnabled(subtype string) bool {
	if !t.Enabled {
		return false
	}
	if enabled, ok := t.Flags[subtype]; ok {
		return enabled
	}

	return true
}

// Effective returns the threshold for key scaled by sensitivity. Higher
// sensitivity tightens the threshold in the unsafe direction; 50 is
// neutral. The second return is false when the key is not configured.
func (t *Thresholds) Effective(key string, dir Direction) (float64, bool) {
	base, ok := t.Values[key]
	if !ok {
		return 0, false
	}

	scale := 1 + (neutralSensitivity-t.Sensitivity)/100
	if scale <= 0 {
		scale = 0.01
	}

	if dir == DirectionBelow {
		return base / scale, true
	}

	return base * scale, true
}

// Merge applies a partial update and returns the merged configuration.
// Out-of-range values are accepted as-is; merging never fails.
func (t *Thresholds) Merge(u ThresholdUpdate) Thresholds {
	merged := Thresholds{
		Enabled:     t.Enabled,
		Sensitivity: t.Sensitivity,
		Values:      make(map[string]float64, len(t.Values)+len(u.Values)),
		Flags:       make(map[string]bool, len(t.Flags)+len(u.Flags)),
	}

	for k, v := range t.Values {
		merged.Values[k] = v
	}
	for k, v := range t.Flags {
		merged.Flags[k] = v
	}
	for k, v := range u.Values {
		merged.Values[k] = v
	}
	for k, v := range u.Flags {
		merged.Flags[k] = v
	}

	if u.Enabled != nil {
		merged.Enabled = *u.Enabled
	}
	if u.Sensitivity != nil {
		merged.Sensitivity = *u.Sensitivity
	}

	return merged
}

// Store holds the current threshold configuration per detector. One writer,
// many readers; readers always observe a complete snapshot.
type Store struct {
	mu         sync.RWMutex
	byDetector map[string]*Thresholds
}

func NewStore() *Store {
	return &Store{
		byDetector: make(map[string]*Thresholds),
	}
}

// Put installs or replaces a detector's configuration.
func (s *Store) Put(detectorID string, t Thresholds) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byDetector[detectorID] = &t
}

// Snapshot returns the current configuration for a detector. The returned
// value must be treated as read-only.
func (s *Store) Snapshot(detectorID string) (*Thresholds, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byDetector[detectorID]

	return t, ok
}

// Update merges a partial update into a detector's configuration and
// returns the result. Concurrent updates resolve last-write-wins.
func (s *Store) Update(detectorID string, u ThresholdUpdate) (*Thresholds, error) {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byDetector[detectorID]
	if !ok {
		return nil, errFactory.WithData(ErrDetectorNotFound, detectorID)
	}

	merged := current.Merge(u)
	s.byDetector[detectorID] = &merged

	return &merged, nil
}

// Detectors lists the detector IDs with configuration present.
func (s *Store) Detectors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.byDetector))
	for id := range s.byDetector {
		ids = append(ids, id)
	}

	return ids
}
