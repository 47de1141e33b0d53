package alerting

import (
	"time"

	"codeberg.org/mutker/roadwatch/internal/monitor"
)

// Alert is a classified, retained, published finding. Immutable once
// created; the ID is unique per emission, not per subtype.
type Alert struct {
	ID         string
	DetectorID string
	Subtype    string
	Key        string
	Title      string
	Details    string
	Severity   monitor.Severity
	Tier       monitor.Tier
	Timestamp  time.Time
}

// Subscriber receives published alerts. Delivery is fire-and-forget: a
// panicking subscriber is isolated and never blocks other subscribers.
type Subscriber func(Alert)

// Config controls pipeline retention and deduplication.
type Config struct {
	// Capacity bounds the alert history ring. Insertion evicts the oldest
	// entry when full.
	Capacity int
	// DedupeWindow is the number of past ticks during which a repeat
	// finding of the same (detector, subtype) pair is suppressed. Zero
	// suppresses repeats within the same tick only.
	DedupeWindow uint64
}

const defaultCapacity = 10

// DefaultConfig returns the stock pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Capacity: defaultCapacity,
	}
}
