package telemetry

import (
	"context"
	"time"
)

// Collector records per-tick engine snapshots for local observability.
type Collector interface {
	Record(ctx context.Context, snapshot *TickSnapshot) error
	Close() error
}

// Repository defines the interface for snapshot storage.
type Repository interface {
	Record(snapshot *TickSnapshot) error
	Close() error
}

// TickSnapshot is one detector tick's outcome. This is observability
// data; alert history itself stays in the in-memory ring.
type TickSnapshot struct {
	Timestamp    time.Time
	EntityID     string
	DetectorID   string
	Status       string
	Findings     int
	AlertEmitted bool
}
