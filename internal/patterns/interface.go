package patterns

import (
	"context"
	"time"
)

// GroupKind is the dimension a transaction set is grouped by.
type GroupKind string

const (
	GroupByDriver   GroupKind = "driver"
	GroupByVehicle  GroupKind = "vehicle"
	GroupByLocation GroupKind = "location"
)

// Transaction is one monetary event attributed to a driver, vehicle and
// location.
type Transaction struct {
	ID         string
	DriverID   string
	VehicleID  string
	LocationID string
	Amount     float64
	Timestamp  time.Time
}

// Stats are the per-group aggregates the anomaly rules read.
type Stats struct {
	Count int
	Total float64
	Mean  float64
	Max   float64
}

// Group is a keyed slice of transactions with its aggregates. Groups are
// recomputed from scratch whenever the underlying transaction set changes.
type Group struct {
	Kind    GroupKind
	Key     string
	Members []Transaction
	Stats   Stats
}

// Rule flags groups whose maximum amount deviates from the group mean
// beyond RatioThreshold. MinCount additionally requires more than MinCount
// members before the rule applies (zero disables the requirement).
type Rule struct {
	Kind           GroupKind
	RatioThreshold float64
	MinCount       int
}

// DefaultRules returns the three stock anomaly heuristics. Each dimension
// has its own rule; all run independently over the same transaction set.
func DefaultRules() []Rule {
	return []Rule{
		{Kind: GroupByDriver, RatioThreshold: 2.0},
		{Kind: GroupByVehicle, RatioThreshold: 1.8},
		{Kind: GroupByLocation, RatioThreshold: 1.5, MinCount: 5},
	}
}

// TransactionSource supplies the current transaction set for an analyzer
// tick.
type TransactionSource interface {
	Transactions(ctx context.Context) ([]Transaction, error)
}
