package patterns

import (
	"sort"
	"time"

	"codeberg.org/mutker/roadwatch/internal/monitor"
)

// GroupBy partitions transactions by the given dimension and computes
// per-group statistics. Transactions without a key for the dimension are
// dropped. Groups come back sorted by key for deterministic evaluation.
func GroupBy(txs []Transaction, kind GroupKind) []Group {
	byKey := make(map[string]*Group)
	for i := range txs {
		tx := &txs[i]
		key := groupKey(tx, kind)
		if key == "" {
			continue
		}

		g, ok := byKey[key]
		if !ok {
			g = &Group{Kind: kind, Key: key}
			byKey[key] = g
		}

		g.Members = append(g.Members, *tx)
		g.Stats.Count++
		g.Stats.Total += tx.Amount
		if tx.Amount > g.Stats.Max {
			g.Stats.Max = tx.Amount
		}
	}

	groups := make([]Group, 0, len(byKey))
	for _, g := range byKey {
		g.Stats.Mean = g.Stats.Total / float64(g.Stats.Count)
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Key < groups[j].Key
	})

	return groups
}

func groupKey(tx *Transaction, kind GroupKind) string {
	switch kind {
	case GroupByDriver:
		return tx.DriverID
	case GroupByVehicle:
		return tx.VehicleID
	case GroupByLocation:
		return tx.LocationID
	default:
		return ""
	}
}

// FlagAnomalies applies one rule to its groups and returns a finding for
// every group whose maximum deviates from the mean beyond the rule's
// ratio. Measured value is the max/mean ratio, so the shared severity
// classifier escalates extreme deviations the same way it escalates any
// above-direction metric.
func FlagAnomalies(groups []Group, rule Rule, now time.Time) []monitor.Finding {
	var findings []monitor.Finding
	for i := range groups {
		g := &groups[i]
		if g.Kind != rule.Kind {
			continue
		}
		if rule.MinCount > 0 && g.Stats.Count <= rule.MinCount {
			continue
		}
		if g.Stats.Mean <= 0 {
			continue
		}
		if g.Stats.Max <= g.Stats.Mean*rule.RatioThreshold {
			continue
		}

		findings = append(findings, monitor.Finding{
			DetectorID: monitor.DetectorPatterns,
			Subtype:    string(rule.Kind) + "_outlier",
			Key:        g.Key,
			Title:      outlierTitle(rule.Kind),
			Measured:   g.Stats.Max / g.Stats.Mean,
			Threshold:  rule.RatioThreshold,
			Direction:  monitor.DirectionAbove,
			Timestamp:  now,
		})
	}

	return findings
}

func outlierTitle(kind GroupKind) string {
	switch kind {
	case GroupByDriver:
		return "Driver amount outlier"
	case GroupByVehicle:
		return "Vehicle amount outlier"
	case GroupByLocation:
		return "Location amount outlier"
	default:
		return "Amount outlier"
	}
}

// Analyzer runs the configured anomaly rules over a transaction set.
type Analyzer struct {
	rules []Rule
}

// NewAnalyzer builds an analyzer; with no rules it uses DefaultRules.
func NewAnalyzer(rules ...Rule) *Analyzer {
	if len(rules) == 0 {
		rules = DefaultRules()
	}

	return &Analyzer{rules: rules}
}

// Analyze regroups the transaction set per rule dimension and flags
// anomalous groups. Stateless: every call recomputes from scratch.
func (a *Analyzer) Analyze(txs []Transaction, now time.Time) []monitor.Finding {
	var findings []monitor.Finding
	for _, rule := range a.rules {
		groups := GroupBy(txs, rule.Kind)
		findings = append(findings, FlagAnomalies(groups, rule, now)...)
	}

	return findings
}
