package monitor

import (
	"codeberg.org/mutker/roadwatch/internal/logger"
)

// SkipFunc is notified when a rule is skipped because its sample field is
// missing. Used for counting malformed samples.
type SkipFunc func(detectorID, subtype, field string)

// RuleDetector evaluates a table of subtype rules against each sample.
// Not safe for concurrent use; each detector instance belongs to exactly
// one sampling loop.
type RuleDetector struct {
	id     string
	rules  []SubtypeRule
	streak map[string]int
	onSkip SkipFunc
}

// Option configures a RuleDetector.
type Option func(*RuleDetector)

// WithSkipFunc installs a callback for skipped rule evaluations.
func WithSkipFunc(fn SkipFunc) Option {
	return func(d *RuleDetector) {
		d.onSkip = fn
	}
}

// NewDetector builds a rule-table detector.
func NewDetector(id string, rules []SubtypeRule, opts ...Option) *RuleDetector {
	d := &RuleDetector{
		id:     id,
		rules:  rules,
		streak: make(map[string]int, len(rules)),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *RuleDetector) ID() string {
	return d.id
}

// Rules exposes the detector's rule table.
func (d *RuleDetector) Rules() []SubtypeRule {
	return d.rules
}

// Evaluate runs every enabled rule against the sample. Missing fields and
// unconfigured thresholds fail soft: the rule contributes nothing this
// tick. Disabled subtypes never evaluate.
func (d *RuleDetector) Evaluate(sample *Sample, cfg *Thresholds) []Finding {
	if sample == nil || cfg == nil || !cfg.Enabled {
		return nil
	}

	var findings []Finding
	for i := range d.rules {
		rule := &d.rules[i]
		if !cfg.SubtypeEnabled(rule.Subtype) {
			d.streak[rule.Subtype] = 0
			continue
		}

		measured, ok := sample.Values[rule.Field]
		if !ok {
			d.skip(rule)
			continue
		}

		threshold, ok := cfg.Effective(rule.ThresholdKey, rule.Direction)
		if !ok {
			d.skip(rule)
			continue
		}

		if !exceeds(measured, threshold, rule.Direction) {
			d.streak[rule.Subtype] = 0
			continue
		}

		d.streak[rule.Subtype]++
		if d.streak[rule.Subtype] < rule.MinConsecutive {
			continue
		}

		findings = append(findings, Finding{
			DetectorID: d.id,
			Subtype:    rule.Subtype,
			Title:      rule.Title,
			Measured:   measured,
			Threshold:  threshold,
			Direction:  rule.Direction,
			Timestamp:  sample.Timestamp,
		})
	}

	return findings
}

func (d *RuleDetector) skip(rule *SubtypeRule) {
	logger.Debug().
		Str("detector", d.id).
		Str("subtype", rule.Subtype).
		Str("field", rule.Field).
		Msg("Skipping rule: sample field or threshold missing")

	if d.onSkip != nil {
		d.onSkip(d.id, rule.Subtype, rule.Field)
	}
}

func exceeds(measured, threshold float64, dir Direction) bool {
	if dir == DirectionBelow {
		return measured < threshold
	}

	return measured > threshold
}
