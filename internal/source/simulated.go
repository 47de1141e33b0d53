package source

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"codeberg.org/mutker/roadwatch/internal/monitor"
)

// Simulated produces randomized samples for one detector, loosely modeled
// on real sensor ranges with occasional unsafe excursions. Demo and
// soak-test source; tests use Scripted instead.
type Simulated struct {
	detectorID string
	mu         sync.Mutex
	rng        *rand.Rand
	now        func() time.Time
}

// NewSimulated builds a simulated source for the given detector. A zero
// seed derives one from the clock.
func NewSimulated(detectorID string, seed int64) *Simulated {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Simulated{
		detectorID: detectorID,
		rng:        rand.New(rand.NewSource(seed)),
		now:        time.Now,
	}
}

func (s *Simulated) Next(_ context.Context) (*monitor.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &monitor.Sample{
		DetectorID: s.detectorID,
		Timestamp:  s.now(),
		Values:     s.values(),
	}, nil
}

func (s *Simulated) values() map[string]float64 {
	switch s.detectorID {
	case monitor.DetectorCollision:
		return map[string]float64{
			monitor.FieldForwardDistance:    s.between(10, 120),
			monitor.FieldLaneDriftRatio:     s.between(0, 0.9),
			monitor.FieldHeadway:            s.between(0.5, 4),
			monitor.FieldPedestrianDistance: s.between(5, 60),
		}
	case monitor.DetectorFatigue:
		return map[string]float64{
			monitor.FieldBlinkRate:       s.between(8, 35),
			monitor.FieldYawnCount:       float64(s.rng.Intn(7)),
			monitor.FieldEyesClosedRatio: s.between(0, 0.5),
		}
	case monitor.DetectorDistraction:
		return map[string]float64{
			monitor.FieldEyesOffRoadRatio: s.between(0, 0.7),
			monitor.FieldPhoneUsageConf:   s.between(0, 1),
			monitor.FieldEatingConf:       s.between(0, 1),
			monitor.FieldSmokingConf:      s.between(0, 1),
			monitor.FieldReachingConf:     s.between(0, 1),
		}
	case monitor.DetectorBehavior:
		return map[string]float64{
			monitor.FieldSpeedOverLimit: s.between(-20, 30),
			monitor.FieldDeceleration:   s.between(0, 5),
			monitor.FieldAcceleration:   s.between(0, 4.5),
			monitor.FieldLateralAccel:   s.between(0, 4.5),
			monitor.FieldIdleDuration:   s.between(0, 20),
		}
	default:
		return map[string]float64{}
	}
}

func (s *Simulated) between(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}
