package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide logged percentile checks.
// All rolls are logged at debug level with roll, bonus, target, and margin.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	if src == nil || logger == nil {
		panic("dice: NewLoggedRoller requires non-nil src and logger")
	}
	return &Roller{src: src, logger: logger}
}

// Source returns the underlying randomness handle.
func (r *Roller) Source() Source { return r.src }

// Percentile rolls 1d100, adds bonus, and compares against target.
//
// Postcondition: result.Roll is in [1, 100].
func (r *Roller) Percentile(label string, bonus, target float64) Percentile {
	p := Percentile{Roll: r.src.Intn(100) + 1, Bonus: bonus, Target: target}
	r.logger.Debug("check roll",
		zap.String("check", label),
		zap.Int("roll", p.Roll),
		zap.Float64("bonus", p.Bonus),
		zap.Float64("target", p.Target),
		zap.Float64("margin", p.Margin()),
	)
	return p
}

// Range returns a uniform float in [lo, hi). When hi <= lo, lo is returned.
func (r *Roller) Range(lo, hi float64) float64 {
	return Uniform(r.src, lo, hi)
}

// Uniform draws a float in [lo, hi) from src. When hi <= lo, lo is returned.
func Uniform(src Source, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + src.Float64()*(hi-lo)
}

// WeightedIndex returns an index into weights chosen proportionally to each
// weight. Non-positive weights are never chosen.
//
// Postcondition: returns -1 iff no weight is positive.
func WeightedIndex(src Source, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	roll := src.Float64() * total
	cumulative := 0.0
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cumulative += w
		last = i
		if roll < cumulative {
			return i
		}
	}
	return last
}
