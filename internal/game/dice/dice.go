// Package dice provides the randomness handle threaded through every combat
// resolution. No package in the engine reads process-wide random state; every
// draw goes through a Source passed in by the caller.
package dice

import "fmt"

// Source is the randomness provider for checks and formula primitives.
//
// Implementations returned by this package are safe for concurrent use, but
// reproducible resolution requires one Source per resolution.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a random float in [0.0, 1.0).
	Float64() float64
}

// Percentile holds the audit trail of one d100 check roll.
//
// Postcondition: Margin() == Roll + Bonus - Target.
type Percentile struct {
	Roll   int     // natural d100 result in [1, 100]
	Bonus  float64 // skill added to the roll
	Target float64 // effective difficulty the roll is compared against
}

// Total returns the roll plus bonus.
func (p Percentile) Total() float64 {
	return float64(p.Roll) + p.Bonus
}

// Margin returns the signed difference between Total and Target.
//
// Postcondition: positive values are successes, zero is a tie.
func (p Percentile) Margin() float64 {
	return p.Total() - p.Target
}

// String returns an audit string in the format:
//
//	"d100 57 +45.0 vs 100.0 = +2.0"
func (p Percentile) String() string {
	return fmt.Sprintf("d100 %d %+.1f vs %.1f = %+.1f", p.Roll, p.Bonus, p.Target, p.Margin())
}
