package move

import "fmt"

// Outcome is the ordered result band of a check.
type Outcome int

const (
	MajorFail Outcome = iota
	Fail
	Marginal
	Pass
	MajorPass
)

// Band edges on the signed margin.
const (
	MajorFailMargin = -40.0 // margin <= this is MajorFail
	PassMargin      = 15.0  // margin >= this is at least Pass
	MajorPassMargin = 40.0  // margin >= this is MajorPass
)

// String returns a readable outcome label.
func (o Outcome) String() string {
	switch o {
	case MajorFail:
		return "major fail"
	case Fail:
		return "fail"
	case Marginal:
		return "marginal"
	case Pass:
		return "pass"
	case MajorPass:
		return "major pass"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Success reports whether o is Marginal or better.
func (o Outcome) Success() bool { return o >= Marginal }

// OutcomeFor maps a signed margin onto an Outcome band.
//
// Postcondition: monotonically non-decreasing in margin.
func OutcomeFor(margin float64) Outcome {
	switch {
	case margin <= MajorFailMargin:
		return MajorFail
	case margin < 0:
		return Fail
	case margin < PassMargin:
		return Marginal
	case margin < MajorPassMargin:
		return Pass
	default:
		return MajorPass
	}
}
