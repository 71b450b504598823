package damage

// Amounts carries the three independently tracked magnitudes of a strike.
type Amounts struct {
	Damage float64 `json:"damage"`
	Pain   float64 `json:"pain"`
	Stun   float64 `json:"stun"`
}

// Zero reports whether every component is <= 0.
func (a Amounts) Zero() bool {
	return a.Damage <= 0 && a.Pain <= 0 && a.Stun <= 0
}

// floor clamps every component to >= 0.
func (a Amounts) floor() Amounts {
	if a.Damage < 0 {
		a.Damage = 0
	}
	if a.Pain < 0 {
		a.Pain = 0
	}
	if a.Stun < 0 {
		a.Stun = 0
	}
	return a
}

// Add returns the component-wise sum.
func (a Amounts) Add(b Amounts) Amounts {
	return Amounts{Damage: a.Damage + b.Damage, Pain: a.Pain + b.Pain, Stun: a.Stun + b.Stun}
}

// Event is one strike travelling through the layer stack. It is created when
// a move connects and rewritten by each layer it passes.
type Event struct {
	Type        Type
	Amounts     Amounts
	Severity    Severity
	Angle       float64 // incidence angle in radians; 0 is perpendicular
	Penetration int     // penetration degree derived from the attack outcome
}

// NewEvent returns an Event whose Severity is derived from amounts.Damage.
func NewEvent(t Type, amounts Amounts, angle float64, penetration int) Event {
	return Event{
		Type:        t,
		Amounts:     amounts,
		Severity:    SeverityFor(amounts.Damage),
		Angle:       angle,
		Penetration: penetration,
	}
}
