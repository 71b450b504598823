package ranged

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/melee/internal/game/dice"
	"github.com/cory-johannsen/melee/internal/game/formula"
	"github.com/cory-johannsen/melee/internal/game/move"
)

// Ballistic records how the profile's formulas adjusted one shot.
type Ballistic struct {
	Range       float64 `json:"range"`
	Aim         float64 `json:"aim"`
	PointBlank  bool    `json:"pointblank"`
	Accuracy    float64 `json:"accuracy"`
	DamageBonus float64 `json:"damage_bonus"`
}

func (b Ballistic) vars(degree float64) formula.Vars {
	pb := 0.0
	if b.PointBlank {
		pb = 1
	}
	return formula.Vars{"range": b.Range, "aim": b.Aim, "pointblank": pb, "degree": degree}
}

// ResolveShot rolls a shot with atk. The profile's accuracy formula, bound
// to the attacker's raw margin, shifts that margin before the defender's
// best legal defense is chosen, so accuracy can turn a miss into a hit the
// defender still gets to answer. The damage bonus is then evaluated with the
// final degree.
//
// Precondition: r, p, atk and logger must be non-nil.
// Postcondition: formula faults are substituted with 0 and logged.
func ResolveShot(r *dice.Roller, p *Profile, atk *move.Attack, skill float64, defenses []move.DefenseOption, mods move.Modifiers, rng, aim float64, logger *zap.Logger) (move.AttackCheck, Ballistic) {
	b := Ballistic{Range: rng, Aim: clampAim(aim), PointBlank: rng <= 0}
	chk := move.ResolveShiftedAttack(r, atk, skill, defenses, mods, func(margin float64) float64 {
		b.Accuracy = formula.Safe(p.Accuracy, b.vars(margin), r.Source(), 0, logger)
		return b.Accuracy
	})
	b.DamageBonus = formula.Safe(p.DamageBonus, b.vars(chk.Degree), r.Source(), 0, logger)
	return chk, b
}

// InRange reports whether a target at rng is reachable. A zero MaxRange is
// unlimited.
func (p *Profile) InRange(rng float64) bool {
	return p.MaxRange <= 0 || rng <= p.MaxRange
}
