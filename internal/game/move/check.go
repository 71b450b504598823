package move

import (
	"github.com/cory-johannsen/melee/internal/game/dice"
)

// UnopposedSkill is the defender skill used when a check has no opponent.
const UnopposedSkill = 50.0

// Modifiers are situational adjustments to a check: range, positioning,
// stance.
type Modifiers struct {
	// Steps moves the difficulty along the ladder; positive is harder.
	Steps int
	// Flat is added to the effective target after staging.
	Flat float64
}

// Add returns the sum of m and o.
func (m Modifiers) Add(o Modifiers) Modifiers {
	return Modifiers{Steps: m.Steps + o.Steps, Flat: m.Flat + o.Flat}
}

// Check is the audit trail of one resolved check.
type Check struct {
	Label      string          `json:"label"`
	Difficulty Difficulty      `json:"difficulty"`
	Roll       dice.Percentile `json:"roll"`
	Margin     float64         `json:"margin"`
	Outcome    Outcome         `json:"outcome"`
}

// ResolveCheck rolls an opposed percentile check.
//
// The margin is (attackerSkill + d100) - (Target(staged difficulty) +
// defenderSkill + mods.Flat). An Automatic check never resolves below Pass;
// an Impossible check always resolves to MajorFail.
//
// Precondition: r must be non-nil.
// Postcondition: result.Outcome == OutcomeFor(result.Margin) except at the
// Automatic and Impossible extremes.
func ResolveCheck(r *dice.Roller, label string, attackerSkill, defenderSkill float64, base Difficulty, mods Modifiers) Check {
	d := base.Stage(mods.Steps)
	target := d.Target() + defenderSkill + mods.Flat
	roll := r.Percentile(label, attackerSkill, target)
	c := Check{Label: label, Difficulty: d, Roll: roll, Margin: roll.Margin()}
	switch d {
	case Automatic:
		if c.Margin < PassMargin {
			c.Margin = PassMargin
		}
	case Impossible:
		if c.Margin > MajorFailMargin {
			c.Margin = MajorFailMargin
		}
	}
	c.Outcome = OutcomeFor(c.Margin)
	return c
}

// DefenseKind names the three active defenses.
type DefenseKind int

const (
	DefenseNone DefenseKind = iota
	DefenseDodge
	DefenseParry
	DefenseBlock
)

func (k DefenseKind) String() string {
	switch k {
	case DefenseDodge:
		return "dodge"
	case DefenseParry:
		return "parry"
	case DefenseBlock:
		return "block"
	default:
		return "none"
	}
}

// DefenseOption is one defense the defender may legally attempt, with the
// skill it would use.
type DefenseOption struct {
	Kind  DefenseKind
	Skill float64
}

// AttackCheck is the resolution of an attack against the defender's best
// available defense.
type AttackCheck struct {
	Attack      Check       `json:"attack"`
	Defense     *Check      `json:"defense,omitempty"`
	DefenseKind DefenseKind `json:"defense_kind"`
	// Degree is the attacker's margin after any defense discount. It is the
	// value bound to "degree" in damage formulas.
	Degree  float64 `json:"degree"`
	Outcome Outcome `json:"outcome"`
	Hit     bool    `json:"hit"`
	// Defended is set when the attack succeeded but the defense beat it.
	Defended bool `json:"defended,omitempty"`
}

// ResolveAttack rolls atk's attacker check and, if it succeeds, the best of
// the defender's legal defenses.
//
// An attack whose own check is below Marginal misses outright. The defender
// turns a successful attack into a miss only with a strictly better outcome;
// otherwise the hit's degree is discounted by the defense's positive margin
// and never drops below Marginal. With no legal defense the attacker's raw
// outcome stands.
//
// Precondition: r and atk must be non-nil.
func ResolveAttack(r *dice.Roller, atk *Attack, attackerSkill float64, defenses []DefenseOption, mods Modifiers) AttackCheck {
	return ResolveShiftedAttack(r, atk, attackerSkill, defenses, mods, nil)
}

// ResolveShiftedAttack is ResolveAttack with the attacker's margin moved by
// shift(margin) before success is judged and before any defense is chosen.
// A nil shift leaves the margin alone, and an Impossible attack is never
// shifted. The Attack audit keeps the unshifted roll.
//
// Precondition: r and atk must be non-nil.
func ResolveShiftedAttack(r *dice.Roller, atk *Attack, attackerSkill float64, defenses []DefenseOption, mods Modifiers, shift func(margin float64) float64) AttackCheck {
	att := ResolveCheck(r, "attack:"+atk.ID, attackerSkill, UnopposedSkill, atk.AttackerDifficulty, mods)
	margin, outcome := att.Margin, att.Outcome
	if shift != nil && att.Difficulty != Impossible {
		if delta := shift(att.Margin); delta != 0 {
			margin += delta
			outcome = OutcomeFor(margin)
		}
	}
	res := AttackCheck{Attack: att, Degree: margin, Outcome: outcome}
	if !outcome.Success() {
		return res
	}
	res.Hit = true

	opt, ok := BestDefense(atk, defenses)
	if !ok {
		return res
	}
	def := ResolveCheck(r, "defense:"+opt.Kind.String(), opt.Skill, UnopposedSkill, atk.DefenseDifficulty(opt.Kind), Modifiers{})
	res.Defense = &def
	res.DefenseKind = opt.Kind
	if def.Outcome > outcome {
		res.Hit = false
		res.Defended = true
		res.Outcome = Fail
		res.Degree = margin - def.Margin
		return res
	}
	res.Degree = margin - max(0, def.Margin)
	res.Outcome = max(Marginal, OutcomeFor(res.Degree))
	return res
}

// BestDefense returns the option with the greatest expected margin against
// atk. Defenses the move makes Impossible are skipped. Ties keep the earlier
// option.
func BestDefense(atk *Attack, defenses []DefenseOption) (DefenseOption, bool) {
	var best DefenseOption
	found := false
	bestScore := 0.0
	for _, opt := range defenses {
		d := atk.DefenseDifficulty(opt.Kind)
		if opt.Kind == DefenseNone || d == Impossible {
			continue
		}
		score := opt.Skill - d.Target()
		if !found || score > bestScore {
			best, bestScore, found = opt, score, true
		}
	}
	return best, found
}

// RecoveryTicks returns how many ticks the actor must wait after resolving
// atk with outcome o: the move's delay plus the ticks implied by the
// recovery difficulty for a success or a failure.
//
// Postcondition: returns >= 0.
func RecoveryTicks(atk *Attack, o Outcome) int {
	d := atk.RecoveryFailure
	if o.Success() {
		d = atk.RecoverySuccess
	}
	return atk.Delay + recoveryTicks(d)
}

// recoveryTicks maps a recovery difficulty to ticks: every two steps above
// Automatic costs one tick.
func recoveryTicks(d Difficulty) int {
	return int(d.Stage(0)+1) / 2
}
