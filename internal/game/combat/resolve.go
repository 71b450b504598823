package combat

import (
	"context"
	"errors"

	"github.com/cory-johannsen/melee/internal/game/ai"
	"github.com/cory-johannsen/melee/internal/game/damage"
	"github.com/cory-johannsen/melee/internal/game/dice"
	"github.com/cory-johannsen/melee/internal/game/formula"
	"github.com/cory-johannsen/melee/internal/game/grapple"
	"github.com/cory-johannsen/melee/internal/game/move"
	"github.com/cory-johannsen/melee/internal/game/ranged"
)

// Skill names consulted by defenses and secondary effects.
const (
	SkillDodge   = "dodge"
	SkillParry   = "parry"
	SkillBlock   = "block"
	SkillBalance = "balance"
)

// ShieldClass is the weapon class that enables blocking.
const ShieldClass = "shield"

// unarmoured is struck when the target defines no body locations.
var unarmoured = &Location{ID: "body", Weight: 1}

// resolution carries one move from Checking to its resolved phase. Both
// actors' locks are held for its lifetime.
type resolution struct {
	engine *Engine
	ctx    context.Context
	rec    *EventRecord
	actor  *Actor
	opp    *Actor
	atk    *move.Attack
	sit    *ai.Situation
	roller *dice.Roller
	tick   int64
}

// run resolves the move and reports whether it connected.
func (r *resolution) run() bool {
	if tr, ok := grapple.TransitionFor(r.atk.Type); ok {
		return r.hold(tr)
	}
	if r.atk.Type.IsRanged() {
		return r.operate()
	}
	if r.atk.Type == move.Rise {
		return r.rise()
	}
	return r.melee()
}

// rise rolls the actor's balance to stand up, harder while staggered or
// held. Success clears prone.
func (r *resolution) rise() bool {
	r.rec.Kind = KindRise
	var mods move.Modifiers
	if r.actor.staggered(r.tick) {
		mods.Steps++
	}
	if r.sit.Held() {
		mods.Steps++
	}
	c := move.ResolveCheck(r.roller, "rise", r.actor.Skill(SkillBalance), move.UnopposedSkill, r.atk.AttackerDifficulty, mods)
	chk := move.AttackCheck{Attack: c, Degree: c.Margin, Outcome: c.Outcome, Hit: c.Outcome.Success()}
	r.rec.Check = &chk
	if !chk.Hit {
		return false
	}
	r.actor.prone = false
	r.effect(EffectRecord{Effect: EffectStood, Target: r.actor.ID, Check: &c})
	return true
}

func (r *resolution) melee() bool {
	chk := move.ResolveAttack(r.roller, r.atk, r.actor.Skill(r.atk.Skill), r.defenses(false), r.modifiers())
	r.rec.Check = &chk
	if !chk.Hit {
		return false
	}
	raw, loc := r.strike(chk, 0, nil)
	r.effects(chk, raw, loc)
	return true
}

// modifiers stages the attacker's check for both actors' positions.
func (r *resolution) modifiers() move.Modifiers {
	var m move.Modifiers
	if r.actor.staggered(r.tick) {
		m.Steps++
	}
	if r.actor.prone {
		m.Steps++
	}
	if r.opp.prone {
		m.Steps--
	}
	return m
}

// defenses lists the defenses the opponent's strategy and equipment allow.
// A staggered opponent has none. Missiles cannot be parried.
func (r *resolution) defenses(missile bool) []move.DefenseOption {
	opp := r.opp
	if opp.staggered(r.tick) {
		return nil
	}
	p := opp.Strategy
	held := r.sit.Engaged() && r.sit.Grappler && r.sit.Grapple.Depth() >= grapple.Grappled.Depth()
	var out []move.DefenseOption
	if p.AllowsDefense(move.DefenseDodge) && !opp.prone && !held {
		out = append(out, move.DefenseOption{Kind: move.DefenseDodge, Skill: opp.Skill(SkillDodge)})
	}
	if !missile && p.AllowsDefense(move.DefenseParry) && len(opp.weapons) > 0 && opp.handFree(move.HandMain) {
		out = append(out, move.DefenseOption{Kind: move.DefenseParry, Skill: opp.Skill(SkillParry)})
	}
	if _, shield := opp.weapons[ShieldClass]; shield && p.AllowsDefense(move.DefenseBlock) && opp.handFree(move.HandOff) {
		out = append(out, move.DefenseOption{Kind: move.DefenseBlock, Skill: opp.Skill(SkillBlock)})
	}
	return out
}

// bindings returns the damage formula context for the attacker.
func (r *resolution) bindings(chk move.AttackCheck) formula.Vars {
	a := r.actor
	vars := formula.Vars{
		"degree":   chk.Degree,
		"outcome":  float64(chk.Outcome),
		"skill":    a.Skill(r.atk.Skill),
		"strength": a.Strength,
		"stamina":  a.stamina,
		"weight":   r.atk.Weight,
	}
	for id, v := range a.Traits {
		vars[formula.TraitKey("trait", id)] = v
	}
	return vars
}

// damageType returns the kind the move strikes with. Training moves never
// strike with a lethal kind.
func damageType(atk *move.Attack) damage.Type {
	if atk.IsTraining() && atk.DamageType.Lethal() {
		return damage.NonLethalFallback
	}
	return atk.DamageType
}

// strike evaluates the move's damage formulas, picks a location when loc is
// nil, and runs the strike through the target's layer stack.
func (r *resolution) strike(chk move.AttackCheck, bonus float64, loc *Location) (damage.Amounts, *Location) {
	e := r.engine
	src := r.roller.Source()
	vars := r.bindings(chk)
	raw := damage.Amounts{
		Damage: formula.Safe(r.atk.Damage, vars, src, 0, e.logger) + bonus,
		Pain:   formula.Safe(r.atk.Pain, vars, src, 0, e.logger),
		Stun:   formula.Safe(r.atk.Stun, vars, src, 0, e.logger),
	}
	raw = damage.Amounts{Damage: max(0, raw.Damage), Pain: max(0, raw.Pain), Stun: max(0, raw.Stun)}
	if loc == nil {
		loc = pickLocation(r.opp, r.atk, src)
	}
	t := damageType(r.atk)
	ev := damage.NewEvent(t, raw, r.atk.Angle, r.atk.Penetration+penetrationBonus(chk.Outcome))
	res := e.pipeline.Resolve(ev, r.opp.layersFor(loc), r.opp.Quality, src)

	r.rec.Location = loc.ID
	r.rec.DamageType = t
	r.rec.Raw = raw
	r.rec.Damage = &res
	r.apply(loc, res)
	return raw, loc
}

func (r *resolution) apply(loc *Location, res damage.Result) {
	for _, lo := range res.Layers {
		if lo.Wear > 0 {
			r.opp.wear[lo.LayerID] += lo.Wear
		}
	}
	if !res.Terminal.Zero() {
		r.opp.wound(Wound{Location: loc.ID, Type: res.FinalType, Amounts: res.Terminal, Tick: r.tick})
	}
}

// penetrationBonus converts a connecting outcome into extra penetration
// degrees: none at Marginal, one at Pass, two at MajorPass.
func penetrationBonus(o move.Outcome) int {
	return max(0, int(o-move.Marginal))
}

// pickLocation draws a location by weight among those the move's geometry
// can reach, falling back to every location when none match.
func pickLocation(target *Actor, atk *move.Attack, src dice.Source) *Location {
	if len(target.Locations) == 0 {
		return unarmoured
	}
	var cands []*Location
	for _, loc := range target.Locations {
		if atk.Alignment.Matches(loc.Alignment) && atk.Orientation.Matches(loc.Orientation) {
			cands = append(cands, loc)
		}
	}
	if len(cands) == 0 {
		cands = target.Locations
	}
	return pickWeighted(cands, src)
}

func pickWeighted(cands []*Location, src dice.Source) *Location {
	weights := make([]float64, len(cands))
	for i, loc := range cands {
		weights[i] = loc.Weight
	}
	if i := dice.WeightedIndex(src, weights); i >= 0 {
		return cands[i]
	}
	return cands[0]
}

// pickLimb draws the limb an extending hold locks; "" when the target has
// no working limb.
func pickLimb(target *Actor, src dice.Source) string {
	var limbs []*Location
	for _, loc := range target.Locations {
		if _, out := target.incapacitated[loc.ID]; loc.Limb && !out {
			limbs = append(limbs, loc)
		}
	}
	if len(limbs) == 0 {
		return ""
	}
	return pickWeighted(limbs, src).ID
}

// effects applies the secondary effects tagged by the move's intentions and
// type after a hit.
func (r *resolution) effects(chk move.AttackCheck, raw damage.Amounts, loc *Location) {
	atk, opp := r.atk, r.opp
	if atk.Intentions.Any(move.IntentTrip|move.IntentHinder) || atk.Type == move.Sweep || atk.Type == move.Unbalancing {
		r.balance(chk)
	}
	if atk.Intentions.Has(move.IntentDisarm) && chk.Outcome >= move.Pass {
		if class, ok := opp.drop(); ok {
			r.effect(EffectRecord{Effect: EffectDisarm, Target: opp.ID, Detail: class})
		}
	}
	if atk.Intentions.Has(move.IntentWrench) && loc.Limb {
		r.disable(loc.ID)
	}
	if atk.Intentions.Has(move.IntentStun) && raw.Stun > 0 {
		src := r.roller.Source()
		ev := damage.NewEvent(damageType(atk), damage.Amounts{Stun: raw.Stun}, atk.Angle, atk.Penetration+penetrationBonus(chk.Outcome))
		res := r.engine.pipeline.Resolve(ev, opp.layersFor(loc), opp.Quality, src)
		r.apply(loc, res)
		r.effect(EffectRecord{Effect: EffectStun, Target: opp.ID, Detail: loc.ID, Stun: &res})
	}
	if atk.Intentions.Has(move.IntentStagger) || atk.Type == move.Staggering {
		until := r.tick + 2
		if chk.Outcome == move.MajorPass {
			until++
		}
		opp.staggeredUntil = max(opp.staggeredUntil, until)
		r.effect(EffectRecord{Effect: EffectStagger, Target: opp.ID})
	}
}

// balance rolls the opponent's balance against a difficulty staged up by
// the hit's outcome and by being held. Failure knocks the opponent prone.
func (r *resolution) balance(chk move.AttackCheck) {
	opp := r.opp
	if opp.prone {
		return
	}
	mods := move.Modifiers{Steps: int(chk.Outcome - move.Marginal)}
	if r.sit.Engaged() && r.sit.Grappler {
		mods.Steps++
	}
	c := move.ResolveCheck(r.roller, "balance", opp.Skill(SkillBalance), move.UnopposedSkill, move.Normal, mods)
	if c.Outcome.Success() {
		r.effect(EffectRecord{Effect: EffectBalanced, Target: opp.ID, Check: &c})
		return
	}
	opp.prone = true
	r.effect(EffectRecord{Effect: EffectProne, Target: opp.ID, Check: &c})
}

func (r *resolution) disable(limb string) {
	if limb == "" {
		return
	}
	r.opp.incapacitated[limb] = struct{}{}
	r.effect(EffectRecord{Effect: EffectLimbDisabled, Target: r.opp.ID, Detail: limb})
}

func (r *resolution) effect(er EffectRecord) {
	r.rec.Effects = append(r.rec.Effects, er)
}

// hold attempts the grapple transition tr. Strangles and wrenches that succeed
// also strike; a wrench disables the locked limb.
func (r *resolution) hold(tr grapple.Transition) bool {
	e := r.engine
	r.rec.Kind = KindGrapple
	req := grapple.Request{
		Actor:          r.actor.ID,
		Opponent:       r.opp.ID,
		Transition:     tr,
		ActorSkills:    r.actor.Skill,
		OpponentSkills: r.opp.Skill,
		Modifiers:      r.modifiers(),
	}
	if tr == grapple.Extend && r.sit.Grapple == grapple.Grappled {
		req.Limb = pickLimb(r.opp, r.roller.Source())
	}
	res, err := e.grapples.Attempt(r.ctx, r.roller, req)
	if err != nil {
		r.rec.Error = err.Error()
		return false
	}
	r.rec.Grapple = &res
	chk := move.AttackCheck{Attack: res.Check, Degree: res.Check.Margin, Outcome: res.Check.Outcome, Hit: res.Success}
	r.rec.Check = &chk
	if !res.Success {
		return false
	}
	switch tr {
	case grapple.Wrench:
		var loc *Location
		if m, ok := e.grapples.Get(r.actor.ID, r.opp.ID); ok {
			loc = r.opp.location(m.Limb())
			r.disable(m.Limb())
		}
		if r.atk.Damage != nil {
			r.strike(chk, 0, loc)
		}
	case grapple.Strangle:
		if r.atk.Damage != nil {
			r.strike(chk, 0, nil)
		}
	}
	return true
}

// operate works the actor's ranged weapon. Only a fire that discharges a
// round rolls an attack.
func (r *resolution) operate() bool {
	w := r.actor.weapon
	if w == nil || w.Profile().ID != r.atk.Ranged {
		r.rec.Kind = KindOperate
		r.rec.Error = "no matching ranged weapon"
		return false
	}
	var err error
	switch r.atk.Type {
	case move.RangedFire:
		return r.fire()
	case move.RangedLoad:
		err = w.Load(r.ctx, r.tick, r.actor)
	case move.RangedReady:
		err = w.Ready(r.ctx, r.tick, r.actor)
	case move.RangedAim:
		err = w.TakeAim(r.tick)
	case move.RangedUnload:
		err = w.Unload(r.ctx, r.tick)
	default:
		err = errors.New("unsupported ranged move")
	}
	r.rec.Kind = KindOperate
	if err != nil {
		r.rec.Error = err.Error()
		return false
	}
	return true
}

func (r *resolution) fire() bool {
	e := r.engine
	w := r.actor.weapon
	shot, err := w.Fire(r.ctx, r.tick, r.actor)
	if err != nil {
		r.rec.Error = err.Error()
		return false
	}
	r.rec.Shot = &shot
	if shot.Click {
		r.rec.Kind = KindClick
		return false
	}
	p := w.Profile()
	skill := r.atk.Skill
	if skill == "" {
		skill = p.FireSkill
	}
	chk, b := ranged.ResolveShot(r.roller, p, r.atk, r.actor.Skill(skill), r.defenses(true), r.modifiers(), r.sit.Range, shot.Aim, e.logger)
	r.rec.Check = &chk
	r.rec.Ballistic = &b
	if !chk.Hit {
		return false
	}
	raw, loc := r.strike(chk, b.DamageBonus, nil)
	r.effects(chk, raw, loc)
	return true
}
