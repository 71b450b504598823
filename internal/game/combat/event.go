package combat

import (
	"context"

	"github.com/google/uuid"

	"github.com/cory-johannsen/melee/internal/game/damage"
	"github.com/cory-johannsen/melee/internal/game/grapple"
	"github.com/cory-johannsen/melee/internal/game/move"
	"github.com/cory-johannsen/melee/internal/game/ranged"
)

// Kind classifies an EventRecord.
type Kind string

const (
	// KindStrike is a melee or ranged attack that reached the check.
	KindStrike Kind = "strike"
	// KindGrapple is an attempted grapple transition.
	KindGrapple Kind = "grapple"
	// KindOperate is a ranged weapon stage: load, ready, aim or unload.
	KindOperate Kind = "operate"
	// KindClick is a trigger pulled on an empty weapon: no round, no bang.
	KindClick Kind = "click"
	// KindForfeit is a tick the actor lost for want of a legal move.
	KindForfeit Kind = "forfeit"
	// KindRecovering is a tick the actor spent recovering from its last move.
	KindRecovering Kind = "recovering"
	// KindRise is a prone actor's attempt to stand.
	KindRise Kind = "rise"
)

// Effect names a secondary effect.
type Effect string

const (
	EffectProne        Effect = "prone"
	EffectBalanced     Effect = "balanced"
	EffectDisarm       Effect = "disarm"
	EffectLimbDisabled Effect = "limb_disabled"
	EffectStun         Effect = "stun"
	EffectStagger      Effect = "stagger"
	EffectStood        Effect = "stood"
)

// EffectRecord is one secondary effect triggered by a move.
type EffectRecord struct {
	Effect Effect      `json:"effect"`
	Target string      `json:"target"`
	Detail string      `json:"detail,omitempty"`
	Check  *move.Check `json:"check,omitempty"`
	// Stun carries the stun-only pipeline pass.
	Stun *damage.Result `json:"stun,omitempty"`
}

// EventRecord is the structured account of one resolved tick for one actor.
// A presentation layer renders it; the engine never formats prose.
type EventRecord struct {
	ID       uuid.UUID     `json:"id"`
	Tick     int64         `json:"tick"`
	Kind     Kind          `json:"kind"`
	Actor    string        `json:"actor"`
	Target   string        `json:"target"`
	Move     string        `json:"move,omitempty"`
	MoveType move.MoveType `json:"move_type"`
	// Phase is the phase the check resolved into, ResolvedHit or ResolvedMiss.
	Phase     Phase             `json:"phase,omitempty"`
	Override  bool              `json:"override,omitempty"`
	Check     *move.AttackCheck `json:"check,omitempty"`
	Grapple   *grapple.Result   `json:"grapple,omitempty"`
	Shot      *ranged.Shot      `json:"shot,omitempty"`
	Ballistic *ranged.Ballistic `json:"ballistic,omitempty"`

	Location   string         `json:"location,omitempty"`
	DamageType damage.Type    `json:"damage_type"`
	Raw        damage.Amounts `json:"raw"`
	Damage     *damage.Result `json:"damage,omitempty"`

	Effects  []EffectRecord `json:"effects,omitempty"`
	Recovery int            `json:"recovery"`
	Error    string         `json:"error,omitempty"`
}

// Hit reports whether the move connected.
func (r EventRecord) Hit() bool { return r.Phase == ResolvedHit }

// Terminal returns the damage that reached the struck location.
func (r EventRecord) Terminal() damage.Amounts {
	if r.Damage == nil {
		return damage.Amounts{}
	}
	return r.Damage.Terminal
}

// EventSink receives every EventRecord the engine produces.
type EventSink interface {
	Publish(ctx context.Context, rec EventRecord) error
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(ctx context.Context, rec EventRecord) error

// Publish calls f.
func (f SinkFunc) Publish(ctx context.Context, rec EventRecord) error { return f(ctx, rec) }

func newRecord(tick int64, kind Kind, actor, target string) EventRecord {
	return EventRecord{ID: uuid.New(), Tick: tick, Kind: kind, Actor: actor, Target: target}
}
