package scripting

import (
	"math"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/melee/internal/game/damage"
	"github.com/cory-johannsen/melee/internal/game/dice"
)

// WearScope is the script scope wear hooks are resolved in.
const WearScope = "wear"

// WearHook is the Lua global called by LuaWearPolicy.
const WearHook = "wear"

// LuaWearPolicy is a damage.WearPolicy computed by the Lua function
//
//	wear(layer_id, damage_type, damage, pain, stun, quality) -> number
//
// in WearScope. The hook's engine.dice draws from the strike's source. When
// the hook is undefined, fails, or returns a non-number, Fallback decides.
type LuaWearPolicy struct {
	Caller   *Manager
	Fallback damage.WearPolicy
	Logger   *zap.Logger
}

// NewLuaWearPolicy returns a LuaWearPolicy.
//
// Precondition: caller, fallback and logger must be non-nil.
func NewLuaWearPolicy(caller *Manager, fallback damage.WearPolicy, logger *zap.Logger) *LuaWearPolicy {
	if caller == nil || fallback == nil || logger == nil {
		panic("scripting.NewLuaWearPolicy: caller, fallback and logger must not be nil")
	}
	return &LuaWearPolicy{Caller: caller, Fallback: fallback, Logger: logger}
}

// Wear implements damage.WearPolicy.
//
// Postcondition: returns a finite value >= 0.
func (p *LuaWearPolicy) Wear(src dice.Source, layer *damage.Layer, t damage.Type, preAbsorb damage.Amounts, quality float64) float64 {
	ret, err := p.Caller.CallHook(src, WearScope, WearHook,
		lua.LString(layer.ID),
		lua.LString(t.String()),
		lua.LNumber(preAbsorb.Damage),
		lua.LNumber(preAbsorb.Pain),
		lua.LNumber(preAbsorb.Stun),
		lua.LNumber(quality),
	)
	if err != nil {
		p.Logger.Warn("wear hook failed",
			zap.String("layer", layer.ID),
			zap.Error(err),
		)
		return p.Fallback.Wear(src, layer, t, preAbsorb, quality)
	}
	n, ok := ret.(lua.LNumber)
	if !ok {
		return p.Fallback.Wear(src, layer, t, preAbsorb, quality)
	}
	w := float64(n)
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0
	}
	return w
}
