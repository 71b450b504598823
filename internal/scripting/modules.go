package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// registerModules registers all engine.* Lua tables into L:
//
//	engine.log.debug/info/warn/error(msg)
//	engine.dice.range(lo, hi)                   -> number
//	engine.dice.percentile(label, bonus, target) -> roll, margin
//	engine.actor.get(id)                         -> table or nil
//
// engine.dice draws from v's current roller.
//
// Precondition: L must be from NewSandboxedState and owned by v.
// Postcondition: engine global is defined in L.
func (m *Manager) registerModules(L *lua.LState, v *vm) {
	engine := L.NewTable()
	L.SetField(engine, "log", m.logModule(L))
	L.SetField(engine, "dice", diceModule(L, v))
	L.SetField(engine, "actor", m.actorModule(L))
	L.SetGlobal("engine", engine)
}

func (m *Manager) logModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	for name, fn := range map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	} {
		L.SetField(mod, name, L.NewFunction(func(L *lua.LState) int {
			fn(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}))
	}
	return mod
}

func diceModule(L *lua.LState, v *vm) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "range", L.NewFunction(func(L *lua.LState) int {
		lo := float64(L.CheckNumber(1))
		hi := float64(L.CheckNumber(2))
		L.Push(lua.LNumber(v.roller.Range(lo, hi)))
		return 1
	}))
	L.SetField(mod, "percentile", L.NewFunction(func(L *lua.LState) int {
		label := L.OptString(1, "lua")
		bonus := float64(L.OptNumber(2, 0))
		target := float64(L.OptNumber(3, 0))
		p := v.roller.Percentile(label, bonus, target)
		L.Push(lua.LNumber(p.Roll))
		L.Push(lua.LNumber(p.Margin()))
		return 2
	}))
	return mod
}

func (m *Manager) actorModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "get", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		if m.GetActor == nil {
			L.Push(lua.LNil)
			return 1
		}
		info := m.GetActor(id)
		if info == nil {
			L.Push(lua.LNil)
			return 1
		}
		t := L.NewTable()
		L.SetField(t, "id", lua.LString(info.ID))
		L.SetField(t, "stamina", lua.LNumber(info.Stamina))
		L.SetField(t, "prone", lua.LBool(info.Prone))
		L.SetField(t, "damage", lua.LNumber(info.Damage))
		L.SetField(t, "pain", lua.LNumber(info.Pain))
		L.SetField(t, "stun", lua.LNumber(info.Stun))
		limbs := L.NewTable()
		for _, l := range info.Incapacitated {
			limbs.Append(lua.LString(l))
		}
		L.SetField(t, "incapacitated", limbs)
		L.Push(t)
		return 1
	}))
	return mod
}
