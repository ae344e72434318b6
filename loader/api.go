package loader

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/aplcore/types"
)

// registerAPI registers the rotation DSL as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerActions(L)
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Rotation "name" { entry, ... } is curried: Rotation("name") returns a
	// function that takes the entry list.
	L.SetGlobal("Rotation", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			coll.name = name
			coll.entries = L.CheckTable(1)
			coll.calls++
			return 0
		}))
		return 1
	}))

	// If("condition text", action)
	L.SetGlobal("If", L.NewFunction(func(L *lua.LState) int {
		cond := L.CheckString(1)
		act := L.CheckTable(2)
		tbl := L.NewTable()
		tbl.RawSetString("if", lua.LString(cond))
		tbl.RawSetString("do", act)
		L.Push(tbl)
		return 1
	}))

	// Hide(entry) keeps an entry in the file but out of the list.
	L.SetGlobal("Hide", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		tbl.RawSetString("hide", lua.LTrue)
		L.Push(tbl)
		return 1
	}))
}

func registerActions(L *lua.LState) {
	// Cast(spell)
	L.SetGlobal("Cast", L.NewFunction(func(L *lua.LState) int {
		tbl := action(L, types.ActionCastSpell)
		tbl.RawSetString("spell", checkText(L, 1))
		L.Push(tbl)
		return 1
	}))

	// MultiDot(spell, { max = n, overlap = "1s" })
	L.SetGlobal("MultiDot", L.NewFunction(func(L *lua.LState) int {
		L.Push(multi(L, types.ActionMultiDot))
		return 1
	}))

	// MultiShield(spell, { max = n, overlap = "1s" })
	L.SetGlobal("MultiShield", L.NewFunction(func(L *lua.LState) int {
		L.Push(multi(L, types.ActionMultiShield))
		return 1
	}))

	// AutocastCooldowns()
	L.SetGlobal("AutocastCooldowns", L.NewFunction(func(L *lua.LState) int {
		L.Push(action(L, types.ActionAutocastCooldowns))
		return 1
	}))

	// Wait("250ms") or Wait(0.25)
	L.SetGlobal("Wait", L.NewFunction(func(L *lua.LState) int {
		tbl := action(L, types.ActionWait)
		tbl.RawSetString("duration", checkText(L, 1))
		L.Push(tbl)
		return 1
	}))

	// Sequence("name", { action, ... })
	L.SetGlobal("Sequence", L.NewFunction(func(L *lua.LState) int {
		tbl := action(L, types.ActionSequence)
		tbl.RawSetString("name", lua.LString(L.CheckString(1)))
		tbl.RawSetString("actions", L.CheckTable(2))
		L.Push(tbl)
		return 1
	}))

	// ResetSequence("name")
	L.SetGlobal("ResetSequence", L.NewFunction(func(L *lua.LState) int {
		tbl := action(L, types.ActionResetSequence)
		tbl.RawSetString("name", lua.LString(L.CheckString(1)))
		L.Push(tbl)
		return 1
	}))
}

func action(L *lua.LState, typ types.ActionType) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("action", lua.LString(typ))
	return tbl
}

func multi(L *lua.LState, typ types.ActionType) *lua.LTable {
	tbl := action(L, typ)
	tbl.RawSetString("spell", checkText(L, 1))
	if opts := L.OptTable(2, nil); opts != nil {
		tbl.RawSetString("max", opts.RawGetString("max"))
		tbl.RawSetString("overlap", opts.RawGetString("overlap"))
	}
	return tbl
}

// checkText accepts a number or a string, such as a spell ID or name.
func checkText(L *lua.LState, n int) lua.LValue {
	switch v := L.Get(n).(type) {
	case lua.LNumber, lua.LString:
		return v
	}
	L.ArgError(n, "number or string expected")
	return lua.LNil
}
