package loader

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// collector accumulates DSL definitions while a rotation script runs.
type collector struct {
	name    string
	entries *lua.LTable
	calls   int
}

// readLua runs a rotation script in a sandboxed VM and converts the
// collected tables. The VM is discarded afterwards.
func readLua(data []byte) (rawRotation, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	openSafeLibs(L)
	sandbox(L)

	coll := &collector{}
	registerAPI(L, coll)

	if err := L.DoString(string(data)); err != nil {
		return rawRotation{}, fmt.Errorf("executing script: %w", err)
	}
	switch {
	case coll.calls == 0:
		return rawRotation{}, errors.New("no Rotation definition found")
	case coll.calls > 1:
		return rawRotation{}, fmt.Errorf("%d Rotation definitions found, want 1", coll.calls)
	}
	return compileLua(coll)
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	// print, type, tostring, tonumber, pairs, ipairs.
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Scripts must not reseed: rotations are loaded once per batch.
	if mathTbl := L.GetGlobal("math"); mathTbl != lua.LNil {
		if tbl, ok := mathTbl.(*lua.LTable); ok {
			tbl.RawSetString("randomseed", lua.LNil)
		}
	}
}

func compileLua(coll *collector) (rawRotation, error) {
	raw := rawRotation{Name: coll.name}
	n := coll.entries.MaxN()
	for i := 1; i <= n; i++ {
		tbl, ok := coll.entries.RawGetInt(i).(*lua.LTable)
		if !ok {
			return rawRotation{}, fmt.Errorf("entry %d is not a table", i-1)
		}
		entry := rawEntry{Hide: getBool(tbl, "hide", false)}
		actTbl := tbl
		if do := getTable(tbl, "do"); do != nil {
			entry.If = getString(tbl, "if")
			actTbl = do
		}
		a, err := luaAction(actTbl)
		if err != nil {
			return rawRotation{}, fmt.Errorf("entry %d: %w", i-1, err)
		}
		entry.Action = a
		raw.Entries = append(raw.Entries, entry)
	}
	return raw, nil
}

func luaAction(tbl *lua.LTable) (rawAction, error) {
	a := rawAction{
		Type:     getString(tbl, "action"),
		Spell:    getText(tbl, "spell"),
		Max:      getInt(tbl, "max"),
		Overlap:  getText(tbl, "overlap"),
		Duration: getText(tbl, "duration"),
		Name:     getString(tbl, "name"),
	}
	if a.Type == "" {
		return rawAction{}, errors.New("table is not an action")
	}
	if subs := getTable(tbl, "actions"); subs != nil {
		for j := 1; j <= subs.MaxN(); j++ {
			st, ok := subs.RawGetInt(j).(*lua.LTable)
			if !ok {
				return rawAction{}, fmt.Errorf("sequence %s[%d] is not a table", a.Name, j-1)
			}
			sa, err := luaAction(st)
			if err != nil {
				return rawAction{}, fmt.Errorf("sequence %s[%d]: %w", a.Name, j-1, err)
			}
			a.Actions = append(a.Actions, sa)
		}
	}
	return a, nil
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getText returns a string or number field as text, or "" if missing.
func getText(tbl *lua.LTable, key string) string {
	switch v := tbl.RawGetString(key).(type) {
	case lua.LString:
		return string(v)
	case lua.LNumber:
		return v.String()
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	v := tbl.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return int(n)
	}
	return 0
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}
