package loader

import (
	"fmt"
	"time"

	"github.com/nathoo/aplcore/engine/parser"
	"github.com/nathoo/aplcore/engine/resolve"
	"github.com/nathoo/aplcore/engine/rules"
	"github.com/nathoo/aplcore/engine/state"
	"github.com/nathoo/aplcore/types"
)

var actionTypes = map[string]types.ActionType{
	string(types.ActionCastSpell):         types.ActionCastSpell,
	string(types.ActionMultiDot):          types.ActionMultiDot,
	string(types.ActionMultiShield):       types.ActionMultiShield,
	string(types.ActionAutocastCooldowns): types.ActionAutocastCooldowns,
	string(types.ActionWait):              types.ActionWait,
	string(types.ActionSequence):          types.ActionSequence,
	string(types.ActionResetSequence):     types.ActionResetSequence,
}

// compileRotation converts the raw form into a PriorityList, resolving
// spell references and parsing text conditions. Hidden entries are
// dropped.
func compileRotation(raw rawRotation, defs *state.Defs) (types.PriorityList, error) {
	list := types.PriorityList{Name: raw.Name}
	resolver := resolve.Func(defs)
	for i, re := range raw.Entries {
		if re.Hide {
			continue
		}
		entry := types.PriorityEntry{Condition: re.cond}
		if re.If != "" {
			cond, err := parser.Parse(re.If, resolver)
			if err != nil {
				return types.PriorityList{}, fmt.Errorf("entry %d: %w", i, err)
			}
			entry.Condition = cond
		}
		a, err := compileAction(re.Action, defs)
		if err != nil {
			return types.PriorityList{}, fmt.Errorf("entry %d: %w", i, err)
		}
		entry.Action = a
		list.Entries = append(list.Entries, entry)
	}
	return list, nil
}

func compileAction(raw rawAction, defs *state.Defs) (types.Action, error) {
	typ, ok := actionTypes[raw.Type]
	if !ok {
		return types.Action{}, fmt.Errorf("unknown action %q", raw.Type)
	}
	a := types.Action{Type: typ, MaxInstances: raw.Max, Name: raw.Name}

	if raw.Spell != "" {
		id, err := resolve.Spell(defs, raw.Spell)
		if err != nil {
			return types.Action{}, fmt.Errorf("%s: %w", typ, err)
		}
		a.SpellID = id
	}

	var err error
	if a.MaxOverlap, err = parseDuration(raw.Overlap); err != nil {
		return types.Action{}, fmt.Errorf("%s overlap: %w", typ, err)
	}
	if a.Duration, err = parseDuration(raw.Duration); err != nil {
		return types.Action{}, fmt.Errorf("%s duration: %w", typ, err)
	}

	for j, sub := range raw.Actions {
		sa, err := compileAction(sub, defs)
		if err != nil {
			return types.Action{}, fmt.Errorf("%s %s[%d]: %w", typ, raw.Name, j, err)
		}
		a.Actions = append(a.Actions, sa)
	}
	return a, nil
}

// parseDuration accepts a Go duration or a plain number of seconds. An
// empty string is zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	v, err := rules.ParseConst(s)
	if err != nil {
		return 0, err
	}
	switch v.Kind {
	case types.KindDuration:
		return v.Dur, nil
	case types.KindNumber:
		return time.Duration(v.Num * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("%q is not a duration", s)
	}
}
