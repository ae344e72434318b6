package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nathoo/aplcore/engine/rules"
	"github.com/nathoo/aplcore/engine/state"
	"github.com/nathoo/aplcore/types"
)

// ErrConfiguration matches every ValidationError.
var ErrConfiguration = errors.New("invalid configuration")

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrConfiguration }

func (e *ValidationError) errorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// result logs the warnings and returns e only when it holds errors.
func (e *ValidationError) result(source string) error {
	for _, w := range e.Warnings {
		slog.Warn(w, "source", source)
	}
	if len(e.Errors) > 0 {
		return e
	}
	return nil
}

var spellKinds = map[types.SpellKind]bool{
	types.SpellDamage: true,
	types.SpellHeal:   true,
	types.SpellDot:    true,
	types.SpellShield: true,
	types.SpellBuff:   true,
}

// validateCatalog checks the raw catalog, since duplicate IDs are lost
// once spells are keyed by ID.
func validateCatalog(raw rawCatalog, defs *state.Defs) error {
	ve := &ValidationError{}

	if len(raw.Spells) == 0 {
		ve.errorf("catalog defines no spells")
	}
	seen := map[types.SpellID]bool{}
	for i, rs := range raw.Spells {
		if rs.ID <= 0 {
			ve.errorf("spells[%d]: id must be positive, got %d", i, rs.ID)
			continue
		}
		if seen[rs.ID] {
			ve.errorf("duplicate spell id %d", rs.ID)
		}
		seen[rs.ID] = true

		sp := defs.Spells[rs.ID]
		label := fmt.Sprintf("spell %d", rs.ID)
		if sp.Name == "" {
			ve.warnf("%s has no name", label)
		} else {
			label = fmt.Sprintf("spell %d (%s)", rs.ID, sp.Name)
		}
		if !spellKinds[sp.Kind] {
			ve.errorf("%s: unknown kind %q", label, sp.Kind)
		}
		if sp.CastTime < 0 || sp.Cooldown < 0 || sp.Duration < 0 || sp.TickInterval < 0 {
			ve.errorf("%s: times must not be negative", label)
		}
		if sp.Cost < 0 {
			ve.errorf("%s: cost must not be negative", label)
		}
		switch sp.Kind {
		case types.SpellDot:
			if sp.Duration <= 0 || sp.TickInterval <= 0 {
				ve.errorf("%s: dot needs duration and tick_interval", label)
			}
		case types.SpellShield:
			if sp.Duration <= 0 {
				ve.errorf("%s: shield needs a duration", label)
			}
		}
		if sp.Cost > 0 && defs.MaxMana <= 0 {
			ve.warnf("%s costs mana but the actor has none", label)
		}
	}

	for _, id := range raw.CooldownOrder {
		if _, ok := defs.Spells[id]; !ok {
			ve.errorf("cooldown_order references unknown spell %d", id)
		}
	}

	a := raw.Actor
	if defs.GCD < 0 {
		ve.errorf("actor.gcd must not be negative")
	}
	if a.MaxMana < 0 || a.ManaRegen < 0 {
		ve.errorf("actor mana settings must not be negative")
	}
	if a.CritChance < 0 || a.CritChance > 1 {
		ve.errorf("actor.crit_chance must be within [0, 1], got %v", a.CritChance)
	}
	if a.Variance < 0 || a.Variance >= 1 {
		ve.errorf("actor.variance must be within [0, 1), got %v", a.Variance)
	}
	if a.RateWindow < 0 {
		ve.errorf("actor.rate_window must not be negative")
	}

	return ve.result("catalog")
}

// validateRotation checks a compiled list against the catalog.
func validateRotation(list types.PriorityList, defs *state.Defs) error {
	ve := &ValidationError{}
	known := func(id types.SpellID) bool {
		_, ok := defs.Spells[id]
		return ok
	}

	if len(list.Entries) == 0 {
		ve.warnf("rotation %q has no entries and will never act", list.Name)
	}

	sequences := map[string]bool{}
	for i, e := range list.Entries {
		if e.Action.Type != types.ActionSequence || e.Action.Name == "" {
			continue
		}
		if sequences[e.Action.Name] {
			ve.errorf("entry %d: duplicate sequence name %q", i, e.Action.Name)
		}
		sequences[e.Action.Name] = true
	}

	blockedBy := -1
	for i, e := range list.Entries {
		if e.Condition != nil {
			kind, err := rules.Check(*e.Condition, known)
			switch {
			case err != nil:
				ve.errorf("entry %d: condition: %v", i, err)
			case kind != types.KindBool:
				ve.errorf("entry %d: condition is %s, want bool", i, kind)
			}
		}
		validateAction(fmt.Sprintf("entry %d", i), e.Action, defs, sequences, false, ve)

		if blockedBy >= 0 {
			ve.warnf("entry %d is unreachable: entry %d always waits", i, blockedBy)
		} else if e.Condition == nil && e.Action.Type == types.ActionWait {
			blockedBy = i
		}
	}

	return ve.result("rotation " + list.Name)
}

func validateAction(where string, a types.Action, defs *state.Defs, sequences map[string]bool, nested bool, ve *ValidationError) {
	switch a.Type {
	case types.ActionCastSpell, types.ActionMultiDot, types.ActionMultiShield:
		sp, ok := defs.Spells[a.SpellID]
		if !ok {
			ve.errorf("%s: %s references unknown spell %d", where, a.Type, a.SpellID)
			return
		}
		if a.Type == types.ActionCastSpell {
			return
		}
		if a.MaxInstances < 1 {
			ve.errorf("%s: %s max must be at least 1, got %d", where, a.Type, a.MaxInstances)
		}
		if a.MaxOverlap < 0 {
			ve.errorf("%s: %s overlap must not be negative", where, a.Type)
		}
		if a.Type == types.ActionMultiDot && sp.Kind != types.SpellDot {
			ve.warnf("%s: multidot on %s spell %q", where, sp.Kind, sp.Name)
		}
		if a.Type == types.ActionMultiShield && sp.Kind != types.SpellShield {
			ve.warnf("%s: multishield on %s spell %q", where, sp.Kind, sp.Name)
		}

	case types.ActionAutocastCooldowns:
		if len(defs.Cooldowns) == 0 {
			ve.warnf("%s: autocastCooldowns with no major cooldowns in the catalog", where)
		}

	case types.ActionWait:
		if a.Duration <= 0 {
			ve.errorf("%s: wait duration must be positive", where)
		}

	case types.ActionSequence:
		if nested {
			ve.errorf("%s: sequences cannot be nested", where)
			return
		}
		if a.Name == "" {
			ve.errorf("%s: sequence needs a name", where)
		}
		if len(a.Actions) == 0 {
			ve.errorf("%s: sequence %q has no actions", where, a.Name)
		}
		for j, sub := range a.Actions {
			validateAction(fmt.Sprintf("%s: sequence %s[%d]", where, a.Name, j), sub, defs, sequences, true, ve)
		}

	case types.ActionResetSequence:
		if nested {
			ve.errorf("%s: resetSequence cannot appear inside a sequence", where)
			return
		}
		if !sequences[a.Name] {
			ve.errorf("%s: resetSequence references unknown sequence %q", where, a.Name)
		}

	default:
		ve.errorf("%s: unknown action type %q", where, a.Type)
	}
}
