// Package rules implements condition evaluation and the first-match
// priority scan shared by the interpreter and cooldown selection.
package rules

import (
	"fmt"

	"github.com/nathoo/aplcore/engine/state"
	"github.com/nathoo/aplcore/types"
)

// Evaluate evaluates a condition against a read-only state view. It never
// mutates state, so re-evaluating the same node is always safe.
func Evaluate(c types.Condition, v state.View) (types.Value, error) {
	switch c.Type {
	case types.CondConst:
		return c.Value, nil

	case types.CondCmp:
		lhs, rhs, err := operands(c, v)
		if err != nil {
			return types.Value{}, err
		}
		ok, err := compare(c.Cmp, lhs, rhs)
		if err != nil {
			return types.Value{}, err
		}
		return Bool(ok), nil

	case types.CondMath:
		lhs, rhs, err := operands(c, v)
		if err != nil {
			return types.Value{}, err
		}
		return arith(c.Math, lhs, rhs)

	case types.CondAnd:
		for _, child := range c.Children {
			ok, err := EvalBool(child, v)
			if err != nil {
				return types.Value{}, err
			}
			if !ok {
				return Bool(false), nil
			}
		}
		return Bool(true), nil

	case types.CondOr:
		for _, child := range c.Children {
			ok, err := EvalBool(child, v)
			if err != nil {
				return types.Value{}, err
			}
			if ok {
				return Bool(true), nil
			}
		}
		return Bool(false), nil

	case types.CondNot:
		if len(c.Children) != 1 {
			return types.Value{}, fmt.Errorf("not: expected 1 operand, got %d", len(c.Children))
		}
		ok, err := EvalBool(c.Children[0], v)
		if err != nil {
			return types.Value{}, err
		}
		return Bool(!ok), nil

	case types.CondMetric:
		return metric(c, v)

	default:
		return types.Value{}, fmt.Errorf("unknown condition type %q", c.Type)
	}
}

// EvalBool evaluates a condition that must produce a boolean.
func EvalBool(c types.Condition, v state.View) (bool, error) {
	val, err := Evaluate(c, v)
	if err != nil {
		return false, err
	}
	if val.Kind != types.KindBool {
		return false, &TypeMismatchError{Op: "condition", Left: val.Kind, Right: types.KindBool}
	}
	return val.Bool, nil
}

// Holds reports whether an optional entry condition passes. A nil
// condition always holds.
func Holds(c *types.Condition, v state.View) (bool, error) {
	if c == nil {
		return true, nil
	}
	return EvalBool(*c, v)
}

func operands(c types.Condition, v state.View) (types.Value, types.Value, error) {
	if c.LHS == nil || c.RHS == nil {
		return types.Value{}, types.Value{}, fmt.Errorf("%s: missing operand", c.Type)
	}
	lhs, err := Evaluate(*c.LHS, v)
	if err != nil {
		return types.Value{}, types.Value{}, err
	}
	rhs, err := Evaluate(*c.RHS, v)
	if err != nil {
		return types.Value{}, types.Value{}, err
	}
	return lhs, rhs, nil
}

// metric answers a state query.
func metric(c types.Condition, v state.View) (types.Value, error) {
	switch c.Metric {
	case types.MetricSpellCpm:
		return Number(v.CastsPerMinute(c.SpellID)), nil
	case types.MetricCurrentTime:
		return Duration(v.Now()), nil
	case types.MetricRemainingTime:
		return Duration(v.Remaining()), nil
	case types.MetricNumTargets:
		return Number(float64(v.Targets())), nil
	case types.MetricSpellIsReady:
		return Bool(v.CooldownRemaining(c.SpellID) == 0), nil
	case types.MetricSpellTimeToReady:
		return Duration(v.CooldownRemaining(c.SpellID)), nil
	case types.MetricDotRemaining:
		return Duration(v.InstanceRemaining(c.SpellID, 0)), nil
	case types.MetricShieldsActive:
		return Number(float64(v.ActiveInstances(c.SpellID))), nil
	case types.MetricManaPercent:
		if v.MaxMana() <= 0 {
			return Number(0), nil
		}
		return Number(100 * v.Mana() / v.MaxMana()), nil
	default:
		return types.Value{}, fmt.Errorf("unknown metric %q", c.Metric)
	}
}
