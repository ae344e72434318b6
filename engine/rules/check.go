package rules

import (
	"fmt"

	"github.com/nathoo/aplcore/types"
)

// metricKinds is the static result kind of each metric, and whether it
// takes a spell argument.
var metricKinds = map[types.MetricKind]struct {
	kind      types.ValueKind
	needSpell bool
}{
	types.MetricSpellCpm:         {types.KindNumber, true},
	types.MetricCurrentTime:      {types.KindDuration, false},
	types.MetricRemainingTime:    {types.KindDuration, false},
	types.MetricNumTargets:       {types.KindNumber, false},
	types.MetricSpellIsReady:     {types.KindBool, true},
	types.MetricSpellTimeToReady: {types.KindDuration, true},
	types.MetricDotRemaining:     {types.KindDuration, true},
	types.MetricShieldsActive:    {types.KindNumber, true},
	types.MetricManaPercent:      {types.KindNumber, false},
}

// MetricNeedsSpell reports whether the metric takes a spell argument. ok
// is false for unknown metrics.
func MetricNeedsSpell(m types.MetricKind) (need, ok bool) {
	info, ok := metricKinds[m]
	return info.needSpell, ok
}

// Check infers the static kind of a condition without evaluating it.
// known reports whether a spell ID exists; it may be nil.
func Check(c types.Condition, known func(types.SpellID) bool) (types.ValueKind, error) {
	switch c.Type {
	case types.CondConst:
		if c.Value.Kind == "" {
			return "", fmt.Errorf("const: missing value")
		}
		return c.Value.Kind, nil

	case types.CondCmp:
		l, r, err := checkOperands(c, known)
		if err != nil {
			return "", err
		}
		if l != r || l == types.KindBool {
			return "", &TypeMismatchError{Op: string(c.Cmp), Left: l, Right: r}
		}
		switch c.Cmp {
		case types.OpLt, types.OpLe, types.OpGt, types.OpGe, types.OpEq, types.OpNe:
		default:
			return "", fmt.Errorf("unknown comparison %q", c.Cmp)
		}
		return types.KindBool, nil

	case types.CondMath:
		l, r, err := checkOperands(c, known)
		if err != nil {
			return "", err
		}
		return mathKind(c.Math, l, r)

	case types.CondAnd, types.CondOr, types.CondNot:
		if c.Type == types.CondNot && len(c.Children) != 1 {
			return "", fmt.Errorf("not: expected 1 operand, got %d", len(c.Children))
		}
		for _, child := range c.Children {
			k, err := Check(child, known)
			if err != nil {
				return "", err
			}
			if k != types.KindBool {
				return "", &TypeMismatchError{Op: string(c.Type), Left: k, Right: types.KindBool}
			}
		}
		return types.KindBool, nil

	case types.CondMetric:
		info, ok := metricKinds[c.Metric]
		if !ok {
			return "", fmt.Errorf("unknown metric %q", c.Metric)
		}
		if info.needSpell {
			if c.SpellID == 0 {
				return "", fmt.Errorf("%s: missing spell id", c.Metric)
			}
			if known != nil && !known(c.SpellID) {
				return "", fmt.Errorf("%s: unknown spell %d", c.Metric, c.SpellID)
			}
		}
		return info.kind, nil

	default:
		return "", fmt.Errorf("unknown condition type %q", c.Type)
	}
}

func checkOperands(c types.Condition, known func(types.SpellID) bool) (types.ValueKind, types.ValueKind, error) {
	if c.LHS == nil || c.RHS == nil {
		return "", "", fmt.Errorf("%s: missing operand", c.Type)
	}
	l, err := Check(*c.LHS, known)
	if err != nil {
		return "", "", err
	}
	r, err := Check(*c.RHS, known)
	if err != nil {
		return "", "", err
	}
	return l, r, nil
}
