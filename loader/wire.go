package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/nathoo/aplcore/engine/rules"
	"github.com/nathoo/aplcore/types"
)

// The JSON wire format encodes every node as a tagged union keyed by its
// single non-null field.

type wireList struct {
	Type         string      `json:"type"`
	Name         string      `json:"name"`
	PriorityList []wireEntry `json:"priorityList"`
}

type wireEntry struct {
	Hide   bool       `json:"hide"`
	Action wireAction `json:"action"`
}

type wireSpell struct {
	SpellID int32 `json:"spellId"`
}

type wireAction struct {
	Condition *wireValue `json:"condition"`

	CastSpell *struct {
		SpellID wireSpell `json:"spellId"`
	} `json:"castSpell"`
	Multidot *struct {
		SpellID    wireSpell  `json:"spellId"`
		MaxDots    int        `json:"maxDots"`
		MaxOverlap *wireValue `json:"maxOverlap"`
	} `json:"multidot"`
	Multishield *struct {
		SpellID    wireSpell  `json:"spellId"`
		MaxShields int        `json:"maxShields"`
		MaxOverlap *wireValue `json:"maxOverlap"`
	} `json:"multishield"`
	AutocastOtherCooldowns *struct{} `json:"autocastOtherCooldowns"`
	Wait                   *struct {
		Duration *wireValue `json:"duration"`
	} `json:"wait"`
	Sequence *struct {
		Name    string       `json:"name"`
		Actions []wireAction `json:"actions"`
	} `json:"sequence"`
	ResetSequence *struct {
		SequenceName string `json:"sequenceName"`
	} `json:"resetSequence"`
}

type wireBinary struct {
	Op  string     `json:"op"`
	LHS *wireValue `json:"lhs"`
	RHS *wireValue `json:"rhs"`
}

type wireSpellRef struct {
	SpellID wireSpell `json:"spellId"`
}

type wireValue struct {
	Const *struct {
		Val string `json:"val"`
	} `json:"const"`
	Cmp  *wireBinary `json:"cmp"`
	Math *wireBinary `json:"math"`
	And  *struct {
		Vals []wireValue `json:"vals"`
	} `json:"and"`
	Or *struct {
		Vals []wireValue `json:"vals"`
	} `json:"or"`
	Not *struct {
		Val *wireValue `json:"val"`
	} `json:"not"`

	SpellCpm           *wireSpellRef `json:"spellCpm"`
	SpellIsReady       *wireSpellRef `json:"spellIsReady"`
	SpellTimeToReady   *wireSpellRef `json:"spellTimeToReady"`
	DotRemainingTime   *wireSpellRef `json:"dotRemainingTime"`
	ShieldsActive      *wireSpellRef `json:"shieldsActive"`
	CurrentTime        *struct{}     `json:"currentTime"`
	RemainingTime      *struct{}     `json:"remainingTime"`
	NumberTargets      *struct{}     `json:"numberTargets"`
	CurrentManaPercent *struct{}     `json:"currentManaPercent"`
}

var wireCompareOps = map[string]types.CompareOp{
	"OpLt": types.OpLt, "OpLe": types.OpLe, "OpGt": types.OpGt,
	"OpGe": types.OpGe, "OpEq": types.OpEq, "OpNe": types.OpNe,
}

var wireMathOps = map[string]types.MathOp{
	"OpAdd": types.OpAdd, "OpSub": types.OpSub, "OpMul": types.OpMul, "OpDiv": types.OpDiv,
}

var errEmptyValue = errors.New("value has no variant set")

func readWire(data []byte) (rawRotation, error) {
	var wl wireList
	if err := json.Unmarshal(data, &wl); err != nil {
		return rawRotation{}, fmt.Errorf("decoding JSON: %w", err)
	}
	if wl.Type != "" && wl.Type != "TypeAPL" {
		return rawRotation{}, fmt.Errorf("unsupported rotation type %q", wl.Type)
	}

	raw := rawRotation{Name: wl.Name}
	for i, we := range wl.PriorityList {
		a, err := wireToAction(we.Action)
		if err != nil {
			return rawRotation{}, fmt.Errorf("priorityList[%d]: %w", i, err)
		}
		entry := rawEntry{Hide: we.Hide, Action: a}
		if we.Action.Condition != nil {
			cond, err := wireToCondition(*we.Action.Condition)
			if err != nil {
				return rawRotation{}, fmt.Errorf("priorityList[%d] condition: %w", i, err)
			}
			entry.cond = &cond
		}
		raw.Entries = append(raw.Entries, entry)
	}
	return raw, nil
}

func spellRef(s wireSpell) string {
	return strconv.FormatInt(int64(s.SpellID), 10)
}

func wireToAction(w wireAction) (rawAction, error) {
	switch {
	case w.CastSpell != nil:
		return rawAction{Type: string(types.ActionCastSpell), Spell: spellRef(w.CastSpell.SpellID)}, nil

	case w.Multidot != nil:
		overlap, err := wireConstText(w.Multidot.MaxOverlap)
		if err != nil {
			return rawAction{}, fmt.Errorf("multidot maxOverlap: %w", err)
		}
		return rawAction{
			Type:    string(types.ActionMultiDot),
			Spell:   spellRef(w.Multidot.SpellID),
			Max:     w.Multidot.MaxDots,
			Overlap: overlap,
		}, nil

	case w.Multishield != nil:
		overlap, err := wireConstText(w.Multishield.MaxOverlap)
		if err != nil {
			return rawAction{}, fmt.Errorf("multishield maxOverlap: %w", err)
		}
		return rawAction{
			Type:    string(types.ActionMultiShield),
			Spell:   spellRef(w.Multishield.SpellID),
			Max:     w.Multishield.MaxShields,
			Overlap: overlap,
		}, nil

	case w.AutocastOtherCooldowns != nil:
		return rawAction{Type: string(types.ActionAutocastCooldowns)}, nil

	case w.Wait != nil:
		d, err := wireConstText(w.Wait.Duration)
		if err != nil {
			return rawAction{}, fmt.Errorf("wait duration: %w", err)
		}
		return rawAction{Type: string(types.ActionWait), Duration: d}, nil

	case w.Sequence != nil:
		a := rawAction{Type: string(types.ActionSequence), Name: w.Sequence.Name}
		for j, sub := range w.Sequence.Actions {
			sa, err := wireToAction(sub)
			if err != nil {
				return rawAction{}, fmt.Errorf("sequence %s[%d]: %w", w.Sequence.Name, j, err)
			}
			a.Actions = append(a.Actions, sa)
		}
		return a, nil

	case w.ResetSequence != nil:
		return rawAction{Type: string(types.ActionResetSequence), Name: w.ResetSequence.SequenceName}, nil
	}
	return rawAction{}, errors.New("action has no variant set")
}

// wireConstText extracts the literal text of a const value. Durations in
// action parameters must be constants. A missing value is empty.
func wireConstText(v *wireValue) (string, error) {
	if v == nil {
		return "", nil
	}
	if v.Const == nil {
		return "", errors.New("must be a constant")
	}
	return v.Const.Val, nil
}

func wireToCondition(w wireValue) (types.Condition, error) {
	switch {
	case w.Const != nil:
		val, err := rules.ParseConst(w.Const.Val)
		if err != nil {
			return types.Condition{}, err
		}
		return types.Condition{Type: types.CondConst, Value: val}, nil

	case w.Cmp != nil:
		op, ok := wireCompareOps[w.Cmp.Op]
		if !ok {
			return types.Condition{}, fmt.Errorf("unknown comparison %q", w.Cmp.Op)
		}
		lhs, rhs, err := wireOperands(w.Cmp)
		if err != nil {
			return types.Condition{}, err
		}
		return types.Condition{Type: types.CondCmp, Cmp: op, LHS: lhs, RHS: rhs}, nil

	case w.Math != nil:
		op, ok := wireMathOps[w.Math.Op]
		if !ok {
			return types.Condition{}, fmt.Errorf("unknown math operator %q", w.Math.Op)
		}
		lhs, rhs, err := wireOperands(w.Math)
		if err != nil {
			return types.Condition{}, err
		}
		return types.Condition{Type: types.CondMath, Math: op, LHS: lhs, RHS: rhs}, nil

	case w.And != nil:
		return wireJunction(types.CondAnd, w.And.Vals)

	case w.Or != nil:
		return wireJunction(types.CondOr, w.Or.Vals)

	case w.Not != nil:
		if w.Not.Val == nil {
			return types.Condition{}, errors.New("not: missing val")
		}
		inner, err := wireToCondition(*w.Not.Val)
		if err != nil {
			return types.Condition{}, err
		}
		return types.Condition{Type: types.CondNot, Children: []types.Condition{inner}}, nil

	case w.SpellCpm != nil:
		return wireMetric(types.MetricSpellCpm, w.SpellCpm.SpellID.SpellID), nil
	case w.SpellIsReady != nil:
		return wireMetric(types.MetricSpellIsReady, w.SpellIsReady.SpellID.SpellID), nil
	case w.SpellTimeToReady != nil:
		return wireMetric(types.MetricSpellTimeToReady, w.SpellTimeToReady.SpellID.SpellID), nil
	case w.DotRemainingTime != nil:
		return wireMetric(types.MetricDotRemaining, w.DotRemainingTime.SpellID.SpellID), nil
	case w.ShieldsActive != nil:
		return wireMetric(types.MetricShieldsActive, w.ShieldsActive.SpellID.SpellID), nil
	case w.CurrentTime != nil:
		return wireMetric(types.MetricCurrentTime, 0), nil
	case w.RemainingTime != nil:
		return wireMetric(types.MetricRemainingTime, 0), nil
	case w.NumberTargets != nil:
		return wireMetric(types.MetricNumTargets, 0), nil
	case w.CurrentManaPercent != nil:
		return wireMetric(types.MetricManaPercent, 0), nil
	}
	return types.Condition{}, errEmptyValue
}

func wireMetric(m types.MetricKind, id int32) types.Condition {
	return types.Condition{Type: types.CondMetric, Metric: m, SpellID: types.SpellID(id)}
}

func wireOperands(b *wireBinary) (*types.Condition, *types.Condition, error) {
	if b.LHS == nil || b.RHS == nil {
		return nil, nil, fmt.Errorf("%s: missing operand", b.Op)
	}
	lhs, err := wireToCondition(*b.LHS)
	if err != nil {
		return nil, nil, err
	}
	rhs, err := wireToCondition(*b.RHS)
	if err != nil {
		return nil, nil, err
	}
	return &lhs, &rhs, nil
}

func wireJunction(typ types.ConditionType, vals []wireValue) (types.Condition, error) {
	c := types.Condition{Type: typ}
	for _, v := range vals {
		child, err := wireToCondition(v)
		if err != nil {
			return types.Condition{}, err
		}
		c.Children = append(c.Children, child)
	}
	return c, nil
}
