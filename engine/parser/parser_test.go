package parser

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/nathoo/aplcore/engine/rules"
	"github.com/nathoo/aplcore/types"
)

func metric(m types.MetricKind, id types.SpellID) *types.Condition {
	return &types.Condition{Type: types.CondMetric, Metric: m, SpellID: id}
}

func constNode(v types.Value) *types.Condition {
	return &types.Condition{Type: types.CondConst, Value: v}
}

func byName(name string) (types.SpellID, error) {
	switch name {
	case "Penance", "penance":
		return 53007, nil
	case "shield":
		return 48066, nil
	}
	return 0, errors.New("unknown spell " + name)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  types.Condition
	}{
		{
			name:  "cpm threshold",
			input: "spellCpm(48066) < 18",
			want:  types.Condition{Type: types.CondCmp, Cmp: types.OpLt, LHS: metric(types.MetricSpellCpm, 48066), RHS: constNode(rules.Number(18))},
		},
		{
			name:  "spell by name",
			input: `spellCpm("Penance") >= 4`,
			want:  types.Condition{Type: types.CondCmp, Cmp: types.OpGe, LHS: metric(types.MetricSpellCpm, 53007), RHS: constNode(rules.Number(4))},
		},
		{
			name:  "bare identifier spell",
			input: "spellIsReady(penance)",
			want:  *metric(types.MetricSpellIsReady, 53007),
		},
		{
			name:  "duration string",
			input: `dotRemaining(589) <= "3s"`,
			want:  types.Condition{Type: types.CondCmp, Cmp: types.OpLe, LHS: metric(types.MetricDotRemaining, 589), RHS: constNode(rules.Duration(3 * time.Second))},
		},
		{
			name:  "duration builtin",
			input: `remainingTime > duration("1m")`,
			want:  types.Condition{Type: types.CondCmp, Cmp: types.OpGt, LHS: metric(types.MetricRemainingTime, 0), RHS: constNode(rules.Duration(time.Minute))},
		},
		{
			name:  "state function with parens",
			input: "numTargets() >= 3",
			want:  types.Condition{Type: types.CondCmp, Cmp: types.OpGe, LHS: metric(types.MetricNumTargets, 0), RHS: constNode(rules.Number(3))},
		},
		{
			name:  "arithmetic",
			input: "manaPercent * 2 > 50.5",
			want: types.Condition{
				Type: types.CondCmp, Cmp: types.OpGt,
				LHS: &types.Condition{Type: types.CondMath, Math: types.OpMul, LHS: metric(types.MetricManaPercent, 0), RHS: constNode(rules.Number(2))},
				RHS: constNode(rules.Number(50.5)),
			},
		},
		{
			name:  "negative constant",
			input: "-1 < 0",
			want:  types.Condition{Type: types.CondCmp, Cmp: types.OpLt, LHS: constNode(rules.Number(-1)), RHS: constNode(rules.Number(0))},
		},
		{
			name:  "not",
			input: "!spellIsReady(53007)",
			want:  types.Condition{Type: types.CondNot, Children: []types.Condition{*metric(types.MetricSpellIsReady, 53007)}},
		},
		{
			name:  "flattened and",
			input: "true && spellIsReady(1) and false",
			want: types.Condition{Type: types.CondAnd, Children: []types.Condition{
				*constNode(rules.Bool(true)),
				*metric(types.MetricSpellIsReady, 1),
				*constNode(rules.Bool(false)),
			}},
		},
		{
			name:  "or of ands",
			input: "true && false || spellIsReady(shield)",
			want: types.Condition{Type: types.CondOr, Children: []types.Condition{
				{Type: types.CondAnd, Children: []types.Condition{*constNode(rules.Bool(true)), *constNode(rules.Bool(false))}},
				*metric(types.MetricSpellIsReady, 48066),
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input, byName)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.input, err)
			}
			if !reflect.DeepEqual(*got, tt.want) {
				t.Errorf("Parse(%q)\n got  %+v\n want %+v", tt.input, *got, tt.want)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", "   "},
		{"unbalanced", "spellCpm(1 < 3"},
		{"unknown function", "haste() > 1"},
		{"unknown identifier", "haste > 1"},
		{"spell func arity", "spellCpm() < 3"},
		{"state func arity", "numTargets(2) > 1"},
		{"bad duration", `duration("soon") > 1`},
		{"member access", "foo.bar > 1"},
		{"negated bool", "-true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input, byName)
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Errorf("Parse(%q) err = %v, want SyntaxError", tt.input, err)
			}
		})
	}
}

func TestParse_NamesNeedResolver(t *testing.T) {
	if _, err := Parse(`spellCpm("Penance") < 4`, nil); err == nil {
		t.Error("expected error without a resolver")
	}
	if _, err := Parse(`spellCpm("Smite") < 4`, byName); err == nil {
		t.Error("expected resolver error for unknown spell")
	}
}
