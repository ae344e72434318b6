package loader

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/nathoo/aplcore/engine/resolve"
	"github.com/nathoo/aplcore/engine/rules"
	"github.com/nathoo/aplcore/engine/state"
	"github.com/nathoo/aplcore/types"
)

const (
	shieldID  types.SpellID = 48066
	penanceID types.SpellID = 53007
	painID    types.SpellID = 48068
	smiteID   types.SpellID = 48123
	infusion  types.SpellID = 10060
)

func loadTestCatalog(t *testing.T) *state.Defs {
	t.Helper()
	defs, err := LoadCatalog("testdata/catalog.yaml")
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	return defs
}

// discList is what testdata/disc.{json,yaml,lua} all compile to.
func discList() types.PriorityList {
	return types.PriorityList{Name: "disc", Entries: []types.PriorityEntry{
		{Action: types.Action{Type: types.ActionAutocastCooldowns}},
		{
			Condition: &types.Condition{
				Type: types.CondCmp,
				Cmp:  types.OpLt,
				LHS:  &types.Condition{Type: types.CondMetric, Metric: types.MetricSpellCpm, SpellID: shieldID},
				RHS:  &types.Condition{Type: types.CondConst, Value: rules.Number(18)},
			},
			Action: types.Action{Type: types.ActionMultiShield, SpellID: shieldID, MaxInstances: 10},
		},
		{Action: types.Action{Type: types.ActionCastSpell, SpellID: penanceID}},
		{Action: types.Action{Type: types.ActionMultiDot, SpellID: painID, MaxInstances: 10}},
	}}
}

func TestLoadCatalog(t *testing.T) {
	defs := loadTestCatalog(t)

	if len(defs.Spells) != 5 {
		t.Fatalf("spells = %d, want 5", len(defs.Spells))
	}
	if defs.GCD != 1500*time.Millisecond {
		t.Errorf("GCD = %v", defs.GCD)
	}
	if defs.MaxMana != 10000 || defs.ManaRegen != 40 || defs.RegenInterval != 2*time.Second {
		t.Errorf("mana = %v/%v/%v", defs.MaxMana, defs.ManaRegen, defs.RegenInterval)
	}
	if defs.CritChance != 0.1 || defs.Variance != 0.05 {
		t.Errorf("crit/variance = %v/%v", defs.CritChance, defs.Variance)
	}

	smite := defs.Spells[smiteID]
	if smite.Kind != types.SpellDamage {
		t.Errorf("smite kind = %q, want default damage", smite.Kind)
	}
	if !smite.OnGCD {
		t.Error("smite should default to on the GCD")
	}
	if smite.CastTime != 2500*time.Millisecond {
		t.Errorf("smite cast time = %v", smite.CastTime)
	}
	if defs.Spells[infusion].OnGCD {
		t.Error("power infusion should be off the GCD")
	}
	if !reflect.DeepEqual(defs.Cooldowns, []types.SpellID{infusion}) {
		t.Errorf("Cooldowns = %v", defs.Cooldowns)
	}
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	if _, err := LoadCatalog("testdata/nope.yaml"); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadRotation_FormatsAgree(t *testing.T) {
	defs := loadTestCatalog(t)
	want := discList()

	for _, name := range []string{"disc.json", "disc.yaml", "disc.lua"} {
		t.Run(name, func(t *testing.T) {
			got, err := LoadRotation(filepath.Join("testdata", name), defs)
			if err != nil {
				t.Fatalf("LoadRotation: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("list =\n%+v\nwant\n%+v", got, want)
			}
		})
	}
}

func TestLoadRotation_Sequence(t *testing.T) {
	defs := loadTestCatalog(t)
	list, err := LoadRotation("testdata/opener.yaml", defs)
	if err != nil {
		t.Fatalf("LoadRotation: %v", err)
	}
	if len(list.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(list.Entries))
	}

	seq := list.Entries[0].Action
	if seq.Type != types.ActionSequence || seq.Name != "open" || len(seq.Actions) != 2 {
		t.Fatalf("sequence = %+v", seq)
	}
	if seq.Actions[0].SpellID != smiteID || seq.Actions[1].SpellID != penanceID {
		t.Errorf("sequence spells = %d, %d", seq.Actions[0].SpellID, seq.Actions[1].SpellID)
	}
	rhs := list.Entries[0].Condition.RHS
	if rhs.Value.Kind != types.KindDuration || rhs.Value.Dur != 5*time.Second {
		t.Errorf("condition rhs = %+v", rhs.Value)
	}
	if list.Entries[2].Action.Duration != 250*time.Millisecond {
		t.Errorf("wait = %v", list.Entries[2].Action.Duration)
	}
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path string
		want Format
		err  bool
	}{
		{"a.json", FormatJSON, false},
		{"a.YAML", FormatYAML, false},
		{"dir/a.yml", FormatYAML, false},
		{"a.lua", FormatLua, false},
		{"a.txt", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatOf(tt.path)
			if (err != nil) != tt.err || got != tt.want {
				t.Errorf("FormatOf = %q, %v", got, err)
			}
		})
	}
}

func TestParseRotation_SpellResolution(t *testing.T) {
	defs := loadTestCatalog(t)

	_, err := ParseRotation([]byte("entries:\n  - action: castSpell\n    spell: power\n"), FormatYAML, defs)
	var amb *resolve.AmbiguityError
	if !errors.As(err, &amb) {
		t.Fatalf("err = %v, want ambiguity", err)
	}
	if len(amb.Candidates) != 2 {
		t.Errorf("candidates = %v", amb.Candidates)
	}

	_, err = ParseRotation([]byte("entries:\n  - if: spellIsReady(flash_heal)\n    action: castSpell\n    spell: 53007\n"), FormatYAML, defs)
	var nf *resolve.NotFoundError
	if !errors.As(err, &nf) || nf.Name != "flash_heal" {
		t.Errorf("err = %v, want not found flash_heal", err)
	}
}

func TestParseRotation_Lua(t *testing.T) {
	defs := loadTestCatalog(t)

	tests := []struct {
		name   string
		script string
		ok     bool
	}{
		{"minimal", `Rotation "x" { Cast(53007) }`, true},
		{"wait number", `Rotation "x" { Wait(0.5) }`, true},
		{"sequence", `Rotation "x" { Sequence("s", { Cast "Smite", Cast "Penance" }), ResetSequence "s" }`, true},
		{"no rotation", `local x = 1`, false},
		{"two rotations", `Rotation "a" { Cast(53007) } Rotation "b" { Cast(53007) }`, false},
		{"syntax error", `Rotation "x" {`, false},
		{"dofile removed", `dofile("/etc/passwd")`, false},
		{"os not opened", `os.exit(1)`, false},
		{"randomseed removed", `math.randomseed(1)`, false},
		{"not an action", `Rotation "x" { { foo = 1 } }`, false},
		{"bad spell argument", `Rotation "x" { Cast({}) }`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRotation([]byte(tt.script), FormatLua, defs)
			if (err == nil) != tt.ok {
				t.Errorf("err = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestParseRotation_Wire(t *testing.T) {
	defs := loadTestCatalog(t)

	tests := []struct {
		name string
		json string
		ok   bool
	}{
		{"empty list", `{"type":"TypeAPL","priorityList":[]}`, true},
		{"not and", `{"priorityList":[{"action":{"condition":{"not":{"val":{"and":{"vals":[{"spellIsReady":{"spellId":{"spellId":53007}}}]}}}},"castSpell":{"spellId":{"spellId":53007}}}}]}`, true},
		{"math", `{"priorityList":[{"action":{"condition":{"cmp":{"op":"OpGt","lhs":{"math":{"op":"OpSub","lhs":{"remainingTime":{}},"rhs":{"const":{"val":"5s"}}}},"rhs":{"const":{"val":"0s"}}}},"wait":{"duration":{"const":{"val":"1s"}}}}}]}`, true},
		{"wrong type", `{"type":"TypeSimple","priorityList":[]}`, false},
		{"unknown op", `{"priorityList":[{"action":{"condition":{"cmp":{"op":"OpXor","lhs":{"currentTime":{}},"rhs":{"const":{"val":"1s"}}}},"castSpell":{"spellId":{"spellId":53007}}}}]}`, false},
		{"empty action", `{"priorityList":[{"action":{}}]}`, false},
		{"empty value", `{"priorityList":[{"action":{"condition":{},"castSpell":{"spellId":{"spellId":53007}}}}]}`, false},
		{"non-const overlap", `{"priorityList":[{"action":{"multidot":{"spellId":{"spellId":48068},"maxDots":2,"maxOverlap":{"currentTime":{}}}}}]}`, false},
		{"bad json", `{"priorityList":`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRotation([]byte(tt.json), FormatJSON, defs)
			if (err == nil) != tt.ok {
				t.Errorf("err = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		err  bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"0ms", 0, false},
		{"1.5s", 1500 * time.Millisecond, false},
		{"0.25", 250 * time.Millisecond, false},
		{"true", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDuration(tt.in)
			if (err != nil) != tt.err || got != tt.want {
				t.Errorf("parseDuration(%q) = %v, %v", tt.in, got, err)
			}
		})
	}
}
