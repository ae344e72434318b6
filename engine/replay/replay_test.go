package replay

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nathoo/aplcore/engine"
	"github.com/nathoo/aplcore/engine/state"
	"github.com/nathoo/aplcore/types"
)

func testDefs() *state.Defs {
	d := state.NewDefs([]types.Spell{
		{ID: 53007, Name: "Penance", Kind: types.SpellHeal, OnGCD: true, Cooldown: 10 * time.Second, BaseAmount: 3000},
		{ID: 585, Name: "Smite", Kind: types.SpellDamage, OnGCD: true, CastTime: 2500 * time.Millisecond, BaseAmount: 900},
	})
	d.Variance = 0.1
	d.CritChance = 0.2
	return d
}

func testList() types.PriorityList {
	return types.PriorityList{Name: "dps", Entries: []types.PriorityEntry{
		{Action: types.Action{Type: types.ActionCastSpell, SpellID: 53007}},
		{Action: types.Action{Type: types.ActionCastSpell, SpellID: 585}},
	}}
}

func record(t *testing.T, seed int64) *Record {
	t.Helper()
	s := engine.New(testDefs(), testList(), engine.Options{Horizon: 30 * time.Second, Seed: seed, Targets: 2})
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return FromRun(s)
}

func TestRoundTrip(t *testing.T) {
	rec := record(t, 42)
	data, err := Save(rec)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !json.Valid(data) {
		t.Fatal("Save produced invalid JSON")
	}

	got, err := Load(data)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Seed != 42 || got.Targets != 2 || got.Rotation != "dps" {
		t.Errorf("header = %+v", got)
	}
	if d := Diff(rec.Events, got.Events); d != nil {
		t.Errorf("events changed in round trip: %s", d)
	}
	if got.Totals != rec.Totals {
		t.Errorf("totals = %+v, want %+v", got.Totals, rec.Totals)
	}
}

func TestLoad_RejectsUnknownVersion(t *testing.T) {
	if _, err := Load([]byte(`{"version":"0"}`)); err == nil {
		t.Error("expected version error")
	}
	if _, err := Load([]byte(`not json`)); err == nil {
		t.Error("expected decode error")
	}
}

func TestVerify_Matches(t *testing.T) {
	rec := record(t, 7)
	d, err := Verify(context.Background(), rec, testDefs(), testList())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if d != nil {
		t.Errorf("unexpected divergence: %s", d)
	}
}

func TestVerify_ReportsDivergence(t *testing.T) {
	rec := record(t, 7)
	rec.Seed = 8
	d, err := Verify(context.Background(), rec, testDefs(), testList())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if d == nil {
		t.Fatal("expected a divergence for a different seed")
	}
}

func TestVerify_ReportsRNGDrift(t *testing.T) {
	rec := record(t, 7)
	rec.RNGPosition++
	d, err := Verify(context.Background(), rec, testDefs(), testList())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if d == nil {
		t.Fatal("expected a divergence for a different rng position")
	}
	if d.Want != nil || d.Got != nil || d.Index != len(rec.Events) {
		t.Errorf("divergence = %+v, want a note after the last event", d)
	}
	if !strings.Contains(d.String(), "rng position") {
		t.Errorf("String() = %q", d.String())
	}
}

func TestDiff(t *testing.T) {
	a := []types.Event{
		{At: 0, Type: types.EventCastStart, SpellID: 1},
		{At: time.Second, Type: types.EventDamage, SpellID: 1, Amount: 10},
	}
	b := []types.Event{
		{At: 0, Type: types.EventCastStart, SpellID: 1},
		{At: time.Second, Type: types.EventDamage, SpellID: 1, Amount: 11},
	}

	if d := Diff(a, a); d != nil {
		t.Errorf("identical timelines diverged: %s", d)
	}
	d := Diff(a, b)
	if d == nil || d.Index != 1 {
		t.Fatalf("Diff = %v, want divergence at 1", d)
	}
	if !strings.Contains(d.String(), "amount=11.0") {
		t.Errorf("String() = %q", d.String())
	}

	d = Diff(a, a[:1])
	if d == nil || d.Index != 1 || d.Got != nil {
		t.Errorf("truncated Diff = %+v", d)
	}
	if !strings.Contains(d.String(), "end of timeline") {
		t.Errorf("String() = %q", d.String())
	}
}
