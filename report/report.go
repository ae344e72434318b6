// Package report exports run timelines and batch summaries as XLSX
// workbooks.
package report

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/nathoo/aplcore/engine/batch"
	"github.com/nathoo/aplcore/engine/state"
	"github.com/nathoo/aplcore/types"
)

// Sheet names.
const (
	SheetSummary    = "Summary"
	SheetTimeline   = "Timeline"
	SheetSpells     = "Spells"
	SheetIterations = "Iterations"
)

// WriteRun writes a single run: its totals, the event timeline and a
// per-spell breakdown.
func WriteRun(path string, res types.Result, defs *state.Defs) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	secs := res.End.Seconds()
	rows := [][]any{
		{"Rotation", res.Rotation},
		{"Seed", res.Seed},
		{"Horizon (s)", res.Horizon.Seconds()},
		{"End (s)", secs},
		{"Stopped", res.Stopped},
		{"Decisions", res.Decisions},
		{"Casts", res.Totals.Casts},
		{"Damage", res.Totals.Damage},
		{"Healing", res.Totals.Healing},
		{"Absorb", res.Totals.Absorb},
		{"DPS", rate(res.Totals.Damage, secs)},
		{"HPS", rate(res.Totals.Healing, secs)},
		{"APS", rate(res.Totals.Absorb, secs)},
	}
	if err := writeRows(f, SheetSummary, 1, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetTimeline); err != nil {
		return err
	}
	timeline := [][]any{{"Time (s)", "Event", "Spell ID", "Spell", "Target", "Amount", "Crit", "Entry"}}
	for _, ev := range res.Events {
		timeline = append(timeline, []any{
			ev.At.Seconds(),
			string(ev.Type),
			spellCell(ev.SpellID),
			spellName(defs, ev.SpellID),
			ev.Target,
			ev.Amount,
			ev.Crit,
			ev.Entry,
		})
	}
	if err := writeRows(f, SheetTimeline, 1, timeline); err != nil {
		return err
	}
	if err := boldHeader(f, SheetTimeline, "H1"); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetSpells); err != nil {
		return err
	}
	if err := writeRows(f, SheetSpells, 1, spellBreakdown(res, defs)); err != nil {
		return err
	}
	if err := boldHeader(f, SheetSpells, "E1"); err != nil {
		return err
	}

	return save(f, path)
}

// WriteBatch writes a batch summary and one row per iteration.
func WriteBatch(path string, b *batch.Batch) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	s := b.Summary
	rows := [][]any{
		{"Rotation", s.Rotation},
		{"Iterations", s.Iterations},
		{"Horizon (s)", s.Horizon.Seconds()},
		{"Base seed", s.BaseSeed},
		{},
		{"Metric", "Mean", "StdDev", "Min", "Median", "Max"},
	}
	for _, m := range []struct {
		name string
		st   batch.Stat
	}{
		{"DPS", s.DPS},
		{"HPS", s.HPS},
		{"APS", s.APS},
		{"Casts", s.Casts},
	} {
		rows = append(rows, []any{m.name, m.st.Mean, m.st.StdDev, m.st.Min, m.st.Median, m.st.Max})
	}
	if err := writeRows(f, SheetSummary, 1, rows); err != nil {
		return err
	}
	if err := boldHeader(f, SheetSummary, "F6"); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetIterations); err != nil {
		return err
	}
	iters := [][]any{{"Seed", "End (s)", "Decisions", "Casts", "Damage", "Healing", "Absorb"}}
	for _, it := range b.Iterations {
		iters = append(iters, []any{
			it.Seed, it.End.Seconds(), it.Decisions, it.Totals.Casts,
			it.Totals.Damage, it.Totals.Healing, it.Totals.Absorb,
		})
	}
	if err := writeRows(f, SheetIterations, 1, iters); err != nil {
		return err
	}
	if err := boldHeader(f, SheetIterations, "G1"); err != nil {
		return err
	}

	return save(f, path)
}

// spellBreakdown totals casts and output per spell, biggest first.
func spellBreakdown(res types.Result, defs *state.Defs) [][]any {
	type row struct {
		id     types.SpellID
		casts  int
		amount float64
		crits  int
	}
	byID := map[types.SpellID]*row{}
	get := func(id types.SpellID) *row {
		r, ok := byID[id]
		if !ok {
			r = &row{id: id}
			byID[id] = r
		}
		return r
	}
	for _, ev := range res.Events {
		switch ev.Type {
		case types.EventCastComplete:
			get(ev.SpellID).casts++
		case types.EventDamage, types.EventHeal, types.EventDotTick, types.EventShield:
			r := get(ev.SpellID)
			r.amount += ev.Amount
			if ev.Crit {
				r.crits++
			}
		}
	}

	list := make([]*row, 0, len(byID))
	for _, r := range byID {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].amount != list[j].amount {
			return list[i].amount > list[j].amount
		}
		return list[i].id < list[j].id
	})

	out := [][]any{{"Spell ID", "Spell", "Casts", "Amount", "Crits"}}
	for _, r := range list {
		out = append(out, []any{int(r.id), spellName(defs, r.id), r.casts, r.amount, r.crits})
	}
	return out
}

func writeRows(f *excelize.File, sheet string, first int, rows [][]any) error {
	for i, r := range rows {
		if len(r) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, first+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, first+i, err)
		}
	}
	return nil
}

func boldHeader(f *excelize.File, sheet, last string) error {
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	_, row, err := excelize.CellNameToCoordinates(last)
	if err != nil {
		return err
	}
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, first, last, style)
}

func save(f *excelize.File, path string) error {
	if idx, err := f.GetSheetIndex(SheetSummary); err == nil {
		f.SetActiveSheet(idx)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func spellName(defs *state.Defs, id types.SpellID) string {
	if defs == nil || id == 0 {
		return ""
	}
	return defs.Spells[id].Name
}

// spellCell leaves the cell blank for events without a spell.
func spellCell(id types.SpellID) any {
	if id == 0 {
		return nil
	}
	return int(id)
}

func rate(total, secs float64) float64 {
	if secs <= 0 {
		return 0
	}
	return total / secs
}
