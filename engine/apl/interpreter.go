// Package apl interprets a priority list: at each decision point it scans
// the entries top to bottom and executes the first whose condition holds
// and whose action is eligible.
package apl

import (
	"fmt"
	"time"

	"github.com/nathoo/aplcore/engine/actions"
	"github.com/nathoo/aplcore/engine/rules"
	"github.com/nathoo/aplcore/engine/state"
	"github.com/nathoo/aplcore/types"
)

// Phase is the interpreter's state-machine position.
type Phase int

const (
	Scanning Phase = iota
	Executing
)

func (p Phase) String() string {
	if p == Executing {
		return "executing"
	}
	return "scanning"
}

// Decision is the outcome of one interpreter step. Index is -1 when no
// entry matched; Idle is set when the actor was busy and nothing was
// scanned.
type Decision struct {
	Index  int
	Action types.Action
	Choice actions.Choice
	Delay  time.Duration
	Events []types.Event
	Idle   bool
}

// Matched reports whether an entry was executed.
func (d Decision) Matched() bool { return d.Index >= 0 }

// EntryError attaches the failing entry index to an evaluation or apply
// error.
type EntryError struct {
	Index int
	Err   error
}

func (e *EntryError) Error() string { return fmt.Sprintf("entry %d: %v", e.Index, e.Err) }

func (e *EntryError) Unwrap() error { return e.Err }

// Interpreter runs one priority list. It holds no simulation state other
// than its phase.
type Interpreter struct {
	list  types.PriorityList
	defs  *state.Defs
	phase Phase
}

// New creates an interpreter for list.
func New(list types.PriorityList, defs *state.Defs) *Interpreter {
	return &Interpreter{list: list, defs: defs}
}

// List returns the priority list being interpreted.
func (in *Interpreter) List() types.PriorityList { return in.list }

// Phase returns the current phase. Outside Step it is always Scanning.
func (in *Interpreter) Phase() Phase { return in.phase }

// Select scans the list without executing anything and returns the index
// of the first entry that would run, or -1.
func (in *Interpreter) Select(v state.View) (int, actions.Choice, error) {
	var choice actions.Choice
	idx, err := rules.Scan(len(in.list.Entries), func(i int) (bool, error) {
		e := in.list.Entries[i]
		ok, err := rules.Holds(e.Condition, v)
		if err != nil {
			return false, &EntryError{Index: i, Err: err}
		}
		if !ok {
			return false, nil
		}
		ch, ok := actions.Eligible(e.Action, v)
		if ok {
			choice = ch
		}
		return ok, nil
	})
	return idx, choice, err
}

// Step runs one decision point against st. A busy actor yields an idle
// decision; no match yields Index -1.
func (in *Interpreter) Step(st *types.State, env actions.Env) (Decision, error) {
	v := state.NewView(st, in.defs)
	if v.Busy() {
		return Decision{Index: -1, Idle: true}, nil
	}

	idx, choice, err := in.Select(v)
	if err != nil {
		return Decision{Index: -1}, err
	}
	if idx < 0 {
		return Decision{Index: -1}, nil
	}

	in.phase = Executing
	defer func() { in.phase = Scanning }()

	entry := in.list.Entries[idx]
	env.Entry = idx
	out, err := actions.Apply(entry.Action, st, env)
	if err != nil {
		return Decision{Index: -1}, &EntryError{Index: idx, Err: err}
	}
	st.Decisions++
	return Decision{
		Index:  idx,
		Action: entry.Action,
		Choice: choice,
		Delay:  out.Delay,
		Events: out.Events,
	}, nil
}

// Verdict is one entry's status at a decision point, as shown by Explain.
type Verdict struct {
	Index     int
	Condition bool
	Eligible  bool
	Err       error
}

// Explain evaluates every entry without short-circuiting the scan, for
// debugging output. It never mutates state.
func (in *Interpreter) Explain(v state.View) []Verdict {
	out := make([]Verdict, len(in.list.Entries))
	for i, e := range in.list.Entries {
		out[i].Index = i
		ok, err := rules.Holds(e.Condition, v)
		if err != nil {
			out[i].Err = err
			continue
		}
		out[i].Condition = ok
		if ok {
			_, out[i].Eligible = actions.Eligible(e.Action, v)
		}
	}
	return out
}
