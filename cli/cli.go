// Package cli provides a line-oriented stepping debugger for a single
// simulation run: step through decisions, inspect state and explain why
// an entry did or did not fire.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nathoo/aplcore/engine"
	"github.com/nathoo/aplcore/engine/events"
	"github.com/nathoo/aplcore/engine/replay"
	"github.com/nathoo/aplcore/engine/state"
	"github.com/nathoo/aplcore/report"
	"github.com/nathoo/aplcore/types"
)

// CLI handles terminal interaction with the user.
type CLI struct {
	Sched     *engine.Scheduler
	Defs      *state.Defs
	In        io.Reader
	Out       io.Writer
	SaveDir   string
	Trace     bool
	EchoInput bool   // echo each input line after the prompt (for script playback)
	lastCmd   string // for "again"/"g" repeat
}

// New creates a CLI wired to the given scheduler.
func New(s *engine.Scheduler) *CLI {
	home, _ := os.UserHomeDir()
	return &CLI{
		Sched:   s,
		Defs:    s.Defs,
		In:      os.Stdin,
		Out:     os.Stdout,
		SaveDir: filepath.Join(home, ".aplsim", "runs"),
	}
}

// Run starts the command loop: prompt, input, dispatch, output.
func (c *CLI) Run() {
	list := c.Sched.Interpreter().List()
	c.printLine(fmt.Sprintf("Rotation %q: %d entries, horizon %v, seed %d.",
		list.Name, len(list.Entries), c.Sched.State.Horizon, c.Sched.State.RNGSeed))
	c.printLine("Type /help for commands.")

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}
		if c.Exec(input) {
			return // /quit
		}
	}
}

// Exec runs one command line and reports whether it asked to quit.
func (c *CLI) Exec(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}
	if strings.HasPrefix(input, "/") {
		return c.handleMeta(input)
	}

	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if c.lastCmd == "" {
			c.printLine("Nothing to repeat.")
			return false
		}
		input = c.lastCmd
	} else {
		c.lastCmd = input
	}
	c.dispatch(input)
	return false
}

func (c *CLI) dispatch(input string) {
	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "step", "s":
		n := 1
		if arg != "" {
			v, err := strconv.Atoi(arg)
			if err != nil || v < 1 {
				c.printSystem(fmt.Sprintf("Bad step count %q.", arg))
				return
			}
			n = v
		}
		c.stepWhile(func(int, engine.Tick) bool { return true }, n, true)

	case "next", "n":
		c.stepWhile(func(_ int, t engine.Tick) bool { return !t.Decision.Matched() }, -1, true)

	case "run", "r":
		more := func(int, engine.Tick) bool { return true }
		if arg != "" {
			until, err := time.ParseDuration(arg)
			if err != nil {
				c.printSystem(fmt.Sprintf("Bad time %q: %v", arg, err))
				return
			}
			more = func(int, engine.Tick) bool { return c.Sched.State.Now < until }
		}
		c.stepWhile(more, -1, c.Trace)
		c.cmdTotals()

	case "state":
		c.cmdState()

	case "explain", "why":
		c.cmdExplain()

	case "list", "ls":
		c.cmdList()

	case "log":
		n := 10
		if v, err := strconv.Atoi(arg); err == nil && v > 0 {
			n = v
		}
		c.cmdLog(n)

	case "totals":
		c.cmdTotals()

	default:
		c.printLine(fmt.Sprintf("Unknown command %q. Type /help for commands.", cmd))
	}
}

// stepWhile steps until more returns false, limit ticks have run (when
// positive), the run ends or it fails.
func (c *CLI) stepWhile(more func(i int, t engine.Tick) bool, limit int, show bool) {
	for i := 0; limit < 0 || i < limit; i++ {
		tick, err := c.Sched.Step()
		if err != nil {
			c.printSystem(fmt.Sprintf("Run failed: %v", err))
			return
		}
		if tick.Done {
			c.printSystem(fmt.Sprintf("Run complete at %v.", c.Sched.State.Now))
			return
		}
		if show {
			c.printTick(tick)
		}
		if !more(i, tick) {
			return
		}
	}
}

// handleMeta dispatches meta-commands. Returns true if the CLI should exit.
func (c *CLI) handleMeta(input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/save":
		c.cmdSave(arg)

	case "/export":
		c.cmdExport(arg)

	case "/help":
		c.cmdHelp()

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) outPath(name, ext string) (string, error) {
	if name == "" {
		name = c.Sched.Interpreter().List().Name
	}
	if name == "" {
		name = "run"
	}
	if err := os.MkdirAll(c.SaveDir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(c.SaveDir, name+ext), nil
}

func (c *CLI) cmdSave(name string) {
	data, err := replay.Save(replay.FromRun(c.Sched))
	if err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	path, err := c.outPath(name, ".json")
	if err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Run record saved to %s.", path))
}

func (c *CLI) cmdExport(name string) {
	path, err := c.outPath(name, ".xlsx")
	if err != nil {
		c.printSystem(fmt.Sprintf("Export failed: %v", err))
		return
	}
	if err := report.WriteRun(path, c.Sched.Result(), c.Defs); err != nil {
		c.printSystem(fmt.Sprintf("Export failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Workbook written to %s.", path))
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /save [name]    Save a run record for replay checks",
		"  /export [name]  Write the timeline as an XLSX workbook",
		"  /trace          Toggle queue trace output",
		"  /help           Show this help",
		"  /quit           Exit",
		"",
		"Debugger:",
		"  step [n] (s)    Process the next n queued items",
		"  next (n)        Step until an entry executes",
		"  run [t] (r)     Run to time t (e.g. 30s) or to the horizon",
		"  state           Show time, resources, cooldowns and instances",
		"  explain (why)   Show each entry's condition and eligibility now",
		"  list (ls)       Show the priority list",
		"  log [n]         Show the last n events",
		"  totals          Show output so far",
		"  again (g)       Repeat the last command",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) cmdState() {
	v := c.Sched.View()
	s := c.Sched.State
	c.printSystem(fmt.Sprintf("Time: %v / %v", v.Now(), v.Horizon()))
	c.printSystem(fmt.Sprintf("Decisions: %d, pending items: %d", s.Decisions, c.Sched.Pending()))
	if v.MaxMana() > 0 {
		c.printSystem(fmt.Sprintf("Mana: %.0f / %.0f", v.Mana(), v.MaxMana()))
	}
	if v.Casting() {
		c.printSystem(fmt.Sprintf("Casting: %s until %v", c.spellName(s.Casting), s.CastingUntil))
	}
	if !v.GCDReady() {
		c.printSystem(fmt.Sprintf("GCD ready at %v", s.GCDReadyAt))
	}

	for _, id := range c.spellIDs() {
		if cd := v.CooldownRemaining(id); cd > 0 {
			c.printSystem(fmt.Sprintf("Cooldown: %s %v", c.spellName(id), cd))
		}
		targets := make([]int, 0, len(s.Instances[id]))
		for target := range s.Instances[id] {
			targets = append(targets, target)
		}
		sort.Ints(targets)
		for _, target := range targets {
			if left := v.InstanceRemaining(id, target); left > 0 {
				c.printSystem(fmt.Sprintf("Active: %s on %d, %v left", c.spellName(id), target, left))
			}
		}
	}
	if len(s.Sequences) > 0 {
		names := make([]string, 0, len(s.Sequences))
		for n := range s.Sequences {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			c.printSystem(fmt.Sprintf("Sequence %s at step %d", n, s.Sequences[n]))
		}
	}
}

func (c *CLI) cmdExplain() {
	if c.Sched.View().Busy() {
		c.printSystem("Actor is busy; no entry can run now.")
	}
	list := c.Sched.Interpreter().List()
	first := true
	for _, vd := range c.Sched.Interpreter().Explain(c.Sched.View()) {
		mark := " "
		switch {
		case vd.Err != nil:
			mark = "!"
		case vd.Condition && vd.Eligible && first:
			mark = ">"
			first = false
		}
		status := "condition false"
		switch {
		case vd.Err != nil:
			status = "error: " + vd.Err.Error()
		case vd.Condition && vd.Eligible:
			status = "ready"
		case vd.Condition:
			status = "not eligible"
		}
		c.printLine(fmt.Sprintf("%s %2d  %-40s %s", mark, vd.Index, c.describeAction(list.Entries[vd.Index].Action), status))
	}
}

func (c *CLI) cmdList() {
	for i, e := range c.Sched.Interpreter().List().Entries {
		cond := "always"
		if e.Condition != nil {
			cond = "if " + string(e.Condition.Type)
		}
		c.printLine(fmt.Sprintf("%2d  %-40s %s", i, c.describeAction(e.Action), cond))
	}
}

func (c *CLI) cmdLog(n int) {
	evs := c.Sched.Result().Events
	if len(evs) > n {
		evs = evs[len(evs)-n:]
	}
	for _, ev := range evs {
		c.printLine(events.Format(ev, c.spellName))
	}
}

func (c *CLI) cmdTotals() {
	res := c.Sched.Result()
	t := res.Totals
	secs := res.End.Seconds()
	per := func(x float64) float64 {
		if secs <= 0 {
			return 0
		}
		return x / secs
	}
	c.printSystem(fmt.Sprintf("At %v: %d casts, %.0f damage (%.1f/s), %.0f healing (%.1f/s), %.0f absorb (%.1f/s)",
		res.End, t.Casts, t.Damage, per(t.Damage), t.Healing, per(t.Healing), t.Absorb, per(t.Absorb)))
}

func (c *CLI) printTick(tick engine.Tick) {
	if c.Trace {
		c.printLine(fmt.Sprintf("[trace] pop %s at %v", tick.Item.Kind, tick.At))
		if tick.Decision.Idle {
			c.printLine("[trace] actor busy")
		} else if !tick.Decision.Matched() && tick.Item.Kind == events.KindDecision {
			c.printLine("[trace] no entry matched")
		}
	}
	for _, ev := range tick.Events {
		c.printLine(events.Format(ev, c.spellName))
	}
}

func (c *CLI) describeAction(a types.Action) string {
	switch a.Type {
	case types.ActionCastSpell:
		return fmt.Sprintf("cast %s", c.spellName(a.SpellID))
	case types.ActionMultiDot, types.ActionMultiShield:
		return fmt.Sprintf("%s %s (max %d, overlap %v)", a.Type, c.spellName(a.SpellID), a.MaxInstances, a.MaxOverlap)
	case types.ActionWait:
		return fmt.Sprintf("wait %v", a.Duration)
	case types.ActionSequence:
		return fmt.Sprintf("sequence %s (%d steps)", a.Name, len(a.Actions))
	case types.ActionResetSequence:
		return fmt.Sprintf("reset %s", a.Name)
	}
	return string(a.Type)
}

func (c *CLI) spellName(id types.SpellID) string {
	if sp, ok := c.Defs.Spells[id]; ok && sp.Name != "" {
		return sp.Name
	}
	return fmt.Sprintf("#%d", id)
}

func (c *CLI) spellIDs() []types.SpellID {
	ids := make([]types.SpellID, 0, len(c.Defs.Spells))
	for id := range c.Defs.Spells {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
