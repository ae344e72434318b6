package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/aplcore/types"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleStatusDone = styleStatusBar.
			Background(lipgloss.Color("22"))

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	stylePlain = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleCast = lipgloss.NewStyle().
			Foreground(lipgloss.Color("117"))

	styleDamage = lipgloss.NewStyle().
			Foreground(lipgloss.Color("209"))

	styleHeal = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114"))

	styleNext = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228")).
			Bold(true)

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	styleEcho = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindPlain lineKind = iota
	kindCast
	kindDamage
	kindHeal
	kindNext
	kindSystem
	kindError
	kindTrace
)

// classifyLine determines what kind of output line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[Run failed"),
		strings.HasPrefix(line, "! "):
		return kindError
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case strings.HasPrefix(line, "> "):
		return kindNext
	}
	if t, ok := eventType(line); ok {
		switch t {
		case types.EventCastStart, types.EventCastComplete:
			return kindCast
		case types.EventDamage, types.EventDotApplied, types.EventDotTick:
			return kindDamage
		case types.EventHeal, types.EventShield:
			return kindHeal
		}
	}
	return kindPlain
}

// eventType extracts the event type from a formatted timeline line
// ("  12.500s  damage  ...").
func eventType(line string) (types.EventType, bool) {
	f := strings.Fields(line)
	if len(f) < 2 || !strings.HasSuffix(f[0], "s") {
		return "", false
	}
	if _, err := strconv.ParseFloat(strings.TrimSuffix(f[0], "s"), 64); err != nil {
		return "", false
	}
	return types.EventType(f[1]), true
}
