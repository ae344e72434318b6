package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// clock renders a simulated time as seconds with millisecond precision.
// 12500ms -> "12.500s".
func clock(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// perSecond divides x by the elapsed time, 0 before the clock starts.
func perSecond(x float64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return x / elapsed.Seconds()
}

// renderStatusBar produces a full-width inverted status line showing the
// clock, resources and what the actor is doing on the left, and output
// rates on the right.
func (m Model) renderStatusBar() string {
	s := m.sched.State
	v := m.sched.View()

	left := fmt.Sprintf(" %s | %s / %s", m.listName(), clock(s.Now), clock(s.Horizon))
	if v.MaxMana() > 0 {
		left += fmt.Sprintf(" | Mana %.0f/%.0f", v.Mana(), v.MaxMana())
	}
	switch {
	case v.Casting():
		left += " | Casting " + m.spellName(s.Casting)
	case !v.GCDReady():
		left += " | GCD"
	}

	t := s.Totals
	right := fmt.Sprintf("Casts:%d ", t.Casts)
	rates := fmt.Sprintf("DPS:%.0f HPS:%.0f | Casts:%d ",
		perSecond(t.Damage, s.Now), perSecond(t.Healing+t.Absorb, s.Now), t.Casts)
	if lipgloss.Width(left)+lipgloss.Width(rates)+2 < m.width {
		right = rates
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	if m.sched.Done() {
		return styleStatusDone.Width(m.width).Render(bar)
	}
	return styleStatusBar.Width(m.width).Render(bar)
}
