package events

import (
	"fmt"
	"strings"

	"github.com/nathoo/aplcore/types"
)

// Format renders one timeline event on a single line. name maps spell IDs
// to display names and may be nil.
func Format(ev types.Event, name func(types.SpellID) string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%8.3fs  %-14s", ev.At.Seconds(), ev.Type)
	if ev.SpellID != 0 {
		label := fmt.Sprintf("#%d", ev.SpellID)
		if name != nil {
			if n := name(ev.SpellID); n != "" {
				label = n
			}
		}
		fmt.Fprintf(&b, "  %s -> %d", label, ev.Target)
	}
	if ev.Amount != 0 {
		fmt.Fprintf(&b, "  %.1f", ev.Amount)
	}
	if ev.Crit {
		b.WriteString(" crit")
	}
	if ev.Entry >= 0 {
		fmt.Fprintf(&b, "  [entry %d]", ev.Entry)
	}
	return strings.TrimRight(b.String(), " ")
}
