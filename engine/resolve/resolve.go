// Package resolve maps spell references written in rotation files to
// catalog IDs.
package resolve

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nathoo/aplcore/engine/state"
	"github.com/nathoo/aplcore/types"
)

// AmbiguityError indicates multiple spells matched a name.
type AmbiguityError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	names := strings.Join(e.Candidates, ", ")
	return fmt.Sprintf("ambiguous spell %q (%s)", e.Name, names)
}

// NotFoundError indicates no spell matched a reference.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown spell %q", e.Name)
}

// Spell resolves a reference to a catalog ID. A reference is a numeric ID,
// a full spell name, or a single word of a spell name, matched case
// insensitively. "power_word_shield" matches "Power Word: Shield".
func Spell(defs *state.Defs, ref string) (types.SpellID, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, &NotFoundError{Name: ref}
	}

	// 1. Numeric ID.
	if n, err := strconv.ParseInt(ref, 10, 32); err == nil {
		id := types.SpellID(n)
		if _, ok := defs.Spells[id]; !ok {
			return 0, &NotFoundError{Name: ref}
		}
		return id, nil
	}

	// 2. Exact name wins over partial matches.
	refLower := strings.ToLower(ref)
	var exact, partial []types.SpellID
	for id, sp := range defs.Spells {
		switch matchName(sp.Name, refLower) {
		case matchExact:
			exact = append(exact, id)
		case matchWord:
			partial = append(partial, id)
		}
	}
	matches := exact
	if len(matches) == 0 {
		matches = partial
	}

	switch len(matches) {
	case 0:
		return 0, &NotFoundError{Name: ref}
	case 1:
		return matches[0], nil
	default:
		sort.Slice(matches, func(i, j int) bool { return matches[i] < matches[j] })
		names := make([]string, len(matches))
		for i, id := range matches {
			names[i] = defs.Spells[id].Name
		}
		return 0, &AmbiguityError{Name: ref, Candidates: names}
	}
}

// Func adapts Spell to the resolver signature used by the condition parser.
func Func(defs *state.Defs) func(string) (types.SpellID, error) {
	return func(ref string) (types.SpellID, error) { return Spell(defs, ref) }
}

type match int

const (
	matchNone match = iota
	matchExact
	matchWord
)

func matchName(name, refLower string) match {
	nameLower := strings.ToLower(name)
	if nameLower == refLower || normalize(nameLower) == normalize(refLower) {
		return matchExact
	}
	// Word-based partial match: "shield" matches "power word: shield".
	for _, word := range strings.Fields(normalize(nameLower)) {
		if word == refLower {
			return matchWord
		}
	}
	return matchNone
}

// normalize folds punctuation and underscores to single spaces.
func normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '_', ':', '-', '\'':
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
