package tui

import "testing"

func TestHistory_PushAndPrev(t *testing.T) {
	h := NewHistory(5)
	h.Push("step")
	h.Push("run 30s")
	h.Push("explain")

	for _, want := range []string{"explain", "run 30s", "step", "step"} {
		prev, ok := h.Prev()
		if !ok || prev != want {
			t.Errorf("Prev() = %q (ok=%v), want %q", prev, ok, want)
		}
	}
}

func TestHistory_Next(t *testing.T) {
	h := NewHistory(5)
	h.Push("step")
	h.Push("next")

	h.Prev() // "next"
	h.Prev() // "step"

	next, ok := h.Next()
	if !ok || next != "next" {
		t.Errorf("expected 'next', got %q (ok=%v)", next, ok)
	}

	_, ok = h.Next()
	if ok {
		t.Error("expected false when past newest entry")
	}
}

func TestHistory_Empty(t *testing.T) {
	h := NewHistory(5)
	if _, ok := h.Prev(); ok {
		t.Error("expected false on empty history")
	}
	if _, ok := h.Next(); ok {
		t.Error("expected false on empty history")
	}
}

func TestHistory_MaxSize(t *testing.T) {
	h := NewHistory(2)
	h.Push("a")
	h.Push("b")
	h.Push("c") // "a" evicted

	for _, want := range []string{"c", "b", "b"} {
		if prev, _ := h.Prev(); prev != want {
			t.Errorf("Prev() = %q, want %q", prev, want)
		}
	}
}

func TestHistory_SkipsDuplicatesAndBlanks(t *testing.T) {
	h := NewHistory(5)
	h.Push("step")
	h.Push("step")
	h.Push("")
	h.Push("step")

	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1", h.Len())
	}
}

func TestHistory_ResetCursor(t *testing.T) {
	h := NewHistory(5)
	h.Push("step")
	h.Push("state")

	h.Prev() // "state"
	h.ResetCursor()

	// After reset, Prev starts from the end again.
	prev, ok := h.Prev()
	if !ok || prev != "state" {
		t.Errorf("expected 'state' after reset, got %q", prev)
	}
}

func TestHistory_WrapsAround(t *testing.T) {
	h := NewHistory(3)
	for _, cmd := range []string{"a", "b", "c", "d", "e"} {
		h.Push(cmd)
	}
	if h.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", h.Len())
	}
	for _, want := range []string{"e", "d", "c", "c"} {
		if prev, _ := h.Prev(); prev != want {
			t.Errorf("Prev() = %q, want %q", prev, want)
		}
	}
	for _, want := range []string{"d", "e"} {
		if next, ok := h.Next(); !ok || next != want {
			t.Errorf("Next() = %q (ok=%v), want %q", next, ok, want)
		}
	}
	// A repeat of the newest entry after wrapping is still skipped.
	h.ResetCursor()
	h.Push("e")
	if prev, _ := h.Prev(); prev != "e" || h.Len() != 3 {
		t.Errorf("after repeat: Prev() = %q, Len() = %d", prev, h.Len())
	}
}
