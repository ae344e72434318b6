package tui

// History is a fixed-size ring of submitted commands with a cursor for
// Up/Down navigation. The oldest command is overwritten once it is full.
type History struct {
	slots  []string
	start  int // index of the oldest command
	n      int // commands stored
	cursor int // -1 = not navigating, else offset from oldest
}

// NewHistory creates a history holding at most size commands.
func NewHistory(size int) *History {
	if size < 1 {
		size = 1
	}
	return &History{slots: make([]string, size), cursor: -1}
}

// at returns the i-th command counting from the oldest.
func (h *History) at(i int) string {
	return h.slots[(h.start+i)%len(h.slots)]
}

// Push records a command. Blank commands and repeats of the newest one
// are skipped.
func (h *History) Push(cmd string) {
	if cmd == "" || (h.n > 0 && h.at(h.n-1) == cmd) {
		return
	}
	if h.n < len(h.slots) {
		h.slots[(h.start+h.n)%len(h.slots)] = cmd
		h.n++
		return
	}
	h.slots[h.start] = cmd
	h.start = (h.start + 1) % len(h.slots)
}

// Len returns the number of stored commands.
func (h *History) Len() int { return h.n }

// Prev moves toward older commands, stopping at the oldest.
// Returns ("", false) if history is empty.
func (h *History) Prev() (string, bool) {
	if h.n == 0 {
		return "", false
	}
	switch {
	case h.cursor == -1:
		h.cursor = h.n - 1
	case h.cursor > 0:
		h.cursor--
	}
	return h.at(h.cursor), true
}

// Next moves toward newer commands. Moving past the newest returns
// ("", false) and leaves navigation, back to fresh input.
func (h *History) Next() (string, bool) {
	if h.cursor == -1 {
		return "", false
	}
	h.cursor++
	if h.cursor >= h.n {
		h.cursor = -1
		return "", false
	}
	return h.at(h.cursor), true
}

// ResetCursor leaves navigation mode.
func (h *History) ResetCursor() {
	h.cursor = -1
}
