package usecase

// History is a bounded undo stack of encoded canvas states. The cursor
// points at the state currently on the canvas; pushing a new state drops
// everything after it.
type History struct {
	states [][]byte
	cursor int
	limit  int
}

// NewHistory creates a history that keeps at most limit states.
func NewHistory(limit int) *History {
	if limit < 2 {
		limit = 2
	}
	return &History{cursor: -1, limit: limit}
}

// Push records state as the current one.
func (h *History) Push(state []byte) {
	h.states = append(h.states[:h.cursor+1], state)
	if over := len(h.states) - h.limit; over > 0 {
		h.states = h.states[over:]
	}
	h.cursor = len(h.states) - 1
}

// Undo steps back and returns the state to restore.
func (h *History) Undo() ([]byte, bool) {
	if h.cursor <= 0 {
		return nil, false
	}
	h.cursor--
	return h.states[h.cursor], true
}

// Redo steps forward again after an Undo.
func (h *History) Redo() ([]byte, bool) {
	if h.cursor < 0 || h.cursor >= len(h.states)-1 {
		return nil, false
	}
	h.cursor++
	return h.states[h.cursor], true
}

// Len returns the number of stored states.
func (h *History) Len() int { return len(h.states) }

// CanUndo reports whether Undo would move the cursor.
func (h *History) CanUndo() bool { return h.cursor > 0 }

// CanRedo reports whether Redo would move the cursor.
func (h *History) CanRedo() bool { return h.cursor >= 0 && h.cursor < len(h.states)-1 }
