package usecase

import "testing"

func state(s string) []byte { return []byte(s) }

func TestHistoryUndoRedo(t *testing.T) {
	h := NewHistory(10)
	if h.CanUndo() || h.CanRedo() {
		t.Fatal("empty history reports undo or redo")
	}

	h.Push(state("a"))
	h.Push(state("b"))
	h.Push(state("c"))

	got, ok := h.Undo()
	if !ok || string(got) != "b" {
		t.Fatalf("Undo = %q, %v; want b, true", got, ok)
	}
	got, ok = h.Undo()
	if !ok || string(got) != "a" {
		t.Fatalf("Undo = %q, %v; want a, true", got, ok)
	}
	if _, ok := h.Undo(); ok {
		t.Error("Undo past the first state succeeded")
	}

	got, ok = h.Redo()
	if !ok || string(got) != "b" {
		t.Fatalf("Redo = %q, %v; want b, true", got, ok)
	}
}

func TestHistoryPushDropsRedoTail(t *testing.T) {
	h := NewHistory(10)
	h.Push(state("a"))
	h.Push(state("b"))
	h.Push(state("c"))
	h.Undo()
	h.Undo()

	h.Push(state("d"))
	if h.CanRedo() {
		t.Error("CanRedo after Push = true, want false")
	}
	if h.Len() != 2 {
		t.Errorf("Len = %d, want 2", h.Len())
	}
	got, _ := h.Undo()
	if string(got) != "a" {
		t.Errorf("Undo = %q, want a", got)
	}
}

func TestHistoryLimit(t *testing.T) {
	h := NewHistory(3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		h.Push(state(s))
	}
	if h.Len() != 3 {
		t.Fatalf("Len = %d, want 3", h.Len())
	}

	var seen []string
	for {
		got, ok := h.Undo()
		if !ok {
			break
		}
		seen = append(seen, string(got))
	}
	if len(seen) != 2 || seen[0] != "d" || seen[1] != "c" {
		t.Errorf("undo sequence = %v, want [d c]", seen)
	}
}

func TestHistoryMinimumLimit(t *testing.T) {
	h := NewHistory(0)
	h.Push(state("a"))
	h.Push(state("b"))
	h.Push(state("c"))
	if h.Len() != 2 {
		t.Errorf("Len = %d, want 2", h.Len())
	}
	if !h.CanUndo() {
		t.Error("CanUndo = false, want true")
	}
}
