package editor

import "github.com/ritzau/siteflow/pkg/model"

// MaxHistoryEntries bounds the undo ring. The oldest snapshot is evicted
// once the limit is reached.
const MaxHistoryEntries = 50

// History is a bounded ring of full graph snapshots with a cursor. Pushing
// after an undo truncates the abandoned redo tail. Undo and redo past the
// bounds are clamped, never errors.
type History struct {
	entries []model.Graph
	cursor  int
}

// NewHistory creates a history seeded with an initial snapshot.
func NewHistory(initial model.Graph) *History {
	return &History{
		entries: []model.Graph{initial.Clone()},
		cursor:  0,
	}
}

// Push records a snapshot after a discrete structural edit.
func (h *History) Push(g model.Graph) {
	h.entries = append(h.entries[:h.cursor+1], g.Clone())
	if len(h.entries) > MaxHistoryEntries {
		h.entries = h.entries[len(h.entries)-MaxHistoryEntries:]
	}
	h.cursor = len(h.entries) - 1
}

// Undo moves the cursor back and returns that snapshot. The second return
// is false when already at the earliest retained entry.
func (h *History) Undo() (model.Graph, bool) {
	if h.cursor == 0 {
		return model.Graph{}, false
	}
	h.cursor--
	return h.entries[h.cursor].Clone(), true
}

// Redo moves the cursor forward and returns that snapshot. The second return
// is false when already at the newest entry.
func (h *History) Redo() (model.Graph, bool) {
	if h.cursor >= len(h.entries)-1 {
		return model.Graph{}, false
	}
	h.cursor++
	return h.entries[h.cursor].Clone(), true
}

// Len returns the number of retained snapshots.
func (h *History) Len() int {
	return len(h.entries)
}
