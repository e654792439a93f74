package llms

import (
	"slices"
	"sync"
)

// Turn is a single answered query.
type Turn struct {
	Query  string
	Answer string
}

// History keeps the most recent turns of a conversation so that follow-up
// questions can be answered in context.
type History struct {
	mu    sync.Mutex
	limit int
	turns []Turn
}

const DefaultHistoryLimit = 6

// NewHistory returns a history holding at most limit turns. A non-positive
// limit falls back to [DefaultHistoryLimit].
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

func (h *History) Add(turn Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, turn)
	if overflow := len(h.turns) - h.limit; overflow > 0 {
		h.turns = slices.Delete(h.turns, 0, overflow)
	}
}

func (h *History) Turns() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.turns)
}

func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}
