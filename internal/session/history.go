package session

import "github.com/bimmerbailey/advisor/internal/llm"

// Default history bounds.
const (
	DefaultHistoryRetain = 20
	DefaultHistoryWindow = 10
)

// History is an ordered conversation log bounded to a retention limit.
// It is not safe for concurrent use; Session guards it.
type History struct {
	entries []llm.Message
	retain  int
}

func newHistory(retain int) *History {
	return &History{retain: retain}
}

// Append adds messages and drops the oldest entries beyond the retention bound.
func (h *History) Append(msgs ...llm.Message) {
	h.entries = append(h.entries, msgs...)
	if over := len(h.entries) - h.retain; over > 0 {
		kept := make([]llm.Message, h.retain)
		copy(kept, h.entries[over:])
		h.entries = kept
	}
}

// Window returns a copy of the n most recent entries, oldest first.
func (h *History) Window(n int) []llm.Message {
	if n > len(h.entries) {
		n = len(h.entries)
	}
	if n <= 0 {
		return nil
	}
	out := make([]llm.Message, n)
	copy(out, h.entries[len(h.entries)-n:])
	return out
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Clear removes all entries.
func (h *History) Clear() {
	h.entries = nil
}
