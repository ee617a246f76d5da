package session

import (
	"sync"

	"gemini-chat/internal/models"
)

// History is an append-only, ordered conversation. Turns are never edited or
// removed; readers get copies.
type History struct {
	mu    sync.RWMutex
	turns []models.ChatTurn
}

func (h *History) Append(role models.Role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, models.ChatTurn{Role: role, Content: content})
}

// Turns returns a snapshot of the conversation in chronological order.
func (h *History) Turns() []models.ChatTurn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.ChatTurn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}
