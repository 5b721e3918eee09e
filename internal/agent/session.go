package agent

import (
	"time"

	"stockbot/internal/llm"
	"stockbot/internal/operation"
)

// maxTranscript bounds the turns kept per session; only the tail is ever sent
// to the model.
const maxTranscript = 100

// PendingAction is a proposed mutation waiting for an explicit yes or no.
type PendingAction struct {
	Op        operation.Operation
	Actor     string
	Prompt    string
	CreatedAt time.Time
}

// Session is the per-conversation state. It owns the single pending action
// slot; callers must not use one Session from two goroutines at once.
type Session struct {
	ID       string
	Username string
	Role     string
	History  []llm.Message
	Pending  *PendingAction
}

func NewSession(id, username, role string) *Session {
	return &Session{ID: id, Username: username, Role: role}
}

func (s *Session) record(role llm.Role, text string) {
	s.History = append(s.History, llm.Message{Role: role, Content: text})
	if over := len(s.History) - maxTranscript; over > 0 {
		s.History = append([]llm.Message(nil), s.History[over:]...)
	}
}

// window returns the last n turns.
func (s *Session) window(n int) []llm.Message {
	h := s.History
	if n > 0 && len(h) > n {
		h = h[len(h)-n:]
	}
	out := make([]llm.Message, len(h))
	copy(out, h)
	return out
}
