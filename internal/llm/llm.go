package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"stockbot/internal/operation"
)

// ErrBackendUnavailable marks any failure to get an answer from the model:
// transport errors, timeouts, non-2xx replies and empty candidates.
var ErrBackendUnavailable = errors.New("llm: model backend unavailable")

// Role of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is one model round trip: a system prompt, the recent turns
// (ending with the user's message) and the tools the model may call.
type ChatRequest struct {
	System      string
	Messages    []Message
	Tools       []operation.Spec
	Temperature float32
}

// ToolCall is a structured invocation returned by the model. Arguments are
// left raw; decoding and validation belong to the caller.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

type ChatResponse struct {
	Text      string
	ToolCalls []ToolCall
}

// ChatClient is implemented by every model backend.
type ChatClient interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	Close() error
}

// unavailable wraps err so that errors.Is(err, ErrBackendUnavailable) holds.
func unavailable(backend string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrBackendUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, backend, err)
}
