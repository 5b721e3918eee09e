package llm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// FakeClient replays scripted responses in order and records every request,
// for tests and offline runs. With an empty script it echoes a fixed text.
type FakeClient struct {
	mu       sync.Mutex
	script   []fakeStep
	requests []ChatRequest
}

type fakeStep struct {
	resp ChatResponse
	err  error
}

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

// ReplyText queues a plain text answer.
func (f *FakeClient) ReplyText(text string) *FakeClient {
	return f.push(fakeStep{resp: ChatResponse{Text: text}})
}

// ReplyTool queues a single tool call. args is marshalled unless it is
// already a json.RawMessage or string.
func (f *FakeClient) ReplyTool(name string, args any) *FakeClient {
	var raw json.RawMessage
	switch v := args.(type) {
	case json.RawMessage:
		raw = v
	case string:
		raw = json.RawMessage(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return f.push(fakeStep{err: err})
		}
		raw = b
	}
	return f.push(fakeStep{resp: ChatResponse{ToolCalls: []ToolCall{{ID: "call_fake", Name: name, Arguments: raw}}}})
}

// Fail queues an error; it is wrapped as ErrBackendUnavailable.
func (f *FakeClient) Fail(err error) *FakeClient {
	if err == nil {
		err = errors.New("fake failure")
	}
	return f.push(fakeStep{err: unavailable(f.Name(), err)})
}

func (f *FakeClient) push(s fakeStep) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append(f.script, s)
	return f
}

func (f *FakeClient) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return ChatResponse{}, unavailable(f.Name(), err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.script) == 0 {
		return ChatResponse{Text: "I can look up products, update stock or prices, and generate reports."}, nil
	}
	step := f.script[0]
	f.script = f.script[1:]
	return step.resp, step.err
}

// Requests returns a copy of every request received so far.
func (f *FakeClient) Requests() []ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ChatRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// Calls is the number of requests received.
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}
