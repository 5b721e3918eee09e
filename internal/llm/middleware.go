package llm

import (
	"context"
	"errors"
	"log"
	"time"
)

// Middleware decorates a ChatClient with a cross-cutting concern.
type Middleware func(ChatClient) ChatClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner ChatClient, mws ...Middleware) ChatClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Logging --------

// WithLogging logs request size, tool calls and errors. Provide a custom logger
// or nil to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next ChatClient) ChatClient {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next ChatClient
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }
func (l *logging) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	size := len(req.System)
	for _, m := range req.Messages {
		size += len(m.Content)
	}
	l.log.Printf("LLM request (%s): %d messages, %d tools, %d bytes", l.next.Name(), len(req.Messages), len(req.Tools), size)
	start := time.Now()
	resp, err := l.next.Chat(ctx, req)
	if err != nil {
		l.log.Printf("LLM error (%s) after %s: %v", l.next.Name(), time.Since(start).Round(time.Millisecond), err)
		return resp, err
	}
	for _, tc := range resp.ToolCalls {
		l.log.Printf("LLM tool call (%s): %s %s", l.next.Name(), tc.Name, string(tc.Arguments))
	}
	return resp, nil
}

// -------- Timeout --------

// WithTimeout bounds every call. The model round trip is never retried, so a
// hang surfaces as ErrBackendUnavailable instead of blocking the session.
func WithTimeout(d time.Duration) Middleware {
	return func(next ChatClient) ChatClient {
		if d <= 0 {
			return next
		}
		return &timeout{next: next, d: d}
	}
}

type timeout struct {
	next ChatClient
	d    time.Duration
}

func (t *timeout) Name() string { return t.next.Name() }
func (t *timeout) Close() error { return t.next.Close() }
func (t *timeout) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	resp, err := t.next.Chat(ctx, req)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return resp, unavailable(t.next.Name(), ctx.Err())
	}
	return resp, err
}

// -------- Rate limiting --------

// RateLimit limits request rate with a token bucket. rps <= 0 disables it.
func RateLimit(rps float64, burst int) Middleware {
	return func(next ChatClient) ChatClient {
		rl := newRPSLimiter(rps, burst)
		if rl == nil {
			return next
		}
		return &rateLimited{next: next, rl: rl}
	}
}

type rateLimited struct {
	next ChatClient
	rl   *rpsLimiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.next.Close()
}
func (c *rateLimited) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return ChatResponse{}, unavailable(c.next.Name(), err)
	}
	return c.next.Chat(ctx, req)
}

// -------- Metrics --------

// Recorder receives one observation per model call.
type Recorder interface {
	ObserveModelCall(backend, outcome string, elapsed time.Duration)
}

// Call outcomes passed to Recorder.
const (
	OutcomeText  = "text"
	OutcomeTool  = "tool_call"
	OutcomeError = "error"
)

// WithMetrics reports every call's outcome and latency to rec.
func WithMetrics(rec Recorder) Middleware {
	return func(next ChatClient) ChatClient {
		if rec == nil {
			return next
		}
		return &measured{next: next, rec: rec}
	}
}

type measured struct {
	next ChatClient
	rec  Recorder
}

func (m *measured) Name() string { return m.next.Name() }
func (m *measured) Close() error { return m.next.Close() }
func (m *measured) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	start := time.Now()
	resp, err := m.next.Chat(ctx, req)
	outcome := OutcomeText
	switch {
	case err != nil:
		outcome = OutcomeError
	case len(resp.ToolCalls) > 0:
		outcome = OutcomeTool
	}
	m.rec.ObserveModelCall(m.next.Name(), outcome, time.Since(start))
	return resp, err
}
