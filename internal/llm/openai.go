package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultOpenAIBaseURL    = "https://models.github.ai/inference"
	DefaultOpenAIModel      = "gpt-4o"
	DefaultOpenAIAPIVersion = "2024-08-01-preview"
)

// OpenAIClient calls an OpenAI-compatible chat completions endpoint. The
// default target is the GitHub Models inference API.
type OpenAIClient struct {
	http  *resty.Client
	model string
}

type OpenAIOptions struct {
	BaseURL    string
	APIKey     string
	Model      string
	APIVersion string
	Timeout    time.Duration
}

func NewOpenAIClient(opts OpenAIOptions) (*OpenAIClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("llm: openai backend needs an API key (LLM_API_KEY or GITHUB_TOKEN)")
	}
	base := strings.TrimRight(firstNonEmpty(opts.BaseURL, DefaultOpenAIBaseURL), "/")
	version := firstNonEmpty(opts.APIVersion, DefaultOpenAIAPIVersion)
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cli := resty.New().
		SetBaseURL(base).
		SetAuthToken(opts.APIKey).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("api-version", version)
	return &OpenAIClient{http: cli, model: firstNonEmpty(opts.Model, DefaultOpenAIModel)}, nil
}

func (c *OpenAIClient) Name() string { return "OpenAI:" + c.model }
func (c *OpenAIClient) Close() error { return nil }

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

type chatToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatReq struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []chatTool    `json:"tools,omitempty"`
	Temperature float32       `json:"temperature"`
}

type chatResp struct {
	Choices []struct {
		Message struct {
			Content   string         `json:"content"`
			ToolCalls []chatToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

type chatErr struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenAIClient) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	body := chatReq{Model: c.model, Temperature: req.Temperature}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	for _, s := range req.Tools {
		body.Tools = append(body.Tools, chatTool{
			Type: "function",
			Function: chatFunction{
				Name:        string(s.Kind),
				Description: s.Description,
				Parameters:  s.JSONSchema(),
			},
		})
	}

	var out chatResp
	var apiErr chatErr
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return ChatResponse{}, unavailable(c.Name(), err)
	}
	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = truncate(resp.String(), 512)
		}
		return ChatResponse{}, unavailable(c.Name(), fmt.Errorf("status %s: %s", resp.Status(), msg))
	}
	if len(out.Choices) == 0 {
		return ChatResponse{}, unavailable(c.Name(), errors.New("no choices in response"))
	}

	msg := out.Choices[0].Message
	res := ChatResponse{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		args := strings.TrimSpace(tc.Function.Arguments)
		if args == "" {
			args = "{}"
		}
		res.ToolCalls = append(res.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(args),
		})
	}
	return res, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
