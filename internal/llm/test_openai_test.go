package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stockbot/internal/operation"
)

func TestOpenAI_SendsToolsAndParsesToolCall(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if v := r.URL.Query().Get("api-version"); v != DefaultOpenAIAPIVersion {
			t.Errorf("api-version = %q", v)
		}
		if a := r.Header.Get("Authorization"); a != "Bearer secret" {
			t.Errorf("authorization = %q", a)
		}
		b, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(b, &got); err != nil {
			t.Errorf("body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":null,"tool_calls":[
			{"id":"call_1","type":"function","function":{"name":"update_price","arguments":"{\"id\":1,\"precio\":12.5}"}}]}}]}`)
	}))
	defer srv.Close()

	cli, err := NewOpenAIClient(OpenAIOptions{BaseURL: srv.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	resp, err := cli.Chat(context.Background(), ChatRequest{
		System:      "sys",
		Messages:    []Message{{Role: RoleUser, Content: "sube el precio del 1 a 12.5"}},
		Tools:       operation.Specs(),
		Temperature: 0.3,
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "update_price" {
		t.Fatalf("tool calls = %+v", resp.ToolCalls)
	}
	if string(resp.ToolCalls[0].Arguments) != `{"id":1,"precio":12.5}` {
		t.Fatalf("arguments = %s", resp.ToolCalls[0].Arguments)
	}

	if got["model"] != DefaultOpenAIModel {
		t.Errorf("model = %v", got["model"])
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 2 || msgs[0].(map[string]any)["role"] != "system" {
		t.Errorf("messages = %v", msgs)
	}
	tools, _ := got["tools"].([]any)
	if len(tools) != len(operation.Kinds()) {
		t.Errorf("tools = %d, want %d", len(tools), len(operation.Kinds()))
	}
}

func TestOpenAI_ErrorStatusIsBackendUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"code":"RateLimitReached","message":"slow down"}}`)
	}))
	defer srv.Close()

	cli, err := NewOpenAIClient(OpenAIOptions{BaseURL: srv.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = cli.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("err = %v, want ErrBackendUnavailable", err)
	}
	if !strings.Contains(err.Error(), "slow down") {
		t.Fatalf("err = %v, want api message", err)
	}
}

func TestOpenAI_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIClient(OpenAIOptions{}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestTimeout_HangSurfacesAsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	inner, err := NewOpenAIClient(OpenAIOptions{BaseURL: srv.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	cli := Wrap(inner, WithTimeout(50*time.Millisecond))
	_, err = cli.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("err = %v, want ErrBackendUnavailable", err)
	}
}
