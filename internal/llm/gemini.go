package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"

	genai "google.golang.org/genai"

	"stockbot/internal/operation"
)

// GeminiClient is a thin wrapper around the official genai client using
// function declarations for the tool contract.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if strings.TrimSpace(model) == "" {
		model = "gemini-2.0-flash"
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

func (g *GeminiClient) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Content}}})
	}
	temp := req.Temperature
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if len(req.Tools) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: functionDeclarations(req.Tools)}}
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return ChatResponse{}, unavailable(g.Name(), err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ChatResponse{}, unavailable(g.Name(), errors.New("empty candidates"))
	}

	var out ChatResponse
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if fc := part.FunctionCall; fc != nil {
			args, err := json.Marshal(fc.Args)
			if err != nil {
				log.Printf("gemini: drop function call %s: %v", fc.Name, err)
				continue
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: fc.ID, Name: fc.Name, Arguments: args})
			continue
		}
		text.WriteString(part.Text)
	}
	out.Text = text.String()
	return out, nil
}

func functionDeclarations(specs []operation.Spec) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, s := range specs {
		props := make(map[string]*genai.Schema, len(s.Params))
		for _, p := range s.Params {
			props[p.Name] = &genai.Schema{Type: schemaType(p.Type), Description: p.Description}
		}
		out = append(out, &genai.FunctionDeclaration{
			Name:        string(s.Kind),
			Description: s.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   s.Required(),
			},
		})
	}
	return out
}

func schemaType(t string) genai.Type {
	switch t {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}
