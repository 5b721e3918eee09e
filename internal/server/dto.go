package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"stockbot/internal/agent"
	"stockbot/internal/catalog"
	"stockbot/internal/llm"
	"stockbot/internal/operation"
	"stockbot/internal/permission"
	"stockbot/internal/validate"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type chatRequest struct {
	Text string `json:"text"`
}

type reportRequest struct {
	Days int `json:"days,omitempty"`
}

type pendingDTO struct {
	Operation string `json:"operation"`
	Summary   string `json:"summary"`
	Prompt    string `json:"prompt"`
}

type reportDTO struct {
	Path string `json:"path"`
	URL  string `json:"url,omitempty"`
}

type replyDTO struct {
	Kind    string      `json:"kind"`
	Text    string      `json:"text"`
	Code    string      `json:"code,omitempty"`
	Pending *pendingDTO `json:"pending,omitempty"`
	Report  *reportDTO  `json:"report,omitempty"`
}

type errorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toReplyDTO(r agent.Reply) replyDTO {
	out := replyDTO{Kind: string(r.Kind), Text: r.Text, Code: errorCode(r.Err)}
	if p := r.Pending; p != nil {
		out.Pending = &pendingDTO{Operation: string(p.Op.Kind()), Summary: p.Op.String(), Prompt: p.Prompt}
	}
	if rep := r.Report; rep != nil {
		out.Report = &reportDTO{Path: rep.Path, URL: rep.URL}
	}
	return out
}

// errorCode maps the error kinds a reply can carry to stable client codes.
func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, permission.ErrDenied):
		return "permission_denied"
	case errors.Is(err, validate.ErrValidationFailed):
		return "validation_failed"
	case errors.Is(err, operation.ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, llm.ErrBackendUnavailable):
		return "backend_unavailable"
	case errors.Is(err, catalog.ErrNotFound):
		return "not_found"
	case errors.Is(err, catalog.ErrDuplicateKey):
		return "duplicate_key"
	case errors.Is(err, catalog.ErrAuditIncomplete):
		return "audit_incomplete"
	case errors.Is(err, catalog.ErrInvalidImport):
		return "invalid_import"
	case errors.Is(err, agent.ErrPendingAction):
		return "pending_action"
	case errors.Is(err, agent.ErrNoPendingAction):
		return "no_pending_action"
	case errors.Is(err, ErrUnauthorized):
		return "unauthenticated"
	}
	return "internal"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorDTO{Code: code, Message: msg})
}

// decodeBody reads a small JSON body. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
