package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"stockbot/internal/agent"
	"stockbot/internal/audit"
	"stockbot/internal/catalog"
	"stockbot/internal/operation"
	"stockbot/internal/permission"
	"stockbot/internal/users"
)

const defaultHistoryLimit = 50

type Authenticator interface {
	Authenticate(username, password string) (users.User, error)
}

// Catalog is what the REST endpoints read and import through.
type Catalog interface {
	Load(ctx context.Context) (catalog.Catalog, error)
	Find(ctx context.Context, query string) ([]catalog.Product, error)
	Import(ctx context.Context, actor string, rows []catalog.Product) (catalog.ImportResult, error)
}

type Handler struct {
	Agent    *agent.Agent
	Users    Authenticator
	Sessions *Sessions
	Catalog  Catalog
	History  audit.Store
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed_input", "invalid JSON body")
		return
	}
	u, err := h.Users.Authenticate(req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, users.ErrInvalidCredentials) {
			log.Printf("server: login %q: %v", req.Username, err)
		}
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "wrong username or password")
		return
	}
	role := permission.Normalize(u.Role)
	token, _ := h.Sessions.Create(u.Username, role)
	log.Printf("server: %s logged in as %s", u.Username, role)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Username: u.Username, Role: role})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Delete(bearerToken(r))
	w.WriteHeader(http.StatusNoContent)
}

// withConversation resolves the bearer token and runs fn with the
// conversation locked.
func (h *Handler) withConversation(w http.ResponseWriter, r *http.Request, fn func(sess *agent.Session)) {
	c, err := h.Sessions.Get(bearerToken(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "log in first")
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.sess)
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed_input", "invalid JSON body")
		return
	}
	h.withConversation(w, r, func(sess *agent.Session) {
		writeJSON(w, http.StatusOK, toReplyDTO(h.Agent.Handle(r.Context(), sess, req.Text)))
	})
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	h.withConversation(w, r, func(sess *agent.Session) {
		writeJSON(w, http.StatusOK, toReplyDTO(h.Agent.Confirm(r.Context(), sess)))
	})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.withConversation(w, r, func(sess *agent.Session) {
		writeJSON(w, http.StatusOK, toReplyDTO(h.Agent.Cancel(sess)))
	})
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed_input", "invalid JSON body")
		return
	}
	h.withConversation(w, r, func(sess *agent.Session) {
		reply := h.Agent.Submit(r.Context(), sess, operation.GenerateReport{Days: req.Days})
		writeJSON(w, statusFor(reply.Err), toReplyDTO(reply))
	})
}

func (h *Handler) products(w http.ResponseWriter, r *http.Request) {
	h.withConversation(w, r, func(sess *agent.Session) {
		if err := permission.Check(sess.Role, operation.KindLookupProduct); err != nil {
			writeError(w, http.StatusForbidden, "permission_denied", err.Error())
			return
		}
		var (
			products []catalog.Product
			err      error
		)
		if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
			products, err = h.Catalog.Find(r.Context(), q)
		} else {
			var doc catalog.Catalog
			doc, err = h.Catalog.Load(r.Context())
			products = doc.Products
		}
		if err != nil {
			log.Printf("server: list products: %v", err)
			writeError(w, http.StatusInternalServerError, errorCode(err), "could not read the catalog")
			return
		}
		if products == nil {
			products = []catalog.Product{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"productos": products})
	})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	h.withConversation(w, r, func(_ *agent.Session) {
		events, err := h.History.Load(r.Context())
		if err != nil {
			log.Printf("server: load history: %v", err)
			writeError(w, http.StatusInternalServerError, "internal", "could not read the history")
			return
		}
		q := r.URL.Query()
		f := audit.Filter{
			Actor:  strings.TrimSpace(q.Get("user")),
			Action: audit.Action(strings.TrimSpace(q.Get("action"))),
			Field:  strings.TrimSpace(q.Get("field")),
			Text:   q.Get("q"),
		}
		if id, err := strconv.Atoi(q.Get("product")); err == nil {
			f.ProductID = id
		}
		limit := defaultHistoryLimit
		if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
			limit = n
		}
		events = audit.Recent(f.Apply(events), limit)
		writeJSON(w, http.StatusOK, audit.Document{Events: events})
	})
}

// importProducts upserts a whole catalog document. Only roles that may both
// add and update products can import.
func (h *Handler) importProducts(w http.ResponseWriter, r *http.Request) {
	var doc catalog.Catalog
	if err := decodeBody(r, &doc); err != nil {
		writeError(w, http.StatusBadRequest, "malformed_input", "invalid JSON body")
		return
	}
	h.withConversation(w, r, func(sess *agent.Session) {
		for _, k := range []operation.Kind{operation.KindAddProduct, operation.KindUpdateProduct} {
			if err := permission.Check(sess.Role, k); err != nil {
				writeError(w, http.StatusForbidden, "permission_denied", err.Error())
				return
			}
		}
		res, err := h.Catalog.Import(r.Context(), sess.Username, doc.Products)
		var ie *catalog.ImportError
		switch {
		case errors.As(err, &ie):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"code": "invalid_import", "problems": ie.Problems})
			return
		case err != nil && !errors.Is(err, catalog.ErrAuditIncomplete):
			log.Printf("server: import by %s: %v", sess.Username, err)
			writeError(w, statusFor(err), errorCode(err), "import failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"added":   res.Added,
			"updated": res.Updated,
			"message": res.Message,
			"code":    errorCode(err),
		})
	})
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor picks an HTTP status for non-chat endpoints. Chat replies are
// always 200: the error is part of the conversation.
func statusFor(err error) int {
	switch errorCode(err) {
	case "":
		return http.StatusOK
	case "permission_denied":
		return http.StatusForbidden
	case "validation_failed", "malformed_input", "invalid_import":
		return http.StatusUnprocessableEntity
	case "not_found":
		return http.StatusNotFound
	case "duplicate_key", "pending_action", "no_pending_action":
		return http.StatusConflict
	case "backend_unavailable":
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
