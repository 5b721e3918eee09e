package server

import (
	"net/http"

	"stockbot/internal/server/middleware"
)

func NewMux(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/login", h.login)
	mux.HandleFunc("POST /api/logout", h.logout)
	mux.HandleFunc("POST /api/chat", h.chat)
	mux.HandleFunc("POST /api/confirm", h.confirm)
	mux.HandleFunc("POST /api/cancel", h.cancel)
	mux.HandleFunc("POST /api/report", h.report)
	mux.HandleFunc("POST /api/import", h.importProducts)
	mux.HandleFunc("GET /api/products", h.products)
	mux.HandleFunc("GET /api/history", h.history)
	mux.HandleFunc("GET /api/ws", h.chatWS)

	mux.HandleFunc("GET /healthz", healthz)
	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics)
	}

	return middleware.CORS(mux)
}
