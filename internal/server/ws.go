package server

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"stockbot/internal/agent"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// wsInbound is one client frame: {"type":"message","text":"..."},
// {"type":"confirm"} or {"type":"cancel"}.
type wsInbound struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type wsOutbound struct {
	Type    string    `json:"type"`
	Reply   *replyDTO `json:"reply,omitempty"`
	Code    string    `json:"code,omitempty"`
	Message string    `json:"message,omitempty"`
}

// chatWS is the streaming variant of /api/chat. The token comes from the
// Authorization header or the token query parameter (browsers cannot set
// headers on websocket upgrades).
func (h *Handler) chatWS(w http.ResponseWriter, r *http.Request) {
	c, err := h.Sessions.Get(bearerToken(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "log in first")
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		log.Printf("chat ws: set read deadline: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	writeCh := make(chan wsOutbound, 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	push := func(out wsOutbound) {
		select {
		case writeCh <- out:
		case <-ctx.Done():
		}
	}

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		// replies are computed on the reader goroutine, so frames from one
		// connection are answered in order
		var reply agent.Reply
		c.mu.Lock()
		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "message", "":
			reply = h.Agent.Handle(ctx, c.sess, in.Text)
		case "confirm":
			reply = h.Agent.Confirm(ctx, c.sess)
		case "cancel":
			reply = h.Agent.Cancel(c.sess)
		default:
			c.mu.Unlock()
			push(wsOutbound{Type: "error", Code: "malformed_input", Message: "unknown frame type " + in.Type})
			continue
		}
		c.mu.Unlock()
		dto := toReplyDTO(reply)
		push(wsOutbound{Type: "reply", Reply: &dto})
	}
}
