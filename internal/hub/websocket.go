package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/visionguard/dashboard/internal/session"
)

const writeTimeout = 10 * time.Second

// Viewer supplies the state replayed to a page when it connects. Attach
// must run subscribe and take the view without any update in between.
type Viewer interface {
	Attach(subscribe func()) session.View
}

// WebSocketHandler streams hub events to a dashboard page.
type WebSocketHandler struct {
	hub            *Hub
	viewer         Viewer
	allowedOrigins []string
	isDev          bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(h *Hub, viewer Viewer, allowedOrigins []string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            h,
		viewer:         viewer,
		allowedOrigins: allowedOrigins,
		isDev:          isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "dashboard closed"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	var (
		id     int64
		events <-chan Event
	)
	view := h.viewer.Attach(func() {
		id, events = h.hub.Subscribe()
	})
	defer h.hub.Unsubscribe(id)

	// Pages only listen; CloseRead cancels ctx once the peer goes away.
	ctx := ws.CloseRead(r.Context())

	if err := writeJSON(ctx, ws, Event{Type: EventSnapshot, Data: view}); err != nil {
		slog.Debug("Failed to send snapshot", "error", err, "subscriber_id", id)
		return
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeJSON(ctx, ws, ev); err != nil {
				if ctx.Err() == nil {
					slog.Warn("WebSocket write error", "error", err, "subscriber_id", id)
				}
				return
			}
		case <-ctx.Done():
			slog.Debug("WebSocket closed by client", "subscriber_id", id)
			return
		}
	}
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	// Same-origin pages are always allowed.
	if origin == "http://"+r.Host || origin == "https://"+r.Host {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
