// Package api provides HTTP handlers for the dashboard commands.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/visionguard/dashboard/internal/domain"
	"github.com/visionguard/dashboard/internal/render"
	"github.com/visionguard/dashboard/internal/session"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (64KB).
const defaultMaxRequestBodySize = 64 << 10

// Commands is the session surface exposed over HTTP.
type Commands interface {
	AskQuestion(ctx context.Context, question string) (render.Answer, error)
	CopyStatus(ctx context.Context, req session.Requester) error
	Snapshot() (domain.Status, bool)
	History() []domain.HistoryEntry
	View() session.View
}

// Handler translates HTTP requests into session commands.
type Handler struct {
	cmds Commands
}

// NewHandler creates a new Handler.
func NewHandler(cmds Commands) *Handler {
	return &Handler{cmds: cmds}
}

// RegisterRoutes mounts the command endpoints under /api.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/ask", h.Ask)
		r.Post("/copy-status", h.CopyStatus)
		r.Get("/status", h.Status)
		r.Get("/history", h.History)
		r.Get("/view", h.View)
	})
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask runs the ask command. The request context is detached so a page
// reload does not abort an ask already sent to the backend.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxRequestBodySize)

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := h.cmds.AskQuestion(context.WithoutCancel(r.Context()), req.Question)
	switch {
	case err == nil:
		JSON(w, http.StatusOK, answer)
	case errors.Is(err, session.ErrEmptyQuestion):
		Error(w, http.StatusBadRequest, session.NoticeEmptyQuestion)
	case errors.Is(err, session.ErrNotReady):
		Error(w, http.StatusBadRequest, session.NoticeNotReady)
	case errors.Is(err, session.ErrAskInFlight):
		Error(w, http.StatusConflict, err.Error())
	default:
		Error(w, http.StatusBadGateway, session.NoticeAskFailed+err.Error())
	}
}

// copyResponse carries the text for the requesting page to put on its
// clipboard, and the notice to show once that write succeeds.
type copyResponse struct {
	Text   string `json:"text"`
	Notice string `json:"notice"`
}

// pageClipboard is the requesting page as seen from one copy request.
type pageClipboard struct {
	text   string
	notice session.Notice
}

func (p *pageClipboard) WriteText(_ context.Context, text string) error {
	p.text = text
	return nil
}

func (p *pageClipboard) Notify(n session.Notice) {
	p.notice = n
}

// CopyStatus runs the copy command for the calling page only. The page
// writes the returned text to its clipboard itself and shows the notice
// when the write completes.
func (h *Handler) CopyStatus(w http.ResponseWriter, r *http.Request) {
	page := &pageClipboard{}
	err := h.cmds.CopyStatus(r.Context(), page)
	switch {
	case err == nil:
		JSON(w, http.StatusOK, copyResponse{Text: page.text, Notice: page.notice.Message})
	case errors.Is(err, session.ErrNoStatus):
		Error(w, http.StatusBadRequest, session.NoticeNoStatus)
	default:
		Error(w, http.StatusInternalServerError, session.NoticeCopyFailed+err.Error())
	}
}

// Status returns the last snapshot exactly as the backend sent it.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	status, ok := h.cmds.Snapshot()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	JSON(w, http.StatusOK, status)
}

// History returns the retained log, newest first.
func (h *Handler) History(w http.ResponseWriter, _ *http.Request) {
	entries := h.cmds.History()
	items := make([]render.HistoryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, render.NewHistoryItem(e))
	}
	JSON(w, http.StatusOK, items)
}

// View returns the full render state.
func (h *Handler) View(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.cmds.View())
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
