// Package session implements the status and query client.
//
// A Session owns the last status snapshot, the ask busy state and the
// history log. UI adapters drive it through three commands (PollStatus,
// AskQuestion, CopyStatus) and observe it through a Renderer.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/visionguard/dashboard/internal/backend"
	"github.com/visionguard/dashboard/internal/domain"
	"github.com/visionguard/dashboard/internal/render"
)

// Validation errors. None of them sends a request.
var (
	ErrEmptyQuestion = errors.New("question is empty")
	ErrNotReady      = errors.New("no status received yet")
	ErrAskInFlight   = errors.New("ask already in progress")
	ErrNoStatus      = errors.New("no status to copy")
)

// Notice texts shown to the user.
const (
	NoticeEmptyQuestion = "Type a question first!"
	NoticeNotReady      = "Wait a moment, detection not ready yet."
	NoticeAskFailed     = "LLM request failed: "
	NoticeNoStatus      = "No status yet!"
	NoticeCopied        = "Status copied!"
	NoticeCopyFailed    = "Copy failed: "
)

// IsValidationError reports whether err rejected a command before any request.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyQuestion) || errors.Is(err, ErrNotReady) || errors.Is(err, ErrNoStatus)
}

// Backend is the subset of the backend client used by a Session.
type Backend interface {
	FetchStatus(ctx context.Context) (domain.Status, error)
	Ask(ctx context.Context, req backend.AskRequest) (domain.Answer, error)
}

// Archive persists answered questions.
type Archive interface {
	SaveEntry(ctx context.Context, entry *domain.HistoryEntry) error
}

// Clipboard receives copied text.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Requester is the page that issued a copy. It gets the text and the
// resulting notice; no other page sees either.
type Requester interface {
	Clipboard
	Notify(Notice)
}

// State is the coarse UI state of a Session.
type State string

const (
	StateIdle    State = "idle"
	StatePolling State = "polling"
	StateAsking  State = "asking"
)

// Options configures a Session. Renderer defaults to a no-op.
type Options struct {
	Renderer     Renderer
	Archive      Archive
	ImageBaseURL string
	HistoryLimit int // 0 = unbounded
	Logger       *slog.Logger
	Now          func() time.Time
}

// Session is the explicit client state shared by all commands.
type Session struct {
	backend      Backend
	renderer     Renderer
	archive      Archive
	imageBaseURL string
	historyLimit int
	logger       *slog.Logger
	now          func() time.Time

	mu         sync.Mutex
	lastStatus *domain.Status
	statusView *render.Status
	answerView *render.Answer
	history    []domain.HistoryEntry // newest first
	polling    int
	asking     bool
}

// New creates a Session backed by b.
func New(b Backend, opts Options) *Session {
	s := &Session{
		backend:      b,
		renderer:     opts.Renderer,
		archive:      opts.Archive,
		imageBaseURL: strings.TrimRight(opts.ImageBaseURL, "/"),
		historyLimit: opts.HistoryLimit,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if s.renderer == nil {
		s.renderer = NopRenderer{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// State reports whether an ask or a poll is in flight. Asking wins.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.asking:
		return StateAsking
	case s.polling > 0:
		return StatePolling
	default:
		return StateIdle
	}
}

// Snapshot returns a copy of the last status and whether one was received.
func (s *Session) Snapshot() (domain.Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastStatus == nil {
		return domain.Status{}, false
	}
	return *s.lastStatus, true
}

// History returns the retained log, newest first.
func (s *Session) History() []domain.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// LoadHistory seeds the log with entries ordered newest first.
func (s *Session) LoadHistory(entries []domain.HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, entries...)
	s.trimHistoryLocked()
}

// View is everything a freshly attached UI needs to draw the current state.
type View struct {
	Status  *render.Status       `json:"status,omitempty"`
	Answer  *render.Answer       `json:"answer,omitempty"`
	History []render.HistoryItem `json:"history"`
	Busy    render.Busy          `json:"busy"`
}

// View renders the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Attach runs subscribe and renders the current state in one step: every
// update missing from the returned View reaches the new subscriber, and
// none already in it is delivered again.
func (s *Session) Attach(subscribe func()) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	subscribe()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		Status:  s.statusView,
		Answer:  s.answerView,
		History: make([]render.HistoryItem, 0, len(s.history)),
		Busy:    render.BusyView(s.asking),
	}
	for _, e := range s.history {
		v.History = append(v.History, render.NewHistoryItem(e))
	}
	return v
}

// PollStatus fetches and renders the current status. Failures are logged
// and leave the previous snapshot in place.
func (s *Session) PollStatus(ctx context.Context) error {
	s.mu.Lock()
	s.polling++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.polling--
		s.mu.Unlock()
	}()

	status, err := s.backend.FetchStatus(ctx)
	if err != nil {
		s.logger.Warn("Status fetch failed", "error", err)
		return err
	}

	view := render.StatusView(status, s.imageBaseURL, s.now())

	s.mu.Lock()
	s.lastStatus = &status
	s.statusView = &view
	s.renderer.RenderStatus(view)
	s.mu.Unlock()
	return nil
}

// AskQuestion sends question with the last snapshot as context and records
// the answer. The busy indicator is cleared on every path.
func (s *Session) AskQuestion(ctx context.Context, question string) (render.Answer, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		s.renderer.Notify(Notice{Level: NoticeWarning, Message: NoticeEmptyQuestion})
		return render.Answer{}, ErrEmptyQuestion
	}

	s.mu.Lock()
	if s.lastStatus == nil {
		s.mu.Unlock()
		s.renderer.Notify(Notice{Level: NoticeWarning, Message: NoticeNotReady})
		return render.Answer{}, ErrNotReady
	}
	if s.asking {
		s.mu.Unlock()
		return render.Answer{}, ErrAskInFlight
	}
	s.asking = true
	snapshot := *s.lastStatus
	s.renderer.SetBusy(render.BusyView(true))
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.asking = false
		s.renderer.SetBusy(render.BusyView(false))
		s.mu.Unlock()
	}()

	answer, err := s.backend.Ask(ctx, backend.AskRequest{Question: q, Context: snapshot})
	if err != nil {
		s.logger.Warn("Ask failed", "error", err)
		s.renderer.Notify(Notice{Level: NoticeError, Message: NoticeAskFailed + err.Error()})
		return render.Answer{}, err
	}

	entry := domain.HistoryEntry{
		Question:   q,
		Summary:    answer.Summary,
		Risk:       answer.Risk,
		Suggestion: answer.Suggestion,
		Context:    snapshot,
		AskedAt:    s.now(),
	}
	if s.archive != nil {
		if err := s.archive.SaveEntry(ctx, &entry); err != nil {
			s.logger.Warn("Failed to archive history entry", "error", err)
		}
	}

	view := render.AnswerView(answer)

	s.mu.Lock()
	s.answerView = &view
	s.history = append([]domain.HistoryEntry{entry}, s.history...)
	s.trimHistoryLocked()
	s.renderer.RenderAnswer(view)
	s.renderer.PrependHistory(render.NewHistoryItem(entry))
	s.mu.Unlock()
	return view, nil
}

// CopyStatus hands the last snapshot, as indented JSON, to the requesting
// page. Notices go to that page only.
func (s *Session) CopyStatus(ctx context.Context, req Requester) error {
	status, ok := s.Snapshot()
	if !ok {
		req.Notify(Notice{Level: NoticeWarning, Message: NoticeNoStatus})
		return ErrNoStatus
	}

	text, err := status.Indented()
	if err != nil {
		req.Notify(Notice{Level: NoticeError, Message: NoticeCopyFailed + err.Error()})
		return err
	}
	if err := req.WriteText(ctx, text); err != nil {
		req.Notify(Notice{Level: NoticeError, Message: NoticeCopyFailed + err.Error()})
		return err
	}

	req.Notify(Notice{Level: NoticeInfo, Message: NoticeCopied})
	return nil
}

func (s *Session) trimHistoryLocked() {
	if s.historyLimit > 0 && len(s.history) > s.historyLimit {
		s.history = s.history[:s.historyLimit]
	}
}
