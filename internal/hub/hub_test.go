package hub

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/visionguard/dashboard/internal/backend"
	"github.com/visionguard/dashboard/internal/domain"
	"github.com/visionguard/dashboard/internal/render"
	"github.com/visionguard/dashboard/internal/session"
)

func TestPublishToSubscribers(t *testing.T) {
	h := New()
	id1, ch1 := h.Subscribe()
	_, ch2 := h.Subscribe()

	h.SetBusy(render.BusyView(true))

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != EventBusy {
				t.Errorf("event type = %q", ev.Type)
			}
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}

	h.Unsubscribe(id1)
	if _, ok := <-ch1; ok {
		t.Error("expected channel to be closed after Unsubscribe")
	}
	if h.Subscribers() != 1 {
		t.Errorf("Subscribers = %d", h.Subscribers())
	}
	h.Unsubscribe(id1)
}

func TestPublishDropsForSlowSubscriber(t *testing.T) {
	h := New()
	h.bufferSize = 1
	_, ch := h.Subscribe()

	if n := h.Publish(Event{Type: EventNotice}); n != 1 {
		t.Fatalf("first publish delivered to %d", n)
	}
	if n := h.Publish(Event{Type: EventNotice}); n != 0 {
		t.Errorf("expected drop on full backlog, delivered to %d", n)
	}
	<-ch
}

type staticViewer struct{ view session.View }

func (v staticViewer) Attach(subscribe func()) session.View {
	subscribe()
	return v.view
}

func TestWebSocketReplaysSnapshotThenStreams(t *testing.T) {
	h := New()
	viewer := staticViewer{view: session.View{
		History: []render.HistoryItem{{HTML: "<strong>Q:</strong> hi"}},
		Busy:    render.BusyView(false),
	}}
	srv := httptest.NewServer(NewWebSocketHandler(h, viewer, []string{"*"}, true))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	var first struct {
		Type string       `json:"type"`
		Data session.View `json:"data"`
	}
	readJSON(ctx, t, conn, &first)
	if first.Type != EventSnapshot || len(first.Data.History) != 1 {
		t.Fatalf("snapshot = %+v", first)
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	h.Notify(session.Notice{Level: session.NoticeInfo, Message: "Status copied!"})

	var next struct {
		Type string         `json:"type"`
		Data session.Notice `json:"data"`
	}
	readJSON(ctx, t, conn, &next)
	if next.Type != EventNotice || next.Data.Message != "Status copied!" {
		t.Errorf("event = %+v", next)
	}
}

func TestCheckOrigin(t *testing.T) {
	h := NewWebSocketHandler(New(), staticViewer{}, []string{"https://dash.example"}, false)

	req := httptest.NewRequest("GET", "http://localhost:8090/ws", nil)
	req.Header.Set("Origin", "https://evil.example")
	if h.checkOrigin(req) {
		t.Error("expected foreign origin to be rejected")
	}

	req.Header.Set("Origin", "https://dash.example")
	if !h.checkOrigin(req) {
		t.Error("expected configured origin to be allowed")
	}

	req.Header.Set("Origin", "http://localhost:8090")
	if !h.checkOrigin(req) {
		t.Error("expected same origin to be allowed")
	}
}

func readJSON(ctx context.Context, t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
}

func TestWebSocketAttachesToSession(t *testing.T) {
	h := New()
	b := &historyBackend{}
	sess := session.New(b, session.Options{Renderer: h})
	if err := sess.PollStatus(context.Background()); err != nil {
		t.Fatalf("PollStatus failed: %v", err)
	}
	if _, err := sess.AskQuestion(context.Background(), "before"); err != nil {
		t.Fatalf("AskQuestion failed: %v", err)
	}

	srv := httptest.NewServer(NewWebSocketHandler(h, sess, []string{"*"}, true))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	var first struct {
		Type string       `json:"type"`
		Data session.View `json:"data"`
	}
	readJSON(ctx, t, conn, &first)
	if first.Type != EventSnapshot || len(first.Data.History) != 1 {
		t.Fatalf("snapshot = %+v", first)
	}

	if _, err := sess.AskQuestion(context.Background(), "after"); err != nil {
		t.Fatalf("AskQuestion failed: %v", err)
	}

	// busy on, answer, history, busy off.
	var histories []render.HistoryItem
	for i := 0; i < 4; i++ {
		var ev struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		readJSON(ctx, t, conn, &ev)
		if ev.Type != EventHistory {
			continue
		}
		var item render.HistoryItem
		if err := json.Unmarshal(ev.Data, &item); err != nil {
			t.Fatalf("history event: %v", err)
		}
		histories = append(histories, item)
	}
	if len(histories) != 1 || histories[0].Entry.Question != "after" {
		t.Errorf("history events = %+v", histories)
	}
}

type historyBackend struct{}

func (historyBackend) FetchStatus(context.Context) (domain.Status, error) {
	var s domain.Status
	err := json.Unmarshal([]byte(`{"label":"cat"}`), &s)
	return s, err
}

func (historyBackend) Ask(_ context.Context, req backend.AskRequest) (domain.Answer, error) {
	return domain.Answer{Summary: "answer to " + req.Question}, nil
}
