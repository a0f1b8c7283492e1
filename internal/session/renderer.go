package session

import "github.com/visionguard/dashboard/internal/render"

// NoticeLevel classifies a user-visible notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a blocking message for the user.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Renderer receives render updates from a Session. State updates are
// delivered while the Session lock is held, so they arrive in the order the
// state changed; implementations must not block or call back into the
// Session.
type Renderer interface {
	RenderStatus(render.Status)
	RenderAnswer(render.Answer)
	PrependHistory(render.HistoryItem)
	SetBusy(render.Busy)
	Notify(Notice)
}

// NopRenderer discards every update.
type NopRenderer struct{}

func (NopRenderer) RenderStatus(render.Status)        {}
func (NopRenderer) RenderAnswer(render.Answer)        {}
func (NopRenderer) PrependHistory(render.HistoryItem) {}
func (NopRenderer) SetBusy(render.Busy)               {}
func (NopRenderer) Notify(Notice)                     {}
