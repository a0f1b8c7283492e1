// Package render turns snapshots and answers into display fragments.
//
// Every dynamic value passes through Escape before it is placed in markup,
// so fragments can be inserted into the page as HTML.
package render

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/visionguard/dashboard/internal/domain"
)

const (
	// Placeholder is shown for absent text fields.
	Placeholder = "—"
	// SummaryPlaceholder is logged in history when an answer has no summary.
	SummaryPlaceholder = "-"

	leftFramePath  = "/captured_frames/left_latest.jpg"
	rightFramePath = "/captured_frames/right_latest.jpg"
)

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&#39;",
	`"`, "&quot;",
)

// Escape replaces & < > ' " with their HTML entities.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Flag indicator classes used by the page stylesheet.
const (
	FlagClassAlert = "flag-alert"
	FlagClassOK    = "flag-ok"
)

// Status is the rendered form of a detection snapshot.
type Status struct {
	LeftMeta   string `json:"left_meta"`
	RightMeta  string `json:"right_meta"`
	FlagText   string `json:"flag_text"`
	FlagClass  string `json:"flag_class"`
	LeftImage  string `json:"left_image"`
	RightImage string `json:"right_image"`
}

// StatusView renders s. Image links point at baseURL and carry now as a
// cache-busting ts parameter in Unix milliseconds.
func StatusView(s domain.Status, baseURL string, now time.Time) Status {
	flagText, flagClass := "NO", FlagClassOK
	if s.Flagged() {
		flagText, flagClass = "YES", FlagClassAlert
	}

	ts := strconv.FormatInt(now.UnixMilli(), 10)
	return Status{
		LeftMeta: fmt.Sprintf(`Label: <strong>%s</strong> &nbsp; Confidence: <strong>%s</strong>`,
			Escape(s.LabelOr(Placeholder)), Fixed2(s.ConfidenceValue())),
		RightMeta: fmt.Sprintf(`Adv Score: <strong>%s</strong> &nbsp; Flag: <strong class="%s">%s</strong>`,
			Fixed2(s.AdvScoreValue()), flagClass, flagText),
		FlagText:   flagText,
		FlagClass:  flagClass,
		LeftImage:  baseURL + leftFramePath + "?ts=" + ts,
		RightImage: baseURL + rightFramePath + "?ts=" + ts,
	}
}

// Fixed2 formats f with exactly two decimal places. Like Number.toFixed,
// it rounds the exact binary value and breaks ties upward, so 0.125 is
// "0.13" while 1.005 (stored just below) is "1.00".
func Fixed2(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', 2, 64)
	}

	// 53 mantissa bits times 100 fits exactly in 128 bits.
	x := new(big.Float).SetPrec(128).SetFloat64(math.Abs(f))
	x.Mul(x, big.NewFloat(100))
	n, _ := x.Int(nil)
	frac := new(big.Float).SetPrec(128).Sub(x, new(big.Float).SetInt(n))
	if frac.Cmp(big.NewFloat(0.5)) >= 0 {
		n.Add(n, big.NewInt(1))
	}

	digits := n.String()
	for len(digits) < 3 {
		digits = "0" + digits
	}
	out := digits[:len(digits)-2] + "." + digits[len(digits)-2:]
	if f < 0 {
		out = "-" + out
	}
	return out
}

// Answer is the rendered form of an answer record.
type Answer struct {
	Summary    string `json:"summary"`
	Risk       string `json:"risk"`
	Suggestion string `json:"suggestion"`
}

// AnswerView renders a with placeholders for absent fields.
func AnswerView(a domain.Answer) Answer {
	return Answer{
		Summary:    Escape(orDefault(a.Summary, Placeholder)),
		Risk:       Escape(orDefault(a.Risk, Placeholder)),
		Suggestion: Escape(orDefault(a.Suggestion, Placeholder)),
	}
}

// HistoryFragment renders one history log entry.
func HistoryFragment(e domain.HistoryEntry) string {
	return fmt.Sprintf(`<strong>Q:</strong> %s<br><strong>A:</strong> %s<hr/>`,
		Escape(e.Question), Escape(orDefault(e.Summary, SummaryPlaceholder)))
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// HistoryItem pairs a log entry with its rendered fragment.
type HistoryItem struct {
	Entry domain.HistoryEntry `json:"entry"`
	HTML  string              `json:"html"`
}

// NewHistoryItem renders e for the history log.
func NewHistoryItem(e domain.HistoryEntry) HistoryItem {
	return HistoryItem{Entry: e, HTML: HistoryFragment(e)}
}

// Busy is the rendered state of the ask control and badge.
type Busy struct {
	Busy        bool   `json:"busy"`
	Badge       string `json:"badge"`
	BadgeClass  string `json:"badge_class"`
	AskDisabled bool   `json:"ask_disabled"`
	Spinner     bool   `json:"spinner"`
}

// BusyView renders the ask indicator.
func BusyView(busy bool) Busy {
	if busy {
		return Busy{Busy: true, Badge: "LLM: thinking...", BadgeClass: "llm busy", AskDisabled: true, Spinner: true}
	}
	return Busy{Badge: "LLM: idle", BadgeClass: "llm idle"}
}
