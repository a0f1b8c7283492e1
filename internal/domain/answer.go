package domain

import "time"

// Answer is the structured reply of the question-answering endpoint.
type Answer struct {
	Summary    string `json:"summary,omitempty"`
	Risk       string `json:"risk,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// HistoryEntry is one answered question in the dashboard log.
type HistoryEntry struct {
	ID         int64     `json:"id,omitempty"`
	Question   string    `json:"question"`
	Summary    string    `json:"summary"`
	Risk       string    `json:"risk,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
	Context    Status    `json:"-"`
	AskedAt    time.Time `json:"asked_at"`
}
