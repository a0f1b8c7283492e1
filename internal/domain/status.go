// Package domain defines the core value types shared across the dashboard.
package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Status is the most recent detection snapshot reported by the backend.
// Every field is optional; a nil pointer means the backend did not send it.
type Status struct {
	Label      *string
	Confidence *float64
	AdvScore   *float64
	AdvFlag    *bool

	// raw keeps the backend body so unknown keys and key order survive
	// into the ask context and the copied text.
	raw json.RawMessage
}

type statusFields struct {
	Label      *string  `json:"label,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	AdvScore   *float64 `json:"adv_score,omitempty"`
	AdvFlag    *bool    `json:"adv_flag,omitempty"`
}

// ErrStatusNotObject is returned when a status body is not a JSON object.
var ErrStatusNotObject = errors.New("status must be a JSON object")

// UnmarshalJSON implements json.Unmarshaler.
func (s *Status) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ErrStatusNotObject
	}

	var f statusFields
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return fmt.Errorf("compact status: %w", err)
	}

	s.Label = f.Label
	s.Confidence = f.Confidence
	s.AdvScore = f.AdvScore
	s.AdvFlag = f.AdvFlag
	s.raw = compact.Bytes()
	return nil
}

// MarshalJSON implements json.Marshaler. The output matches what a browser
// prints for the same parsed body, so 0.0 becomes 0 and 1e-05 becomes
// 0.00001.
func (s Status) MarshalJSON() ([]byte, error) {
	out, err := s.stringify("")
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// Indented returns the snapshot as JSON indented with two spaces.
func (s Status) Indented() (string, error) {
	return s.stringify("  ")
}

func (s Status) stringify(indent string) (string, error) {
	data := []byte(s.raw)
	if len(data) == 0 {
		var err error
		data, err = json.Marshal(statusFields{
			Label:      s.Label,
			Confidence: s.Confidence,
			AdvScore:   s.AdvScore,
			AdvFlag:    s.AdvFlag,
		})
		if err != nil {
			return "", fmt.Errorf("encode status: %w", err)
		}
	}
	out, err := stringify(data, indent)
	if err != nil {
		return "", fmt.Errorf("encode status: %w", err)
	}
	return out, nil
}

// LabelOr returns the label, or fallback when it is absent or empty.
func (s Status) LabelOr(fallback string) string {
	if s.Label == nil || *s.Label == "" {
		return fallback
	}
	return *s.Label
}

// ConfidenceValue returns the confidence, or 0 when absent.
func (s Status) ConfidenceValue() float64 {
	if s.Confidence == nil {
		return 0
	}
	return *s.Confidence
}

// AdvScoreValue returns the adversarial score, or 0 when absent.
func (s Status) AdvScoreValue() float64 {
	if s.AdvScore == nil {
		return 0
	}
	return *s.AdvScore
}

// Flagged reports whether the backend marked the frame as adversarial.
func (s Status) Flagged() bool {
	return s.AdvFlag != nil && *s.AdvFlag
}
