// Package event defines the wire format for real-time room events.
//
// An event is a flat UTF-8 JSON object carrying a "type" discriminator plus
// type-specific fields, e.g.
//
//	{"type":"SCORE_UPDATE","player":"alice","new_score":42}
//
// Events are immutable: the raw bytes received from a producer are exactly
// the bytes fanned out to every client in the room. Unrecognized types are
// still delivered; clients render them generically.
package event

import (
	"encoding/json"
	"fmt"

	"github.com/adaptivelabs/quizhub/internal/domain"
)

// Well-known event types.
const (
	TypeScoreUpdate = "SCORE_UPDATE"
	TypeQuizData    = "QUIZ_DATA"
)

// Event is a decoded wire event. Raw holds the original bytes so the
// payload survives the round trip byte-for-byte.
type Event struct {
	Type string
	Raw  json.RawMessage
}

// Decode validates data as a wire event. It returns domain.ErrMalformedEvent
// when data is not a JSON object or the type discriminator is missing.
func Decode(data []byte) (Event, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Event{}, fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	if head.Type == "" {
		return Event{}, fmt.Errorf("%w: missing type field", domain.ErrMalformedEvent)
	}
	return Event{Type: head.Type, Raw: data}, nil
}

// Encode builds a wire event from a type and its payload fields. The type
// discriminator always wins over a conflicting "type" key in fields.
func Encode(eventType string, fields map[string]any) ([]byte, error) {
	if eventType == "" {
		return nil, fmt.Errorf("%w: empty type", domain.ErrMalformedEvent)
	}
	obj := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		obj[k] = v
	}
	obj["type"] = eventType
	return json.Marshal(obj)
}

// ScoreUpdate is the payload of a SCORE_UPDATE event. Producers have
// historically used both "new_score" and "score" for the same field;
// Value returns whichever is set.
type ScoreUpdate struct {
	Player   string   `json:"player"`
	NewScore *float64 `json:"new_score,omitempty"`
	Score    *float64 `json:"score,omitempty"`
}

// Value returns the score, preferring new_score.
func (s ScoreUpdate) Value() (float64, bool) {
	if s.NewScore != nil {
		return *s.NewScore, true
	}
	if s.Score != nil {
		return *s.Score, true
	}
	return 0, false
}

// Generic is the payload of any free-form status event.
type Generic struct {
	Msg string `json:"msg"`
}
