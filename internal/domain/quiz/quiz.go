// Package quiz defines the quiz content model carried by QUIZ_DATA events.
// The hub never interprets quiz content beyond validation at the producer
// boundary; generation and grading live outside this service.
package quiz

import (
	"errors"
	"fmt"
)

// DefaultTimeLimitSeconds is applied when a producer omits the time limit.
const DefaultTimeLimitSeconds = 600

// Question is a single multiple-choice question.
type Question struct {
	ID                 string         `json:"id"`
	QuestionText       string         `json:"question_text"`
	Options            []string       `json:"options"`
	CorrectAnswerIndex int            `json:"correct_answer_index"`
	Explanation        string         `json:"explanation,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

// Quiz is a complete quiz as published to a room.
type Quiz struct {
	QuizID           string     `json:"quiz_id"`
	Topic            string     `json:"topic"`
	Difficulty       string     `json:"difficulty"`
	Questions        []Question `json:"questions"`
	TimeLimitSeconds int        `json:"time_limit_seconds,omitempty"`
	CreatedBy        string     `json:"created_by,omitempty"`
}

// Validate checks the structural constraints on a quiz: every question has
// text, exactly four options, and an answer index within range.
func (q *Quiz) Validate() error {
	if q.Topic == "" {
		return errors.New("topic is required")
	}
	if len(q.Questions) == 0 {
		return errors.New("at least one question is required")
	}
	for i, qu := range q.Questions {
		if qu.QuestionText == "" {
			return fmt.Errorf("question %d: question_text is required", i)
		}
		if len(qu.Options) != 4 {
			return fmt.Errorf("question %d: expected 4 options, got %d", i, len(qu.Options))
		}
		if qu.CorrectAnswerIndex < 0 || qu.CorrectAnswerIndex > 3 {
			return fmt.Errorf("question %d: correct_answer_index %d out of range [0,3]", i, qu.CorrectAnswerIndex)
		}
	}
	return nil
}
