package question

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError reports an invalid question definition.
type ValidationError struct {
	QuestionID string
	Field      string
	Message    string
}

func (e *ValidationError) Error() string {
	if e.QuestionID == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("question %s: %s: %s", e.QuestionID, e.Field, e.Message)
}

func invalid(q Question, field, msg string) error {
	return &ValidationError{QuestionID: q.ID, Field: field, Message: msg}
}

// Validate checks the structural invariants of a single question.
func (q Question) Validate() error {
	if strings.TrimSpace(q.ID) == "" {
		return invalid(q, "id", "id is required")
	}
	if !q.Type.Valid() {
		return invalid(q, "type", fmt.Sprintf("unknown question type %q", q.Type))
	}
	if q.Points <= 0 {
		return invalid(q, "points", "points must be positive")
	}

	switch q.Type {
	case TypeMultipleChoice:
		if len(q.Options) < 2 {
			return invalid(q, "options", "multiple-choice needs at least 2 options")
		}
		if len(q.CorrectAnswer) == 0 {
			return invalid(q, "correctAnswer", "correct answer is required")
		}
		for _, ans := range q.CorrectAnswer {
			if !slices.Contains(q.Options, ans) {
				return invalid(q, "correctAnswer", fmt.Sprintf("%q is not one of the options", ans))
			}
		}
	case TypeTrueFalse:
		if p := q.CorrectAnswer.Primary(); p != "true" && p != "false" {
			return invalid(q, "correctAnswer", `true-false answer must be "true" or "false"`)
		}
	case TypeFillBlank:
		if strings.TrimSpace(q.CorrectAnswer.Primary()) == "" {
			return invalid(q, "correctAnswer", "correct answer is required")
		}
	case TypeCoding:
		if len(q.TestCases) == 0 {
			return invalid(q, "testCases", "coding questions need at least 1 test case")
		}
		if strings.TrimSpace(q.CodeTemplate) == "" {
			return invalid(q, "codeTemplate", "coding questions need a code template")
		}
	}
	return nil
}

// ValidateSet validates every question and rejects duplicate ids.
func ValidateSet(questions []Question) error {
	seen := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return err
		}
		if _, dup := seen[q.ID]; dup {
			return invalid(q, "id", "duplicate question id")
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}
