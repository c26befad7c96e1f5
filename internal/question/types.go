package question

import (
	"encoding/json"
	"fmt"
)

// Type identifies how a question is answered and evaluated.
type Type string

// Question types.
const (
	TypeMultipleChoice Type = "multiple-choice"
	TypeTrueFalse      Type = "true-false"
	TypeFillBlank      Type = "fill-blank"
	TypeCoding         Type = "coding"
)

// Valid reports whether t is one of the known question types.
func (t Type) Valid() bool {
	switch t {
	case TypeMultipleChoice, TypeTrueFalse, TypeFillBlank, TypeCoding:
		return true
	}
	return false
}

// Difficulty is classification only; it never affects scoring.
type Difficulty string

// Difficulty constants for readability.
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// TestCase is one input/expected-output pair for a coding question.
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
	Description    string `json:"description,omitempty"`
}

// Question is an immutable exam question definition.
type Question struct {
	ID            string     `json:"id"`
	Type          Type       `json:"type"`
	Prompt        string     `json:"question"`
	Points        int        `json:"points"`
	Difficulty    Difficulty `json:"difficulty,omitempty"`
	Category      string     `json:"category,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	Options       []string   `json:"options,omitempty"`
	CorrectAnswer Key        `json:"correctAnswer"`
	CodeTemplate  string     `json:"codeTemplate,omitempty"`
	Language      string     `json:"language,omitempty"`
	TestCases     []TestCase `json:"testCases,omitempty"`
	Explanation   string     `json:"explanation,omitempty"`
}

// Public strips the ground truth so the question can be sent to a candidate.
func (q Question) Public() Question {
	q.CorrectAnswer = nil
	q.Explanation = ""
	if len(q.TestCases) > 0 {
		// descriptions stay visible, expected outputs do not
		cases := make([]TestCase, len(q.TestCases))
		for i, tc := range q.TestCases {
			cases[i] = TestCase{Input: tc.Input, Description: tc.Description}
		}
		q.TestCases = cases
	}
	return q
}

// Key is the ground truth for a question. It decodes from either a JSON
// string or an array of strings.
type Key []string

// Primary returns the first accepted answer, or "" when none is set.
func (k Key) Primary() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}

// MarshalJSON writes single-element keys as a plain string.
func (k Key) MarshalJSON() ([]byte, error) {
	switch len(k) {
	case 0:
		return []byte("null"), nil
	case 1:
		return json.Marshal(k[0])
	default:
		return json.Marshal([]string(k))
	}
}

// UnmarshalJSON accepts a string, an array of strings or null.
func (k *Key) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*k = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*k = Key{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("correct answer must be a string or array of strings: %w", err)
	}
	*k = Key(many)
	return nil
}

// TotalPoints sums the points of all questions.
func TotalPoints(questions []Question) int {
	total := 0
	for _, q := range questions {
		total += q.Points
	}
	return total
}

// IndexOf returns the position of the question with the given id, or -1.
func IndexOf(questions []Question, id string) int {
	for i, q := range questions {
		if q.ID == id {
			return i
		}
	}
	return -1
}
