package session

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Jayem09/coduxa-sub000/internal/question"
	"github.com/Jayem09/coduxa-sub000/internal/scoring"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func threeQuestions() []question.Question {
	return []question.Question{
		{ID: "q1", Type: question.TypeMultipleChoice, Points: 10, Category: "syntax", Options: []string{"let", "var"}, CorrectAnswer: question.Key{"let"}},
		{ID: "q2", Type: question.TypeTrueFalse, Points: 5, Category: "types", CorrectAnswer: question.Key{"true"}},
		{ID: "q3", Type: question.TypeFillBlank, Points: 5, Category: "types", CorrectAnswer: question.Key{"Object"}},
	}
}

func testEngine(t *testing.T) *scoring.Engine {
	t.Helper()
	engine, err := scoring.NewEngine(scoring.DefaultConfig(), question.NewEvaluator(nil, zerolog.Nop()))
	require.NoError(t, err)
	return engine
}

func pct(v float64) *float64 { return &v }

func newTestSession(t *testing.T, mutate ...func(*Params)) *Session {
	t.Helper()
	p := Params{
		ID:        "sess-1",
		ExamID:    "js-basics",
		ExamTitle: "JavaScript Basics",
		UserID:    "user-1234",
		StartTime: t0,
		TimeLimit: 30 * time.Minute,
		Questions: threeQuestions(),
	}
	for _, m := range mutate {
		m(&p)
	}
	s, err := New(p)
	require.NoError(t, err)
	return s
}
