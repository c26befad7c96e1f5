package question

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// TestReport is the outcome of running a coding answer against its test cases.
type TestReport struct {
	Results []TestResult `json:"results"`
}

// TestResult is the outcome of one test case.
type TestResult struct {
	Passed   bool   `json:"passed"`
	Actual   string `json:"actual,omitempty"`
	Error    string `json:"error,omitempty"`
	Duration int64  `json:"durationMs"`
}

// Passed reports whether the report covers want cases and every one passed.
func (r TestReport) Passed(want int) bool {
	if want == 0 || len(r.Results) != want {
		return false
	}
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// CodeExecutor runs submitted code against test cases.
type CodeExecutor interface {
	RunTests(ctx context.Context, language, source string, cases []TestCase) (TestReport, error)
}

// Evaluator decides whether an answer is correct for a question.
type Evaluator struct {
	executor CodeExecutor
	logger   zerolog.Logger
}

// NewEvaluator builds an evaluator. executor may be nil, in which case
// coding answers are never correct.
func NewEvaluator(executor CodeExecutor, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		executor: executor,
		logger:   logger.With().Str("component", "evaluator").Logger(),
	}
}

// IsCorrect evaluates a single answer. A nil answer is always incorrect.
func (e *Evaluator) IsCorrect(ctx context.Context, q Question, a Answer) bool {
	if a == nil {
		return false
	}

	switch v := a.(type) {
	case StringAnswer:
		return matchString(q, string(v))
	case CodeAnswer:
		return e.matchCode(ctx, q, v)
	default:
		return false
	}
}

func matchString(q Question, value string) bool {
	switch q.Type {
	case TypeMultipleChoice, TypeTrueFalse:
		for _, want := range q.CorrectAnswer {
			if value == want {
				return true
			}
		}
	case TypeFillBlank:
		got := normalizeBlank(value)
		for _, want := range q.CorrectAnswer {
			if got == normalizeBlank(want) {
				return true
			}
		}
	}
	return false
}

func normalizeBlank(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (e *Evaluator) matchCode(ctx context.Context, q Question, a CodeAnswer) bool {
	if q.Type != TypeCoding || len(q.TestCases) == 0 {
		return false
	}
	if e.executor == nil {
		e.logger.Warn().Str("question_id", q.ID).Msg("no code executor configured; coding answer marked incorrect")
		return false
	}
	if strings.TrimSpace(a.Source) == "" {
		return false
	}

	report, err := e.executor.RunTests(ctx, q.Language, a.Source, q.TestCases)
	if err != nil {
		e.logger.Warn().Err(err).Str("question_id", q.ID).Str("language", q.Language).Msg("code execution failed")
		return false
	}
	return report.Passed(len(q.TestCases))
}
