package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Jayem09/coduxa-sub000/internal/question"
)

// ErrInvalidThreshold is returned for a passing threshold outside [0, 100].
var ErrInvalidThreshold = errors.New("passing threshold must be between 0 and 100")

// DefaultPassingThreshold is the percentage needed to pass when an exam
// does not set its own.
const DefaultPassingThreshold = 70.0

// Config holds configurable scoring constants (defaults match requirements).
type Config struct {
	PassingThreshold float64 // default: 70
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{PassingThreshold: DefaultPassingThreshold}
}

// Validate rejects an out-of-range threshold.
func (c Config) Validate() error {
	return ValidateThreshold(c.PassingThreshold)
}

// ValidateThreshold rejects thresholds outside [0, 100].
func ValidateThreshold(threshold float64) error {
	if threshold < 0 || threshold > 100 || math.IsNaN(threshold) {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, threshold)
	}
	return nil
}

// Checker decides whether an answer is correct. *question.Evaluator implements it.
type Checker interface {
	IsCorrect(ctx context.Context, q question.Question, a question.Answer) bool
}

// QuestionScore is the per-question line of a result.
type QuestionScore struct {
	QuestionID string `json:"questionId"`
	Category   string `json:"category,omitempty"`
	Answered   bool   `json:"answered"`
	Correct    bool   `json:"correct"`
	Points     int    `json:"points"`
	Earned     int    `json:"earned"`
}

// Result is the outcome of scoring one attempt.
type Result struct {
	TotalPoints  int             `json:"totalPoints"`
	EarnedPoints int             `json:"earnedPoints"`
	Percentage   float64         `json:"percentage"`
	Passed       bool            `json:"passed"`
	Grade        Grade           `json:"grade"`
	CorrectCount int             `json:"correctCount"`
	Breakdown    []QuestionScore `json:"breakdown,omitempty"`
}

// Engine computes server-side scores with configurable constants.
type Engine struct {
	config  Config
	checker Checker
}

// NewEngine creates a scoring engine. It fails when the configured
// default threshold is out of range.
func NewEngine(config Config, checker Checker) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{config: config, checker: checker}, nil
}

// DefaultThreshold returns the configured passing threshold.
func (e *Engine) DefaultThreshold() float64 {
	return e.config.PassingThreshold
}

// ScoreDefault scores with the configured passing threshold.
func (e *Engine) ScoreDefault(ctx context.Context, questions []question.Question, answers question.Answers) Result {
	// the configured threshold was validated in NewEngine
	res, _ := e.Score(ctx, questions, answers, e.config.PassingThreshold)
	return res
}

// Score computes points, percentage, grade and verdict. Only questions in
// the set are scored; answers for unknown ids are ignored. Neither input is
// modified, so Score may be called any number of times on the same attempt.
func (e *Engine) Score(ctx context.Context, questions []question.Question, answers question.Answers, threshold float64) (Result, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return Result{}, err
	}

	res := Result{Breakdown: make([]QuestionScore, 0, len(questions))}
	for _, q := range questions {
		res.TotalPoints += q.Points

		line := QuestionScore{QuestionID: q.ID, Category: q.Category, Points: q.Points}
		a, ok := answers[q.ID]
		line.Answered = ok && a != nil
		if line.Answered && e.checker.IsCorrect(ctx, q, a) {
			line.Correct = true
			line.Earned = q.Points
			res.EarnedPoints += q.Points
			res.CorrectCount++
		}
		res.Breakdown = append(res.Breakdown, line)
	}

	res.Percentage = Percentage(res.EarnedPoints, res.TotalPoints)
	res.Passed = res.TotalPoints > 0 && res.Percentage >= threshold
	res.Grade = GradeFor(res.Percentage)
	return res, nil
}

// Percentage returns earned/total*100, or 0 when total is 0.
func Percentage(earned, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(earned) / float64(total) * 100
}
