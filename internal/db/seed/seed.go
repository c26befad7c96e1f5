// Package seed loads exam catalogues and question banks from JSON files.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Jayem09/coduxa-sub000/internal/db/repository"
	"github.com/Jayem09/coduxa-sub000/internal/question"
	"github.com/Jayem09/coduxa-sub000/internal/scoring"
)

// File is the seed document.
type File struct {
	Exams []Exam `json:"exams"`
}

// Exam is one catalogue entry with its bank.
type Exam struct {
	repository.Exam
	Questions []question.Question `json:"questions"`
}

// ExamWriter stores catalogue entries.
type ExamWriter interface {
	Upsert(ctx context.Context, e repository.Exam) error
}

// QuestionWriter stores bank questions.
type QuestionWriter interface {
	Upsert(ctx context.Context, examID string, position int, q question.Question) error
}

// Read decodes and validates a seed document.
func Read(r io.Reader) (File, error) {
	var f File
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return File{}, fmt.Errorf("decode seed: %w", err)
	}
	if len(f.Exams) == 0 {
		return File{}, errors.New("seed has no exams")
	}

	seen := make(map[string]struct{}, len(f.Exams))
	for _, e := range f.Exams {
		if e.ID == "" || e.Title == "" {
			return File{}, fmt.Errorf("exam %q: id and title are required", e.ID)
		}
		if _, dup := seen[e.ID]; dup {
			return File{}, fmt.Errorf("exam %q listed twice", e.ID)
		}
		seen[e.ID] = struct{}{}
		if e.PassingThreshold != nil {
			if err := scoring.ValidateThreshold(*e.PassingThreshold); err != nil {
				return File{}, fmt.Errorf("exam %q: %w", e.ID, err)
			}
		}
		if err := question.ValidateSet(e.Questions); err != nil {
			return File{}, fmt.Errorf("exam %q: %w", e.ID, err)
		}
	}
	return f, nil
}

// Apply writes every exam and its questions, in file order. It returns the
// number of questions written.
func Apply(ctx context.Context, exams ExamWriter, questions QuestionWriter, f File) (int, error) {
	written := 0
	for _, e := range f.Exams {
		if e.QuestionCount == 0 {
			e.QuestionCount = len(e.Questions)
		}
		if err := exams.Upsert(ctx, e.Exam); err != nil {
			return written, fmt.Errorf("upsert exam %s: %w", e.ID, err)
		}
		for i, q := range e.Questions {
			if err := questions.Upsert(ctx, e.ID, i, q); err != nil {
				return written, fmt.Errorf("upsert question %s/%s: %w", e.ID, q.ID, err)
			}
			written++
		}
	}
	return written, nil
}
