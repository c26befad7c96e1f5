package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Jayem09/coduxa-sub000/internal/question"
)

// QuestionRepository reads the question bank. Options, answers and test
// cases are stored as JSONB.
type QuestionRepository struct {
	db DBTX
}

var _ question.Bank = (*QuestionRepository)(nil)

func NewQuestionRepository(db DBTX) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// ListByExam returns the exam's questions in bank order.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID string) ([]question.Question, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, type, prompt, points, difficulty, category, tags, options,
		       correct_answer, code_template, language, test_cases, explanation
		FROM questions
		WHERE exam_id = $1
		ORDER BY position, id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []question.Question
	for rows.Next() {
		var (
			q                          question.Question
			typ, difficulty            string
			options, answer, testCases []byte
		)
		if err := rows.Scan(&q.ID, &typ, &q.Prompt, &q.Points, &difficulty, &q.Category, &q.Tags, &options,
			&answer, &q.CodeTemplate, &q.Language, &testCases, &q.Explanation); err != nil {
			return nil, err
		}
		q.Type = question.Type(typ)
		q.Difficulty = question.Difficulty(difficulty)
		if err := unmarshalOptional(options, &q.Options); err != nil {
			return nil, fmt.Errorf("question %s options: %w", q.ID, err)
		}
		if err := unmarshalOptional(answer, &q.CorrectAnswer); err != nil {
			return nil, fmt.Errorf("question %s correct answer: %w", q.ID, err)
		}
		if err := unmarshalOptional(testCases, &q.TestCases); err != nil {
			return nil, fmt.Errorf("question %s test cases: %w", q.ID, err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Upsert stores a question at a position in the exam's bank.
func (r *QuestionRepository) Upsert(ctx context.Context, examID string, position int, q question.Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	options, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	answer, err := json.Marshal(q.CorrectAnswer)
	if err != nil {
		return err
	}
	testCases, err := json.Marshal(q.TestCases)
	if err != nil {
		return err
	}
	tags := q.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO questions (id, exam_id, position, type, prompt, points, difficulty, category, tags,
		                       options, correct_answer, code_template, language, test_cases, explanation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			exam_id = EXCLUDED.exam_id, position = EXCLUDED.position, type = EXCLUDED.type,
			prompt = EXCLUDED.prompt, points = EXCLUDED.points, difficulty = EXCLUDED.difficulty,
			category = EXCLUDED.category, tags = EXCLUDED.tags, options = EXCLUDED.options,
			correct_answer = EXCLUDED.correct_answer, code_template = EXCLUDED.code_template,
			language = EXCLUDED.language, test_cases = EXCLUDED.test_cases, explanation = EXCLUDED.explanation`,
		q.ID, examID, position, string(q.Type), q.Prompt, q.Points, string(q.Difficulty), q.Category, tags,
		options, answer, q.CodeTemplate, q.Language, testCases, q.Explanation)
	return err
}

func unmarshalOptional(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
