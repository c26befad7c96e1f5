package question

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBank struct {
	calls int
	fetch func(ctx context.Context, examID string) ([]Question, error)
}

func (s *stubBank) ListByExam(ctx context.Context, examID string) ([]Question, error) {
	s.calls++
	return s.fetch(ctx, examID)
}

type memoryCache struct {
	store  map[string][]Question
	getErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{store: map[string][]Question{}}
}

func (c *memoryCache) Get(_ context.Context, examID string) ([]Question, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.store[examID], nil
}

func (c *memoryCache) Set(_ context.Context, examID string, qs []Question) error {
	c.store[examID] = qs
	return nil
}

func sampleSet() []Question {
	return []Question{mcq(), tfq(), blankq(), codingq()}
}

func TestExamQuestions_CachesBankResult(t *testing.T) {
	bank := &stubBank{fetch: func(context.Context, string) ([]Question, error) { return sampleSet(), nil }}
	cache := newMemoryCache()
	svc := NewService(bank, cache, zerolog.Nop())

	first, err := svc.ExamQuestions(context.Background(), "go-basics")
	require.NoError(t, err)
	assert.Len(t, first, 4)
	assert.Len(t, cache.store["go-basics"], 4)

	second, err := svc.ExamQuestions(context.Background(), "go-basics")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, bank.calls, "second call should be served from cache")
}

func TestExamQuestions_CacheFailureFallsBack(t *testing.T) {
	bank := &stubBank{fetch: func(context.Context, string) ([]Question, error) { return sampleSet(), nil }}
	cache := newMemoryCache()
	cache.getErr = errors.New("redis down")
	svc := NewService(bank, cache, zerolog.Nop())

	qs, err := svc.ExamQuestions(context.Background(), "go-basics")
	require.NoError(t, err)
	assert.Len(t, qs, 4)
}

func TestExamQuestions_Errors(t *testing.T) {
	empty := &stubBank{fetch: func(context.Context, string) ([]Question, error) { return nil, nil }}
	_, err := NewService(empty, nil, zerolog.Nop()).ExamQuestions(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoQuestions)

	broken := &stubBank{fetch: func(context.Context, string) ([]Question, error) {
		return []Question{{ID: "bad", Type: TypeMultipleChoice, Points: 1, Options: []string{"a"}}}, nil
	}}
	_, err = NewService(broken, newMemoryCache(), zerolog.Nop()).ExamQuestions(context.Background(), "x")
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	failing := &stubBank{fetch: func(context.Context, string) ([]Question, error) { return nil, errors.New("db down") }}
	_, err = NewService(failing, nil, zerolog.Nop()).ExamQuestions(context.Background(), "x")
	assert.ErrorContains(t, err, "db down")
}

func TestPick_DeterministicPerSeed(t *testing.T) {
	qs := make([]Question, 20)
	for i := range qs {
		qs[i] = Question{ID: string(rune('a' + i)), Type: TypeTrueFalse, Points: 1, CorrectAnswer: Key{"true"}}
	}

	a := Pick(qs, 10, "session-1")
	b := Pick(qs, 10, "session-1")
	c := Pick(qs, 10, "session-2")

	assert.Len(t, a, 10)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "a", qs[0].ID, "input must not be reordered")
}

func TestPick_NoSeedKeepsOrder(t *testing.T) {
	qs := sampleSet()
	assert.Equal(t, qs, Pick(qs, 0, ""))
	assert.Equal(t, qs[:2], Pick(qs, 2, ""))
	assert.Len(t, Pick(qs, 99, "s"), 4)
}

func TestSelect(t *testing.T) {
	bank := &stubBank{fetch: func(context.Context, string) ([]Question, error) { return sampleSet(), nil }}
	svc := NewService(bank, nil, zerolog.Nop())

	qs, err := svc.Select(context.Background(), SelectRequest{ExamID: "go-basics", Count: 3, Seed: "abc"})
	require.NoError(t, err)
	assert.Len(t, qs, 3)
	assert.NoError(t, ValidateSet(qs))
}

func TestWarmWorker_FillsCache(t *testing.T) {
	bank := &stubBank{fetch: func(context.Context, string) ([]Question, error) { return sampleSet(), nil }}
	cache := newMemoryCache()
	svc := NewService(bank, cache, zerolog.Nop())

	queue := make(chan string, 2)
	queue <- "go-basics"
	queue <- "js-basics"
	close(queue)

	w := NewWarmWorker(svc, queue, zerolog.Nop(), time.Second)
	w.Run()

	assert.Len(t, cache.store["go-basics"], 4)
	assert.Len(t, cache.store["js-basics"], 4)
}
