// Package analytics aggregates per-exam attempt statistics in Redis.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Jayem09/coduxa-sub000/internal/scoring"
)

const uncategorized = "uncategorized"

// CategoryStat is the accuracy of all attempts on one question category.
type CategoryStat struct {
	Category string  `json:"category"`
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy"`
}

// TopEntry is a user's best percentage on an exam.
type TopEntry struct {
	Rank       int     `json:"rank"`
	UserID     string  `json:"userId"`
	Percentage float64 `json:"percentage"`
}

// ExamSummary is the aggregate view of an exam.
type ExamSummary struct {
	ExamID     string         `json:"examId"`
	Attempts   int            `json:"attempts"`
	Passed     int            `json:"passed"`
	PassRate   float64        `json:"passRate"`
	Categories []CategoryStat `json:"categories"`
	Top        []TopEntry     `json:"top"`
}

// RecordRequest captures one finished attempt.
type RecordRequest struct {
	ExamID string
	UserID string
	Result scoring.Result
}

// ServiceOptions configures analytics behavior.
type ServiceOptions struct {
	TopN           int
	EntryTTL       time.Duration
	RedisKeyPrefix string
}

// Service keeps exam statistics in Redis hashes and a best-score sorted set.
type Service struct {
	redis    *redis.Client
	logger   zerolog.Logger
	topN     int
	entryTTL time.Duration
	prefix   string
}

func NewService(client *redis.Client, logger zerolog.Logger, opts ServiceOptions) *Service {
	topN := opts.TopN
	if topN <= 0 {
		topN = 10
	}
	prefix := opts.RedisKeyPrefix
	if prefix == "" {
		prefix = "analytics"
	}
	return &Service{
		redis:    client,
		logger:   logger.With().Str("component", "analytics").Logger(),
		topN:     topN,
		entryTTL: opts.EntryTTL,
		prefix:   prefix,
	}
}

// CategoryTotals folds a result's breakdown into per-category counts.
func CategoryTotals(res scoring.Result) map[string]CategoryStat {
	out := make(map[string]CategoryStat)
	for _, line := range res.Breakdown {
		cat := line.Category
		if cat == "" {
			cat = uncategorized
		}
		st := out[cat]
		st.Category = cat
		st.Total++
		if line.Correct {
			st.Correct++
		}
		out[cat] = st
	}
	return out
}

// Record adds one attempt to the exam's aggregates.
func (s *Service) Record(ctx context.Context, req RecordRequest) error {
	summaryKey := s.summaryKey(req.ExamID)
	catKey := s.categoryKey(req.ExamID)
	topKey := s.topKey(req.ExamID)

	pipe := s.redis.TxPipeline()
	pipe.HIncrBy(ctx, summaryKey, "attempts", 1)
	if req.Result.Passed {
		pipe.HIncrBy(ctx, summaryKey, "passed", 1)
	}
	for cat, st := range CategoryTotals(req.Result) {
		pipe.HIncrBy(ctx, catKey, cat+":correct", int64(st.Correct))
		pipe.HIncrBy(ctx, catKey, cat+":total", int64(st.Total))
	}
	if req.UserID != "" {
		// keep each user's best attempt only
		pipe.ZAddGT(ctx, topKey, redis.Z{Score: req.Result.Percentage, Member: req.UserID})
	}
	if s.entryTTL > 0 {
		pipe.Expire(ctx, summaryKey, s.entryTTL)
		pipe.Expire(ctx, catKey, s.entryTTL)
		pipe.Expire(ctx, topKey, s.entryTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record analytics for %s: %w", req.ExamID, err)
	}
	return nil
}

// Summary reads the aggregates of an exam.
func (s *Service) Summary(ctx context.Context, examID string) (ExamSummary, error) {
	out := ExamSummary{ExamID: examID, Categories: []CategoryStat{}, Top: []TopEntry{}}

	summary, err := s.redis.HGetAll(ctx, s.summaryKey(examID)).Result()
	if err != nil {
		return out, fmt.Errorf("read summary: %w", err)
	}
	out.Attempts = parseInt(summary["attempts"])
	out.Passed = parseInt(summary["passed"])
	if out.Attempts > 0 {
		out.PassRate = float64(out.Passed) / float64(out.Attempts)
	}

	cats, err := s.redis.HGetAll(ctx, s.categoryKey(examID)).Result()
	if err != nil {
		return out, fmt.Errorf("read categories: %w", err)
	}
	out.Categories = ParseCategories(cats)

	top, err := s.redis.ZRevRangeWithScores(ctx, s.topKey(examID), 0, int64(s.topN-1)).Result()
	if err != nil {
		return out, fmt.Errorf("read top: %w", err)
	}
	for i, z := range top {
		member, _ := z.Member.(string)
		out.Top = append(out.Top, TopEntry{Rank: i + 1, UserID: member, Percentage: z.Score})
	}
	return out, nil
}

// ParseCategories turns "<category>:correct" / "<category>:total" hash
// fields into sorted stats.
func ParseCategories(fields map[string]string) []CategoryStat {
	byCat := make(map[string]*CategoryStat)
	for field, raw := range fields {
		idx := strings.LastIndexByte(field, ':')
		if idx <= 0 {
			continue
		}
		cat, kind := field[:idx], field[idx+1:]
		st, ok := byCat[cat]
		if !ok {
			st = &CategoryStat{Category: cat}
			byCat[cat] = st
		}
		switch kind {
		case "correct":
			st.Correct = parseInt(raw)
		case "total":
			st.Total = parseInt(raw)
		}
	}

	out := make([]CategoryStat, 0, len(byCat))
	for _, st := range byCat {
		if st.Total > 0 {
			st.Accuracy = float64(st.Correct) / float64(st.Total)
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

func (s *Service) summaryKey(examID string) string {
	return fmt.Sprintf("%s:exam:%s:summary", s.prefix, examID)
}

func (s *Service) categoryKey(examID string) string {
	return fmt.Sprintf("%s:exam:%s:categories", s.prefix, examID)
}

func (s *Service) topKey(examID string) string {
	return fmt.Sprintf("%s:exam:%s:top", s.prefix, examID)
}

func parseInt(val string) int {
	if val == "" {
		return 0
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return i
}
