package question

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// WarmWorker preloads exam question sets into the cache so the first
// session start of an exam does not pay for the bank query.
type WarmWorker struct {
	service   *Service
	queue     <-chan string
	logger    zerolog.Logger
	timeout   time.Duration
	shutdownC chan struct{}
}

func NewWarmWorker(service *Service, queue <-chan string, logger zerolog.Logger, timeout time.Duration) *WarmWorker {
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &WarmWorker{
		service:   service,
		queue:     queue,
		logger:    logger.With().Str("component", "question_warmer").Logger(),
		timeout:   timeout,
		shutdownC: make(chan struct{}),
	}
}

func (w *WarmWorker) Run() {
	for {
		select {
		case <-w.shutdownC:
			w.logger.Info().Msg("question warmer stopping")
			return
		case examID, ok := <-w.queue:
			if !ok {
				return
			}
			w.handle(examID)
		}
	}
}

func (w *WarmWorker) handle(examID string) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	qs, err := w.service.ExamQuestions(ctx, examID)
	if err != nil {
		w.logger.Warn().Err(err).Str("exam_id", examID).Msg("warm failed")
		return
	}
	w.logger.Debug().Str("exam_id", examID).Int("questions", len(qs)).Msg("question set warmed")
}

func (w *WarmWorker) Stop() {
	close(w.shutdownC)
}
