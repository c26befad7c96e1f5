package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultAutosaveInterval matches the client-side save cadence.
const DefaultAutosaveInterval = 30 * time.Second

// AutosaveWorker periodically checkpoints every live session.
type AutosaveWorker struct {
	svc      *Service
	logger   zerolog.Logger
	interval time.Duration
}

// NewAutosaveWorker creates a worker that checkpoints live sessions every interval.
func NewAutosaveWorker(svc *Service, interval time.Duration, logger zerolog.Logger) *AutosaveWorker {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	return &AutosaveWorker{
		svc:      svc,
		logger:   logger.With().Str("component", "session_autosave_worker").Logger(),
		interval: interval,
	}
}

// Run blocks until context cancellation.
func (w *AutosaveWorker) Run(ctx context.Context) error {
	if w.svc == nil {
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *AutosaveWorker) tick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()

	started := time.Now()
	saved := w.svc.Autosave(tickCtx)
	if saved > 0 {
		w.logger.Debug().
			Int("saved", saved).
			Dur("took", time.Since(started)).
			Msg("sessions checkpointed")
	}
}
