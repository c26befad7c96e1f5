package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Jayem09/coduxa-sub000/internal/analytics"
	"github.com/Jayem09/coduxa-sub000/internal/auth/jwt"
	"github.com/Jayem09/coduxa-sub000/internal/config"
	"github.com/Jayem09/coduxa-sub000/internal/db/repository"
	"github.com/Jayem09/coduxa-sub000/internal/logging"
	"github.com/Jayem09/coduxa-sub000/internal/metrics"
	"github.com/Jayem09/coduxa-sub000/internal/question"
	"github.com/Jayem09/coduxa-sub000/internal/question/runner"
	"github.com/Jayem09/coduxa-sub000/internal/scoring"
	"github.com/Jayem09/coduxa-sub000/internal/server"
	"github.com/Jayem09/coduxa-sub000/internal/session"
	ws "github.com/Jayem09/coduxa-sub000/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	exams          *repository.ExamRepository
	warmer         *question.WarmWorker
	warmQueue      chan string
	autosaveWorker *session.AutosaveWorker
	relay          *session.Relay
	bgCancels      []context.CancelFunc
}

// New bootstraps configs, logger, Postgres, Redis and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	pool, err := pgxpool.New(ctx, cfg.Postgres.ConnString())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	resultRepo := repository.NewResultRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)

	tokens := jwt.NewManager(jwt.TokenConfig{
		Secret:   []byte(cfg.Security.JWTSecret),
		Issuer:   cfg.Security.JWTIssuer,
		Audience: cfg.Security.JWTAudience,
	})

	// Question bank, cache and grading
	questionCache := question.NewCache(redisClient, cfg.Exam.QuestionCacheTTL)
	questionSvc := question.NewService(questionRepo, questionCache, logger)

	executor, err := runner.New(runner.Options{
		Kind:             cfg.Runner.Kind,
		Timeout:          cfg.Runner.Timeout,
		PistonURL:        cfg.Runner.PistonURL,
		AllowUnsafeLocal: cfg.Runner.AllowUnsafeLocal,
		RunAs:            runner.RunAsFromIDs(cfg.Runner.UID, cfg.Runner.GID),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("code runner: %w", err)
	}
	evaluator := question.NewEvaluator(executor, logger)

	engine, err := scoring.NewEngine(scoring.Config{PassingThreshold: cfg.Exam.PassingThreshold}, evaluator)
	if err != nil {
		return nil, fmt.Errorf("scoring engine: %w", err)
	}

	// Sessions
	checkpointStore := session.NewRedisStore(redisClient, cfg.Exam.CheckpointTTL, logger)
	analyticsSvc := analytics.NewService(redisClient, logger, analytics.ServiceOptions{
		TopN:     cfg.Exam.AnalyticsTopN,
		EntryTTL: cfg.Exam.AnalyticsRetention,
	})
	wsHub := ws.NewHub(logger)
	relay := session.NewRelay(redisClient, wsHub, cfg.Redis.EventsChannel, logger)

	sessionSvc := session.NewService(session.Dependencies{
		Exams:       examRepo,
		Questions:   questionSvc,
		Results:     resultRepo,
		Profiles:    profileRepo,
		Checkpoints: checkpointStore,
		Locker:      checkpointStore,
		Leases:      checkpointStore,
		Scorer:      engine,
		Notifier:    relay,
		Recorder:    analyticsSvc,
		Metrics:     metrics.New(nil),
	}, session.ServiceOptions{
		Freshness:         cfg.Exam.CheckpointFresh,
		Retention:         cfg.Exam.SessionRetention,
		PassingThreshold:  &cfg.Exam.PassingThreshold,
		LenientNavigation: !cfg.Exam.StrictNavigation,
		LeaseTTL:          3 * cfg.Exam.AutosaveInterval,
	}, logger)

	sessionHTTP := session.NewHTTPHandlers(sessionSvc, logger)
	sessionWS := session.NewWSHandler(sessionSvc, wsHub, tokens, logger)
	analyticsHTTP := analytics.NewHTTPHandler(analyticsSvc, logger)

	var autosaveWorker *session.AutosaveWorker
	if interval := cfg.Exam.AutosaveInterval; interval > 0 {
		autosaveWorker = session.NewAutosaveWorker(sessionSvc, interval, logger)
	}

	warmQueue := make(chan string, 64)
	warmer := question.NewWarmWorker(questionSvc, warmQueue, logger, cfg.Exam.CacheWarmTimeout)

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, tokens, server.Routes{
		StartSession: sessionHTTP.Start,
		GetSession:   sessionHTTP.Get,
		Answer:       sessionHTTP.Answer,
		Navigate:     sessionHTTP.Navigate,
		Flag:         sessionHTTP.Flag,
		Submit:       sessionHTTP.Submit,
		Close:        sessionHTTP.Close,
		Results:      sessionHTTP.Results,
		Profile:      sessionHTTP.Profile,
		Analytics:    analyticsHTTP.HandleGet,
		SessionWS:    sessionWS.HandleWebSocket,
	})

	return &Application{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		http:           apiServer,
		exams:          examRepo,
		warmer:         warmer,
		warmQueue:      warmQueue,
		autosaveWorker: autosaveWorker,
		relay:          relay,
		bgCancels:      make([]context.CancelFunc, 0, 2),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}
	a.warmer.Stop()

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	go a.warmer.Run()
	go a.queueWarmups(ctx)

	relayCtx, cancelRelay := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancelRelay)
	go func() {
		if err := a.relay.Run(relayCtx); err != nil && err != context.Canceled {
			a.logger.Warn().Err(err).Msg("session event relay stopped")
		}
	}()

	if a.autosaveWorker != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.autosaveWorker.Run(bgCtx); err != nil && err != context.Canceled {
				a.logger.Warn().Err(err).Msg("autosave worker stopped")
			}
		}()
	}
}

// queueWarmups feeds every active exam to the cache warmer once.
func (a *Application) queueWarmups(ctx context.Context) {
	defer close(a.warmQueue)

	exams, err := a.exams.ListActive(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("listing exams for cache warmup failed")
		return
	}
	for _, e := range exams {
		select {
		case a.warmQueue <- e.ID:
		case <-ctx.Done():
			return
		}
	}
	a.logger.Info().Int("exams", len(exams)).Msg("question cache warmup queued")
}
