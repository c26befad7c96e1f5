package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Jayem09/coduxa-sub000/internal/analytics"
	"github.com/Jayem09/coduxa-sub000/internal/certificate"
	"github.com/Jayem09/coduxa-sub000/internal/db/repository"
	"github.com/Jayem09/coduxa-sub000/internal/metrics"
	"github.com/Jayem09/coduxa-sub000/internal/question"
	"github.com/Jayem09/coduxa-sub000/internal/scoring"
	"github.com/Jayem09/coduxa-sub000/pkg/http/ws"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrNotOwner            = errors.New("session belongs to another user")
	ErrExamNotFound        = errors.New("exam not found")
	ErrExamUnavailable     = errors.New("exam is not available")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrCreditCheck         = errors.New("credit check failed")
	ErrInvalidRequest      = errors.New("invalid request")
)

// NoticeNotSaved is shown when a result was scored but could not be stored.
const NoticeNotSaved = "Your result could not be saved. Please check your connection; your score is shown below."

// CreditError carries the credit gate's message for the caller.
type CreditError struct {
	Reason  string
	Balance int
}

func (e *CreditError) Error() string { return e.Reason }

func (e *CreditError) Unwrap() error { return ErrInsufficientCredits }

// ExamCatalog looks up exam definitions.
type ExamCatalog interface {
	GetExam(ctx context.Context, id string) (repository.Exam, error)
}

// QuestionSource picks the question sequence of a new session.
type QuestionSource interface {
	Select(ctx context.Context, req question.SelectRequest) ([]question.Question, error)
}

// ResultStore persists finished attempts.
type ResultStore interface {
	SaveExamResult(ctx context.Context, res repository.ExamResult) (repository.ExamResult, error)
	GetUserExamResults(ctx context.Context, userID string) ([]repository.ExamResult, error)
}

// ProfileStore reads profiles and runs the credit gate.
type ProfileStore interface {
	GetUserProfile(ctx context.Context, userID string) (*repository.Profile, error)
	DeductCredits(ctx context.Context, userID string, amount int) (repository.CreditDeduction, error)
}

// Notifier pushes events to the clients following a session.
type Notifier interface {
	BroadcastToSession(sessionID string, msg ws.Message) error
}

// Recorder receives finished attempts for aggregation.
type Recorder interface {
	Record(ctx context.Context, req analytics.RecordRequest) error
}

// Dependencies are the collaborators of the session service. Notifier,
// Recorder, Locker, Leases and Metrics are optional.
type Dependencies struct {
	Exams       ExamCatalog
	Questions   QuestionSource
	Results     ResultStore
	Profiles    ProfileStore
	Checkpoints CheckpointStore
	Locker      Locker
	Leases      Leaser
	Scorer      Scorer
	Notifier    Notifier
	Recorder    Recorder
	Metrics     *metrics.Metrics
}

// ServiceOptions configures session behavior.
type ServiceOptions struct {
	// Freshness is how old a checkpoint may be and still be restored.
	Freshness time.Duration
	// Retention keeps finished sessions in memory so repeated submits
	// and views are answered consistently.
	Retention time.Duration
	// PassingThreshold applies to exams stored without one; nil falls back
	// to scoring.DefaultPassingThreshold.
	PassingThreshold  *float64
	LenientNavigation bool
	// Owner identifies this instance in session leases. LeaseTTL must
	// outlast the autosave interval, which renews the leases.
	Owner    string
	LeaseTTL time.Duration
	Now      func() time.Time
}

// DefaultLeaseTTL covers three autosave ticks at the default interval.
const DefaultLeaseTTL = 3 * DefaultAutosaveInterval

// Service orchestrates session start, mutation, submission and closure.
type Service struct {
	deps     Dependencies
	registry *Registry
	opts     ServiceOptions
	now      func() time.Time
	logger   zerolog.Logger
}

// NewService creates a session service.
func NewService(deps Dependencies, opts ServiceOptions, logger zerolog.Logger) *Service {
	if opts.Freshness <= 0 {
		opts.Freshness = DefaultFreshness
	}
	if opts.Retention <= 0 {
		opts.Retention = 15 * time.Minute
	}
	if opts.Owner == "" {
		opts.Owner = uuid.NewString()
	}
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = DefaultLeaseTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop()
	}
	return &Service{
		deps:     deps,
		registry: NewRegistry(),
		opts:     opts,
		now:      now,
		logger:   logger.With().Str("component", "session_service").Logger(),
	}
}

// Registry exposes the live sessions, mainly for the autosave worker.
func (s *Service) Registry() *Registry {
	return s.registry
}

// StartRequest asks for a new attempt. SessionID is optional; when it names
// a live session or a fresh checkpoint the attempt is resumed.
type StartRequest struct {
	ExamID    string
	UserID    string
	SessionID string
}

// View is the candidate-facing state of a session. Questions never carry
// their answer keys.
type View struct {
	SessionID        string              `json:"sessionId"`
	ExamID           string              `json:"examId"`
	ExamTitle        string              `json:"examTitle"`
	Status           Status              `json:"status"`
	StartTime        time.Time           `json:"startTime"`
	EndTime          *time.Time          `json:"endTime,omitempty"`
	TimeLimitMinutes int                 `json:"timeLimit"`
	RemainingSeconds int                 `json:"remainingSeconds"`
	CurrentIndex     int                 `json:"currentQuestionIndex"`
	Questions        []question.Question `json:"questions"`
	Answers          map[string]string   `json:"answers"`
	Flagged          []string            `json:"flaggedQuestions"`
	Accessible       []int               `json:"accessibleQuestions"`
	MaxScore         int                 `json:"maxScore"`
	PassingThreshold float64             `json:"passingScore"`
	Resumed          bool                `json:"resumed"`
	CreditBalance    *int                `json:"creditBalance,omitempty"`
}

// SubmitResult is returned by Submit.
type SubmitResult struct {
	SessionID     string         `json:"sessionId"`
	Result        scoring.Result `json:"result"`
	TimeSpent     int            `json:"timeSpent"`
	CertificateID string         `json:"certificateId,omitempty"`
	Saved         bool           `json:"saved"`
	Notice        string         `json:"notice,omitempty"`
}

// CloseResult is returned by Close.
type CloseResult struct {
	SessionID string          `json:"sessionId"`
	Saved     bool            `json:"saved"`
	Result    *scoring.Result `json:"result,omitempty"`
	Notice    string          `json:"notice,omitempty"`
}

// Start creates or resumes an attempt. Credits are deducted only when a
// new attempt is created; resuming never charges again.
func (s *Service) Start(ctx context.Context, req StartRequest) (View, error) {
	if req.ExamID == "" || req.UserID == "" {
		return View{}, fmt.Errorf("%w: exam and user are required", ErrInvalidRequest)
	}

	if req.SessionID != "" {
		if h, ok := s.registry.get(req.SessionID); ok {
			return s.resumeLive(h, req)
		}
	}

	exam, err := s.deps.Exams.GetExam(ctx, req.ExamID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return View{}, fmt.Errorf("%w: %s", ErrExamNotFound, req.ExamID)
		}
		return View{}, fmt.Errorf("load exam: %w", err)
	}
	if !exam.Active {
		return View{}, fmt.Errorf("%w: %s", ErrExamUnavailable, req.ExamID)
	}

	id := req.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	log := s.logger.With().Str("session_id", id).Str("exam_id", exam.ID).Str("user_id", req.UserID).Logger()

	if s.deps.Locker != nil {
		unlock, err := s.deps.Locker.Lock(ctx, id)
		if err != nil {
			return View{}, fmt.Errorf("lock session: %w", err)
		}
		defer func() {
			if err := unlock(); err != nil {
				log.Warn().Err(err).Msg("failed to release session lock")
			}
		}()
	}

	// Another instance serving this session keeps it until its lease lapses.
	if err := s.claim(ctx, id); err != nil {
		if errors.Is(err, ErrLockHeld) {
			log.Info().Msg("session owned by another instance")
		}
		return View{}, err
	}
	owned := false
	defer func() {
		if !owned {
			s.release(ctx, id)
		}
	}()

	qs, err := s.deps.Questions.Select(ctx, question.SelectRequest{
		ExamID: exam.ID,
		Count:  exam.QuestionCount,
		Seed:   id,
	})
	if err != nil {
		return View{}, fmt.Errorf("select questions: %w", err)
	}

	threshold := exam.PassingThreshold
	if threshold == nil {
		threshold = s.opts.PassingThreshold
	}
	sess, err := New(Params{
		ID:                id,
		ExamID:            exam.ID,
		ExamTitle:         exam.Title,
		UserID:            req.UserID,
		StartTime:         s.now(),
		TimeLimit:         exam.TimeLimit(),
		Questions:         qs,
		PassingThreshold:  threshold,
		LenientNavigation: s.opts.LenientNavigation,
	})
	if err != nil {
		return View{}, fmt.Errorf("create session: %w", err)
	}

	resumed, err := s.restore(ctx, sess, req.SessionID != "", log)
	if err != nil {
		return View{}, err
	}

	var balance *int
	if !resumed && exam.CreditCost > 0 {
		nb, err := s.charge(ctx, req.UserID, exam.CreditCost)
		if err != nil {
			log.Info().Err(err).Msg("session refused by credit gate")
			return View{}, err
		}
		balance = &nb
	}

	h, added := s.registry.add(sess)
	// the lease now belongs to whichever handle is live here
	owned = true
	if !added {
		// a concurrent start on this instance won the race
		return s.resumeLive(h, req)
	}

	origin := "new"
	if resumed {
		origin = "resumed"
	}
	s.deps.Metrics.SessionsStarted.WithLabelValues(origin).Inc()
	s.deps.Metrics.ActiveSessions.Set(float64(s.registry.Len()))

	h.mu.Lock()
	defer h.mu.Unlock()
	s.checkpoint(ctx, h.s)

	log.Info().Str("origin", origin).Int("questions", sess.Len()).Msg("session started")

	view := s.view(h.s)
	view.Resumed = resumed
	view.CreditBalance = balance
	return view, nil
}

func (s *Service) resumeLive(h *handle, req StartRequest) (View, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.s.UserID() != req.UserID || h.s.ExamID() != req.ExamID {
		return View{}, ErrNotOwner
	}
	view := s.view(h.s)
	view.Resumed = true
	return view, nil
}

// restore applies a stored checkpoint to a fresh session. A stale or
// unusable checkpoint is discarded and the session starts from defaults.
func (s *Service) restore(ctx context.Context, sess *Session, lookup bool, log zerolog.Logger) (bool, error) {
	if !lookup || s.deps.Checkpoints == nil {
		return false, nil
	}
	cp, err := s.deps.Checkpoints.Load(ctx, sess.ID())
	if err != nil {
		log.Warn().Err(err).Msg("checkpoint load failed; starting fresh")
		return false, nil
	}
	if cp == nil {
		return false, nil
	}

	if cp.UserID != "" && cp.UserID != sess.UserID() {
		return false, ErrNotOwner
	}

	switch err := sess.Restore(*cp, s.now(), s.opts.Freshness); {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrStaleCheckpoint):
		log.Info().Time("checkpoint_at", cp.Timestamp).Msg("discarding stale checkpoint")
	default:
		log.Warn().Err(err).Msg("discarding unusable checkpoint")
	}
	if err := s.deps.Checkpoints.Delete(ctx, sess.ID()); err != nil {
		log.Warn().Err(err).Msg("failed to delete checkpoint")
	}
	return false, nil
}

func (s *Service) charge(ctx context.Context, userID string, amount int) (int, error) {
	res, err := s.deps.Profiles.DeductCredits(ctx, userID, amount)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCreditCheck, err)
	}
	if !res.Success {
		reason := res.Error
		if reason == "" {
			reason = ErrInsufficientCredits.Error()
		}
		return 0, &CreditError{Reason: reason, Balance: res.NewBalance}
	}
	return res.NewBalance, nil
}

// View returns the current state of a session owned by userID.
func (s *Service) View(ctx context.Context, sessionID, userID string) (View, error) {
	var out View
	err := s.with(sessionID, userID, func(sess *Session) error {
		out = s.view(sess)
		return nil
	})
	return out, err
}

// Answer records raw as the answer to questionID and checkpoints the session.
func (s *Service) Answer(ctx context.Context, sessionID, userID, questionID, raw string) (View, error) {
	var out View
	err := s.with(sessionID, userID, func(sess *Session) error {
		if sess.Status().Terminal() {
			return ErrSessionFinished
		}
		idx := question.IndexOf(sess.questions, questionID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
		}
		if err := sess.RecordAnswer(questionID, question.NewAnswer(sess.questions[idx].Type, raw)); err != nil {
			return err
		}
		s.checkpoint(ctx, sess)
		out = s.view(sess)
		return nil
	})
	return out, err
}

// Navigate moves the cursor and checkpoints the session.
func (s *Service) Navigate(ctx context.Context, sessionID, userID string, index int) (View, error) {
	var out View
	err := s.with(sessionID, userID, func(sess *Session) error {
		if err := sess.NavigateTo(index); err != nil {
			return err
		}
		s.checkpoint(ctx, sess)
		out = s.view(sess)
		return nil
	})
	return out, err
}

// Flag toggles the review mark on a question and returns the new state.
func (s *Service) Flag(ctx context.Context, sessionID, userID, questionID string) (bool, error) {
	var flagged bool
	err := s.with(sessionID, userID, func(sess *Session) error {
		var err error
		if flagged, err = sess.ToggleFlag(questionID); err != nil {
			return err
		}
		s.checkpoint(ctx, sess)
		return nil
	})
	return flagged, err
}

// Submit scores the attempt, ends it and stores the result. A storage
// failure is reported through Saved and Notice, never as an error.
func (s *Service) Submit(ctx context.Context, sessionID, userID string) (SubmitResult, error) {
	var out SubmitResult
	err := s.with(sessionID, userID, func(sess *Session) error {
		if err := s.confirmOwner(ctx, sess); err != nil {
			return err
		}
		now := s.now()
		started := time.Now()
		res, err := sess.Submit(ctx, s.deps.Scorer, now)
		if errors.Is(err, ErrAlreadySubmitted) {
			out = SubmitResult{SessionID: sess.ID(), Result: res, TimeSpent: sess.TimeSpentMinutes(now)}
			return err
		}
		if err != nil {
			return err
		}
		s.deps.Metrics.ScoringDuration.Observe(time.Since(started).Seconds())

		out = SubmitResult{
			SessionID: sess.ID(),
			Result:    res,
			TimeSpent: sess.TimeSpentMinutes(now),
		}
		if res.Passed {
			certID, err := certificate.NewID(sess.ExamID(), sess.UserID(), now)
			if err != nil {
				s.logger.Error().Err(err).Str("session_id", sess.ID()).Msg("certificate generation failed")
			} else {
				out.CertificateID = certID
			}
		}

		saved, prior := s.persist(ctx, sess, res, out.CertificateID, now)
		if prior != nil {
			// another instance submitted this session first
			stored := adopt(sess, *prior)
			s.dropCheckpoint(ctx, sess.ID())
			out = SubmitResult{
				SessionID:     sess.ID(),
				Result:        stored,
				TimeSpent:     prior.TimeSpent,
				Saved:         true,
				CertificateID: prior.CertificateID,
			}
			return ErrAlreadySubmitted
		}
		out.Saved = saved
		if !out.Saved {
			out.Notice = NoticeNotSaved
		}
		s.finish(ctx, sess, res)

		s.notify(sess.ID(), ws.TypeSessionSubmitted, ws.SessionSubmittedPayload{
			SessionID:     sess.ID(),
			Score:         res.EarnedPoints,
			MaxScore:      res.TotalPoints,
			Percentage:    res.Percentage,
			Grade:         string(res.Grade),
			Passed:        res.Passed,
			Saved:         out.Saved,
			CertificateID: out.CertificateID,
		})
		return nil
	})
	return out, err
}

// Close ends the attempt without submitting. With save the current answers
// are scored and stored as a closed attempt.
func (s *Service) Close(ctx context.Context, sessionID, userID string, save bool) (CloseResult, error) {
	var out CloseResult
	err := s.with(sessionID, userID, func(sess *Session) error {
		if err := s.confirmOwner(ctx, sess); err != nil {
			return err
		}
		now := s.now()
		if err := sess.Close(now); err != nil {
			return err
		}
		out.SessionID = sess.ID()

		if save {
			res, err := sess.Preview(ctx, s.deps.Scorer)
			if err != nil {
				s.logger.Error().Err(err).Str("session_id", sess.ID()).Msg("scoring closed session failed")
				out.Notice = NoticeNotSaved
			} else {
				saved, prior := s.persist(ctx, sess, res, "", now)
				out.Result = &res
				out.Saved = saved
				if prior != nil {
					stored := adopt(sess, *prior)
					out.Result = &stored
					out.Saved = true
				} else {
					if !saved {
						out.Notice = NoticeNotSaved
					}
					s.finish(ctx, sess, res)
				}
			}
		} else {
			s.deps.Metrics.SessionsFinished.WithLabelValues(string(StatusClosed), "false").Inc()
		}
		s.dropCheckpoint(ctx, sess.ID())

		s.notify(sess.ID(), ws.TypeSessionClosed, ws.SessionClosedPayload{SessionID: sess.ID(), Saved: out.Saved})
		return nil
	})
	return out, err
}

// Results lists the stored attempts of a user, newest first.
func (s *Service) Results(ctx context.Context, userID string) ([]repository.ExamResult, error) {
	return s.deps.Results.GetUserExamResults(ctx, userID)
}

// Profile returns the user's profile, or nil when none exists.
func (s *Service) Profile(ctx context.Context, userID string) (*repository.Profile, error) {
	return s.deps.Profiles.GetUserProfile(ctx, userID)
}

// Autosave checkpoints every in-progress session and pushes the remaining
// time to followers. It returns the number of checkpoints written.
func (s *Service) Autosave(ctx context.Context) int {
	saved := 0
	now := s.now()
	for _, h := range s.registry.snapshot() {
		h.mu.Lock()
		if h.s.Status() != StatusInProgress {
			h.mu.Unlock()
			continue
		}
		if err := s.claim(ctx, h.s.ID()); errors.Is(err, ErrLockHeld) {
			// another instance took over after our lease lapsed
			id := h.s.ID()
			h.mu.Unlock()
			s.registry.Remove(id)
			s.logger.Warn().Str("session_id", id).Msg("session lease lost; dropped local copy")
			continue
		} else if err != nil {
			s.logger.Warn().Err(err).Str("session_id", h.s.ID()).Msg("session lease renewal failed")
		}
		if s.checkpoint(ctx, h.s) {
			saved++
		}
		id, deadline, remaining := h.s.ID(), h.s.Deadline(), h.s.Remaining(now)
		h.mu.Unlock()

		if !deadline.IsZero() {
			s.notify(id, ws.TypeTimeRemaining, ws.TimeRemainingPayload{
				SessionID:        id,
				RemainingSeconds: int(remaining.Seconds()),
			})
		}
	}
	if evicted := s.registry.Sweep(now, s.opts.Retention); len(evicted) > 0 {
		for _, id := range evicted {
			s.release(ctx, id)
		}
		s.logger.Debug().Int("evicted", len(evicted)).Msg("finished sessions evicted")
	}
	s.deps.Metrics.ActiveSessions.Set(float64(s.registry.Len()))
	return saved
}

// with runs fn on a live session owned by userID while holding its lock.
func (s *Service) with(sessionID, userID string, fn func(*Session) error) error {
	h, ok := s.registry.get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.s.UserID() != userID {
		return ErrNotOwner
	}
	return fn(h.s)
}

// checkpoint writes a point-in-time snapshot. The caller holds the
// session lock. Failures are logged and counted.
func (s *Service) checkpoint(ctx context.Context, sess *Session) bool {
	if s.deps.Checkpoints == nil || sess.Status() != StatusInProgress {
		return false
	}
	cp := sess.Snapshot(s.now())
	if err := s.deps.Checkpoints.Save(ctx, sess.ID(), cp); err != nil {
		s.deps.Metrics.CheckpointSaves.WithLabelValues(metrics.OutcomeError).Inc()
		s.logger.Warn().Err(err).Str("session_id", sess.ID()).Msg("checkpoint save failed")
		return false
	}
	s.deps.Metrics.CheckpointSaves.WithLabelValues(metrics.OutcomeOK).Inc()

	s.notify(sess.ID(), ws.TypeCheckpointSaved, ws.CheckpointSavedPayload{
		SessionID:    sess.ID(),
		SavedAt:      cp.Timestamp.Format(time.RFC3339),
		CurrentIndex: cp.ExamSession.CurrentQuestionIndex,
		Answered:     len(cp.ExamSession.Answers),
		Flagged:      len(cp.ExamSession.FlaggedQuestions),
	})
	return true
}

func (s *Service) dropCheckpoint(ctx context.Context, sessionID string) {
	if s.deps.Checkpoints == nil {
		return
	}
	if err := s.deps.Checkpoints.Delete(ctx, sessionID); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("checkpoint delete failed")
	}
}

// persist hands the attempt to the result store and reports success. When
// the store already holds a result for the session that row is returned as
// prior and nothing new was written.
func (s *Service) persist(ctx context.Context, sess *Session, res scoring.Result, certID string, now time.Time) (bool, *repository.ExamResult) {
	end, ok := sess.EndTime()
	if !ok {
		end = now
	}
	record := repository.ExamResult{
		ID:            uuid.New(),
		SessionID:     sess.ID(),
		UserID:        sess.UserID(),
		ExamID:        sess.ExamID(),
		ExamTitle:     sess.ExamTitle(),
		Status:        string(sess.Status()),
		StartTime:     sess.StartTime(),
		EndTime:       end,
		TimeSpent:     sess.TimeSpentMinutes(now),
		Score:         res.EarnedPoints,
		MaxScore:      res.TotalPoints,
		Percentage:    res.Percentage,
		Grade:         string(res.Grade),
		Passed:        res.Passed,
		Answers:       sess.answers.Encode(),
		Questions:     sess.Questions(),
		CertificateID: certID,
	}
	stored, err := s.deps.Results.SaveExamResult(ctx, record)
	if err != nil {
		s.deps.Metrics.PersistFailures.Inc()
		s.logger.Error().Err(err).Str("session_id", sess.ID()).Msg("failed to save exam result")
		return false, nil
	}
	if stored.ID != record.ID {
		s.logger.Warn().Str("session_id", sess.ID()).Str("result_id", stored.ID.String()).
			Msg("result already stored for session; keeping the earlier one")
		return false, &stored
	}
	return true, nil
}

// adopt makes a stored result the session's outcome so later reads agree
// with what the candidate was first told.
func adopt(sess *Session, prior repository.ExamResult) scoring.Result {
	res := scoring.Result{
		TotalPoints:  prior.MaxScore,
		EarnedPoints: prior.Score,
		Percentage:   prior.Percentage,
		Passed:       prior.Passed,
		Grade:        scoring.Grade(prior.Grade),
	}
	sess.result = &res
	if !prior.EndTime.IsZero() {
		sess.endTime = prior.EndTime.UTC()
	}
	return res
}

// claim takes or renews this instance's lease on a session.
func (s *Service) claim(ctx context.Context, sessionID string) error {
	if s.deps.Leases == nil {
		return nil
	}
	return s.deps.Leases.Claim(ctx, sessionID, s.opts.Owner, s.opts.LeaseTTL)
}

// confirmOwner renews the lease before a session is finished here. A copy
// whose lease went to another instance is dropped from this one.
func (s *Service) confirmOwner(ctx context.Context, sess *Session) error {
	if sess.Status().Terminal() {
		return nil
	}
	err := s.claim(ctx, sess.ID())
	if errors.Is(err, ErrLockHeld) {
		s.registry.Remove(sess.ID())
	}
	return err
}

func (s *Service) release(ctx context.Context, sessionID string) {
	if s.deps.Leases == nil {
		return
	}
	if err := s.deps.Leases.Release(ctx, sessionID, s.opts.Owner); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("session lease release failed")
	}
}

// finish records the outcome of a terminal session.
func (s *Service) finish(ctx context.Context, sess *Session, res scoring.Result) {
	s.deps.Metrics.SessionsFinished.WithLabelValues(string(sess.Status()), strconv.FormatBool(res.Passed)).Inc()
	if sess.Status() == StatusSubmitted {
		s.dropCheckpoint(ctx, sess.ID())
	}
	if s.deps.Recorder == nil {
		return
	}
	if err := s.deps.Recorder.Record(ctx, analytics.RecordRequest{
		ExamID: sess.ExamID(),
		UserID: sess.UserID(),
		Result: res,
	}); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sess.ID()).Msg("analytics record failed")
	}
}

func (s *Service) notify(sessionID, msgType string, payload any) {
	if s.deps.Notifier == nil {
		return
	}
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("type", msgType).Msg("encode push message")
		return
	}
	// nobody listening is the common case
	_ = s.deps.Notifier.BroadcastToSession(sessionID, msg)
}

func (s *Service) view(sess *Session) View {
	qs := make([]question.Question, sess.Len())
	for i, q := range sess.questions {
		qs[i] = q.Public()
	}
	v := View{
		SessionID:        sess.ID(),
		ExamID:           sess.ExamID(),
		ExamTitle:        sess.ExamTitle(),
		Status:           sess.Status(),
		StartTime:        sess.StartTime(),
		TimeLimitMinutes: int(sess.TimeLimit().Minutes()),
		RemainingSeconds: int(sess.Remaining(s.now()).Seconds()),
		CurrentIndex:     sess.CurrentIndex(),
		Questions:        qs,
		Answers:          sess.answers.Encode(),
		Flagged:          sess.Flagged(),
		Accessible:       AccessibleIndices(sess),
		MaxScore:         sess.MaxScore(),
		PassingThreshold: sess.PassingThreshold(),
	}
	if end, ok := sess.EndTime(); ok {
		v.EndTime = &end
	}
	return v
}
