// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/cadence/internal/adapters/identity"
	"github.com/okian/cadence/internal/adapters/repository"
	"github.com/okian/cadence/internal/domain/clock"
	"github.com/okian/cadence/internal/domain/history"
	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/domain/prediction"
	"github.com/okian/cadence/pkg/logger"
	"github.com/okian/cadence/pkg/metrics"
)

// Auth attempt outcomes used as metric labels.
const (
	authSuccess     = "success"
	authDenied      = "denied"
	authThrottled   = "throttled"
	authUnavailable = "unavailable"
)

// Service implements the API dependencies for the dashboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	sessions *repository.ShardedStore[*Session]
	auth     identity.Authenticator
	engine   *prediction.Engine

	// Configuration
	now                func() time.Time
	location           *time.Location
	tickInterval       time.Duration
	idleTimeout        time.Duration
	shardCount         int
	dedupeSize         int
	highlightThreshold float64

	// State
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAuthenticator sets the sign-in backend.
func WithAuthenticator(a identity.Authenticator) Option {
	return func(s *Service) {
		if a != nil {
			s.auth = a
		}
	}
}

// WithEngine sets the prediction engine.
func WithEngine(e *prediction.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the zone used to turn wall time into minute of day.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithTickInterval sets how often statuses are re-evaluated.
func WithTickInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithIdleTimeout sets how long an untouched session survives.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.idleTimeout = d
		}
	}
}

// WithShardCount sets the number of session store shards.
func WithShardCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithDedupeSize bounds the per-session submission id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithHighlightThreshold sets the value at which console rows are starred.
func WithHighlightThreshold(v float64) Option {
	return func(s *Service) {
		s.highlightThreshold = v
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		engine:             prediction.NewEngine(),
		now:                time.Now,
		location:           time.Local,
		tickInterval:       time.Second,
		idleTimeout:        30 * time.Minute,
		shardCount:         8,
		dedupeSize:         4096,
		highlightThreshold: 5,
		stopCh:             make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start creates the session store and launches the status ticker.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.auth == nil {
		return fmt.Errorf("start: %w", ErrNoAuthenticator)
	}

	s.logger.Info(ctx, "starting dashboard service...")

	s.sessions = repository.NewShardedStore[*Session](ctx, repository.WithShardCount(s.shardCount))
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go s.runTicker(ctx)

	s.started = true
	s.logger.Info(ctx, "dashboard service started",
		logger.Int("shards", s.shardCount),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Duration("tickInterval", s.tickInterval),
		logger.Duration("idleTimeout", s.idleTimeout),
		logger.String("location", s.location.String()),
	)
	return nil
}

// Stop halts the ticker and releases the session store.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.logger.Info(context.Background(), "stopping dashboard service...")
	close(s.stopCh)
	s.started = false
	s.mu.Unlock()

	s.wg.Wait()
	_ = s.sessions.Close()
	s.logger.Info(context.Background(), "dashboard service stopped")
}

func (s *Service) runTicker(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Tick(ctx, s.now())
		}
	}
}

func (s *Service) store() (*repository.ShardedStore[*Session], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.sessions, nil
}

func (s *Service) session(ctx context.Context, id string) (*Session, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	sess, err := st.Get(ctx, id, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

// MinuteOfDay converts t to a minute of day in the configured zone.
func (s *Service) MinuteOfDay(t time.Time) int {
	return clock.FromTime(t.In(s.location))
}

// Login signs the operator in and opens a fresh session.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	id, err := s.auth.SignIn(ctx, email, password)
	latency := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		outcome := authUnavailable
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			outcome = authDenied
		case errors.Is(err, identity.ErrRateLimited):
			outcome = authThrottled
		}
		metrics.RecordAuthAttempt(outcome, latency)
		s.logger.Info(ctx, "sign-in rejected",
			logger.String("email", identity.NormalizeEmail(email)),
			logger.String("outcome", outcome),
		)
		return nil, err
	}
	metrics.RecordAuthAttempt(authSuccess, latency)

	now := s.now()
	sess := newSession(uuid.NewString(), id.Email, now, s.dedupeSize)
	st.Put(ctx, sess.ID, sess, now)
	metrics.RecordSessionOpened()
	metrics.UpdateSessionsActive(st.Count(ctx))

	s.logger.Info(ctx, "session opened",
		logger.String("session", sess.ID),
		logger.String("email", sess.Email),
	)
	return sess, nil
}

// Logout drops the session.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	st, err := s.store()
	if err != nil {
		return err
	}
	if !st.Delete(ctx, sessionID) {
		return ErrSessionNotFound
	}
	metrics.UpdateSessionsActive(st.Count(ctx))
	s.logger.Info(ctx, "session closed", logger.String("session", sessionID))
	return nil
}

// Authenticate reports whether sessionID names a live session and touches it.
func (s *Service) Authenticate(ctx context.Context, sessionID string) (*Session, error) {
	return s.session(ctx, sessionID)
}

// SubmitObservation validates and appends one observation. rawValue is parsed
// with strconv.ParseFloat; a failure of either field mutates nothing. A
// non-empty submissionID that was already seen in this session is reported
// as a duplicate and ignored.
func (s *Service) SubmitObservation(ctx context.Context, sessionID, clockTime, rawValue, submissionID string) (SubmitResult, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return SubmitResult{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if submissionID != "" && sess.deduper.SeenAndRecord(ctx, submissionID) {
		metrics.RecordSubmissionDuplicate()
		s.logger.Debug(ctx, "duplicate submission, skipping",
			logger.String("submission", submissionID),
		)
		return SubmitResult{Duplicate: true, Count: sess.history.Len(), Prediction: sess.prediction}, nil
	}

	obs, err := s.appendLocked(sess, clockTime, rawValue)
	if err != nil {
		if submissionID != "" {
			sess.deduper.Unrecord(ctx, submissionID)
		}
		var ve *history.ValidationError
		if errors.As(err, &ve) {
			metrics.RecordObservationRejected(ve.Field)
			s.logger.Debug(ctx, "observation rejected",
				logger.String("field", ve.Field),
				logger.String("input", ve.Input),
			)
		}
		return SubmitResult{}, err
	}

	metrics.RecordObservationAccepted()
	if sess.history.Len() >= prediction.Window {
		p := sess.prediction
		metrics.RecordPrediction(p.Regime.String(), p.Confidence)
		s.logger.Debug(ctx, "prediction updated",
			logger.String("target", p.ClockTime),
			logger.Float64("confidence", p.Confidence),
			logger.String("regime", p.Regime.String()),
		)
	}

	return SubmitResult{Observation: obs, Count: sess.history.Len(), Prediction: sess.prediction}, nil
}

func (s *Service) appendLocked(sess *Session, clockTime, rawValue string) (model.Observation, error) {
	if err := history.CheckTime(clockTime); err != nil {
		return model.Observation{}, err
	}
	v, err := parseValue(rawValue)
	if err != nil {
		return model.Observation{}, err
	}
	return sess.submitLocked(s.engine, clockTime, v)
}

// ResetSession clears the history and restores the unset prediction.
func (s *Service) ResetSession(ctx context.Context, sessionID string) error {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	sess.resetLocked()
	sess.mu.Unlock()

	metrics.RecordSessionReset()
	s.logger.Info(ctx, "session reset")
	return nil
}

// History returns the session's observations in ascending minute order.
func (s *Service) History(ctx context.Context, sessionID string) ([]model.Observation, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.history.All(), nil
}

// Prediction returns the current prediction, unset until three observations exist.
func (s *Service) Prediction(ctx context.Context, sessionID string) (prediction.Prediction, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return prediction.Prediction{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.prediction, nil
}

// Status classifies the session's prediction against nowMinute.
func (s *Service) Status(ctx context.Context, sessionID string, nowMinute int) (StatusView, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return StatusView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.statusLocked(nowMinute), nil
}

// Snapshot returns the full dashboard view at now.
func (s *Service) Snapshot(ctx context.Context, sessionID string, now time.Time) (View, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return View{}, err
	}

	local := now.In(s.location)
	nowMinute := clock.FromTime(local)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	return View{
		SessionID:   sess.ID,
		Email:       sess.Email,
		Now:         clock.Format(nowMinute),
		ServerClock: local.Format(time.TimeOnly),
		History:     sess.history.All(),
		Console:     sess.consoleLocked(s.highlightThreshold),
		Prediction:  sess.prediction,
		Status:      sess.statusLocked(nowMinute),
	}, nil
}

// GetStats returns service counters for the stats endpoint.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":            s.started,
		"shardCount":         s.shardCount,
		"dedupeSize":         s.dedupeSize,
		"tickInterval":       s.tickInterval.String(),
		"idleTimeout":        s.idleTimeout.String(),
		"location":           s.location.String(),
		"highlightThreshold": s.highlightThreshold,
	}
	params := s.engine.Params()
	stats["volatilityFloor"] = params.VolatilityFloor
	stats["confidenceMin"] = params.ConfidenceMin
	stats["confidenceMax"] = params.ConfidenceMax

	if s.started {
		ctx := context.Background()
		count := s.sessions.Count(ctx)
		observations := 0
		predicted := 0
		s.sessions.Range(ctx, func(_ string, sess *Session) bool {
			sess.mu.Lock()
			observations += sess.history.Len()
			if sess.prediction.Set {
				predicted++
			}
			sess.mu.Unlock()
			return true
		})
		stats["sessions"] = count
		stats["observations"] = observations
		stats["sessionsWithPrediction"] = predicted
		metrics.UpdateSessionsActive(count)
	}

	return stats
}
