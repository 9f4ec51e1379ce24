package service

import (
	"context"
	"time"

	"github.com/okian/cadence/internal/domain/clock"
	"github.com/okian/cadence/internal/domain/status"
	"github.com/okian/cadence/pkg/logger"
	"github.com/okian/cadence/pkg/metrics"
)

// TickResult summarizes one pass over all sessions.
type TickResult struct {
	Evaluated   int
	Transitions int
	Evicted     int
}

// Tick re-evaluates every session's status at now and evicts sessions idle
// for longer than the idle timeout. Each session is evaluated under its own
// lock, so a tick never interleaves with a submit or reset on that session.
func (s *Service) Tick(ctx context.Context, now time.Time) TickResult {
	var res TickResult
	st, err := s.store()
	if err != nil {
		return res
	}

	start := time.Now()
	nowMinute := clock.FromTime(now.In(s.location))

	st.Range(ctx, func(id string, sess *Session) bool {
		sess.mu.Lock()
		current, ok := status.Evaluate(sess.prediction, nowMinute)
		changed := ok && (!sess.hasStatus || sess.lastStatus != current)
		if ok {
			sess.lastStatus = current
			sess.hasStatus = true
		}
		sess.mu.Unlock()

		if !ok {
			return true
		}
		res.Evaluated++
		metrics.RecordStatusEvaluation(current.String())
		if changed {
			res.Transitions++
			s.logger.Debug(ctx, "status changed",
				logger.String("session", id),
				logger.String("status", current.String()),
				logger.String("now", clock.Format(nowMinute)),
			)
		}
		return true
	})

	evicted := st.EvictIdle(ctx, now.Add(-s.idleTimeout))
	res.Evicted = len(evicted)
	if res.Evicted > 0 {
		metrics.RecordSessionsEvicted(res.Evicted)
		for _, sess := range evicted {
			s.logger.Info(ctx, "session evicted after idle timeout",
				logger.String("session", sess.ID),
				logger.String("email", sess.Email),
			)
		}
	}

	metrics.UpdateSessionsActive(st.Count(ctx))
	metrics.RecordTickDuration(float64(time.Since(start).Microseconds()) / 1000)
	return res
}
