package service

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/cadence/internal/domain/clock"
	"github.com/okian/cadence/internal/domain/dedupe"
	"github.com/okian/cadence/internal/domain/history"
	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/domain/prediction"
	"github.com/okian/cadence/internal/domain/status"
)

// Session is one signed-in operator's dashboard. Every action and every tick
// evaluation holds mu for its whole duration.
type Session struct {
	ID        string
	Email     string
	CreatedAt time.Time

	mu         sync.Mutex
	history    *history.Store
	prediction prediction.Prediction
	deduper    dedupe.Deduper

	lastStatus status.Status
	hasStatus  bool
}

func newSession(id, email string, now time.Time, dedupeSize int) *Session {
	return &Session{
		ID:         id,
		Email:      email,
		CreatedAt:  now,
		history:    history.New(),
		prediction: prediction.Unset(),
		deduper:    dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(dedupeSize)),
	}
}

// ConsoleRow is one history entry as shown in the console, newest first.
type ConsoleRow struct {
	Time      string  `json:"time"`
	Value     float64 `json:"value"`
	Display   string  `json:"display"`
	Highlight bool    `json:"highlight"`
}

// StatusView is the classification of a session at one instant.
type StatusView struct {
	Now          string              `json:"now"`
	Set          bool                `json:"set"`
	Status       *status.Status      `json:"status,omitempty"`
	Diff         int                 `json:"diff"`
	Need         int                 `json:"need"`
	Presentation status.Presentation `json:"presentation"`
}

// View is a read-only snapshot of a session.
type View struct {
	SessionID   string                `json:"session_id"`
	Email       string                `json:"email"`
	Now         string                `json:"now"`
	ServerClock string                `json:"server_clock"`
	History     []model.Observation   `json:"history"`
	Console     []ConsoleRow          `json:"console"`
	Prediction  prediction.Prediction `json:"prediction"`
	Status      StatusView            `json:"status"`
}

// SubmitResult reports the outcome of one submission.
type SubmitResult struct {
	Observation model.Observation     `json:"observation"`
	Duplicate   bool                  `json:"duplicate"`
	Count       int                   `json:"count"`
	Prediction  prediction.Prediction `json:"prediction"`
}

// parseValue accepts exactly what strconv.ParseFloat accepts.
func parseValue(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &history.ValidationError{Field: history.FieldValue, Input: raw, Reason: "is not a number"}
	}
	return v, nil
}

// submitLocked appends one observation and refreshes the prediction.
func (s *Session) submitLocked(engine *prediction.Engine, clockTime string, value float64) (model.Observation, error) {
	obs, err := s.history.Append(clockTime, value)
	if err != nil {
		return model.Observation{}, err
	}
	if s.history.Len() >= prediction.Window {
		p, err := engine.Predict(s.history.Latest(prediction.Window))
		if err != nil {
			return obs, fmt.Errorf("predict after append: %w", err)
		}
		s.prediction = p
	}
	return obs, nil
}

func (s *Session) resetLocked() {
	s.history.Reset()
	s.prediction = prediction.Unset()
	s.hasStatus = false
}

// statusLocked classifies the current prediction against nowMinute.
func (s *Session) statusLocked(nowMinute int) StatusView {
	v := StatusView{Now: clock.Format(nowMinute)}
	st, ok := status.Evaluate(s.prediction, nowMinute)
	if !ok {
		v.Need = prediction.Window - s.history.Len()
		if v.Need < 0 {
			v.Need = 0
		}
		v.Presentation = status.Idle(v.Need)
		return v
	}
	v.Set = true
	v.Status = &st
	v.Diff = status.Diff(s.prediction.MinuteOfDay, nowMinute)
	v.Presentation = st.Present()
	return v
}

func (s *Session) consoleLocked(highlightAt float64) []ConsoleRow {
	all := s.history.All()
	rows := make([]ConsoleRow, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		o := all[i]
		rows = append(rows, ConsoleRow{
			Time:      o.DisplayTime(),
			Value:     o.Value,
			Display:   FormatMultiplier(o.Value),
			Highlight: o.Value >= highlightAt,
		})
	}
	return rows
}

// FormatMultiplier renders a value the way the console shows it, e.g. "MULT: 2.50x".
func FormatMultiplier(v float64) string {
	return "MULT: " + strconv.FormatFloat(v, 'f', 2, 64) + "x"
}
