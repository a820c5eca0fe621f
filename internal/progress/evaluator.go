package progress

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// PerfectScoreAchievement is granted for a flawless quiz run.
const PerfectScoreAchievement = "Perfect Score! ✨"

// DefaultPassThreshold is the mastery gate: the fraction of correct answers
// required to complete a topic. Applied uniformly to every quiz surface.
const DefaultPassThreshold = 0.75

// Attempt is one finished quiz run, scored by the caller.
type Attempt struct {
	UserID       string `json:"userId"`
	CurriculumID string `json:"curriculumId"`
	TopicName    string `json:"topicName"`
	Position     int    `json:"position"`
	Correct      int    `json:"correct"`
	Total        int    `json:"total"`
	TopicXP      int    `json:"topicXp"`
}

// Outcome is the result of evaluating an attempt.
type Outcome struct {
	Passed           bool   `json:"passed"`
	AlreadyCompleted bool   `json:"alreadyCompleted"`
	XPAwarded        int    `json:"xpAwarded"`
	Streak           int    `json:"streak"`
	NewPosition      int    `json:"newPosition"`
	Achievement      string `json:"achievement,omitempty"`
}

// XPReporter receives a user's new XP total after a mastery update. Used to
// keep the leaderboard current; failures are logged, never surfaced.
type XPReporter interface {
	ReportXP(ctx context.Context, userID string, total int) error
}

// Evaluator scores quiz attempts against the pass threshold and commits the
// resulting progress, XP and streak updates.
type Evaluator struct {
	store     Store
	threshold float64
	reporter  XPReporter
	now       func() time.Time
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithThreshold overrides the pass threshold.
func WithThreshold(t float64) EvaluatorOption {
	return func(e *Evaluator) {
		e.threshold = t
	}
}

// WithXPReporter attaches a leaderboard reporter.
func WithXPReporter(r XPReporter) EvaluatorOption {
	return func(e *Evaluator) {
		e.reporter = r
	}
}

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) {
		e.now = now
	}
}

// NewEvaluator creates a mastery evaluator over the given store.
func NewEvaluator(store Store, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		store:     store,
		threshold: DefaultPassThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate scores the attempt and, on a first-time pass, atomically records
// the completed position, advances the unlocked position, credits XP and
// updates the streak. Re-passing an already-completed topic is a successful
// no-op. A missing progress record is initialized on the fly; a missing
// profile is fatal.
func (e *Evaluator) Evaluate(ctx context.Context, a Attempt) (Outcome, error) {
	if a.Total <= 0 {
		return Outcome{}, fmt.Errorf("attempt has no questions")
	}
	if a.Correct < 0 || a.Correct > a.Total {
		return Outcome{}, fmt.Errorf("correct count %d outside [0,%d]", a.Correct, a.Total)
	}
	if a.Position < 0 {
		return Outcome{}, fmt.Errorf("topic position %d is negative", a.Position)
	}

	score := float64(a.Correct) / float64(a.Total)
	if score < e.threshold {
		slog.Info("quiz attempt failed",
			"user_id", a.UserID,
			"curriculum_id", a.CurriculumID,
			"position", a.Position,
			"score", score,
		)
		return Outcome{Passed: false}, nil
	}

	profile, err := e.store.GetProfile(ctx, a.UserID)
	if err != nil {
		return Outcome{}, fmt.Errorf("evaluate attempt: %w", err)
	}

	now := e.now()
	xp := a.TopicXP
	if xp <= 0 {
		xp = 10
	}

	update := MasteryUpdate{
		UserID:       a.UserID,
		CurriculumID: a.CurriculumID,
		Position:     a.Position,
		XPDelta:      xp,
		Streak:       NextStreak(profile.LastCompletedAt, now, profile.Streak),
		CompletedAt:  now,
	}
	outcome := Outcome{Passed: true}
	if a.Correct == a.Total {
		update.Achievements = []string{PerfectScoreAchievement}
		outcome.Achievement = PerfectScoreAchievement
	}

	applied, err := e.store.ApplyMastery(ctx, update)
	if err != nil {
		return Outcome{}, fmt.Errorf("apply mastery: %w", err)
	}
	if !applied {
		// Already mastered: pass, but nothing to credit.
		rec, err := e.store.GetRecord(ctx, a.UserID, a.CurriculumID)
		if err != nil {
			return Outcome{}, fmt.Errorf("read progress record: %w", err)
		}
		outcome.AlreadyCompleted = true
		outcome.Streak = profile.Streak
		outcome.NewPosition = rec.CurrentPosition
		outcome.Achievement = ""
		return outcome, nil
	}

	rec, err := e.store.GetRecord(ctx, a.UserID, a.CurriculumID)
	if err != nil {
		return Outcome{}, fmt.Errorf("read progress record: %w", err)
	}
	outcome.XPAwarded = xp
	outcome.Streak = update.Streak
	outcome.NewPosition = rec.CurrentPosition

	slog.Info("topic mastered",
		"user_id", a.UserID,
		"curriculum_id", a.CurriculumID,
		"position", a.Position,
		"xp", xp,
		"streak", update.Streak,
	)

	if e.reporter != nil {
		if err := e.reporter.ReportXP(ctx, a.UserID, profile.XP+xp); err != nil {
			slog.Warn("leaderboard update failed", "user_id", a.UserID, "error", err)
		}
	}

	return outcome, nil
}

// Threshold returns the configured pass threshold.
func (e *Evaluator) Threshold() float64 {
	return e.threshold
}
