// Package progress owns the per-user, per-curriculum progress ledger: which
// topics are completed, which one is active, and how passing quiz attempts
// convert into XP, streak and progress updates.
package progress

import (
	"errors"
	"fmt"
	"time"
)

// ErrProfileNotFound is returned when a mastery update targets a user with no
// profile. Unlike progress records, profiles are never lazily created here:
// crediting XP to a nonexistent account is a data integrity error.
var ErrProfileNotFound = errors.New("user profile not found")

// Record tracks one user's progress through one curriculum. Positions are
// global topic positions (zero-based, flattened unit order).
type Record struct {
	CompletedPositions []int `json:"completedTopicIndexes"`
	CurrentPosition    int   `json:"currentTopicIndex"`
}

// Completed reports whether a global position is in the completed set.
func (r Record) Completed(pos int) bool {
	for _, p := range r.CompletedPositions {
		if p == pos {
			return true
		}
	}
	return false
}

// Validate checks the record's invariants against a curriculum's topic count.
func (r Record) Validate(topicCount int) error {
	if r.CurrentPosition < 0 {
		return fmt.Errorf("current position %d is negative", r.CurrentPosition)
	}
	if r.CurrentPosition > topicCount {
		return fmt.Errorf("current position %d exceeds topic count %d", r.CurrentPosition, topicCount)
	}
	for _, p := range r.CompletedPositions {
		if p < 0 || p >= r.CurrentPosition {
			return fmt.Errorf("completed position %d outside [0,%d)", p, r.CurrentPosition)
		}
	}
	return nil
}

// Status is a topic's state for one learner.
type Status int

const (
	StatusLocked Status = iota
	StatusActive
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusLocked:
		return "locked"
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Classify returns the status of every global topic position. Pure function:
// no I/O, identical output for identical input. Exactly one position is
// active unless every topic is completed (then CurrentPosition equals
// topicCount and nothing is active).
func Classify(topicCount int, r Record) []Status {
	statuses := make([]Status, topicCount)
	for p := 0; p < topicCount; p++ {
		switch {
		case r.Completed(p):
			statuses[p] = StatusCompleted
		case p == r.CurrentPosition:
			statuses[p] = StatusActive
		default:
			statuses[p] = StatusLocked
		}
	}
	return statuses
}

// Profile holds the gamification state of one user.
type Profile struct {
	UserID          string     `json:"userId"`
	XP              int        `json:"xp"`
	Streak          int        `json:"streak"`
	LastCompletedAt *time.Time `json:"lastMissionCompletedAt,omitempty"`
	Achievements    []string   `json:"achievements"`
	Subscriptions   []string   `json:"subscriptions"`
}

// HasAchievement reports whether the profile already holds an achievement.
func (p Profile) HasAchievement(name string) bool {
	for _, a := range p.Achievements {
		if a == name {
			return true
		}
	}
	return false
}

// NewProfile returns the fixed signup defaults.
func NewProfile(userID string) Profile {
	return Profile{
		UserID:       userID,
		XP:           0,
		Streak:       0,
		Achievements: []string{"Quick Starter ⚡"},
	}
}
