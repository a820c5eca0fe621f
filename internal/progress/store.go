package progress

import (
	"context"
	"sync"
	"time"
)

// MasteryUpdate is the atomic state change for a passing attempt: the
// progress record gains a completed position and the profile gains XP,
// a recomputed streak and (possibly) achievements.
type MasteryUpdate struct {
	UserID       string
	CurriculumID string
	Position     int
	XPDelta      int
	Streak       int
	CompletedAt  time.Time
	Achievements []string
}

// Store persists progress records and user profiles.
//
// GetRecord returns a zero-value record when none exists — first attempts
// lazily initialize progress. GetProfile returns ErrProfileNotFound instead:
// profiles are created at signup, never on the fly.
//
// ApplyMastery applies the whole update atomically from the caller's point of
// view and reports whether it was applied; it no-ops (false, nil) when the
// position is already completed, which keeps partial-failure retries from
// double-crediting.
type Store interface {
	GetRecord(ctx context.Context, userID, curriculumID string) (Record, error)
	GetProfile(ctx context.Context, userID string) (Profile, error)
	CreateProfile(ctx context.Context, p Profile) error
	Subscribe(ctx context.Context, userID, curriculumID string) error
	ApplyMastery(ctx context.Context, u MasteryUpdate) (bool, error)
}

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]Record
	profiles map[string]Profile
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]Record),
		profiles: make(map[string]Profile),
	}
}

func recordKey(userID, curriculumID string) string {
	return userID + ":" + curriculumID
}

func (s *MemoryStore) GetRecord(_ context.Context, userID, curriculumID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := s.records[recordKey(userID, curriculumID)]
	rec.CompletedPositions = append([]int{}, rec.CompletedPositions...)
	return rec, nil
}

func (s *MemoryStore) GetProfile(_ context.Context, userID string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return Profile{}, ErrProfileNotFound
	}
	p.Achievements = append([]string{}, p.Achievements...)
	p.Subscriptions = append([]string{}, p.Subscriptions...)
	return p, nil
}

func (s *MemoryStore) CreateProfile(_ context.Context, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[p.UserID]; ok {
		return nil // signup is idempotent
	}
	s.profiles[p.UserID] = p
	return nil
}

func (s *MemoryStore) Subscribe(_ context.Context, userID, curriculumID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return ErrProfileNotFound
	}
	for _, id := range p.Subscriptions {
		if id == curriculumID {
			return nil
		}
	}
	p.Subscriptions = append(p.Subscriptions, curriculumID)
	s.profiles[userID] = p
	return nil
}

func (s *MemoryStore) ApplyMastery(_ context.Context, u MasteryUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[u.UserID]
	if !ok {
		return false, ErrProfileNotFound
	}

	key := recordKey(u.UserID, u.CurriculumID)
	rec := s.records[key]
	if rec.Completed(u.Position) {
		return false, nil
	}

	rec.CompletedPositions = append(rec.CompletedPositions, u.Position)
	if u.Position+1 > rec.CurrentPosition {
		rec.CurrentPosition = u.Position + 1
	}
	s.records[key] = rec

	p.XP += u.XPDelta
	p.Streak = u.Streak
	completedAt := u.CompletedAt
	p.LastCompletedAt = &completedAt
	for _, a := range u.Achievements {
		if !p.HasAchievement(a) {
			p.Achievements = append(p.Achievements, a)
		}
	}
	s.profiles[u.UserID] = p

	return true, nil
}
