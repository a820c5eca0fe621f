// Package leaderboard ranks learners by total XP.
package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Entry is one ranked row.
type Entry struct {
	UserID string `json:"userId"`
	XP     int    `json:"xp"`
	Rank   int    `json:"rank"`
}

// Board maintains XP totals and answers ranking queries. SetXP stores the
// learner's new total (not a delta), so repeated reports for the same mastery
// are harmless.
type Board interface {
	SetXP(ctx context.Context, userID string, totalXP int) error
	Top(ctx context.Context, n int) ([]Entry, error)
	Rank(ctx context.Context, userID string) (Entry, error)
}

// ErrNotRanked is returned by Rank for a user with no reported XP.
var ErrNotRanked = fmt.Errorf("user not on leaderboard")

// MemoryBoard is an in-process Board for tests and local runs.
type MemoryBoard struct {
	mu sync.RWMutex
	xp map[string]int
}

// NewMemoryBoard creates an empty in-memory board.
func NewMemoryBoard() *MemoryBoard {
	return &MemoryBoard{xp: make(map[string]int)}
}

func (b *MemoryBoard) SetXP(_ context.Context, userID string, totalXP int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.xp[userID] = totalXP
	return nil
}

func (b *MemoryBoard) Top(_ context.Context, n int) ([]Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ranked := b.ranked()
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked, nil
}

func (b *MemoryBoard) Rank(_ context.Context, userID string) (Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, e := range b.ranked() {
		if e.UserID == userID {
			return e, nil
		}
	}
	return Entry{}, ErrNotRanked
}

func (b *MemoryBoard) ranked() []Entry {
	entries := make([]Entry, 0, len(b.xp))
	for id, xp := range b.xp {
		entries = append(entries, Entry{UserID: id, XP: xp})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].XP != entries[j].XP {
			return entries[i].XP > entries[j].XP
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Reporter adapts a Board to the mastery evaluator's XP reporting hook.
type Reporter struct {
	Board Board
}

func (r Reporter) ReportXP(ctx context.Context, userID string, totalXP int) error {
	return r.Board.SetXP(ctx, userID, totalXP)
}
