package leaderboard

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
)

func seedBoard(t *testing.T) *MemoryBoard {
	t.Helper()
	b := NewMemoryBoard()
	ctx := context.Background()
	for id, xp := range map[string]int{"ava": 120, "ben": 45, "cai": 120, "dee": 10} {
		if err := b.SetXP(ctx, id, xp); err != nil {
			t.Fatalf("SetXP(%s) error = %v", id, err)
		}
	}
	return b
}

func TestMemoryBoard_Top(t *testing.T) {
	b := seedBoard(t)

	top, err := b.Top(context.Background(), 3)
	if err != nil {
		t.Fatalf("Top() error = %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("len(top) = %d, want 3", len(top))
	}

	// Ties resolve by user ID so the ordering is stable.
	want := []Entry{
		{UserID: "ava", XP: 120, Rank: 1},
		{UserID: "cai", XP: 120, Rank: 2},
		{UserID: "ben", XP: 45, Rank: 3},
	}
	for i, e := range want {
		if top[i] != e {
			t.Errorf("top[%d] = %+v, want %+v", i, top[i], e)
		}
	}
}

func TestMemoryBoard_SetXPIsIdempotentTotal(t *testing.T) {
	b := NewMemoryBoard()
	ctx := context.Background()

	_ = b.SetXP(ctx, "ava", 50)
	_ = b.SetXP(ctx, "ava", 50) // repeated report of the same total

	e, err := b.Rank(ctx, "ava")
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if e.XP != 50 || e.Rank != 1 {
		t.Errorf("entry = %+v, want xp 50 rank 1", e)
	}
}

func TestMemoryBoard_RankUnknown(t *testing.T) {
	b := seedBoard(t)

	if _, err := b.Rank(context.Background(), "ghost"); !errors.Is(err, ErrNotRanked) {
		t.Errorf("Rank() error = %v, want ErrNotRanked", err)
	}
}

func TestReporter(t *testing.T) {
	b := NewMemoryBoard()
	r := Reporter{Board: b}

	if err := r.ReportXP(context.Background(), "ava", 30); err != nil {
		t.Fatalf("ReportXP() error = %v", err)
	}
	e, err := b.Rank(context.Background(), "ava")
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if e.XP != 30 {
		t.Errorf("XP = %d, want 30", e.XP)
	}
}

func TestExportXLSX(t *testing.T) {
	b := seedBoard(t)

	var buf bytes.Buffer
	if err := ExportXLSX(context.Background(), b, 2, &buf); err != nil {
		t.Fatalf("ExportXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Leaderboard")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 { // header + 2 entries
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0][0] != "Rank" || rows[0][1] != "User" || rows[0][2] != "XP" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][1] != "ava" || rows[1][2] != "120" {
		t.Errorf("first entry = %v, want ava/120", rows[1])
	}
}
