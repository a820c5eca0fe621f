package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func newPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("learnquest"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, Schema); err != nil {
		t.Fatalf("applying schema: %v", err)
	}

	store, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	return store
}

func TestPostgresStore_MasteryRoundTrip(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	if err := store.CreateProfile(ctx, NewProfile("u1")); err != nil {
		t.Fatalf("CreateProfile() error = %v", err)
	}

	rec, err := store.GetRecord(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("GetRecord() error = %v", err)
	}
	if rec.CurrentPosition != 0 || len(rec.CompletedPositions) != 0 {
		t.Errorf("fresh record = %+v, want zero value", rec)
	}

	update := MasteryUpdate{
		UserID: "u1", CurriculumID: "c1",
		Position: 0, XPDelta: 10, Streak: 1,
		CompletedAt:  time.Now(),
		Achievements: []string{PerfectScoreAchievement},
	}
	applied, err := store.ApplyMastery(ctx, update)
	if err != nil {
		t.Fatalf("ApplyMastery() error = %v", err)
	}
	if !applied {
		t.Fatal("first ApplyMastery() should apply")
	}

	applied, err = store.ApplyMastery(ctx, update)
	if err != nil {
		t.Fatalf("repeat ApplyMastery() error = %v", err)
	}
	if applied {
		t.Error("repeat ApplyMastery() should no-op")
	}

	rec, err = store.GetRecord(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("GetRecord() error = %v", err)
	}
	if !rec.Completed(0) || rec.CurrentPosition != 1 {
		t.Errorf("record = %+v, want completed {0}, current 1", rec)
	}

	p, err := store.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if p.XP != 10 || p.Streak != 1 {
		t.Errorf("profile = xp %d streak %d, want 10/1", p.XP, p.Streak)
	}
	if p.LastCompletedAt == nil {
		t.Error("LastCompletedAt should be set")
	}
	if !p.HasAchievement(PerfectScoreAchievement) {
		t.Errorf("achievements = %v, missing perfect score", p.Achievements)
	}
}

func TestPostgresStore_MissingProfile(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	if _, err := store.GetProfile(ctx, "ghost"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("GetProfile() error = %v, want ErrProfileNotFound", err)
	}

	_, err := store.ApplyMastery(ctx, MasteryUpdate{
		UserID: "ghost", CurriculumID: "c1", Position: 0, XPDelta: 10, Streak: 1, CompletedAt: time.Now(),
	})
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("ApplyMastery() error = %v, want ErrProfileNotFound", err)
	}
}

func TestPostgresStore_Subscribe(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	_ = store.CreateProfile(ctx, NewProfile("u1"))

	if err := store.Subscribe(ctx, "u1", "c1"); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := store.Subscribe(ctx, "u1", "c1"); err != nil {
		t.Fatalf("repeat Subscribe() error = %v", err)
	}

	p, err := store.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if len(p.Subscriptions) != 1 || p.Subscriptions[0] != "c1" {
		t.Errorf("Subscriptions = %v, want [c1]", p.Subscriptions)
	}
}
