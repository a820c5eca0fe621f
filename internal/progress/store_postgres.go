package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store. Records and profiles live in
// the progress and profiles tables; set-valued fields are JSONB. ApplyMastery
// runs in a single transaction with the rows locked, so the multi-field
// update is atomic and the already-completed guard holds under retries.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed progress store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

// Schema is the DDL for the tables this store owns. Exposed for migrations
// and test containers.
const Schema = `
CREATE TABLE IF NOT EXISTS profiles (
	user_id           TEXT PRIMARY KEY,
	xp                INTEGER NOT NULL DEFAULT 0,
	streak            INTEGER NOT NULL DEFAULT 0,
	last_completed_at TIMESTAMPTZ,
	achievements      JSONB NOT NULL DEFAULT '[]'::jsonb,
	subscriptions     JSONB NOT NULL DEFAULT '[]'::jsonb
);

CREATE TABLE IF NOT EXISTS progress (
	user_id             TEXT NOT NULL,
	curriculum_id       TEXT NOT NULL,
	completed_positions JSONB NOT NULL DEFAULT '[]'::jsonb,
	current_position    INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, curriculum_id)
);

CREATE TABLE IF NOT EXISTS curriculums (
	id         TEXT PRIMARY KEY,
	board      TEXT NOT NULL,
	class      TEXT NOT NULL,
	subject    TEXT NOT NULL,
	units      JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

func (s *PostgresStore) GetRecord(ctx context.Context, userID, curriculumID string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var (
		rec          Record
		completedRaw []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT completed_positions, current_position
		 FROM progress
		 WHERE user_id = $1 AND curriculum_id = $2`,
		userID, curriculumID,
	).Scan(&completedRaw, &rec.CurrentPosition)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, nil // lazily initialized on first mastery
		}
		return Record{}, fmt.Errorf("get progress record: %w", err)
	}

	if err := json.Unmarshal(completedRaw, &rec.CompletedPositions); err != nil {
		return Record{}, fmt.Errorf("decode completed positions: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	p, err := scanProfile(s.pool.QueryRow(ctx,
		`SELECT user_id, xp, streak, last_completed_at, achievements, subscriptions
		 FROM profiles
		 WHERE user_id = $1`,
		userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrProfileNotFound
		}
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) CreateProfile(ctx context.Context, p Profile) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	achievements, err := json.Marshal(orEmpty(p.Achievements))
	if err != nil {
		return fmt.Errorf("encode achievements: %w", err)
	}
	subscriptions, err := json.Marshal(orEmpty(p.Subscriptions))
	if err != nil {
		return fmt.Errorf("encode subscriptions: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO profiles (user_id, xp, streak, last_completed_at, achievements, subscriptions)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id) DO NOTHING`,
		p.UserID, p.XP, p.Streak, p.LastCompletedAt, achievements, subscriptions,
	)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) Subscribe(ctx context.Context, userID, curriculumID string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE profiles
		 SET subscriptions = CASE
		   WHEN subscriptions @> to_jsonb($2::text) THEN subscriptions
		   ELSE subscriptions || to_jsonb($2::text)
		 END
		 WHERE user_id = $1`,
		userID, curriculumID,
	)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (s *PostgresStore) ApplyMastery(ctx context.Context, u MasteryUpdate) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin mastery tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var lockedUser string
	err = tx.QueryRow(ctx,
		`SELECT user_id FROM profiles WHERE user_id = $1 FOR UPDATE`,
		u.UserID,
	).Scan(&lockedUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrProfileNotFound
		}
		return false, fmt.Errorf("lock profile: %w", err)
	}

	var (
		completedRaw []byte
		current      int
	)
	err = tx.QueryRow(ctx,
		`SELECT completed_positions, current_position
		 FROM progress
		 WHERE user_id = $1 AND curriculum_id = $2
		 FOR UPDATE`,
		u.UserID, u.CurriculumID,
	).Scan(&completedRaw, &current)

	var completed []int
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// first attempt for this curriculum
	case err != nil:
		return false, fmt.Errorf("lock progress record: %w", err)
	default:
		if err := json.Unmarshal(completedRaw, &completed); err != nil {
			return false, fmt.Errorf("decode completed positions: %w", err)
		}
	}

	rec := Record{CompletedPositions: completed, CurrentPosition: current}
	if rec.Completed(u.Position) {
		return false, nil
	}

	completed = append(completed, u.Position)
	if u.Position+1 > current {
		current = u.Position + 1
	}
	completedJSON, err := json.Marshal(completed)
	if err != nil {
		return false, fmt.Errorf("encode completed positions: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO progress (user_id, curriculum_id, completed_positions, current_position)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, curriculum_id) DO UPDATE
		 SET completed_positions = EXCLUDED.completed_positions,
		     current_position = EXCLUDED.current_position`,
		u.UserID, u.CurriculumID, completedJSON, current,
	)
	if err != nil {
		return false, fmt.Errorf("update progress record: %w", err)
	}

	achievementsJSON, err := json.Marshal(orEmpty(u.Achievements))
	if err != nil {
		return false, fmt.Errorf("encode achievements: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE profiles
		 SET xp = xp + $2,
		     streak = $3,
		     last_completed_at = $4,
		     achievements = COALESCE((
		       SELECT jsonb_agg(DISTINCT a)
		       FROM jsonb_array_elements(achievements || $5::jsonb) AS a
		     ), '[]'::jsonb)
		 WHERE user_id = $1`,
		u.UserID, u.XPDelta, u.Streak, u.CompletedAt, achievementsJSON,
	)
	if err != nil {
		return false, fmt.Errorf("update profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit mastery tx: %w", err)
	}
	return true, nil
}

func scanProfile(row pgx.Row) (Profile, error) {
	var (
		p                Profile
		achievementsRaw  []byte
		subscriptionsRaw []byte
	)
	err := row.Scan(&p.UserID, &p.XP, &p.Streak, &p.LastCompletedAt, &achievementsRaw, &subscriptionsRaw)
	if err != nil {
		return Profile{}, err
	}
	if err := json.Unmarshal(achievementsRaw, &p.Achievements); err != nil {
		return Profile{}, fmt.Errorf("decode achievements: %w", err)
	}
	if err := json.Unmarshal(subscriptionsRaw, &p.Subscriptions); err != nil {
		return Profile{}, fmt.Errorf("decode subscriptions: %w", err)
	}
	return p, nil
}

func orEmpty(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
