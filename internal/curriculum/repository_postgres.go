package curriculum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresRepository stores each curriculum as a JSONB document keyed by its
// slug ID. Flattened topic indexes are cached in-process per curriculum load;
// Save and Delete invalidate the cached entry.
type PostgresRepository struct {
	pool *pgxpool.Pool

	mu      sync.RWMutex
	indexes map[string]*TopicIndex
}

// NewPostgresRepository creates a PostgreSQL-backed curriculum repository.
func NewPostgresRepository(pool *pgxpool.Pool) (*PostgresRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresRepository{
		pool:    pool,
		indexes: make(map[string]*TopicIndex),
	}, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Curriculum, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var (
		c        Curriculum
		unitsRaw []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, board, class, subject, units, created_at
		 FROM curriculums
		 WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Board, &c.Class, &c.Subject, &unitsRaw, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Curriculum{}, fmt.Errorf("curriculum %s: %w", id, ErrNotFound)
		}
		return Curriculum{}, fmt.Errorf("get curriculum: %w", err)
	}

	if err := json.Unmarshal(unitsRaw, &c.Units); err != nil {
		return Curriculum{}, fmt.Errorf("decode curriculum units: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Index(ctx context.Context, id string) (*TopicIndex, error) {
	r.mu.RLock()
	idx, ok := r.indexes[id]
	r.mu.RUnlock()
	if ok {
		return idx, nil
	}

	c, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	idx = NewTopicIndex(c)
	r.mu.Lock()
	r.indexes[id] = idx
	r.mu.Unlock()
	return idx, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Curriculum, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT id, board, class, subject, units, created_at
		 FROM curriculums
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list curriculums: %w", err)
	}
	defer rows.Close()

	var out []Curriculum
	for rows.Next() {
		var (
			c        Curriculum
			unitsRaw []byte
		)
		if err := rows.Scan(&c.ID, &c.Board, &c.Class, &c.Subject, &unitsRaw, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan curriculum: %w", err)
		}
		if err := json.Unmarshal(unitsRaw, &c.Units); err != nil {
			return nil, fmt.Errorf("decode curriculum units: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate curriculums: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Save(ctx context.Context, c Curriculum) error {
	if c.ID == "" {
		return fmt.Errorf("curriculum ID is required")
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	unitsRaw, err := json.Marshal(c.Units)
	if err != nil {
		return fmt.Errorf("encode curriculum units: %w", err)
	}

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO curriculums (id, board, class, subject, units, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE
		 SET board = EXCLUDED.board,
		     class = EXCLUDED.class,
		     subject = EXCLUDED.subject,
		     units = EXCLUDED.units`,
		c.ID, c.Board, c.Class, c.Subject, unitsRaw, createdAt,
	)
	if err != nil {
		return fmt.Errorf("save curriculum: %w", err)
	}

	r.mu.Lock()
	r.indexes[c.ID] = NewTopicIndex(c)
	r.mu.Unlock()
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := r.pool.Exec(ctx, `DELETE FROM curriculums WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete curriculum: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("curriculum %s: %w", id, ErrNotFound)
	}

	r.mu.Lock()
	delete(r.indexes, id)
	r.mu.Unlock()
	return nil
}
