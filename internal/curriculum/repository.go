package curriculum

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrNotFound is returned when a curriculum or topic does not exist.
var ErrNotFound = errors.New("not found")

// Repository persists curriculum documents. Learner-facing code only ever
// calls Get/Index/List; Save and Delete are administrative.
type Repository interface {
	Get(ctx context.Context, id string) (Curriculum, error)
	// Index returns the cached flattened topic index for a curriculum.
	Index(ctx context.Context, id string) (*TopicIndex, error)
	List(ctx context.Context) ([]Curriculum, error)
	Save(ctx context.Context, c Curriculum) error
	Delete(ctx context.Context, id string) error
}

// MakeID derives the curriculum document ID from board, class and subject:
// diacritics stripped, lowercased, whitespace runs collapsed to hyphens.
func MakeID(board, class, subject string) string {
	parts := []string{slug(board), slug(class), slug(subject)}
	return strings.Join(parts, "_")
}

func slug(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), "-"))
}

// MemoryRepository is an in-memory Repository for tests and local runs.
type MemoryRepository struct {
	mu      sync.RWMutex
	docs    map[string]Curriculum
	indexes map[string]*TopicIndex
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		docs:    make(map[string]Curriculum),
		indexes: make(map[string]*TopicIndex),
	}
}

func (r *MemoryRepository) Get(_ context.Context, id string) (Curriculum, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.docs[id]
	if !ok {
		return Curriculum{}, fmt.Errorf("curriculum %s: %w", id, ErrNotFound)
	}
	return c, nil
}

func (r *MemoryRepository) Index(_ context.Context, id string) (*TopicIndex, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.indexes[id]
	if !ok {
		return nil, fmt.Errorf("curriculum %s: %w", id, ErrNotFound)
	}
	return idx, nil
}

func (r *MemoryRepository) List(_ context.Context) ([]Curriculum, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Curriculum, 0, len(r.docs))
	for _, c := range r.docs {
		out = append(out, c)
	}
	return out, nil
}

func (r *MemoryRepository) Save(_ context.Context, c Curriculum) error {
	if c.ID == "" {
		return fmt.Errorf("curriculum ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.docs[c.ID] = c
	r.indexes[c.ID] = NewTopicIndex(c)
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[id]; !ok {
		return fmt.Errorf("curriculum %s: %w", id, ErrNotFound)
	}
	delete(r.docs, id)
	delete(r.indexes, id)
	return nil
}
