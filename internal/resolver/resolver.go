// Package resolver makes sure a requested topic has usable notes and quiz
// content, generating whatever is missing. Generated content lives only in
// the learner's session cache — the shared curriculum document is never
// written back, which is what keeps concurrent learners of the same subject
// from racing each other on a never-before-opened topic.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/learnquest/learnquest/internal/curriculum"
	"github.com/learnquest/learnquest/internal/generator"
)

// ErrNotesGeneration and ErrQuizGeneration name the piece that failed so the
// presentation layer can tell the learner what to retry.
var (
	ErrNotesGeneration = errors.New("notes generation failed")
	ErrQuizGeneration  = errors.New("quiz generation failed")
)

// ResolvedTopic is a topic with both pieces present, plus its global position.
type ResolvedTopic struct {
	Topic    curriculum.Topic `json:"topic"`
	Position int              `json:"position"`
	// Generated reports whether any piece was produced this session rather
	// than read from the curriculum document.
	Generated bool `json:"generated"`
}

// Resolver fetches topics and fills in missing notes/quiz content on demand.
type Resolver struct {
	repo     curriculum.Repository
	gen      generator.Client
	sessions SessionCache
}

// New creates a Resolver.
func New(repo curriculum.Repository, gen generator.Client, sessions SessionCache) *Resolver {
	return &Resolver{repo: repo, gen: gen, sessions: sessions}
}

// Resolve returns the topic at (unitIdx, topicIdx) with notes and quiz
// guaranteed present. Persisted content wins; session-cached content fills
// gaps; anything still missing is generated. Notes that generate
// successfully are cached even when the quiz then fails, so a retry only
// re-pays the failed piece — but resolution as a whole fails until both
// pieces exist.
func (r *Resolver) Resolve(ctx context.Context, sessionID, curriculumID string, unitIdx, topicIdx int) (ResolvedTopic, error) {
	idx, err := r.repo.Index(ctx, curriculumID)
	if err != nil {
		return ResolvedTopic{}, fmt.Errorf("resolve topic: %w", err)
	}
	pos, err := idx.Position(unitIdx, topicIdx)
	if err != nil {
		return ResolvedTopic{}, fmt.Errorf("resolve topic: %w", err)
	}
	topic, err := idx.TopicAt(pos)
	if err != nil {
		return ResolvedTopic{}, fmt.Errorf("resolve topic: %w", err)
	}

	if topic.HasNotes() && topic.HasQuiz() {
		return ResolvedTopic{Topic: topic, Position: pos}, nil
	}

	// Overlay whatever this session already generated.
	cached, ok, err := r.sessions.Get(ctx, sessionID, curriculumID, pos)
	if err != nil {
		slog.Warn("session cache read failed", "error", err)
	} else if ok {
		if !topic.HasNotes() && cached.HasNotes() {
			topic.Notes = cached.Notes
		}
		if !topic.HasQuiz() && cached.HasQuiz() {
			topic.Quiz = cached.Quiz
		}
	}

	generated := false

	if !topic.HasNotes() {
		notes, err := r.gen.Generate(ctx, topic.Name, generator.KindNotes)
		if err != nil {
			return ResolvedTopic{}, fmt.Errorf("topic %q: %w: %w", topic.Name, ErrNotesGeneration, err)
		}
		topic.Notes = notes
		generated = true
		r.cache(ctx, sessionID, curriculumID, pos, topic)
	}

	if !topic.HasQuiz() {
		raw, err := r.gen.Generate(ctx, topic.Notes, generator.KindQuiz)
		if err != nil {
			return ResolvedTopic{}, fmt.Errorf("topic %q: %w: %w", topic.Name, ErrQuizGeneration, err)
		}
		quiz, err := generator.ParseQuiz(raw)
		if err != nil {
			// A formatting error from the model; retrying the call wouldn't help.
			return ResolvedTopic{}, fmt.Errorf("topic %q: %w: %w", topic.Name, ErrQuizGeneration, err)
		}
		topic.Quiz = quiz
		generated = true
		r.cache(ctx, sessionID, curriculumID, pos, topic)
	}

	if generated {
		slog.Info("topic content generated",
			"curriculum_id", curriculumID,
			"position", pos,
			"topic", topic.Name,
		)
	}

	return ResolvedTopic{Topic: topic, Position: pos, Generated: generated}, nil
}

func (r *Resolver) cache(ctx context.Context, sessionID, curriculumID string, pos int, t curriculum.Topic) {
	if err := r.sessions.Put(ctx, sessionID, curriculumID, pos, t); err != nil {
		slog.Warn("session cache write failed", "error", err)
	}
}
