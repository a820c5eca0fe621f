package resolver_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/learnquest/learnquest/internal/curriculum"
	"github.com/learnquest/learnquest/internal/generator"
	"github.com/learnquest/learnquest/internal/resolver"
)

const quizJSON = `[{"question":"What drives the water cycle?","options":["The sun","The moon","Wind","Tides"],"answerIndex":0,"explanation":"Solar energy drives evaporation."}]`

// readOnlyRepo wraps a repository and counts write calls; the resolver must
// never mutate the shared curriculum document.
type readOnlyRepo struct {
	curriculum.Repository
	writes atomic.Int32
}

func (r *readOnlyRepo) Save(ctx context.Context, c curriculum.Curriculum) error {
	r.writes.Add(1)
	return r.Repository.Save(ctx, c)
}

func (r *readOnlyRepo) Delete(ctx context.Context, id string) error {
	r.writes.Add(1)
	return r.Repository.Delete(ctx, id)
}

func setupRepo(t *testing.T, topic curriculum.Topic) *readOnlyRepo {
	t.Helper()
	mem := curriculum.NewMemoryRepository()
	err := mem.Save(context.Background(), curriculum.Curriculum{
		ID: "c1",
		Units: []curriculum.Unit{
			{Title: "Water", Topics: []curriculum.Topic{{Name: "Rain", Notes: "<p>rain</p>", Quiz: mustQuiz(t)}, topic}},
		},
	})
	if err != nil {
		t.Fatalf("seed curriculum: %v", err)
	}
	return &readOnlyRepo{Repository: mem}
}

func mustQuiz(t *testing.T) []curriculum.Question {
	t.Helper()
	quiz, err := generator.ParseQuiz(quizJSON)
	if err != nil {
		t.Fatalf("parse fixture quiz: %v", err)
	}
	return quiz
}

func TestResolve_CacheHit_NoGeneration(t *testing.T) {
	repo := setupRepo(t, curriculum.Topic{Name: "unused"})
	gen := generator.NewMockClient(nil)
	res := resolver.New(repo, gen, resolver.NewMemorySessionCache())

	// Position (0,0) already has notes and quiz.
	got, err := res.Resolve(context.Background(), "s1", "c1", 0, 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Generated {
		t.Error("complete topic should not be marked generated")
	}
	if got.Position != 0 {
		t.Errorf("Position = %d, want 0", got.Position)
	}
	if len(gen.Calls) != 0 {
		t.Errorf("generator called %d times for complete topic, want 0", len(gen.Calls))
	}
}

func TestResolve_GeneratesMissingPieces(t *testing.T) {
	repo := setupRepo(t, curriculum.Topic{Name: "Evaporation"})
	gen := generator.NewMockClient(map[generator.Kind]string{
		generator.KindNotes: "<h2>Evaporation</h2>",
		generator.KindQuiz:  quizJSON,
	})
	res := resolver.New(repo, gen, resolver.NewMemorySessionCache())

	got, err := res.Resolve(context.Background(), "s1", "c1", 0, 1)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if !got.Generated {
		t.Error("Generated should be true")
	}
	if got.Topic.Notes != "<h2>Evaporation</h2>" {
		t.Errorf("Notes = %q", got.Topic.Notes)
	}
	if len(got.Topic.Quiz) != 1 {
		t.Fatalf("quiz length = %d, want 1", len(got.Topic.Quiz))
	}

	// Quiz generation is fed the freshly generated notes.
	if gen.Calls[1].Kind != generator.KindQuiz || gen.Calls[1].Content != "<h2>Evaporation</h2>" {
		t.Errorf("quiz call = %+v, want notes as content", gen.Calls[1])
	}
}

func TestResolve_NeverWritesCurriculum(t *testing.T) {
	repo := setupRepo(t, curriculum.Topic{Name: "Evaporation"})
	gen := generator.NewMockClient(map[generator.Kind]string{
		generator.KindNotes: "<p>n</p>",
		generator.KindQuiz:  quizJSON,
	})
	res := resolver.New(repo, gen, resolver.NewMemorySessionCache())

	if _, err := res.Resolve(context.Background(), "s1", "c1", 0, 1); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if n := repo.writes.Load(); n != 0 {
		t.Errorf("curriculum write calls = %d, want 0", n)
	}

	// The stored document is untouched.
	c, _ := repo.Get(context.Background(), "c1")
	if c.Units[0].Topics[1].Notes != "" || len(c.Units[0].Topics[1].Quiz) != 0 {
		t.Error("shared curriculum document was mutated")
	}
}

func TestResolve_SessionCacheReused(t *testing.T) {
	repo := setupRepo(t, curriculum.Topic{Name: "Evaporation"})
	gen := generator.NewMockClient(map[generator.Kind]string{
		generator.KindNotes: "<p>n</p>",
		generator.KindQuiz:  quizJSON,
	})
	cache := resolver.NewMemorySessionCache()
	res := resolver.New(repo, gen, cache)
	ctx := context.Background()

	if _, err := res.Resolve(ctx, "s1", "c1", 0, 1); err != nil {
		t.Fatalf("first Resolve() error = %v", err)
	}
	if _, err := res.Resolve(ctx, "s1", "c1", 0, 1); err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}

	if len(gen.Calls) != 2 {
		t.Errorf("generator calls = %d, want 2 (second resolve served from session)", len(gen.Calls))
	}

	// A different session must not see the first session's content.
	if _, err := res.Resolve(ctx, "s2", "c1", 0, 1); err != nil {
		t.Fatalf("other-session Resolve() error = %v", err)
	}
	if len(gen.Calls) != 4 {
		t.Errorf("generator calls = %d, want 4 (fresh generation per session)", len(gen.Calls))
	}
}

func TestResolve_NotesFailure(t *testing.T) {
	repo := setupRepo(t, curriculum.Topic{Name: "Evaporation"})
	gen := generator.NewMockClient(nil)
	gen.Errs = []error{errors.New("service down")}
	res := resolver.New(repo, gen, resolver.NewMemorySessionCache())

	_, err := res.Resolve(context.Background(), "s1", "c1", 0, 1)
	if !errors.Is(err, resolver.ErrNotesGeneration) {
		t.Errorf("Resolve() error = %v, want ErrNotesGeneration", err)
	}
}

func TestResolve_QuizFailure_KeepsNotesForRetry(t *testing.T) {
	repo := setupRepo(t, curriculum.Topic{Name: "Evaporation"})
	gen := generator.NewMockClient(map[generator.Kind]string{
		generator.KindNotes: "<p>kept</p>",
		generator.KindQuiz:  quizJSON,
	})
	// Notes succeed, quiz fails once.
	gen.Errs = []error{nil, errors.New("service down")}
	res := resolver.New(repo, gen, resolver.NewMemorySessionCache())
	ctx := context.Background()

	_, err := res.Resolve(ctx, "s1", "c1", 0, 1)
	if !errors.Is(err, resolver.ErrQuizGeneration) {
		t.Fatalf("Resolve() error = %v, want ErrQuizGeneration", err)
	}

	// Retry: notes come from the session cache, only the quiz is regenerated.
	got, err := res.Resolve(ctx, "s1", "c1", 0, 1)
	if err != nil {
		t.Fatalf("retry Resolve() error = %v", err)
	}
	if got.Topic.Notes != "<p>kept</p>" {
		t.Errorf("Notes = %q, want cached notes", got.Topic.Notes)
	}
	if gen.CallCount(generator.KindNotes) != 1 {
		t.Errorf("notes generated %d times, want 1", gen.CallCount(generator.KindNotes))
	}
}

func TestResolve_MalformedQuizNotRetried(t *testing.T) {
	repo := setupRepo(t, curriculum.Topic{Name: "Evaporation", Notes: "<p>have</p>"})
	gen := generator.NewMockClient(map[generator.Kind]string{
		generator.KindQuiz: "Sure! Here are five questions:",
	})
	res := resolver.New(repo, gen, resolver.NewMemorySessionCache())

	_, err := res.Resolve(context.Background(), "s1", "c1", 0, 1)
	if !errors.Is(err, resolver.ErrQuizGeneration) {
		t.Errorf("Resolve() error = %v, want ErrQuizGeneration", err)
	}
	if !errors.Is(err, generator.ErrMalformed) {
		t.Errorf("Resolve() error = %v, want ErrMalformed in chain", err)
	}
	if got := gen.CallCount(generator.KindQuiz); got != 1 {
		t.Errorf("quiz generation calls = %d, want 1 (no retry on malformed output)", got)
	}
}

func TestResolve_UnknownTopic(t *testing.T) {
	repo := setupRepo(t, curriculum.Topic{Name: "Evaporation"})
	res := resolver.New(repo, generator.NewMockClient(nil), resolver.NewMemorySessionCache())

	_, err := res.Resolve(context.Background(), "s1", "c1", 5, 0)
	if !errors.Is(err, curriculum.ErrNotFound) {
		t.Errorf("Resolve() error = %v, want ErrNotFound", err)
	}

	_, err = res.Resolve(context.Background(), "s1", "nope", 0, 0)
	if !errors.Is(err, curriculum.ErrNotFound) {
		t.Errorf("Resolve() error = %v, want ErrNotFound for unknown curriculum", err)
	}
}
