// Package syllabus builds curriculum documents, either by asking the
// generation service to structure a board/class/subject into units or by
// importing pre-authored seed files.
package syllabus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/learnquest/learnquest/internal/curriculum"
	"github.com/learnquest/learnquest/internal/generator"
)

// Service creates and persists curriculums.
type Service struct {
	repo curriculum.Repository
	gen  generator.Client
	now  func() time.Time
}

// NewService creates a syllabus service.
func NewService(repo curriculum.Repository, gen generator.Client) *Service {
	return &Service{repo: repo, gen: gen, now: time.Now}
}

// Build structures a syllabus for the given board, class and subject and
// persists it. rawText, when present, is the admin's pasted syllabus and is
// handed to the generation service for structuring; otherwise the service
// structures from the board/class/subject alone. If a curriculum with the
// derived ID already exists it is returned as-is and the expensive generation
// call is skipped entirely.
func (s *Service) Build(ctx context.Context, board, class, subject, rawText string) (curriculum.Curriculum, error) {
	if board == "" || class == "" || subject == "" {
		return curriculum.Curriculum{}, fmt.Errorf("board, class and subject are required")
	}

	id := curriculum.MakeID(board, class, subject)
	if existing, err := s.repo.Get(ctx, id); err == nil {
		return existing, nil
	}

	prompt := fmt.Sprintf("Board: %s, Class: %s, Subject: %s", board, class, subject)
	if rawText != "" {
		prompt += "\n\nSyllabus:\n" + rawText
	}
	raw, err := s.gen.Generate(ctx, prompt, generator.KindSyllabusStructure)
	if err != nil {
		return curriculum.Curriculum{}, fmt.Errorf("structure syllabus %s: %w", id, err)
	}

	units, err := generator.ParseSyllabus(raw)
	if err != nil {
		return curriculum.Curriculum{}, fmt.Errorf("structure syllabus %s: %w", id, err)
	}

	c := curriculum.Curriculum{
		ID:        id,
		Board:     board,
		Class:     class,
		Subject:   subject,
		Units:     toUnits(units),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return curriculum.Curriculum{}, fmt.Errorf("save curriculum %s: %w", id, err)
	}

	slog.Info("curriculum created",
		"curriculum_id", id,
		"units", len(c.Units),
		"topics", c.TopicCount(),
	)
	return c, nil
}

func toUnits(units []generator.SyllabusUnit) []curriculum.Unit {
	out := make([]curriculum.Unit, 0, len(units))
	for _, u := range units {
		unit := curriculum.Unit{Title: u.Title}
		for _, name := range u.Topics {
			unit.Topics = append(unit.Topics, curriculum.Topic{Name: name})
		}
		out = append(out, unit)
	}
	return out
}
