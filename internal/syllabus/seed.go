package syllabus

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/learnquest/learnquest/internal/curriculum"
)

// seedDoc is the on-disk shape of a pre-authored curriculum seed.
type seedDoc struct {
	Board   string `yaml:"board"`
	Class   string `yaml:"class"`
	Subject string `yaml:"subject"`
	Units   []struct {
		Title  string `yaml:"title"`
		Topics []struct {
			Name  string `yaml:"name"`
			Notes string `yaml:"notes"`
			XP    int    `yaml:"xp"`
		} `yaml:"topics"`
	} `yaml:"units"`
}

// ImportDir loads every curriculum seed YAML under dir into the repository.
// Invalid files are logged and skipped so one bad seed doesn't block the
// rest. Returns the number of curriculums imported.
func ImportDir(ctx context.Context, repo curriculum.Repository, dir string) (int, error) {
	imported := 0
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}

		c, err := parseSeed(path)
		if err != nil {
			slog.Warn("skipping invalid curriculum seed", "path", path, "error", err)
			return nil
		}
		if err := repo.Save(ctx, c); err != nil {
			return fmt.Errorf("save seed %s: %w", path, err)
		}
		imported++
		return nil
	})
	if err != nil {
		return imported, fmt.Errorf("importing seeds: %w", err)
	}

	slog.Info("curriculum seeds imported", "dir", dir, "count", imported)
	return imported, nil
}

func parseSeed(path string) (curriculum.Curriculum, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return curriculum.Curriculum{}, err
	}

	var doc seedDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return curriculum.Curriculum{}, err
	}
	if doc.Board == "" || doc.Class == "" || doc.Subject == "" {
		return curriculum.Curriculum{}, fmt.Errorf("board, class and subject are required")
	}
	if len(doc.Units) == 0 {
		return curriculum.Curriculum{}, fmt.Errorf("no units")
	}

	c := curriculum.Curriculum{
		ID:        curriculum.MakeID(doc.Board, doc.Class, doc.Subject),
		Board:     doc.Board,
		Class:     doc.Class,
		Subject:   doc.Subject,
		CreatedAt: time.Now().UTC(),
	}
	for _, u := range doc.Units {
		unit := curriculum.Unit{Title: u.Title}
		for _, t := range u.Topics {
			unit.Topics = append(unit.Topics, curriculum.Topic{Name: t.Name, Notes: t.Notes, XP: t.XP})
		}
		c.Units = append(c.Units, unit)
	}
	return c, nil
}
