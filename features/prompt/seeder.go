package prompt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Prompts []struct {
		Name        string `yaml:"name"`
		Template    string `yaml:"template"`
		Description string `yaml:"description"`
	} `yaml:"prompts"`
}

// Seed loads prompt templates from a YAML file and inserts the ones not
// already present. Existing prompts are never overwritten, so operator
// edits survive restarts. A missing seed file is not an error.
func Seed(ctx context.Context, repo Repository, path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path is from application config, not user input
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("prompt seed file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read prompt seeds: %w", err)
	}

	var seeds seedFile
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return fmt.Errorf("parse prompt seeds: %w", err)
	}

	seeded := 0
	for _, s := range seeds.Prompts {
		if s.Name == "" || s.Template == "" {
			slog.Warn("skipping incomplete prompt seed", "name", s.Name)
			continue
		}

		_, err := repo.GetByName(ctx, s.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check prompt %s: %w", s.Name, err)
		}

		if err := repo.Save(ctx, &Prompt{Name: s.Name, Template: s.Template, Description: s.Description}); err != nil {
			return fmt.Errorf("seed prompt %s: %w", s.Name, err)
		}
		seeded++
	}

	slog.Info("prompt seeding done", "path", path, "seeded", seeded, "total", len(seeds.Prompts))
	return nil
}
