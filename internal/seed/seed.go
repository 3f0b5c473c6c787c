// Package seed loads reference data such as the faculty directory at startup.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/yigit/thesisflow/internal/app/models"
	"gopkg.in/yaml.v3"
)

// FacultyEntry is one member in the faculty seed file
type FacultyEntry struct {
	FullName string `yaml:"full_name"`
	Title    string `yaml:"title"`
	Active   *bool  `yaml:"active"`
}

type facultyFile struct {
	Faculty []FacultyEntry `yaml:"faculty"`
}

// Upserter stores faculty members
type Upserter interface {
	Upsert(ctx context.Context, f *models.Faculty) error
}

// LoadFaculty reads the faculty seed file. Members are active unless the file
// says otherwise.
func LoadFaculty(path string) ([]*models.Faculty, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read faculty seed file: %w", err)
	}
	var file facultyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse faculty seed file: %w", err)
	}

	out := make([]*models.Faculty, 0, len(file.Faculty))
	for _, e := range file.Faculty {
		active := true
		if e.Active != nil {
			active = *e.Active
		}
		out = append(out, &models.Faculty{FullName: e.FullName, Title: e.Title, Active: active})
	}
	return out, nil
}

// Faculty upserts every member of the seed file at path. A missing file is not
// an error. Failures on single members are collected and the rest still load.
func Faculty(ctx context.Context, dir Upserter, path string, lgr zerolog.Logger) (int, error) {
	if path == "" {
		return 0, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		lgr.Info().Str("path", path).Msg("No faculty seed file, skipping")
		return 0, nil
	}

	members, err := LoadFaculty(path)
	if err != nil {
		return 0, err
	}

	var finalErr error
	loaded := 0
	for _, f := range members {
		if err := dir.Upsert(ctx, f); err != nil {
			lgr.Error().Err(err).Str("name", f.FullName).Msg("Error seeding faculty member")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		loaded++
	}

	lgr.Info().Int("count", loaded).Str("path", path).Msg("Faculty directory seeded")
	return loaded, finalErr
}
