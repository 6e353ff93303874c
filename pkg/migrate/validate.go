package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pressly/goose/v3"
	"go.uber.org/multierr"
)

var fileNameRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

var requiredAnnotations = []string{"-- +goose Up", "-- +goose Down"}

// ValidateDir checks every .sql file in dir for a timestamped name, a unique
// version and both goose sections, reporting all problems at once. Files that
// pass are then handed to goose to confirm it can order them.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	var problems error
	versions := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".sql" {
			continue
		}
		m := fileNameRe.FindStringSubmatch(name)
		if m == nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: name must be YYYYMMDDHHMMSS_snake_case.sql", name))
			continue
		}
		if prev, ok := versions[m[1]]; ok {
			problems = multierr.Append(problems, fmt.Errorf("%s: version %s already used by %s", name, m[1], prev))
		}
		versions[m[1]] = name
		problems = multierr.Append(problems, checkAnnotations(filepath.Join(dir, name)))
	}
	if problems != nil {
		return problems
	}

	if _, err := goose.CollectMigrations(dir, 0, goose.MaxVersion); err != nil {
		return fmt.Errorf("collect migrations: %w", err)
	}
	return nil
}

func checkAnnotations(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %q: %w", path, err)
	}
	var missing []string
	for _, annotation := range requiredAnnotations {
		if !strings.Contains(string(raw), annotation) {
			missing = append(missing, annotation)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing %s", filepath.Base(path), strings.Join(missing, ", "))
	}
	return nil
}
