package config

import (
	"fmt"
	"path/filepath"
	"strings"

	scogerr "github.com/b1zzu/scog/errors"
)

// validateTrackedConfig validates every tracked path and reports all problems at once.
//
// Specifically, it validates:
//   - Paths are non-empty and absolute
//   - No path is the filesystem root
//   - No path is listed twice (after cleaning)
func validateTrackedConfig(cfg *TrackedConfig) error {
	if cfg == nil {
		return scogerr.New(scogerr.CodeInvalidInput, "configuration is nil")
	}

	var validationErrors []string
	seen := make(map[string]int, len(cfg.Sections))

	for i, s := range cfg.Sections {
		if err := validatePath(s.Path); err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("sections[%d]: %v", i, err))
			continue
		}

		clean := filepath.Clean(s.Path)
		if first, dup := seen[clean]; dup {
			validationErrors = append(validationErrors,
				fmt.Sprintf("sections[%d]: path %q duplicates sections[%d]", i, s.Path, first))
			continue
		}
		seen[clean] = i
	}

	if len(validationErrors) > 0 {
		return scogerr.New(
			scogerr.CodeInvalidInput,
			fmt.Sprintf("configuration validation failed: %s", strings.Join(validationErrors, "; ")),
		)
	}

	return nil
}

func validatePath(p string) error {
	switch {
	case strings.TrimSpace(p) == "":
		return fmt.Errorf("path is empty")
	case !filepath.IsAbs(p):
		return fmt.Errorf("path %q is not absolute", p)
	case filepath.Clean(p) == string(filepath.Separator):
		return fmt.Errorf("path %q is the filesystem root", p)
	}
	return nil
}
