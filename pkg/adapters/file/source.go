package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDefinitionNames are tried, in order, when a locator names a directory.
var DefaultDefinitionNames = []string{"survey.yaml", "survey.yml", "survey.json"}

// Source implements ports.DefinitionSource on the local filesystem.
type Source struct {
	// Root is prepended to relative locators. Empty means the working directory.
	Root string
}

// NewSource creates a Source resolving relative locators against root.
func NewSource(root string) *Source {
	return &Source{Root: root}
}

// Fetch reads the definition file. A directory locator resolves to the first
// of DefaultDefinitionNames found inside it.
func (s *Source) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if locator == "" {
		return nil, fmt.Errorf("locator cannot be empty")
	}

	path := locator
	if !filepath.IsAbs(path) && s.Root != "" {
		path = filepath.Join(s.Root, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("definition not found: %s", path)
		}
		return nil, fmt.Errorf("failed to stat definition: %w", err)
	}

	if info.IsDir() {
		resolved, err := resolveDir(path)
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	return data, nil
}

func resolveDir(dir string) (string, error) {
	for _, name := range DefaultDefinitionNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no survey definition in directory %s", dir)
}
