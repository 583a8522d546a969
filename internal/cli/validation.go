package cli

import (
	"fmt"
	"os"
	"path/filepath"
)

// Validator checks CLI path inputs before any work starts.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateDirectory checks that a directory path exists and is a directory.
func (v *Validator) ValidateDirectory(path string) error {
	if path == "" {
		return nil
	}

	stat, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("invalid directory: %w", err)
	}
	if !stat.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}
	return nil
}

// ValidateFile checks that a file path exists and is a regular file.
func (v *Validator) ValidateFile(path string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	stat, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("file not found: %w", err)
	}
	if stat.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}
	return nil
}

// ResolvePath resolves a path to an absolute path.
func (v *Validator) ResolvePath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "." {
		return os.Getwd()
	}
	if filepath.IsAbs(path) {
		return path, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return filepath.Join(cwd, path), nil
}
