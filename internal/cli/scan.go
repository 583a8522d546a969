package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func NewScanCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan for Claude Code session logs and import them",
		Long: `Walk a directory tree for Claude Code session logs (*.jsonl) and import
everything found. Already-imported sessions are skipped.`,
		Example: `  # Scan the default Claude Code project directory
  chatvault scan

  # Scan a specific directory
  chatvault scan --dir ~/code/myproject`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(dir)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory to scan (default: ~/.claude/projects)")

	return cmd
}

func runScan(dir string) error {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(homeDir, ".claude", "projects")
	}

	validator := NewValidator()
	if err := validator.ValidateDirectory(dir); err != nil {
		return err
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".jsonl") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	if len(paths) == 0 {
		fmt.Printf("No session logs found in %s\n", dir)
		return nil
	}

	fmt.Printf("Found %d session log(s) in %s\n", len(paths), dir)
	return runImport(paths)
}
