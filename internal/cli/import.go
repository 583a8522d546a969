package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chatvault/chatvault/internal/importer"
)

func NewImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import conversation exports and session logs",
		Long: `Import conversations from claude.ai data exports (ZIP or JSON) and Claude
Code session logs (JSONL). Conversations already in the vault are skipped.`,
		Example: `  # Import a claude.ai data export
  chatvault import data-export.zip

  # Import a bare conversations.json
  chatvault import conversations.json

  # Import session logs
  chatvault import ~/.claude/projects/myproject/*.jsonl`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(args)
		},
	}

	return cmd
}

func runImport(paths []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	validator := NewValidator()
	var files []importer.File
	for _, path := range paths {
		if err := validator.ValidateFile(path); err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		files = append(files, importer.File{
			Name:     filepath.Base(path),
			MIMEType: mime.TypeByExtension(filepath.Ext(path)),
			Data:     data,
		})
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	imp := importer.New(store, logger, importer.WithBatchSize(cfg.ImportBatchSize))
	result, err := imp.Import(files, printProgress)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Import complete\n")
	fmt.Printf("  Added:   %d conversation(s), %d message(s)\n", result.ConversationsAdded, result.MessagesAdded)
	fmt.Printf("  Skipped: %d duplicate(s)\n", result.ConversationsSkipped)
	return nil
}

func printProgress(p importer.Progress) {
	switch p.Phase {
	case importer.PhaseParsing:
		fmt.Printf("Parsing %s (%d/%d)...\n", p.Filename, p.Current, p.Total)
	case importer.PhaseStoring:
		fmt.Printf("\rStoring %d/%d", p.Current, p.Total)
	case importer.PhaseComplete:
		fmt.Println()
	}
}
