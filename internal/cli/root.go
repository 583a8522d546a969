// Package cli wires the chatvault commands together.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chatvault/chatvault/internal/config"
	"github.com/chatvault/chatvault/internal/logging"
	"github.com/chatvault/chatvault/internal/search"
	"github.com/chatvault/chatvault/internal/storage"
)

var (
	dbPath     string
	configPath string
	verbose    bool
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chatvault",
		Short: "Local vault for AI conversation history",
		Long: `chatvault imports, searches, and browses AI conversation history from
claude.ai data exports and Claude Code session logs. Everything stays in a
local SQLite database.`,
		Version: "0.1.0",
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to database file (default: ~/.chatvault/chatvault.db)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ~/.chatvault/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr as well as the log file")

	rootCmd.AddCommand(
		NewImportCommand(),
		NewScanCommand(),
		NewSearchCommand(),
		NewListCommand(),
		NewShowCommand(),
		NewExportCommand(),
		NewDeleteCommand(),
		NewStatsCommand(),
		NewActivityCommand(),
		NewBrowseCommand(),
		NewWatchCommand(),
	)

	return rootCmd
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves settings and applies the --db override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Console: verbose,
	})
}

func openStore(cfg *config.Config) (*storage.SQLiteStore, error) {
	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// searchTier resolves the tier for a search; --pro overrides the configured
// tier.
func searchTier(cfg *config.Config, proFlag bool) search.Tier {
	if proFlag || cfg.Tier == "pro" {
		return search.TierPro
	}
	return search.TierFree
}
