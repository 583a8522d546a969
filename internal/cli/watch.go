package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chatvault/chatvault/internal/watcher"
)

func NewWatchCommand() *cobra.Command {
	var dirs []string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch directories and sync session logs as they change",
		Long: `Watch directories for Claude Code session logs and keep the vault in sync
as they grow. Runs until interrupted.`,
		Example: `  # Watch the default Claude Code project directory
  chatvault watch

  # Watch specific directories
  chatvault watch --dir ~/code/proj-a --dir ~/code/proj-b`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(dirs)
		},
	}

	cmd.Flags().StringArrayVar(&dirs, "dir", nil, "Directory to watch (repeatable; default: config watch_dirs or ~/.claude/projects)")

	return cmd
}

func runWatch(dirs []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if len(dirs) == 0 {
		dirs = cfg.WatchDirs
	}
	if len(dirs) == 0 {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		dirs = []string{filepath.Join(homeDir, ".claude", "projects")}
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	w, err := watcher.New(store, logger)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := w.WatchDirectory(dir); err != nil {
			return err
		}
		fmt.Printf("Watching %s\n", dir)
	}

	w.Start()
	defer w.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	fmt.Println("\nStopping...")
	return nil
}
