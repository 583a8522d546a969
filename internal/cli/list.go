package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chatvault/chatvault/internal/models"
)

func NewListCommand() *cobra.Command {
	var limit, offset int
	var source string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations",
		Long:  `List conversations in the vault, newest first.`,
		Example: `  # List the most recent conversations
  chatvault list

  # List only session logs
  chatvault list --source claude-code

  # Page through older conversations
  chatvault list --limit 20 --offset 40`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(limit, offset, source)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of conversations")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of conversations to skip")
	cmd.Flags().StringVar(&source, "source", "", "Filter by source (claude.ai or claude-code)")

	return cmd
}

func runList(limit, offset int, source string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	conversations, err := store.ListConversations(limit, offset, models.Source(source))
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	if len(conversations) == 0 {
		fmt.Println("No conversations found.")
		return nil
	}

	for _, conv := range conversations {
		fmt.Printf("[%s] %s\n", conv.Source, conv.Name)
		fmt.Printf("  ID: %s | %s | %d messages | ~%d tokens\n",
			conv.ID, conv.CreatedAt.Format("2006-01-02 15:04"),
			conv.MessageCount, conv.EstimatedTokens)
		if conv.ProjectPath != "" {
			fmt.Printf("  Project: %s\n", conv.ProjectPath)
		}
		fmt.Println()
	}
	return nil
}
