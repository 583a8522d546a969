package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chatvault/chatvault/internal/models"
)

func NewDeleteCommand() *cobra.Command {
	var conversationID string
	var source string
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete conversations",
		Long:  `Delete one conversation by id, or every conversation from a source.`,
		Example: `  # Delete one conversation
  chatvault delete --id 2f1b4a1c-9a7e-4a33-ae8f-0a1d7e6b2c11

  # Delete everything imported from claude.ai exports
  chatvault delete --source claude.ai --yes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (conversationID == "") == (source == "") {
				return fmt.Errorf("exactly one of --id or --source is required")
			}
			return runDelete(conversationID, source, yes)
		},
	}

	cmd.Flags().StringVar(&conversationID, "id", "", "Conversation ID to delete")
	cmd.Flags().StringVar(&source, "source", "", "Delete all conversations from this source")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")

	return cmd
}

func runDelete(id, source string, yes bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if id != "" {
		if !yes && !confirm(fmt.Sprintf("Delete conversation %s?", id)) {
			fmt.Println("Aborted.")
			return nil
		}
		deleted, err := store.DeleteConversation(id)
		if err != nil {
			return fmt.Errorf("failed to delete conversation: %w", err)
		}
		if !deleted {
			return fmt.Errorf("conversation %s not found", id)
		}
		fmt.Printf("✓ Deleted conversation %s\n", id)
		return nil
	}

	if !yes && !confirm(fmt.Sprintf("Delete ALL conversations from %s?", source)) {
		fmt.Println("Aborted.")
		return nil
	}
	count, err := store.DeleteBySource(models.Source(source))
	if err != nil {
		return fmt.Errorf("failed to delete conversations: %w", err)
	}
	fmt.Printf("✓ Deleted %d conversation(s) from %s\n", count, source)
	return nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
