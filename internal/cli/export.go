package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chatvault/chatvault/internal/models"
	"github.com/chatvault/chatvault/internal/storage"
)

func NewExportCommand() *cobra.Command {
	var conversationID string
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export conversations as JSON or CSV",
		Long: `Export one conversation (or the whole vault) for backup or analysis. JSON
keeps the full structure including content blocks; CSV flattens one message
per row.`,
		Example: `  # Export one conversation as JSON
  chatvault export --id 2f1b4a1c-9a7e-4a33-ae8f-0a1d7e6b2c11

  # Export everything to a file
  chatvault export --output vault.json

  # Export messages as CSV
  chatvault export --format csv --output messages.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(conversationID, format, output)
		},
	}

	cmd.Flags().StringVar(&conversationID, "id", "", "Conversation ID to export (default: all)")
	cmd.Flags().StringVar(&format, "format", "json", "Export format (json or csv)")
	cmd.Flags().StringVar(&output, "output", "", "Output file (default: stdout)")

	return cmd
}

func runExport(id, format, output string) error {
	if format != "json" && format != "csv" {
		return fmt.Errorf("unsupported format %q: expected json or csv", format)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	conversations, err := exportSet(store, id)
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	if format == "csv" {
		return writeCSV(out, conversations)
	}
	return writeJSON(out, conversations, id != "")
}

// exportSet loads the conversations to export, messages included.
func exportSet(store *storage.SQLiteStore, id string) ([]models.Conversation, error) {
	if id != "" {
		conv, err := store.GetConversation(id)
		if err != nil {
			return nil, fmt.Errorf("failed to get conversation: %w", err)
		}
		if conv == nil {
			return nil, fmt.Errorf("conversation %s not found", id)
		}
		return []models.Conversation{*conv}, nil
	}

	summaries, err := store.AllConversations(1 << 20)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	conversations := make([]models.Conversation, 0, len(summaries))
	for _, summary := range summaries {
		conv, err := store.GetConversation(summary.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get conversation %s: %w", summary.ID, err)
		}
		if conv != nil {
			conversations = append(conversations, *conv)
		}
	}
	return conversations, nil
}

func writeJSON(out io.Writer, conversations []models.Conversation, single bool) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if single && len(conversations) == 1 {
		return enc.Encode(conversations[0])
	}
	return enc.Encode(conversations)
}

func writeCSV(out io.Writer, conversations []models.Conversation) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	header := []string{"conversation_id", "conversation_name", "source", "message_id", "sender", "created_at", "text", "block_count"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, conv := range conversations {
		for _, msg := range conv.Messages {
			row := []string{
				conv.ID,
				conv.Name,
				string(conv.Source),
				msg.ID,
				string(msg.Sender),
				msg.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
				msg.Text,
				strconv.Itoa(len(msg.ContentBlocks)),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return w.Error()
}
