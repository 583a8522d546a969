package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/chatvault/chatvault/internal/models"
)

func NewShowCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one conversation",
		Long:  `Print a conversation with all its messages, rendered as markdown.`,
		Example: `  # Show a conversation
  chatvault show 2f1b4a1c-9a7e-4a33-ae8f-0a1d7e6b2c11

  # Print without terminal rendering
  chatvault show 2f1b4a1c-9a7e-4a33-ae8f-0a1d7e6b2c11 --raw`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(args[0], raw)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print plain markdown without rendering")

	return cmd
}

func runShow(id string, raw bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	conv, err := store.GetConversation(id)
	if err != nil {
		return fmt.Errorf("failed to get conversation: %w", err)
	}
	if conv == nil {
		return fmt.Errorf("conversation %s not found", id)
	}

	markdown := conversationMarkdown(conv)
	if raw {
		fmt.Println(markdown)
		return nil
	}

	rendered, err := glamour.Render(markdown, "dark")
	if err != nil {
		// Fall back to plain output rather than failing the command.
		fmt.Println(markdown)
		return nil
	}
	fmt.Print(rendered)
	return nil
}

func conversationMarkdown(conv *models.Conversation) string {
	var md strings.Builder

	md.WriteString("# " + conv.Name + "\n\n")
	md.WriteString(fmt.Sprintf("**Source:** %s  \n", conv.Source))
	md.WriteString(fmt.Sprintf("**Created:** %s  \n", conv.CreatedAt.Format("2006-01-02 15:04:05")))
	md.WriteString(fmt.Sprintf("**Messages:** %d (~%d tokens)\n", conv.MessageCount, conv.EstimatedTokens))
	if conv.ProjectPath != "" {
		md.WriteString(fmt.Sprintf("**Project:** %s", conv.ProjectPath))
		if conv.GitBranch != "" {
			md.WriteString(fmt.Sprintf(" (%s)", conv.GitBranch))
		}
		md.WriteString("\n")
	}
	md.WriteString("\n---\n\n")

	for _, msg := range conv.Messages {
		md.WriteString(fmt.Sprintf("## %s\n\n", senderHeading(msg.Sender)))
		md.WriteString(messageMarkdown(msg))
		md.WriteString("\n\n")
	}

	return md.String()
}

func senderHeading(sender models.Sender) string {
	switch sender {
	case models.SenderUser:
		return "User"
	case models.SenderAssistant:
		return "Assistant"
	case models.SenderTool:
		return "Tool"
	default:
		return "System"
	}
}

func messageMarkdown(msg models.Message) string {
	if len(msg.ContentBlocks) == 0 {
		return msg.Text
	}

	var parts []string
	for _, block := range msg.ContentBlocks {
		switch b := block.(type) {
		case models.TextBlock:
			parts = append(parts, b.Text)
		case models.CodeBlock:
			parts = append(parts, fmt.Sprintf("```%s\n%s\n```", b.Language, b.Text))
		case models.ThinkingBlock:
			parts = append(parts, "> *(thinking)* "+strings.ReplaceAll(b.Text, "\n", "\n> "))
		case models.ToolUseBlock:
			parts = append(parts, fmt.Sprintf("*Tool call:* `%s`", b.ToolName))
		case models.ToolResultBlock:
			parts = append(parts, fmt.Sprintf("*Tool result (%s):*\n\n```\n%s\n```", b.ToolName, b.ToolResult))
		case models.ArtifactBlock:
			title := b.ArtifactTitle
			if title == "" {
				title = "untitled"
			}
			if b.Unavailable() {
				parts = append(parts, fmt.Sprintf("*Artifact %q (content not exported)*", title))
			} else {
				parts = append(parts, fmt.Sprintf("*Artifact %q:*\n\n```\n%s\n```", title, b.Text))
			}
		case models.UnsupportedBlock:
			parts = append(parts, "*[unsupported content]*")
		default:
			if text := block.PlainText(); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, "\n\n")
}
