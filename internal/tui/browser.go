// Package tui is the interactive two-pane conversation browser.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chatvault/chatvault/internal/models"
	"github.com/chatvault/chatvault/internal/storage"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	userStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("#00FF00"))

	assistantStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("#00BFFF"))

	toolStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("#FFA500"))

	codeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6E22E"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

type Browser struct {
	store *storage.SQLiteStore
}

func NewBrowser(store *storage.SQLiteStore) *Browser {
	return &Browser{store: store}
}

func (b *Browser) Run() error {
	m := initialModel(b.store)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

type listItem struct {
	conversation models.Conversation
}

func (i listItem) FilterValue() string {
	return i.conversation.Name
}

func (i listItem) Title() string {
	return i.conversation.Name
}

func (i listItem) Description() string {
	return fmt.Sprintf("%s | %d msgs | %s",
		i.conversation.Source,
		i.conversation.MessageCount,
		i.conversation.CreatedAt.Format("2006-01-02 15:04"))
}

type model struct {
	store        *storage.SQLiteStore
	list         list.Model
	viewport     viewport.Model
	selectedConv *models.Conversation
	width        int
	height       int
	ready        bool
	err          error
}

func initialModel(store *storage.SQLiteStore) model {
	items := []list.Item{}

	conversations, err := store.ListConversations(200, 0, "")
	if err == nil {
		for _, conv := range conversations {
			items = append(items, listItem{conversation: conv})
		}
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true

	l := list.New(items, delegate, 0, 0)
	l.Title = "Conversations"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	vp := viewport.New(0, 0)
	vp.SetContent("Select a conversation to view")

	return model{
		store:    store,
		list:     l,
		viewport: vp,
		err:      err,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		listWidth := m.width / 3
		m.list.SetSize(listWidth, m.height-2)

		m.viewport.Width = m.width - listWidth - 4
		m.viewport.Height = m.height - 4

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "enter":
			if item, ok := m.list.SelectedItem().(listItem); ok {
				conv, err := m.store.GetConversation(item.conversation.ID)
				if err == nil && conv != nil {
					m.selectedConv = conv
					m.updateViewport()
				}
			}
		}
	}

	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err)
	}

	listPane := paneStyle.Render(m.list.View())
	detailPane := paneStyle.Render(m.viewport.View())

	panes := lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
	help := helpStyle.Render("enter: view | /: filter | ↑/↓: navigate | q: quit")

	return panes + "\n" + help
}

func (m *model) updateViewport() {
	if m.selectedConv == nil {
		m.viewport.SetContent("Select a conversation to view")
		return
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render(m.selectedConv.Name))
	content.WriteString("\n\n")
	content.WriteString(fmt.Sprintf("Source: %s\n", m.selectedConv.Source))
	if m.selectedConv.ProjectPath != "" {
		content.WriteString(fmt.Sprintf("Project: %s\n", m.selectedConv.ProjectPath))
	}
	if m.selectedConv.GitBranch != "" {
		content.WriteString(fmt.Sprintf("Branch: %s\n", m.selectedConv.GitBranch))
	}
	content.WriteString(fmt.Sprintf("Created: %s\n", m.selectedConv.CreatedAt.Format("2006-01-02 15:04:05")))
	content.WriteString(fmt.Sprintf("Tokens: ~%d\n", m.selectedConv.EstimatedTokens))
	content.WriteString("\n" + strings.Repeat("─", 40) + "\n\n")

	for _, msg := range m.selectedConv.Messages {
		switch msg.Sender {
		case models.SenderUser:
			content.WriteString(userStyle.Render("User:"))
		case models.SenderAssistant:
			content.WriteString(assistantStyle.Render("Assistant:"))
		case models.SenderTool:
			content.WriteString(toolStyle.Render("Tool:"))
		default:
			content.WriteString(dimStyle.Render("System:"))
		}
		content.WriteString("\n")
		content.WriteString(renderBlocks(msg))
		content.WriteString("\n\n")
	}

	m.viewport.SetContent(content.String())
	m.viewport.GotoTop()
}

// renderBlocks prefers the structured content when present, falling back to
// the flattened text.
func renderBlocks(msg models.Message) string {
	if len(msg.ContentBlocks) == 0 {
		return msg.Text
	}

	var out strings.Builder
	for i, block := range msg.ContentBlocks {
		if i > 0 {
			out.WriteString("\n\n")
		}
		switch b := block.(type) {
		case models.TextBlock:
			out.WriteString(b.Text)
		case models.CodeBlock:
			lang := b.Language
			if lang == "" {
				lang = "code"
			}
			out.WriteString(dimStyle.Render("["+lang+"]") + "\n")
			out.WriteString(codeStyle.Render(b.Text))
		case models.ThinkingBlock:
			out.WriteString(dimStyle.Render("(thinking) " + b.Text))
		case models.ToolUseBlock:
			out.WriteString(toolStyle.Render("→ " + b.ToolName))
		case models.ToolResultBlock:
			out.WriteString(toolStyle.Render("← "+b.ToolName) + "\n")
			out.WriteString(dimStyle.Render(b.ToolResult))
		case models.ArtifactBlock:
			title := b.ArtifactTitle
			if title == "" {
				title = "untitled"
			}
			if b.Unavailable() {
				out.WriteString(dimStyle.Render(fmt.Sprintf("[artifact: %s (content not exported)]", title)))
			} else {
				out.WriteString(dimStyle.Render("[artifact: "+title+"]") + "\n")
				out.WriteString(codeStyle.Render(b.Text))
			}
		case models.UnsupportedBlock:
			out.WriteString(dimStyle.Render("[unsupported content]"))
		default:
			out.WriteString(block.PlainText())
		}
	}
	return out.String()
}
