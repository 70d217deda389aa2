// Package tui provides the interactive chat interface.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/skim-ai/cli/internal/models"
)

// AskFunc answers one question; wired to the answerer by the caller.
type AskFunc func(ctx context.Context, query string) (*models.Answer, error)

var (
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	citationStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type chatMessage struct {
	role    string
	content string
}

type answerMsg struct {
	answer *models.Answer
	err    error
}

// ChatModel is the bubbletea model for the chat loop.
type ChatModel struct {
	ask      AskFunc
	input    string
	messages []chatMessage
	loading  bool
	width    int
}

// NewChatModel creates a chat model.
func NewChatModel(ask AskFunc) *ChatModel {
	return &ChatModel{ask: ask, width: 80}
}

// Init implements tea.Model.
func (m *ChatModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			query := strings.TrimSpace(m.input)
			if query == "" || m.loading {
				return m, nil
			}
			m.input = ""
			m.loading = true
			m.messages = append(m.messages, chatMessage{role: "user", content: query})
			return m, m.askCmd(query)
		case tea.KeyBackspace:
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
			return m, nil
		case tea.KeySpace:
			m.input += " "
			return m, nil
		case tea.KeyRunes:
			m.input += string(msg.Runes)
			return m, nil
		}

	case answerMsg:
		m.loading = false
		if msg.err != nil {
			m.messages = append(m.messages, chatMessage{
				role:    "error",
				content: msg.err.Error(),
			})
			return m, nil
		}
		m.messages = append(m.messages, chatMessage{
			role:    "assistant",
			content: formatAnswer(msg.answer),
		})
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m *ChatModel) View() string {
	var lines []string

	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Render("skim chat")
	lines = append(lines, title, "")

	for _, msg := range m.messages {
		switch msg.role {
		case "user":
			lines = append(lines, userStyle.Render("You: ")+msg.content)
		case "assistant":
			lines = append(lines, assistantStyle.Render(msg.content))
		case "error":
			lines = append(lines, errorStyle.Render("Error: "+msg.content))
		}
		lines = append(lines, "")
	}

	if m.loading {
		lines = append(lines, assistantStyle.Render("Thinking..."), "")
	}

	lines = append(lines, "> "+m.input)
	lines = append(lines, helpStyle.Render("Enter: send | Esc: quit"))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// askCmd runs the question off the UI loop.
func (m *ChatModel) askCmd(query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		answer, err := m.ask(ctx, query)
		return answerMsg{answer: answer, err: err}
	}
}

// formatAnswer renders the answer text followed by its citations.
func formatAnswer(answer *models.Answer) string {
	var b strings.Builder
	b.WriteString(answer.Answer)

	if len(answer.Citations) > 0 {
		b.WriteString("\n\n")
		b.WriteString(citationStyle.Render("Citations:"))
		for _, c := range answer.Citations {
			line := fmt.Sprintf("  [%d] %s", c.SourceID, c.DocID)
			if c.Page > 0 {
				line += fmt.Sprintf(", Page %d", c.Page)
			}
			line += fmt.Sprintf(" (score %.3f)", c.ConfidenceScore)
			b.WriteString("\n" + citationStyle.Render(line))
		}
	}

	return b.String()
}

// Run starts the chat loop and blocks until the user quits.
func Run(ask AskFunc) error {
	p := tea.NewProgram(NewChatModel(ask))
	_, err := p.Run()
	return err
}
