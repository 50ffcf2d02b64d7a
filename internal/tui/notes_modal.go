package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

// NotesModal is the textarea an advisor answers a hiring request with.
type NotesModal struct {
	textarea textarea.Model
}

func NewNotesModal(placeholder string) NotesModal {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.CharLimit = 500
	ta.Focus()
	return NotesModal{textarea: ta}
}

// Init returns the initial command for the modal (textarea blink).
func (m NotesModal) Init() tea.Cmd {
	return textarea.Blink
}

// Update feeds key events to the textarea.
func (m NotesModal) Update(msg tea.Msg) (NotesModal, tea.Cmd) {
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// Notes returns the current value of the textarea.
func (m NotesModal) Notes() string {
	return m.textarea.Value()
}

// View renders the modal UI.
func (m NotesModal) View(title string) string {
	return fmt.Sprintf(
		"%s\n\n%s\n\n%s",
		editHeaderStyle.Render(title),
		m.textarea.View(),
		"(ctrl+s to confirm, esc to cancel)",
	) + "\n\n"
}
