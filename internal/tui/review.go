package tui

import (
	"context"

	domain "github.com/brizzai/tigoplanes/internal/models"
	"github.com/brizzai/tigoplanes/internal/tui/models"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// Decider answers hiring requests.
type Decider interface {
	Decide(ctx context.Context, id string, status domain.HiringStatus, notes string) error
}

type decidedMsg struct {
	index  int
	status domain.HiringStatus
	err    error
}

// reviewKeyMap holds key bindings for the review actions.
type reviewKeyMap struct {
	approve key.Binding
	reject  key.Binding
	confirm key.Binding
	cancel  key.Binding
	quit    key.Binding
}

func newReviewKeyMap() *reviewKeyMap {
	return &reviewKeyMap{
		approve: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Approve"),
		),
		reject: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Reject"),
		),
		confirm: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "Confirm"),
		),
		cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Cancel"),
		),
		quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "Quit"),
		),
	}
}

// ReviewModel lets an advisor approve or reject pending hiring requests.
type ReviewModel struct {
	ctx     context.Context
	decider Decider
	list    list.Model
	keys    *reviewKeyMap

	answering bool
	pending   domain.HiringStatus
	index     int
	modal     NotesModal
	decided   int
}

// NewReviewModel creates the review screen for hirings.
func NewReviewModel(ctx context.Context, decider Decider, hirings []domain.Hiring) ReviewModel {
	keys := newReviewKeyMap()

	items := make([]list.Item, len(hirings))
	for i, h := range hirings {
		items[i] = models.HiringItem{Hiring: h}
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = titleStyle.Render("Pending hiring requests")
	l.SetShowFilter(true)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.approve, keys.reject, keys.quit}
	}

	return ReviewModel{ctx: ctx, decider: decider, list: l, keys: keys, index: -1}
}

// Init returns the initial command for the review model.
func (m ReviewModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the list and the notes modal.
func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)
		return m, nil

	case decidedMsg:
		items := m.list.Items()
		if msg.index < 0 || msg.index >= len(items) {
			return m, nil
		}
		item, ok := items[msg.index].(models.HiringItem)
		if !ok {
			return m, nil
		}
		if msg.err != nil {
			return m, m.list.NewStatusMessage(statusMessageStyle("Could not answer: " + msg.err.Error()))
		}
		m.decided++
		cmd := m.list.SetItem(msg.index, item.Decided(msg.status))
		return m, tea.Batch(cmd, m.list.NewStatusMessage(statusMessageStyle("Saved "+item.Title())))
	}

	if m.answering {
		return m.updateAnswering(msg)
	}
	return m.updateList(msg)
}

func (m ReviewModel) updateAnswering(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.cancel):
			m.answering = false
			return m, nil
		case key.Matches(msg, m.keys.confirm):
			m.answering = false
			return m, m.decide(m.index, m.pending, m.modal.Notes())
		}
	}
	var cmd tea.Cmd
	m.modal, cmd = m.modal.Update(msg)
	return m, cmd
}

func (m ReviewModel) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.approve), key.Matches(msg, m.keys.reject):
			item, ok := m.list.SelectedItem().(models.HiringItem)
			if !ok {
				return m, nil
			}
			if item.Decision != "" {
				return m, m.list.NewStatusMessage(statusMessageStyle("Already answered"))
			}
			m.pending = domain.HiringApproved
			placeholder := "Notes for the customer (optional)"
			if key.Matches(msg, m.keys.reject) {
				m.pending = domain.HiringRejected
				placeholder = "Why is it rejected? (optional)"
			}
			m.answering = true
			m.index = m.indexOf(item)
			m.modal = NewNotesModal(placeholder)
			return m, m.modal.Init()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// indexOf maps a selected item to its position in the unfiltered list.
func (m ReviewModel) indexOf(item models.HiringItem) int {
	for i, it := range m.list.Items() {
		if h, ok := it.(models.HiringItem); ok && h.Hiring.ID == item.Hiring.ID {
			return i
		}
	}
	return m.list.Index()
}

func (m ReviewModel) decide(index int, status domain.HiringStatus, notes string) tea.Cmd {
	item := m.list.Items()[index].(models.HiringItem)
	return func() tea.Msg {
		err := m.decider.Decide(m.ctx, item.Hiring.ID, status, notes)
		return decidedMsg{index: index, status: status, err: err}
	}
}

// View renders either the list or the notes modal.
func (m ReviewModel) View() string {
	if m.answering {
		item := m.list.Items()[m.index].(models.HiringItem)
		verb := "Approve"
		if m.pending == domain.HiringRejected {
			verb = "Reject"
		}
		return docStyle.Render(m.modal.View(verb + " " + item.Title()))
	}
	return docStyle.Render(m.list.View())
}

// Decided is the number of requests answered on this screen.
func (m ReviewModel) Decided() int {
	return m.decided
}
