// Package tui holds the terminal screens of the command-line client.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/brizzai/tigoplanes/internal/reconcile"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type deliveredMsg struct {
	outcome  reconcile.Outcome
	delivery reconcile.Delivery
}

type screenDoneMsg struct{}

type callbackKeyMap struct {
	quit key.Binding
}

func newCallbackKeyMap() *callbackKeyMap {
	return &callbackKeyMap{
		quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q", "esc"),
			key.WithHelp("q", "Leave"),
		),
	}
}

// CallbackModel is the callback screen: a spinner while the link is
// processed, then the outcome until the screen navigates away.
type CallbackModel struct {
	ctx     context.Context
	screen  *reconcile.Screen
	raw     string
	keys    *callbackKeyMap
	spinner spinner.Model

	navigated chan reconcile.Redirect

	delivered bool
	outcome   reconcile.Outcome
	delivery  reconcile.Delivery
	redirect  *reconcile.Redirect
	left      bool
	finished  bool
}

// NewCallbackModel mounts a screen on router for raw. The screen's
// navigation is reported back through the model.
func NewCallbackModel(ctx context.Context, router *reconcile.Router, raw string) CallbackModel {
	navigated := make(chan reconcile.Redirect, 1)
	screen := router.Mount(reconcile.NavigatorFunc(func(r reconcile.Redirect) {
		navigated <- r
	}))

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return CallbackModel{
		ctx:       ctx,
		screen:    screen,
		raw:       raw,
		keys:      newCallbackKeyMap(),
		spinner:   s,
		navigated: navigated,
	}
}

func (m CallbackModel) deliver() tea.Msg {
	outcome, delivery := m.screen.Deliver(m.ctx, m.raw)
	return deliveredMsg{outcome: outcome, delivery: delivery}
}

func (m CallbackModel) wait() tea.Msg {
	<-m.screen.Done()
	return screenDoneMsg{}
}

// Init starts the spinner and the delivery.
func (m CallbackModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.deliver)
}

// Update handles delivery progress and the quit key.
func (m CallbackModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.left = true
			m.screen.Unmount()
			m.finished = true
			return m, tea.Quit
		}

	case deliveredMsg:
		m.delivered = true
		m.outcome = msg.outcome
		m.delivery = msg.delivery
		if msg.delivery != reconcile.Processed {
			m.finished = true
			return m, tea.Quit
		}
		return m, m.wait

	case screenDoneMsg:
		select {
		case r := <-m.navigated:
			m.redirect = &r
		default:
		}
		m.finished = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the screen for the current state.
func (m CallbackModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Tigo Planes"))
	b.WriteString("\n\n")

	switch {
	case !m.delivered:
		fmt.Fprintf(&b, "%s Checking the link...\n", m.spinner.View())
	case m.delivery == reconcile.Ignored:
		b.WriteString(hintStyle.Render("This is not a sign-in link."))
		b.WriteString("\n")
	case m.delivery == reconcile.Duplicate:
		b.WriteString(hintStyle.Render("This link was already handled."))
		b.WriteString("\n")
	case m.outcome.State == reconcile.StateFailed:
		b.WriteString(failureStyle.Render("✗ " + m.outcome.Redirect.Message))
		b.WriteString("\n")
	default:
		b.WriteString(successStyle.Render("✓ " + successText(m.outcome)))
		b.WriteString("\n")
		if !m.finished {
			fmt.Fprintf(&b, "%s Redirecting...\n", m.spinner.View())
		}
	}

	if !m.finished {
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("q: leave"))
	}
	return docStyle.Render(b.String())
}

func successText(o reconcile.Outcome) string {
	if o.Redirect.Message != "" {
		return o.Redirect.Message
	}
	if o.State == reconcile.StateOTPVerified {
		return "Link verified"
	}
	return "Signed in"
}

// Result is what the screen ended with. The redirect is nil when the screen
// left without navigating.
func (m CallbackModel) Result() (reconcile.Outcome, reconcile.Delivery, *reconcile.Redirect) {
	return m.outcome, m.delivery, m.redirect
}

// Left reports whether the user left before the screen finished.
func (m CallbackModel) Left() bool {
	return m.left
}
