package models

import (
	"fmt"
	"strings"

	domain "github.com/brizzai/tigoplanes/internal/models"
	"github.com/charmbracelet/lipgloss"
)

// HiringItem wraps a hiring request for display in the review list
// Implements list.Item
type HiringItem struct {
	Hiring   domain.Hiring
	Decision domain.HiringStatus
}

func (i HiringItem) customer() string {
	if c := i.Hiring.Customer; c != nil {
		if c.DisplayName != "" {
			return c.DisplayName
		}
		return c.Email
	}
	return i.Hiring.UserID
}

func (i HiringItem) plan() string {
	if p := i.Hiring.Plan; p != nil {
		return fmt.Sprintf("%s ($%.2f)", p.Name, p.Price)
	}
	return i.Hiring.PlanID
}

func (i HiringItem) Title() string {
	return fmt.Sprintf("%s → %s", i.customer(), i.plan())
}

func (i HiringItem) Description() string {
	switch i.Decision {
	case domain.HiringApproved:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#56FF4E")).Render("[Approved]")
	case domain.HiringRejected:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Render("[Rejected]")
	}
	var parts []string
	if at := i.Hiring.RequestedAt; at != nil {
		parts = append(parts, at.Local().Format("2006-01-02 15:04"))
	}
	if i.Hiring.CustomerNotes != "" {
		parts = append(parts, i.Hiring.CustomerNotes)
	}
	return strings.Join(parts, " · ")
}

func (i HiringItem) Decided(status domain.HiringStatus) HiringItem {
	i.Decision = status
	return i
}

func (i HiringItem) FilterValue() string {
	return i.customer() + " " + i.plan() + " " + i.Hiring.CustomerNotes
}
