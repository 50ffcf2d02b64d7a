// Package reconcile drives an authentication link from its classified intake
// to the screen the user lands on.
package reconcile

import (
	"time"

	"github.com/brizzai/tigoplanes/internal/deeplink"
)

// State is a step of the reconciliation flow.
type State string

const (
	StateIdle               State = "idle"
	StateProcessing         State = "processing"
	StateSessionEstablished State = "session_established"
	StateOTPVerified        State = "otp_verified"
	StateFailed             State = "failed"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	switch s {
	case StateSessionEstablished, StateOTPVerified, StateFailed:
		return true
	}
	return false
}

// Redirect is where the flow sends the user, with an optional message for
// the destination screen.
type Redirect struct {
	Route   string `json:"route"`
	Message string `json:"message,omitempty"`
}

// Outcome is the terminal result of one run.
type Outcome struct {
	State    State         `json:"state"`
	Kind     deeplink.Kind `json:"kind"`
	Redirect Redirect      `json:"redirect"`
	Delay    time.Duration `json:"delay"`
	Err      error         `json:"-"`
}
