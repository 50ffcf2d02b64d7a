package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brizzai/tigoplanes/internal/auth"
	"github.com/brizzai/tigoplanes/internal/auth/constants"
	"github.com/brizzai/tigoplanes/internal/auth/models"
	"github.com/brizzai/tigoplanes/internal/config"
	"github.com/brizzai/tigoplanes/internal/deeplink"
	"github.com/brizzai/tigoplanes/internal/logger"
	"go.uber.org/zap"
)

// User-facing messages of the flow.
const (
	MsgEmailConfirmed = "Email confirmed. You can now sign in."
	MsgTimedOut       = "request timed out"
	MsgUnexpected     = "Something went wrong while processing the link. Please try again."
	MsgLinkRejected   = "The link is invalid or has expired."
)

var errTimedOut = errors.New(MsgTimedOut)

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// Authenticator is the part of the session facade the flow calls.
type Authenticator interface {
	SetSession(ctx context.Context, accessToken, refreshToken string) (*models.Session, error)
	VerifyOTP(ctx context.Context, tokenHash string, otpType deeplink.OTPType) (*models.Session, error)
}

// Timing holds the grace periods and the collaborator call timeout.
type Timing struct {
	SuccessDelay time.Duration
	FailureDelay time.Duration
	CallTimeout  time.Duration
}

// DefaultTiming is used for zero fields.
var DefaultTiming = Timing{
	SuccessDelay: 500 * time.Millisecond,
	FailureDelay: 1500 * time.Millisecond,
	CallTimeout:  15 * time.Second,
}

// TimingFromConfig reads the reconcile section; Validate has already
// checked the durations.
func TimingFromConfig(cfg *config.ReconcileConfig) Timing {
	t := Timing{
		SuccessDelay: config.MustDuration(cfg.SuccessDelay),
		FailureDelay: config.MustDuration(cfg.FailureDelay),
		CallTimeout:  config.MustDuration(cfg.CallTimeout),
	}
	if t.SuccessDelay == 0 && cfg.SuccessDelay == "" {
		t.SuccessDelay = DefaultTiming.SuccessDelay
	}
	if t.FailureDelay == 0 && cfg.FailureDelay == "" {
		t.FailureDelay = DefaultTiming.FailureDelay
	}
	if t.CallTimeout == 0 {
		t.CallTimeout = DefaultTiming.CallTimeout
	}
	return t
}

// Machine runs one intake to a terminal state. It makes at most one
// collaborator call per run.
type Machine struct {
	auth     Authenticator
	timing   Timing
	recorder Recorder
	log      *zap.Logger
}

// NewMachine creates a Machine. recorder may be nil.
func NewMachine(a Authenticator, timing Timing, recorder Recorder) *Machine {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if timing.CallTimeout <= 0 {
		timing.CallTimeout = DefaultTiming.CallTimeout
	}
	return &Machine{auth: a, timing: timing, recorder: recorder, log: logger.Named("reconcile")}
}

// Run drives intake to a terminal Outcome. It never panics.
func (m *Machine) Run(ctx context.Context, intake deeplink.Intake) (out Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("link processing panicked", zap.Any("panic", r), zap.Stack("stack"))
			out = m.failed(intake.Kind, &panicError{value: r}, MsgUnexpected)
		}
		m.recorder.RunFinished(intake.Kind, out.State, time.Since(start))
		m.log.Info("link processed",
			zap.String("kind", string(intake.Kind)),
			zap.String("state", string(out.State)),
			zap.String("route", out.Redirect.Route),
			zap.Duration("took", time.Since(start)),
		)
	}()

	switch intake.Kind {
	case deeplink.KindTokens:
		return m.runTokens(ctx, intake)
	case deeplink.KindOTP:
		return m.runOTP(ctx, intake)
	case deeplink.KindProviderError:
		msg := intake.ErrorDescription
		if msg == "" {
			msg = intake.ErrorCode
		}
		if msg == "" {
			msg = MsgLinkRejected
		}
		return m.failed(intake.Kind, fmt.Errorf("provider error %q", intake.ErrorCode), msg)
	default:
		return m.failed(deeplink.KindUnrecognized, errors.New("unrecognized link"), unrecognizedMessage(intake.Raw))
	}
}

func (m *Machine) runTokens(ctx context.Context, intake deeplink.Intake) Outcome {
	m.log.Debug("establishing session from link",
		logger.Token("access_token", intake.AccessToken),
		zap.String("type", intake.Type),
	)
	err := m.call(ctx, func(ctx context.Context) error {
		_, err := m.auth.SetSession(ctx, intake.AccessToken, intake.RefreshToken)
		return err
	})
	if err != nil {
		return m.failed(intake.Kind, err, failureMessage(err))
	}
	route := constants.RouteHome
	if intake.IsRecovery() {
		route = constants.RouteResetPassword
	}
	return m.succeeded(intake.Kind, StateSessionEstablished, Redirect{Route: route})
}

func (m *Machine) runOTP(ctx context.Context, intake deeplink.Intake) Outcome {
	m.log.Debug("verifying one-time token",
		logger.Token("token_hash", intake.TokenHash),
		zap.String("type", string(intake.OTPType)),
	)
	err := m.call(ctx, func(ctx context.Context) error {
		_, err := m.auth.VerifyOTP(ctx, intake.TokenHash, intake.OTPType)
		return err
	})
	if err != nil {
		return m.failed(intake.Kind, err, failureMessage(err))
	}

	var redirect Redirect
	switch intake.OTPType {
	case deeplink.OTPRecovery:
		redirect = Redirect{Route: constants.RouteResetPassword}
	case deeplink.OTPSignup:
		redirect = Redirect{Route: constants.RouteLogin, Message: MsgEmailConfirmed}
	default:
		redirect = Redirect{Route: constants.RouteHome}
	}
	return m.succeeded(intake.Kind, StateOTPVerified, redirect)
}

// call runs fn with the call timeout. A result arriving after the timeout is
// dropped; a panic inside fn becomes an error.
func (m *Machine) call(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, m.timing.CallTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.log.Error("collaborator call panicked", zap.Any("panic", r), zap.Stack("stack"))
				done <- &panicError{value: r}
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			return errTimedOut
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errTimedOut
		}
		return ctx.Err()
	}
}

func (m *Machine) succeeded(kind deeplink.Kind, state State, redirect Redirect) Outcome {
	return Outcome{State: state, Kind: kind, Redirect: redirect, Delay: m.timing.SuccessDelay}
}

func (m *Machine) failed(kind deeplink.Kind, err error, msg string) Outcome {
	m.log.Warn("link processing failed", zap.String("kind", string(kind)), zap.Error(err))
	return Outcome{
		State:    StateFailed,
		Kind:     kind,
		Redirect: Redirect{Route: constants.RouteLogin, Message: msg},
		Delay:    m.timing.FailureDelay,
		Err:      err,
	}
}

func failureMessage(err error) string {
	if errors.Is(err, errTimedOut) {
		return MsgTimedOut
	}
	var pe *panicError
	if errors.As(err, &pe) {
		return MsgUnexpected
	}
	return auth.UserMessage(err)
}

func unrecognizedMessage(raw deeplink.Params) string {
	keys := "none"
	if len(raw) > 0 {
		keys = strings.Join(raw.Keys(), ", ")
	}
	return fmt.Sprintf("Unrecognized authentication link. Received parameters: %s.", keys)
}
