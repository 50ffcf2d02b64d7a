package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/brizzai/tigoplanes/internal/deeplink"
	"github.com/brizzai/tigoplanes/internal/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Navigator moves the app to a redirect target.
type Navigator interface {
	Navigate(r Redirect)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(r Redirect)

func (f NavigatorFunc) Navigate(r Redirect) { f(r) }

// Delivery is what one Deliver call did.
type Delivery int

const (
	// Processed means the link ran through the machine.
	Processed Delivery = iota
	// Ignored means the link is not an authentication link.
	Ignored
	// Duplicate means this screen, or another one recently, already took it.
	Duplicate
)

func (d Delivery) String() string {
	switch d {
	case Processed:
		return "processed"
	case Ignored:
		return "ignored"
	case Duplicate:
		return "duplicate"
	}
	return "unknown"
}

// Screen is one mounted callback screen. It processes at most one link and
// navigates once, after the outcome's grace period, unless it was unmounted
// first.
type Screen struct {
	ID string

	router *Router
	nav    Navigator
	latch  Latch

	mu      sync.Mutex
	mounted bool
	state   State
	outcome *Outcome
	timer   *time.Timer

	done     chan struct{}
	doneOnce sync.Once
}

// Deliver hands raw to the screen. Only the first link is acted on: an auth
// link is processed, anything else finishes the screen. Later calls are
// no-ops. Deliver returns once the collaborator
// call completed; navigation happens later.
func (s *Screen) Deliver(ctx context.Context, raw string) (Outcome, Delivery) {
	r := s.router
	link := r.extractor.Parse(raw)
	if !r.gate.IsAuthLink(link) {
		r.recorder.LinkIgnored()
		// A screen whose first link is not an auth link has nothing left
		// to do. One already processing keeps going.
		if s.latch.Acquire() {
			s.finish()
		}
		return Outcome{State: StateIdle}, Ignored
	}

	if !s.latch.Acquire() {
		r.recorder.LinkDuplicate(false)
		return s.Outcome(), Duplicate
	}

	// The collaborator call outlives the caller: an unmounted screen only
	// discards the result.
	ctx = context.WithoutCancel(ctx)
	fp := Fingerprint(raw)
	first, err := r.deduper.FirstSeen(ctx, fp)
	if err != nil {
		r.log.Warn("dedupe unavailable, processing link", zap.Error(err))
		first = true
	}
	if !first {
		r.recorder.LinkDuplicate(true)
		r.log.Info("link already processed by another screen", zap.String("screen", s.ID))
		s.finish()
		return Outcome{State: StateIdle}, Duplicate
	}

	s.setState(StateProcessing, nil)
	outcome := r.machine.Run(ctx, deeplink.Classify(link.Params))
	s.mu.Lock()
	discarded := !s.mounted
	s.mu.Unlock()
	// Only a link that reached the user stays remembered, so a failed or
	// abandoned one can be opened again.
	if outcome.State == StateFailed || discarded {
		if err := r.deduper.Forget(ctx, fp); err != nil {
			r.log.Warn("dedupe forget failed", zap.Error(err))
		}
	}
	s.setState(outcome.State, &outcome)
	s.schedule(outcome)
	return outcome, Processed
}

// Unmount tears the screen down. A pending navigation is dropped and any
// result still in flight is discarded.
func (s *Screen) Unmount() {
	s.mu.Lock()
	s.mounted = false
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	s.finish()
}

// State is the screen's current flow state.
func (s *Screen) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Outcome returns the terminal outcome, or an idle one while processing.
func (s *Screen) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		return Outcome{State: s.state}
	}
	return *s.outcome
}

// Done is closed once the screen navigated or will never navigate.
func (s *Screen) Done() <-chan struct{} {
	return s.done
}

func (s *Screen) setState(state State, outcome *Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return
	}
	s.state = state
	if outcome != nil {
		s.outcome = outcome
	}
}

func (s *Screen) schedule(outcome Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		s.router.log.Debug("screen unmounted, dropping redirect", zap.String("screen", s.ID))
		go s.finish()
		return
	}
	s.timer = time.AfterFunc(outcome.Delay, func() {
		s.mu.Lock()
		mounted := s.mounted
		s.mu.Unlock()
		if mounted && s.nav != nil {
			s.nav.Navigate(outcome.Redirect)
		}
		s.finish()
	})
}

func (s *Screen) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

// Router builds screens sharing one pipeline.
type Router struct {
	extractor *deeplink.Extractor
	gate      *deeplink.Gate
	machine   *Machine
	deduper   Deduper
	recorder  Recorder
	log       *zap.Logger
}

// NewRouter creates a Router. deduper and recorder may be nil.
func NewRouter(extractor *deeplink.Extractor, gate *deeplink.Gate, machine *Machine, deduper Deduper, recorder Recorder) *Router {
	if deduper == nil {
		deduper = NewMemoryDeduper(10 * time.Minute)
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Router{
		extractor: extractor,
		gate:      gate,
		machine:   machine,
		deduper:   deduper,
		recorder:  recorder,
		log:       logger.Named("router"),
	}
}

// Mount creates a fresh callback screen that navigates through nav.
func (r *Router) Mount(nav Navigator) *Screen {
	return &Screen{
		ID:      uuid.NewString(),
		router:  r,
		nav:     nav,
		mounted: true,
		state:   StateIdle,
		done:    make(chan struct{}),
	}
}

// IsAuthLink reports whether raw would be processed by a screen.
func (r *Router) IsAuthLink(raw string) bool {
	return r.gate.IsAuthLink(r.extractor.Parse(raw))
}
