package reconcile

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brizzai/tigoplanes/internal/auth/models"
	"github.com/brizzai/tigoplanes/internal/deeplink"
)

type fakeAuth struct {
	setSessionCalls atomic.Int32
	verifyCalls     atomic.Int32

	mu          sync.Mutex
	lastAccess  string
	lastRefresh string
	lastHash    string
	lastType    deeplink.OTPType

	err   error
	delay time.Duration
	panic any
}

func (f *fakeAuth) SetSession(ctx context.Context, accessToken, refreshToken string) (*models.Session, error) {
	f.setSessionCalls.Add(1)
	f.mu.Lock()
	f.lastAccess, f.lastRefresh = accessToken, refreshToken
	f.mu.Unlock()
	return f.result(ctx)
}

func (f *fakeAuth) VerifyOTP(ctx context.Context, tokenHash string, otpType deeplink.OTPType) (*models.Session, error) {
	f.verifyCalls.Add(1)
	f.mu.Lock()
	f.lastHash, f.lastType = tokenHash, otpType
	f.mu.Unlock()
	return f.result(ctx)
}

func (f *fakeAuth) calls() int {
	return int(f.setSessionCalls.Load() + f.verifyCalls.Load())
}

func (f *fakeAuth) result(ctx context.Context) (*models.Session, error) {
	if f.panic != nil {
		panic(f.panic)
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.Session{}, nil
}

type navRecorder struct {
	mu        sync.Mutex
	redirects []Redirect
}

func (n *navRecorder) Navigate(r Redirect) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.redirects = append(n.redirects, r)
}

func (n *navRecorder) all() []Redirect {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Redirect(nil), n.redirects...)
}

type countingRecorder struct {
	ignored    atomic.Int32
	duplicates atomic.Int32
	cross      atomic.Int32
	runs       atomic.Int32
}

func (c *countingRecorder) LinkIgnored() { c.ignored.Add(1) }

func (c *countingRecorder) LinkDuplicate(crossScreen bool) {
	c.duplicates.Add(1)
	if crossScreen {
		c.cross.Add(1)
	}
}

func (c *countingRecorder) RunFinished(deeplink.Kind, State, time.Duration) { c.runs.Add(1) }

var fastTiming = Timing{
	SuccessDelay: 5 * time.Millisecond,
	FailureDelay: 10 * time.Millisecond,
	CallTimeout:  time.Second,
}
