package auth

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brizzai/tigoplanes/internal/auth/models"
	"github.com/brizzai/tigoplanes/internal/auth/providers"
	"github.com/brizzai/tigoplanes/internal/deeplink"
	"github.com/brizzai/tigoplanes/internal/requester"
	"github.com/brizzai/tigoplanes/internal/store"
	"golang.org/x/oauth2"
)

// fakeProvider is an in-memory identity provider with one account per email.
type fakeProvider struct {
	mu        sync.Mutex
	passwords map[string]string
	principal map[string]*models.Principal
	tokens    map[string]string // access token -> email
	revoked   []string
	scopes    []providers.SignOutScope
	seq       int

	refreshCalls atomic.Int32
	refreshDelay time.Duration
	refreshErr   error
	signOutErr   error
	lastSignUp   providers.SignUpParams
	verifyCalls  atomic.Int32
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		passwords: map[string]string{"maria@example.com": "secret1"},
		principal: map[string]*models.Principal{
			"maria@example.com": {ID: "u1", Email: "maria@example.com"},
		},
		tokens: map[string]string{},
	}
}

func (f *fakeProvider) issue(email string, expiry time.Time) *models.Session {
	f.seq++
	access := "access-" + string(rune('a'+f.seq))
	f.tokens[access] = email
	return &models.Session{
		Token: &oauth2.Token{
			AccessToken:  access,
			RefreshToken: "refresh-" + string(rune('a'+f.seq)),
			Expiry:       expiry,
		},
		Principal: f.principal[email],
	}
}

func invalidCredentials() error {
	return &requester.APIError{StatusCode: http.StatusBadRequest, Code: "invalid_credentials", Message: "Invalid login credentials"}
}

func (f *fakeProvider) SignUp(_ context.Context, p providers.SignUpParams) (*models.Principal, *models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSignUp = p
	if _, ok := f.passwords[p.Email]; ok {
		return nil, nil, &requester.APIError{StatusCode: 422, Code: "user_already_exists", Message: "User already registered"}
	}
	f.passwords[p.Email] = p.Password
	f.principal[p.Email] = &models.Principal{ID: "u-" + p.Email, Email: p.Email, UserMetadata: p.Metadata}
	return f.principal[p.Email], nil, nil
}

func (f *fakeProvider) SignInWithPassword(_ context.Context, email, password string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pw, ok := f.passwords[email]; !ok || pw != password {
		return nil, invalidCredentials()
	}
	return f.issue(email, time.Now().Add(time.Hour)), nil
}

func (f *fakeProvider) RefreshSession(_ context.Context, refreshToken string) (*models.Session, error) {
	f.refreshCalls.Add(1)
	time.Sleep(f.refreshDelay)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	sess := f.issue("maria@example.com", time.Now().Add(time.Hour))
	sess.Principal = nil
	return sess, nil
}

func (f *fakeProvider) GetUser(_ context.Context, accessToken string) (*models.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email, ok := f.tokens[accessToken]
	if !ok {
		return nil, &requester.APIError{StatusCode: http.StatusUnauthorized, Message: "invalid JWT"}
	}
	return f.principal[email], nil
}

func (f *fakeProvider) VerifyOTP(_ context.Context, tokenHash string, _ deeplink.OTPType) (*models.Session, error) {
	f.verifyCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if tokenHash == "expired" {
		return nil, &requester.APIError{StatusCode: http.StatusForbidden, Code: "otp_expired", Message: "Email link is invalid or has expired"}
	}
	return f.issue("maria@example.com", time.Now().Add(time.Hour)), nil
}

func (f *fakeProvider) UpdateUser(_ context.Context, accessToken string, attrs providers.UserAttributes) (*models.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email, ok := f.tokens[accessToken]
	if !ok {
		return nil, &requester.APIError{StatusCode: http.StatusUnauthorized, Message: "invalid JWT"}
	}
	if attrs.Password != "" {
		f.passwords[email] = attrs.Password
	}
	return f.principal[email], nil
}

func (f *fakeProvider) ResetPasswordForEmail(context.Context, string, string) error {
	return nil
}

func (f *fakeProvider) SignOut(_ context.Context, accessToken string, scope providers.SignOutScope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signOutErr != nil {
		return f.signOutErr
	}
	f.revoked = append(f.revoked, accessToken)
	f.scopes = append(f.scopes, scope)
	delete(f.tokens, accessToken)
	return nil
}

// fakeProfiles is an in-memory profile table.
type fakeProfiles struct {
	mu   sync.Mutex
	rows map[string]*models.User
	fail error
}

func (p *fakeProfiles) Get(_ context.Context, id string) (*models.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return nil, p.fail
	}
	u, ok := p.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (p *fakeProfiles) Update(_ context.Context, id string, upd store.ProfileUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	u.DisplayName = upd.DisplayName
	if upd.Phone != "" {
		u.Phone = upd.Phone
	}
	return nil
}
