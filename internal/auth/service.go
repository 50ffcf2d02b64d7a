// Package auth owns the process-wide session: sign-up, sign-in, sign-out,
// transparent token refresh and the observers that follow session changes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/brizzai/tigoplanes/internal/auth/constants"
	"github.com/brizzai/tigoplanes/internal/auth/models"
	"github.com/brizzai/tigoplanes/internal/auth/providers"
	"github.com/brizzai/tigoplanes/internal/config"
	"github.com/brizzai/tigoplanes/internal/deeplink"
	"github.com/brizzai/tigoplanes/internal/logger"
	"github.com/brizzai/tigoplanes/internal/requester"
	"github.com/brizzai/tigoplanes/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// ProfileStore is the application's user profile table.
type ProfileStore interface {
	Get(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, id string, upd store.ProfileUpdate) error
}

// SignUpInput is the registration form.
type SignUpInput struct {
	Email       string
	Password    string
	DisplayName string
	Phone       string
}

type ServiceParams struct {
	fx.In

	Provider providers.Provider
	Profiles ProfileStore
	Store    SessionStore
	DeepLink *config.DeepLinkConfig
}

// Service is the session facade. Only Service mutates the session; everyone
// else reads it through CurrentUser or Subscribe.
type Service struct {
	provider    providers.Provider
	profiles    ProfileStore
	store       SessionStore
	redirectURL string
	log         *zap.Logger

	mu      sync.RWMutex
	session *models.Session
	closed  bool

	refreshGroup singleflight.Group
	observers    observers
	now          func() time.Time
}

// NewService creates the facade
func NewService(params ServiceParams) *Service {
	redirect := ""
	if params.DeepLink != nil {
		redirect = params.DeepLink.RedirectURL
	}
	sessionStore := params.Store
	if sessionStore == nil {
		sessionStore = NewMemoryStore()
	}
	return &Service{
		provider:    params.Provider,
		profiles:    params.Profiles,
		store:       sessionStore,
		redirectURL: redirect,
		log:         logger.Named("auth"),
		now:         time.Now,
	}
}

var _ oauth2.TokenSource = (*Service)(nil)

// SignUp registers a customer account. The returned user is built from the
// form since the profile row may not exist until the email is confirmed.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if len(in.Password) < constants.MinPasswordLength {
		return nil, ErrWeakPassword
	}

	principal, sess, err := s.provider.SignUp(ctx, providers.SignUpParams{
		Email:    strings.TrimSpace(in.Email),
		Password: in.Password,
		Metadata: map[string]any{
			constants.MetaRole:        string(models.RoleCustomer),
			constants.MetaDisplayName: in.DisplayName,
			constants.MetaPhone:       in.Phone,
		},
		RedirectTo: s.redirectURL,
	})
	switch {
	case err == nil:
	case isAlreadyRegistered(err):
		return nil, ErrEmailRegistered
	case isWeakPassword(err):
		return nil, ErrWeakPassword
	default:
		return nil, fmt.Errorf("sign up failed: %w", err)
	}

	user := &models.User{
		ID:          principal.ID,
		Email:       principal.Email,
		DisplayName: in.DisplayName,
		Phone:       in.Phone,
		Role:        models.RoleCustomer,
		CreatedAt:   principal.CreatedAt,
	}
	s.log.Info("account registered", zap.String("user_id", user.ID), logger.Email(user.Email), zap.Bool("confirmed", sess != nil))

	if sess != nil {
		if sess.Principal == nil {
			sess.Principal = principal
		}
		// The signup trigger creates a bare profile row; fill in the form fields.
		upd := store.ProfileUpdate{DisplayName: in.DisplayName, Phone: in.Phone}
		if err := s.profiles.Update(requester.ContextWithToken(ctx, sess.AccessToken()), user.ID, upd); err != nil {
			s.log.Warn("failed to store profile details", zap.String("user_id", user.ID), zap.Error(err))
		}
		s.install(ctx, sess, EventSignedIn)
	}
	return user, nil
}

// SignIn authenticates with email and password and installs the session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	sess, err := s.provider.SignInWithPassword(ctx, strings.TrimSpace(email), password)
	if err != nil {
		if isInvalidCredentials(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("sign in failed: %w", err)
	}
	s.install(ctx, sess, EventSignedIn)
	s.log.Info("signed in", zap.String("user_id", sess.UserID()))
	return s.CurrentUser(ctx)
}

// SignOut revokes the session on the backend and forgets it locally. A
// backend failure is returned and the session is kept, unless the backend no
// longer knows the session.
func (s *Service) SignOut(ctx context.Context) error {
	s.mu.RLock()
	sess := s.session
	s.mu.RUnlock()
	if sess == nil {
		return nil
	}

	if err := s.provider.SignOut(ctx, sess.AccessToken(), providers.ScopeGlobal); err != nil && !isSessionGone(err) {
		return fmt.Errorf("sign out failed: %w", err)
	}
	s.uninstall(ctx)
	s.log.Info("signed out", zap.String("user_id", sess.UserID()))
	return nil
}

// CurrentUser resolves the signed-in user, or nil when nobody is signed in.
// A missing or unreadable profile row degrades to a minimal user built from
// the identity principal.
func (s *Service) CurrentUser(ctx context.Context) (*models.User, error) {
	sess, err := s.fresh(ctx)
	if errors.Is(err, ErrNotAuthenticated) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	principal, err := s.provider.GetUser(ctx, sess.AccessToken())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}

	profile, err := s.profiles.Get(requester.ContextWithToken(ctx, sess.AccessToken()), principal.ID)
	if err != nil {
		s.log.Warn("profile unavailable, using identity data", zap.String("user_id", principal.ID), zap.Error(err))
		return &models.User{
			ID:        principal.ID,
			Email:     principal.Email,
			Role:      models.RoleCustomer,
			CreatedAt: principal.CreatedAt,
		}, nil
	}
	if profile.Email == "" {
		profile.Email = principal.Email
	}
	if !profile.Role.Valid() {
		profile.Role = models.RoleCustomer
	}
	return profile, nil
}

// UpdateProfile changes the display name and, when given, the phone of the
// signed-in user. Identity state is untouched.
func (s *Service) UpdateProfile(ctx context.Context, displayName, phone string) error {
	sess, err := s.fresh(ctx)
	if err != nil {
		return err
	}
	upd := store.ProfileUpdate{DisplayName: displayName, Phone: phone}
	if err := s.profiles.Update(requester.ContextWithToken(ctx, sess.AccessToken()), sess.UserID(), upd); err != nil {
		return fmt.Errorf("profile update failed: %w", err)
	}
	s.emit(ctx, EventUserUpdated)
	return nil
}

// RequestPasswordReset sends the recovery email. Its link comes back through
// the app's own callback route.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.provider.ResetPasswordForEmail(ctx, strings.TrimSpace(email), s.redirectURL); err != nil {
		return fmt.Errorf("password reset request failed: %w", err)
	}
	s.log.Info("password reset requested", logger.Email(email))
	return nil
}

// UpdatePassword sets a new password for the signed-in user. The session
// stays valid.
func (s *Service) UpdatePassword(ctx context.Context, newPassword string) error {
	if len(newPassword) < constants.MinPasswordLength {
		return ErrWeakPassword
	}
	sess, err := s.fresh(ctx)
	if err != nil {
		return err
	}
	if _, err := s.provider.UpdateUser(ctx, sess.AccessToken(), providers.UserAttributes{Password: newPassword}); err != nil {
		if isWeakPassword(err) {
			return ErrWeakPassword
		}
		return fmt.Errorf("password update failed: %w", err)
	}
	s.log.Info("password updated", zap.String("user_id", sess.UserID()))
	s.emit(ctx, EventUserUpdated)
	return nil
}

// VerifyCurrentPassword checks password against the signed-in account with a
// throwaway sign-in. The throwaway session is never installed and is revoked
// when it differs from the active one.
func (s *Service) VerifyCurrentPassword(ctx context.Context, password string) error {
	sess, err := s.fresh(ctx)
	if err != nil {
		return err
	}
	email := ""
	if sess.Principal != nil {
		email = sess.Principal.Email
	}
	if email == "" {
		principal, err := s.provider.GetUser(ctx, sess.AccessToken())
		if err != nil {
			return fmt.Errorf("failed to resolve current user: %w", err)
		}
		email = principal.Email
	}

	probe, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		if isInvalidCredentials(err) {
			return ErrIncorrectCurrentPassword
		}
		return fmt.Errorf("password check failed: %w", err)
	}
	if !probe.SameTokens(sess) {
		if err := s.provider.SignOut(ctx, probe.AccessToken(), providers.ScopeLocal); err != nil {
			s.log.Warn("failed to revoke verification session", zap.Error(err))
		}
	}
	return nil
}

// ChangePassword verifies current and then sets next.
func (s *Service) ChangePassword(ctx context.Context, current, next string) error {
	if len(next) < constants.MinPasswordLength {
		return ErrWeakPassword
	}
	if current == next {
		return ErrSamePassword
	}
	if err := s.VerifyCurrentPassword(ctx, current); err != nil {
		return err
	}
	return s.UpdatePassword(ctx, next)
}

// SetSession installs a credential pair delivered by a link. An expired
// access token is exchanged through the refresh token first.
func (s *Service) SetSession(ctx context.Context, accessToken, refreshToken string) (*models.Session, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var sess *models.Session
	expiry, err := providers.ExpiryOf(accessToken)
	if err != nil || s.expiresSoon(expiry) {
		sess, err = s.provider.RefreshSession(ctx, refreshToken)
		if err == nil && sess.Principal == nil {
			sess.Principal, err = s.provider.GetUser(ctx, sess.AccessToken())
		}
		if err != nil {
			s.dropOnRejection(ctx, err)
			return nil, fmt.Errorf("session from link rejected: %w", err)
		}
	} else {
		principal, err := s.provider.GetUser(ctx, accessToken)
		if err != nil {
			s.dropOnRejection(ctx, err)
			return nil, fmt.Errorf("session from link rejected: %w", err)
		}
		sess = &models.Session{
			Token: &oauth2.Token{
				AccessToken:  accessToken,
				RefreshToken: refreshToken,
				TokenType:    constants.TokenType,
				Expiry:       expiry,
			},
			Principal: principal,
		}
	}

	s.install(ctx, sess, EventSignedIn)
	s.log.Info("session set from link", zap.String("user_id", sess.UserID()))
	return sess, nil
}

// VerifyOTP redeems a one-time token. Recovery and magic-link sessions are
// installed; a signup confirmation only confirms the address and the user
// signs in afterwards.
func (s *Service) VerifyOTP(ctx context.Context, tokenHash string, otpType deeplink.OTPType) (*models.Session, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	sess, err := s.provider.VerifyOTP(ctx, tokenHash, otpType)
	if err != nil {
		s.dropOnRejection(ctx, err)
		return nil, fmt.Errorf("verification failed: %w", err)
	}
	s.log.Info("one-time token verified", zap.String("type", string(otpType)), zap.Bool("session", sess != nil))
	if sess != nil && otpType != deeplink.OTPSignup {
		s.install(ctx, sess, EventSignedIn)
	}
	return sess, nil
}

// Restore loads the persisted session at startup and refreshes it if needed.
// A session the backend refuses to refresh is dropped.
func (s *Service) Restore(ctx context.Context) error {
	sess, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}

	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	if _, err := s.fresh(ctx); err != nil {
		if isRefreshRejected(err) {
			s.log.Info("stored session expired", zap.Error(err))
			s.uninstall(ctx)
			return nil
		}
		return err
	}
	s.log.Debug("session restored", zap.String("user_id", sess.UserID()))
	s.emit(ctx, EventSignedIn)
	return nil
}

// Subscribe registers fn for session transitions. Call the returned function
// to release it.
func (s *Service) Subscribe(fn Observer) (unsubscribe func()) {
	return s.observers.add(fn)
}

// Session returns the active session or nil.
func (s *Service) Session() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// AccessToken returns a valid access token, refreshing it when close to
// expiry.
func (s *Service) AccessToken(ctx context.Context) (string, error) {
	sess, err := s.fresh(ctx)
	if err != nil {
		return "", err
	}
	return sess.AccessToken(), nil
}

// Token implements oauth2.TokenSource.
func (s *Service) Token() (*oauth2.Token, error) {
	sess, err := s.fresh(context.Background())
	if err != nil {
		return nil, err
	}
	tok := *sess.Token
	return &tok, nil
}

// Close releases every observer. The session itself stays persisted.
func (s *Service) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.observers.close()
	return nil
}

func (s *Service) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *Service) expiresSoon(expiry time.Time) bool {
	if expiry.IsZero() {
		return false
	}
	return !s.now().Add(constants.RefreshLeeway).Before(expiry)
}

// fresh returns the active session, refreshing it first when its access token
// is about to expire. Concurrent callers share one refresh.
func (s *Service) fresh(ctx context.Context) (*models.Session, error) {
	s.mu.RLock()
	sess, closed := s.session, s.closed
	s.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if sess == nil || sess.Token == nil {
		return nil, ErrNotAuthenticated
	}
	if !s.expiresSoon(sess.Token.Expiry) {
		return sess, nil
	}

	v, err, _ := s.refreshGroup.Do(sess.RefreshToken(), func() (any, error) {
		// A caller that read the session just before a finished refresh
		// installed its successor must not refresh again.
		s.mu.RLock()
		cur := s.session
		s.mu.RUnlock()
		if cur != nil && cur != sess && cur.Token != nil && !s.expiresSoon(cur.Token.Expiry) {
			return cur, nil
		}
		return s.refresh(context.WithoutCancel(ctx), sess)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Session), nil
}

func (s *Service) refresh(ctx context.Context, old *models.Session) (*models.Session, error) {
	next, err := s.provider.RefreshSession(ctx, old.RefreshToken())
	if err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}
	if next.Principal == nil {
		next.Principal = old.Principal
	}

	s.mu.Lock()
	replaced := s.session == old
	if replaced {
		s.session = next
	}
	s.mu.Unlock()

	if replaced {
		s.persist(ctx, next)
		s.emit(ctx, EventTokenRefreshed)
	}
	return next, nil
}

func (s *Service) install(ctx context.Context, sess *models.Session, event Event) {
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
	s.persist(ctx, sess)
	s.emit(ctx, event)
}

func (s *Service) uninstall(ctx context.Context) {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
	if err := s.store.Clear(ctx); err != nil {
		s.log.Warn("failed to clear stored session", zap.Error(err))
	}
	s.emit(ctx, EventSignedOut)
}

// dropOnRejection signs out after the backend refused a link, so the user is
// not left in an older session. Timeouts and cancellations keep it.
func (s *Service) dropOnRejection(ctx context.Context, err error) {
	if !isLinkRejected(err) || s.Session() == nil {
		return
	}
	s.log.Info("link rejected, dropping current session", zap.Error(err))
	s.uninstall(ctx)
}

func (s *Service) persist(ctx context.Context, sess *models.Session) {
	if err := s.store.Save(ctx, sess); err != nil {
		s.log.Warn("failed to persist session", zap.Error(err))
	}
}

// emit resolves the user once and hands it to every observer.
func (s *Service) emit(ctx context.Context, event Event) {
	if s.observers.count() == 0 {
		return
	}
	var user *models.User
	if event != EventSignedOut {
		u, err := s.CurrentUser(ctx)
		if err != nil {
			s.log.Warn("failed to resolve user for observers", zap.String("event", string(event)), zap.Error(err))
		}
		user = u
	}
	for _, fn := range s.observers.snapshot() {
		fn(event, user)
	}
}
