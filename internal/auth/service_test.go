package auth

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/brizzai/tigoplanes/internal/auth/models"
	"github.com/brizzai/tigoplanes/internal/auth/providers"
	"github.com/brizzai/tigoplanes/internal/config"
	"github.com/brizzai/tigoplanes/internal/deeplink"
	"github.com/brizzai/tigoplanes/internal/requester"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fixture struct {
	svc      *Service
	provider *fakeProvider
	profiles *fakeProfiles
	store    *MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		provider: newFakeProvider(),
		profiles: &fakeProfiles{rows: map[string]*models.User{
			"u1": {ID: "u1", Email: "maria@example.com", DisplayName: "María", Phone: "555", Role: models.RoleAdvisor},
		}},
		store: NewMemoryStore(),
	}
	f.svc = NewService(ServiceParams{
		Provider: f.provider,
		Profiles: f.profiles,
		Store:    f.store,
		DeepLink: &config.DeepLinkConfig{RedirectURL: "tigoplanes://auth-callback"},
	})
	t.Cleanup(func() { _ = f.svc.Close() })
	return f
}

func jwtWithExpiry(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)
	return tok
}

func TestService_SignIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.svc.SignIn(ctx, "maria@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "María", user.DisplayName)
	assert.Equal(t, models.RoleAdvisor, user.Role)

	stored, _ := f.store.Load(ctx)
	assert.Equal(t, f.svc.Session().AccessToken(), stored.AccessToken())
}

func TestService_SignInInvalidCredentials(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SignIn(context.Background(), "maria@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, "Incorrect email or password.", UserMessage(err))
	assert.Nil(t, f.svc.Session())
}

func TestService_SignUp(t *testing.T) {
	t.Run("registers a customer", func(t *testing.T) {
		f := newFixture(t)
		user, err := f.svc.SignUp(context.Background(), SignUpInput{
			Email: "new@example.com", Password: "secret1", DisplayName: "Nuevo", Phone: "777",
		})
		require.NoError(t, err)
		assert.Equal(t, models.RoleCustomer, user.Role)
		assert.Equal(t, "Nuevo", user.DisplayName)

		sent := f.provider.lastSignUp
		assert.Equal(t, "usuario_registrado", sent.Metadata["rol"])
		assert.Equal(t, "Nuevo", sent.Metadata["nombre"])
		assert.Equal(t, "777", sent.Metadata["telefono"])
		assert.Equal(t, "tigoplanes://auth-callback", sent.RedirectTo)
		// Unconfirmed accounts have no session yet.
		assert.Nil(t, f.svc.Session())
	})

	t.Run("already registered", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.SignUp(context.Background(), SignUpInput{Email: "maria@example.com", Password: "secret1"})
		assert.ErrorIs(t, err, ErrEmailRegistered)
	})

	t.Run("short password never reaches the provider", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.SignUp(context.Background(), SignUpInput{Email: "x@example.com", Password: "12345"})
		assert.ErrorIs(t, err, ErrWeakPassword)
		assert.Empty(t, f.provider.lastSignUp.Email)
	})
}

func TestService_CurrentUser(t *testing.T) {
	t.Run("nobody signed in", func(t *testing.T) {
		f := newFixture(t)
		user, err := f.svc.CurrentUser(context.Background())
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("falls back to identity data without profile", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		_, err := f.svc.SignIn(ctx, "maria@example.com", "secret1")
		require.NoError(t, err)

		f.profiles.fail = errors.New("rows service down")
		user, err := f.svc.CurrentUser(ctx)
		require.NoError(t, err)
		assert.Equal(t, &models.User{ID: "u1", Email: "maria@example.com", Role: models.RoleCustomer}, user)
	})
}

func TestService_UpdatePasswordKeepsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before, err := f.svc.SignIn(ctx, "maria@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.svc.UpdatePassword(ctx, "brandnew"))

	after, err := f.svc.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.ErrorIs(t, f.svc.UpdatePassword(ctx, "123"), ErrWeakPassword)
}

func TestService_VerifyCurrentPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.SignIn(ctx, "maria@example.com", "secret1")
	require.NoError(t, err)
	active := f.svc.Session()

	require.NoError(t, f.svc.VerifyCurrentPassword(ctx, "secret1"))
	assert.Same(t, active, f.svc.Session())
	require.Len(t, f.provider.revoked, 1)
	assert.NotEqual(t, active.AccessToken(), f.provider.revoked[0])
	assert.Equal(t, providers.ScopeLocal, f.provider.scopes[0])

	err = f.svc.VerifyCurrentPassword(ctx, "wrong")
	assert.ErrorIs(t, err, ErrIncorrectCurrentPassword)
	assert.Same(t, active, f.svc.Session())
}

func TestService_ChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.SignIn(ctx, "maria@example.com", "secret1")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.ChangePassword(ctx, "secret1", "secret1"), ErrSamePassword)
	assert.ErrorIs(t, f.svc.ChangePassword(ctx, "wrong", "another1"), ErrIncorrectCurrentPassword)
	require.NoError(t, f.svc.ChangePassword(ctx, "secret1", "another1"))

	_, err = f.svc.SignIn(ctx, "maria@example.com", "another1")
	assert.NoError(t, err)
}

func TestService_RefreshIsShared(t *testing.T) {
	f := newFixture(t)
	f.provider.refreshDelay = 50 * time.Millisecond
	ctx := context.Background()
	_, err := f.svc.SignIn(ctx, "maria@example.com", "secret1")
	require.NoError(t, err)

	// Force expiry.
	f.svc.mu.Lock()
	f.svc.session.Token.Expiry = time.Now().Add(-time.Minute)
	f.svc.mu.Unlock()

	var wg sync.WaitGroup
	tokens := make([]string, 8)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := f.svc.AccessToken(ctx)
			assert.NoError(t, err)
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.provider.refreshCalls.Load())
	for _, tok := range tokens {
		assert.Equal(t, tokens[0], tok)
	}
	assert.Equal(t, "u1", f.svc.Session().UserID(), "principal survives refresh")
}

func TestService_SignOut(t *testing.T) {
	t.Run("revokes globally and notifies", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		_, err := f.svc.SignIn(ctx, "maria@example.com", "secret1")
		require.NoError(t, err)

		var events []Event
		var last *models.User
		unsubscribe := f.svc.Subscribe(func(e Event, u *models.User) {
			events = append(events, e)
			last = u
		})
		defer unsubscribe()

		require.NoError(t, f.svc.SignOut(ctx))
		assert.Nil(t, f.svc.Session())
		assert.Equal(t, []Event{EventSignedOut}, events)
		assert.Nil(t, last)
		assert.Equal(t, providers.ScopeGlobal, f.provider.scopes[0])
		stored, _ := f.store.Load(ctx)
		assert.Nil(t, stored)
	})

	t.Run("backend failure keeps the session", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		_, err := f.svc.SignIn(ctx, "maria@example.com", "secret1")
		require.NoError(t, err)

		f.provider.signOutErr = &requester.APIError{StatusCode: http.StatusBadGateway, Message: "Bad Gateway"}
		assert.Error(t, f.svc.SignOut(ctx))
		assert.NotNil(t, f.svc.Session())

		f.provider.signOutErr = &requester.APIError{StatusCode: http.StatusUnauthorized, Message: "invalid JWT"}
		assert.NoError(t, f.svc.SignOut(ctx))
		assert.Nil(t, f.svc.Session())
	})
}

func TestService_Subscribe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var mu sync.Mutex
	var got []*models.User
	unsubscribe := f.svc.Subscribe(func(e Event, u *models.User) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, u)
	})

	_, err := f.svc.SignIn(ctx, "maria@example.com", "secret1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "María", got[0].DisplayName)

	unsubscribe()
	unsubscribe()
	require.NoError(t, f.svc.UpdateProfile(ctx, "Ana", ""))
	assert.Len(t, got, 1)

	user, err := f.svc.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.DisplayName)
	assert.Equal(t, "555", user.Phone)

	require.NoError(t, f.svc.Close())
	noop := f.svc.Subscribe(func(Event, *models.User) { t.Error("observer called after Close") })
	noop()
}

func TestService_SetSession(t *testing.T) {
	t.Run("valid access token resolves the principal", func(t *testing.T) {
		f := newFixture(t)
		access := jwtWithExpiry(t, time.Now().Add(time.Hour))
		f.provider.tokens[access] = "maria@example.com"

		sess, err := f.svc.SetSession(context.Background(), access, "refresh-x")
		require.NoError(t, err)
		assert.Equal(t, "u1", sess.UserID())
		assert.Equal(t, int32(0), f.provider.refreshCalls.Load())
		assert.Same(t, sess, f.svc.Session())
	})

	t.Run("expired access token is refreshed", func(t *testing.T) {
		f := newFixture(t)
		access := jwtWithExpiry(t, time.Now().Add(-time.Hour))

		sess, err := f.svc.SetSession(context.Background(), access, "refresh-x")
		require.NoError(t, err)
		assert.Equal(t, int32(1), f.provider.refreshCalls.Load())
		assert.NotEqual(t, access, sess.AccessToken())
	})

	t.Run("rejected token leaves no session", func(t *testing.T) {
		f := newFixture(t)
		access := jwtWithExpiry(t, time.Now().Add(time.Hour))

		_, err := f.svc.SetSession(context.Background(), access, "refresh-x")
		require.Error(t, err)
		assert.Equal(t, "invalid JWT", UserMessage(err))
		assert.Nil(t, f.svc.Session())
	})

	t.Run("rejected token signs out the current user", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		_, err := f.svc.SignIn(ctx, "maria@example.com", "secret1")
		require.NoError(t, err)

		_, err = f.svc.SetSession(ctx, jwtWithExpiry(t, time.Now().Add(time.Hour)), "refresh-x")
		require.Error(t, err)
		assert.Nil(t, f.svc.Session())
		stored, _ := f.store.Load(ctx)
		assert.Nil(t, stored)
	})

	t.Run("timeout keeps the current user", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		_, err := f.svc.SignIn(ctx, "maria@example.com", "secret1")
		require.NoError(t, err)
		f.provider.refreshErr = context.DeadlineExceeded

		_, err = f.svc.SetSession(ctx, jwtWithExpiry(t, time.Now().Add(-time.Hour)), "refresh-x")
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotNil(t, f.svc.Session())
	})
}

func TestService_VerifyOTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.VerifyOTP(ctx, "hash", deeplink.OTPSignup)
	require.NoError(t, err)
	assert.Nil(t, f.svc.Session(), "signup confirmation does not sign in")

	_, err = f.svc.VerifyOTP(ctx, "hash", deeplink.OTPRecovery)
	require.NoError(t, err)
	assert.NotNil(t, f.svc.Session())

	_, err = f.svc.VerifyOTP(ctx, "expired", deeplink.OTPEmail)
	require.Error(t, err)
	assert.Equal(t, "Email link is invalid or has expired", UserMessage(err))
	assert.Nil(t, f.svc.Session(), "a refused link signs the previous user out")
}

func TestService_Restore(t *testing.T) {
	t.Run("refreshes an expired stored session", func(t *testing.T) {
		f := newFixture(t)
		fileStore := NewFileStore(filepath.Join(t.TempDir(), "session.yaml"))
		f.svc.store = fileStore
		ctx := context.Background()
		require.NoError(t, fileStore.Save(ctx, &models.Session{
			Token:     &oauth2.Token{AccessToken: "old", RefreshToken: "r-old", Expiry: time.Now().Add(-time.Hour)},
			Principal: &models.Principal{ID: "u1", Email: "maria@example.com"},
		}))

		require.NoError(t, f.svc.Restore(ctx))
		assert.Equal(t, int32(1), f.provider.refreshCalls.Load())
		assert.NotEqual(t, "old", f.svc.Session().AccessToken())

		reloaded, err := fileStore.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, f.svc.Session().AccessToken(), reloaded.AccessToken())
	})

	t.Run("drops a session the backend refuses", func(t *testing.T) {
		f := newFixture(t)
		f.provider.refreshErr = &requester.APIError{StatusCode: http.StatusBadRequest, Code: "refresh_token_not_found", Message: "Invalid Refresh Token"}
		ctx := context.Background()
		require.NoError(t, f.store.Save(ctx, &models.Session{
			Token: &oauth2.Token{AccessToken: "old", RefreshToken: "r-old", Expiry: time.Now().Add(-time.Hour)},
		}))

		require.NoError(t, f.svc.Restore(ctx))
		assert.Nil(t, f.svc.Session())
		stored, _ := f.store.Load(ctx)
		assert.Nil(t, stored)
	})
}

func TestService_TokenSource(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Token()
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = f.svc.SignIn(context.Background(), "maria@example.com", "secret1")
	require.NoError(t, err)
	tok, err := oauth2.ReuseTokenSource(nil, f.svc).Token()
	require.NoError(t, err)
	assert.Equal(t, f.svc.Session().AccessToken(), tok.AccessToken)
}

func TestService_Closed(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.Close())

	_, err := f.svc.SignIn(context.Background(), "maria@example.com", "secret1")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "The current password is incorrect.", UserMessage(ErrIncorrectCurrentPassword))
	wrapped := &requester.APIError{StatusCode: 500, Message: "database unavailable"}
	assert.Equal(t, "database unavailable", UserMessage(errors.Join(errors.New("ctx"), wrapped)))
	assert.Equal(t, "boom", UserMessage(errors.New("boom")))
}
