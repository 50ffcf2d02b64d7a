package providers

import (
	"context"

	"github.com/brizzai/tigoplanes/internal/auth/models"
	"github.com/brizzai/tigoplanes/internal/deeplink"
)

// SignOutScope selects which sessions a sign-out revokes.
type SignOutScope string

const (
	ScopeGlobal SignOutScope = "global"
	ScopeLocal  SignOutScope = "local"
	ScopeOthers SignOutScope = "others"
)

// SignUpParams is the input of Provider.SignUp.
type SignUpParams struct {
	Email      string
	Password   string
	Metadata   map[string]any
	RedirectTo string
}

// UserAttributes are the mutable account fields. Empty fields are left alone.
type UserAttributes struct {
	Email    string         `json:"email,omitempty"`
	Password string         `json:"password,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Provider is the identity collaborator. Every call that acts for a user
// takes that user's access token explicitly.
type Provider interface {
	// SignUp creates the account. The session is nil while the email is
	// unconfirmed.
	SignUp(ctx context.Context, params SignUpParams) (*models.Principal, *models.Session, error)

	// SignInWithPassword exchanges credentials for a session.
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)

	// RefreshSession exchanges a refresh token for a new pair.
	RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error)

	// GetUser resolves the principal behind an access token.
	GetUser(ctx context.Context, accessToken string) (*models.Principal, error)

	// VerifyOTP redeems a one-time token hash. The session may be nil.
	VerifyOTP(ctx context.Context, tokenHash string, otpType deeplink.OTPType) (*models.Session, error)

	// UpdateUser changes account attributes of the token's principal.
	UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*models.Principal, error)

	// ResetPasswordForEmail sends the recovery email.
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error

	// SignOut revokes the token's session(s).
	SignOut(ctx context.Context, accessToken string, scope SignOutScope) error
}
