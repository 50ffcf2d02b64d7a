package models

import (
	"time"

	"golang.org/x/oauth2"
)

// Role is the single authorization axis of the app.
type Role string

const (
	RoleAdvisor  Role = "asesor_comercial"
	RoleCustomer Role = "usuario_registrado"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdvisor || r == RoleCustomer
}

// Principal is the identity provider's view of the authenticated account.
type Principal struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	Phone            string         `json:"phone,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
}

// MetadataString returns a string entry of the signup metadata.
func (p *Principal) MetadataString(key string) string {
	if p == nil || p.UserMetadata == nil {
		return ""
	}
	v, _ := p.UserMetadata[key].(string)
	return v
}

// User is the application's user: the principal joined with its profile row.
type User struct {
	ID          string    `json:"id" yaml:"id"`
	Email       string    `json:"email" yaml:"email"`
	DisplayName string    `json:"nombre,omitempty" yaml:"nombre,omitempty"`
	Phone       string    `json:"telefono,omitempty" yaml:"telefono,omitempty"`
	Role        Role      `json:"rol" yaml:"rol"`
	CreatedAt   time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// IsAdvisor reports whether the user manages plans and hirings.
func (u *User) IsAdvisor() bool {
	return u != nil && u.Role == RoleAdvisor
}

// Session is the credential pair plus the principal it belongs to.
type Session struct {
	Token     *oauth2.Token
	Principal *Principal
}

// AccessToken returns the current access token or "".
func (s *Session) AccessToken() string {
	if s == nil || s.Token == nil {
		return ""
	}
	return s.Token.AccessToken
}

// RefreshToken returns the current refresh token or "".
func (s *Session) RefreshToken() string {
	if s == nil || s.Token == nil {
		return ""
	}
	return s.Token.RefreshToken
}

// UserID returns the principal id or "".
func (s *Session) UserID() string {
	if s == nil || s.Principal == nil {
		return ""
	}
	return s.Principal.ID
}

// SameTokens reports whether both sessions carry the same credential pair.
func (s *Session) SameTokens(other *Session) bool {
	return s.AccessToken() == other.AccessToken() && s.RefreshToken() == other.RefreshToken()
}
