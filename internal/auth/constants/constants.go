package constants

import "time"

const (
	// TokenType for Bearer authentication
	TokenType = "bearer"

	// AuthHeaderName is the name of the Authorization header
	AuthHeaderName = "Authorization"

	// AuthHeaderPrefix is the prefix for the Authorization header value
	AuthHeaderPrefix = "Bearer "

	// MinPasswordLength is enforced by the identity provider's policy.
	MinPasswordLength = 6
)

// Screens the callback flow can land on.
const (
	RouteResetPassword = "/auth/nueva-password"
	RouteHome          = "/(tabs)"
	RouteLogin         = "/auth/login"
)

// Signup metadata keys.
const (
	MetaRole        = "rol"
	MetaDisplayName = "nombre"
	MetaPhone       = "telefono"
)

// RefreshLeeway is how long before expiry an access token is renewed.
const RefreshLeeway = 60 * time.Second
