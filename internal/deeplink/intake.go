package deeplink

// Kind selects the Intake variant.
type Kind string

const (
	KindTokens        Kind = "tokens"
	KindOTP           Kind = "otp"
	KindProviderError Kind = "providerError"
	KindUnrecognized  Kind = "unrecognized"
)

// OTPType is the normalized verification type sent to the identity provider.
type OTPType string

const (
	OTPRecovery OTPType = "recovery"
	OTPSignup   OTPType = "signup"
	OTPEmail    OTPType = "email"
)

// Intake is the classified shape of one incoming link. Only the fields of the
// selected Kind are set.
type Intake struct {
	Kind Kind

	// KindTokens
	AccessToken  string
	RefreshToken string
	// Type is the raw type/event_type value carried with tokens.
	Type string

	// KindOTP
	TokenHash string
	OTPType   OTPType

	// KindProviderError
	ErrorCode        string
	ErrorDescription string

	// KindUnrecognized keeps everything for diagnostics.
	Raw Params
}

// IsRecovery reports whether the intake completes a password recovery.
func (i Intake) IsRecovery() bool {
	switch i.Kind {
	case KindTokens:
		return NormalizeOTPType(i.Type) == OTPRecovery
	case KindOTP:
		return i.OTPType == OTPRecovery
	}
	return false
}
