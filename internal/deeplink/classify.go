package deeplink

import "strings"

// Classify picks the Intake variant for p. The first matching rule wins:
// provider error, then a full token pair, then a one-time token, then
// unrecognized. An error key counts even when its value is empty.
func Classify(p Params) Intake {
	if p.Present(ParamError) || p.Present(ParamErrorDescription) {
		return Intake{
			Kind:             KindProviderError,
			ErrorCode:        p[ParamError],
			ErrorDescription: p[ParamErrorDescription],
		}
	}

	access := p.First(ParamAccessToken, ParamToken)
	refresh := p[ParamRefreshToken]
	if access != "" && refresh != "" {
		return Intake{
			Kind:         KindTokens,
			AccessToken:  access,
			RefreshToken: refresh,
			Type:         p.First(ParamType, ParamEventType),
		}
	}

	if hash, key := oneTimeToken(p, refresh == ""); hash != "" {
		return Intake{
			Kind:      KindOTP,
			TokenHash: hash,
			OTPType:   otpTypeFor(p[ParamType], key),
		}
	}

	return Intake{Kind: KindUnrecognized, Raw: copyParams(p)}
}

// oneTimeToken returns the token value and the key it was found under.
// token_hash always counts; the plain token keys only count when no refresh
// token came with them.
func oneTimeToken(p Params, plain bool) (string, string) {
	if v := p[ParamTokenHash]; v != "" {
		return v, ParamTokenHash
	}
	if !plain {
		return "", ""
	}
	for _, key := range []string{ParamToken, ParamConfirmationToken, ParamRecoveryToken} {
		if v := p[key]; v != "" {
			return v, key
		}
	}
	return "", ""
}

// NormalizeOTPType maps provider type values onto the three types the
// verification call accepts. "password_recovery" is accepted as a synonym of
// "recovery".
func NormalizeOTPType(raw string) OTPType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "recovery", "password_recovery":
		return OTPRecovery
	case "signup", "email":
		return OTPSignup
	default:
		return OTPEmail
	}
}

func otpTypeFor(raw, key string) OTPType {
	if strings.TrimSpace(raw) == "" {
		switch key {
		case ParamRecoveryToken:
			return OTPRecovery
		case ParamConfirmationToken:
			return OTPSignup
		}
	}
	return NormalizeOTPType(raw)
}

func copyParams(p Params) Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
