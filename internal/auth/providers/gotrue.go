package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/brizzai/tigoplanes/internal/auth/constants"
	"github.com/brizzai/tigoplanes/internal/auth/models"
	"github.com/brizzai/tigoplanes/internal/deeplink"
	"github.com/brizzai/tigoplanes/internal/logger"
	"github.com/brizzai/tigoplanes/internal/requester"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const authPrefix = "/auth/v1"

// GoTrueProvider talks to the hosted auth service.
type GoTrueProvider struct {
	doer requester.Doer
	now  func() time.Time
}

// NewGoTrueProvider creates a GoTrueProvider on top of the backend requester
func NewGoTrueProvider(doer requester.Doer) *GoTrueProvider {
	return &GoTrueProvider{doer: doer, now: time.Now}
}

type tokenResponse struct {
	AccessToken  string            `json:"access_token"`
	TokenType    string            `json:"token_type"`
	ExpiresIn    int64             `json:"expires_in"`
	ExpiresAt    int64             `json:"expires_at"`
	RefreshToken string            `json:"refresh_token"`
	User         *models.Principal `json:"user"`
}

func (p *GoTrueProvider) session(tr *tokenResponse) *models.Session {
	if tr.AccessToken == "" {
		return nil
	}
	token := &oauth2.Token{
		AccessToken:  tr.AccessToken,
		TokenType:    tr.TokenType,
		RefreshToken: tr.RefreshToken,
	}
	switch {
	case tr.ExpiresAt > 0:
		token.Expiry = time.Unix(tr.ExpiresAt, 0)
	case tr.ExpiresIn > 0:
		token.Expiry = p.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	default:
		if exp, err := ExpiryOf(tr.AccessToken); err == nil {
			token.Expiry = exp
		}
	}
	if token.TokenType == "" {
		token.TokenType = constants.TokenType
	}
	return &models.Session{Token: token, Principal: tr.User}
}

func (p *GoTrueProvider) SignUp(ctx context.Context, params SignUpParams) (*models.Principal, *models.Session, error) {
	req := &requester.Request{
		Method: http.MethodPost,
		Path:   authPrefix + "/signup",
		Body: map[string]any{
			"email":    params.Email,
			"password": params.Password,
			"data":     params.Metadata,
		},
	}
	if params.RedirectTo != "" {
		req.Query = url.Values{"redirect_to": {params.RedirectTo}}
	}

	resp, err := p.doer.Do(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if !resp.OK() {
		return nil, nil, requester.ParseAPIError(resp)
	}

	// With email confirmation on, the body is the bare user.
	var tr tokenResponse
	if err := resp.Decode(&tr); err != nil {
		return nil, nil, err
	}
	if tr.AccessToken != "" {
		return tr.User, p.session(&tr), nil
	}
	var principal models.Principal
	if err := json.Unmarshal(resp.Body, &principal); err != nil {
		return nil, nil, fmt.Errorf("failed to decode signup response: %w", err)
	}
	if principal.ID == "" {
		return nil, nil, fmt.Errorf("signup returned no user")
	}
	return &principal, nil, nil
}

func (p *GoTrueProvider) grant(ctx context.Context, grantType string, body any) (*models.Session, error) {
	var tr tokenResponse
	err := requester.DoJSON(ctx, p.doer, &requester.Request{
		Method: http.MethodPost,
		Path:   authPrefix + "/token",
		Query:  url.Values{"grant_type": {grantType}},
		Body:   body,
	}, &tr)
	if err != nil {
		return nil, err
	}
	sess := p.session(&tr)
	if sess == nil {
		return nil, fmt.Errorf("%s grant returned no session", grantType)
	}
	return sess, nil
}

func (p *GoTrueProvider) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	return p.grant(ctx, "password", map[string]string{"email": email, "password": password})
}

func (p *GoTrueProvider) RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	sess, err := p.grant(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, err
	}
	logger.Debug("session refreshed", logger.Token("refresh_token", refreshToken), zap.Time("expiry", sess.Token.Expiry))
	return sess, nil
}

func (p *GoTrueProvider) GetUser(ctx context.Context, accessToken string) (*models.Principal, error) {
	var principal models.Principal
	err := requester.DoJSON(requester.ContextWithToken(ctx, accessToken), p.doer, &requester.Request{
		Method: http.MethodGet,
		Path:   authPrefix + "/user",
	}, &principal)
	if err != nil {
		return nil, err
	}
	return &principal, nil
}

func (p *GoTrueProvider) VerifyOTP(ctx context.Context, tokenHash string, otpType deeplink.OTPType) (*models.Session, error) {
	var tr tokenResponse
	err := requester.DoJSON(ctx, p.doer, &requester.Request{
		Method: http.MethodPost,
		Path:   authPrefix + "/verify",
		Body:   map[string]string{"type": string(otpType), "token_hash": tokenHash},
	}, &tr)
	if err != nil {
		return nil, err
	}
	return p.session(&tr), nil
}

func (p *GoTrueProvider) UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*models.Principal, error) {
	var principal models.Principal
	err := requester.DoJSON(requester.ContextWithToken(ctx, accessToken), p.doer, &requester.Request{
		Method: http.MethodPut,
		Path:   authPrefix + "/user",
		Body:   attrs,
	}, &principal)
	if err != nil {
		return nil, err
	}
	return &principal, nil
}

func (p *GoTrueProvider) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	req := &requester.Request{
		Method: http.MethodPost,
		Path:   authPrefix + "/recover",
		Body:   map[string]string{"email": email},
	}
	if redirectTo != "" {
		req.Query = url.Values{"redirect_to": {redirectTo}}
	}
	return requester.DoJSON(ctx, p.doer, req, nil)
}

func (p *GoTrueProvider) SignOut(ctx context.Context, accessToken string, scope SignOutScope) error {
	if scope == "" {
		scope = ScopeGlobal
	}
	return requester.DoJSON(requester.ContextWithToken(ctx, accessToken), p.doer, &requester.Request{
		Method: http.MethodPost,
		Path:   authPrefix + "/logout",
		Query:  url.Values{"scope": {string(scope)}},
	}, nil)
}
