// Package catalog implements the plan catalog and the hiring requests on top
// of the backend tables. Every call acts as the signed-in user so that the
// backend's row policies apply.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/brizzai/tigoplanes/internal/auth"
	"github.com/brizzai/tigoplanes/internal/auth/models"
	"github.com/brizzai/tigoplanes/internal/requester"
	"github.com/brizzai/tigoplanes/internal/store"
)

var (
	ErrAdvisorOnly = errors.New("only advisors can do this")
	ErrNotOwner    = errors.New("this request belongs to another user")
	ErrNotPending  = errors.New("the request was already answered")
	ErrNotFound    = store.ErrNotFound
	ErrInvalid     = errors.New("invalid input")
)

// Identity is the part of the session facade the catalog needs.
type Identity interface {
	CurrentUser(ctx context.Context) (*models.User, error)
	AccessToken(ctx context.Context) (string, error)
}

// actor resolves the signed-in user and returns a context carrying their
// access token for backend calls.
func actor(ctx context.Context, id Identity) (context.Context, *models.User, error) {
	user, err := id.CurrentUser(ctx)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, auth.ErrNotAuthenticated
	}
	token, err := id.AccessToken(ctx)
	if err != nil {
		return nil, nil, err
	}
	return requester.ContextWithToken(ctx, token), user, nil
}

// asUser is actor for reads that are also open to guests.
func asUser(ctx context.Context, id Identity) context.Context {
	token, err := id.AccessToken(ctx)
	if err != nil {
		return ctx
	}
	return requester.ContextWithToken(ctx, token)
}

func advisor(ctx context.Context, id Identity) (context.Context, *models.User, error) {
	ctx, user, err := actor(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !user.IsAdvisor() {
		return nil, nil, ErrAdvisorOnly
	}
	return ctx, user, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
