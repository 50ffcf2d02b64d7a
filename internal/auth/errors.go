package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/brizzai/tigoplanes/internal/requester"
)

var (
	ErrNotAuthenticated         = errors.New("no authenticated user")
	ErrInvalidCredentials       = errors.New("invalid login credentials")
	ErrEmailRegistered          = errors.New("email already registered")
	ErrWeakPassword             = errors.New("password too short")
	ErrIncorrectCurrentPassword = errors.New("current password is incorrect")
	ErrSamePassword             = errors.New("new password equals the current one")
	ErrClosed                   = errors.New("auth service closed")
)

var userMessages = []struct {
	err error
	msg string
}{
	{ErrNotAuthenticated, "You need to sign in first."},
	{ErrInvalidCredentials, "Incorrect email or password."},
	{ErrEmailRegistered, "This email is already registered. Please sign in."},
	{ErrWeakPassword, "The password must be at least 6 characters long."},
	{ErrIncorrectCurrentPassword, "The current password is incorrect."},
	{ErrSamePassword, "The new password must be different from the current one."},
	{ErrClosed, "The session is no longer available."},
}

// UserMessage is the text shown to the user for err. Known failures get a
// fixed message; backend rejections show the backend's own message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	var apiErr *requester.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

func apiError(err error) *requester.APIError {
	var apiErr *requester.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

func isInvalidCredentials(err error) bool {
	apiErr := apiError(err)
	if apiErr == nil {
		return false
	}
	return apiErr.Code == "invalid_credentials" ||
		strings.Contains(strings.ToLower(apiErr.Message), "invalid login credentials")
}

func isAlreadyRegistered(err error) bool {
	apiErr := apiError(err)
	if apiErr == nil {
		return false
	}
	return apiErr.Code == "user_already_exists" || apiErr.Code == "email_exists" ||
		strings.Contains(strings.ToLower(apiErr.Message), "already registered")
}

func isWeakPassword(err error) bool {
	apiErr := apiError(err)
	if apiErr == nil {
		return false
	}
	return apiErr.Code == "weak_password" ||
		strings.Contains(strings.ToLower(apiErr.Message), "password should be at least")
}

// isSessionGone reports a rejection meaning the server no longer knows the
// session, so there is nothing left to revoke.
func isSessionGone(err error) bool {
	apiErr := apiError(err)
	if apiErr == nil {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// isRefreshRejected reports that the refresh token itself was refused.
func isRefreshRejected(err error) bool {
	apiErr := apiError(err)
	if apiErr == nil {
		return false
	}
	return apiErr.StatusCode == http.StatusBadRequest || isSessionGone(err)
}

// isLinkRejected reports that the backend answered and refused the link.
func isLinkRejected(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	apiErr := apiError(err)
	if apiErr == nil {
		return false
	}
	return apiErr.StatusCode >= http.StatusBadRequest && apiErr.StatusCode < http.StatusInternalServerError
}
