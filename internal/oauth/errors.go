package oauth

import (
	"errors"
	"fmt"
)

// ErrMissingCode indicates a callback that carried neither a code nor an
// error parameter.
var ErrMissingCode = errors.New("authorization callback missing code")

// BindError indicates the local callback listener could not be bound.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind callback listener on %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// CallbackError is an explicit error returned by the authorization server
// via the redirect, e.g. access_denied.
type CallbackError struct {
	Code        string
	Description string
}

func (e *CallbackError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization failed: %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("authorization failed: %s", e.Code)
}

// StateMismatchError indicates the state echoed by the authorization server
// does not match the one sent, a possible CSRF attempt. Token exchange is
// never attempted after a mismatch.
type StateMismatchError struct {
	Expected string
	Got      string
}

func (e *StateMismatchError) Error() string {
	return fmt.Sprintf("state mismatch (possible CSRF): expected %q, got %q", e.Expected, e.Got)
}

// TokenExchangeError indicates the token endpoint answered with a non-2xx
// status.
type TokenExchangeError struct {
	Status int
	Body   string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token endpoint returned %d: %s", e.Status, e.Body)
}

// TokenParseError indicates a 2xx token response whose body did not contain
// a string access_token field.
type TokenParseError struct {
	Body string
}

func (e *TokenParseError) Error() string {
	return fmt.Sprintf("token response missing access_token: %s", e.Body)
}
