// Package oauth implements the browser-based OAuth2 authorization-code
// flow: a one-shot local callback server receives the redirect, and the
// returned code is exchanged for a bearer token.
package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// Config holds the endpoints and client credentials for one flow.
// It is supplied once and never mutated.
type Config struct {
	AuthorizationURL string
	TokenURL         string
	ClientID         string
	ClientSecret     string
	RedirectURI      string
	Scope            string
}

// Flow drives a single authorization-code exchange. Zero-value optional
// fields get sensible defaults; State is randomized per flow when empty.
type Flow struct {
	Config     Config
	State      string
	Launcher   Launcher
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Authenticate runs the flow end to end:
//  1. Bind the one-shot callback server to the redirect URI.
//  2. Open the authorization URL in the user's browser (best effort).
//  3. Wait for the single redirect callback.
//  4. Validate error/code/state and exchange the code for a token.
//
// Cancelling ctx while waiting for the callback aborts the flow. No
// timeout is imposed here; callers opt in via context.WithTimeout.
func (f *Flow) Authenticate(ctx context.Context) (*oauth2.Token, error) {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := f.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	launcher := f.Launcher
	if launcher == nil {
		launcher = BrowserLauncher{}
	}
	state := f.State
	if state == "" {
		state = GenerateState()
	}

	srv, err := NewCallbackServer(f.Config.RedirectURI)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(); err != nil {
		return nil, err
	}
	defer srv.Close()

	authURL := buildAuthorizationURL(f.Config, state)
	if err := launcher.Open(authURL); err != nil {
		// Non-fatal: the user can still open the URL manually.
		logger.Warn("could not open browser", "error", err, "url", authURL)
	}

	logger.Info("waiting for authorization callback", "redirect_uri", f.Config.RedirectURI)
	res, err := srv.Wait(ctx)
	if err != nil {
		return nil, err
	}

	if res.Error != "" {
		return nil, &CallbackError{Code: res.Error, Description: res.ErrorDescription}
	}
	if res.Code == "" {
		return nil, ErrMissingCode
	}
	if res.State != state {
		return nil, &StateMismatchError{Expected: state, Got: res.State}
	}

	logger.Info("authorization code received, exchanging for token")
	return ExchangeCode(ctx, httpClient, f.Config, res.Code)
}

// buildAuthorizationURL assembles the authorization request URL. The
// redirect_uri and scope values are query-escaped; client_id and state
// are appended as given.
func buildAuthorizationURL(cfg Config, state string) string {
	return fmt.Sprintf("%s?response_type=code&client_id=%s&redirect_uri=%s&scope=%s&state=%s",
		cfg.AuthorizationURL,
		cfg.ClientID,
		url.QueryEscape(cfg.RedirectURI),
		url.QueryEscape(cfg.Scope),
		state,
	)
}
