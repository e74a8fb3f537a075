package oauth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
)

// Result holds the query parameters from the OAuth redirect callback.
// Any of the fields may be empty.
type Result struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

const (
	successHTML = "<html><body><h1>Authentication successful</h1><p>You can close this window and return to the terminal.</p></body></html>"
	failureHTML = "<html><body><h1>Authorization failed</h1><p>You can close this window and return to the terminal.</p></body></html>"
)

// CallbackServer is a one-shot local HTTP server bound to the exact
// host, port, and path of the redirect URI. It serves a single callback
// request and is released with Close regardless of how the flow ends.
type CallbackServer struct {
	addr     string
	path     string
	listener net.Listener
	server   *http.Server
	result   chan Result
	once     sync.Once
}

// NewCallbackServer prepares a callback server for the given redirect URI.
func NewCallbackServer(redirectURI string) (*CallbackServer, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("parse redirect URI: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("redirect URI %q has no host", redirectURI)
	}
	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "80")
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return &CallbackServer{
		addr:   addr,
		path:   path,
		result: make(chan Result, 1),
	}, nil
}

// Start binds the listener and begins serving. Call Close when done.
func (s *CallbackServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return &BindError{Addr: s.addr, Err: err}
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleCallback)
	s.server = &http.Server{Handler: mux}

	go s.server.Serve(ln)
	return nil
}

// Wait blocks until the callback request arrives or ctx is cancelled.
func (s *CallbackServer) Wait(ctx context.Context) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-s.result:
		return r, nil
	}
}

// Close releases the listener. Safe to call more than once.
func (s *CallbackServer) Close() {
	s.once.Do(func() {
		if s.server != nil {
			s.server.Close()
		}
	})
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res := Result{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if res.Code != "" && res.Error == "" {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, successHTML)
	} else {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, failureHTML)
	}

	// Only the first request is ever reported.
	select {
	case s.result <- res:
	default:
	}
}
