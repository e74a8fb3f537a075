package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

// pickAddr reserves a free localhost port and returns host:port.
func pickAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func startCallbackServer(t *testing.T) (*CallbackServer, string) {
	t.Helper()
	addr := pickAddr(t)
	uri := fmt.Sprintf("http://%s/callback", addr)
	s, err := NewCallbackServer(uri)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(s.Close)
	return s, uri
}

func TestCallbackServer_SuccessfulCallback(t *testing.T) {
	s, uri := startCallbackServer(t)

	go func() {
		time.Sleep(50 * time.Millisecond)
		http.Get(uri + "?code=test-code&state=test-state")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := s.Wait(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Code != "test-code" {
		t.Errorf("got code %q, want %q", res.Code, "test-code")
	}
	if res.State != "test-state" {
		t.Errorf("got state %q, want %q", res.State, "test-state")
	}
}

func TestCallbackServer_ResponseStatus(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"code present", "?code=abc&state=s", http.StatusOK},
		{"error present", "?error=access_denied", http.StatusBadRequest},
		{"code and error", "?code=abc&error=access_denied", http.StatusBadRequest},
		{"nothing", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, uri := startCallbackServer(t)

			resp, err := http.Get(uri + tt.query)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("got status %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), "<html>") {
				t.Errorf("expected HTML body, got: %s", body)
			}
		})
	}
}

func TestCallbackServer_OnlyFirstRequestReported(t *testing.T) {
	s, uri := startCallbackServer(t)

	http.Get(uri + "?code=first&state=s1")
	http.Get(uri + "?code=second&state=s2")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := s.Wait(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Code != "first" {
		t.Errorf("got code %q, want %q", res.Code, "first")
	}
}

func TestCallbackServer_ErrorParams(t *testing.T) {
	s, uri := startCallbackServer(t)

	go http.Get(uri + "?error=access_denied&error_description=user+denied")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := s.Wait(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Error != "access_denied" {
		t.Errorf("got error %q, want %q", res.Error, "access_denied")
	}
	if res.ErrorDescription != "user denied" {
		t.Errorf("got description %q, want %q", res.ErrorDescription, "user denied")
	}
}

func TestCallbackServer_ContextCancellation(t *testing.T) {
	s, _ := startCallbackServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := s.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got: %v", err)
	}
}

func TestCallbackServer_BindError(t *testing.T) {
	addr := pickAddr(t)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		t.Fatalf("occupy port: %v", err)
	}
	defer ln.Close()

	s, err := NewCallbackServer(fmt.Sprintf("http://%s/callback", addr))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = s.Start()
	if err == nil {
		s.Close()
		t.Fatal("expected bind error, got nil")
	}
	var bindErr *BindError
	if !errors.As(err, &bindErr) {
		t.Errorf("expected *BindError, got %T: %v", err, err)
	}
}

func TestNewCallbackServer_InvalidURI(t *testing.T) {
	if _, err := NewCallbackServer("not-a-uri"); err == nil {
		t.Error("expected error for URI without host, got nil")
	}
}
