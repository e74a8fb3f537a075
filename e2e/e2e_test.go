// Package e2e exercises the full pipeline in-process: OAuth callback,
// token exchange, stream attach, and ping auto-reply, against fake HTTP
// services.
package e2e

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rpcflow/rpcflow/internal/oauth"
	"github.com/rpcflow/rpcflow/internal/stream"
)

// browserDouble stands in for the user's browser: it follows the
// authorization URL by requesting the callback with a fixed code and the
// state taken from the URL.
type browserDouble struct {
	code string
}

func (b browserDouble) Open(rawURL string) error {
	go func() {
		u, err := url.Parse(rawURL)
		if err != nil {
			return
		}
		q := u.Query()
		http.Get(fmt.Sprintf("%s?code=%s&state=%s", q.Get("redirect_uri"), b.code, q.Get("state")))
	}()
	return nil
}

func pickRedirectURI(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return fmt.Sprintf("http://%s/callback", addr)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEndToEnd(t *testing.T) {
	// Fake authorization server: token endpoint only; the authorize step
	// is simulated by browserDouble.
	var tokenCalls atomic.Int32
	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		r.ParseForm()
		if got := r.Form.Get("code"); got != "XYZ" {
			t.Errorf("token endpoint got code %q, want %q", got, "XYZ")
		}
		if got := r.Form.Get("grant_type"); got != "authorization_code" {
			t.Errorf("token endpoint got grant_type %q", got)
		}
		w.Write([]byte(`{"access_token":"tok","token_type":"Bearer"}`))
	}))
	defer authSrv.Close()

	// Fake streaming service: /sse pushes a ping request and a response,
	// /rpc records what the client posts.
	var mu sync.Mutex
	var rpcPosts []string
	mux := http.NewServeMux()
	mux.HandleFunc("/sse", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message\ndata: {\"jsonrpc\":\"2.0\",\"id\":7,\"method\":\"ping\"}\n\n")
		fmt.Fprint(w, "event: message\ndata: {\"jsonrpc\":\"2.0\",\"id\":1,\"result\":{\"ok\":true}}\n\n")
	})
	mux.HandleFunc("/rpc", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		rpcPosts = append(rpcPosts, string(body))
		mu.Unlock()
	})
	svc := httptest.NewServer(mux)
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Step 1: authenticate.
	flow := &oauth.Flow{
		Config: oauth.Config{
			AuthorizationURL: "http://auth.invalid/authorize",
			TokenURL:         authSrv.URL,
			ClientID:         "client-1",
			ClientSecret:     "sec",
			RedirectURI:      pickRedirectURI(t),
			Scope:            "stream",
		},
		State:    "s1",
		Launcher: browserDouble{code: "XYZ"},
		Logger:   discardLogger(),
	}
	token, err := flow.Authenticate(ctx)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if token.AccessToken != "tok" {
		t.Fatalf("got access token %q, want %q", token.AccessToken, "tok")
	}
	if tokenCalls.Load() != 1 {
		t.Errorf("token endpoint called %d times, want 1", tokenCalls.Load())
	}

	// Step 2: send a request, then attach to the stream.
	client := stream.NewClient(stream.ClientConfig{
		ServerURL: svc.URL,
		Token:     token.AccessToken,
		Logger:    discardLogger(),
	})
	if err := client.Call(ctx, "subscribe", map[string]string{"topic": "jobs"}); err != nil {
		t.Fatalf("call: %v", err)
	}
	if err := client.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(rpcPosts) != 2 {
		t.Fatalf("got %d rpc posts, want 2: %v", len(rpcPosts), rpcPosts)
	}
	if rpcPosts[0] != `{"jsonrpc":"2.0","id":1,"method":"subscribe","params":{"topic":"jobs"}}` {
		t.Errorf("unexpected subscribe post: %s", rpcPosts[0])
	}
	if rpcPosts[1] != `{"jsonrpc":"2.0","id":7,"result":{}}` {
		t.Errorf("unexpected ping reply: %s", rpcPosts[1])
	}
}
