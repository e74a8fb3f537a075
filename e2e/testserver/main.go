// Package main implements a fake OAuth + streaming service for manual
// testing. It approves every authorization request immediately, issues a
// fixed token, and pushes periodic pings on the event stream.
//
// Run it, then in another terminal:
//
//	rpcflow connect --server http://127.0.0.1:9190 \
//	  --auth-url http://127.0.0.1:9190/authorize \
//	  --token-url http://127.0.0.1:9190/token \
//	  --client-id demo --client-secret demo
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"
)

const demoToken = "demo-token"

func main() {
	addr := flag.String("addr", "127.0.0.1:9190", "listen address")
	pingEvery := flag.Duration("ping-every", 5*time.Second, "interval between pings on the stream")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mux := http.NewServeMux()
	mux.HandleFunc("/authorize", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		redirect := fmt.Sprintf("%s?code=demo-code&state=%s", q.Get("redirect_uri"), q.Get("state"))
		logger.Info("authorization request approved", "client_id", q.Get("client_id"))
		http.Redirect(w, r, redirect, http.StatusFound)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("code") != "demo-code" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
			return
		}
		logger.Info("token issued")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":%q,"token_type":"Bearer","expires_in":3600}`, demoToken)
	})
	mux.HandleFunc("/sse", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+demoToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		logger.Info("stream attached", "remote", r.RemoteAddr)

		ticker := time.NewTicker(*pingEvery)
		defer ticker.Stop()
		id := 0
		for {
			id++
			fmt.Fprintf(w, "event: message\ndata: {\"jsonrpc\":\"2.0\",\"id\":%d,\"method\":\"ping\"}\n\n", id)
			flusher.Flush()
			select {
			case <-r.Context().Done():
				logger.Info("stream detached", "remote", r.RemoteAddr)
				return
			case <-ticker.C:
			}
		}
	})
	mux.HandleFunc("/rpc", func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, 4096)
		n, _ := r.Body.Read(body)
		logger.Info("rpc message received", "body", string(body[:n]))
		w.WriteHeader(http.StatusAccepted)
	})

	logger.Info("test server listening", "addr", *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
