package stream

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rpcflow/rpcflow/internal/rpc"
)

// ClientConfig configures a stream client.
type ClientConfig struct {
	// ServerURL is the service base URL; /sse and /rpc are appended.
	ServerURL string

	// Token is the bearer token presented on both channels.
	Token string

	// HTTPClient is used for the RPC channel. The stream connection uses
	// its transport but no timeout, since the stream is long-lived.
	HTTPClient *http.Client

	// Logger receives diagnostics. Defaults to slog.Default.
	Logger *slog.Logger
}

// Client holds one stream session: a single SSE connection for inbound
// messages and a dispatcher for outbound ones. A client is not
// restartable; connect again with a fresh client.
type Client struct {
	serverURL  string
	httpClient *http.Client
	logger     *slog.Logger
	dispatcher *Dispatcher
	router     *Router
	nextID     int64
}

// NewClient creates a client for an authenticated session.
func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	dispatcher := &Dispatcher{
		ServerURL:  cfg.ServerURL,
		Token:      cfg.Token,
		HTTPClient: httpClient,
		Logger:     logger,
	}
	return &Client{
		serverURL:  cfg.ServerURL,
		httpClient: httpClient,
		logger:     logger,
		dispatcher: dispatcher,
		router:     NewRouter(dispatcher, logger),
		nextID:     1,
	}
}

// Call sends a request with the next outbound id. No reply correlation is
// kept; responses arrive on the stream and are routed like any other
// inbound message.
func (c *Client) Call(ctx context.Context, method string, params any) error {
	msg, err := rpc.NewRequest(c.nextID, method, params)
	if err != nil {
		return err
	}
	c.nextID++
	return c.dispatcher.Send(ctx, msg)
}

// Notify sends a notification (no id, no reply expected).
func (c *Client) Notify(ctx context.Context, method string, params any) error {
	msg, err := rpc.NewNotification(method, params)
	if err != nil {
		return err
	}
	return c.dispatcher.Send(ctx, msg)
}

// Run opens the SSE connection and processes inbound events until the
// server closes the stream (normal termination, returns nil), a read
// error occurs, or ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/sse", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.dispatcher.Token)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// The stream stays open indefinitely, so bypass the client timeout.
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &ConnectError{Status: resp.StatusCode, Body: string(body)}
	}

	c.logger.Info("event stream connected", "url", c.serverURL+"/sse")

	err = scanEvents(resp.Body, func(ev Event) {
		c.handleEvent(ctx, ev)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	c.logger.Info("event stream closed by server")
	return nil
}

// handleEvent parses one event's data as JSON-RPC and routes it.
// Malformed payloads are dropped, never fatal.
func (c *Client) handleEvent(ctx context.Context, ev Event) {
	msg, err := rpc.Decode([]byte(ev.Data))
	if err != nil {
		c.logger.Warn("dropping malformed event", "type", ev.Type, "error", err, "data", ev.Data)
		return
	}
	if err := c.router.Route(ctx, msg); err != nil {
		c.logger.Warn("routing failed", "method", msg.Method, "id", msg.ID, "error", err)
	}
}
