package stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/rpcflow/rpcflow/internal/rpc"
)

// Dispatcher posts JSON-RPC messages to the service's RPC endpoint.
// Sends are fire-and-forget: replies, if any, arrive on the stream, never
// as the POST response body. The POST status and body are captured for
// diagnostics only.
type Dispatcher struct {
	ServerURL  string
	Token      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Send serializes msg and posts it to <ServerURL>/rpc.
func (d *Dispatcher) Send(ctx context.Context, msg *rpc.Message) error {
	body, err := msg.Encode()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.ServerURL+"/rpc", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.Token)

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("post rpc message: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	d.Logger.Debug("rpc message posted",
		"kind", msg.Kind.String(),
		"method", msg.Method,
		"status", resp.StatusCode,
		"response", string(respBody),
	)
	return nil
}
