package stream

import (
	"context"
	"log/slog"

	"github.com/rpcflow/rpcflow/internal/rpc"
)

// Sender delivers outbound JSON-RPC messages.
type Sender interface {
	Send(ctx context.Context, msg *rpc.Message) error
}

// Router classifies inbound JSON-RPC messages. Inbound ping requests are
// answered with an empty-result response carrying the same id; everything
// else is surfaced via the logger.
type Router struct {
	sender Sender
	logger *slog.Logger
}

// NewRouter creates a router that replies through sender.
func NewRouter(sender Sender, logger *slog.Logger) *Router {
	return &Router{sender: sender, logger: logger}
}

// Route handles one inbound message.
func (r *Router) Route(ctx context.Context, msg *rpc.Message) error {
	switch msg.Kind {
	case rpc.KindRequest:
		if msg.Method == "ping" {
			reply, err := rpc.NewResponse(msg.ID, nil)
			if err != nil {
				return err
			}
			r.logger.Debug("answering ping", "id", msg.ID)
			return r.sender.Send(ctx, reply)
		}
		// No handler registry exists; unknown methods get no reply.
		r.logger.Info("unhandled request", "method", msg.Method, "id", msg.ID)
	case rpc.KindNotification:
		r.logger.Info("notification received", "method", msg.Method, "params", string(msg.Params))
	case rpc.KindResponse:
		r.logger.Info("response received", "id", msg.ID, "result", string(msg.Result))
	case rpc.KindError:
		r.logger.Warn("error response received", "id", msg.ID, "code", msg.Err.Code, "message", msg.Err.Message)
	}
	return nil
}
