// Package rpc implements JSON-RPC 2.0 message encoding and decoding.
package rpc

import (
	"encoding/json"
	"fmt"
)

// Version is the only protocol version accepted on the wire.
const Version = "2.0"

// Kind discriminates the JSON-RPC message variants.
type Kind int

const (
	// KindRequest is a call carrying an id and a method.
	KindRequest Kind = iota
	// KindNotification is a call without an id; no reply is expected.
	KindNotification
	// KindResponse is a successful reply correlated by id.
	KindResponse
	// KindError is a failed reply correlated by id.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNotification:
		return "notification"
	case KindResponse:
		return "response"
	case KindError:
		return "error"
	}
	return "unknown"
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Message is a decoded JSON-RPC 2.0 envelope. Exactly one variant applies,
// identified by Kind; fields not belonging to that variant are zero.
type Message struct {
	Kind   Kind
	ID     int64
	Method string
	Params json.RawMessage
	Result json.RawMessage
	Err    *Error
}

// envelope is the wire form shared by all variants.
type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// NewRequest builds a request with the given id.
func NewRequest(id int64, method string, params any) (*Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return &Message{Kind: KindRequest, ID: id, Method: method, Params: raw}, nil
}

// NewNotification builds a call that carries no id.
func NewNotification(method string, params any) (*Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return &Message{Kind: KindNotification, Method: method, Params: raw}, nil
}

// NewResponse builds a successful reply for the given id. A nil result is
// encoded as an empty object.
func NewResponse(id int64, result any) (*Message, error) {
	if result == nil {
		result = struct{}{}
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return &Message{Kind: KindResponse, ID: id, Result: raw}, nil
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return raw, nil
}

// Decode parses a single JSON-RPC 2.0 envelope and classifies it.
func Decode(data []byte) (*Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse json-rpc message: %w", err)
	}
	if env.JSONRPC != Version {
		return nil, fmt.Errorf("unsupported jsonrpc version %q", env.JSONRPC)
	}
	if env.Result != nil && env.Error != nil {
		return nil, fmt.Errorf("message carries both result and error")
	}

	switch {
	case env.Method != "" && env.ID != nil:
		return &Message{Kind: KindRequest, ID: *env.ID, Method: env.Method, Params: env.Params}, nil
	case env.Method != "":
		return &Message{Kind: KindNotification, Method: env.Method, Params: env.Params}, nil
	case env.Error != nil:
		m := &Message{Kind: KindError, Err: env.Error}
		if env.ID != nil {
			m.ID = *env.ID
		}
		return m, nil
	case env.Result != nil && env.ID != nil:
		return &Message{Kind: KindResponse, ID: *env.ID, Result: env.Result}, nil
	}
	return nil, fmt.Errorf("message has no method, result, or error")
}

// Encode serializes the message to its wire form.
func (m *Message) Encode() ([]byte, error) {
	env := envelope{JSONRPC: Version}
	switch m.Kind {
	case KindRequest:
		id := m.ID
		env.ID = &id
		env.Method = m.Method
		env.Params = m.Params
	case KindNotification:
		env.Method = m.Method
		env.Params = m.Params
	case KindResponse:
		id := m.ID
		env.ID = &id
		env.Result = m.Result
	case KindError:
		id := m.ID
		env.ID = &id
		env.Error = m.Err
	default:
		return nil, fmt.Errorf("unknown message kind %d", m.Kind)
	}
	return json.Marshal(env)
}
