// Package stream implements the split-channel JSON-RPC transport: inbound
// messages arrive over a persistent SSE connection, outbound messages are
// posted to a separate RPC endpoint.
package stream

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Event is one server-sent event block. Consecutive data lines are joined
// with newlines.
type Event struct {
	Type string
	Data string
}

// ConnectError indicates the stream endpoint rejected the connection.
type ConnectError struct {
	Status int
	Body   string
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("stream endpoint returned %d: %s", e.Status, e.Body)
}

// scanEvents reads SSE framing line by line and invokes fn for each
// complete event. A block is flushed on a blank line; an unterminated
// block at end of stream is discarded. End of stream returns nil.
func scanEvents(r io.Reader, fn func(Event)) error {
	scanner := bufio.NewScanner(r)
	var event Event
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(dataLines) > 0 || event.Type != "" {
				event.Data = strings.Join(dataLines, "\n")
				fn(event)
			}
			event = Event{}
			dataLines = nil
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case strings.HasPrefix(line, "event: "):
			event.Type = strings.TrimPrefix(line, "event: ")
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return nil
}
