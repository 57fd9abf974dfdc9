package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"cliente_backend/internal/api"
	"cliente_backend/internal/feature/cliente/domain/entity"
)

// maxEventSize bounds one SSE event; a full list of clientes fits comfortably.
const maxEventSize = 4 << 20

type sseEvent struct {
	name string
	data string
}

// readEvents parses a text/event-stream body and calls emit for every complete event.
// It stops when emit returns false, at EOF, or on a read error.
func readEvents(r io.Reader, emit func(sseEvent) bool) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var name string
	var data []string
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if len(data) > 0 {
				if name == "" {
					name = "message"
				}
				if !emit(sseEvent{name: name, data: strings.Join(data, "\n")}) {
					return nil
				}
			}
			name, data = "", nil
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
		}
	}
	return sc.Err()
}

// Feed is an open change-feed stream.
type Feed struct {
	// Lists receives the full list on connect and after every change.
	// It is closed when the stream ends.
	Lists <-chan []entity.Cliente

	done chan struct{}
	err  error
}

// Err waits for the stream to end and returns why it ended.
// A stream ended by ctx cancellation returns nil.
func (f *Feed) Err() error {
	<-f.done
	return f.err
}

// Watch opens GET /clientes/events. Connection and authentication errors are returned
// directly; later errors end the feed and are reported by Feed.Err.
func (c *Client) Watch(ctx context.Context) (*Feed, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/clientes/events", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open change feed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}

	lists := make(chan []entity.Cliente)
	feed := &Feed{Lists: lists, done: make(chan struct{})}

	go func() {
		defer close(feed.done)
		defer close(lists)
		defer resp.Body.Close()

		err := readEvents(resp.Body, func(ev sseEvent) bool {
			if ev.name != "clientes" {
				return true
			}
			var payload []api.ClienteResponse
			if err := json.Unmarshal([]byte(ev.data), &payload); err != nil {
				slog.Warn("malformed change feed event skipped", "error", err)
				return true
			}
			select {
			case lists <- toEntities(payload):
				return true
			case <-ctx.Done():
				return false
			}
		})
		if ctx.Err() != nil {
			return
		}
		if err == nil || errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		feed.err = fmt.Errorf("change feed closed: %w", err)
	}()

	return feed, nil
}
