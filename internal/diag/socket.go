package diag

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/nodegraph/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultSocketEvent is the event diagnostics are emitted under.
const DefaultSocketEvent = "diagnostics"

// SocketSink publishes diagnostics to a socket.io server, typically the
// editor that displays them next to the offending node.
type SocketSink struct {
	io    *socket.Socket
	event string
}

// DialSocket connects to rawURL and waits for the connection to be
// established or to fail.
func DialSocket(ctx context.Context, rawURL, namespace, event string, timeout time.Duration) (*SocketSink, error) {
	logger := ctxlog.FromContext(ctx).With("sink", "socketio", "url", rawURL)
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if event == "" {
		event = DefaultSocketEvent
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	connected := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Diagnostics channel connected.", "sid", io.Id())
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err, _ := errs[0].(error)
		if err == nil {
			err = fmt.Errorf("%v", errs[0])
		}
		connected <- err
	})
	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &SocketSink{io: io, event: event}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}

// Publish implements Sink. Diagnostics are dropped while disconnected.
func (s *SocketSink) Publish(ctx context.Context, ds ...Diagnostic) {
	if !s.io.Connected() {
		ctxlog.FromContext(ctx).Debug("Dropping diagnostics, channel is not connected.", "count", len(ds))
		return
	}
	for _, d := range ds {
		s.io.Emit(s.event, payload(d))
	}
}

// Close disconnects from the server.
func (s *SocketSink) Close() error {
	s.io.Disconnect()
	return nil
}

func payload(d Diagnostic) map[string]any {
	m := map[string]any{
		"severity": d.Severity.String(),
		"source":   d.Source,
		"message":  d.Message,
	}
	if d.Code != "" {
		m["code"] = d.Code
	}
	if d.GraphID != "" {
		m["graph_id"] = d.GraphID
	}
	if d.NodeID.IsValid() {
		m["node_id"] = int(d.NodeID)
	}
	if d.File != "" {
		m["file"] = d.File
		m["line"] = d.Line
	}
	return m
}
