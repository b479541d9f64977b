package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// wsMessage is the daemon's websocket envelope.
type wsMessage struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// watch prints one line per websocket message until ctx is canceled, a
// signal arrives, or the daemon closes the connection.
func watch(ctx context.Context, rawURL string, out io.Writer) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid websocket URL: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := d.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", u.String(), err)
	}
	defer conn.Close()

	done := make(chan error, 1)
	go func() {
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					done <- nil
				} else {
					done <- err
				}
				return
			}
			fmt.Fprintln(out, formatMessage(message))
		}
	}()

	select {
	case <-ctx.Done():
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		return nil
	case err := <-done:
		return err
	}
}

// formatMessage renders a message as "[type] data".
func formatMessage(message []byte) string {
	var m wsMessage
	if err := json.Unmarshal(message, &m); err != nil || m.Type == "" {
		return "[TEXT] " + string(message)
	}

	ts := ""
	if m.Ts != nil {
		ts = m.Ts.Local().Format("15:04:05.000") + " "
	}
	if len(m.Data) == 0 {
		return fmt.Sprintf("%s[%s]", ts, m.Type)
	}
	return fmt.Sprintf("%s[%s] %s", ts, m.Type, string(m.Data))
}
