package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"
)

// ============================================================================
// IPC Server - Unix Domain Socket Interface
// ============================================================================
// The IPC server lets screen state reporters, doze-ctl and scripts talk to the
// daemon over a Unix domain socket.
//
// Protocol: Line-delimited JSON
//   - Client sends: {"type": "event_name", "data": {...}}
//   - Server responds: {"status": "ok"} or {"status": "error", "error": "msg"}
//   - get_status responses carry the snapshot in "data".
// ============================================================================

// statusReplyTimeout bounds how long a get_status request waits for the
// daemon loop.
const statusReplyTimeout = 1 * time.Second

// IPCResponse represents the response sent back to IPC clients
type IPCResponse struct {
	Status string          `json:"status"`          // "ok" or "error"
	Error  string          `json:"error,omitempty"` // error message if status == "error"
	Data   *StatusSnapshot `json:"data,omitempty"`
}

// runIPCServer starts the Unix domain socket server.
// It runs until ctx is canceled, at which point it closes the listener and exits.
func runIPCServer(ctx context.Context, socketPath string, events chan<- Event, logger *slog.Logger) error {
	// Remove existing socket file if it exists
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	// Screen state reporters usually run as a different user.
	if err := os.Chmod(socketPath, 0666); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	// Close the listener on shutdown. This unblocks Accept().
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("IPC listener closed (shutdown)")
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				logger.Debug("IPC listener closed")
				return nil
			}

			logger.Error("IPC accept error", "error", err)
			continue
		}

		go handleIPCConnection(ctx, conn, events, logger)
	}
}

// handleIPCConnection handles a single IPC connection
func handleIPCConnection(ctx context.Context, conn net.Conn, events chan<- Event, logger *slog.Logger) {
	defer conn.Close()

	logger.Debug("IPC connection", "remote_addr", conn.RemoteAddr())

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Text()
		logger.Debug("IPC received", "line", line)

		response := handleIPCLine(ctx, []byte(line), events)
		if encErr := encoder.Encode(response); encErr != nil {
			logger.Error("IPC failed to send response", "error", encErr)
			return
		}
	}

	logger.Debug("IPC connection closed")
}

// handleIPCLine parses one request, forwards it to the daemon and builds the
// response.
func handleIPCLine(ctx context.Context, line []byte, events chan<- Event) IPCResponse {
	ev, err := UnmarshalEvent(line)
	if err != nil {
		return ipcError("parse event: %v", err)
	}

	switch e := ev.(type) {
	case SetSetting:
		// Reject unknown keys here; the daemon would only log them.
		if err := ValidateSettingKey(e.Key); err != nil {
			return ipcError("%v", err)
		}

	case RequestStatus:
		return requestStatus(ctx, events)
	}

	select {
	case events <- ev:
		return IPCResponse{Status: "ok"}
	default:
		return ipcError("event queue full")
	}
}

// requestStatus round-trips a RequestStatus through the daemon loop.
func requestStatus(ctx context.Context, events chan<- Event) IPCResponse {
	reply := make(chan StatusSnapshot, 1)

	select {
	case events <- RequestStatus{Reply: reply}:
	default:
		return ipcError("event queue full")
	}

	waitCtx, cancel := context.WithTimeout(ctx, statusReplyTimeout)
	defer cancel()

	select {
	case snap := <-reply:
		return IPCResponse{Status: "ok", Data: &snap}
	case <-waitCtx.Done():
		return ipcError("status request: %v", waitCtx.Err())
	}
}

func ipcError(format string, args ...any) IPCResponse {
	return IPCResponse{Status: "error", Error: fmt.Sprintf(format, args...)}
}

// ============================================================================
// IPC Client Utility Functions
// ============================================================================

// SendIPCEvent sends an event to the daemon via IPC and returns the response
func SendIPCEvent(socketPath string, ev Event) (IPCResponse, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := MarshalEvent(ev)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("marshal event: %w", err)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", strings.TrimSpace(string(data))); err != nil {
		return IPCResponse{}, fmt.Errorf("send event: %w", err)
	}

	decoder := json.NewDecoder(conn)
	var resp IPCResponse
	if err := decoder.Decode(&resp); err != nil {
		return IPCResponse{}, fmt.Errorf("decode response: %w", err)
	}

	if resp.Status != "ok" {
		return resp, fmt.Errorf("ipc error: %s", resp.Error)
	}

	return resp, nil
}
