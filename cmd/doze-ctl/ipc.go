package main

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Wire types (duplicated from the daemon package for a standalone binary)

type request struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type setSettingData struct {
	Key   string `json:"key"`
	Value bool   `json:"value"`
}

// response is the daemon's reply. Data is only set for get_status.
type response struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

const ipcTimeout = 3 * time.Second

// send writes one line-delimited request and reads one response.
func send(socketPath string, req request) (response, error) {
	conn, err := net.DialTimeout("unix", socketPath, ipcTimeout)
	if err != nil {
		return response{}, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(ipcTimeout))

	data, err := json.Marshal(req)
	if err != nil {
		return response{}, fmt.Errorf("marshal request: %w", err)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return response{}, fmt.Errorf("send request: %w", err)
	}

	var resp response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return response{}, fmt.Errorf("decode response: %w", err)
	}

	if resp.Status == "error" {
		return resp, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return resp, nil
}
