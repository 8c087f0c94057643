package inspect

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/grovetools/livesync/errors"
	"github.com/grovetools/livesync/pkg/connection"
	"github.com/grovetools/livesync/pkg/models"
	"github.com/grovetools/livesync/pkg/poller"
)

// baseURL is the dummy host used for Unix socket HTTP requests.
// The actual connection goes through the Unix socket, not this URL.
const baseURL = "http://unix"

// Client calls the inspect API over a Unix socket.
type Client struct {
	httpClient *http.Client
	socketPath string
}

// NewClient creates a Client for the server listening on socketPath.
func NewClient(socketPath string) *Client {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
		MaxIdleConns:    4,
		IdleConnTimeout: 90 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   10 * time.Second,
		},
		socketPath: socketPath,
	}
}

// IsRunning returns true if the server is available and responding.
func (c *Client) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// State returns the full snapshot.
func (c *Client) State(ctx context.Context) (Snapshot, error) {
	var out Snapshot
	err := c.do(ctx, http.MethodGet, "/api/state", &out)
	return out, err
}

// Events returns the feed filtered by the server. Empty arguments match all.
func (c *Client) Events(ctx context.Context, priority models.Priority, storePatterns []string, query string) ([]models.MonitorEvent, error) {
	params := url.Values{}
	if priority != "" {
		params.Set("priority", string(priority))
	}
	for _, p := range storePatterns {
		params.Add("store", p)
	}
	if query != "" {
		params.Set("q", query)
	}
	path := "/api/events"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var out []models.MonitorEvent
	err := c.do(ctx, http.MethodGet, path, &out)
	return out, err
}

// Pollers returns the health of every poller.
func (c *Client) Pollers(ctx context.Context) ([]poller.Health, error) {
	var out []poller.Health
	err := c.do(ctx, http.MethodGet, "/api/pollers", &out)
	return out, err
}

// Connection returns the push channel state.
func (c *Client) Connection(ctx context.Context) (connection.State, error) {
	var out connection.State
	err := c.do(ctx, http.MethodGet, "/api/connection", &out)
	return out, err
}

// Refetch asks the server to refetch one resource.
func (c *Client) Refetch(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/api/pollers/"+url.PathEscape(name)+"/refetch", nil)
}

// Reconnect asks the server to reopen the push channel.
func (c *Client) Reconnect(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/connection/reconnect", nil)
}

// TaskAction starts or stops a task through the running instance.
func (c *Client) TaskAction(ctx context.Context, id, action string) error {
	return c.do(ctx, http.MethodPost, "/api/tasks/"+url.PathEscape(id)+"/"+url.PathEscape(action), nil)
}

func (c *Client) do(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Transport("inspect "+path, err).WithDetail("socket", c.socketPath)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var remote errors.SyncError
		if err := json.NewDecoder(resp.Body).Decode(&remote); err == nil && remote.Code != "" {
			return &remote
		}
		return errors.HTTPStatus(resp.StatusCode, path)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.MalformedPayload("inspect response", err)
	}
	return nil
}

// StreamState subscribes to real-time snapshots via Server-Sent Events (SSE).
// The channel is closed when ctx is cancelled or the connection is lost.
func (c *Client) StreamState(ctx context.Context) (<-chan StreamUpdate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/stream", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}

	// Streaming needs a client without a timeout.
	streamTransport := &http.Transport{
		DialContext: func(dialCtx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(dialCtx, "unix", c.socketPath)
		},
	}
	streamClient := &http.Client{Transport: streamTransport}

	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, errors.Transport("inspect stream", err).WithDetail("socket", c.socketPath)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.HTTPStatus(resp.StatusCode, "/api/stream")
	}

	ch := make(chan StreamUpdate, 10)

	go func() {
		defer resp.Body.Close()
		defer close(ch)
		defer streamTransport.CloseIdleConnections()

		scanner := bufio.NewScanner(resp.Body)
		// A full feed snapshot exceeds the default 64KB line limit.
		scanner.Buffer(make([]byte, 0, 256*1024), 8*1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, ":") || line == "" {
				continue
			}
			if !strings.HasPrefix(line, "data: ") {
				continue
			}

			var update StreamUpdate
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &update); err != nil {
				continue
			}
			select {
			case ch <- update:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

// Close cleans up any resources used by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
