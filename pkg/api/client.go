// Package api is the HTTP client for the pull endpoints and task actions of
// the remote monitor service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/livesync/errors"
	"github.com/grovetools/livesync/pkg/models"
	"github.com/grovetools/livesync/version"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/time/rate"
)

// Endpoint paths of the remote service.
const (
	PathEngineStatus  = "/api/engine/status"
	PathMonitorStatus = "/api/monitor/status"
	PathAnalytics     = "/api/analytics/checkouts"
	PathTasks         = "/api/tasks"
	PathMonitorEvents = "/api/monitor/events"
)

// DefaultEventHistoryLimit is the page size of the event history fallback.
const DefaultEventHistoryLimit = 50

// maxErrorBody bounds how much of a failed response is read.
const maxErrorBody = 64 << 10

// Options configure a Client.
type Options struct {
	// BaseURL is the service origin, e.g. https://monitor.example.com.
	BaseURL string
	// RequestsPerSecond caps outgoing requests across all pollers. Zero disables the cap.
	RequestsPerSecond float64
	Burst             int
	// HTTPClient overrides the default transport, mainly for tests.
	HTTPClient *http.Client
	Logger     *logrus.Entry
}

// Client calls the remote service. Requests carry no timeout of their own;
// callers bound them with the context.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Entry
}

// NewClient creates a Client for opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.ConfigInvalid("service URL is empty")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, fmt.Sprintf("invalid service URL %q", opts.BaseURL))
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.ConfigInvalid(fmt.Sprintf("service URL %q must be http or https", opts.BaseURL))
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient, err = newHTTPClient()
		if err != nil {
			return nil, err
		}
	}

	limit := rate.Inf
	burst := opts.Burst
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		if burst <= 0 {
			burst = 1
		}
	}

	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		logger = logrus.NewEntry(l)
	}

	return &Client{
		base:       base,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
	}, nil
}

// newHTTPClient builds a keep-alive transport that negotiates HTTP/2 over TLS.
func newHTTPClient() (*http.Client, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to configure HTTP/2 transport")
	}
	return &http.Client{Transport: transport}, nil
}

// BaseURL returns the service origin.
func (c *Client) BaseURL() string { return c.base.String() }

// EngineStatus fetches the engine snapshot.
func (c *Client) EngineStatus(ctx context.Context) (models.EngineStatus, error) {
	var out models.EngineStatus
	err := c.do(ctx, http.MethodGet, PathEngineStatus, nil, &out)
	return out, err
}

// MonitorStatus fetches the monitor snapshot with per-store health.
func (c *Client) MonitorStatus(ctx context.Context) (models.MonitorStatus, error) {
	var out models.MonitorStatus
	err := c.do(ctx, http.MethodGet, PathMonitorStatus, nil, &out)
	return out, err
}

// CheckoutAnalytics fetches checkout counters.
func (c *Client) CheckoutAnalytics(ctx context.Context) (models.CheckoutAnalytics, error) {
	var out models.CheckoutAnalytics
	err := c.do(ctx, http.MethodGet, PathAnalytics, nil, &out)
	return out, err
}

// Tasks fetches the full task list.
func (c *Client) Tasks(ctx context.Context) ([]models.Task, error) {
	var out []models.Task
	err := c.do(ctx, http.MethodGet, PathTasks, nil, &out)
	return out, err
}

// MonitorEvents fetches the most recent events, newest first.
func (c *Client) MonitorEvents(ctx context.Context, limit int) ([]models.MonitorEvent, error) {
	if limit <= 0 {
		limit = DefaultEventHistoryLimit
	}
	q := url.Values{"limit": []string{strconv.Itoa(limit)}}
	var out []models.MonitorEvent
	err := c.do(ctx, http.MethodGet, PathMonitorEvents, q, &out)
	return out, err
}

// StartTask asks the service to start a task.
func (c *Client) StartTask(ctx context.Context, id string) error {
	return c.taskAction(ctx, id, "start")
}

// StopTask asks the service to stop a task.
func (c *Client) StopTask(ctx context.Context, id string) error {
	return c.taskAction(ctx, id, "stop")
}

func (c *Client) taskAction(ctx context.Context, id, action string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New(errors.ErrCodeInvalidInput, "task id is required")
	}
	path := PathTasks + "/" + url.PathEscape(id) + "/" + action
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return errors.Cancelled(ctx.Err())
		}
		return errors.Transport("rate limit", err)
	}

	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create request")
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("User-Agent", version.UserAgent())

	log := c.logger.WithFields(logrus.Fields{
		"method":     method,
		"path":       path,
		"request_id": requestID,
	})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.Cancelled(ctx.Err())
		}
		return errors.Transport(method+" "+path, err)
	}
	defer resp.Body.Close()
	log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Trace("Request complete")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp, path)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return errors.Cancelled(ctx.Err())
		}
		return errors.MalformedPayload(path+" response", err)
	}
	return nil
}

// decodeError turns a non-2xx response into a SyncError, keeping the
// server's code when the body is structured.
func decodeError(resp *http.Response, path string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var apiErr models.APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		e := errors.New(errors.ErrorCode(apiErr.Code), apiErr.Message).
			WithDetail("status", resp.StatusCode).
			WithDetail("path", path)
		e.Retryable = apiErr.Retryable
		return e
	}
	return errors.HTTPStatus(resp.StatusCode, path)
}
