package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/livesync/errors"
	"github.com/grovetools/livesync/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{BaseURL: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClient_Validation(t *testing.T) {
	for _, base := range []string{"", "   ", "ftp://host", "://bad"} {
		_, err := NewClient(Options{BaseURL: base})
		assert.Error(t, err, "base %q", base)
	}

	c, err := NewClient(Options{BaseURL: "https://monitor.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "https://monitor.example.com", c.BaseURL())
}

func TestGetters(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(PathEngineStatus, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, models.EngineStatus{Running: true, ActiveTasks: 2})
	})
	mux.HandleFunc(PathMonitorStatus, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, models.MonitorStatus{
			Running:            true,
			TotalProductsFound: 40,
			Stores:             []models.StoreHealth{{StoreID: "kith", Shopify: true}},
		})
	})
	mux.HandleFunc(PathAnalytics, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, models.CheckoutAnalytics{Checkouts: 7, Declines: 3})
	})
	mux.HandleFunc(PathTasks, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, []models.Task{{ID: "a", Status: models.TaskIdle}, {ID: "b", Status: models.TaskRunning}})
	})
	mux.HandleFunc(PathMonitorEvents, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		writeJSON(w, 200, []models.MonitorEvent{{ID: "e1", Store: "kith"}})
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	engine, err := c.EngineStatus(ctx)
	require.NoError(t, err)
	assert.True(t, engine.Running)
	assert.Equal(t, 2, engine.ActiveTasks)

	monitor, err := c.MonitorStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, monitor.TotalProductsFound)
	assert.Contains(t, monitor.StoreHealthMap(), "kith")

	analytics, err := c.CheckoutAnalytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, analytics.Checkouts)

	tasks, err := c.Tasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	events, err := c.MonitorEvents(ctx, 25)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e1", events[0].ID)
}

func TestRequestHeaders(t *testing.T) {
	var mu sync.Mutex
	var ids []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ids = append(ids, r.Header.Get("X-Request-ID"))
		mu.Unlock()
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.True(t, strings.HasPrefix(r.Header.Get("User-Agent"), "livesync/"))
		writeJSON(w, 200, models.EngineStatus{})
	}))

	for i := 0; i < 2; i++ {
		_, err := c.EngineStatus(context.Background())
		require.NoError(t, err)
	}

	require.Len(t, ids, 2)
	for _, id := range ids {
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	}
	assert.NotEqual(t, ids[0], ids[1])
}

func TestTaskActions(t *testing.T) {
	var got []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	ctx := context.Background()

	require.NoError(t, c.StartTask(ctx, "t-1"))
	require.NoError(t, c.StopTask(ctx, "t-1"))
	assert.Equal(t, []string{"POST /api/tasks/t-1/start", "POST /api/tasks/t-1/stop"}, got)

	err := c.StartTask(ctx, "")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantCode      errors.ErrorCode
		wantRetryable bool
	}{
		{"structured body", 409, `{"code":"TASK_RUNNING","message":"task already running","retryable":false}`, "TASK_RUNNING", false},
		{"structured retryable", 503, `{"code":"ENGINE_BUSY","message":"try later","retryable":true}`, "ENGINE_BUSY", true},
		{"plain 500", 500, `internal`, errors.ErrCodeHTTPStatus, true},
		{"plain 404", 404, ``, errors.ErrCodeHTTPStatus, false},
		{"throttled", 429, `{}`, errors.ErrCodeHTTPStatus, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			_, err := c.Tasks(context.Background())
			require.Error(t, err)
			syncErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, syncErr.Code)
			assert.Equal(t, tt.wantRetryable, syncErr.Retryable)
			assert.Equal(t, tt.status, syncErr.Details["status"])
		})
	}
}

func TestMalformedBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"running": tru`))
	}))

	_, err := c.EngineStatus(context.Background())
	assert.True(t, errors.Is(err, errors.ErrCodeMalformedPayload))
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := NewClient(Options{BaseURL: base})
	require.NoError(t, err)

	_, err = c.EngineStatus(context.Background())
	assert.True(t, errors.Is(err, errors.ErrCodeTransport))
	assert.True(t, errors.IsRetryable(err))
}

func TestCancelledRequest(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.EngineStatus(ctx)
	assert.True(t, errors.IsCancelled(err))
}

func TestRateLimiter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, models.EngineStatus{})
	}))
	defer srv.Close()

	c, err := NewClient(Options{BaseURL: srv.URL, HTTPClient: srv.Client(), RequestsPerSecond: 0.001, Burst: 1})
	require.NoError(t, err)

	_, err = c.EngineStatus(context.Background())
	require.NoError(t, err)

	// The bucket is empty; a bounded context cannot wait for the next token.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.EngineStatus(ctx)
	require.Error(t, err)
	assert.False(t, errors.IsCancelled(err))
}
