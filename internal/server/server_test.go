package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/grovetools/livesync/errors"
	"github.com/grovetools/livesync/pkg/connection"
	"github.com/grovetools/livesync/pkg/inspect"
	"github.com/grovetools/livesync/pkg/models"
	"github.com/grovetools/livesync/pkg/poller"
	"github.com/grovetools/livesync/pkg/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	st      *store.Store
	started time.Time

	mu          sync.Mutex
	refetched   []string
	reconnects  int
	taskCalls   []string
	taskFailure error
}

func (b *fakeBackend) Store() *store.Store { return b.st }

func (b *fakeBackend) ConnectionState() connection.State {
	return connection.State{Status: connection.StatusOpen, URL: "wss://example.test/ws"}
}

func (b *fakeBackend) Pollers() []poller.Health {
	return []poller.Health{{Name: "engine", Enabled: true, HasData: true}}
}

func (b *fakeBackend) StartedAt() time.Time { return b.started }

func (b *fakeBackend) Refetch(name string) error {
	if name != "engine" {
		return errors.New(errors.ErrCodeInvalidInput, "unknown resource")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refetched = append(b.refetched, name)
	return nil
}

func (b *fakeBackend) Reconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reconnects++
}

func (b *fakeBackend) StartTask(ctx context.Context, id string) error {
	return b.task("start " + id)
}

func (b *fakeBackend) StopTask(ctx context.Context, id string) error {
	return b.task("stop " + id)
}

func (b *fakeBackend) task(call string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.taskCalls = append(b.taskCalls, call)
	return b.taskFailure
}

func newFixture(t *testing.T) (*fakeBackend, *inspect.Client) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	backend := &fakeBackend{st: store.New(), started: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	srv := New(backend, logrus.NewEntry(logger))

	// Keep the socket path short; unix socket paths are length limited.
	dir, err := os.MkdirTemp("", "ls")
	require.NoError(t, err)
	socket := filepath.Join(dir, "s.sock")

	l, err := Listen(socket)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(l) }()

	client := inspect.NewClient(socket)
	t.Cleanup(func() {
		client.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		<-done
		os.RemoveAll(dir)
	})
	return backend, client
}

func event(id, storeID string, p models.Priority) models.MonitorEvent {
	return models.MonitorEvent{
		ID:           id,
		Store:        storeID,
		ProductTitle: "Product " + id,
		Priority:     p,
		DetectedAt:   time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestHealthAndState(t *testing.T) {
	backend, client := newFixture(t)
	ctx := context.Background()

	assert.True(t, client.IsRunning(ctx))

	backend.st.ApplyMonitorEvent(event("e1", "alpha", models.PriorityHigh))
	backend.st.ApplyMonitorEvent(event("e2", "beta", models.PriorityLow))
	backend.st.ApplyBulkReplace(store.TaskList{{ID: "t1", Status: models.TaskRunning}})

	snap, err := client.State(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.State.Events, 2)
	assert.Equal(t, "e2", snap.State.Events[0].ID, "newest first")
	assert.Equal(t, 1, snap.Derived.HighPriorityCount)
	assert.Equal(t, 2, snap.Derived.DistinctStoreCount)
	assert.Equal(t, 1, snap.Derived.RunningTaskCount)
	assert.Equal(t, connection.StatusOpen, snap.Connection.Status)
	assert.True(t, snap.StartedAt.Equal(backend.started))
	require.Len(t, snap.Pollers, 1)
	assert.Equal(t, "engine", snap.Pollers[0].Name)

	state, err := client.Connection(ctx)
	require.NoError(t, err)
	assert.Equal(t, "wss://example.test/ws", state.URL)

	pollers, err := client.Pollers(ctx)
	require.NoError(t, err)
	assert.Len(t, pollers, 1)
}

func TestEventsFilter(t *testing.T) {
	backend, client := newFixture(t)
	ctx := context.Background()

	backend.st.ApplyMonitorEvent(event("e1", "alpha", models.PriorityHigh))
	backend.st.ApplyMonitorEvent(event("e2", "beta", models.PriorityHigh))
	backend.st.ApplyMonitorEvent(event("e3", "alpha", models.PriorityLow))

	high, err := client.Events(ctx, models.PriorityHigh, nil, "")
	require.NoError(t, err)
	assert.Len(t, high, 2)

	alphaHigh, err := client.Events(ctx, models.PriorityHigh, []string{"alpha"}, "")
	require.NoError(t, err)
	require.Len(t, alphaHigh, 1)
	assert.Equal(t, "e1", alphaHigh[0].ID)

	byTitle, err := client.Events(ctx, "", nil, "product e3")
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "e3", byTitle[0].ID)
}

func TestEventsBadSince(t *testing.T) {
	backend, _ := newFixture(t)
	srv := New(backend, logrus.NewEntry(logrus.New()))

	req, err := http.NewRequest(http.MethodGet, "/api/events?since=yesterday", nil)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), string(errors.ErrCodeInvalidInput))
}

func TestActions(t *testing.T) {
	backend, client := newFixture(t)
	ctx := context.Background()

	require.NoError(t, client.Refetch(ctx, "engine"))
	err := client.Refetch(ctx, "orders")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))

	require.NoError(t, client.Reconnect(ctx))
	require.NoError(t, client.TaskAction(ctx, "t1", "start"))

	backend.mu.Lock()
	backend.taskFailure = errors.New("REMOTE_TASK_BUSY", "task busy")
	backend.mu.Unlock()
	err = client.TaskAction(ctx, "t1", "stop")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorCode("REMOTE_TASK_BUSY"), errors.GetCode(err))

	err = client.TaskAction(ctx, "t1", "pause")
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, []string{"engine"}, backend.refetched)
	assert.Equal(t, 1, backend.reconnects)
	assert.Equal(t, []string{"start t1", "stop t1"}, backend.taskCalls)
}

func TestStream(t *testing.T) {
	backend, client := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := client.StreamState(ctx)
	require.NoError(t, err)

	first := next(t, updates)
	assert.Equal(t, "initial", first.UpdateType)
	assert.Empty(t, first.Snapshot.State.Events)

	backend.st.ApplyMonitorEvent(event("e1", "alpha", models.PriorityHigh))

	update := next(t, updates)
	assert.Equal(t, string(store.UpdateEvents), update.UpdateType)
	assert.Equal(t, "monitor_event", update.Op)
	require.Len(t, update.Snapshot.State.Events, 1)
	assert.Equal(t, 1, update.Snapshot.Derived.HighPriorityCount)

	cancel()
	for range updates {
	}
}

func next(t *testing.T, ch <-chan inspect.StreamUpdate) inspect.StreamUpdate {
	t.Helper()
	select {
	case u, ok := <-ch:
		require.True(t, ok, "stream closed")
		return u
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for stream update")
		return inspect.StreamUpdate{}
	}
}
