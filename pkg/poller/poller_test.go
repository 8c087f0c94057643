package poller

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/grovetools/livesync/errors"
	"github.com/grovetools/livesync/pkg/visibility"
	"github.com/grovetools/livesync/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	active = 3 * time.Second
	hidden = 10 * time.Second
)

type result struct {
	data string
	err  error
}

type call struct {
	ctx  context.Context
	resp chan result
}

// fakeFetcher blocks every fetch until the test responds to it, even after
// cancellation, so stale settlements can be provoked on purpose.
type fakeFetcher struct {
	mu    sync.Mutex
	calls []*call
}

func (f *fakeFetcher) fetch(ctx context.Context) (string, error) {
	c := &call{ctx: ctx, resp: make(chan result, 1)}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	r := <-c.resp
	return r.data, r.err
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) waitCall(t *testing.T, i int) *call {
	t.Helper()
	require.Eventually(t, func() bool { return f.count() > i }, time.Second, time.Millisecond,
		"expected fetch #%d to be issued", i)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

func (f *fakeFetcher) releaseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		select {
		case c.resp <- result{err: context.Canceled}:
		default:
		}
	}
}

type harness struct {
	fetcher *fakeFetcher
	sched   *testutil.FakeScheduler
	vis     *visibility.Toggle
	poller  *Poller[string]

	mu      sync.Mutex
	applied []State[string]
	merged  []string
}

func newHarness(t *testing.T, enabled, visible bool) *harness {
	h := &harness{
		fetcher: &fakeFetcher{},
		sched:   testutil.NewFakeScheduler(),
		vis:     visibility.NewToggle(visible),
	}
	h.poller = New(h.fetcher.fetch,
		Options{ActiveInterval: active, HiddenInterval: hidden, Enabled: enabled},
		WithName("engine"),
		WithScheduler(h.sched),
		WithVisibility(h.vis),
		WithOnSuccess(func(s string) {
			h.mu.Lock()
			h.merged = append(h.merged, s)
			h.mu.Unlock()
		}),
	)
	h.poller.Subscribe(func(s State[string]) {
		h.mu.Lock()
		h.applied = append(h.applied, s)
		h.mu.Unlock()
	})
	t.Cleanup(func() {
		h.poller.Close()
		h.fetcher.releaseAll()
	})
	return h
}

func (h *harness) appliedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.applied)
}

func (h *harness) waitApplied(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.appliedCount() >= n }, time.Second, time.Millisecond)
}

func TestStart_FetchesImmediatelyAndSchedules(t *testing.T) {
	h := newHarness(t, true, true)
	assert.True(t, h.poller.State().IsLoading)

	h.poller.Start()

	c := h.fetcher.waitCall(t, 0)
	assert.Equal(t, []time.Duration{active}, h.sched.Pending())

	c.resp <- result{data: "A"}
	h.waitApplied(t, 1)

	st := h.poller.State()
	assert.False(t, st.IsLoading)
	assert.True(t, st.HasData)
	assert.Equal(t, "A", st.Data)
	assert.False(t, st.LastUpdatedAt.IsZero())
	assert.Equal(t, []string{"A"}, h.merged)
}

func TestTick_RefetchesAtActiveInterval(t *testing.T) {
	h := newHarness(t, true, true)
	h.poller.Start()
	h.fetcher.waitCall(t, 0).resp <- result{data: "A"}

	h.sched.Advance(active)

	h.fetcher.waitCall(t, 1)
	assert.Equal(t, []time.Duration{active}, h.sched.Pending(), "timer is re-armed after each tick")
}

func TestStart_Disabled(t *testing.T) {
	h := newHarness(t, false, true)
	h.poller.Start()

	h.sched.Advance(time.Minute)

	assert.Equal(t, 0, h.fetcher.count())
	assert.Empty(t, h.sched.Pending())
	assert.True(t, h.poller.State().IsLoading)
}

func TestCancellation_StaleResultNeverApplied(t *testing.T) {
	for _, staleOutcome := range []result{{data: "stale"}, {err: fmt.Errorf("stale failure")}} {
		t.Run(fmt.Sprintf("stale=%v", staleOutcome), func(t *testing.T) {
			h := newHarness(t, true, true)
			h.poller.Start()
			first := h.fetcher.waitCall(t, 0)

			h.poller.Refetch()
			second := h.fetcher.waitCall(t, 1)

			select {
			case <-first.ctx.Done():
			default:
				t.Fatal("issuing cycle N+1 must cancel cycle N")
			}

			// Settle N+1 first, then let N resolve late.
			second.resp <- result{data: "fresh"}
			h.waitApplied(t, 1)
			first.resp <- staleOutcome
			time.Sleep(20 * time.Millisecond)

			st := h.poller.State()
			assert.Equal(t, "fresh", st.Data)
			assert.Nil(t, st.Err)
			assert.Equal(t, 1, h.appliedCount())
		})
	}
}

func TestCancellation_SettledBeforeSuccessor(t *testing.T) {
	h := newHarness(t, true, true)
	h.poller.Start()
	first := h.fetcher.waitCall(t, 0)

	h.poller.Refetch()
	second := h.fetcher.waitCall(t, 1)

	// The cancelled request resolves before its successor does.
	first.resp <- result{data: "stale"}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, h.appliedCount())
	assert.True(t, h.poller.State().IsLoading)

	second.resp <- result{data: "fresh"}
	h.waitApplied(t, 1)
	assert.Equal(t, "fresh", h.poller.State().Data)
}

func TestError_KeepsDataAndClearsOnSuccess(t *testing.T) {
	h := newHarness(t, true, true)
	h.poller.Start()
	h.fetcher.waitCall(t, 0).resp <- result{data: "A"}
	h.waitApplied(t, 1)

	h.poller.Refetch()
	remote := errors.New("ENGINE_DOWN", "engine unavailable").AsRetryable()
	h.fetcher.waitCall(t, 1).resp <- result{err: remote}
	h.waitApplied(t, 2)

	st := h.poller.State()
	assert.Equal(t, "A", st.Data, "data survives a failure")
	require.NotNil(t, st.Err)
	assert.Equal(t, errors.ErrorCode("ENGINE_DOWN"), st.Err.Code)
	assert.True(t, st.Err.Retryable)
	assert.Equal(t, []string{"A"}, h.merged, "failures are not merged")

	h.poller.Refetch()
	h.fetcher.waitCall(t, 2).resp <- result{data: "B"}
	h.waitApplied(t, 3)

	st = h.poller.State()
	assert.Equal(t, "B", st.Data)
	assert.Nil(t, st.Err)
}

func TestError_FirstFailureEndsLoading(t *testing.T) {
	h := newHarness(t, true, true)
	h.poller.Start()
	h.fetcher.waitCall(t, 0).resp <- result{err: fmt.Errorf("boom")}
	h.waitApplied(t, 1)

	st := h.poller.State()
	assert.False(t, st.IsLoading)
	assert.False(t, st.HasData)
	require.NotNil(t, st.Err)
}

func TestCancelledErrorIsNotSurfaced(t *testing.T) {
	h := newHarness(t, true, true)
	h.poller.Start()
	h.fetcher.waitCall(t, 0).resp <- result{err: context.Canceled}
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 0, h.appliedCount())
	assert.Nil(t, h.poller.State().Err)
}

func TestVisibility_ShownTriggersImmediateFetch(t *testing.T) {
	h := newHarness(t, true, false)
	h.poller.Start()
	h.fetcher.waitCall(t, 0).resp <- result{data: "A"}
	assert.Equal(t, []time.Duration{hidden}, h.sched.Pending())

	h.sched.Advance(time.Second) // well short of the hidden interval
	h.vis.Set(true)

	h.fetcher.waitCall(t, 1)
	assert.Equal(t, []time.Duration{active}, h.sched.Pending())
}

func TestVisibility_HiddenReschedulesWithoutFetch(t *testing.T) {
	h := newHarness(t, true, true)
	h.poller.Start()
	h.fetcher.waitCall(t, 0).resp <- result{data: "A"}

	h.vis.Set(false)

	assert.Equal(t, []time.Duration{hidden}, h.sched.Pending())
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, h.fetcher.count())

	h.sched.Advance(active)
	assert.Equal(t, 1, h.fetcher.count(), "no tick at the active interval while hidden")
	h.sched.Advance(hidden - active)
	h.fetcher.waitCall(t, 1)
}

func TestSetEnabled(t *testing.T) {
	h := newHarness(t, true, true)
	h.poller.Start()
	h.fetcher.waitCall(t, 0).resp <- result{data: "A"}
	h.waitApplied(t, 1)

	h.poller.Refetch()
	inFlight := h.fetcher.waitCall(t, 1)

	h.poller.SetEnabled(false)

	select {
	case <-inFlight.ctx.Done():
	default:
		t.Fatal("disabling must cancel the in-flight request")
	}
	assert.Empty(t, h.sched.Pending())
	assert.Equal(t, "A", h.poller.State().Data, "data is retained when disabled")

	h.poller.Refetch()
	h.sched.Advance(time.Minute)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 2, h.fetcher.count(), "no fetches while disabled")

	h.poller.SetEnabled(true)
	h.fetcher.waitCall(t, 2)
	assert.Equal(t, []time.Duration{active}, h.sched.Pending())
}

func TestClose(t *testing.T) {
	h := newHarness(t, true, true)
	h.poller.Start()
	c := h.fetcher.waitCall(t, 0)

	h.poller.Close()

	select {
	case <-c.ctx.Done():
	default:
		t.Fatal("Close must cancel the in-flight request")
	}
	assert.Empty(t, h.sched.Pending())

	h.vis.Set(false)
	h.vis.Set(true)
	h.poller.Refetch()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, h.fetcher.count())
}

func TestNoBackoffOnRepeatedFailure(t *testing.T) {
	h := newHarness(t, true, true)
	h.poller.Start()

	for i := 0; i < 4; i++ {
		h.fetcher.waitCall(t, i).resp <- result{err: fmt.Errorf("down")}
		h.waitApplied(t, i+1)
		assert.Equal(t, []time.Duration{active}, h.sched.Pending())
		h.sched.Advance(active)
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t, true, true)
	h.poller.Start()
	h.fetcher.waitCall(t, 0).resp <- result{err: errors.HTTPStatus(503, "/api/engine/status")}
	h.waitApplied(t, 1)

	health := h.poller.Health()
	assert.Equal(t, "engine", health.Name)
	assert.True(t, health.Enabled)
	require.NotNil(t, health.Error)
	assert.Equal(t, errors.ErrCodeHTTPStatus, health.Error.Code)
}
