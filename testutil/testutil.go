// Package testutil provides deterministic fakes for timers and visibility
// shared by the connection, poller and engine tests.
package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/grovetools/livesync/pkg/timer"
)

// FakeScheduler is a timer.Scheduler driven by Advance instead of wall time.
type FakeScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*FakeTimer
}

// FakeTimer is a timer created by FakeScheduler.
type FakeTimer struct {
	s       *FakeScheduler
	seq     int
	Delay   time.Duration
	at      time.Duration
	fn      func()
	fired   bool
	stopped bool
}

// NewFakeScheduler creates a scheduler at virtual time zero.
func NewFakeScheduler() *FakeScheduler {
	return &FakeScheduler{}
}

var _ timer.Scheduler = (*FakeScheduler)(nil)

// AfterFunc records a timer that fires d after the current virtual time.
func (s *FakeScheduler) AfterFunc(d time.Duration, f func()) timer.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &FakeTimer{s: s, seq: s.seq, Delay: d, at: s.now + d, fn: f}
	s.seq++
	s.timers = append(s.timers, t)
	return t
}

// Stop cancels the timer.
func (t *FakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves virtual time forward by d, firing due timers in order.
// Callbacks run without the scheduler lock held and may schedule new timers.
func (s *FakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		next := s.nextDueLocked(target)
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = next.at
		next.fired = true
		fn := next.fn
		s.mu.Unlock()

		fn()
	}
}

func (s *FakeScheduler) nextDueLocked(limit time.Duration) *FakeTimer {
	var best *FakeTimer
	for _, t := range s.timers {
		if t.fired || t.stopped || t.at > limit {
			continue
		}
		if best == nil || t.at < best.at || (t.at == best.at && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

// Pending returns the delays of timers that have neither fired nor been stopped,
// ordered by due time.
func (s *FakeScheduler) Pending() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []*FakeTimer
	for _, t := range s.timers {
		if !t.fired && !t.stopped {
			pending = append(pending, t)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].at < pending[j].at })
	out := make([]time.Duration, len(pending))
	for i, t := range pending {
		out[i] = t.Delay
	}
	return out
}

// Scheduled returns the delay of every timer ever created, in creation order.
func (s *FakeScheduler) Scheduled() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.timers))
	for i, t := range s.timers {
		out[i] = t.Delay
	}
	return out
}
