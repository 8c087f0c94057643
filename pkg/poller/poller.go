// Package poller provides the adaptive poller: a reusable loop that fetches
// one remote resource on an interval that depends on visibility and on an
// enabled flag, with at most one request in flight per poller.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/grovetools/livesync/errors"
	"github.com/grovetools/livesync/pkg/timer"
	"github.com/grovetools/livesync/pkg/visibility"
	"github.com/sirupsen/logrus"
)

// FetchFunc fetches one snapshot. It must honour ctx cancellation where it can;
// results that arrive after cancellation are discarded either way.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Options are fixed for the lifetime of a poller.
type Options struct {
	ActiveInterval time.Duration
	HiddenInterval time.Duration
	Enabled        bool
}

// State is the observable output of a poller.
type State[T any] struct {
	// Data is the last successful result. It survives errors and disabling.
	Data    T
	HasData bool
	// Err is the last failure, cleared by the next success.
	Err *errors.SyncError
	// IsLoading is true until the first fetch settles.
	IsLoading     bool
	LastUpdatedAt time.Time
}

// Poller repeatedly fetches a resource of type T.
type Poller[T any] struct {
	name       string
	fetch      FetchFunc[T]
	opts       Options
	visibility visibility.Source
	scheduler  timer.Scheduler
	logger     *logrus.Entry
	now        func() time.Time
	onSuccess  func(T)
	onError    func(*errors.SyncError)

	// applyMu serializes settlement callbacks so results reach consumers
	// in issue order.
	applyMu sync.Mutex

	mu          sync.Mutex
	state       State[T]
	enabled     bool
	started     bool
	closed      bool
	generation  uint64
	cancel      context.CancelFunc
	tick        timer.Timer
	tickGen     uint64
	unsubscribe func()
	observers   map[int]func(State[T])
	nextObs     int
}

// Option configures a Poller.
type Option func(*config)

type config struct {
	name       string
	visibility visibility.Source
	scheduler  timer.Scheduler
	logger     *logrus.Entry
	now        func() time.Time
	onSuccess  interface{}
	onError    func(*errors.SyncError)
}

// WithName sets the name used in logs and health reports.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithVisibility sets the visibility source. Defaults to visibility.Always.
func WithVisibility(src visibility.Source) Option {
	return func(c *config) { c.visibility = src }
}

// WithScheduler sets the timer scheduler. Defaults to timer.Real.
func WithScheduler(s timer.Scheduler) Option {
	return func(c *config) { c.scheduler = s }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) Option {
	return func(c *config) { c.logger = l }
}

// WithClock overrides the clock used for LastUpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithOnSuccess registers a hook that receives every applied result,
// typically a merge into the reconciliation store.
func WithOnSuccess[T any](fn func(T)) Option {
	return func(c *config) { c.onSuccess = fn }
}

// WithOnError registers a hook that receives every applied failure.
func WithOnError(fn func(*errors.SyncError)) Option {
	return func(c *config) { c.onError = fn }
}

// New creates a poller. It does nothing until Start is called.
func New[T any](fetch FetchFunc[T], opts Options, options ...Option) *Poller[T] {
	cfg := config{
		name:       "poller",
		visibility: visibility.Always,
		scheduler:  timer.Real,
		now:        time.Now,
	}
	for _, o := range options {
		o(&cfg)
	}
	if cfg.logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		cfg.logger = logrus.NewEntry(l)
	}
	if opts.HiddenInterval <= 0 {
		opts.HiddenInterval = opts.ActiveInterval
	}

	p := &Poller[T]{
		name:       cfg.name,
		fetch:      fetch,
		opts:       opts,
		visibility: cfg.visibility,
		scheduler:  cfg.scheduler,
		logger:     cfg.logger.WithField("resource", cfg.name),
		now:        cfg.now,
		onError:    cfg.onError,
		enabled:    opts.Enabled,
		state:      State[T]{IsLoading: true},
		observers:  make(map[int]func(State[T])),
	}
	if fn, ok := cfg.onSuccess.(func(T)); ok {
		p.onSuccess = fn
	}
	return p
}

// Name returns the poller name.
func (p *Poller[T]) Name() string { return p.name }

// Start begins polling if enabled and starts following visibility changes.
func (p *Poller[T]) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	p.unsubscribe = p.visibility.Subscribe(p.onVisibility)

	if p.enabled {
		p.cycleLocked()
		p.scheduleLocked(p.visibility.Visible())
	}
}

// Refetch runs a fetch cycle now, outside the regular cadence.
// It is ignored while the poller is disabled or closed.
func (p *Poller[T]) Refetch() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || !p.started || !p.enabled {
		return
	}
	p.cycleLocked()
}

// SetEnabled turns polling on or off. Disabling keeps the last data.
func (p *Poller[T]) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enabled == enabled {
		return
	}
	p.enabled = enabled
	if !p.started || p.closed {
		return
	}

	if enabled {
		p.logger.Debug("Polling enabled")
		p.cycleLocked()
		p.scheduleLocked(p.visibility.Visible())
		return
	}

	p.logger.Debug("Polling disabled")
	p.stopTimerLocked()
	p.cancelInFlightLocked()
}

// Enabled reports whether the poller is currently enabled.
func (p *Poller[T]) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// Close stops the timer and cancels any in-flight request. It is final.
func (p *Poller[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.stopTimerLocked()
	p.cancelInFlightLocked()
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
}

// State returns a copy of the current observable state.
func (p *Poller[T]) State() State[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Subscribe registers fn to be called after every applied result.
func (p *Poller[T]) Subscribe(fn func(State[T])) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextObs
	p.nextObs++
	p.observers[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.observers, id)
	}
}

// cycleLocked cancels the previous request of this poller and issues a new one.
func (p *Poller[T]) cycleLocked() {
	p.cancelInFlightLocked()

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	gen := p.generation

	go func() {
		data, err := p.fetch(ctx)
		p.settle(ctx, gen, data, err)
	}()
}

// cancelInFlightLocked cancels the current request and invalidates its result.
func (p *Poller[T]) cancelInFlightLocked() {
	p.generation++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Poller[T]) settle(ctx context.Context, gen uint64, data T, err error) {
	p.applyMu.Lock()
	defer p.applyMu.Unlock()

	p.mu.Lock()
	if gen != p.generation || ctx.Err() != nil || errors.IsCancelled(err) {
		p.mu.Unlock()
		return
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}

	var syncErr *errors.SyncError
	p.state.IsLoading = false
	if err == nil {
		p.state.Data = data
		p.state.HasData = true
		p.state.Err = nil
		p.state.LastUpdatedAt = p.now()
	} else {
		syncErr = errors.Classify(err)
		if p.state.Err == nil || p.state.Err.Code != syncErr.Code {
			p.logger.WithError(syncErr).Warn("Fetch failed")
		} else {
			p.logger.WithError(syncErr).Debug("Fetch failed again")
		}
		p.state.Err = syncErr
	}
	snapshot := p.state
	observers := make([]func(State[T]), 0, len(p.observers))
	for _, fn := range p.observers {
		observers = append(observers, fn)
	}
	p.mu.Unlock()

	if syncErr == nil && p.onSuccess != nil {
		p.onSuccess(data)
	}
	if syncErr != nil && p.onError != nil {
		p.onError(syncErr)
	}
	for _, fn := range observers {
		fn(snapshot)
	}
}

func (p *Poller[T]) interval(visible bool) time.Duration {
	if visible {
		return p.opts.ActiveInterval
	}
	return p.opts.HiddenInterval
}

// scheduleLocked replaces the pending tick with one at the interval for visible.
func (p *Poller[T]) scheduleLocked(visible bool) {
	p.stopTimerLocked()
	gen := p.tickGen
	p.tick = p.scheduler.AfterFunc(p.interval(visible), func() { p.onTick(gen) })
}

func (p *Poller[T]) stopTimerLocked() {
	p.tickGen++
	if p.tick != nil {
		p.tick.Stop()
		p.tick = nil
	}
}

func (p *Poller[T]) onTick(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.tickGen || p.closed || !p.enabled {
		return
	}
	p.cycleLocked()
	p.scheduleLocked(p.visibility.Visible())
}

func (p *Poller[T]) onVisibility(visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || !p.started || !p.enabled {
		return
	}
	if visible {
		p.cycleLocked()
	}
	p.scheduleLocked(visible)
}
