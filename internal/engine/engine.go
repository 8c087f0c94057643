// Package engine is the composition root: it wires the reconciliation store,
// the push channel and one poller per remote resource, and runs them.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/grovetools/livesync/errors"
	"github.com/grovetools/livesync/internal/resource"
	"github.com/grovetools/livesync/pkg/connection"
	"github.com/grovetools/livesync/pkg/models"
	"github.com/grovetools/livesync/pkg/poller"
	"github.com/grovetools/livesync/pkg/store"
	"github.com/grovetools/livesync/pkg/timer"
	"github.com/grovetools/livesync/pkg/visibility"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Service is the remote service as seen by the engine. *api.Client implements it.
type Service interface {
	resource.Source
	StartTask(ctx context.Context, id string) error
	StopTask(ctx context.Context, id string) error
}

// Config holds the engine wiring that is not the store or the service.
type Config struct {
	Location          connection.LocationResolver
	Dialer            connection.Dialer
	Reconnect         connection.ReconnectPolicy
	HeartbeatInterval time.Duration
	Cadences          map[string]resource.Cadence
	EventHistoryLimit int
	Visibility        visibility.Source
	Scheduler         timer.Scheduler
}

// Engine manages the push channel and all pollers.
type Engine struct {
	store   *store.Store
	service Service
	conn    *connection.Manager
	logger  *logrus.Entry

	pollers []poller.Handle
	byName  map[string]poller.Handle

	startedAt time.Time
	mu        sync.Mutex
	running   bool
}

// New creates a new Engine instance. Nothing runs until Start.
func New(st *store.Store, svc Service, cfg Config, logger *logrus.Entry) *Engine {
	if cfg.Visibility == nil {
		cfg.Visibility = visibility.Always
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = timer.Real
	}

	e := &Engine{
		store:   st,
		service: svc,
		logger:  logger,
		byName:  make(map[string]poller.Handle),
	}

	for _, r := range resource.Defaults(svc, cfg.Cadences, cfg.EventHistoryLimit) {
		enabled := true
		if r.Name() == resource.EventHistory {
			// Fallback for the push channel; follows connectivity.
			enabled = !st.Connected()
		}
		h := r.Poller(st, enabled,
			poller.WithVisibility(cfg.Visibility),
			poller.WithScheduler(cfg.Scheduler),
			poller.WithLogger(logger.WithField("poller", r.Name())),
		)
		e.pollers = append(e.pollers, h)
		e.byName[r.Name()] = h
	}

	e.conn = connection.NewManager(connection.Options{
		Location:          cfg.Location,
		Sink:              &connectivitySink{Store: st, onChange: e.onConnectivity},
		Dialer:            cfg.Dialer,
		Policy:            cfg.Reconnect,
		HeartbeatInterval: cfg.HeartbeatInterval,
		Scheduler:         cfg.Scheduler,
		Logger:            logger.WithField("channel", "push"),
	})
	return e
}

// connectivitySink forwards push events to the store and reports
// connectivity transitions to the engine.
type connectivitySink struct {
	*store.Store
	onChange func(connected bool)
}

func (s *connectivitySink) SetConnected(connected bool) {
	s.Store.SetConnected(connected)
	s.onChange(connected)
}

func (e *Engine) onConnectivity(connected bool) {
	if h, ok := e.byName[resource.EventHistory]; ok {
		h.SetEnabled(!connected)
	}
}

// Start runs the push channel and all pollers and blocks until ctx is
// cancelled. Everything is torn down before it returns.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.New(errors.ErrCodeInternal, "engine already running")
	}
	e.running = true
	e.startedAt = time.Now()
	e.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)

	for _, p := range e.pollers {
		e.logger.WithField("poller", p.Name()).Debug("Starting poller")
		p.Start()
	}
	e.conn.Start(ctx)

	g.Go(func() error {
		e.reportEvents(ctx)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		e.conn.Close()
		for _, p := range e.pollers {
			p.Close()
		}
		e.logger.Info("Engine stopped")
		return nil
	})

	e.logger.WithField("pollers", len(e.pollers)).Info("Engine started")
	return g.Wait()
}

// reportEvents logs detections as they are merged into the store.
func (e *Engine) reportEvents(ctx context.Context) {
	ch := e.store.Subscribe()
	defer e.store.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-ch:
			if !ok {
				return
			}
			if u.Type != store.UpdateEvents {
				continue
			}
			ev, ok := u.Payload.(models.MonitorEvent)
			if !ok {
				continue
			}
			entry := e.logger.WithFields(logrus.Fields{
				"store":    ev.Store,
				"product":  ev.ProductTitle,
				"priority": ev.Priority,
			})
			if ev.IsHighPriority() {
				entry.Info("High priority product detected")
			} else {
				entry.Debug("Product detected")
			}
		}
	}
}

// Store returns the engine's reconciliation store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Connection returns the push channel manager.
func (e *Engine) Connection() *connection.Manager {
	return e.conn
}

// ConnectionState returns a snapshot of the push channel lifecycle.
func (e *Engine) ConnectionState() connection.State {
	return e.conn.State()
}

// StartedAt returns when Start was called, or the zero time.
func (e *Engine) StartedAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startedAt
}

// Pollers returns the health of every poller, sorted by name.
func (e *Engine) Pollers() []poller.Health {
	out := make([]poller.Health, 0, len(e.pollers))
	for _, p := range e.pollers {
		out = append(out, p.Health())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Refetch triggers an out-of-band fetch of the named resource.
func (e *Engine) Refetch(name string) error {
	h, ok := e.byName[name]
	if !ok {
		return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("unknown resource %q", name))
	}
	h.Refetch()
	return nil
}

// RefetchAll triggers an out-of-band fetch of every enabled resource.
func (e *Engine) RefetchAll() {
	for _, p := range e.pollers {
		p.Refetch()
	}
}

// Reconnect opens the push channel again, also after reconnection gave up.
func (e *Engine) Reconnect() {
	e.conn.Connect()
}

// StartTask optimistically marks a task running and asks the service to
// start it. The mark is reverted if the request fails.
func (e *Engine) StartTask(ctx context.Context, id string) error {
	return e.taskAction(ctx, id, "start", e.store.MarkTaskStarted, e.service.StartTask)
}

// StopTask optimistically marks a task stopped and asks the service to
// stop it. The mark is reverted if the request fails.
func (e *Engine) StopTask(ctx context.Context, id string) error {
	return e.taskAction(ctx, id, "stop", e.store.MarkTaskStopped, e.service.StopTask)
}

func (e *Engine) taskAction(ctx context.Context, id, action string, mark func(string), call func(context.Context, string) error) error {
	prev, ok := e.store.Task(id)
	if !ok {
		return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("unknown task %q", id))
	}

	mark(id)
	if err := call(ctx, id); err != nil {
		e.store.ApplyTaskUpdate(id, models.TaskPatch{
			Status:  &prev.Status,
			Message: &prev.Message,
		})
		syncErr := errors.Classify(err)
		e.logger.WithError(syncErr).WithFields(logrus.Fields{
			"task":   id,
			"action": action,
		}).Warn("Task action failed, reverted")
		return syncErr
	}

	e.logger.WithFields(logrus.Fields{"task": id, "action": action}).Info("Task action sent")
	_ = e.Refetch(resource.Tasks)
	return nil
}
