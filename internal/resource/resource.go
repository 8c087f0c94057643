// Package resource defines the remote collections that are kept fresh by
// polling, and how each snapshot is merged into the store.
package resource

import (
	"context"
	"time"

	"github.com/grovetools/livesync/pkg/models"
	"github.com/grovetools/livesync/pkg/poller"
	"github.com/grovetools/livesync/pkg/store"
)

// Resource names. They key cadence overrides and the inspect API.
const (
	Engine       = "engine"
	Monitor      = "monitor"
	Analytics    = "analytics"
	Tasks        = "tasks"
	EventHistory = "events"
)

// Source is the pull side of the remote service. *api.Client implements it.
type Source interface {
	EngineStatus(ctx context.Context) (models.EngineStatus, error)
	MonitorStatus(ctx context.Context) (models.MonitorStatus, error)
	CheckoutAnalytics(ctx context.Context) (models.CheckoutAnalytics, error)
	Tasks(ctx context.Context) ([]models.Task, error)
	MonitorEvents(ctx context.Context, limit int) ([]models.MonitorEvent, error)
}

// Cadence is the polling interval while visible and while hidden.
type Cadence struct {
	Active time.Duration `json:"active"`
	Hidden time.Duration `json:"hidden"`
}

// DefaultCadences are the intervals used when the config sets none.
func DefaultCadences() map[string]Cadence {
	return map[string]Cadence{
		Engine:       {Active: 5 * time.Second, Hidden: 15 * time.Second},
		Monitor:      {Active: 3 * time.Second, Hidden: 10 * time.Second},
		Analytics:    {Active: 10 * time.Second, Hidden: 30 * time.Second},
		Tasks:        {Active: 5 * time.Second, Hidden: 15 * time.Second},
		EventHistory: {Active: 2 * time.Second, Hidden: 10 * time.Second},
	}
}

// Resource builds the poller for one remote collection.
type Resource interface {
	Name() string
	// Poller creates a poller whose successful results are merged into st.
	Poller(st *store.Store, enabled bool, opts ...poller.Option) poller.Handle
}

// Definition is a typed Resource.
type Definition[T any] struct {
	ResourceName string
	Cadence      Cadence
	Fetch        poller.FetchFunc[T]
	Apply        func(st *store.Store, v T)
}

// Name returns the resource name.
func (d Definition[T]) Name() string { return d.ResourceName }

// Poller implements Resource.
func (d Definition[T]) Poller(st *store.Store, enabled bool, opts ...poller.Option) poller.Handle {
	all := append([]poller.Option{
		poller.WithName(d.ResourceName),
		poller.WithOnSuccess(func(v T) { d.Apply(st, v) }),
	}, opts...)
	return poller.New(d.Fetch, poller.Options{
		ActiveInterval: d.Cadence.Active,
		HiddenInterval: d.Cadence.Hidden,
		Enabled:        enabled,
	}, all...)
}

// Defaults returns every resource polled by the engine. cadences overrides
// DefaultCadences per name; historyLimit sizes the event history fallback.
func Defaults(src Source, cadences map[string]Cadence, historyLimit int) []Resource {
	c := DefaultCadences()
	for name, override := range cadences {
		base, ok := c[name]
		if !ok {
			continue
		}
		if override.Active > 0 {
			base.Active = override.Active
		}
		if override.Hidden > 0 {
			base.Hidden = override.Hidden
		}
		c[name] = base
	}

	return []Resource{
		Definition[models.EngineStatus]{
			ResourceName: Engine,
			Cadence:      c[Engine],
			Fetch:        src.EngineStatus,
			Apply: func(st *store.Store, v models.EngineStatus) {
				st.ApplyStatusSnapshot(v.StatusPatch())
			},
		},
		Definition[models.MonitorStatus]{
			ResourceName: Monitor,
			Cadence:      c[Monitor],
			Fetch:        src.MonitorStatus,
			Apply: func(st *store.Store, v models.MonitorStatus) {
				st.ApplyStatusSnapshot(v.StatusPatch())
				st.ApplyBulkReplace(store.StoreHealthMap(v.StoreHealthMap()))
			},
		},
		Definition[models.CheckoutAnalytics]{
			ResourceName: Analytics,
			Cadence:      c[Analytics],
			Fetch:        src.CheckoutAnalytics,
			Apply: func(st *store.Store, v models.CheckoutAnalytics) {
				st.ApplyStatusSnapshot(v.StatusPatch())
			},
		},
		Definition[[]models.Task]{
			ResourceName: Tasks,
			Cadence:      c[Tasks],
			Fetch:        src.Tasks,
			Apply: func(st *store.Store, v []models.Task) {
				st.ApplyBulkReplace(store.TaskList(v))
			},
		},
		Definition[[]models.MonitorEvent]{
			ResourceName: EventHistory,
			Cadence:      c[EventHistory],
			Fetch: func(ctx context.Context) ([]models.MonitorEvent, error) {
				return src.MonitorEvents(ctx, historyLimit)
			},
			Apply: func(st *store.Store, v []models.MonitorEvent) {
				st.ApplyBulkReplace(store.EventHistory(v))
			},
		},
	}
}
