// Package store provides the reconciliation store: the single observable
// container that push events, pull snapshots and optimistic local actions
// are merged into.
package store

import (
	"github.com/grovetools/livesync/pkg/models"
)

// FeedCapacity is the maximum number of monitor events kept in the feed.
const FeedCapacity = 200

// State represents the complete reconciled view.
type State struct {
	Events []models.MonitorEvent  `json:"events"` // Newest first
	Tasks  map[string]models.Task `json:"tasks"`  // Keyed by task ID
	Stats  models.Stats           `json:"stats"`
}

// UpdateType defines what kind of data changed.
type UpdateType string

const (
	UpdateEvents       UpdateType = "events"
	UpdateTasks        UpdateType = "tasks"
	UpdateStats        UpdateType = "stats"
	UpdateConnectivity UpdateType = "connectivity"
)

// Update describes a change that was applied to the state.
type Update struct {
	Type    UpdateType
	Op      string      // Mutator that produced the change (e.g. "monitor_event", "bulk_replace")
	Payload interface{} // The applied input, for observers that render deltas
}

// Collection is an authoritative snapshot that replaces one named collection.
type Collection interface {
	updateType() UpdateType
}

// TaskList replaces the whole task table.
type TaskList []models.Task

// StoreHealthMap replaces the whole store health map.
type StoreHealthMap map[string]models.StoreHealth

// EventHistory replaces the event feed. It must be newest first; entries past
// FeedCapacity are dropped.
type EventHistory []models.MonitorEvent

func (TaskList) updateType() UpdateType       { return UpdateTasks }
func (StoreHealthMap) updateType() UpdateType { return UpdateStats }
func (EventHistory) updateType() UpdateType   { return UpdateEvents }
