// Package inspect is the client side of the local inspect server: the wire
// types it serves and a client that talks to it over a Unix socket.
package inspect

import (
	"time"

	"github.com/grovetools/livesync/pkg/connection"
	"github.com/grovetools/livesync/pkg/poller"
	"github.com/grovetools/livesync/pkg/store"
)

// Snapshot is the full view served by /api/state and pushed on /api/stream.
type Snapshot struct {
	State      store.State      `json:"state"`
	Connection connection.State `json:"connection"`
	Pollers    []poller.Health  `json:"pollers"`
	Derived    Derived          `json:"derived"`
	StartedAt  time.Time        `json:"started_at"`
}

// Derived holds the counters computed from the store.
type Derived struct {
	HighPriorityCount  int `json:"high_priority_count"`
	DistinctStoreCount int `json:"distinct_store_count"`
	RunningTaskCount   int `json:"running_task_count"`
}

// StreamUpdate is one SSE message of /api/stream.
type StreamUpdate struct {
	// UpdateType is "initial" for the first message, otherwise the store
	// update type that triggered it.
	UpdateType string   `json:"update_type"`
	Op         string   `json:"op,omitempty"`
	Snapshot   Snapshot `json:"snapshot"`
}

// ActionResult is returned by the POST endpoints.
type ActionResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}
