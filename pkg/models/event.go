package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind tags a frame received on the push channel.
type EventKind string

const (
	KindMonitorEvent EventKind = "monitor_event"
	KindTaskUpdate   EventKind = "task_update"
	KindStatusUpdate EventKind = "status_update"
	KindHeartbeat    EventKind = "heartbeat"
)

// Priority classifies how interesting a detected product is.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// SyncEvent is a single decoded frame from the push channel.
// Data is decoded lazily according to Kind.
type SyncEvent struct {
	Kind EventKind       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MonitorEvent is a product detection reported by the remote monitor.
type MonitorEvent struct {
	ID           string    `json:"id"`
	Store        string    `json:"store"`
	ProductTitle string    `json:"product_title"`
	URL          string    `json:"url,omitempty"`
	Price        float64   `json:"price,omitempty"`
	Priority     Priority  `json:"priority"`
	Keywords     []string  `json:"keywords,omitempty"`
	DetectedAt   time.Time `json:"detected_at"`
}

// IsHighPriority reports whether the event should count toward high-priority stats.
func (e MonitorEvent) IsHighPriority() bool {
	return e.Priority == PriorityHigh
}

// ParseSyncEvent decodes a raw text frame into its envelope.
func ParseSyncEvent(frame []byte) (SyncEvent, error) {
	var ev SyncEvent
	if err := json.Unmarshal(frame, &ev); err != nil {
		return SyncEvent{}, err
	}
	if ev.Kind == "" {
		return SyncEvent{}, fmt.Errorf("frame has no type")
	}
	return ev, nil
}

// MonitorEvent decodes the payload of a monitor_event frame.
func (e SyncEvent) MonitorEvent() (MonitorEvent, error) {
	var out MonitorEvent
	err := e.decode(KindMonitorEvent, &out)
	return out, err
}

// TaskUpdate decodes the payload of a task_update frame.
func (e SyncEvent) TaskUpdate() (TaskUpdate, error) {
	var out TaskUpdate
	if err := e.decode(KindTaskUpdate, &out); err != nil {
		return TaskUpdate{}, err
	}
	if out.TaskID == "" {
		return TaskUpdate{}, fmt.Errorf("task_update has no task_id")
	}
	return out, nil
}

// StatusPatch decodes the payload of a status_update frame.
func (e SyncEvent) StatusPatch() (StatusPatch, error) {
	var out StatusPatch
	err := e.decode(KindStatusUpdate, &out)
	return out, err
}

func (e SyncEvent) decode(want EventKind, target interface{}) error {
	if e.Kind != want {
		return fmt.Errorf("frame is %q, not %q", e.Kind, want)
	}
	if len(e.Data) == 0 {
		return fmt.Errorf("%s frame has no data", e.Kind)
	}
	return json.Unmarshal(e.Data, target)
}
