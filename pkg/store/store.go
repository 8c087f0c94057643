package store

import (
	"sort"
	"sync"

	"github.com/grovetools/livesync/pkg/models"
)

// Store is the in-memory reconciled state.
// It is thread-safe and supports pub/sub for real-time updates.
// Every write, whatever its source, goes through one of the mutators below
// and the last writer of a field wins.
type Store struct {
	mu          sync.RWMutex
	state       *State
	subscribers map[chan Update]struct{}
}

// New creates a new Store instance.
func New() *Store {
	return &Store{
		state: &State{
			Events: []models.MonitorEvent{},
			Tasks:  make(map[string]models.Task),
			Stats: models.Stats{
				StoreHealth: make(map[string]models.StoreHealth),
			},
		},
		subscribers: make(map[chan Update]struct{}),
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := make(map[string]models.Task, len(s.state.Tasks))
	for k, v := range s.state.Tasks {
		tasks[k] = v
	}
	return State{
		Events: s.eventsLocked(),
		Tasks:  tasks,
		Stats:  s.statsLocked(),
	}
}

// Events returns the feed, newest first.
func (s *Store) Events() []models.MonitorEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventsLocked()
}

// Tasks returns all tasks ordered by ID.
func (s *Store) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.Task, 0, len(s.state.Tasks))
	for _, t := range s.state.Tasks {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Task returns a single task.
func (s *Store) Task(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.state.Tasks[id]
	return t, ok
}

// Stats returns a copy of the aggregate stats.
func (s *Store) Stats() models.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statsLocked()
}

// Connected returns the push channel connectivity flag.
func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Stats.Connected
}

func (s *Store) eventsLocked() []models.MonitorEvent {
	out := make([]models.MonitorEvent, len(s.state.Events))
	copy(out, s.state.Events)
	return out
}

func (s *Store) statsLocked() models.Stats {
	// Apply with an empty patch yields a copy with a fresh health map.
	return s.state.Stats.Apply(models.StatusPatch{})
}

// ApplyMonitorEvent prepends ev to the feed and bumps the product counters.
func (s *Store) ApplyMonitorEvent(ev models.MonitorEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Build a new backing array; slices handed out earlier stay untouched.
	n := len(s.state.Events) + 1
	if n > FeedCapacity {
		n = FeedCapacity
	}
	feed := make([]models.MonitorEvent, 0, n)
	feed = append(feed, ev)
	feed = append(feed, s.state.Events[:n-1]...)
	s.state.Events = feed

	s.state.Stats.TotalProductsFound++
	if ev.IsHighPriority() {
		s.state.Stats.HighPriorityFound++
	}

	s.broadcastLocked(Update{Type: UpdateEvents, Op: "monitor_event", Payload: ev})
}

// ApplyTaskUpdate merges patch into the task with the given id.
// Unknown ids are ignored; a partial update never creates a task.
func (s *Store) ApplyTaskUpdate(id string, patch models.TaskPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.state.Tasks[id]
	if !ok {
		return
	}
	s.state.Tasks[id] = task.Merge(patch)

	s.broadcastLocked(Update{Type: UpdateTasks, Op: "task_update", Payload: id})
}

// ApplyStatusSnapshot writes every provided field of patch into the stats.
func (s *Store) ApplyStatusSnapshot(patch models.StatusPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Stats = s.state.Stats.Apply(patch)

	s.broadcastLocked(Update{Type: UpdateStats, Op: "status_snapshot", Payload: patch})
}

// ApplyBulkReplace replaces the whole named collection with an authoritative snapshot.
func (s *Store) ApplyBulkReplace(c Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch v := c.(type) {
	case TaskList:
		tasks := make(map[string]models.Task, len(v))
		for _, t := range v {
			tasks[t.ID] = t
		}
		s.state.Tasks = tasks
	case StoreHealthMap:
		health := make(map[string]models.StoreHealth, len(v))
		for k, h := range v {
			health[k] = h
		}
		s.state.Stats.StoreHealth = health
	case EventHistory:
		n := len(v)
		if n > FeedCapacity {
			n = FeedCapacity
		}
		feed := make([]models.MonitorEvent, n)
		copy(feed, v[:n])
		s.state.Events = feed
	default:
		return
	}

	s.broadcastLocked(Update{Type: c.updateType(), Op: "bulk_replace", Payload: c})
}

// SetConnected records push channel connectivity.
func (s *Store) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Stats.Connected == connected {
		return
	}
	s.state.Stats.Connected = connected

	s.broadcastLocked(Update{Type: UpdateConnectivity, Op: "connectivity", Payload: connected})
}

// MarkTaskStarted optimistically marks a task as running before the remote confirms.
func (s *Store) MarkTaskStarted(id string) {
	status := models.TaskRunning
	s.ApplyTaskUpdate(id, models.TaskPatch{Status: &status})
}

// MarkTaskStopped optimistically marks a task as stopped before the remote confirms.
func (s *Store) MarkTaskStopped(id string) {
	status := models.TaskStopped
	s.ApplyTaskUpdate(id, models.TaskPatch{Status: &status})
}

// broadcastLocked must be called with s.mu held.
func (s *Store) broadcastLocked(u Update) {
	for ch := range s.subscribers {
		select {
		case ch <- u:
		default:
			// Non-blocking send so a slow observer never stalls a producer
		}
	}
}

// Subscribe creates a new subscription channel for state updates.
func (s *Store) Subscribe() chan Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Update, 100) // Buffered
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(ch chan Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; !ok {
		return
	}
	delete(s.subscribers, ch)
	close(ch)
}

// Close ends the store's lifecycle by closing every subscription.
// Mutators keep working afterwards but nobody is notified.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}
