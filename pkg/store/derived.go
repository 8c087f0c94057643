package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/grovetools/livesync/pkg/models"
	"github.com/moby/patternmatcher"
)

// Derived views are recomputed from the state on every call and never cached.

// HighPriorityCount returns the number of high-priority events in the feed.
func (s *Store) HighPriorityCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, ev := range s.state.Events {
		if ev.IsHighPriority() {
			n++
		}
	}
	return n
}

// DistinctStoreCount returns the number of distinct stores that appear in the feed.
func (s *Store) DistinctStoreCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, ev := range s.state.Events {
		seen[ev.Store] = struct{}{}
	}
	return len(seen)
}

// RunningTaskCount returns the number of tasks currently running.
func (s *Store) RunningTaskCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, t := range s.state.Tasks {
		if t.IsActive() {
			n++
		}
	}
	return n
}

// EventFilter selects a subset of the feed. Zero fields match everything.
type EventFilter struct {
	Priority models.Priority
	// StorePatterns are dockerignore-style patterns matched against the
	// store id; a leading "!" excludes.
	StorePatterns []string
	// Query is matched case-insensitively against the product title and keywords.
	Query string
	Since time.Time
}

// FilterEvents returns the feed entries matching f, newest first.
func (s *Store) FilterEvents(f EventFilter) ([]models.MonitorEvent, error) {
	var pm *patternmatcher.PatternMatcher
	if len(f.StorePatterns) > 0 {
		var err error
		pm, err = patternmatcher.New(f.StorePatterns)
		if err != nil {
			return nil, fmt.Errorf("invalid store pattern: %w", err)
		}
	}
	query := strings.ToLower(strings.TrimSpace(f.Query))

	events := s.Events()
	result := make([]models.MonitorEvent, 0, len(events))
	for _, ev := range events {
		if f.Priority != "" && ev.Priority != f.Priority {
			continue
		}
		if !f.Since.IsZero() && ev.DetectedAt.Before(f.Since) {
			continue
		}
		if query != "" && !matchesQuery(ev, query) {
			continue
		}
		if pm != nil {
			ok, err := pm.MatchesOrParentMatches(ev.Store)
			if err != nil {
				return nil, fmt.Errorf("match store %q: %w", ev.Store, err)
			}
			if !ok {
				continue
			}
		}
		result = append(result, ev)
	}
	return result, nil
}

func matchesQuery(ev models.MonitorEvent, query string) bool {
	if strings.Contains(strings.ToLower(ev.ProductTitle), query) {
		return true
	}
	for _, kw := range ev.Keywords {
		if strings.Contains(strings.ToLower(kw), query) {
			return true
		}
	}
	return false
}
