// Package visibility reports whether the synchronized view is being looked at.
// Pollers slow down while hidden and refresh immediately when shown again.
package visibility

import "sync"

// Source reports the current visibility and notifies on transitions.
type Source interface {
	Visible() bool
	// Subscribe registers fn for visibility transitions and returns a
	// function that removes it.
	Subscribe(fn func(visible bool)) (unsubscribe func())
}

// Always is a Source that is permanently visible. Headless runs use it.
var Always Source = always{}

type always struct{}

func (always) Visible() bool                             { return true }
func (always) Subscribe(func(bool)) (unsubscribe func()) { return func() {} }

// Toggle is a Source flipped explicitly, for example by terminal focus events.
type Toggle struct {
	mu      sync.Mutex
	visible bool
	nextID  int
	subs    map[int]func(bool)
}

// NewToggle creates a Toggle with the given initial visibility.
func NewToggle(visible bool) *Toggle {
	return &Toggle{
		visible: visible,
		subs:    make(map[int]func(bool)),
	}
}

// Visible returns the current visibility.
func (t *Toggle) Visible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visible
}

// Set changes the visibility. Subscribers are called only on an actual transition.
func (t *Toggle) Set(visible bool) {
	t.mu.Lock()
	if t.visible == visible {
		t.mu.Unlock()
		return
	}
	t.visible = visible
	subs := make([]func(bool), 0, len(t.subs))
	for _, fn := range t.subs {
		subs = append(subs, fn)
	}
	t.mu.Unlock()

	// Called outside the lock so subscribers may read Visible().
	for _, fn := range subs {
		fn(visible)
	}
}

// Subscribe registers fn for transitions.
func (t *Toggle) Subscribe(fn func(bool)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subs, id)
	}
}
