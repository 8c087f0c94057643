package poller

import (
	"time"

	"github.com/grovetools/livesync/errors"
)

// Health is the type-erased status of a poller, for badges and the inspect API.
type Health struct {
	Name          string            `json:"name"`
	Enabled       bool              `json:"enabled"`
	HasData       bool              `json:"has_data"`
	IsLoading     bool              `json:"is_loading"`
	LastUpdatedAt time.Time         `json:"last_updated_at,omitempty"`
	Error         *errors.SyncError `json:"error,omitempty"`
}

// Handle is the part of a Poller that does not depend on its data type.
type Handle interface {
	Name() string
	Start()
	Refetch()
	SetEnabled(enabled bool)
	Enabled() bool
	Close()
	Health() Health
}

// Health returns the type-erased status.
func (p *Poller[T]) Health() Health {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Health{
		Name:          p.name,
		Enabled:       p.enabled,
		HasData:       p.state.HasData,
		IsLoading:     p.state.IsLoading,
		LastUpdatedAt: p.state.LastUpdatedAt,
		Error:         p.state.Err,
	}
}

var _ Handle = (*Poller[struct{}])(nil)
