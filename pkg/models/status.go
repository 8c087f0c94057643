package models

import "time"

// StoreHealth describes the remote view of one monitored store.
type StoreHealth struct {
	StoreID       string    `json:"store_id"`
	Name          string    `json:"name,omitempty"`
	Shopify       bool      `json:"shopify"`
	RateLimited   bool      `json:"rate_limited"`
	ErrorCount    int       `json:"error_count,omitempty"`
	LastCheckedAt time.Time `json:"last_checked_at,omitempty"`
}

// Stats is the aggregate counters and connectivity flags of the reconciled view.
type Stats struct {
	Connected          bool                   `json:"connected"`
	EngineRunning      bool                   `json:"engine_running"`
	MonitorRunning     bool                   `json:"monitor_running"`
	TotalProductsFound int                    `json:"total_products_found"`
	HighPriorityFound  int                    `json:"high_priority_found"`
	Checkouts          int                    `json:"checkouts"`
	Declines           int                    `json:"declines"`
	StoreHealth        map[string]StoreHealth `json:"store_health"`
}

// StatusPatch is a partial update of Stats. Nil fields and a nil StoreHealth
// map are left untouched; a provided map is merged per store.
type StatusPatch struct {
	Connected          *bool                  `json:"connected,omitempty"`
	EngineRunning      *bool                  `json:"engine_running,omitempty"`
	MonitorRunning     *bool                  `json:"monitor_running,omitempty"`
	TotalProductsFound *int                   `json:"total_products_found,omitempty"`
	HighPriorityFound  *int                   `json:"high_priority_found,omitempty"`
	Checkouts          *int                   `json:"checkouts,omitempty"`
	Declines           *int                   `json:"declines,omitempty"`
	StoreHealth        map[string]StoreHealth `json:"store_health,omitempty"`
}

// Apply returns s with every provided field of p written over it.
// The StoreHealth map of the result is always a fresh copy.
func (s Stats) Apply(p StatusPatch) Stats {
	if p.Connected != nil {
		s.Connected = *p.Connected
	}
	if p.EngineRunning != nil {
		s.EngineRunning = *p.EngineRunning
	}
	if p.MonitorRunning != nil {
		s.MonitorRunning = *p.MonitorRunning
	}
	if p.TotalProductsFound != nil {
		s.TotalProductsFound = *p.TotalProductsFound
	}
	if p.HighPriorityFound != nil {
		s.HighPriorityFound = *p.HighPriorityFound
	}
	if p.Checkouts != nil {
		s.Checkouts = *p.Checkouts
	}
	if p.Declines != nil {
		s.Declines = *p.Declines
	}

	health := make(map[string]StoreHealth, len(s.StoreHealth)+len(p.StoreHealth))
	for k, v := range s.StoreHealth {
		health[k] = v
	}
	for k, v := range p.StoreHealth {
		health[k] = v
	}
	s.StoreHealth = health
	return s
}

// Bool returns a pointer to v, for building patches.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v, for building patches.
func Int(v int) *int { return &v }
