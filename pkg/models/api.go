package models

import "time"

// EngineStatus is the /api/engine/status snapshot.
type EngineStatus struct {
	Running     bool      `json:"running"`
	ActiveTasks int       `json:"active_tasks"`
	StartedAt   time.Time `json:"started_at,omitempty"`
}

// MonitorStatus is the /api/monitor/status snapshot.
type MonitorStatus struct {
	Running            bool          `json:"running"`
	TotalProductsFound int           `json:"total_products_found"`
	HighPriorityFound  int           `json:"high_priority_found"`
	Stores             []StoreHealth `json:"stores"`
}

// CheckoutAnalytics is the /api/analytics/checkouts snapshot.
type CheckoutAnalytics struct {
	Checkouts   int     `json:"checkouts"`
	Declines    int     `json:"declines"`
	SuccessRate float64 `json:"success_rate"`
}

// APIError is the structured error body returned by the remote service.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// StatusPatch converts the engine snapshot into a store patch.
func (s EngineStatus) StatusPatch() StatusPatch {
	return StatusPatch{EngineRunning: Bool(s.Running)}
}

// StatusPatch converts the monitor snapshot into a store patch. Store health
// is not part of the patch; it is an authoritative collection, see StoreHealthMap.
func (s MonitorStatus) StatusPatch() StatusPatch {
	return StatusPatch{
		MonitorRunning:     Bool(s.Running),
		TotalProductsFound: Int(s.TotalProductsFound),
		HighPriorityFound:  Int(s.HighPriorityFound),
	}
}

// StoreHealthMap indexes the reported stores by id.
func (s MonitorStatus) StoreHealthMap() map[string]StoreHealth {
	out := make(map[string]StoreHealth, len(s.Stores))
	for _, st := range s.Stores {
		out[st.StoreID] = st
	}
	return out
}

// StatusPatch converts the analytics snapshot into a store patch.
func (a CheckoutAnalytics) StatusPatch() StatusPatch {
	return StatusPatch{
		Checkouts: Int(a.Checkouts),
		Declines:  Int(a.Declines),
	}
}
