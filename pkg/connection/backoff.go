package connection

import "time"

// ReconnectPolicy bounds automatic reconnection after the channel closes.
type ReconnectPolicy struct {
	MaxAttempts int           `yaml:"max_attempts" toml:"max_attempts" json:"max_attempts,omitempty"`
	BaseDelay   time.Duration `yaml:"base_delay" toml:"base_delay" json:"base_delay,omitempty"`
	MaxDelay    time.Duration `yaml:"max_delay" toml:"max_delay" json:"max_delay,omitempty"`
}

// DefaultReconnectPolicy returns 10 attempts starting at 1s, capped at 30s.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		MaxAttempts: 10,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultReconnectPolicy.
func (p ReconnectPolicy) withDefaults() ReconnectPolicy {
	def := DefaultReconnectPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = def.MaxDelay
		if p.MaxDelay < p.BaseDelay {
			p.MaxDelay = p.BaseDelay
		}
	}
	return p
}

// Delay returns the wait before reconnect attempt number attempt (0-based):
// BaseDelay doubled attempt times, capped at MaxDelay.
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// BackoffDelay is min(1000 * 2^attempt, 30000) milliseconds.
func BackoffDelay(attempt int) time.Duration {
	return DefaultReconnectPolicy().Delay(attempt)
}
