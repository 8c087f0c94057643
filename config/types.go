package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Config is the root of livesync.yml / livesync.toml.
type Config struct {
	Version string        `yaml:"version,omitempty" toml:"version,omitempty" json:"version,omitempty" jsonschema:"description=Configuration version (e.g. '1.0')"`
	Service ServiceConfig `yaml:"service,omitempty" toml:"service,omitempty" json:"service,omitempty" jsonschema:"description=Remote service the client synchronizes with"`
	Channel ChannelConfig `yaml:"channel,omitempty" toml:"channel,omitempty" json:"channel,omitempty" jsonschema:"description=Push channel settings"`
	Polling PollingConfig `yaml:"polling,omitempty" toml:"polling,omitempty" json:"polling,omitempty" jsonschema:"description=Pull-side polling settings"`
	Inspect InspectConfig `yaml:"inspect,omitempty" toml:"inspect,omitempty" json:"inspect,omitempty" jsonschema:"description=Local inspect server"`

	// Extensions captures all other top-level keys (e.g. logging).
	Extensions map[string]interface{} `yaml:",inline" toml:"-" json:"-" jsonschema:"-"`
}

// ServiceConfig locates the remote service.
type ServiceConfig struct {
	// URL is the explicit service URL. When empty, Origin is used.
	URL               string  `yaml:"url,omitempty" toml:"url,omitempty" json:"url,omitempty" jsonschema:"description=Service URL (http, https, ws or wss)"`
	Origin            string  `yaml:"origin,omitempty" toml:"origin,omitempty" json:"origin,omitempty" jsonschema:"description=Fallback origin when url is empty"`
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty" toml:"requests_per_second,omitempty" json:"requests_per_second,omitempty" jsonschema:"minimum=0,description=Outgoing request budget; 0 means unlimited"`
	Burst             int     `yaml:"burst,omitempty" toml:"burst,omitempty" json:"burst,omitempty" jsonschema:"minimum=0"`
}

// ChannelConfig tunes the push channel.
type ChannelConfig struct {
	HeartbeatInterval Duration        `yaml:"heartbeat_interval,omitempty" toml:"heartbeat_interval,omitempty" json:"heartbeat_interval,omitempty"`
	Reconnect         ReconnectConfig `yaml:"reconnect,omitempty" toml:"reconnect,omitempty" json:"reconnect,omitempty"`
}

// ReconnectConfig mirrors connection.ReconnectPolicy with string durations.
type ReconnectConfig struct {
	MaxAttempts int      `yaml:"max_attempts,omitempty" toml:"max_attempts,omitempty" json:"max_attempts,omitempty" jsonschema:"minimum=0"`
	BaseDelay   Duration `yaml:"base_delay,omitempty" toml:"base_delay,omitempty" json:"base_delay,omitempty"`
	MaxDelay    Duration `yaml:"max_delay,omitempty" toml:"max_delay,omitempty" json:"max_delay,omitempty"`
}

// PollingConfig overrides poller cadences per resource.
type PollingConfig struct {
	EventHistoryLimit int                      `yaml:"event_history_limit,omitempty" toml:"event_history_limit,omitempty" json:"event_history_limit,omitempty" jsonschema:"minimum=0"`
	Resources         map[string]CadenceConfig `yaml:"resources,omitempty" toml:"resources,omitempty" json:"resources,omitempty" jsonschema:"description=Per-resource intervals keyed by engine, monitor, analytics, tasks or events"`
}

// CadenceConfig is the active/hidden interval pair of one poller.
type CadenceConfig struct {
	Active Duration `yaml:"active,omitempty" toml:"active,omitempty" json:"active,omitempty"`
	Hidden Duration `yaml:"hidden,omitempty" toml:"hidden,omitempty" json:"hidden,omitempty"`
}

// InspectConfig controls the unix-socket inspect server.
type InspectConfig struct {
	Enabled bool   `yaml:"enabled,omitempty" toml:"enabled,omitempty" json:"enabled,omitempty"`
	Socket  string `yaml:"socket,omitempty" toml:"socket,omitempty" json:"socket,omitempty" jsonschema:"description=Socket path; defaults to the runtime dir"`
}

// SetDefaults fills values the user left out.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Channel.HeartbeatInterval == 0 {
		c.Channel.HeartbeatInterval = Duration(defaultHeartbeat)
	}
	if c.Polling.EventHistoryLimit == 0 {
		c.Polling.EventHistoryLimit = defaultEventHistoryLimit
	}
	if c.Service.Burst == 0 && c.Service.RequestsPerSecond > 0 {
		c.Service.Burst = 1
	}
}

// UnmarshalExtension decodes a top-level extension section (for example
// "logging") into target, which must be a pointer. A missing key leaves
// target untouched.
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}
	return nil
}
