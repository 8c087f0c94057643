package config

import (
	"bytes"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/grovetools/livesync/errors"
	"github.com/grovetools/livesync/internal/resource"
	"github.com/grovetools/livesync/pkg/connection"
	"github.com/grovetools/livesync/pkg/paths"
	"github.com/grovetools/livesync/util/pathutil"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	defaultHeartbeat         = connection.DefaultHeartbeatInterval
	defaultEventHistoryLimit = 50
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// configNames are the file names searched for, in order, in each directory.
var configNames = []string{
	"livesync.yml",
	"livesync.yaml",
	".livesync.yml",
	".livesync.yaml",
	"livesync.toml",
}

// Default returns a configuration with every default applied and no service set.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// Load reads, validates and applies defaults to a configuration file.
// Files ending in .toml are decoded as TOML, anything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	cfg, err := parse(data, isTOML(path))
	if err != nil {
		if se, ok := errors.As(err); ok {
			return nil, se.WithDetail("path", path)
		}
		return nil, err
	}
	return cfg, nil
}

// LoadFromBytes parses YAML configuration.
func LoadFromBytes(data []byte) (*Config, error) {
	return parse(data, false)
}

// LoadFrom discovers the config file starting at startDir and loads it.
// When no file exists anywhere, the defaults are returned.
func LoadFrom(startDir string) (*Config, string, error) {
	return LoadFromWithLogger(startDir, logrus.New())
}

// LoadFromWithLogger is LoadFrom with discovery logged to logger.
func LoadFromWithLogger(startDir string, logger *logrus.Logger) (*Config, string, error) {
	path, err := FindConfigFile(startDir)
	if err != nil {
		if errors.Is(err, errors.ErrCodeConfigNotFound) {
			logger.WithField("search_path", startDir).Debug("No configuration file found, using defaults")
			return Default(), "", nil
		}
		return nil, "", err
	}

	logger.WithField("path", path).Debug("Loading configuration")
	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		if out, err := yaml.Marshal(cfg); err == nil {
			logger.Debugf("Loaded configuration:\n%s", string(out))
		}
	}
	return cfg, path, nil
}

func parse(data []byte, asTOML bool) (*Config, error) {
	expanded := []byte(expandEnvVars(string(data)))

	var cfg Config
	if asTOML {
		if err := decodeTOML(expanded, &cfg); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration")
		}
	} else {
		if err := yaml.Unmarshal(expanded, &cfg); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
		}
	}

	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create validator")
	}
	if err := validator.Validate(cfg.document()); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigValidation, "schema validation failed")
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// decodeTOML decodes the known sections and keeps every other top-level
// table in Extensions, matching the YAML inline behaviour.
func decodeTOML(data []byte, cfg *Config) error {
	if err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg); err != nil {
		return err
	}

	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		switch key {
		case "version", "service", "channel", "polling", "inspect":
			continue
		}
		if cfg.Extensions == nil {
			cfg.Extensions = make(map[string]interface{})
		}
		cfg.Extensions[key] = value
	}
	return nil
}

// document returns the config as a plain JSON-like map including extensions.
func (c *Config) document() map[string]interface{} {
	doc := make(map[string]interface{}, len(c.Extensions)+5)
	for k, v := range c.Extensions {
		doc[k] = v
	}
	doc["version"] = c.Version
	doc["service"] = c.Service
	doc["channel"] = c.Channel
	doc["polling"] = c.Polling
	doc["inspect"] = c.Inspect
	if c.Version == "" {
		delete(doc, "version")
	}
	return doc
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// FindConfigFile searches for a livesync configuration file with the following precedence:
// 1. startDir up to the filesystem root
// 2. The XDG config directory (~/.config/livesync/livesync.yml)
func FindConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if global := paths.GlobalConfigPath(); global != "" {
		if info, err := os.Stat(global); err == nil && !info.IsDir() {
			return global, nil
		}
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// ReconnectPolicy converts the channel section into a connection policy.
// Zero fields fall back to the connection package defaults.
func (c *Config) ReconnectPolicy() connection.ReconnectPolicy {
	return connection.ReconnectPolicy{
		MaxAttempts: c.Channel.Reconnect.MaxAttempts,
		BaseDelay:   c.Channel.Reconnect.BaseDelay.Std(),
		MaxDelay:    c.Channel.Reconnect.MaxDelay.Std(),
	}
}

// Cadences returns the configured interval overrides keyed by resource name.
// Zero halves are left for resource.Defaults to fill.
func (c *Config) Cadences() map[string]resource.Cadence {
	if len(c.Polling.Resources) == 0 {
		return nil
	}
	out := make(map[string]resource.Cadence, len(c.Polling.Resources))
	for name, rc := range c.Polling.Resources {
		out[name] = resource.Cadence{Active: rc.Active.Std(), Hidden: rc.Hidden.Std()}
	}
	return out
}

// HeartbeatInterval returns the channel heartbeat period.
func (c *Config) HeartbeatInterval() time.Duration {
	return c.Channel.HeartbeatInterval.Std()
}

// InspectSocket returns the configured socket or the runtime default.
func (c *Config) InspectSocket() string {
	if c.Inspect.Socket != "" {
		return pathutil.Expand(c.Inspect.Socket)
	}
	return paths.SocketPath()
}

// APIBaseURL returns the HTTP origin of the pull endpoints. A ws or wss
// service URL maps to http or https. The origin is used when no URL is set.
func (c *Config) APIBaseURL() string {
	raw := strings.TrimSpace(c.Service.URL)
	if raw == "" {
		raw = strings.TrimSpace(c.Service.Origin)
	}
	u, err := url.Parse(raw)
	if err != nil || raw == "" {
		return raw
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	u.Path = strings.TrimRight(u.Path, "/")
	if u.Path == "/ws" {
		u.Path = ""
	}
	return u.String()
}
