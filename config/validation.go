package config

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/grovetools/livesync/errors"
	"github.com/grovetools/livesync/internal/resource"
)

var serviceSchemes = map[string]bool{"http": true, "https": true, "ws": true, "wss": true}

// Validate checks semantic constraints the schema cannot express.
func (c *Config) Validate() error {
	for field, raw := range map[string]string{"service.url": c.Service.URL, "service.origin": c.Service.Origin} {
		if raw == "" {
			continue
		}
		if err := validateServiceURL(raw); err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigValidation, fmt.Sprintf("invalid %s", field)).
				WithDetail("field", field).
				WithDetail("value", raw)
		}
	}

	r := c.Channel.Reconnect
	if r.BaseDelay > 0 && r.MaxDelay > 0 && r.MaxDelay < r.BaseDelay {
		return errors.New(errors.ErrCodeConfigValidation, "channel.reconnect.max_delay must not be smaller than base_delay").
			WithDetail("base_delay", r.BaseDelay.String()).
			WithDetail("max_delay", r.MaxDelay.String())
	}

	known := resource.DefaultCadences()
	names := make([]string, 0, len(c.Polling.Resources))
	for name := range c.Polling.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := known[name]; !ok {
			return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("unknown polling resource '%s'", name)).
				WithDetail("resource", name)
		}
		cad := c.Polling.Resources[name]
		if cad.Active < 0 || cad.Hidden < 0 {
			return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("intervals for '%s' must be positive", name)).
				WithDetail("resource", name)
		}
	}

	return nil
}

func validateServiceURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if !serviceSchemes[u.Scheme] {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
