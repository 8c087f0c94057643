package connection

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/grovetools/livesync/errors"
)

// ChannelPath is the path of the push channel on the service host.
const ChannelPath = "/ws"

// LocationResolver yields the URL of the push channel.
type LocationResolver interface {
	Resolve() (string, error)
}

// StaticLocation resolves the channel from the configured service URL,
// falling back to the origin the client was loaded from.
type StaticLocation struct {
	ServiceURL string
	Origin     string
}

// Resolve maps http to ws and https to wss and points the path at ChannelPath.
func (l StaticLocation) Resolve() (string, error) {
	base := strings.TrimSpace(l.ServiceURL)
	if base == "" {
		base = strings.TrimSpace(l.Origin)
	}
	if base == "" {
		return "", errors.ConfigInvalid("no service URL or origin configured")
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeConfigInvalid, fmt.Sprintf("invalid service URL %q", base))
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", errors.ConfigInvalid(fmt.Sprintf("unsupported scheme %q in %q", u.Scheme, base))
	}
	if u.Host == "" {
		return "", errors.ConfigInvalid(fmt.Sprintf("service URL %q has no host", base))
	}

	u.Path = ChannelPath
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String(), nil
}
