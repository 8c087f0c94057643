// Package paths provides XDG-compliant path resolution for livesync.
//
// Resolution order:
// 1. LIVESYNC_HOME (portable root) → $LIVESYNC_HOME/{config,state,run}
// 2. XDG env vars → $XDG_*_HOME/livesync
// 3. Platform defaults → ~/.config/livesync, ~/.local/state/livesync
package paths

import (
	"os"
	"path/filepath"
)

const appName = "livesync"

// HomeEnv overrides every directory with a single portable root.
const HomeEnv = "LIVESYNC_HOME"

func getConfigHome() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return filepath.Join(home, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

func getStateHome() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return filepath.Join(home, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// ConfigDir returns the livesync configuration directory.
func ConfigDir() string {
	base := getConfigHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// StateDir returns the livesync state directory.
// Used for preferences, logs and the pid file.
func StateDir() string {
	base := getStateHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// LogDir returns the default directory for log files.
func LogDir() string {
	state := StateDir()
	if state == "" {
		return ""
	}
	return filepath.Join(state, "logs")
}

// RuntimeDir returns the directory for the inspect socket.
// Uses XDG_RUNTIME_DIR when available (Linux), falls back to StateDir (macOS).
func RuntimeDir() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return filepath.Join(home, "run")
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return StateDir()
}

// SocketPath returns the default path of the inspect server socket.
func SocketPath() string {
	return filepath.Join(RuntimeDir(), "livesync.sock")
}

// PidFilePath returns the path of the pid file guarding the inspect server.
func PidFilePath() string {
	return filepath.Join(StateDir(), "livesync.pid")
}

// PrefsPath returns the path of the preferences file.
func PrefsPath() string {
	return filepath.Join(StateDir(), "prefs.yml")
}

// GlobalConfigPath returns the user-wide config file.
func GlobalConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "livesync.yml")
}

// EnsureDirs creates the livesync directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir(), RuntimeDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
