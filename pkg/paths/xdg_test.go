package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortableHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	assert.Equal(t, filepath.Join(home, "config", "livesync"), ConfigDir())
	assert.Equal(t, filepath.Join(home, "state", "livesync"), StateDir())
	assert.Equal(t, filepath.Join(home, "run", "livesync.sock"), SocketPath())
	assert.Equal(t, filepath.Join(home, "state", "livesync", "livesync.pid"), PidFilePath())
	assert.Equal(t, filepath.Join(home, "state", "livesync", "prefs.yml"), PrefsPath())
	assert.Equal(t, filepath.Join(home, "config", "livesync", "livesync.yml"), GlobalConfigPath())

	assert.NoError(t, EnsureDirs())
	assert.DirExists(t, ConfigDir())
	assert.DirExists(t, RuntimeDir())
}

func TestXDGVariables(t *testing.T) {
	t.Setenv(HomeEnv, "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_STATE_HOME", "/xdg/state")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	assert.Equal(t, "/xdg/config/livesync", ConfigDir())
	assert.Equal(t, "/xdg/state/livesync", StateDir())
	assert.Equal(t, "/xdg/state/livesync/logs", LogDir())
	assert.Equal(t, "/run/user/1000/livesync/livesync.sock", SocketPath())
}
