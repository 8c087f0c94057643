package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/grovetools/livesync/pkg/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefsOperations(t *testing.T) {
	f := Open(filepath.Join(t.TempDir(), "state", "prefs.yml"))

	p, err := f.Load()
	require.NoError(t, err)
	assert.Empty(t, p)

	assert.False(t, f.SoundEnabled(), "sound is off by default")
	assert.Equal(t, LayoutFull, f.Layout())

	require.NoError(t, f.SetString(KeySound, "true"))
	assert.True(t, f.SoundEnabled())

	on, err := f.ToggleSound()
	require.NoError(t, err)
	assert.False(t, on)
	assert.False(t, f.SoundEnabled())

	require.NoError(t, f.SetString(KeyLayout, LayoutCompact))
	assert.Equal(t, LayoutCompact, f.Layout())

	require.NoError(t, f.SetString("theme", "gruvbox"))
	val, ok, err := f.Get("theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "gruvbox", val)

	p, err = f.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{KeyLayout, KeySound, "theme"}, p.Keys())

	require.NoError(t, f.Delete("theme"))
	_, ok, err = f.Get("theme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrefsValidation(t *testing.T) {
	f := Open(filepath.Join(t.TempDir(), "prefs.yml"))

	assert.Error(t, f.SetString(KeySound, "loud"))
	assert.Error(t, f.Set(KeySound, "yes"))
	assert.Error(t, f.SetString(KeyLayout, "sideways"))
	assert.NoFileExists(t, f.Path(), "rejected values are not written")
}

func TestPrefsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yml")
	require.NoError(t, os.WriteFile(path, []byte("sound: [unclosed"), 0644))
	f := Open(path)

	_, err := f.Load()
	assert.Error(t, err)
	assert.False(t, f.SoundEnabled())
}

func TestDefaultLocation(t *testing.T) {
	t.Setenv(paths.HomeEnv, t.TempDir())
	assert.Equal(t, paths.PrefsPath(), Default().Path())
}
