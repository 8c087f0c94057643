package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("LIVESYNC_TEST_DIR", "/var/run/livesync")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", home},
		{"~/logs/livesync.log", filepath.Join(home, "logs", "livesync.log")},
		{"$LIVESYNC_TEST_DIR/s.sock", "/var/run/livesync/s.sock"},
		{"relative/./file", "relative/file"},
		{"~user/file", "~user/file"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Expand(tt.in), tt.in)
	}
}
