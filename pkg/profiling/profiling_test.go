package profiling

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfilesWritten(t *testing.T) {
	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu.pprof")
	mem := filepath.Join(dir, "mem.pprof")

	p := New()
	cmd := &cobra.Command{Use: "x", Run: func(*cobra.Command, []string) {}}
	p.AddFlags(cmd)
	require.NoError(t, cmd.PersistentFlags().Parse([]string{"--cpu-profile", cpu, "--mem-profile", mem}))

	require.NoError(t, p.Start(cmd, nil))
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	p.Stop(logrus.NewEntry(logger))

	for _, path := range []string{cpu, mem} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.NotZero(t, info.Size())
	}
}

func TestDisabledIsNoop(t *testing.T) {
	p := New()
	require.NoError(t, p.Start(nil, nil))
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	p.Stop(logrus.NewEntry(logger))
}
