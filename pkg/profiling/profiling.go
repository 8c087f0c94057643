// Package profiling adds --cpu-profile and --mem-profile to a command tree.
package profiling

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Profiler holds the profile destinations chosen on the command line.
type Profiler struct {
	cpuPath string
	memPath string
	cpuFile *os.File
}

// New creates a Profiler with profiling disabled.
func New() *Profiler {
	return &Profiler{}
}

// AddFlags registers the profiling flags as persistent flags of cmd.
func (p *Profiler) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&p.cpuPath, "cpu-profile", "", "Write a CPU profile to this file")
	cmd.PersistentFlags().StringVar(&p.memPath, "mem-profile", "", "Write a heap profile to this file on exit")
}

// Start begins CPU profiling if requested. Use it as PersistentPreRunE.
func (p *Profiler) Start(*cobra.Command, []string) error {
	if p.cpuPath == "" || p.cpuFile != nil {
		return nil
	}
	f, err := os.Create(p.cpuPath)
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("could not start CPU profile: %w", err)
	}
	p.cpuFile = f
	return nil
}

// Stop writes the requested profiles. It is safe to call when Start was
// never called or failed.
func (p *Profiler) Stop(logger *logrus.Entry) {
	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		p.cpuFile.Close()
		p.cpuFile = nil
		logger.WithField("path", p.cpuPath).Info("CPU profile written")
	}

	if p.memPath == "" {
		return
	}
	f, err := os.Create(p.memPath)
	if err != nil {
		logger.WithError(err).Error("Could not create heap profile")
		return
	}
	defer f.Close()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		logger.WithError(err).Error("Could not write heap profile")
		return
	}
	logger.WithField("path", p.memPath).Info("Heap profile written")
}
