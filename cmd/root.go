package cmd

import (
	"github.com/grovetools/livesync/cli"
	"github.com/grovetools/livesync/logging"
	"github.com/grovetools/livesync/pkg/profiling"
	"github.com/spf13/cobra"
)

var profiler = profiling.New()

// NewRootCmd assembles the livesync command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand(
		"livesync",
		"Real-time sync client for a remote product monitor",
	)
	root.Long = `Keeps a local view of a remote monitor service fresh by combining a
WebSocket push channel with adaptive polling, and shows it headless, in a
terminal dashboard, or through a local inspect socket.`

	profiler.AddFlags(root)
	root.PersistentPreRunE = profiler.Start

	root.AddCommand(newRunCmd())
	root.AddCommand(newDashCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newCtlCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newPrefsCmd())
	root.AddCommand(cli.NewVersionCommand())
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	c, err := root.ExecuteC()
	profiler.Stop(logging.NewLogger("livesync"))
	if err != nil {
		cli.NewErrorHandler(cli.GetOptions(c)).Handle(err)
		return 1
	}
	return 0
}
