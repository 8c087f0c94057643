package cmd

import (
	"fmt"

	"github.com/grovetools/livesync/pkg/prefs"
	"github.com/spf13/cobra"
)

func newPrefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Read and change user preferences",
		Long: `Preferences live in the state directory and are shared by every
livesync process. Known keys: sound (true/false), layout (full/compact).`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [key]",
		Short: "Print one preference, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := prefs.Default()
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				val, ok, err := f.Get(args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("preference %q is not set", args[0])
				}
				fmt.Fprintln(out, val)
				return nil
			}

			p, err := f.Load()
			if err != nil {
				return err
			}
			for _, k := range p.Keys() {
				fmt.Fprintf(out, "%s: %v\n", k, p[k])
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return prefs.Default().SetString(args[0], args[1])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return prefs.Default().Delete(args[0])
		},
	})

	return cmd
}
