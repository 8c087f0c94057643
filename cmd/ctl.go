package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/livesync/pkg/inspect"
	"github.com/grovetools/livesync/pkg/models"
	"github.com/spf13/cobra"
)

// newCtlCmd drives a running instance through its inspect socket.
func newCtlCmd() *cobra.Command {
	var socket string

	cmd := &cobra.Command{
		Use:   "ctl",
		Short: "Control a running 'livesync run --inspect'",
	}
	cmd.PersistentFlags().StringVar(&socket, "socket", "", "Inspect socket path (default from config)")

	client := func(cmd *cobra.Command) (*inspect.Client, error) {
		cfg, _, _, err := setup(cmd)
		if err != nil {
			return nil, err
		}
		if socket == "" {
			socket = cfg.InspectSocket()
		}
		return inspect.NewClient(socket), nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "refetch <resource>",
		Short: "Fetch one resource now (engine, monitor, analytics, tasks, events)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client(cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			return c.Refetch(cmd.Context(), args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reconnect",
		Short: "Reopen the push channel, also after it gave up",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client(cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			return c.Reconnect(cmd.Context())
		},
	})

	for _, action := range []string{"start", "stop"} {
		action := action
		cmd.AddCommand(&cobra.Command{
			Use:   action + " <task-id>",
			Short: fmt.Sprintf("Ask the service to %s a task", action),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := client(cmd)
				if err != nil {
					return err
				}
				defer c.Close()
				if err := c.TaskAction(cmd.Context(), args[0], action); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: sent\n", action, args[0])
				return nil
			},
		})
	}

	var priority, query string
	var stores []string
	events := &cobra.Command{
		Use:   "events",
		Short: "List the event feed, newest first",
		Example: `livesync ctl events --priority high
livesync ctl events --store 'shop-*' --store '!shop-eu'
livesync ctl events -q "limited edition"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client(cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			evs, err := c.Events(cmd.Context(), models.Priority(priority), stores, query)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(out).Encode(evs)
			}
			for _, ev := range evs {
				fmt.Fprintf(out, "%s  %-6s  %-14s  %s\n",
					ev.DetectedAt.Local().Format("2006-01-02 15:04:05"), ev.Priority, ev.Store, ev.ProductTitle)
			}
			return nil
		},
	}
	events.Flags().StringVar(&priority, "priority", "", "Only this priority (high, medium, low)")
	events.Flags().StringArrayVar(&stores, "store", nil, "Store pattern, repeatable; a leading ! excludes")
	events.Flags().StringVarP(&query, "query", "q", "", "Text matched against title and keywords")
	cmd.AddCommand(events)

	return cmd
}
