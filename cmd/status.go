package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/grovetools/livesync/errors"
	"github.com/grovetools/livesync/internal/pidfile"
	"github.com/grovetools/livesync/pkg/inspect"
	"github.com/grovetools/livesync/pkg/paths"
	"github.com/grovetools/livesync/tui/theme"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var socket string
	var watch bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of a running 'livesync run --inspect'",
		Example: `livesync status
livesync status --watch
livesync status --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, opts, err := setup(cmd)
			if err != nil {
				return err
			}
			if socket == "" {
				socket = cfg.InspectSocket()
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			client := inspect.NewClient(socket)
			defer client.Close()

			if !client.IsRunning(ctx) {
				err := errors.New(errors.ErrCodeTransport, "no running inspect server").
					WithDetail("socket", socket)
				if running, pid, _ := pidfile.IsRunning(paths.PidFilePath()); running {
					err = err.WithDetail("pid", pid)
				}
				return err
			}

			out := cmd.OutOrStdout()
			if !watch {
				snap, err := client.State(ctx)
				if err != nil {
					return err
				}
				return printSnapshot(out, snap, opts.JSONOutput)
			}

			updates, err := client.StreamState(ctx)
			if err != nil {
				return err
			}
			for u := range updates {
				if err := printSnapshot(out, u.Snapshot, opts.JSONOutput); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&socket, "socket", "", "Inspect socket path (default from config)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Print every update until interrupted")
	return cmd
}

func printSnapshot(w io.Writer, snap inspect.Snapshot, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(snap)
	}

	t := theme.DefaultTheme
	conn := string(snap.Connection.Status)
	switch {
	case snap.Connection.GaveUp:
		conn = t.Error.Render(theme.IconDisconnected + " gave up")
	case conn == "open":
		conn = t.Success.Render(theme.IconConnected + " open")
	default:
		conn = t.Warning.Render(theme.IconConnecting + " " + conn)
	}

	fmt.Fprintf(w, "%s %s", t.Bold.Render("Channel:"), conn)
	if !snap.StartedAt.IsZero() {
		fmt.Fprintf(w, "  %s", t.Muted.Render("up "+time.Since(snap.StartedAt).Round(time.Second).String()))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s %d events, %d high priority, %d stores, %d running tasks\n",
		t.Bold.Render("State:"),
		len(snap.State.Events), snap.Derived.HighPriorityCount,
		snap.Derived.DistinctStoreCount, snap.Derived.RunningTaskCount)

	for _, p := range snap.Pollers {
		status := t.Success.Render(theme.IconSuccess)
		detail := ""
		switch {
		case !p.Enabled:
			status = t.Muted.Render(theme.IconBullet)
			detail = "disabled"
		case p.Error != nil:
			status = t.Error.Render(theme.IconError)
			detail = p.Error.Message
		case !p.HasData:
			status = t.Warning.Render(theme.IconWarning)
			detail = "no data yet"
		default:
			detail = "updated " + p.LastUpdatedAt.Local().Format(time.Kitchen)
		}
		fmt.Fprintf(w, "  %s %-10s %s\n", status, p.Name, t.Muted.Render(detail))
	}
	return nil
}
