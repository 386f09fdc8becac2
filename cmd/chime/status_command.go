package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chime/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon state and ring statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			socket := ctx.socketPath()
			client, err := ipc.Dial(socket)
			if err != nil {
				if errors.Is(err, ipc.ErrDaemonNotRunning) {
					fmt.Fprintln(stdout, renderStatusLine("Chime", statusWarn, "Not running (run `chime start`)", colorize))
					return nil
				}
				return wrapDialError(err, socket)
			}

			resp, err := client.Status()
			if err != nil {
				return err
			}
			if resp.Type != ipc.ResponseStatus || resp.Status == nil {
				return fmt.Errorf("unexpected daemon reply: %s %s", resp.Type, resp.Message)
			}
			info := resp.Status

			for _, line := range renderSectionHeader("Bell Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, renderStatusLine("State", stateStatusKind(info.State), stateDetail(info), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Interval", statusInfo, fmt.Sprintf("%d minutes", info.IntervalMins), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Session rings", statusInfo, fmt.Sprintf("%d", info.SessionRings), colorize))
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Statistics", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprint(stdout, renderStatsTable(info.Stats))
			fmt.Fprintln(stdout)
			return nil
		},
	}
}

func stateStatusKind(state string) statusKind {
	switch state {
	case "running":
		return statusOK
	case "paused", "locked":
		return statusWarn
	default:
		return statusInfo
	}
}

func stateDetail(info *ipc.StatusInfo) string {
	switch info.State {
	case "running":
		if info.NextRingSecs != nil {
			return fmt.Sprintf("Running (next ring in %s)", formatCountdown(*info.NextRingSecs))
		}
		return "Running"
	case "paused":
		return "Paused"
	case "locked":
		return "Paused (session locked)"
	default:
		return info.State
	}
}

func formatCountdown(secs uint64) string {
	d := time.Duration(secs) * time.Second
	if d >= time.Minute {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}
