package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"chime/internal/ipc"
	"chime/internal/stats"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show ring statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := stats.Open(cfg)
			if err != nil {
				return fmt.Errorf("open stats: %w", err)
			}
			defer store.Close()

			if reset {
				if err := store.Reset(cmd.Context()); err != nil {
					return fmt.Errorf("reset stats: %w", err)
				}
				fmt.Fprintln(stdout, "Statistics reset")
				return nil
			}

			snap, err := store.Read(cmd.Context())
			if err != nil {
				return fmt.Errorf("read stats: %w", err)
			}
			fmt.Fprint(stdout, renderStatsTable(snap))
			fmt.Fprintln(stdout)
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Reset all statistics to zero")
	return cmd
}

func renderStatsTable(snap ipc.StatsSnapshot) string {
	lastRing := "never"
	if snap.LastRing != nil {
		lastRing = snap.LastRing.Local().Format(time.DateTime)
	}

	return renderMetricTable([][2]string{
		{"Total rings", strconv.FormatUint(snap.TotalRings, 10)},
		{"Days active", strconv.FormatUint(snap.DaysActive, 10)},
		{"Current streak", fmt.Sprintf("%d days", snap.CurrentStreak)},
		{"Longest streak", fmt.Sprintf("%d days", snap.LongestStreak)},
		{"Last ring", lastRing},
	})
}
