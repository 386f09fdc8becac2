package main

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/spf13/cobra"

	"chime/internal/audio"
	"chime/internal/ipc"
	"chime/internal/logging"
)

func newBellCommands(ctx *commandContext) []*cobra.Command {
	pauseCmd := &cobra.Command{
		Use:   "pause",
		Short: "Pause scheduled bell reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Pause()
				if err != nil {
					return err
				}
				if err := responseError(resp); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Bell paused")
				return nil
			})
		},
	}

	resumeCmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume scheduled bell reminders with a fresh countdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Resume()
				if err != nil {
					return err
				}
				if err := responseError(resp); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Bell resumed")
				return nil
			})
		},
	}

	ringCmd := &cobra.Command{
		Use:   "ring",
		Short: "Ring the bell immediately",
		Long:  "Ring the bell immediately, even while paused. Without a running daemon the bell is played locally and not recorded.",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			socket := ctx.socketPath()

			client, err := ipc.Dial(socket)
			if err == nil {
				resp, sendErr := client.Ring()
				if sendErr == nil {
					if err := responseError(resp); err != nil {
						return err
					}
					fmt.Fprintln(stdout, "Ring")
					return nil
				}
				if !errors.Is(sendErr, syscall.ECONNREFUSED) && !errors.Is(sendErr, syscall.ENOENT) {
					return sendErr
				}
				// Stale socket; fall through to local playback.
			} else if !errors.Is(err, ipc.ErrDaemonNotRunning) {
				return wrapDialError(err, socket)
			}

			// No daemon: play directly so the command still rings.
			cfg := ctx.configValue()
			volume := 70
			if cfg != nil {
				volume = cfg.Bell.Volume
			}
			player := audio.Detect(volume, logging.NewNop())
			if playErr := player.Play(cmd.Context()); playErr != nil {
				return playErr
			}
			fmt.Fprintln(stdout, "Ring (daemon not running; not recorded)")
			return nil
		},
	}

	reloadCmd := &cobra.Command{
		Use:   "reload",
		Short: "Reload the daemon configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Reload()
				if err != nil {
					return err
				}
				if err := responseError(resp); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Configuration reloaded")
				return nil
			})
		},
	}

	return []*cobra.Command{pauseCmd, resumeCmd, ringCmd, reloadCmd}
}
