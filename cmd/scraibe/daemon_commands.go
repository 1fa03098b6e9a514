package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"scraibe/internal/daemonctl"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the scraibe daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			result, err := daemonctl.EnsureStarted(ctx.socketPath(), exe, daemonctl.LaunchOptions{
				ConfigPath: ctx.configPath(),
				LogLevel:   ctx.logLevel(),
			}, 10*time.Second)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			if result.AlreadyRunning {
				fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", result.PID)
				return nil
			}
			fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			return nil
		},
	}

	var grace time.Duration
	var force bool
	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon after in-flight jobs finish",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(cfg, grace, force)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			switch {
			case result.ForcedKill:
				fmt.Fprintf(stdout, "Daemon killed (pid %d); running jobs were abandoned\n", result.PID)
			case result.Stopped:
				fmt.Fprintln(stdout, "Daemon stopped")
			default:
				fmt.Fprintf(stdout, "Shutdown requested; daemon is finishing %d in-flight job(s)\n", result.InFlight)
			}
			return nil
		},
	}
	stopCmd.Flags().DurationVar(&grace, "wait", 30*time.Second, "How long to wait for in-flight jobs")
	stopCmd.Flags().BoolVar(&force, "force", false, "Kill the daemon if it is still running after --wait")

	var jsonOutput bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status := daemonctl.BuildStatusSnapshot(cmd.Context(), cfg)
			if jsonOutput {
				return writeJSON(cmd, status.DaemonStatus)
			}
			stdout := cmd.OutOrStdout()
			renderStatus(stdout, status.DaemonStatus, shouldColorize(stdout))
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print status as JSON")

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}
