package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scraibe/internal/ipc"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "job <id>",
		Short: "Show a tracked job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Job(strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if !resp.Found {
					return fmt.Errorf("job %s not found (only active and recent jobs are tracked)", args[0])
				}
				if jsonOutput {
					return writeJSON(cmd, resp.Job)
				}
				job := resp.Job
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:        %s\n", job.ID)
				fmt.Fprintf(out, "Task:      %s\n", job.Task)
				fmt.Fprintf(out, "Receiver:  %s\n", job.Receiver)
				fmt.Fprintf(out, "Status:    %s\n", job.Status)
				fmt.Fprintf(out, "Submitted: %s\n", job.SubmittedAt)
				if job.StartedAt != "" {
					fmt.Fprintf(out, "Started:   %s\n", job.StartedAt)
				}
				if job.FinishedAt != "" {
					fmt.Fprintf(out, "Finished:  %s\n", job.FinishedAt)
				}
				fmt.Fprintf(out, "Elapsed:   %s\n", formatElapsed(job.ElapsedMs))
				for i, input := range job.Inputs {
					fmt.Fprintf(out, "Input %d:   %s\n", i+1, input)
				}
				if job.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:     %s\n", job.ErrorMessage)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the job as JSON")
	return cmd
}
