package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scraibe/internal/ipc"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	var receiver string
	cmd := &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test ntfy alert and, with --to, a test mail",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification(receiver)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch {
				case resp.Message != "":
					fmt.Fprintln(out, resp.Message)
				case resp.Sent:
					fmt.Fprintln(out, "Test notification sent")
				default:
					fmt.Fprintln(out, "Notification not sent")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&receiver, "to", "", "Also send a test mail to this address")
	return cmd
}
