package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scraibe/internal/textutil"
)

func newSanitizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "sanitize <name>...",
		Short:       "Print the artifact file name scraibe would derive from each input",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, arg := range args {
				fmt.Fprintln(out, textutil.BaseName(arg))
			}
			return nil
		},
	}
}
