package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scraibe/internal/ipc"
	"scraibe/internal/jobs"
	langpkg "scraibe/internal/language"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		receiver   string
		task       string
		speakers   int
		translate  bool
		language   string
		successOpt map[string]string
		errorOpt   map[string]string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "submit <audio>...",
		Short: "Queue a transcription job",
		Long: "Queue a transcription job for one or more audio files. Several files form a\n" +
			"batch job whose transcripts keep the order given here. The command returns as\n" +
			"soon as the job is queued; the receiver is notified by mail when it finishes.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := jobs.ParseTask(task)
			if err != nil {
				return err
			}
			req := jobs.Request{
				Audio:          args,
				Receiver:       strings.TrimSpace(receiver),
				Task:           parsed,
				Speakers:       speakers,
				Translate:      translate,
				Language:       language,
				SuccessOptions: optionValues(successOpt),
				ErrorOptions:   optionValues(errorOpt),
			}
			if err := req.Validate(); err != nil {
				return err
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Submit(ipc.SubmitRequest{
					Audio:          req.Audio,
					Receiver:       req.Receiver,
					Task:           string(req.Task),
					Speakers:       req.Speakers,
					Translate:      req.Translate,
					Language:       req.Language,
					SuccessOptions: req.SuccessOptions,
					ErrorOptions:   req.ErrorOptions,
				})
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Job %s queued (%s, %d file(s))\n", resp.ID, parsed.Label(), len(args))
				fmt.Fprintf(out, "Language: %s\n", langpkg.DisplayName(req.Language))
				fmt.Fprintf(out, "Jobs in flight: %d\n", resp.Depth)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&receiver, "to", "t", "", "E-mail address that receives the result")
	cmd.Flags().StringVar(&task, "task", string(jobs.TaskAutoTranscribe), "Task: auto_transcribe, transcribe or diarize")
	cmd.Flags().IntVar(&speakers, "speakers", 0, "Expected number of speakers (0 lets the engine decide)")
	cmd.Flags().BoolVar(&translate, "translate", false, "Translate the speech to English")
	cmd.Flags().StringVar(&language, "language", "", "Spoken language hint (name, ISO code or auto)")
	cmd.Flags().StringToStringVar(&successOpt, "success-opt", nil, "Extra key=value data for the success mail template")
	cmd.Flags().StringToStringVar(&errorOpt, "error-opt", nil, "Extra key=value data for the failure mail template")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the response as JSON")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// optionValues parses key=value flag values as JSON scalars where possible so
// templates see numbers and booleans; anything else stays a string.
func optionValues(flags map[string]string) map[string]any {
	if len(flags) == 0 {
		return nil
	}
	out := make(map[string]any, len(flags))
	for k, v := range flags {
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err == nil {
			switch decoded.(type) {
			case float64, bool:
				out[k] = decoded
				continue
			}
		}
		out[k] = v
	}
	return out
}
