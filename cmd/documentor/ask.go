package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the ingested document",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
	addServerFlag(cmd)
	cmd.Flags().Bool("show-context", false, "print the retrieved chunks after the answer")
	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	res, err := newClient(cmd).Ask(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, res.Response)

	if show, _ := cmd.Flags().GetBool("show-context"); show {
		for i, chunk := range res.Context {
			score := 0.0
			if i < len(res.Sources) {
				score = res.Sources[i].Score
			}
			_, _ = fmt.Fprintf(out, "\n--- [%d] score=%.3f\n%s\n", i+1, score, chunk)
		}
	}
	return nil
}
