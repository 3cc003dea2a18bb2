package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show server readiness",
		Long:  "Check the running server's readiness endpoint and describe the ingested document.",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
	addServerFlag(cmd)
	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	c := newClient(cmd)
	out := cmd.OutOrStdout()

	st, err := c.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("server at %s: %w", c.BaseURL(), err)
	}

	_, _ = fmt.Fprintf(out, "Server:     %s\n", c.BaseURL())
	_, _ = fmt.Fprintf(out, "Embedder:   %s (dimension %d)\n", st.Embedder, st.Dimension)
	_, _ = fmt.Fprintf(out, "Completion: %s (top %d)\n", st.Completion, st.TopK)
	if !st.Ready || st.Generation == nil {
		_, _ = fmt.Fprintln(out, "Ready:      no (no document ingested)")
		return nil
	}

	g := st.Generation
	name := g.DocumentName
	if name == "" {
		name = g.DocumentID
	}
	_, _ = fmt.Fprintf(out, "Ready:      yes\nDocument:   %s (%d chunks, generation %d, built %s)\n",
		name, g.ChunkCount, g.ID, g.BuiltAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}
