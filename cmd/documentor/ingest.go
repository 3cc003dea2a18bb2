package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Upload a document to a running server",
		Long:  "Upload a .txt or .pdf file. It replaces any previously ingested document.",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}
	addServerFlag(cmd)
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	res, err := newClient(cmd).IngestFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\nChunks: %d  Generation: %d  Document: %s\n",
		res.Message, res.ChunkCount, res.GenerationID, res.DocumentID)
	return nil
}
