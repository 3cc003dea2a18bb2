package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"documentor/internal/tui"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [file]",
		Short: "Open the terminal chat UI",
		Long:  "Chat with the ingested document. A file argument is uploaded first; /ingest <path> uploads another from inside the UI.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runChat,
	}
	addServerFlag(cmd)
	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	c := newClient(cmd)

	opts := []tui.Option{tui.WithTimeout(requestTimeout(cmd))}
	if len(args) == 1 {
		opts = append(opts, tui.WithInitialFile(args[0]))
	}

	m := tui.New(c, c.BaseURL(), opts...)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	return err
}
