package main

import (
	"os"

	"github.com/spf13/cobra"

	"documentor/internal/config"
	"documentor/internal/logging"
)

// NewRootCmd creates the root documentor command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "documentor",
		Short:         "Chat with a document",
		Long:          "DocuMentor ingests a text or PDF document and answers questions about it using retrieval-augmented generation.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file (default ./documentor.yaml or ~/.config/documentor/config.yaml)")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(),
		newIngestCmd(),
		newAskCmd(),
		newStatusCmd(),
		newChatCmd(),
	)

	return root
}

// loadConfig resolves the config file named by --config, or the default
// locations when it is empty.
func loadConfig(cmd *cobra.Command, opts ...config.LoadOption) (*config.AppConfig, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		cfg, _, err := config.LoadDefault(opts...)
		return cfg, err
	}
	return config.Load(cfgPath, opts...)
}

func setupLogging(cmd *cobra.Command, cfg config.LogConfig) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	_, err := logging.Install(cfg, os.Stderr, verbose)
	return err
}
