package main

import (
	"time"

	"github.com/spf13/cobra"

	"documentor/internal/client"
)

func addServerFlag(cmd *cobra.Command) {
	cmd.Flags().String("server", client.DefaultBaseURL, "base URL of a running documentor server")
	cmd.Flags().Duration("timeout", client.DefaultTimeout, "request timeout")
}

func newClient(cmd *cobra.Command) *client.Client {
	url, _ := cmd.Flags().GetString("server")
	return client.New(url, requestTimeout(cmd))
}

// requestTimeout is the per-request deadline configured on cmd.
func requestTimeout(cmd *cobra.Command) time.Duration {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout <= 0 {
		return client.DefaultTimeout
	}
	return timeout
}
