package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/cloo-solutions/vsearch/internal/cli"
	"github.com/cloo-solutions/vsearch/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "vsearch",
		Short: "vsearch CLI - search images by example",
		Long: `vsearch uploads a query image to a visual search backend and lists similar images.

Environment variables:
  VSEARCH_BACKEND_URL   Backend base URL (default: http://127.0.0.1:8000)`,
		Version:       version,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("backend", "", "Backend base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.TUICmd())
	rootCmd.AddCommand(client.DownloadCmd())
	rootCmd.AddCommand(client.HistoryCmd())
	rootCmd.AddCommand(client.BackendCmd())

	if target, ok := cli.HelpJSONTarget(rootCmd, os.Args[1:]); ok {
		if err := cli.WriteSchema(os.Stdout, target); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := rootCmd.Execute(); err != nil {
		// search failures are already printed with the results
		if !errors.Is(err, client.ErrSearchFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
