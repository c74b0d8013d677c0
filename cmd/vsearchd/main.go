package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/vsearch/internal/cli"
	"github.com/cloo-solutions/vsearch/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vsearchd",
		Short: "Visual search web front end",
		Long:  "vsearchd serves the visual search web page and, when a database is configured, records search history",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.HistoryCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if target, ok := cli.HelpJSONTarget(rootCmd, os.Args[1:]); ok {
		if err := cli.WriteSchema(os.Stdout, target); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
