package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/cloo-solutions/vsearch/internal/backend"
	"github.com/spf13/cobra"
)

// BackendCmd creates the backend parent command
func BackendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Manage the search backend URL",
		Long:  "Set, show and reset the visual-search backend used by vsearch",
	}

	cmd.AddCommand(BackendSetCmd())
	cmd.AddCommand(BackendShowCmd())
	cmd.AddCommand(BackendResetCmd())

	return cmd
}

// BackendSetCmd creates the backend set command
func BackendSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <url>",
		Short: "Store the backend URL",
		Long:  "Store the backend URL in global config (~/.config/vsearch/config.json)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runBackendSet(cmd.OutOrStdout(), args[0]); err != nil {
				return err
			}
			serverURL, _ := cmd.Flags().GetString("server")
			if serverURL == "" {
				return nil
			}
			return runServerSet(cmd.OutOrStdout(), serverURL)
		},
	}
	cmd.Flags().String("server", "", "Also store the vsearchd URL used by history")
	return cmd
}

// BackendShowCmd creates the backend show command
func BackendShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the backend URL in effect",
		Long:  "Display the backend URL and where it was resolved from",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			flagURL, _ := cmd.Flags().GetString("backend")
			return runBackendShow(cmd.OutOrStdout(), flagURL, outputJSON)
		},
	}
}

// BackendResetCmd creates the backend reset command
func BackendResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the stored backend URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteGlobalConfig(); err != nil {
				return fmt.Errorf("failed to reset backend: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Backend reset to default")
			return nil
		},
	}
}

func runBackendSet(out io.Writer, rawURL string) error {
	client, err := backend.NewClient(rawURL)
	if err != nil {
		return err
	}

	err = UpdateGlobalConfig(func(c *GlobalConfig) { c.BackendURL = client.BaseURL() })
	if err != nil {
		return fmt.Errorf("failed to save backend: %w", err)
	}

	fmt.Fprintf(out, "Backend set to %s\n", client.BaseURL())
	return nil
}

func runServerSet(out io.Writer, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid server URL %q", rawURL)
	}
	serverURL := strings.TrimRight(u.Scheme+"://"+u.Host+u.Path, "/")

	if err := UpdateGlobalConfig(func(c *GlobalConfig) { c.ServerURL = serverURL }); err != nil {
		return fmt.Errorf("failed to save server: %w", err)
	}

	fmt.Fprintf(out, "Server set to %s\n", serverURL)
	return nil
}

func runBackendShow(out io.Writer, flagURL string, outputJSON bool) error {
	source, url := ResolveBackendURL(flagURL)

	if outputJSON {
		data, err := json.MarshalIndent(map[string]string{
			"source":      string(source),
			"backend_url": url,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal backend: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "Backend: %s\n", url)
	fmt.Fprintf(out, "Source: %s\n", source)
	return nil
}
