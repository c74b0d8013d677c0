package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// HistoryItem is one recorded search as served by /api/history.
type HistoryItem struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Filename    string    `json:"filename"`
	Status      string    `json:"status"`
	ResultPaths []string  `json:"result_paths"`
	ResultCount int       `json:"result_count"`
	Error       string    `json:"error,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	ArchiveURL  string    `json:"archive_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// HistoryPage is one page of /api/history.
type HistoryPage struct {
	Items   []HistoryItem `json:"items"`
	Cursor  string        `json:"cursor,omitempty"`
	HasMore bool          `json:"has_more"`
}

// HistoryCmd creates the history command.
func HistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List searches recorded by a vsearchd server",
		Long:  "Fetches recorded searches from a running vsearchd (default: $VSEARCH_SERVER_URL or http://localhost:8080), newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			serverFlag, _ := cmd.Flags().GetString("server")
			limit, _ := cmd.Flags().GetInt("limit")
			cursor, _ := cmd.Flags().GetString("cursor")
			outputJSON, _ := cmd.Flags().GetBool("output")

			cmd.SilenceUsage = true
			return runHistory(cmd.OutOrStdout(), NewAPIClient(ResolveServerURL(serverFlag)), cursor, limit, outputJSON)
		},
	}

	cmd.Flags().String("server", "", "vsearchd base URL")
	cmd.Flags().Int("limit", 20, "Maximum number of entries")
	cmd.Flags().String("cursor", "", "Cursor from a previous page")

	return cmd
}

func runHistory(out io.Writer, api *APIClient, cursor string, limit int, outputJSON bool) error {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	resp, err := api.Get("/api/history", query)
	if err != nil {
		return err
	}

	var page HistoryPage
	if err := json.Unmarshal(resp.Data, &page); err != nil {
		return fmt.Errorf("failed to parse history: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(page, "", "  ")
		fmt.Fprintln(out, string(output))
		return nil
	}

	if len(page.Items) == 0 {
		fmt.Fprintln(out, "No searches recorded.")
		return nil
	}

	fmt.Fprintf(out, "Found %d searches:\n\n", len(page.Items))
	for i, item := range page.Items {
		fmt.Fprintf(out, "%d. %s [%s]\n", i+1, item.Filename, item.Status)
		fmt.Fprintf(out, "   Results: %d, Duration: %dms\n", item.ResultCount, item.DurationMs)
		if item.Error != "" {
			fmt.Fprintf(out, "   Error: %s\n", item.Error)
		}
		if item.ArchiveURL != "" {
			fmt.Fprintf(out, "   Query image: %s\n", item.ArchiveURL)
		}
		fmt.Fprintf(out, "   Created: %s\n", item.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "   ID: %s\n", item.ID)
		if i < len(page.Items)-1 {
			fmt.Fprintln(out, strings.Repeat("-", 40))
		}
	}

	if page.HasMore && page.Cursor != "" {
		fmt.Fprintf(out, "\n%s\n", strings.Repeat("-", 40))
		fmt.Fprintf(out, "More results available. Use --cursor %s\n", page.Cursor)
	}
	return nil
}
