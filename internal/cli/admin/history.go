package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cloo-solutions/vsearch/internal/config"
	"github.com/cloo-solutions/vsearch/internal/database"
	"github.com/cloo-solutions/vsearch/internal/pagination"
	"github.com/cloo-solutions/vsearch/internal/service"
	"github.com/spf13/cobra"
)

// HistoryLister is the read side of the search history.
type HistoryLister interface {
	List(ctx context.Context, cursor string, limit int) (*pagination.PageResult[*service.HistoryEntry], error)
}

// HistoryCmd returns the history command
func HistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded searches",
		Long:  "List recorded searches from the history database, newest first. Requires VSEARCH_DATABASE_URL.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if !cfg.HasDatabase() {
				return fmt.Errorf("search history is not configured: VSEARCH_DATABASE_URL required")
			}

			pool, err := database.NewPool(ctx, database.Config{
				URL:             cfg.DatabaseURL,
				ApplicationName: "vsearchd-history",
				PingAttempts:    1,
			})
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			archive, err := newArchiveStorage(ctx, cfg)
			if err != nil {
				return err
			}

			limit, _ := cmd.Flags().GetInt("limit")
			cursor, _ := cmd.Flags().GetString("cursor")
			outputJSON, _ := cmd.Flags().GetBool("output")

			return runHistory(ctx, cmd.OutOrStdout(), newHistoryService(pool, archive), cursor, limit, outputJSON)
		},
	}

	cmd.Flags().Int("limit", pagination.DefaultLimit, "Maximum number of entries")
	cmd.Flags().String("cursor", "", "Cursor from a previous page")
	cmd.Flags().Bool("output", false, "Output as JSON")

	return cmd
}

func runHistory(ctx context.Context, out io.Writer, lister HistoryLister, cursor string, limit int, outputJSON bool) error {
	page, err := lister.List(ctx, cursor, limit)
	if err != nil {
		return err
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
	for i, e := range page.Items {
		fmt.Fprintf(out, "%d. %s [%s]\n", i+1, e.Filename, e.Status)
		fmt.Fprintf(out, "   Results: %d, Duration: %dms\n", e.ResultCount, e.DurationMs)
		if e.Error != "" {
			fmt.Fprintf(out, "   Error: %s\n", e.Error)
		}
		fmt.Fprintf(out, "   Session: %s\n", shortID(e.SessionID))
		fmt.Fprintf(out, "   Created: %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "   ID: %s\n", e.ID)
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

func shortID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
