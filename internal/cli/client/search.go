package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloo-solutions/vsearch/internal/backend"
	"github.com/cloo-solutions/vsearch/internal/controller"
	"github.com/cloo-solutions/vsearch/internal/preview"
	"github.com/spf13/cobra"
)

// SearchResult is one result in JSON output.
type SearchResult struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
	URL   string `json:"url"`
}

// SearchResponse is the JSON output of the search command.
type SearchResponse struct {
	Query   string         `json:"query"`
	Backend string         `json:"backend"`
	Results []SearchResult `json:"results"`
	Error   string         `json:"error,omitempty"`
}

// ErrSearchFailed is returned after a failed search has been reported.
var ErrSearchFailed = errors.New("search failed")

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <image>",
		Short: "Search by image",
		Long:  "Uploads an image to the visual-search backend and prints the matching image URLs in ranked order.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			flagURL, _ := cmd.Flags().GetString("backend")
			_, baseURL := ResolveBackendURL(flagURL)

			client, err := backend.NewClient(baseURL)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true
			return runSearch(cmd.Context(), cmd.OutOrStdout(), client, args[0], outputJSON)
		},
	}

	return cmd
}

func runSearch(ctx context.Context, out io.Writer, client *backend.Client, imagePath string, outputJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	img, err := preview.ReadFile(imagePath)
	if err != nil {
		return err
	}

	ctrl := controller.New(client, nil)
	ctrl.SelectFile(img)

	state, err := ctrl.Search(ctx)
	if err != nil {
		return err
	}

	view := controller.Render(state, client.ImageURL)
	resp := SearchResponse{
		Query:   img.Filename,
		Backend: client.BaseURL(),
		Results: make([]SearchResult, 0, len(view.Images)),
		Error:   view.Error,
	}
	for _, r := range view.Images {
		resp.Results = append(resp.Results, SearchResult{Index: r.Index, Path: r.Path, URL: r.URL})
	}

	if outputJSON {
		output, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Fprintln(out, string(output))
	} else {
		printSearchText(out, resp)
	}

	if resp.Error != "" {
		return ErrSearchFailed
	}
	return nil
}

func printSearchText(out io.Writer, resp SearchResponse) {
	if resp.Error != "" {
		fmt.Fprintln(out, resp.Error)
		return
	}
	if len(resp.Results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return
	}

	fmt.Fprintf(out, "Found %d results for %s:\n\n", len(resp.Results), resp.Query)
	for _, r := range resp.Results {
		fmt.Fprintf(out, "%d. %s\n", r.Index, r.Path)
		fmt.Fprintf(out, "   %s\n", r.URL)
	}
	fmt.Fprintln(out, strings.Repeat("-", 40))
}
