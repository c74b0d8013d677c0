package client

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/vsearch/internal/backend"
	"github.com/spf13/cobra"
)

// DownloadCmd creates the download command.
func DownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <result-path>",
		Short: "Download a result image",
		Long:  "Fetches a result image from the backend's get-image-by-path endpoint and writes it to a local file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flagURL, _ := cmd.Flags().GetString("backend")
			_, baseURL := ResolveBackendURL(flagURL)

			client, err := backend.NewClient(baseURL)
			if err != nil {
				return err
			}

			outputPath, _ := cmd.Flags().GetString("out")
			quiet, _ := cmd.Flags().GetBool("quiet")
			cmd.SilenceUsage = true
			return runDownload(cmd.OutOrStdout(), client, args[0], outputPath, quiet)
		},
	}

	cmd.Flags().StringP("out", "o", "", "Output file (default: base name of the result path)")
	cmd.Flags().BoolP("quiet", "q", false, "Do not print progress")

	return cmd
}

func runDownload(out io.Writer, client *backend.Client, resultPath, outputPath string, quiet bool) error {
	if outputPath == "" {
		outputPath = defaultDownloadName(resultPath)
	}

	var onProgress ProgressFunc
	if !quiet {
		onProgress = func(current, total int64) {
			if total > 0 {
				fmt.Fprintf(out, "\r%s: %d/%d bytes", outputPath, current, total)
			}
		}
	}

	n, err := DownloadFile(nil, client.ImageURL(resultPath), outputPath, onProgress)
	if err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintf(out, "\rSaved %s (%d bytes)\n", outputPath, n)
	}
	return nil
}

func defaultDownloadName(resultPath string) string {
	name := filepath.Base(strings.ReplaceAll(resultPath, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "result"
	}
	return name
}
