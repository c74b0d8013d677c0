package client

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/vsearch/internal/backend"
	"github.com/cloo-solutions/vsearch/internal/controller"
	"github.com/cloo-solutions/vsearch/internal/tui"
)

// TUICmd creates the interactive terminal UI command.
func TUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui [dir]",
		Short: "Browse and search images interactively",
		Long:  "Opens a terminal UI with a file picker rooted at dir (default: current directory). Select an image with enter and press s to search.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flagURL, _ := cmd.Flags().GetString("backend")
			_, baseURL := ResolveBackendURL(flagURL)

			client, err := backend.NewClient(baseURL)
			if err != nil {
				return err
			}

			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			info, err := os.Stat(dir)
			if err != nil {
				return fmt.Errorf("open directory: %w", err)
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}
			cmd.SilenceUsage = true

			model := tui.New(tui.Options{
				Context:    cmd.Context(),
				Controller: controller.New(client, nil),
				ImageURL:   client.ImageURL,
				StartDir:   dir,
			})
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}
