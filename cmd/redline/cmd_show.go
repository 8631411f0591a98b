package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"redline/internal/config"
)

var (
	showRender   bool
	showSnapshot string
	showWidth    int

	initForce bool
)

// showCmd prints a document or one of its snapshots
var showCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print the document, optionally rendered as Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := openDocument(args[0])
		if err != nil {
			return err
		}
		defer doc.Close()

		text := doc.text
		if showSnapshot != "" {
			snap, err := doc.versions.Get(showSnapshot)
			if err != nil {
				return err
			}
			text = snap.Document
		}

		if showRender {
			rendered, err := renderMarkdown(text, showWidth)
			if err != nil {
				return err
			}
			text = rendered
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	},
}

// renderMarkdown renders text for the terminal.
func renderMarkdown(text string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create renderer: %w", err)
	}
	out, err := r.Render(text)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}

// initConfigCmd writes the default configuration
var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		}
		if err := config.DefaultConfig().Save(configPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showRender, "render", false, "Render Markdown for the terminal")
	showCmd.Flags().StringVar(&showSnapshot, "snapshot", "", "Show a snapshot instead of the current file")
	showCmd.Flags().IntVar(&showWidth, "width", 100, "Wrap width for --render")

	initConfigCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}
