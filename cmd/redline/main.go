// Command redline edits security-assessment reports with model assistance.
// Every proposed edit is validated, shown as a diff, and applied only after
// a reviewer approves it. Each applied edit becomes a snapshot that can be
// undone, redone or rolled back.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"redline/internal/config"
	"redline/internal/edit"
	"redline/internal/llm"
	"redline/internal/logging"
	"redline/internal/store"
)

var (
	// Global flags
	configPath string
	verbose    bool
	noStore    bool

	cfg    *config.Config
	logger *zap.Logger

	// newClient is swapped in tests.
	newClient = llm.NewClient
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "redline",
	Short: "Safe model-assisted editing for security reports",
	Long: `redline rewrites, compresses, expands or proofreads a span of a
security-assessment report with a language model, then checks that the
proposal kept every finding identifier, severity rating and piece of
evidence intact before you decide whether to apply it.

Every applied edit is saved as a snapshot of the whole document, so any
change can be undone, redone or rolled back.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging to stderr")
	rootCmd.PersistentFlags().BoolVar(&noStore, "no-store", false, "Keep history in memory only for this run")

	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(redoCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(patchesCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(initConfigCmd)
}

// setup loads the config and starts logging.
func setup() error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if verbose {
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
		c.Logging.Format = "console"
	}
	if noStore {
		c.Store.Disabled = true
	}
	if err := logging.Initialize(c.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	cfg = c
	logger = logging.Get(logging.CategoryCLI)
	logger.Debug("config loaded", zap.String("path", configPath), zap.String("provider", c.LLM.Provider))
	return nil
}

// errorCode names the class of err for the exit message.
func errorCode(err error) edit.Code {
	if errors.Is(err, store.ErrNotFound) {
		return edit.CodeNotFound
	}
	return edit.Classify(err)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "redline: [%s] %v\n", errorCode(err), err)
		os.Exit(1)
	}
}
