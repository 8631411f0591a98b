package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"redline/internal/diff"
	"redline/internal/logging"
	"redline/internal/version"
)

// historyCmd lists snapshots
var historyCmd = &cobra.Command{
	Use:   "history <file>",
	Short: "List the snapshots of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := openDocument(args[0])
		if err != nil {
			return err
		}
		defer doc.Close()

		out := cmd.OutOrStdout()
		fmt.Fprint(out, renderHistory(doc.versions.History()))
		fmt.Fprintf(out, "%d of %d versions kept. undo: %t  redo: %t\n",
			doc.versions.Len(), doc.versions.Max(), doc.versions.CanUndo(), doc.versions.CanRedo())
		return nil
	},
}

var undoCmd = &cobra.Command{
	Use:   "undo <file>",
	Short: "Restore the previous snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return navigate(cmd, args[0], logging.AuditVersionUndo, func(m *version.Manager) (version.Snapshot, error) {
			return m.Undo()
		})
	},
}

var redoCmd = &cobra.Command{
	Use:   "redo <file>",
	Short: "Restore the next snapshot after an undo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return navigate(cmd, args[0], logging.AuditVersionRedo, func(m *version.Manager) (version.Snapshot, error) {
			return m.Redo()
		})
	},
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback <file> <snapshot-id>",
	Short: "Restore any retained snapshot",
	Long: `Makes the given snapshot current and writes it to the file. Later
snapshots are kept, so redo still reaches them until the next edit.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return navigate(cmd, args[0], logging.AuditVersionRollback, func(m *version.Manager) (version.Snapshot, error) {
			return m.Rollback(args[1])
		})
	},
}

// navigate moves the history pointer and writes the selected snapshot.
func navigate(cmd *cobra.Command, path string, event logging.AuditEventType, move func(*version.Manager) (version.Snapshot, error)) error {
	doc, err := openDocument(path)
	if err != nil {
		return err
	}
	defer doc.Close()

	snap, err := move(doc.versions)
	if err != nil {
		return err
	}
	if err := doc.checkout(snap, event); err != nil {
		return err
	}
	logger.Info("history moved", zap.String("event", string(event)), zap.String("snapshot", snap.ID))
	fmt.Fprintf(cmd.OutOrStdout(), "Now at snapshot %d (%s) %s\n", snap.Seq, snap.ID, snap.Description)
	return nil
}

var diffStat bool

// diffCmd compares two snapshots
var diffCmd = &cobra.Command{
	Use:   "diff <file> <from-id> [to-id]",
	Short: "Show the line diff between two snapshots",
	Long:  `Compares two snapshots. Without to-id the current snapshot is used.`,
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := openDocument(args[0])
		if err != nil {
			return err
		}
		defer doc.Close()

		toID := ""
		if len(args) == 3 {
			toID = args[2]
		} else if cur, ok := doc.versions.Current(); ok {
			toID = cur.ID
		}

		res, err := doc.versions.Diff(args[1], toID)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if diffStat {
			fmt.Fprintf(out, "%d added, %d removed\n", res.Added, res.Removed)
			return nil
		}

		from, _ := doc.versions.Get(res.From)
		to, _ := doc.versions.Get(res.To)
		fmt.Fprintln(out, renderDiff(diff.Compute(res.From, res.To, from.Document, to.Document)))
		return nil
	},
}

// patchesCmd lists recorded decisions
var patchesCmd = &cobra.Command{
	Use:   "patches <file>",
	Short: "List reviewed proposals recorded for a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := openDocument(args[0])
		if err != nil {
			return err
		}
		defer doc.Close()
		if doc.store == nil {
			return fmt.Errorf("the store is disabled; no decisions are recorded")
		}

		recs, err := doc.store.Patches(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(recs) == 0 {
			fmt.Fprintln(out, "No proposals recorded.")
			return nil
		}
		for _, r := range recs {
			status := "passed"
			if !r.Passed() {
				status = "failed: " + strings.Join(failedNames(r.Report), ",")
			}
			fmt.Fprintf(out, "%s  %-10s %-9s [%s] %s\n",
				r.RecordedAt.Local().Format("2006-01-02 15:04"), r.Decision, r.Patch.Intent, orDash(r.Patch.Section), status)
		}
		return nil
	},
}

func init() {
	diffCmd.Flags().BoolVar(&diffStat, "stat", false, "Print only line counts")
}
