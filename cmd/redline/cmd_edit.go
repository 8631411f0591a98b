package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"redline/internal/edit"
	"redline/internal/llm"
	"redline/internal/logging"
	"redline/internal/safety"
	"redline/internal/store"
	"redline/internal/version"
)

var (
	editOld      string
	editOldFile  string
	editRequest  string
	editSection  string
	editYes      bool
	editOverride bool
	editNoWatch  bool
)

// editCmd proposes, reviews and applies one edit.
var editCmd = &cobra.Command{
	Use:   "edit <file>",
	Short: "Propose a model edit of a span and apply it after review",
	Long: `Sends the selected span and your request to the configured model,
validates the proposal and shows it as a diff. Nothing is written until
you approve.

A proposal that fails a safety check needs --override (or an explicit
"yes" at the second prompt) to be applied. With --yes, proposals that pass
every check are applied without asking.

Examples:
  redline edit report.md --old "The login form is vulnerable..." --request "make it concise"
  redline edit report.md --old-file span.txt --section "Executive Summary" --request "more formal"`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVar(&editOld, "old", "", "Exact text of the span to edit")
	editCmd.Flags().StringVar(&editOldFile, "old-file", "", "Read the span to edit from a file")
	editCmd.Flags().StringVarP(&editRequest, "request", "r", "", "What to do with the span (required)")
	editCmd.Flags().StringVarP(&editSection, "section", "s", "", "Report section the span belongs to")
	editCmd.Flags().BoolVarP(&editYes, "yes", "y", false, "Apply without asking when every check passes")
	editCmd.Flags().BoolVar(&editOverride, "override", false, "Allow applying a proposal that failed validation")
	editCmd.Flags().BoolVar(&editNoWatch, "no-watch", false, "Do not abandon generation when the file changes")
	editCmd.MarkFlagRequired("request")
	editCmd.MarkFlagsMutuallyExclusive("old", "old-file")
}

func runEdit(cmd *cobra.Command, args []string) error {
	path := args[0]
	oldText, err := selectedSpan()
	if err != nil {
		return err
	}

	doc, err := openDocument(path)
	if err != nil {
		return err
	}
	defer doc.Close()

	eng, err := newEngine()
	if err != nil {
		return err
	}
	client, err := newClient(cfg.LLM, logging.Get(logging.CategoryLLM))
	if err != nil {
		return err
	}

	sess := edit.NewSession(eng, editSection, oldText)
	intent, err := sess.Analyze(editRequest)
	if err != nil {
		return err
	}
	if _, err := sess.Build(); err != nil {
		return err
	}
	logger.Info("edit requested",
		zap.String("path", path),
		zap.String("intent", intent.Kind.String()),
		zap.String("scope", string(intent.Scope)),
		zap.String("client", client.Name()))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Generating with %s...\n", client.Name())
	started := time.Now()
	rep, err := generate(ctx, eng, sess, path, llm.AsGenerator(client))
	if err != nil {
		if errors.Is(err, errDocumentChanged) {
			doc.audit.Decision(logging.AuditEditAbandoned, "", "")
			return fmt.Errorf("edit abandoned: %w", err)
		}
		doc.audit.Failed("", string(edit.Classify(err)), err)
		return err
	}
	p := sess.Patch()
	doc.audit.Proposed(p.ID, intent.Kind.String(), time.Since(started))
	doc.audit.Validated(p.ID, rep.Passed(), failedNames(rep))

	fmt.Fprintln(out, renderReview(p, intent, rep))

	approve, override, blocked := decide(cmd.InOrStdin(), out, rep)
	if !approve {
		if err := sess.Reject(); err != nil {
			return err
		}
		doc.audit.Decision(logging.AuditEditRejected, p.ID, "")
		fmt.Fprintln(out, "Edit rejected. The document was not changed.")
		if err := doc.record(p, rep, store.DecisionRejected, ""); err != nil {
			return err
		}
		return blocked
	}

	var updated string
	if override {
		updated, _, err = sess.ApproveOverride(doc.text)
	} else {
		updated, _, err = sess.Approve(doc.text)
	}
	if err != nil {
		doc.audit.Failed(p.ID, string(edit.Classify(err)), err)
		if recErr := doc.record(p, rep, store.DecisionFailed, ""); recErr != nil {
			logger.Warn("failed to record patch", zap.Error(recErr))
		}
		return err
	}

	snap := doc.versions.Save(version.Input{
		Kind:        version.KindAIEdit,
		Description: fmt.Sprintf("%s: %s", intent.Kind, strings.TrimSpace(editRequest)),
		Section:     p.Section,
		OldContent:  p.OldText,
		NewContent:  p.NewText,
		Document:    updated,
	})
	if err := doc.write(updated); err != nil {
		return err
	}
	if err := doc.commit(); err != nil {
		return err
	}

	decision, event := store.DecisionApproved, logging.AuditEditApproved
	if override && !rep.Passed() {
		decision, event = store.DecisionOverridden, logging.AuditEditOverride
	}
	doc.audit.Decision(event, p.ID, snap.ID)
	fmt.Fprintf(out, "Applied. Snapshot %s saved (%s).\n", snap.ID, decision)
	return doc.record(p, rep, decision, snap.ID)
}

// selectedSpan reads the span from --old or --old-file.
func selectedSpan() (string, error) {
	if editOldFile != "" {
		data, err := os.ReadFile(editOldFile)
		if err != nil {
			return "", fmt.Errorf("failed to read span: %w", err)
		}
		return strings.TrimSuffix(string(data), "\n"), nil
	}
	if editOld == "" {
		return "", fmt.Errorf("one of --old or --old-file is required")
	}
	return editOld, nil
}

// newEngine builds the edit engine from the config.
func newEngine() (*edit.Engine, error) {
	patterns, err := cfg.Safety.Patterns()
	if err != nil {
		return nil, err
	}
	return edit.NewEngineWithConfig(edit.EngineConfig{
		Temperature: cfg.LLM.Temperature,
		Matcher:     cfg.Matcher.Options(),
		Patterns:    patterns,
	}, logging.Get(logging.CategoryEdit)), nil
}

// generate runs the model call next to a watcher on the document file. A
// change to the file cancels the call and abandons the session.
func generate(ctx context.Context, eng *edit.Engine, sess *edit.Session, path string, gen edit.Generator) (safety.Report, error) {
	c, err := sess.StartGeneration()
	if err != nil {
		return safety.Report{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	watchCtx, stopWatch := context.WithCancel(gctx)
	defer stopWatch()

	ready := make(chan struct{})
	if !editNoWatch {
		g.Go(func() error { return watchDocument(watchCtx, path, ready) })
		select {
		case <-ready:
		case <-gctx.Done():
		}
	}

	var res edit.Result
	g.Go(func() error {
		defer stopWatch()
		p, err := eng.GeneratePatch(gctx, c, gen)
		res = edit.Result{Patch: p, Err: err}
		return nil
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, errDocumentChanged) {
			_ = sess.Abandon()
			if _, stale := sess.Complete(res); stale != nil {
				logger.Debug("late result discarded", zap.Error(stale))
			}
		}
		return safety.Report{}, err
	}
	return sess.Complete(res)
}

// decide asks the reviewer, honouring --yes, --override and the
// block_on_failure policy. It returns whether to apply, whether the
// application overrides a failed validation, and the policy error when an
// unattended approval was refused.
func decide(in io.Reader, out io.Writer, rep safety.Report) (approve, override bool, blocked error) {
	passed := rep.Passed()

	if editYes {
		switch {
		case passed:
			return true, false, nil
		case editOverride:
			return true, true, nil
		case cfg.Safety.BlockOnFailure:
			return false, false, fmt.Errorf("block_on_failure refused unattended approval: %w", rep.Err())
		default:
			return true, true, nil
		}
	}

	reader := bufio.NewReader(in)
	if !confirm(reader, out, "Apply this edit? [y/N] ") {
		return false, false, nil
	}
	if passed {
		return true, false, nil
	}
	if !editOverride && !confirm(reader, out, "Validation FAILED. Apply anyway? [y/N] ") {
		return false, false, nil
	}
	return true, true, nil
}

func confirm(r *bufio.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func failedNames(rep safety.Report) []string {
	var out []string
	for _, f := range rep.Failed() {
		out = append(out, string(f.Check))
	}
	return out
}
