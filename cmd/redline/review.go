package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"redline/internal/diff"
	"redline/internal/edit"
	"redline/internal/patch"
	"redline/internal/safety"
	"redline/internal/version"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	badgeStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	passBadge  = badgeStyle.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("10")).Render("PASS")
	failBadge  = badgeStyle.Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9")).Render("FAIL")

	boxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// renderReview builds the screen a reviewer sees before deciding.
func renderReview(p *patch.Patch, intent edit.Intent, rep safety.Report) string {
	var b strings.Builder

	header := fmt.Sprintf("%s  %s", titleStyle.Render("Proposed edit"), dimStyle.Render(p.ID))
	b.WriteString(header + "\n")
	fmt.Fprintf(&b, "%s %s   %s %s   %s %s\n",
		labelStyle.Render("Section:"), orDash(p.Section),
		labelStyle.Render("Intent:"), intent.Kind,
		labelStyle.Render("Scope:"), intent.Scope)
	if p.Justification != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Why:"), p.Justification)
	}
	for _, c := range p.Changes {
		b.WriteString(dimStyle.Render("  • "+c) + "\n")
	}
	b.WriteString("\n")

	if p.IsDeletion() {
		b.WriteString(warnStyle.Render("The proposal deletes the selected text.") + "\n")
	}
	b.WriteString(boxStyle.Render(renderDiff(diff.Compute("original", "proposed", p.OldText, p.NewText))))
	b.WriteString("\n\n")
	b.WriteString(renderChecks(rep))
	return b.String()
}

// renderDiff colours a unified diff.
func renderDiff(d *diff.DocumentDiff) string {
	if d.Empty() {
		return dimStyle.Render("(no changes)")
	}
	var lines []string
	for _, h := range d.Hunks {
		lines = append(lines, hunkStyle.Render(h.Header()))
		for _, l := range h.Lines {
			text := l.Type.Prefix() + l.Content
			switch l.Type {
			case diff.LineAdded:
				text = addedStyle.Render(text)
			case diff.LineRemoved:
				text = removedStyle.Render(text)
			}
			lines = append(lines, text)
		}
	}
	lines = append(lines, dimStyle.Render(fmt.Sprintf("%d added, %d removed", d.Stats.Added, d.Stats.Removed)))
	return strings.Join(lines, "\n")
}

// renderChecks lists each safety check with a badge.
func renderChecks(rep safety.Report) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Safety checks") + "\n")
	for _, res := range rep.Results {
		badge := passBadge
		if !res.Passed {
			badge = failBadge
		}
		fmt.Fprintf(&b, "%s %s  %s\n", badge, res.Check, dimStyle.Render(strings.Join(res.Messages, "; ")))
	}
	for _, w := range rep.Warnings {
		b.WriteString(warnStyle.Render("warning: "+w) + "\n")
	}
	return b.String()
}

// renderHistory lists snapshots oldest first and marks the current one.
func renderHistory(items []version.Summary) string {
	var b strings.Builder
	for _, s := range items {
		marker := "  "
		line := fmt.Sprintf("%3d  %s  %-12s %s", s.Seq, s.ID, s.Kind, s.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		if s.Section != "" {
			line += "  [" + s.Section + "]"
		}
		if s.Description != "" {
			line += "  " + s.Description
		}
		if s.IsCurrent {
			marker = "* "
			line = labelStyle.Render(line)
		}
		b.WriteString(marker + line + "\n")
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
