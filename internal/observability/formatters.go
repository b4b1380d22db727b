// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/company-updater/internal/types"
	"github.com/jonathan/company-updater/internal/updater"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		if utf8.RuneCountInString(line) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// writeList appends up to maxItemsToShow items with an overflow note.
func writeList(sb *strings.Builder, items []string) {
	count := min(len(items), maxItemsToShow)
	for _, item := range items[:count] {
		fmt.Fprintf(sb, "  • %s\n", item)
	}
	if len(items) > maxItemsToShow {
		fmt.Fprintf(sb, "  ... and %d more\n", len(items)-maxItemsToShow)
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// PrintCompany outputs a human-readable summary of a company record.
func (p *Printer) PrintCompany(c *types.Company) {
	if c == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "ID:           %s\n", c.ID)
	fmt.Fprintf(&sb, "Name:         %s\n", c.Name)
	fmt.Fprintf(&sb, "Established:  %s\n", orDash(c.Established))
	fmt.Fprintf(&sb, "Country:      %s\n", orDash(c.Country))
	fmt.Fprintf(&sb, "Headquarters: %s\n", orDash(c.Headquarters))
	if c.Website != "" {
		fmt.Fprintf(&sb, "Website:      %s\n", c.Website)
	}
	sb.WriteString("\n")

	if len(c.NotableWorks) > 0 {
		sb.WriteString("Notable Works:\n")
		writeList(&sb, c.NotableWorks)
		sb.WriteString("\n")
	}

	if len(c.History) > 0 {
		sb.WriteString("History (latest):\n")
		start := max(0, len(c.History)-maxItemsToShow)
		for _, h := range c.History[start:] {
			fmt.Fprintf(&sb, "  %s  %s\n", h.Year, h.Event)
		}
		sb.WriteString("\n")
	}

	if len(c.RelatedCompanies) > 0 {
		sb.WriteString("Related Companies:\n")
		writeList(&sb, c.RelatedCompanies)
	}

	p.printBox("COMPANY RECORD", sb.String())
}

// PrintDue outputs the companies a batch would refresh.
func (p *Printer) PrintDue(due []types.UpdatePolicy, now time.Time) {
	if len(due) == 0 {
		p.printBox("DUE FOR UPDATE", "Nothing is due.")
		return
	}

	var sb strings.Builder
	for _, policy := range due {
		last := "never"
		if !policy.LastUpdated.IsZero() {
			days := int(now.Sub(policy.LastUpdated.Time) / (24 * time.Hour))
			last = fmt.Sprintf("%dd ago", days)
		}
		strategy := "direct"
		if policy.UseRAG {
			strategy = "rag"
		}
		fmt.Fprintf(&sb, "%-20s %-9s %-7s %s\n", policy.Slug, policy.UpdateFrequency, strategy, last)
	}
	fmt.Fprintf(&sb, "\nTotal: %d", len(due))

	p.printBox("DUE FOR UPDATE", sb.String())
}

// PrintBatch outputs the outcome of a batch run.
func (p *Printer) PrintBatch(result *updater.BatchResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Run:      %s\n", result.RunID)
	fmt.Fprintf(&sb, "Selected: %d\n", result.Selected)
	fmt.Fprintf(&sb, "Updated:  %d\n", len(result.Updated))
	fmt.Fprintf(&sb, "Failed:   %d\n", len(result.Failed))

	if len(result.Updated) > 0 {
		sb.WriteString("\nUpdated:\n")
		names := make([]string, 0, len(result.Updated))
		for _, c := range result.Updated {
			names = append(names, fmt.Sprintf("%s (%s)", c.Name, c.ID))
		}
		writeList(&sb, names)
	}

	if len(result.Failed) > 0 {
		sb.WriteString("\nFailed:\n")
		for _, f := range result.Failed {
			fmt.Fprintf(&sb, "  ✗ %s: %v\n", f.Slug, f.Err)
		}
	}

	title := "BATCH COMPLETE"
	if len(result.Failed) > 0 {
		title = "BATCH COMPLETE WITH FAILURES"
	}
	p.printBox(title, sb.String())
}

// PrintCompanyList outputs one line per stored record.
func (p *Printer) PrintCompanyList(companies []*types.Company) {
	var sb strings.Builder
	for _, c := range companies {
		fmt.Fprintf(&sb, "%-20s %s (%d works, %d history)\n", c.ID, c.Name, len(c.NotableWorks), len(c.History))
	}
	fmt.Fprintf(&sb, "\nTotal: %d", len(companies))
	p.printBox("STORED COMPANIES", sb.String())
}
