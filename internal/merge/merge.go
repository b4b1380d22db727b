// Package merge reconciles a stored company record with a freshly researched partial record.
// Merge is a pure function: it performs no I/O and never mutates its inputs.
package merge

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/company-updater/internal/types"
)

const (
	// minWorkTitleLen and maxWorkTitleLen bound notable work titles (exclusive, in runes).
	minWorkTitleLen = 1
	maxWorkTitleLen = 50
)

// Options tunes merge policy.
type Options struct {
	// FilterNotableWorks drops new titles of <= 1 or >= 50 characters.
	FilterNotableWorks bool
}

// DefaultOptions returns the production merge policy.
func DefaultOptions() Options {
	return Options{FilterNotableWorks: true}
}

// Merge combines existing with updated, field by field.
//
// Scalars are replaced only by present, non-blank values. List fields are
// appended and deduplicated keeping first occurrence. History never
// overwrites a year that is already recorded, and the result is sorted by year.
// Fields absent from updated pass through unchanged.
func Merge(existing types.Company, updated types.PartialCompany, opts Options) types.Company {
	merged := *existing.Clone()

	mergeScalar(&merged.Description, updated.Description)
	mergeScalar(&merged.Country, updated.Country)
	mergeScalar(&merged.Headquarters, updated.Headquarters)
	mergeScalar(&merged.Website, updated.Website)
	mergeScalar(&merged.Established, updated.Established)

	if len(updated.NotableWorks) > 0 {
		candidates := updated.NotableWorks
		if opts.FilterNotableWorks {
			candidates = filter(candidates, validWorkTitle)
		}
		merged.NotableWorks = dedupe(concat(existing.NotableWorks, candidates))
	}

	if len(updated.RelatedCompanies) > 0 {
		candidates := filter(updated.RelatedCompanies, func(s string) bool { return s != "" })
		related := dedupe(concat(existing.RelatedCompanies, candidates))
		if len(related) > 0 || existing.RelatedCompanies != nil {
			merged.RelatedCompanies = related
		}
	}

	if len(updated.History) > 0 {
		merged.History = mergeHistory(existing.History, updated.History)
	}

	return merged
}

// mergeHistory keeps the first entry recorded for every year and sorts by year.
// Years are compared and written trimmed on both sides. Year strings are
// four-digit, so lexicographic order is chronological.
func mergeHistory(existing, incoming []types.HistoryEntry) []types.HistoryEntry {
	seen := make(map[string]bool, len(existing)+len(incoming))
	out := make([]types.HistoryEntry, 0, len(existing)+len(incoming))

	for _, h := range existing {
		year := strings.TrimSpace(h.Year)
		if seen[year] {
			continue
		}
		seen[year] = true
		out = append(out, types.HistoryEntry{Year: year, Event: h.Event})
	}
	for _, h := range incoming {
		year := strings.TrimSpace(h.Year)
		if year == "" || seen[year] {
			continue
		}
		seen[year] = true
		out = append(out, types.HistoryEntry{Year: year, Event: h.Event})
	}

	slices.SortStableFunc(out, func(a, b types.HistoryEntry) int {
		return strings.Compare(a.Year, b.Year)
	})
	return out
}

func mergeScalar(dst *string, src *string) {
	if src == nil || strings.TrimSpace(*src) == "" {
		return
	}
	*dst = *src
}

func validWorkTitle(title string) bool {
	n := utf8.RuneCountInString(title)
	return n > minWorkTitleLen && n < maxWorkTitleLen
}

func concat(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func filter(in []string, keep func(string) bool) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// dedupe removes repeated values, keeping the first occurrence in order.
func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
