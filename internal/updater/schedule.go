// Package updater decides which companies are due for research and runs the
// load, research, merge and persist cycle for each of them.
package updater

import (
	"time"

	"github.com/jonathan/company-updater/internal/types"
)

// IsDue reports whether policy should be refreshed at now. An unknown
// frequency, a malformed lastUpdated or a lastUpdated in the future is never
// due.
//
// A policy that has never been updated (empty lastUpdated) is always due.
// Older tooling treated the empty value as an invalid date and never
// selected it, so such companies waited for a forced run.
func IsDue(policy types.UpdatePolicy, now time.Time) bool {
	threshold, ok := policy.UpdateFrequency.ThresholdDays()
	if !ok {
		return false
	}
	if _, malformed := policy.LastUpdated.Malformed(); malformed {
		return false
	}
	if policy.LastUpdated.IsZero() {
		return true
	}
	elapsed := now.Sub(policy.LastUpdated.Time)
	if elapsed < 0 {
		return false
	}
	days := int(elapsed / (24 * time.Hour))
	return days >= threshold
}

// SelectDue returns the policies to refresh, in document order. With force
// every policy is selected.
func SelectDue(policies []types.UpdatePolicy, now time.Time, force bool) []types.UpdatePolicy {
	due := make([]types.UpdatePolicy, 0, len(policies))
	for _, p := range policies {
		if force || IsDue(p, now) {
			due = append(due, p)
		}
	}
	return due
}

// withDefaultFrequency fills blank frequencies from the document default.
func withDefaultFrequency(policies []types.UpdatePolicy, def types.UpdateFrequency) []types.UpdatePolicy {
	out := make([]types.UpdatePolicy, len(policies))
	copy(out, policies)
	for i := range out {
		if out[i].UpdateFrequency == "" {
			out[i].UpdateFrequency = def
		}
	}
	return out
}
