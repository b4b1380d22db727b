// Package types provides type definitions for structured data used throughout the company updater.
//
//nolint:revive // types is a standard Go package name pattern
package types

// HistoryEntry is one dated event in a company's history.
type HistoryEntry struct {
	Year  string `json:"year"`
	Event string `json:"event"`
}

// Company is the full, persisted profile of a game company. Every key is
// written, so a bootstrapped file carries "" and [] placeholders.
type Company struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Country          string         `json:"country"`
	Established      string         `json:"established"`
	Headquarters     string         `json:"headquarters"`
	Description      string         `json:"description"`
	NotableWorks     []string       `json:"notableWorks"`
	History          []HistoryEntry `json:"history"`
	RelatedCompanies []string       `json:"relatedCompanies"`
	Website          string         `json:"website"`
}

// NewCompany returns the bootstrap record for a company that has never been researched.
func NewCompany(slug, name string) *Company {
	return &Company{
		ID:               slug,
		Name:             name,
		NotableWorks:     []string{},
		History:          []HistoryEntry{},
		RelatedCompanies: []string{},
	}
}

// Clone returns a deep copy of the company.
func (c *Company) Clone() *Company {
	if c == nil {
		return nil
	}
	out := *c
	out.NotableWorks = cloneStrings(c.NotableWorks)
	out.RelatedCompanies = cloneStrings(c.RelatedCompanies)
	if c.History != nil {
		out.History = make([]HistoryEntry, len(c.History))
		copy(out.History, c.History)
	}
	return &out
}

// LatestHistory returns the last history entry, if any.
func (c *Company) LatestHistory() (HistoryEntry, bool) {
	if c == nil || len(c.History) == 0 {
		return HistoryEntry{}, false
	}
	return c.History[len(c.History)-1], true
}

// PartialCompany is a research result: every field may be absent.
// Scalars are pointers and slices are nil when the backend did not return them.
type PartialCompany struct {
	Description      *string        `json:"description,omitempty"`
	Established      *string        `json:"established,omitempty"`
	Country          *string        `json:"country,omitempty"`
	Headquarters     *string        `json:"headquarters,omitempty"`
	NotableWorks     []string       `json:"notableWorks,omitempty"`
	History          []HistoryEntry `json:"history,omitempty"`
	Website          *string        `json:"website,omitempty"`
	RelatedCompanies []string       `json:"relatedCompanies,omitempty"`
}

// IsEmpty reports whether the partial carries no fields at all.
func (p *PartialCompany) IsEmpty() bool {
	if p == nil {
		return true
	}
	return p.Description == nil && p.Established == nil && p.Country == nil &&
		p.Headquarters == nil && p.Website == nil &&
		p.NotableWorks == nil && p.History == nil && p.RelatedCompanies == nil
}

// String returns a pointer to s, for building partial records.
func String(s string) *string {
	return &s
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
