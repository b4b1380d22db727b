package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-playground/validator/v10"
)

// UpdateFrequency is how often a company should be re-researched.
type UpdateFrequency string

// Supported update frequencies.
const (
	FrequencyWeekly    UpdateFrequency = "weekly"
	FrequencyMonthly   UpdateFrequency = "monthly"
	FrequencyQuarterly UpdateFrequency = "quarterly"
	FrequencyYearly    UpdateFrequency = "yearly"
)

// ThresholdDays returns the minimum whole days between updates.
// ok is false for unrecognized frequencies.
func (f UpdateFrequency) ThresholdDays() (days int, ok bool) {
	switch f {
	case FrequencyWeekly:
		return 7, true
	case FrequencyMonthly:
		return 30, true
	case FrequencyQuarterly:
		return 90, true
	case FrequencyYearly:
		return 365, true
	default:
		return 0, false
	}
}

// Priority is informational only; it does not affect ordering.
type Priority string

// Priority levels.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// isoLayout matches the millisecond ISO-8601 form written by the website tooling.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp is an ISO-8601 instant that tolerates "" (never updated) on disk.
// A value that cannot be parsed is kept verbatim and reported by Malformed.
type Timestamp struct {
	time.Time
	raw json.RawMessage
}

// NewTimestamp wraps t in UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// Malformed returns the on-disk value when it could not be parsed.
func (t Timestamp) Malformed() (string, bool) {
	return string(t.raw), len(t.raw) > 0
}

// MarshalJSON writes the instant in UTC with millisecond precision, "" when
// zero, or the original value when it was malformed.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if len(t.raw) > 0 {
		return t.raw, nil
	}
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(isoLayout))
}

// UnmarshalJSON accepts "", null, RFC 3339 and the other common ISO-8601
// forms such as date-only values. Anything else is kept as malformed
// rather than failing the whole document.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = Timestamp{}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		t.raw = append(json.RawMessage(nil), data...)
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parsed, err := parseTimestamp(s)
	if err != nil {
		t.raw = append(json.RawMessage(nil), data...)
		return nil
	}
	t.Time = parsed
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return parsed, nil
	}
	return dateparse.ParseIn(s, time.UTC)
}

// UpdatePolicy is the per-company refresh policy.
type UpdatePolicy struct {
	Slug            string          `json:"slug" validate:"required"`
	Name            string          `json:"name" validate:"required"`
	UpdateFrequency UpdateFrequency `json:"updateFrequency"`
	Priority        Priority        `json:"priority,omitempty" validate:"omitempty,oneof=high medium low"`
	LastUpdated     Timestamp       `json:"lastUpdated"`
	UseRAG          bool            `json:"useRAG"`
}

// UpdateConfig is the whole policy document persisted in update-config.json.
type UpdateConfig struct {
	Companies                  []UpdatePolicy  `json:"companies"`
	DefaultUpdateFrequency     UpdateFrequency `json:"defaultUpdateFrequency"`
	DeepResearchPromptTemplate string          `json:"deepResearchPromptTemplate"`
}

// Find returns the policy for slug.
func (c *UpdateConfig) Find(slug string) (*UpdatePolicy, bool) {
	for i := range c.Companies {
		if c.Companies[i].Slug == slug {
			return &c.Companies[i], true
		}
	}
	return nil, false
}

var policyValidator = validator.New()

// Validate checks one policy entry. Frequency values are not checked;
// unknown ones are never due.
func (p *UpdatePolicy) Validate() error {
	if err := policyValidator.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("policy %q: field %s failed %q validation", p.Slug, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("policy %q: %w", p.Slug, err)
	}
	return nil
}

// Usable returns the entries that pass Validate, in document order, and one
// error per rejected entry. Only the first entry for a slug is kept.
func (c *UpdateConfig) Usable() ([]UpdatePolicy, []error) {
	usable := make([]UpdatePolicy, 0, len(c.Companies))
	var problems []error
	seen := make(map[string]bool, len(c.Companies))
	for _, p := range c.Companies {
		if err := p.Validate(); err != nil {
			problems = append(problems, err)
			continue
		}
		if seen[p.Slug] {
			problems = append(problems, fmt.Errorf("duplicate policy slug %q", p.Slug))
			continue
		}
		seen[p.Slug] = true
		usable = append(usable, p)
	}
	return usable, problems
}
