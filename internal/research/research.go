// Package research produces partial company records by asking a generative
// backend, either directly or with retrieved reference text.
package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/company-updater/internal/llm"
	"github.com/jonathan/company-updater/internal/types"
)

// Strategy names a research implementation.
type Strategy string

// Research strategies.
const (
	StrategyDirect Strategy = "direct"
	StrategyRAG    Strategy = "rag"
)

// Request describes one research call.
type Request struct {
	CompanyName    string
	PromptTemplate string
	Existing       types.Company
	IsNew          bool
}

// Result is the partial record found by research plus the payload it was decoded from.
type Result struct {
	Company types.PartialCompany
	Raw     string
}

// Researcher produces a partial record for a company.
type Researcher interface {
	Research(ctx context.Context, req Request) (*Result, error)
}

// Error reports a research failure: no payload, no sources, or an
// unparseable response.
type Error struct {
	Company  string
	Strategy Strategy
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s research for %s: %s: %v", e.Strategy, e.Company, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s research for %s: %s", e.Strategy, e.Company, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Selector picks the research strategy configured for a company.
type Selector struct {
	Direct Researcher
	RAG    Researcher
}

// For returns the RAG researcher when useRAG is set and one is configured,
// otherwise the direct researcher.
func (s Selector) For(useRAG bool) (Researcher, error) {
	if useRAG {
		if s.RAG == nil {
			return nil, fmt.Errorf("retrieval-augmented research is not configured")
		}
		return s.RAG, nil
	}
	if s.Direct == nil {
		return nil, fmt.Errorf("direct research is not configured")
	}
	return s.Direct, nil
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the default SleepFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func generate(ctx context.Context, client llm.Client, strategy Strategy, company string, req llm.StructuredRequest) (*Result, error) {
	resp, err := client.GenerateStructured(ctx, req)
	if err != nil {
		return nil, &Error{Company: company, Strategy: strategy, Message: "generation failed", Cause: err}
	}
	payload, ok := resp.Payload()
	if !ok {
		return nil, &Error{Company: company, Strategy: strategy, Message: "backend returned no structured payload"}
	}
	partial, err := ParsePartial(req.Schema, payload)
	if err != nil {
		return nil, &Error{Company: company, Strategy: strategy, Message: "invalid research payload", Cause: err}
	}
	return &Result{Company: *partial, Raw: payload}, nil
}

// latestHistoryLine renders the last history entry for prompt context.
func latestHistoryLine(c types.Company) string {
	entry, ok := c.LatestHistory()
	if !ok {
		return "no information"
	}
	return orUnknown(entry.Year) + ": " + orUnknown(entry.Event)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}

func joinOrUnknown(items []string) string {
	if len(items) == 0 {
		return "unknown"
	}
	return strings.Join(items, ", ")
}
