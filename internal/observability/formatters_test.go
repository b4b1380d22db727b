package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/company-updater/internal/types"
	"github.com/jonathan/company-updater/internal/updater"
)

func TestPrintCompany(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintCompany(&types.Company{
		ID:           "capcom",
		Name:         "Capcom",
		Country:      "Japan",
		NotableWorks: []string{"Street Fighter", "Resident Evil", "Monster Hunter", "Mega Man", "Devil May Cry", "Ace Attorney"},
		History: []types.HistoryEntry{
			{Year: "1979", Event: "Founded as I.R.M."},
			{Year: "1983", Event: "Capcom established"},
		},
	})
	output := buf.String()

	assert.Contains(t, output, "COMPANY RECORD")
	assert.Contains(t, output, "Capcom")
	assert.Contains(t, output, "Headquarters: -")
	assert.Contains(t, output, "Monster Hunter")
	assert.Contains(t, output, "... and 1 more")
	assert.Contains(t, output, "1983  Capcom established")
	assert.NotContains(t, output, "Website")
}

func TestPrintCompany_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintCompany(nil)
	assert.Empty(t, buf.String())
}

func TestPrintDue(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintDue([]types.UpdatePolicy{
		{Slug: "sega", UpdateFrequency: types.FrequencyWeekly, LastUpdated: types.NewTimestamp(now.AddDate(0, 0, -9))},
		{Slug: "newco", UpdateFrequency: types.FrequencyMonthly, UseRAG: true},
	}, now)
	output := buf.String()

	assert.Contains(t, output, "DUE FOR UPDATE")
	assert.Contains(t, output, "9d ago")
	assert.Contains(t, output, "never")
	assert.Contains(t, output, "rag")
	assert.Contains(t, output, "Total: 2")

	buf.Reset()
	p.PrintDue(nil, now)
	assert.Contains(t, buf.String(), "Nothing is due.")
}

func TestPrintBatch(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintBatch(&updater.BatchResult{
		RunID:    uuid.New(),
		Selected: 2,
		Updated:  []types.Company{{ID: "sega", Name: "SEGA"}},
		Failed:   []updater.Failure{{Slug: "atlus", Err: errors.New("no search results")}},
	})
	output := buf.String()

	assert.Contains(t, output, "BATCH COMPLETE WITH FAILURES")
	assert.Contains(t, output, "SEGA (sega)")
	assert.Contains(t, output, "atlus: no search results")
}

func TestPrintBatch_Clean(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintBatch(&updater.BatchResult{RunID: uuid.New()})
	output := buf.String()

	assert.Contains(t, output, "BATCH COMPLETE")
	assert.NotContains(t, output, "FAILURES")
}

func TestPrintCompanyList(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintCompanyList([]*types.Company{
		{ID: "konami", Name: "Konami", NotableWorks: []string{"Metal Gear"}},
	})
	output := buf.String()

	assert.Contains(t, output, "STORED COMPANIES")
	assert.Contains(t, output, "Konami (1 works, 0 history)")
	assert.Contains(t, output, "Total: 1")
}

func TestPrintBox_LongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintCompany(&types.Company{
		ID:   "long",
		Name: strings.Repeat("株式会社", 20),
	})
	output := buf.String()

	assert.Contains(t, output, "┌")
	assert.Contains(t, output, "└")
	assert.Contains(t, output, "...")
}
