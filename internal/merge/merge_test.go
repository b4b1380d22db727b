package merge

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/company-updater/internal/types"
)

func baseCompany() types.Company {
	return types.Company{
		ID:           "nintendo",
		Name:         "Nintendo",
		Country:      "Japan",
		Established:  "1889-09-23",
		Headquarters: "Kyoto",
		Description:  "Playing card maker turned console manufacturer.",
		NotableWorks: []string{"Super Mario Bros.", "The Legend of Zelda"},
		History: []types.HistoryEntry{
			{Year: "1889", Event: "Founded as Nintendo Koppai"},
			{Year: "1983", Event: "Famicom released"},
		},
		RelatedCompanies: []string{"The Pokemon Company"},
		Website:          "https://www.nintendo.co.jp",
	}
}

func samplePartial() types.PartialCompany {
	return types.PartialCompany{
		Description:      types.String("Kyoto-based console maker and publisher."),
		Headquarters:     types.String("Kyoto, Japan"),
		NotableWorks:     []string{"The Legend of Zelda", "Splatoon", "X", strings.Repeat("a", 60)},
		History:          []types.HistoryEntry{{Year: "2017", Event: "Switch released"}, {Year: "1983", Event: "Different text"}},
		RelatedCompanies: []string{"", "HAL Laboratory", "The Pokemon Company"},
	}
}

func TestMerge_ScalarReplacement(t *testing.T) {
	got := Merge(baseCompany(), samplePartial(), DefaultOptions())

	assert.Equal(t, "Kyoto-based console maker and publisher.", got.Description)
	assert.Equal(t, "Kyoto, Japan", got.Headquarters)
	assert.Equal(t, "Japan", got.Country)
	assert.Equal(t, "1889-09-23", got.Established)
	assert.Equal(t, "https://www.nintendo.co.jp", got.Website)
}

func TestMerge_EmptyScalarsPreserveExisting(t *testing.T) {
	existing := baseCompany()
	updated := types.PartialCompany{
		Description: types.String(""),
		Country:     types.String("   "),
		Website:     nil,
	}

	got := Merge(existing, updated, DefaultOptions())

	assert.Equal(t, existing.Description, got.Description)
	assert.Equal(t, existing.Country, got.Country)
	assert.Equal(t, existing.Website, got.Website)
}

func TestMerge_NotableWorksDedup(t *testing.T) {
	existing := types.Company{NotableWorks: []string{"A", "B"}}
	updated := types.PartialCompany{NotableWorks: []string{"B", "C"}}

	got := Merge(existing, updated, Options{})

	assert.Equal(t, []string{"A", "B", "C"}, got.NotableWorks)
}

func TestMerge_NotableWorksLengthFilter(t *testing.T) {
	got := Merge(baseCompany(), samplePartial(), DefaultOptions())

	want := []string{"Super Mario Bros.", "The Legend of Zelda", "Splatoon"}
	if diff := cmp.Diff(want, got.NotableWorks); diff != "" {
		t.Errorf("notable works mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_NotableWorksFilterCountsRunes(t *testing.T) {
	existing := types.Company{}
	updated := types.PartialCompany{NotableWorks: []string{"星のカービィ", "ス"}}

	got := Merge(existing, updated, DefaultOptions())

	assert.Equal(t, []string{"星のカービィ"}, got.NotableWorks)
}

func TestMerge_NotableWorksFilterDisabled(t *testing.T) {
	existing := types.Company{}
	updated := types.PartialCompany{NotableWorks: []string{"X", "Tetris"}}

	got := Merge(existing, updated, Options{FilterNotableWorks: false})

	assert.Equal(t, []string{"X", "Tetris"}, got.NotableWorks)
}

func TestMerge_RelatedCompanies(t *testing.T) {
	got := Merge(baseCompany(), samplePartial(), DefaultOptions())
	assert.Equal(t, []string{"The Pokemon Company", "HAL Laboratory"}, got.RelatedCompanies)

	t.Run("absent existing list", func(t *testing.T) {
		existing := types.Company{}
		got := Merge(existing, types.PartialCompany{RelatedCompanies: []string{"Sega", "Sega"}}, DefaultOptions())
		assert.Equal(t, []string{"Sega"}, got.RelatedCompanies)
	})

	t.Run("only blank entries keep absence", func(t *testing.T) {
		existing := types.Company{}
		got := Merge(existing, types.PartialCompany{RelatedCompanies: []string{""}}, DefaultOptions())
		assert.Nil(t, got.RelatedCompanies)
	})
}

func TestMerge_HistoryNeverOverwritesYear(t *testing.T) {
	got := Merge(baseCompany(), samplePartial(), DefaultOptions())

	want := []types.HistoryEntry{
		{Year: "1889", Event: "Founded as Nintendo Koppai"},
		{Year: "1983", Event: "Famicom released"},
		{Year: "2017", Event: "Switch released"},
	}
	if diff := cmp.Diff(want, got.History); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_HistorySortedAndUnique(t *testing.T) {
	existing := types.Company{History: []types.HistoryEntry{{Year: "2000", Event: "a"}}}
	updated := types.PartialCompany{History: []types.HistoryEntry{
		{Year: "2010", Event: "b"},
		{Year: "1995", Event: "c"},
		{Year: "2010", Event: "duplicate in same response"},
		{Year: "", Event: "undated"},
	}}

	got := Merge(existing, updated, DefaultOptions())

	years := make([]string, 0, len(got.History))
	for _, h := range got.History {
		years = append(years, h.Year)
	}
	assert.Equal(t, []string{"1995", "2000", "2010"}, years)
	assert.Equal(t, "b", got.History[2].Event)
}

func TestMerge_HistoryYearsTrimmedOnBothSides(t *testing.T) {
	existing := types.Company{History: []types.HistoryEntry{
		{Year: " 1990", Event: "Founded"},
		{Year: "2001 ", Event: "Went public"},
	}}
	updated := types.PartialCompany{History: []types.HistoryEntry{
		{Year: "1990", Event: "Founded again"},
		{Year: " 2001", Event: "Listed"},
		{Year: "1985 ", Event: "Earlier"},
	}}

	got := Merge(existing, updated, DefaultOptions())

	want := []types.HistoryEntry{
		{Year: "1985", Event: "Earlier"},
		{Year: "1990", Event: "Founded"},
		{Year: "2001", Event: "Went public"},
	}
	if diff := cmp.Diff(want, got.History); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, " 1990", existing.History[0].Year, "input must not be mutated")
}

func TestMerge_AbsentFieldsAreNoOps(t *testing.T) {
	existing := baseCompany()

	got := Merge(existing, types.PartialCompany{}, DefaultOptions())

	if diff := cmp.Diff(existing, got); diff != "" {
		t.Errorf("empty partial changed the record (-want +got):\n%s", diff)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	partials := []types.PartialCompany{
		samplePartial(),
		{NotableWorks: []string{"B", "B", "C"}},
		{History: []types.HistoryEntry{{Year: "1990", Event: "x"}, {Year: "1990", Event: "y"}}},
		{RelatedCompanies: []string{"", ""}},
		{},
	}

	for i, p := range partials {
		once := Merge(baseCompany(), p, DefaultOptions())
		twice := Merge(once, p, DefaultOptions())
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("partial %d: second merge changed the record (-once +twice):\n%s", i, diff)
		}
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	existing := baseCompany()
	snapshot := baseCompany()
	updated := samplePartial()

	_ = Merge(existing, updated, DefaultOptions())

	if diff := cmp.Diff(snapshot, existing); diff != "" {
		t.Errorf("existing record mutated (-want +got):\n%s", diff)
	}
	assert.Equal(t, samplePartial(), updated)
}

func TestMerge_Deterministic(t *testing.T) {
	a := Merge(baseCompany(), samplePartial(), DefaultOptions())
	b := Merge(baseCompany(), samplePartial(), DefaultOptions())
	assert.Equal(t, a, b)
}

func TestMerge_BootstrapRecord(t *testing.T) {
	existing := *types.NewCompany("newco", "NewCo")
	updated := types.PartialCompany{
		Description: types.String("A new studio."),
		Established: types.String("2020"),
		History:     []types.HistoryEntry{{Year: "2020", Event: "Founded"}},
	}

	got := Merge(existing, updated, DefaultOptions())

	assert.Equal(t, "newco", got.ID)
	assert.Equal(t, "NewCo", got.Name)
	assert.Equal(t, "A new studio.", got.Description)
	assert.Equal(t, "2020", got.Established)
	assert.Len(t, got.History, 1)
	assert.Empty(t, got.NotableWorks)
}
