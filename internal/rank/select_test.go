package rank

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cand(doc, title, body string, final, boost float64) Candidate {
	return Candidate{Section: sec(doc, title, body, 1), Final: final, PDFBoost: boost}
}

func TestTitleKey(t *testing.T) {
	assert.Equal(t, "nightlife guide", TitleKey("Nightlife Guide"))
	assert.Equal(t, "nightlife guide", TitleKey("  nightlife \t  guide "))
	assert.Equal(t, TitleKey("Nightlife Guide"), TitleKey("nightlife   guide"))
}

func TestDedupByTitle_FirstSeenWins(t *testing.T) {
	in := []Candidate{
		cand("a.pdf", "Nightlife Guide", "first", 2, 0),
		cand("b.pdf", "nightlife   guide", "second", 3, 0),
	}
	out := DedupByTitle(in)
	require.Len(t, out, 1)
	assert.Equal(t, "first", out[0].Body)
}

func TestDedupByTitle_Idempotent(t *testing.T) {
	in := []Candidate{
		cand("a.pdf", "A", "1", 1, 0),
		cand("a.pdf", "a", "2", 1, 0),
		cand("a.pdf", "B", "3", 1, 0),
		cand("a.pdf", " b ", "4", 1, 0),
		cand("a.pdf", "C", "5", 1, 0),
	}
	once := DedupByTitle(in)
	assert.Equal(t, once, DedupByTitle(once))
	assert.Len(t, once, 3)
}

func TestPrioritize_MatchedFirst(t *testing.T) {
	in := []Candidate{
		cand("x.pdf", "High", "b", 9.0, 0),
		cand("m.pdf", "Low matched", "b", 0.1, 0.2),
		cand("x.pdf", "Mid", "b", 5.0, 0),
		cand("m.pdf", "Better matched", "b", 0.3, 0.2),
	}
	out := Prioritize(in)
	titles := make([]string, len(out))
	for i, c := range out {
		titles[i] = c.Title
	}
	assert.Equal(t, []string{"Better matched", "Low matched", "High", "Mid"}, titles)
}

func TestPrioritize_StableOnTies(t *testing.T) {
	in := []Candidate{
		cand("a.pdf", "First", "b", 1, 0),
		cand("a.pdf", "Second", "b", 1, 0),
	}
	out := Prioritize(in)
	assert.Equal(t, "First", out[0].Title)
	assert.Equal(t, "Second", out[1].Title)
}

func TestSelect_DenseRanksAndTruncation(t *testing.T) {
	var in []Candidate
	for i := range 8 {
		in = append(in, cand("a.pdf", fmt.Sprintf("T%d", i), fmt.Sprintf("body %d", i), float64(i), 0))
	}
	sel := NewSelector(5, nil).Select(in)
	require.Len(t, sel.Sections, 5)
	for i, s := range sel.Sections {
		assert.Equal(t, i+1, s.ImportanceRank)
	}
	assert.Equal(t, "T7", sel.Sections[0].SectionTitle)
	assert.Len(t, sel.Top, 5)
}

func TestSelect_FewerThanTopK(t *testing.T) {
	in := []Candidate{
		cand("a.pdf", "Only", "x", 1, 0),
		cand("a.pdf", "only", "y", 2, 0),
	}
	sel := NewSelector(5, nil).Select(in)
	require.Len(t, sel.Sections, 1)
	assert.Equal(t, 1, sel.Sections[0].ImportanceRank)
	assert.Equal(t, "only", sel.Sections[0].SectionTitle)
}

func TestSelect_ExcerptsUniqueByBody(t *testing.T) {
	in := []Candidate{
		cand("a.pdf", "One", "same body", 3, 0),
		cand("b.pdf", "Two", "same body", 2, 0),
		cand("c.pdf", "Three", "other body", 1, 0),
	}
	sel := NewSelector(5, nil).Select(in)
	require.Len(t, sel.Sections, 3)
	require.Len(t, sel.Excerpts, 2)
	assert.LessOrEqual(t, len(sel.Excerpts), len(sel.Sections))
	assert.Equal(t, "a.pdf", sel.Excerpts[0].Document)
	assert.Equal(t, "other body", sel.Excerpts[1].RefinedText)

	seen := map[string]bool{}
	for _, e := range sel.Excerpts {
		assert.False(t, seen[e.RefinedText])
		seen[e.RefinedText] = true
	}
}

func TestSelect_EmptyPool(t *testing.T) {
	sel := NewSelector(5, nil).Select(nil)
	assert.NotNil(t, sel.Sections)
	assert.Empty(t, sel.Sections)
	assert.Empty(t, sel.Excerpts)
}

func TestDinnerOverride(t *testing.T) {
	var in []Candidate
	for i := range 5 {
		in = append(in, cand(fmt.Sprintf("Dinner Ideas - Mains_%d.pdf", i), fmt.Sprintf("Dish %d", i), "b", 1, 0))
	}
	in = append(in, cand("Breakfast Ideas.pdf", "Pancakes", "b", 100, 0))

	sel := NewSelector(10, nil, DefaultDinnerOverride()).Select(in)
	require.NotEmpty(t, sel.Sections)
	for _, s := range sel.Sections {
		assert.Contains(t, s.Document, "Dinner")
	}
}

func TestDinnerOverride_BelowThreshold(t *testing.T) {
	var in []Candidate
	for i := range 4 {
		in = append(in, cand(fmt.Sprintf("dinner_%d.pdf", i), fmt.Sprintf("Dish %d", i), "b", 1, 0))
	}
	// Several sections of one dinner document count once.
	in = append(in, cand("dinner_0.pdf", "Extra", "b", 1, 0))
	in = append(in, cand("lunch.pdf", "Salad", "b", 2, 0))

	out := DefaultDinnerOverride().Apply(in)
	assert.Len(t, out, len(in))
}
