package rank

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/docrank/internal/doctree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// topicEmbedder maps a text to a 3-d vector counting beach, bar and food
// mentions, plus a constant so no vector is zero.
type topicEmbedder struct {
	calls [][]string
	err   error
}

func (e *topicEmbedder) vec(text string) []float32 {
	l := strings.ToLower(text)
	return []float32{
		float32(strings.Count(l, "beach")),
		float32(strings.Count(l, "bar")),
		float32(strings.Count(l, "food")),
		0.1,
	}
}

func (e *topicEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.calls = append(e.calls, texts)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vec(t)
	}
	return out, nil
}

func (e *topicEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.vec(text), nil
}

func sec(doc, title, body string, page int) doctree.Section {
	return doctree.Section{Document: doc, Title: title, Body: body, Page: page}
}

func padded(s string) string {
	return s + strings.Repeat(" filler", 15)
}

func TestFilter(t *testing.T) {
	c := NewCollector(DefaultConfig(), &topicEmbedder{}, nil)
	in := []doctree.Section{
		sec("a.pdf", "Table of Contents", strings.Repeat("x", 200), 1),
		sec("a.pdf", "  Summary ", strings.Repeat("x", 200), 1),
		sec("a.pdf", "Tiny", "too short", 1),
		sec("a.pdf", "Short", strings.Repeat("y", 50), 1),
		sec("a.pdf", "Beach Days", padded("Beach time."), 2),
	}
	out := c.Filter(in)
	require.Len(t, out, 1)
	assert.Equal(t, "Beach Days", out[0].Title)
}

func TestFilter_CountsRunes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinBodyLength = 10
	cfg.MinRawBody = 5
	c := NewCollector(cfg, &topicEmbedder{}, nil)
	// Ten runes, more than ten bytes.
	out := c.Filter([]doctree.Section{sec("a.pdf", "Café", "éééééééééé", 1)})
	assert.Len(t, out, 1)
}

func TestCollect_EmptyAfterFilter(t *testing.T) {
	emb := &topicEmbedder{}
	c := NewCollector(DefaultConfig(), emb, nil)
	out, err := c.Collect(context.Background(), []doctree.Section{
		sec("a.pdf", "Introduction", strings.Repeat("x", 300), 1),
	}, []string{"q"}, "task")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, emb.calls, "nothing should be embedded")
}

func TestCollect_SemanticScoreAndBatching(t *testing.T) {
	emb := &topicEmbedder{}
	c := NewCollector(DefaultConfig(), emb, nil)
	sections := []doctree.Section{
		sec("guide.pdf", "Beaches", padded("The beach is wide."), 1),
		sec("guide.pdf", "Bars", padded("A bar on every corner."), 2),
	}
	out, err := c.Collect(context.Background(), sections, []string{"beach", "food"}, "nothing")
	require.NoError(t, err)
	require.Len(t, out, 2)

	// One batch for the queries, one for the sections.
	require.Len(t, emb.calls, 2)
	assert.Equal(t, []string{"beach", "food"}, emb.calls[0])
	assert.True(t, strings.HasPrefix(emb.calls[1][0], "Beaches. The beach"))

	assert.Equal(t, "Beaches", out[0].Title)
	assert.Greater(t, out[0].Semantic, out[1].Semantic)
	assert.InDelta(t, 1.0, out[0].Semantic, 0.05)
}

func TestCollect_PerDocumentCapAndOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CandidatesPerDoc = 2
	c := NewCollector(cfg, &topicEmbedder{}, nil)

	sections := []doctree.Section{
		sec("one.pdf", "Food 1", padded("food"), 1),
		sec("one.pdf", "Beach 1", padded("beach beach"), 1),
		sec("one.pdf", "Beach 2", padded("beach"), 2),
		sec("two.pdf", "Bar 1", padded("bar"), 1),
	}
	out, err := c.Collect(context.Background(), sections, []string{"beach"}, "")
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "one.pdf", out[0].Document)
	assert.Equal(t, "one.pdf", out[1].Document)
	assert.Equal(t, "two.pdf", out[2].Document)
	assert.NotEqual(t, "Food 1", out[0].Title)
	assert.NotEqual(t, "Food 1", out[1].Title)
}

func TestCollect_EmbedError(t *testing.T) {
	c := NewCollector(DefaultConfig(), &topicEmbedder{err: errors.New("boom")}, nil)
	_, err := c.Collect(context.Background(), []doctree.Section{
		sec("a.pdf", "Beach", padded("beach"), 1),
	}, []string{"q"}, "")
	assert.ErrorContains(t, err, "boom")
}

func TestPDFNameBoost(t *testing.T) {
	c := NewCollector(DefaultConfig(), &topicEmbedder{}, nil)
	words := taskWords("Plan a trip to the South of France, france trip")
	// Distinct words only.
	assert.Equal(t, []string{"plan", "a", "trip", "to", "the", "south", "of", "france"}, words)

	// "south", "of", "france" and "a" (inside "france") occur in the name.
	assert.InDelta(t, 0.8, c.PDFNameBoost("South of France - Cities.pdf", words), 1e-9)
	assert.Zero(t, c.PDFNameBoost("menu.pdf", []string{"dinner"}))
}

func TestPrefixRunes(t *testing.T) {
	assert.Equal(t, "héll", prefixRunes("héllo", 4))
	assert.Equal(t, "héllo", prefixRunes("héllo", 10))
	assert.Equal(t, "héllo", prefixRunes("héllo", 5))
}
