package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// word lays out s as one glyph per character starting at x on baseline y.
func word(s, font string, size, x, y float64) []glyph {
	var out []glyph
	w := size * 0.5
	for i, r := range s {
		out = append(out, glyph{font: font, size: size, x: x + float64(i)*w, y: y, w: w, s: string(r)})
	}
	return out
}

func TestBuildBlocks_HeadingSeparatedFromBody(t *testing.T) {
	var glyphs []glyph
	glyphs = append(glyphs, word("Nightlife", "Helvetica-Bold", 16, 72, 700)...)
	glyphs = append(glyphs, word("Bars", "Helvetica", 10, 72, 680)...)
	glyphs = append(glyphs, word("open", "Helvetica", 10, 72+4*5+3, 680)...)
	glyphs = append(glyphs, word("late", "Helvetica", 10, 72, 668)...)

	blocks := buildBlocks(glyphs, DefaultLayout())
	require.Len(t, blocks, 2)

	head, ok := blocks[0].FirstRun()
	require.True(t, ok)
	assert.Equal(t, "Nightlife", head.Text)
	assert.True(t, head.Bold())
	assert.Equal(t, 16.0, head.FontSize)

	require.Len(t, blocks[1].Lines, 2)
	assert.Equal(t, "Bars open", blocks[1].Lines[0].Runs[0].Text)
	assert.Equal(t, "late", blocks[1].Lines[1].Runs[0].Text)
}

func TestBuildBlocks_LargeGapStartsNewBlock(t *testing.T) {
	var glyphs []glyph
	glyphs = append(glyphs, word("first", "Times", 10, 72, 700)...)
	glyphs = append(glyphs, word("second", "Times", 10, 72, 640)...)

	blocks := buildBlocks(glyphs, DefaultLayout())
	require.Len(t, blocks, 2)
	assert.Equal(t, "first", blocks[0].Lines[0].Runs[0].Text)
	assert.Equal(t, "second", blocks[1].Lines[0].Runs[0].Text)
}

func TestBuildBlocks_FontSwitchSplitsRuns(t *testing.T) {
	var glyphs []glyph
	glyphs = append(glyphs, word("Price", "Arial-Bold", 10, 72, 500)...)
	glyphs = append(glyphs, word("$15", "Arial", 10, 72+5*5+4, 500)...)

	blocks := buildBlocks(glyphs, DefaultLayout())
	require.Len(t, blocks, 1)
	runs := blocks[0].Runs()
	require.Len(t, runs, 2)
	assert.Equal(t, "Price", runs[0].Text)
	assert.Equal(t, " $15", runs[1].Text)
	assert.Equal(t, "Price $15", strings.TrimSpace(runs[0].Text+runs[1].Text))
}

func TestBuildBlocks_Empty(t *testing.T) {
	assert.Empty(t, buildBlocks(nil, DefaultLayout()))
	assert.Empty(t, buildBlocks([]glyph{{s: "", size: 10}}, DefaultLayout()))
}

func TestForFile(t *testing.T) {
	p, err := ForFile("guide.PDF")
	require.NoError(t, err)
	assert.IsType(t, &PDFParser{}, p)

	_, err = ForFile("notes.docx")
	assert.ErrorIs(t, err, ErrUnsupported)

	assert.True(t, IsSupportedExtension("a.pdf"))
	assert.False(t, IsSupportedExtension("a.txt"))
}

func TestParseFile_MissingFile(t *testing.T) {
	p := &PDFParser{}
	_, err := p.ParseFile("/nonexistent/file.pdf")
	assert.Error(t, err)
}
