package parser

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docrank/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser reads positioned glyphs from each page and regroups them into
// runs, lines and blocks the way a layout-aware extractor would.
type PDFParser struct {
	Layout LayoutConfig
}

// LayoutConfig holds the grouping tolerances, expressed as fractions of the
// current font size.
type LayoutConfig struct {
	LineTolerance float64 // max baseline drift inside one line
	WordGap       float64 // horizontal gap that implies a space
	BlockGap      float64 // baseline distance that starts a new block
}

// DefaultLayout returns the tolerances used when none are configured.
func DefaultLayout() LayoutConfig {
	return LayoutConfig{
		LineTolerance: 0.3,
		WordGap:       0.15,
		BlockGap:      1.6,
	}
}

func (p *PDFParser) layout() LayoutConfig {
	if p.Layout == (LayoutConfig{}) {
		return DefaultLayout()
	}
	return p.Layout
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "docrank-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	doc, err := p.ParseFile(tmpPath)
	if err != nil {
		return nil, err
	}
	doc.Filename = filename
	return doc, nil
}

// ParseFile lays out every page of the PDF at path.
func (p *PDFParser) ParseFile(path string) (doc *doctree.Document, err error) {
	// The PDF library panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("read pdf %s: %v", filepath.Base(path), r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	doc = &doctree.Document{Filename: filepath.Base(path)}
	cfg := p.layout()
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		glyphs := make([]glyph, 0, len(content.Text))
		for _, t := range content.Text {
			glyphs = append(glyphs, glyph{
				font: t.Font,
				size: t.FontSize,
				x:    t.X,
				y:    t.Y,
				w:    t.W,
				s:    t.S,
			})
		}
		doc.Pages = append(doc.Pages, doctree.Page{
			Number: i,
			Blocks: buildBlocks(glyphs, cfg),
		})
	}
	return doc, nil
}

// glyph is one positioned text fragment from a page content stream.
type glyph struct {
	font string
	size float64
	x, y float64
	w    float64
	s    string
}

// buildBlocks groups glyphs (in content-stream order) into runs, lines and
// blocks. A block ends on a large vertical gap or when the leading run of the
// next line changes size or weight, which keeps headings in their own block.
func buildBlocks(glyphs []glyph, cfg LayoutConfig) []doctree.Block {
	lines := buildLines(glyphs, cfg)
	if len(lines) == 0 {
		return nil
	}

	var blocks []doctree.Block
	cur := doctree.Block{Lines: []doctree.Line{lines[0].line}}
	for i := 1; i < len(lines); i++ {
		prev, next := lines[i-1], lines[i]
		size := math.Max(prev.size, 1)
		gap := math.Abs(prev.y - next.y)
		styleChange := math.Round(prev.size) != math.Round(next.size) || prev.bold != next.bold
		if gap > cfg.BlockGap*size || styleChange {
			blocks = append(blocks, cur)
			cur = doctree.Block{}
		}
		cur.Lines = append(cur.Lines, next.line)
	}
	blocks = append(blocks, cur)
	return blocks
}

type placedLine struct {
	line doctree.Line
	y    float64
	size float64
	bold bool
}

func buildLines(glyphs []glyph, cfg LayoutConfig) []placedLine {
	var (
		lines   []placedLine
		cur     *placedLine
		run     *doctree.Run
		lastEnd float64
	)

	flushRun := func() {
		if run != nil && cur != nil && strings.TrimSpace(run.Text) != "" {
			cur.line.Runs = append(cur.line.Runs, *run)
		}
		run = nil
	}
	flushLine := func() {
		flushRun()
		if cur != nil && len(cur.line.Runs) > 0 {
			first := cur.line.Runs[0]
			cur.size = first.FontSize
			cur.bold = first.Bold()
			lines = append(lines, *cur)
		}
		cur = nil
	}

	for _, g := range glyphs {
		if g.s == "" {
			continue
		}
		size := math.Max(g.size, 1)
		newLine := cur == nil ||
			math.Abs(g.y-cur.y) > cfg.LineTolerance*size ||
			g.x < lastEnd-size
		if newLine {
			flushLine()
			cur = &placedLine{y: g.y}
			lastEnd = g.x
		}

		if run == nil || run.FontName != g.font || run.FontSize != g.size {
			// Carry a word break across a font switch onto the new run.
			space := run != nil && g.x-lastEnd > cfg.WordGap*size
			flushRun()
			run = &doctree.Run{FontName: g.font, FontSize: g.size}
			if space {
				run.Text = " "
			}
		} else if g.x-lastEnd > cfg.WordGap*size &&
			!strings.HasSuffix(run.Text, " ") && !strings.HasPrefix(g.s, " ") {
			run.Text += " "
		}
		run.Text += g.s
		lastEnd = g.x + g.w
	}
	flushLine()
	return lines
}
