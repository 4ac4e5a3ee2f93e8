package doctree

import "strings"

// Document is the layout of one PDF as read from disk.
type Document struct {
	Filename string // Source filename (base name, as listed in the input descriptor)
	Pages    []Page // Pages in reading order
}

// Page holds the text blocks of a single page.
type Page struct {
	Number int     // 1-based page number
	Blocks []Block // Text blocks in reading order
}

// Block is a group of visually adjacent lines.
type Block struct {
	Lines []Line
}

// Line is an ordered sequence of runs sharing a baseline.
type Line struct {
	Runs []Run
}

// Run is a contiguous span of text in a single font.
type Run struct {
	Text     string
	FontSize float64
	FontName string
}

// boldMarkers are the font-name fragments that mark a heavy weight.
var boldMarkers = []string{"bold", "semibold", "black"}

// Bold reports whether the run's font name carries a bold marker.
func (r Run) Bold() bool {
	name := strings.ToLower(r.FontName)
	for _, m := range boldMarkers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// FirstRun returns the first run of the block's first line.
func (b Block) FirstRun() (Run, bool) {
	if len(b.Lines) == 0 || len(b.Lines[0].Runs) == 0 {
		return Run{}, false
	}
	return b.Lines[0].Runs[0], true
}

// Runs iterates every run of the block in order.
func (b Block) Runs() []Run {
	var out []Run
	for _, ln := range b.Lines {
		out = append(out, ln.Runs...)
	}
	return out
}

// Section is a titled span of document text bounded by detected headings.
type Section struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Page     int    `json:"page"`
	Document string `json:"document"`
}
