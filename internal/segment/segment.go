// Package segment turns a document's text blocks into titled sections using
// font-size heuristics only; no structural metadata is consulted.
package segment

import (
	"math"
	"strings"

	"github.com/dgallion1/docrank/internal/doctree"
)

// Config controls heading detection.
type Config struct {
	HeadingRatio    float64 // rounded size >= ratio*dominant marks a heading
	DefaultBodySize int     // dominant size when a document has no text
	TitleWords      int     // words kept when a title is synthesized from the body
}

// DefaultConfig returns the standard heading thresholds.
func DefaultConfig() Config {
	return Config{
		HeadingRatio:    1.2,
		DefaultBodySize: 10,
		TitleWords:      8,
	}
}

const ellipsis = "…"

// DominantFontSize returns the rounded font size carrying the most
// characters across the document. Ties go to the smaller size so the result
// does not depend on run order.
func DominantFontSize(doc *doctree.Document, fallback int) int {
	counts := make(map[int]int)
	for _, page := range doc.Pages {
		for _, blk := range page.Blocks {
			for _, run := range blk.Runs() {
				txt := strings.TrimSpace(run.Text)
				if txt == "" {
					continue
				}
				counts[roundSize(run.FontSize)] += len([]rune(txt))
			}
		}
	}

	best, bestCount := fallback, -1
	for size, n := range counts {
		if n > bestCount || (n == bestCount && size < best) {
			best, bestCount = size, n
		}
	}
	return best
}

// Sections scans every page of doc and returns one section per detected
// heading, in reading order.
func Sections(doc *doctree.Document, cfg Config) []doctree.Section {
	if cfg.HeadingRatio <= 0 {
		cfg = DefaultConfig()
	}
	bodySize := DominantFontSize(doc, cfg.DefaultBodySize)

	var out []doctree.Section
	for _, page := range doc.Pages {
		for _, sec := range scanPage(page.Blocks, bodySize, cfg) {
			sec.Page = page.Number
			sec.Document = doc.Filename
			out = append(out, sec)
		}
	}
	return out
}

// scanState is the explicit cursor for one page scan.
type scanState struct {
	i     int
	title string
	body  []string
}

func scanPage(blocks []doctree.Block, bodySize int, cfg Config) []doctree.Section {
	var out []doctree.Section
	st := scanState{}
	for st.i < len(blocks) {
		if !isHeading(blocks[st.i], bodySize, cfg) {
			st.i++
			continue
		}

		st.title = joinTrimmed(blocks[st.i].Runs())
		st.body = st.body[:0]
		j := st.i + 1
		for j < len(blocks) && !isHeading(blocks[j], bodySize, cfg) {
			for _, run := range blocks[j].Runs() {
				st.body = append(st.body, run.Text)
			}
			j++
		}

		out = append(out, finish(st.title, strings.TrimSpace(strings.Join(st.body, " ")), cfg.TitleWords))
		st.i = j
	}
	return out
}

// finish applies the empty-body and empty-title fallbacks.
func finish(title, body string, titleWords int) doctree.Section {
	if body == "" {
		body = title
	}
	if title == "" {
		words := strings.Fields(body)
		if len(words) > titleWords {
			title = strings.Join(words[:titleWords], " ") + ellipsis
		} else {
			title = strings.Join(words, " ")
		}
	}
	return doctree.Section{Title: title, Body: body}
}

// isHeading applies the size/weight test to the block's first run.
func isHeading(b doctree.Block, bodySize int, cfg Config) bool {
	run, ok := b.FirstRun()
	if !ok {
		return false
	}
	size := roundSize(run.FontSize)
	if float64(size) >= float64(bodySize)*cfg.HeadingRatio {
		return true
	}
	return run.Bold() && size >= bodySize
}

func joinTrimmed(runs []doctree.Run) string {
	parts := make([]string, 0, len(runs))
	for _, r := range runs {
		parts = append(parts, strings.TrimSpace(r.Text))
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// roundSize rounds half to even.
func roundSize(size float64) int {
	return int(math.RoundToEven(size))
}
