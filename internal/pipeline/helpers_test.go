package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/docrank/internal/doctree"
)

func block(text string, size float64) doctree.Block {
	return doctree.Block{Lines: []doctree.Line{{Runs: []doctree.Run{{Text: text, FontName: "Times-Roman", FontSize: size}}}}}
}

// page builds alternating heading (14pt) and body (10pt) blocks.
func page(n int, pairs ...string) doctree.Page {
	p := doctree.Page{Number: n}
	for i := 0; i+1 < len(pairs); i += 2 {
		p.Blocks = append(p.Blocks, block(pairs[i], 14), block(pairs[i+1], 10))
	}
	return p
}

// fakeSource serves prebuilt documents, optionally after a per-file delay.
type fakeSource struct {
	docs   map[string]*doctree.Document
	delays map[string]time.Duration
	errs   map[string]error

	mu     sync.Mutex
	opened []string
}

func (s *fakeSource) Open(ctx context.Context, filename string) (*doctree.Document, error) {
	s.mu.Lock()
	s.opened = append(s.opened, filename)
	s.mu.Unlock()

	if d := s.delays[filename]; d > 0 {
		time.Sleep(d)
	}
	if err := s.errs[filename]; err != nil {
		return nil, err
	}
	doc, ok := s.docs[filename]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, filename)
	}
	return doc, nil
}

// wordEmbedder counts a few topic words, plus a constant.
type wordEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *wordEmbedder) vec(text string) []float32 {
	l := strings.ToLower(text)
	return []float32{
		float32(strings.Count(l, "beach")),
		float32(strings.Count(l, "bar")),
		float32(strings.Count(l, "food")),
		0.1,
	}
}

func (e *wordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vec(t)
	}
	return out, nil
}

func (e *wordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.vec(text), nil
}

type recordingTracker struct {
	statuses []JobStatus
	loaded   int
	skipped  int
	errs     []string
}

func (r *recordingTracker) SetStatus(s JobStatus, _ string) { r.statuses = append(r.statuses, s) }
func (r *recordingTracker) SetDocuments(l, s int)           { r.loaded, r.skipped = l, s }
func (r *recordingTracker) SetCounts(int, int)              {}
func (r *recordingTracker) AddError(msg string)             { r.errs = append(r.errs, msg) }

const filler = " Expect clear water, fine sand and a friendly crowd during the long summer season."

func beachGuide() *doctree.Document {
	return &doctree.Document{Filename: "Beach Guide.pdf", Pages: []doctree.Page{
		page(1,
			"Coastal Adventures", "The beach at Nice is lined with a beach bar every few steps."+filler,
			"Table of Contents", "Coastal Adventures, Nightlife, and more chapters follow on later pages."+filler,
		),
		page(2,
			"Nightlife", "Every bar in the old town stays open late, and the clubs fill after midnight."+filler,
		),
	}}
}

func foodGuide() *doctree.Document {
	return &doctree.Document{Filename: "Food.pdf", Pages: []doctree.Page{
		page(1,
			"Local Cuisine", "Street food is cheap and good; try socca and pan bagnat near the market."+filler,
		),
	}}
}
