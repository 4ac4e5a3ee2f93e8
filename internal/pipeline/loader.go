package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/dgallion1/docrank/internal/doctree"
	"github.com/dgallion1/docrank/internal/segment"
)

// Loaded is the flattened section list of a load pass.
type Loaded struct {
	Sections []doctree.Section
	Loaded   int
	Skipped  int
	Errors   []string
}

// Loader parses and segments documents on a bounded goroutine pool.
// Sections come back in input order regardless of completion order.
type Loader struct {
	pool *ants.Pool
	seg  segment.Config
	log  *slog.Logger
}

func NewLoader(workers int, seg segment.Config, log *slog.Logger) (*Loader, error) {
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create load pool: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Loader{pool: pool, seg: seg, log: log}, nil
}

// Release stops the pool. The loader must not be used afterwards.
func (l *Loader) Release() {
	l.pool.Release()
}

type loadResult struct {
	sections []doctree.Section
	err      error
}

// Load opens each filename through src. Unavailable or unreadable documents
// are skipped and reported in Errors.
func (l *Loader) Load(ctx context.Context, src Source, filenames []string) Loaded {
	results := make([]loadResult, len(filenames))

	var wg sync.WaitGroup
	for i, name := range filenames {
		wg.Add(1)
		err := l.pool.Submit(func() {
			defer wg.Done()
			doc, err := src.Open(ctx, name)
			if err != nil {
				results[i].err = err
				return
			}
			doc.Filename = name
			results[i].sections = segment.Sections(doc, l.seg)
		})
		if err != nil {
			wg.Done()
			results[i].err = fmt.Errorf("schedule: %w", err)
		}
	}
	wg.Wait()

	var out Loaded
	for i, r := range results {
		name := filenames[i]
		if r.err != nil {
			out.Skipped++
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %s", name, r.err))
			if errors.Is(r.err, ErrDocumentNotFound) {
				l.log.Warn("document missing, skipping", "document", name)
			} else {
				l.log.Warn("document unreadable, skipping", "document", name, "error", r.err)
			}
			continue
		}
		out.Loaded++
		l.log.Debug("document segmented", "document", name, "sections", len(r.sections))
		out.Sections = append(out.Sections, r.sections...)
	}
	return out
}
