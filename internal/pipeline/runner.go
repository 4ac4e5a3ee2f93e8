// Package pipeline runs an analysis end to end: documents are loaded and
// segmented, candidates collected and scored, and the top sections selected
// into the output document. Analyses run either once from the CLI or as
// queued jobs behind the HTTP API.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docrank/internal/config"
	"github.com/dgallion1/docrank/internal/embed"
	"github.com/dgallion1/docrank/internal/query"
	"github.com/dgallion1/docrank/internal/rank"
	"github.com/dgallion1/docrank/internal/rerank"
	"github.com/dgallion1/docrank/internal/segment"
)

// ErrNoSections means no section survived loading and filtering. It ends an
// analysis without output and is not a failure.
var ErrNoSections = errors.New("no rankable sections")

// Tracker receives phase transitions and counts. *Job implements it.
type Tracker interface {
	SetStatus(status JobStatus, phase string)
	SetDocuments(loaded, skipped int)
	SetCounts(sections, candidates int)
	AddError(msg string)
}

type nopTracker struct{}

func (nopTracker) SetStatus(JobStatus, string) {}
func (nopTracker) SetDocuments(int, int)       {}
func (nopTracker) SetCounts(int, int)          {}
func (nopTracker) AddError(string)             {}

// Deps wires a Runner to its model backends and tables.
type Deps struct {
	Embedder embed.Embedder
	Pairwise rerank.Scorer
	Keywords rank.KeywordExtractor
	Rank     rank.Config
	Segment  segment.Config
	// Policies run before selection. Nil installs the dinner override;
	// an empty slice disables overrides.
	Policies    []rank.OverridePolicy
	LoadWorkers int
	Log         *slog.Logger
}

// Runner executes analyses. It is safe for concurrent use.
type Runner struct {
	loader    *Loader
	collector *rank.Collector
	scorer    *rank.Scorer
	selector  *rank.Selector
	log       *slog.Logger
	now       func() time.Time
}

func NewRunner(d Deps) (*Runner, error) {
	if d.Embedder == nil {
		return nil, errors.New("runner: embedder is required")
	}
	if d.Pairwise == nil {
		return nil, errors.New("runner: pairwise scorer is required")
	}
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	if d.Rank.TopK <= 0 {
		d.Rank = rank.DefaultConfig()
	}
	if d.Rank.CandidatesPerDoc <= 0 {
		d.Rank.CandidatesPerDoc = rank.DefaultConfig().CandidatesPerDoc
	}
	policies := d.Policies
	if policies == nil {
		policies = []rank.OverridePolicy{rank.DefaultDinnerOverride()}
	}
	loader, err := NewLoader(d.LoadWorkers, d.Segment, log)
	if err != nil {
		return nil, err
	}
	return &Runner{
		loader:    loader,
		collector: rank.NewCollector(d.Rank, d.Embedder, log),
		scorer:    rank.NewScorer(d.Rank, d.Pairwise, d.Keywords, log),
		selector:  rank.NewSelector(d.Rank.TopK, log, policies...),
		log:       log,
		now:       time.Now,
	}, nil
}

// Close releases the load pool.
func (r *Runner) Close() {
	r.loader.Release()
}

// Request is one analysis to run.
type Request struct {
	Input   *config.Input
	Source  Source
	Tracker Tracker      // optional
	Log     *slog.Logger // optional; scoped logger for this analysis
}

// Result carries the output document and the selected candidates with
// their signal breakdown.
type Result struct {
	Output *Output
	Top    []rank.Candidate
	Stats  RunStats
}

type RunStats struct {
	DocumentsLoaded  int           `json:"documents_loaded"`
	DocumentsSkipped int           `json:"documents_skipped"`
	Sections         int           `json:"sections"`
	Candidates       int           `json:"candidates"`
	Elapsed          time.Duration `json:"elapsed"`
}

// Run executes every phase for req. ErrNoSections is returned when nothing
// is left to rank.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	start := r.now()
	in := req.Input
	tr := req.Tracker
	if tr == nil {
		tr = nopTracker{}
	}
	log := req.Log
	if log == nil {
		log = r.log
	}

	// Phase 1: load and segment
	tr.SetStatus(StatusLoading, "loading documents")
	loaded := r.loader.Load(ctx, req.Source, in.Filenames())
	tr.SetDocuments(loaded.Loaded, loaded.Skipped)
	for _, e := range loaded.Errors {
		tr.AddError(e)
	}
	log.Info("documents loaded", "loaded", loaded.Loaded, "skipped", loaded.Skipped, "sections", len(loaded.Sections))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(loaded.Sections) == 0 {
		return nil, ErrNoSections
	}

	// Phase 2: expand the query and collect candidates
	tr.SetStatus(StatusCollecting, "collecting candidates")
	u := query.New(in.Persona.Role, in.JobToBeDone.Task)
	log.Debug("context queries", "queries", u.Queries, "days", u.Days, "people", u.People)
	cands, err := r.collector.Collect(ctx, loaded.Sections, u.Queries, u.Task)
	if err != nil {
		return nil, fmt.Errorf("collect candidates: %w", err)
	}
	tr.SetCounts(len(loaded.Sections), len(cands))
	if len(cands) == 0 {
		return nil, ErrNoSections
	}

	// Phase 3: score
	tr.SetStatus(StatusScoring, "scoring candidates")
	if err := r.scorer.Score(ctx, cands, u.Combined(), u.Task, u); err != nil {
		return nil, fmt.Errorf("score candidates: %w", err)
	}
	log.Info("candidates scored", "candidates", len(cands))

	// Phase 4: select
	tr.SetStatus(StatusSelecting, "selecting sections")
	sel := r.selector.Select(cands)

	out := &Output{
		Metadata: Metadata{
			InputDocuments:      in.Filenames(),
			Persona:             in.Persona.Role,
			JobToBeDone:         in.JobToBeDone.Task,
			ProcessingTimestamp: Timestamp(r.now()),
		},
		ExtractedSections:  sel.Sections,
		SubsectionAnalysis: sel.Excerpts,
	}
	stats := RunStats{
		DocumentsLoaded:  loaded.Loaded,
		DocumentsSkipped: loaded.Skipped,
		Sections:         len(loaded.Sections),
		Candidates:       len(cands),
		Elapsed:          r.now().Sub(start),
	}
	log.Info("sections selected", "selected", len(sel.Sections), "excerpts", len(sel.Excerpts), "elapsed", stats.Elapsed)
	return &Result{Output: out, Top: sel.Top, Stats: stats}, nil
}
