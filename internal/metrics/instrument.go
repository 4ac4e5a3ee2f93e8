package metrics

import (
	"context"
	"time"

	"github.com/dgallion1/docrank/internal/embed"
	"github.com/dgallion1/docrank/internal/rerank"
)

const (
	OpEmbed  = "embed"
	OpRerank = "rerank"
)

type timedEmbedder struct {
	next     embed.Embedder
	provider string
	rec      *Recorder
}

// InstrumentEmbedder times every call made through next.
func InstrumentEmbedder(next embed.Embedder, provider string, rec *Recorder) embed.Embedder {
	if rec == nil {
		return next
	}
	return &timedEmbedder{next: next, provider: provider, rec: rec}
}

func (e *timedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	out, err := e.next.EmbedDocuments(ctx, texts)
	e.rec.ObserveCall(OpEmbed, e.provider, time.Since(start), err)
	return out, err
}

func (e *timedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	out, err := e.next.EmbedQuery(ctx, text)
	e.rec.ObserveCall(OpEmbed, e.provider, time.Since(start), err)
	return out, err
}

type timedScorer struct {
	rerank.Scorer
	rec *Recorder
}

// InstrumentScorer times every Score call made through next.
func InstrumentScorer(next rerank.Scorer, rec *Recorder) rerank.Scorer {
	if rec == nil {
		return next
	}
	return &timedScorer{Scorer: next, rec: rec}
}

func (s *timedScorer) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	start := time.Now()
	out, err := s.Scorer.Score(ctx, query, passages)
	s.rec.ObserveCall(OpRerank, s.Name(), time.Since(start), err)
	return out, err
}
