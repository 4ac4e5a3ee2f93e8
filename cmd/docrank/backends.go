package main

import (
	"fmt"
	"log/slog"

	"github.com/dgallion1/docrank/internal/config"
	"github.com/dgallion1/docrank/internal/embed"
	"github.com/dgallion1/docrank/internal/keywords"
	"github.com/dgallion1/docrank/internal/metrics"
	"github.com/dgallion1/docrank/internal/pipeline"
	"github.com/dgallion1/docrank/internal/rank"
	"github.com/dgallion1/docrank/internal/rerank"
	"github.com/dgallion1/docrank/internal/segment"
)

// backends owns the model clients behind a runner.
type backends struct {
	embedder embed.Provider
	pairwise rerank.Scorer
}

func (b *backends) Close() {
	if b.embedder != nil {
		b.embedder.Close()
	}
	if b.pairwise != nil {
		b.pairwise.Close()
	}
}

func openBackends(cfg config.Config) (*backends, error) {
	emb, err := embed.NewProvider(embed.ProviderConfig{
		Provider: cfg.EmbedProvider,
		Model:    cfg.EmbedModel,
		BaseURL:  cfg.EmbedBaseURL,
		APIKey:   cfg.EmbedAPIKey,
		CacheDir: cfg.EmbedCacheDir,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}
	pw, err := rerank.New(rerank.Config{
		Provider: cfg.RerankProvider,
		BaseURL:  cfg.RerankBaseURL,
		Model:    cfg.RerankModel,
	})
	if err != nil {
		emb.Close()
		return nil, fmt.Errorf("rerank provider: %w", err)
	}
	return &backends{embedder: emb, pairwise: pw}, nil
}

func rankConfig(cfg config.Config) rank.Config {
	rc := rank.DefaultConfig()
	rc.TopK = cfg.TopK
	rc.CandidatesPerDoc = cfg.CandidatesPerDoc
	rc.MinBodyLength = cfg.MinBodyLength
	return rc
}

// newRunner wires the pipeline to b, timing model calls into rec.
func newRunner(cfg config.Config, b *backends, rec *metrics.Recorder, log *slog.Logger) (*pipeline.Runner, error) {
	return pipeline.NewRunner(pipeline.Deps{
		Embedder:    metrics.InstrumentEmbedder(b.embedder, b.embedder.Name(), rec),
		Pairwise:    metrics.InstrumentScorer(b.pairwise, rec),
		Keywords:    keywords.NewExtractor(),
		Rank:        rankConfig(cfg),
		Segment:     segment.DefaultConfig(),
		LoadWorkers: cfg.LoadWorkers,
		Log:         log,
	})
}
