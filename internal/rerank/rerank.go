// Package rerank scores (query, passage) pairs jointly, as a cross-encoder
// does, to complement the bi-encoder similarity computed by package embed.
package rerank

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/docrank/internal/tei"
)

// ErrRerankFailed indicates the backend could not score the pairs.
var ErrRerankFailed = errors.New("rerank failed")

// Scorer returns one relevance score per passage, in passage order.
// Scores are only comparable within one call.
type Scorer interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
	Name() string
	Close() error
}

// Config selects a reranking backend.
type Config struct {
	// Provider is "tei" (a cross-encoder served by Text Embeddings
	// Inference) or "lexical" (default).
	Provider string
	BaseURL  string
	Model    string
	APIKey   string
}

// New builds the configured Scorer.
func New(cfg Config) (Scorer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "lexical", "":
		return NewLexicalScorer(), nil
	case "tei":
		s, err := NewTEIScorer(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown rerank provider %q", cfg.Provider)
	}
}

// TEIScorer calls a TEI server's /rerank endpoint with raw logits.
type TEIScorer struct {
	model  string
	client *tei.Client
}

func NewTEIScorer(cfg Config, opts ...tei.Option) (*TEIScorer, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("rerank: base URL required")
	}
	if cfg.APIKey != "" {
		opts = append(opts, tei.WithAPIKey(cfg.APIKey))
	}
	return &TEIScorer{model: cfg.Model, client: tei.NewClient(cfg.BaseURL, opts...)}, nil
}

func (s *TEIScorer) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}
	scores, err := s.client.Rerank(ctx, query, passages)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRerankFailed, err)
	}
	return scores, nil
}

func (s *TEIScorer) Name() string { return "tei:" + s.model }

func (s *TEIScorer) Close() error {
	s.client.Close()
	return nil
}
