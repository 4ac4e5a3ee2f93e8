package embed

import (
	"context"
	"fmt"

	"github.com/dgallion1/docrank/internal/tei"
)

// TEIConfig holds configuration for a Text Embeddings Inference backend.
type TEIConfig struct {
	BaseURL string
	Model   string // informational; TEI serves one model per process
	APIKey  string
}

// Validate validates the configuration.
func (c TEIConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	return nil
}

// TEIEmbedder calls a TEI server's /embed endpoint.
type TEIEmbedder struct {
	cfg    TEIConfig
	client *tei.Client
}

func NewTEIEmbedder(cfg TEIConfig, opts ...tei.Option) (*TEIEmbedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if cfg.APIKey != "" {
		opts = append(opts, tei.WithAPIKey(cfg.APIKey))
	}
	return &TEIEmbedder{cfg: cfg, client: tei.NewClient(cfg.BaseURL, opts...)}, nil
}

// EmbedDocuments generates embeddings for multiple texts.
func (e *TEIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	vecs, err := e.client.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
	return vecs, nil
}

// EmbedQuery generates an embedding for a single query.
func (e *TEIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	vecs, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *TEIEmbedder) Name() string { return "tei:" + e.cfg.Model }

func (e *TEIEmbedder) Close() error {
	e.client.Close()
	return nil
}
