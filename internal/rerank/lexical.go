package rerank

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

// ErrNilContext is returned when a nil context is passed to Score.
var ErrNilContext = errors.New("context cannot be nil")

// LexicalScorer scores a passage by the share of distinct query terms it
// contains. It needs no model and serves as the offline fallback.
type LexicalScorer struct{}

func NewLexicalScorer() *LexicalScorer {
	return &LexicalScorer{}
}

func (s *LexicalScorer) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	queryTokens := uniqueTokens(query)
	scores := make([]float64, len(passages))
	if len(queryTokens) == 0 {
		return scores, nil
	}
	for i, p := range passages {
		scores[i] = overlap(queryTokens, tokenize(p))
	}
	return scores, nil
}

func (s *LexicalScorer) Name() string { return "lexical" }

func (s *LexicalScorer) Close() error { return nil }

// tokenize splits text into lowercase terms longer than two runes, dropping
// common stopwords.
func tokenize(text string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	filtered := tokens[:0]
	for _, tok := range tokens {
		if len([]rune(tok)) > 2 && !stopwords[tok] {
			filtered = append(filtered, tok)
		}
	}
	return filtered
}

func uniqueTokens(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range tokenize(text) {
		if !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}

// overlap is the fraction of query terms present in doc, in [0, 1].
func overlap(queryTokens, docTokens []string) float64 {
	docSet := make(map[string]bool, len(docTokens))
	for _, tok := range docTokens {
		docSet[tok] = true
	}
	matches := 0
	for _, q := range queryTokens {
		if docSet[q] {
			matches++
		}
	}
	return float64(matches) / float64(len(queryTokens))
}

var stopwords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "with": true, "from": true,
	"was": true, "are": true, "been": true, "being": true, "have": true, "has": true,
	"had": true, "does": true, "did": true, "will": true, "would": true, "could": true,
	"should": true, "may": true, "might": true, "can": true, "this": true, "that": true,
	"these": true, "those": true, "you": true, "she": true, "they": true, "what": true,
	"which": true, "who": true, "when": true, "where": true, "why": true, "how": true,
}
