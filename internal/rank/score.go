package rank

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/dgallion1/docrank/internal/rerank"
)

var (
	properNounRe    = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	numberRe        = regexp.MustCompile(`\b\d+\b`)
	quoteRe         = regexp.MustCompile(`"[^"]+"`)
	parentheticalRe = regexp.MustCompile(`\([^)]+\)`)
)

// IntentMatcher decides whether a passage looks actionable for the persona.
type IntentMatcher interface {
	MatchesIntent(text string) bool
}

// KeywordExtractor returns the top n keyphrases of text, best first.
type KeywordExtractor interface {
	TopKeywords(text string, n int) []string
}

// Scorer fills in every signal of a candidate and its final score.
type Scorer struct {
	cfg      Config
	pairwise rerank.Scorer
	keywords KeywordExtractor
	log      *slog.Logger
}

func NewScorer(cfg Config, pairwise rerank.Scorer, keywords KeywordExtractor, log *slog.Logger) *Scorer {
	if log == nil {
		log = slog.Default()
	}
	return &Scorer{cfg: cfg, pairwise: pairwise, keywords: keywords, log: log}
}

// Score enriches cands in place. query is the combined persona/task query
// sent to the pairwise scorer; task feeds keyword extraction. No candidate
// is dropped.
func (s *Scorer) Score(ctx context.Context, cands []Candidate, query, task string, intent IntentMatcher) error {
	if len(cands) == 0 {
		return nil
	}

	passages := make([]string, len(cands))
	for i := range cands {
		passages[i] = cands[i].Text()
	}
	pair, err := s.pairwise.Score(ctx, query, passages)
	if err != nil {
		return fmt.Errorf("pairwise scoring: %w", err)
	}
	if len(pair) != len(cands) {
		return fmt.Errorf("pairwise scoring: got %d scores for %d candidates", len(pair), len(cands))
	}

	var kws []string
	if s.keywords != nil {
		kws = s.keywords.TopKeywords(task, s.cfg.KeywordCount)
	}
	s.log.Debug("task keywords", "keywords", kws)

	for i := range cands {
		c := &cands[i]
		c.Pairwise = pair[i]
		c.Density = s.InfoDensity(c.Body)
		c.Specificity = s.SpecificityScore(c.Body)
		c.Intent = s.cfg.IntentMiss
		if intent == nil || intent.MatchesIntent(c.Text()) {
			c.Intent = s.cfg.IntentHit
		}
		c.TitleScore = s.TitleScore(c.Title)
		c.Final = s.fuse(c, kws)
	}
	return nil
}

func (s *Scorer) fuse(c *Candidate, kws []string) float64 {
	w := s.cfg.Fusion
	final := w.Semantic*c.Semantic +
		w.Pairwise*c.Pairwise +
		w.Density*c.Density +
		w.Specificity*c.Specificity +
		w.Intent*c.Intent +
		w.Title*c.TitleScore

	if s.cfg.IsGenericTitle(c.Title) {
		final -= s.cfg.GenericPenalty
	}
	text := strings.ToLower(c.Title + " " + c.Body)
	for _, kw := range kws {
		if strings.Contains(text, strings.ToLower(kw)) {
			final += s.cfg.KeywordBoost
		}
	}
	return final + c.PDFBoost
}

// InfoDensity sums the weights of the density patterns found in the
// lowercased body, capped at 1.
func (s *Scorer) InfoDensity(body string) float64 {
	lower := strings.ToLower(body)
	total := 0.0
	for _, p := range s.cfg.Density {
		if p.Re.MatchString(lower) {
			total += p.Weight
		}
	}
	return math.Min(total, 1)
}

// SpecificityScore rewards proper nouns, numbers, quotes and parentheticals.
func (s *Scorer) SpecificityScore(body string) float64 {
	t := s.cfg.Specificity
	n := len(properNounRe.FindAllStringIndex(body, -1))
	total := math.Min(float64(n)*t.ProperNoun, t.ProperNounCap)
	if numberRe.MatchString(body) {
		total += t.Number
	}
	if quoteRe.MatchString(body) {
		total += t.Quote
	}
	if parentheticalRe.MatchString(body) {
		total += t.Parenthetical
	}
	return math.Min(total, 1)
}

// TitleScore scores topical keyword groups in the lowercased title, capped
// at 1.
func (s *Scorer) TitleScore(title string) float64 {
	lower := strings.ToLower(title)
	total := 0.0
	for _, g := range s.cfg.Title.Groups {
		if g.Re.MatchString(lower) {
			total += g.Weight
		}
	}
	for _, p := range s.cfg.Title.Phrases {
		for _, sub := range p.Any {
			if strings.Contains(lower, sub) {
				total += p.Weight
				break
			}
		}
	}
	return math.Min(total, 1)
}
