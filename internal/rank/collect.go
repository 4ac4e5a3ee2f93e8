package rank

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/dgallion1/docrank/internal/doctree"
	"github.com/dgallion1/docrank/internal/embed"
)

// Candidate is a section promoted into the scoring pool together with every
// signal computed for it.
type Candidate struct {
	doctree.Section

	Semantic    float64 `json:"semantic_score"`
	PDFBoost    float64 `json:"pdf_name_boost"`
	Pairwise    float64 `json:"pairwise_score"`
	Density     float64 `json:"info_density"`
	Specificity float64 `json:"specificity"`
	Intent      float64 `json:"intent_match"`
	TitleScore  float64 `json:"title_score"`
	Final       float64 `json:"final_score"`
}

// Text is the "{title}. {body}" form used for pairwise scoring and intent.
func (c *Candidate) Text() string {
	return c.Title + ". " + c.Body
}

var wordRe = regexp.MustCompile(`\w+`)

// Collector builds the candidate pool.
type Collector struct {
	cfg      Config
	embedder embed.Embedder
	log      *slog.Logger
}

func NewCollector(cfg Config, embedder embed.Embedder, log *slog.Logger) *Collector {
	if log == nil {
		log = slog.Default()
	}
	return &Collector{cfg: cfg, embedder: embedder, log: log}
}

// Filter drops near-empty sections, stoplisted titles and short bodies, in
// that order. Input order is preserved.
func (c *Collector) Filter(sections []doctree.Section) []doctree.Section {
	out := make([]doctree.Section, 0, len(sections))
	for _, s := range sections {
		n := len([]rune(s.Body))
		if n < c.cfg.MinRawBody {
			continue
		}
		if c.cfg.IsGenericTitle(s.Title) || n < c.cfg.MinBodyLength {
			c.log.Debug("section filtered", "document", s.Document, "title", s.Title, "body_len", n)
			continue
		}
		out = append(out, s)
	}
	return out
}

// Collect filters sections, scores them against the context queries and
// keeps the top CandidatesPerDoc per document. task drives the filename
// boost. An empty result with a nil error means nothing survived filtering.
func (c *Collector) Collect(ctx context.Context, sections []doctree.Section, contextQueries []string, task string) ([]Candidate, error) {
	kept := c.Filter(sections)
	if len(kept) == 0 {
		return nil, nil
	}

	queryVecs, err := c.embedder.EmbedDocuments(ctx, contextQueries)
	if err != nil {
		return nil, fmt.Errorf("embed context queries: %w", err)
	}

	texts := make([]string, len(kept))
	for i, s := range kept {
		texts[i] = s.Title + ". " + prefixRunes(s.Body, c.cfg.EmbedBodyRunes)
	}
	secVecs, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed sections: %w", err)
	}
	if len(secVecs) != len(kept) {
		return nil, fmt.Errorf("embed sections: got %d vectors for %d sections", len(secVecs), len(kept))
	}

	// Group by document in first-seen order.
	var docs []string
	byDoc := make(map[string][]Candidate)
	for i, s := range kept {
		if _, ok := byDoc[s.Document]; !ok {
			docs = append(docs, s.Document)
		}
		byDoc[s.Document] = append(byDoc[s.Document], Candidate{
			Section:  s,
			Semantic: embed.MaxCosine(secVecs[i], queryVecs),
		})
	}

	words := taskWords(task)
	var out []Candidate
	for _, doc := range docs {
		group := byDoc[doc]
		sort.SliceStable(group, func(i, j int) bool { return group[i].Semantic > group[j].Semantic })
		if len(group) > c.cfg.CandidatesPerDoc {
			group = group[:c.cfg.CandidatesPerDoc]
		}
		boost := c.PDFNameBoost(doc, words)
		for i := range group {
			group[i].PDFBoost = boost
		}
		out = append(out, group...)
	}

	c.log.Info("candidates collected", "sections", len(sections), "kept", len(kept), "candidates", len(out), "documents", len(docs))
	return out, nil
}

// PDFNameBoost is PDFNameBoost times the number of distinct task words that
// occur in the lowercased filename.
func (c *Collector) PDFNameBoost(filename string, words []string) float64 {
	name := strings.ToLower(filename)
	hits := 0
	for _, w := range words {
		if strings.Contains(name, w) {
			hits++
		}
	}
	return c.cfg.PDFNameBoost * float64(hits)
}

// taskWords returns the distinct \w+ tokens of the lowercased task.
func taskWords(task string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range wordRe.FindAllString(strings.ToLower(task), -1) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

func prefixRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
