package rank

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// RankedSection is one entry of the final ranking.
type RankedSection struct {
	Document       string `json:"document"`
	SectionTitle   string `json:"section_title"`
	ImportanceRank int    `json:"importance_rank"`
	PageNumber     int    `json:"page_number"`
}

// Excerpt is the body text of a ranked section.
type Excerpt struct {
	Document    string `json:"document"`
	RefinedText string `json:"refined_text"`
	PageNumber  int    `json:"page_number"`
}

// Selection is the Selector's output. Top keeps the chosen candidates with
// their scores for reporting.
type Selection struct {
	Sections []RankedSection
	Excerpts []Excerpt
	Top      []Candidate
}

// OverridePolicy may restrict the scored pool before ranking.
type OverridePolicy interface {
	Apply(cands []Candidate) []Candidate
}

// DinnerOverride keeps only candidates from documents whose filename
// contains Marker, once at least Threshold distinct such documents are
// present in the pool.
type DinnerOverride struct {
	Marker    string
	Threshold int
}

// DefaultDinnerOverride triggers at five "dinner" documents.
func DefaultDinnerOverride() DinnerOverride {
	return DinnerOverride{Marker: "dinner", Threshold: 5}
}

func (d DinnerOverride) Apply(cands []Candidate) []Candidate {
	marker := strings.ToLower(d.Marker)
	if marker == "" || d.Threshold <= 0 {
		return cands
	}
	docs := make(map[string]bool)
	for _, c := range cands {
		if strings.Contains(strings.ToLower(c.Document), marker) {
			docs[c.Document] = true
		}
	}
	if len(docs) < d.Threshold {
		return cands
	}
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if docs[c.Document] {
			out = append(out, c)
		}
	}
	return out
}

// Selector orders, deduplicates and truncates scored candidates.
type Selector struct {
	topK     int
	policies []OverridePolicy
	log      *slog.Logger
}

func NewSelector(topK int, log *slog.Logger, policies ...OverridePolicy) *Selector {
	if log == nil {
		log = slog.Default()
	}
	return &Selector{topK: topK, policies: policies, log: log}
}

// Select runs the override policies, puts filename-matched candidates
// ahead of the rest (each partition by descending final score), keeps the
// first candidate per normalized title and cuts to top-K.
func (s *Selector) Select(cands []Candidate) Selection {
	pool := cands
	for _, p := range s.policies {
		before := len(pool)
		pool = p.Apply(pool)
		if len(pool) != before {
			s.log.Info("override policy applied", "before", before, "after", len(pool))
		}
	}

	ordered := Prioritize(pool)
	top := DedupByTitle(ordered)
	if len(top) > s.topK {
		top = top[:s.topK]
	}

	sel := Selection{Top: top, Sections: []RankedSection{}, Excerpts: []Excerpt{}}
	seenBody := make(map[string]bool)
	for i, c := range top {
		sel.Sections = append(sel.Sections, RankedSection{
			Document:       c.Document,
			SectionTitle:   c.Title,
			ImportanceRank: i + 1,
			PageNumber:     c.Page,
		})
		if seenBody[c.Body] {
			continue
		}
		seenBody[c.Body] = true
		sel.Excerpts = append(sel.Excerpts, Excerpt{
			Document:    c.Document,
			RefinedText: c.Body,
			PageNumber:  c.Page,
		})
	}
	return sel
}

// Prioritize returns matched (PDFBoost > 0) candidates then the others,
// each sorted by descending Final. Ties keep input order.
func Prioritize(cands []Candidate) []Candidate {
	var matched, others []Candidate
	for _, c := range cands {
		if c.PDFBoost > 0 {
			matched = append(matched, c)
		} else {
			others = append(others, c)
		}
	}
	byFinal := func(cs []Candidate) {
		sort.SliceStable(cs, func(i, j int) bool { return cs[i].Final > cs[j].Final })
	}
	byFinal(matched)
	byFinal(others)
	return append(matched, others...)
}

var spaceRe = regexp.MustCompile(`\s+`)

// TitleKey is the deduplication key: lowercased, trimmed, with internal
// whitespace runs collapsed to one space.
func TitleKey(title string) string {
	return spaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), " ")
}

// DedupByTitle keeps the first candidate for each TitleKey.
func DedupByTitle(cands []Candidate) []Candidate {
	seen := make(map[string]bool, len(cands))
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		k := TitleKey(c.Title)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}
