// Package rank turns segmented sections into a ranked, deduplicated top-K
// for one persona and task. It has three stages:
//
//   - Collector filters sections, attaches semantic similarity to the
//     expanded query set, and keeps the best few per document.
//   - Scorer computes the pairwise, density, specificity, intent and title
//     signals and fuses them into a final score.
//   - Selector applies the override policy, prefers filename-matched
//     candidates, deduplicates by title and emits ranks and excerpts.
//
// Every constant the stages use lives in Config so tests can inject
// synthetic tables.
package rank

import (
	"regexp"
	"strings"
)

// Pattern is a regex with the weight it contributes when it matches.
type Pattern struct {
	Re     *regexp.Regexp
	Weight float64
}

// Weights are the fusion coefficients of the final score.
type Weights struct {
	Semantic    float64
	Pairwise    float64
	Density     float64
	Specificity float64
	Intent      float64
	Title       float64
}

// SpecificityTable weights the concreteness signals of a body.
type SpecificityTable struct {
	ProperNoun    float64 // per proper-noun phrase
	ProperNounCap float64 // ceiling of the proper-noun contribution
	Number        float64
	Quote         float64
	Parenthetical float64
}

// TitleTable scores a lowercased title.
type TitleTable struct {
	Groups  []Pattern // regex groups
	Phrases []Phrase  // plain substrings; any hit in a phrase adds its weight once
}

// Phrase is a set of substrings sharing one weight.
type Phrase struct {
	Any    []string
	Weight float64
}

// Config holds every threshold, stoplist and weight table of the ranker.
type Config struct {
	TopK             int
	CandidatesPerDoc int
	MinRawBody       int // sections shorter than this are dropped on extraction
	MinBodyLength    int // stricter floor applied with the stoplist
	EmbedBodyRunes   int // body prefix used for the section embedding

	GenericTitles  map[string]bool
	GenericPenalty float64

	KeywordCount int
	KeywordBoost float64

	PDFNameBoost float64

	IntentHit  float64
	IntentMiss float64

	Fusion      Weights
	Density     []Pattern
	Specificity SpecificityTable
	Title       TitleTable
}

// DefaultGenericTitles are headings that never describe actionable content.
var DefaultGenericTitles = []string{
	"introduction", "overview", "conclusion", "summary", "abstract",
	"contents", "table of contents", "index", "ingredients", "instructions",
	"materials", "equipment", "procedure", "method", "clothing", "preface",
	"background", "about this document", "executive summary",
}

// DefaultConfig returns the production tables.
func DefaultConfig() Config {
	generic := make(map[string]bool, len(DefaultGenericTitles))
	for _, t := range DefaultGenericTitles {
		generic[t] = true
	}
	return Config{
		TopK:             5,
		CandidatesPerDoc: 10,
		MinRawBody:       20,
		MinBodyLength:    80,
		EmbedBodyRunes:   500,

		GenericTitles:  generic,
		GenericPenalty: 1.0,

		KeywordCount: 8,
		KeywordBoost: 0.5,

		PDFNameBoost: 0.2,

		IntentHit:  1.0,
		IntentMiss: 0.5,

		Fusion: Weights{
			Semantic:    0.25,
			Pairwise:    0.20,
			Density:     0.20,
			Specificity: 0.15,
			Intent:      0.10,
			Title:       0.10,
		},
		Density: []Pattern{
			{regexp.MustCompile(`\b\d+\s*(€|euro|dollar|\$|pounds?|£)`), 0.3},
			{regexp.MustCompile(`\b(address|located at|find it at|street|avenue)\b`), 0.2},
			{regexp.MustCompile(`\b(open|hours|closed|daily|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`), 0.2},
			{regexp.MustCompile(`\b(book|reserve|reservation|contact|call|email)\b`), 0.15},
			{regexp.MustCompile(`\b(top \d+|best \d+|must-|recommended|popular|famous)\b`), 0.15},
			{regexp.MustCompile(`\b(group|party|together|people|persons)\b`), 0.1},
			{regexp.MustCompile(`\b(tip|advice|suggestion|recommend|note)\b`), 0.1},
		},
		Specificity: SpecificityTable{
			ProperNoun:    0.05,
			ProperNounCap: 0.5,
			Number:        0.2,
			Quote:         0.1,
			Parenthetical: 0.1,
		},
		Title: TitleTable{
			Groups: []Pattern{
				{regexp.MustCompile(`\b(guide|tips|activities|experiences|adventures)\b`), 0.3},
				{regexp.MustCompile(`\b(restaurant|dining|cuisine|food|culinary)\b`), 0.3},
				{regexp.MustCompile(`\b(hotel|accommodation|stay|lodging)\b`), 0.3},
				{regexp.MustCompile(`\b(nightlife|entertainment|evening|night)\b`), 0.3},
				{regexp.MustCompile(`\b(coastal|beach|sea|maritime)\b`), 0.2},
			},
			Phrases: []Phrase{
				{Any: []string{"major cities", "comprehensive"}, Weight: 0.2},
			},
		},
	}
}

// IsGenericTitle reports whether the trimmed lowercased title is stoplisted.
func (c Config) IsGenericTitle(title string) bool {
	return c.GenericTitles[strings.ToLower(strings.TrimSpace(title))]
}
