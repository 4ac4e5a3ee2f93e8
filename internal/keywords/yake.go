// Package keywords extracts single-word keyphrases from short texts using
// the YAKE statistical features (casing, position, frequency, relatedness to
// context and sentence spread). Lower scores are more important.
package keywords

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Extractor ranks the words of a text by YAKE score.
type Extractor struct {
	Window   int     // co-occurrence window for the relatedness feature
	DedupLim float64 // candidates more similar than this to a kept one are dropped
	MinLen   int     // shortest candidate, in runes
}

// NewExtractor returns an extractor with the usual YAKE defaults.
func NewExtractor() *Extractor {
	return &Extractor{Window: 1, DedupLim: 0.9, MinLen: 3}
}

// Keyword is a ranked candidate.
type Keyword struct {
	Term  string
	Score float64
}

type termStats struct {
	tf        int
	upper     int
	acronym   int
	sentences []int
	left      map[string]int
	right     map[string]int
}

// TopKeywords returns up to n lowercased keywords, best first.
func (e *Extractor) TopKeywords(text string, n int) []string {
	ranked := e.Extract(text)
	out := make([]string, 0, n)
	for _, k := range ranked {
		if len(out) >= n {
			break
		}
		out = append(out, k.Term)
	}
	return out
}

// Extract scores every candidate word of text and returns them deduplicated,
// best (lowest score) first.
func (e *Extractor) Extract(text string) []Keyword {
	sentences := splitSentences(text)
	stats := make(map[string]*termStats)
	var order []string

	for si, sent := range sentences {
		words := tokenize(sent)
		for wi, w := range words {
			key := strings.ToLower(w)
			if !e.candidate(key) {
				continue
			}
			st, ok := stats[key]
			if !ok {
				st = &termStats{left: map[string]int{}, right: map[string]int{}}
				stats[key] = st
				order = append(order, key)
			}
			st.tf++
			st.sentences = append(st.sentences, si)
			switch {
			case isAcronym(w):
				st.acronym++
			case wi > 0 && unicode.IsUpper([]rune(w)[0]):
				st.upper++
			}
			for d := 1; d <= e.Window; d++ {
				if wi-d >= 0 {
					st.left[strings.ToLower(words[wi-d])]++
				}
				if wi+d < len(words) {
					st.right[strings.ToLower(words[wi+d])]++
				}
			}
		}
	}
	if len(order) == 0 {
		return nil
	}

	mean, std, maxTF := tfMoments(stats)
	nSent := float64(len(sentences))
	scored := make([]Keyword, 0, len(order))
	for _, key := range order {
		st := stats[key]
		tf := float64(st.tf)
		tCase := float64(max(st.upper, st.acronym)) / (1 + math.Log(tf))
		tPos := math.Log(3 + median(st.sentences))
		tNorm := tf / (mean + std)
		tRel := 1 + (dispersion(st.left)+dispersion(st.right))*tf/maxTF
		tSent := float64(distinct(st.sentences)) / nSent
		score := (tPos * tRel) / (tCase + tNorm/tRel + tSent/tRel)
		scored = append(scored, Keyword{Term: key, Score: score})
	}

	// Stable sort keeps first-appearance order among equal scores.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score < scored[j].Score })

	var kept []Keyword
	for _, k := range scored {
		dup := false
		for _, prev := range kept {
			if similarity(k.Term, prev.Term) > e.DedupLim {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, k)
		}
	}
	return kept
}

func (e *Extractor) candidate(w string) bool {
	if len([]rune(w)) < e.MinLen || stopwords[w] {
		return false
	}
	for _, r := range w {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func splitSentences(text string) []string {
	var out []string
	for _, s := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n' || r == ';'
	}) {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\'')
	})
}

func isAcronym(w string) bool {
	letters := 0
	for _, r := range w {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}

func tfMoments(stats map[string]*termStats) (mean, std, maxTF float64) {
	n := float64(len(stats))
	for _, st := range stats {
		tf := float64(st.tf)
		mean += tf
		maxTF = math.Max(maxTF, tf)
	}
	mean /= n
	for _, st := range stats {
		d := float64(st.tf) - mean
		std += d * d
	}
	std = math.Sqrt(std / n)
	return mean, std, maxTF
}

// dispersion is distinct neighbours over total co-occurrences.
func dispersion(m map[string]int) float64 {
	total := 0
	for _, c := range m {
		total += c
	}
	if total == 0 {
		return 0
	}
	return float64(len(m)) / float64(total)
}

func median(xs []int) float64 {
	s := append([]int(nil), xs...)
	sort.Ints(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return float64(s[mid])
	}
	return float64(s[mid-1]+s[mid]) / 2
}

func distinct(xs []int) int {
	seen := make(map[int]struct{}, len(xs))
	for _, x := range xs {
		seen[x] = struct{}{}
	}
	return len(seen)
}

// similarity is the normalized Levenshtein similarity of a and b.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return 1 - float64(prev[len(rb)])/float64(longest)
}
