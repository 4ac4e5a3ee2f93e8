package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dgallion1/docrank/internal/metrics"
	"github.com/dgallion1/docrank/internal/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	rankStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")).
			Width(3).
			Align(lipgloss.Right)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1)
)

const maxTitleWidth = 60

// printSummary renders the ranked sections and run counts after a batch run.
func printSummary(w io.Writer, res *pipeline.Result, outPath string, calls map[string]metrics.LatencySnapshot) {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Top sections"))
	b.WriteString("\n")
	for i, s := range res.Output.ExtractedSections {
		score := ""
		if i < len(res.Top) {
			score = dimStyle.Render(fmt.Sprintf(" %.3f", res.Top[i].Final))
		}
		fmt.Fprintf(&b, "%s %s%s\n    %s\n",
			rankStyle.Render(fmt.Sprintf("%d.", s.ImportanceRank)),
			clip(s.SectionTitle, maxTitleWidth),
			score,
			dimStyle.Render(fmt.Sprintf("%s, page %d", s.Document, s.PageNumber)),
		)
	}

	st := res.Stats
	fmt.Fprintf(&b, "\n%s %d loaded", dimStyle.Render("Documents:"), st.DocumentsLoaded)
	if st.DocumentsSkipped > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf(", %d skipped", st.DocumentsSkipped)))
	}
	fmt.Fprintf(&b, "\n%s %d sections, %d candidates", dimStyle.Render("Pool:"), st.Sections, st.Candidates)
	for _, op := range []string{metrics.OpEmbed, metrics.OpRerank} {
		if snap, ok := calls[op]; ok && snap.Count > 0 {
			fmt.Fprintf(&b, "\n%s %d calls, avg %.0fms", dimStyle.Render(op+":"), snap.Count, snap.AvgMs)
		}
	}
	fmt.Fprintf(&b, "\n%s %s\n%s %s",
		dimStyle.Render("Elapsed:"), st.Elapsed.Round(time.Millisecond),
		dimStyle.Render("Output:"), outPath)

	fmt.Fprintln(w, boxStyle.Render(b.String()))
}

func printEmpty(w io.Writer) {
	fmt.Fprintln(w, warnStyle.Render("No rankable sections found; no output written."))
}

// clip shortens s to at most n runes.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
