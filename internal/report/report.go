// Package report renders an analysis result as Markdown and as a standalone
// HTML page.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/dgallion1/docrank/internal/pipeline"
	"github.com/dgallion1/docrank/internal/rank"
)

// Markdown renders res. Signal columns appear only when res carries the
// selected candidates.
func Markdown(res *pipeline.Result) string {
	out := res.Output
	var b strings.Builder

	b.WriteString("# Section ranking\n\n")
	fmt.Fprintf(&b, "- **Persona:** %s\n", escape(out.Metadata.Persona))
	fmt.Fprintf(&b, "- **Task:** %s\n", escape(out.Metadata.JobToBeDone))
	fmt.Fprintf(&b, "- **Processed:** %s\n", escape(out.Metadata.ProcessingTimestamp))
	fmt.Fprintf(&b, "- **Documents:** %d\n\n", len(out.Metadata.InputDocuments))

	b.WriteString("## Ranked sections\n\n")
	if len(out.ExtractedSections) == 0 {
		b.WriteString("No sections were selected.\n")
		return b.String()
	}
	b.WriteString("| Rank | Section | Document | Page |\n")
	b.WriteString("|---:|---|---|---:|\n")
	for _, s := range out.ExtractedSections {
		fmt.Fprintf(&b, "| %d | %s | %s | %d |\n",
			s.ImportanceRank, cell(s.SectionTitle), cell(s.Document), s.PageNumber)
	}

	if len(res.Top) > 0 {
		writeSignals(&b, res.Top)
	}

	b.WriteString("\n## Excerpts\n")
	for i, e := range out.SubsectionAnalysis {
		fmt.Fprintf(&b, "\n### %d. %s, page %d\n\n", i+1, escape(e.Document), e.PageNumber)
		for _, line := range strings.Split(strings.TrimSpace(e.RefinedText), "\n") {
			fmt.Fprintf(&b, "> %s\n", escape(line))
		}
	}
	return b.String()
}

func writeSignals(b *strings.Builder, top []rank.Candidate) {
	b.WriteString("\n## Signals\n\n")
	b.WriteString("| Section | Final | Semantic | Pairwise | Density | Specificity | Intent | Title | Filename |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, c := range top {
		fmt.Fprintf(b, "| %s | %.3f | %.3f | %.3f | %.2f | %.2f | %.1f | %.1f | %.1f |\n",
			cell(c.Title), c.Final, c.Semantic, c.Pairwise, c.Density, c.Specificity, c.Intent, c.TitleScore, c.PDFBoost)
	}
}

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

var page = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 60rem; margin: 2rem auto; padding: 0 1rem; color: #222; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #ccc; padding: .3rem .6rem; }
blockquote { border-left: 3px solid #8a8; margin: 0; padding-left: 1rem; color: #444; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// HTML renders res as a complete HTML document.
func HTML(res *pipeline.Result) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(res)), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	var buf bytes.Buffer
	err := page.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{
		Title: "Section ranking: " + res.Output.Metadata.Persona,
		Body:  template.HTML(body.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteHTML renders res and writes it to path atomically.
func WriteHTML(path string, res *pipeline.Result) error {
	data, err := HTML(res)
	if err != nil {
		return err
	}
	return pipeline.WriteFileAtomic(path, data)
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "#", `\#`, "|", `\|`,
)

// escape neutralizes Markdown syntax in free text.
func escape(s string) string {
	return mdEscaper.Replace(s)
}

// cell escapes s for use inside a table row.
func cell(s string) string {
	return escape(strings.Join(strings.Fields(s), " "))
}
