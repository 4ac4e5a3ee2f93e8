package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dgallion1/docrank/internal/config"
	"github.com/dgallion1/docrank/internal/metrics"
	"github.com/dgallion1/docrank/internal/pipeline"
	"github.com/dgallion1/docrank/internal/rank"
)

func TestPrintSummary(t *testing.T) {
	res := &pipeline.Result{
		Output: &pipeline.Output{
			ExtractedSections: []rank.RankedSection{
				{Document: "South of France - Cities.pdf", SectionTitle: "Coastal Adventures", ImportanceRank: 1, PageNumber: 2},
			},
		},
		Top:   []rank.Candidate{{Final: 1.25}},
		Stats: pipeline.RunStats{DocumentsLoaded: 6, DocumentsSkipped: 1, Sections: 120, Candidates: 48, Elapsed: 1500 * time.Millisecond},
	}
	var buf bytes.Buffer
	printSummary(&buf, res, "output/challenge1b_output.json", map[string]metrics.LatencySnapshot{
		metrics.OpEmbed: {Count: 2, AvgMs: 40},
	})
	out := buf.String()

	assert.Contains(t, out, "Coastal Adventures")
	assert.Contains(t, out, "1.250")
	assert.Contains(t, out, "South of France - Cities.pdf, page 2")
	assert.Contains(t, out, "1 skipped")
	assert.Contains(t, out, "120 sections, 48 candidates")
	assert.Contains(t, out, "2 calls, avg 40ms")
	assert.Contains(t, out, "output/challenge1b_output.json")
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	assert.Equal(t, "abcd…", clip("abcdefgh", 5))
}

func TestApplyRunFlags(t *testing.T) {
	cfg := config.Config{InputDir: "input", OutputDir: "output", OutputFile: "challenge1b_output.json", TopK: 5}
	cmd := runCmd
	t.Cleanup(func() {
		for _, name := range []string{"input-dir", "output", "top-k"} {
			cmd.Flags().Lookup(name).Changed = false
		}
		inputDir, outputPath, topK = "", "", 0
	})
	out := filepath.Join("results", "ranked.json")
	assert.NoError(t, cmd.Flags().Set("input-dir", "docs"))
	assert.NoError(t, cmd.Flags().Set("output", out))
	assert.NoError(t, cmd.Flags().Set("top-k", "3"))

	applyRunFlags(cmd, &cfg)
	assert.Equal(t, "docs", cfg.InputDir)
	assert.Equal(t, out, cfg.OutputPath())
	assert.Equal(t, 3, cfg.TopK)
}
