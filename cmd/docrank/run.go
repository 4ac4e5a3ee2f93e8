package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dgallion1/docrank/internal/config"
	"github.com/dgallion1/docrank/internal/metrics"
	"github.com/dgallion1/docrank/internal/pipeline"
	"github.com/dgallion1/docrank/internal/report"
)

var (
	inputPath  string
	inputDir   string
	outputPath string
	reportPath string
	topK       int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Rank the sections of the documents listed in the input descriptor",
	Long: `Read the input descriptor and its PDFs from the input directory, rank the
sections and write the result document. Paths default to
$DOCRANK_INPUT_DIR/$DOCRANK_INPUT_FILE and $DOCRANK_OUTPUT_DIR/$DOCRANK_OUTPUT_FILE.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyRunFlags(cmd, &cfg)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return runBatch(cmd, cfg)
	},
}

func init() {
	runCmd.Flags().StringVarP(&inputPath, "input", "i", "", "Input descriptor path (default <input-dir>/challenge1b_input.json)")
	runCmd.Flags().StringVar(&inputDir, "input-dir", "", "Directory holding the descriptor and PDFs")
	runCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Result document path (default <output-dir>/challenge1b_output.json)")
	runCmd.Flags().StringVar(&reportPath, "report", "", "Also write an HTML report to this path")
	runCmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of sections to keep (default $TOP_K or 5)")

	rootCmd.AddCommand(runCmd)
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("input-dir") {
		cfg.InputDir = inputDir
	}
	if cmd.Flags().Changed("output") {
		cfg.OutputDir, cfg.OutputFile = filepath.Dir(outputPath), filepath.Base(outputPath)
	}
	if cmd.Flags().Changed("top-k") && topK > 0 {
		cfg.TopK = topK
	}
}

func runBatch(cmd *cobra.Command, cfg config.Config) error {
	log := newLogger(cmd.ErrOrStderr(), cfg.LogLevel).With("run_id", uuid.NewString())

	descriptor := cfg.InputPath()
	if inputPath != "" {
		descriptor = inputPath
	}
	in, err := config.LoadInput(descriptor)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	b, err := openBackends(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	rec := metrics.NewRecorder(time.Hour)
	runner, err := newRunner(cfg, b, rec, log)
	if err != nil {
		return err
	}
	defer runner.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting run", "input", descriptor, "documents", len(in.Documents), "embed", b.embedder.Name(), "rerank", b.pairwise.Name())
	res, err := runner.Run(ctx, pipeline.Request{
		Input:  in,
		Source: pipeline.DirSource{Dir: cfg.InputDir},
		Log:    log,
	})
	if errors.Is(err, pipeline.ErrNoSections) {
		log.Info("no rankable sections, nothing written")
		printEmpty(cmd.OutOrStdout())
		return nil
	}
	if err != nil {
		return err
	}

	if err := pipeline.WriteOutput(cfg.OutputPath(), res.Output); err != nil {
		return err
	}
	log.Info("output written", "path", cfg.OutputPath())

	if reportPath != "" {
		if err := report.WriteHTML(reportPath, res); err != nil {
			return err
		}
		log.Info("report written", "path", reportPath)
	}

	printSummary(cmd.OutOrStdout(), res, cfg.OutputPath(), rec.Snapshot())
	return nil
}
