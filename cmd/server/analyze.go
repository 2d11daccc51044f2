package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/todmy/faers-signals/internal/cache"
	"github.com/todmy/faers-signals/internal/export"
	"github.com/todmy/faers-signals/internal/signal"
	"github.com/todmy/faers-signals/internal/storage"
	"github.com/todmy/faers-signals/pkg/models"
)

type analyzeOptions struct {
	drug     string
	minAge   float64
	maxAge   float64
	minCount int
	alpha    float64
	output   string
}

// analyzeCmd runs a one-off analysis against the case store without persisting
// it. Results go to stdout or --output; logs always go to stderr.
func analyzeCmd(configFile *string) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run a one-off signal analysis for a drug",
		Example: `  faers-signals analyze --drug aspirin
  faers-signals analyze --drug "acetylsalicylic acid" --min-age 18 --output signals.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, *configFile, opts)
		},
	}

	cmd.Flags().StringVar(&opts.drug, "drug", "", "query drug name (substring match)")
	cmd.Flags().Float64Var(&opts.minAge, "min-age", 0, "minimum patient age in years")
	cmd.Flags().Float64Var(&opts.maxAge, "max-age", 0, "maximum patient age in years")
	cmd.Flags().IntVar(&opts.minCount, "min-count", 0, "minimum exposed reports per term (default from config)")
	cmd.Flags().Float64Var(&opts.alpha, "alpha", 0, "false discovery rate (default from config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write an .xlsx workbook or .json file instead of JSON on stdout")
	_ = cmd.MarkFlagRequired("drug")

	return cmd
}

func runAnalyze(cmd *cobra.Command, configFile string, opts *analyzeOptions) error {
	format := strings.ToLower(filepath.Ext(opts.output))
	switch format {
	case "", ".json", ".xlsx":
	default:
		return fmt.Errorf("unsupported output format %q (use .json or .xlsx)", opts.output)
	}

	cfg, logger, err := loadConfig(configFile, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	engineConfig := cfg.Analysis.SignalConfig()
	if cmd.Flags().Changed("min-count") {
		engineConfig.MinCount = opts.minCount
	}
	if cmd.Flags().Changed("alpha") {
		engineConfig.Alpha = opts.alpha
	}

	engine, err := signal.NewService(engineConfig, logger)
	if err != nil {
		return err
	}

	query := storage.CaseQuery{Drug: opts.drug}
	if cmd.Flags().Changed("min-age") {
		query.MinAge = &opts.minAge
	}
	if cmd.Flags().Changed("max-age") {
		query.MaxAge = &opts.maxAge
	}

	ctx := cmd.Context()
	db, err := openDB(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	cases, err := storage.NewPostgresCaseRepository(db).LoadCases(ctx, query)
	if err != nil {
		return err
	}

	result := engine.Analyze(cases)

	logger.WithFields(logrus.Fields{
		"drug":            opts.drug,
		"total_cases":     result.TotalCases,
		"any_mention":     len(result.AnyMention.Records),
		"primary_suspect": len(result.PrimarySuspect.Records),
	}).Info("Analysis completed")

	switch format {
	case "":
		return writeJSON(cmd.OutOrStdout(), result)
	case ".json":
		f, err := os.Create(opts.output)
		if err != nil {
			return err
		}
		defer f.Close()
		return writeJSON(f, result)
	case ".xlsx":
		f, err := os.Create(opts.output)
		if err != nil {
			return err
		}
		defer f.Close()

		run := &models.AnalysisRun{
			Drug:                opts.drug,
			MinCount:            result.MinCount,
			Alpha:               result.Alpha,
			TotalCases:          result.TotalCases,
			ExposedCases:        result.AnyMention.ExposedCases,
			PrimarySuspectCases: result.PrimarySuspect.ExposedCases,
			CacheKey:            cache.Key(opts.drug, engineConfig, cases),
			CreatedAt:           time.Now(),
		}
		return export.WriteWorkbook(f, run, map[signal.Exposure][]models.SignalRecord{
			signal.ExposureAnyMention:     result.AnyMention.Records,
			signal.ExposurePrimarySuspect: result.PrimarySuspect.Records,
		})
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
