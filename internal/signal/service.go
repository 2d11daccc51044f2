package signal

import (
	"fmt"
	"math"

	"github.com/exascience/pargo/parallel"
	"github.com/sirupsen/logrus"

	"github.com/todmy/faers-signals/pkg/models"
)

// Config holds signal-detection configuration
type Config struct {
	MinCount int     // minimum exposed reports for a term to be tested
	Alpha    float64 // target false discovery rate
	Workers  int     // per-term parallelism, 0 = GOMAXPROCS
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		MinCount: 3,
		Alpha:    0.05,
		Workers:  0,
	}
}

// Validate rejects configurations that cannot produce a meaningful run
func (c Config) Validate() error {
	if c.MinCount < 1 {
		return fmt.Errorf("%w: min_count must be >= 1, got %d", ErrInvalidInput, c.MinCount)
	}
	if math.IsNaN(c.Alpha) || math.IsInf(c.Alpha, 0) || c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("%w: alpha must be in (0,1), got %v", ErrInvalidInput, c.Alpha)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidInput, c.Workers)
	}
	return nil
}

// Service runs disproportionality analyses over case collections
type Service struct {
	config Config
	logger *logrus.Logger
}

// NewService creates a new signal-detection service
func NewService(config Config, logger *logrus.Logger) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Service{
		config: config,
		logger: logger,
	}, nil
}

// Config returns the configuration the service was built with
func (s *Service) Config() Config {
	return s.config
}

// PartitionResult is the outcome of one exposure partition
type PartitionResult struct {
	Exposure       Exposure              `json:"exposure"`
	ExposedCases   int                   `json:"exposed_cases"`
	UnexposedCases int                   `json:"unexposed_cases"`
	Records        []models.SignalRecord `json:"records"`
}

// Result holds both exposure partitions of an analysis run
type Result struct {
	TotalCases     int             `json:"total_cases"`
	MinCount       int             `json:"min_count"`
	Alpha          float64         `json:"alpha"`
	AnyMention     PartitionResult `json:"any_mention"`
	PrimarySuspect PartitionResult `json:"primary_suspect"`
}

// Partition returns the result for the given exposure
func (r *Result) Partition(exposure Exposure) PartitionResult {
	if exposure == ExposurePrimarySuspect {
		return r.PrimarySuspect
	}
	return r.AnyMention
}

// Analyze runs the any-mention and primary-suspect analyses over the same cases
func (s *Service) Analyze(cases []models.Case) *Result {
	return &Result{
		TotalCases:     len(cases),
		MinCount:       s.config.MinCount,
		Alpha:          s.config.Alpha,
		AnyMention:     s.AnalyzePartition(cases, ExposureAnyMention),
		PrimarySuspect: s.AnalyzePartition(cases, ExposurePrimarySuspect),
	}
}

// AnalyzePartition builds the screened tables for one exposure, estimates and
// tests every term, applies Benjamini-Hochberg across the defined p-values and
// classifies each term.
func (s *Service) AnalyzePartition(cases []models.Case, exposure Exposure) PartitionResult {
	exposed := 0
	for _, c := range cases {
		if exposure.Exposed(c) {
			exposed++
		}
	}

	result := PartitionResult{
		Exposure:       exposure,
		ExposedCases:   exposed,
		UnexposedCases: len(cases) - exposed,
		Records:        []models.SignalRecord{},
	}

	tables := BuildTables(cases, exposure, s.config.MinCount)
	if len(tables) == 0 {
		s.logger.WithFields(logrus.Fields{
			"exposure":      exposure.String(),
			"exposed_cases": exposed,
		}).Info("No terms passed the minimum count screen")
		return result
	}

	records := make([]models.SignalRecord, len(tables))
	tests := make([]ChiSquaredResult, len(tables))
	s.forEachTerm(len(tables), func(i int) {
		effect := Estimate(tables[i])
		tests[i] = ChiSquared(tables[i])
		records[i] = newRecord(tables[i], effect, tests[i])
	})

	// Collect defined p-values in table order for the correction
	var pValues []float64
	var positions []int
	for i, test := range tests {
		if test.Defined {
			pValues = append(pValues, test.PValue)
			positions = append(positions, i)
		}
	}

	adjusted := BenjaminiHochberg(pValues)
	rejected := Reject(adjusted, s.config.Alpha)
	for k, i := range positions {
		q := adjusted[k]
		records[i].CorrectedPValue = &q
		records[i].Significant = rejected[k]
	}

	signals := 0
	for i := range records {
		if records[i].Signal {
			signals++
		}
	}

	s.logger.WithFields(logrus.Fields{
		"exposure":        exposure.String(),
		"exposed_cases":   exposed,
		"unexposed_cases": len(cases) - exposed,
		"terms_tested":    len(tables),
		"undefined_tests": len(tables) - len(pValues),
		"signals":         signals,
	}).Info("Partition analysis complete")

	result.Records = records
	return result
}

// forEachTerm calls fn for every index in [0, n), spreading the work across
// workers. fn must only write to its own index.
func (s *Service) forEachTerm(n int, fn func(i int)) {
	if s.config.Workers == 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	parallel.Range(0, n, s.config.Workers, func(low, high int) {
		for i := low; i < high; i++ {
			fn(i)
		}
	})
}

func newRecord(t Table, effect Effect, test ChiSquaredResult) models.SignalRecord {
	record := models.SignalRecord{
		Term:       t.Term,
		A:          t.A,
		B:          t.B,
		C:          t.C,
		D:          t.D,
		OddsRatio:  effect.OddsRatio,
		ORCILower:  effect.ORCILower,
		ORCIUpper:  effect.ORCIUpper,
		PRR:        effect.PRR,
		PRRSE:      effect.PRRSE,
		PRRCILower: effect.PRRCILower,
		PRRCIUpper: effect.PRRCIUpper,
		Signal:     IsSignal(t.A, effect.PRR, effect.PRRCILower),
	}
	if test.Defined {
		stat, p := test.Statistic, test.PValue
		record.ChiSquared = &stat
		record.PValue = &p
	}
	return record
}
