// =============================================================================
// Retail Star Schema Pipeline - Pipeline Driver
// =============================================================================
//
// This module orchestrates the stages of a run. It owns everything the core
// stages stay free of: file staging, the run ID, the run logger, metrics and
// reports.
//
// STAGES (strictly sequential):
//   1. inventory : Inventory_raw  -> Inventory_clean
//   2. sales     : Sales_raw + Inventory_clean -> Sales_clean
//   3. model     : Inventory_clean + Sales_clean -> DimProduct, FactSales
//
// Each stage's output path is the next stage's input path. A stage whose
// input file does not exist fails with ErrMissingInput; it never re-derives
// the missing table. The first failing stage stops the run.
//
// Every run writes a summary report and, when issues were raised, an issue
// log to the report directory, whether it succeeded or not.
//
// =============================================================================

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/retail-star-schema/internal/cleaner"
	"github.com/ginjaninja78/retail-star-schema/internal/config"
	"github.com/ginjaninja78/retail-star-schema/internal/logging"
	"github.com/ginjaninja78/retail-star-schema/internal/metrics"
	"github.com/ginjaninja78/retail-star-schema/internal/starschema"
	"github.com/ginjaninja78/retail-star-schema/internal/validation"
	"github.com/ginjaninja78/retail-star-schema/pkg/utils"
)

// Stage identifies a pipeline stage.
type Stage string

// Pipeline stages, in execution order.
const (
	StageInventory Stage = cleaner.StageInventory
	StageSales     Stage = cleaner.StageSales
	StageModel     Stage = starschema.StageModel
)

// ErrMissingInput is returned when a stage's upstream table does not exist.
var ErrMissingInput = errors.New("required input not found")

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of one run.
type Result struct {
	// RunID identifies the run in logs and report names.
	RunID string

	// Stages holds one summary per stage that completed.
	Stages []utils.StageSummary

	// Issues holds every validation issue raised during the run.
	Issues []validation.Issue

	// SummaryPath and IssueLogPath are the written reports. IssueLogPath is
	// empty when no issue was raised.
	SummaryPath  string
	IssueLogPath string
}

// Stage returns the summary of a completed stage.
func (r *Result) Stage(stage Stage) (utils.StageSummary, bool) {
	for _, s := range r.Stages {
		if s.Stage == string(stage) {
			return s, true
		}
	}
	return utils.StageSummary{}, false
}

// =============================================================================
// PIPELINE STRUCTURE
// =============================================================================

// Pipeline runs stages against the configured paths.
type Pipeline struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Recorder
	now     func() time.Time
	newID   func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the clock used for report timestamps and the future-date check.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithMetrics sets the metrics recorder. Without it every run gets a fresh one.
func WithMetrics(m *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithRunIDs sets the run ID generator.
func WithRunIDs(newID func() string) Option {
	return func(p *Pipeline) { p.newID = newID }
}

// New creates a pipeline. A nil logger discards all output.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Pipeline{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = metrics.New()
	}
	return p
}

// run is the state of one Execute call.
type run struct {
	id     string
	logger *slog.Logger
	result *Result
}

func (r *run) record(summary utils.StageSummary, report *validation.Report) {
	r.result.Stages = append(r.result.Stages, summary)
	if report != nil {
		r.result.Issues = append(r.result.Issues, report.Issues()...)
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Execute runs the given stages in order under one run ID. The returned
// Result is never nil; it describes the stages that completed even when the
// run failed.
func (p *Pipeline) Execute(ctx context.Context, command string, stages ...Stage) (*Result, error) {
	started := p.now()
	id := p.newID()
	r := &run{
		id:     id,
		logger: logging.WithRun(p.logger, id).With("command", command),
		result: &Result{RunID: id},
	}

	r.logger.Info("run started", "stages", stages)

	var runErr error
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("run cancelled before %s: %w", stage, err)
			break
		}
		if err := p.runStage(ctx, r, stage); err != nil {
			runErr = fmt.Errorf("%s stage failed: %w", stage, err)
			break
		}
	}

	finished := p.now()
	p.metrics.ObserveRun(runErr, finished)
	p.writeReports(r, command, started, finished, runErr)

	if runErr != nil {
		r.logger.Error("run failed", "error", runErr, "duration", finished.Sub(started))
		return r.result, runErr
	}
	r.logger.Info("run complete", "duration", finished.Sub(started))
	return r.result, nil
}

func (p *Pipeline) runStage(ctx context.Context, r *run, stage Stage) error {
	switch stage {
	case StageInventory:
		return p.cleanInventory(r)
	case StageSales:
		return p.cleanSales(r)
	case StageModel:
		return p.buildModel(ctx, r)
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}
}

// writeReports writes the summary, the issue log and the metrics textfile.
// Report failures are logged and do not change the run outcome.
func (p *Pipeline) writeReports(r *run, command string, started, finished time.Time, runErr error) {
	summary := utils.RunSummary{
		RunID:     r.id,
		Command:   command,
		StartTime: started,
		EndTime:   finished,
		Stages:    r.result.Stages,
	}
	if runErr != nil {
		summary.Failure = runErr.Error()
	}

	reportDir := p.cfg.Paths.ReportDir
	if path, err := utils.WriteSummaryLog(summary, reportDir); err != nil {
		r.logger.Warn("failed to write run summary", "error", err)
	} else {
		r.result.SummaryPath = path
	}

	if path, err := utils.WriteIssueLog(r.result.Issues, r.id, reportDir, finished); err != nil {
		r.logger.Warn("failed to write issue log", "error", err)
	} else {
		r.result.IssueLogPath = path
	}

	if p.cfg.Metrics.Textfile != "" {
		if err := p.metrics.WriteTextfile(p.cfg.Metrics.Textfile); err != nil {
			r.logger.Warn("failed to write metrics", "error", err)
		}
	}
}

// observe feeds a completed stage into the metrics recorder.
func (p *Pipeline) observe(summary utils.StageSummary) {
	p.metrics.ObserveStage(metrics.StageObservation{
		Stage:    summary.Stage,
		Read:     summary.RowsRead,
		Written:  summary.RowsWritten,
		Dropped:  summary.Dropped,
		Warnings: summary.Warnings,
		Errors:   summary.Errors,
		Duration: summary.Duration,
	})
}
