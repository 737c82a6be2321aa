package analyze

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/issuesense/enrich"
	"github.com/c360studio/issuesense/llm"
	"github.com/c360studio/issuesense/metrics"
	"github.com/c360studio/issuesense/tracker"
)

// maxBatchWorkers bounds concurrent analyses within one batch request.
const maxBatchWorkers = 3

// Enricher produces the context an analysis runs over.
// *enrich.Aggregator satisfies it.
type Enricher interface {
	Enrich(ctx context.Context, ref tracker.ItemRef) (*enrich.Context, error)
}

// Completer performs the generative call. *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Analyzer runs the full pipeline: enrich, prompt, complete, validate.
type Analyzer struct {
	enricher  Enricher
	completer Completer
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// WithMetrics enables pipeline instrumentation.
func WithMetrics(m *metrics.Metrics) AnalyzerOption {
	return func(a *Analyzer) {
		a.metrics = m
	}
}

// NewAnalyzer creates an analyzer over the given enricher and completer.
func NewAnalyzer(enricher Enricher, completer Completer, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		enricher:  enricher,
		completer: completer,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs one item through the pipeline. The returned Result is
// always fully valid; failures before the validation stage surface as
// errors carrying the originating layer's classification.
func (a *Analyzer) Analyze(ctx context.Context, ref tracker.ItemRef) (*Result, error) {
	requestID := uuid.NewString()
	logger := a.logger.With("request_id", requestID, "item", ref.String())
	logger.Info("Starting analysis")

	ec, err := a.enricher.Enrich(ctx, ref)
	if err != nil {
		logger.Error("Enrichment failed", "error", err)
		a.metrics.RecordAnalysis("failed")
		return nil, err
	}

	prompt := BuildPrompt(ec)
	logger.Debug("Prompt built",
		"prompt_chars", len(prompt),
		"linked_items", len(ec.LinkedItems),
		"file_changes", len(ec.FileChanges),
		"stack_traces", len(ec.StackTraces))

	start := time.Now()
	resp, err := a.completer.Complete(ctx, llm.Request{
		System:   systemInstruction,
		Prompt:   prompt,
		JSONOnly: true,
	})
	a.metrics.ObserveLLMDuration(time.Since(start))
	if err != nil {
		logger.Error("Completion failed", "error", err)
		a.metrics.RecordAnalysis("failed")
		return nil, err
	}

	result, repairs := Validate(resp.Content)
	for _, field := range repairs {
		a.metrics.RecordRepair(field)
	}
	if len(repairs) > 0 {
		logger.Warn("Response required repairs", "fields", repairs)
	}

	logger.Info("Analysis complete",
		"type", result.Type,
		"score", result.Priority.Score,
		"repairs", len(repairs))
	a.metrics.RecordAnalysis("success")
	return &result, nil
}

// AnalyzeBatch analyzes each item independently and reports per-item
// outcomes in input order. One item failing never affects the others,
// and the batch call itself only errors when the context is canceled
// before any work starts.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, refs []tracker.ItemRef) []BatchResult {
	results := make([]BatchResult, len(refs))

	var g errgroup.Group
	g.SetLimit(maxBatchWorkers)
	for i, ref := range refs {
		g.Go(func() error {
			res, err := a.Analyze(ctx, ref)
			br := BatchResult{
				Repository: ref.Repository(),
				ItemNumber: ref.Number,
			}
			if err != nil {
				br.Status = "failed"
				br.Error = err.Error()
			} else {
				br.Status = "success"
				br.Analysis = res
			}
			results[i] = br
			return nil
		})
	}
	_ = g.Wait()

	return results
}
