package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wattsonlabs/wattson/internal/capability"
	"github.com/wattsonlabs/wattson/internal/graph"
	"github.com/wattsonlabs/wattson/internal/retry"
	"github.com/wattsonlabs/wattson/pkg/models"
)

// ErrUnknownMode is returned for an execution mode the scheduler
// does not recognize.
var ErrUnknownMode = errors.New("unknown execution mode")

// Scheduler runs one analysis request through the stage graph. A single
// engine serves every mode: sequential runs stages one at a time and aborts
// on failure, parallel and hybrid run each ready set concurrently and let
// independent branches fail on their own.
type Scheduler struct {
	invoker capability.Invoker
	policy  *retry.Policy
}

// NewScheduler builds a scheduler. A nil policy gets the default retry policy.
func NewScheduler(inv capability.Invoker, policy *retry.Policy) *Scheduler {
	if policy == nil {
		policy = retry.NewPolicy(0, 0, 0)
	}
	return &Scheduler{invoker: inv, policy: policy}
}

// runState collects stage outcomes as the run progresses.
type runState struct {
	mu      sync.Mutex
	results map[models.Stage]models.StageResult
	trace   []models.StageInvocation
}

func newRunState() *runState {
	return &runState{results: make(map[models.Stage]models.StageResult)}
}

func (st *runState) record(result models.StageResult, trace []models.StageInvocation) {
	st.mu.Lock()
	st.results[result.Stage] = result
	st.trace = append(st.trace, trace...)
	st.mu.Unlock()
}

func (st *runState) get(stage models.Stage) (models.StageResult, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	r, ok := st.results[stage]
	return r, ok
}

func (st *runState) ok(stage models.Stage) bool {
	r, found := st.get(stage)
	return found && r.OK()
}

// Run executes the request in the given mode and returns the merged record.
// A non-nil error means the run did not complete (bad request, unknown mode,
// or cancellation); no record exists in that case.
func (s *Scheduler) Run(ctx context.Context, req *models.AnalysisRequest, mode models.ExecutionMode) (*models.AnalysisRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis request: %w", err)
	}

	g := graph.NewAnalysisGraph(req.HasHistory())

	var concurrent bool
	switch mode {
	case models.ModeSequential:
		concurrent = false
	case models.ModeParallel, models.ModeHybrid:
		concurrent = true
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	debugLog("run start: mode=%s history=%v", mode, req.HasHistory())
	started := time.Now()
	state := newRunState()

	if err := s.runGraph(ctx, g, req, state, concurrent); err != nil {
		debugLog("run aborted: %v", err)
		return nil, err
	}

	record := mergeRecord(mode, state, started)
	debugLog("run done: degraded=%v overall=%.2f duration=%s",
		record.Degraded, record.OverallConfidence, record.Duration)
	return record, nil
}

// runGraph walks the graph level by level until every stage holds a result.
func (s *Scheduler) runGraph(ctx context.Context, g *graph.TaskGraph, req *models.AnalysisRequest, state *runState, concurrent bool) error {
	done := make(map[models.Stage]bool, g.Size())

	for len(done) < g.Size() {
		if err := ctx.Err(); err != nil {
			return err
		}

		var runnable []models.Stage
		for _, stage := range g.Ready(done) {
			if reason, blocked := s.blockedBy(g, state, stage); blocked {
				state.record(models.FailureResult(stage, models.FailureUpstreamFailed, reason), nil)
				done[stage] = true
				debugLog("stage %s not invoked: %s", stage, reason)
				continue
			}
			runnable = append(runnable, stage)
		}
		if len(runnable) == 0 {
			continue
		}

		if !concurrent {
			stage := runnable[0]
			if err := s.runStage(ctx, state, req, stage); err != nil {
				return err
			}
			done[stage] = true
			if !state.ok(stage) {
				s.skipRemaining(g, state, done, stage)
			}
			continue
		}

		var eg errgroup.Group
		for _, stage := range runnable {
			stage := stage
			eg.Go(func() error {
				return s.runStage(ctx, state, req, stage)
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
		for _, stage := range runnable {
			done[stage] = true
		}
	}
	return nil
}

// blockedBy decides whether a ready stage can still be invoked given its
// dependencies' outcomes. The recommendation stage tolerates the loss of
// either analysis sibling but not both, and never the loss of extraction.
func (s *Scheduler) blockedBy(g *graph.TaskGraph, state *runState, stage models.Stage) (string, bool) {
	if stage == models.StageRecommendation {
		if !state.ok(models.StageParser) {
			return "extraction failed; no bill data to recommend from", true
		}
		if !state.ok(models.StageMeterAnalyzer) && !state.ok(models.StageAnomalyDetector) {
			return "both analysis stages failed", true
		}
		return "", false
	}

	for _, dep := range g.DependenciesOf(stage) {
		if !state.ok(dep) {
			return fmt.Sprintf("dependency %s failed", dep), true
		}
	}
	return "", false
}

// skipRemaining marks every stage not yet done as skipped. Sequential mode
// aborts the run on the first stage failure.
func (s *Scheduler) skipRemaining(g *graph.TaskGraph, state *runState, done map[models.Stage]bool, failed models.Stage) {
	for _, stage := range g.TopologicalOrder() {
		if done[stage] {
			continue
		}
		state.record(models.FailureResult(stage, models.FailureSkipped,
			fmt.Sprintf("run aborted after %s failed", failed)), nil)
		done[stage] = true
		debugLog("stage %s skipped after %s failed", stage, failed)
	}
}

// runStage invokes one stage through the retry policy and records the outcome.
// Returns an error only on cancellation, in which case nothing is recorded.
func (s *Scheduler) runStage(ctx context.Context, state *runState, req *models.AnalysisRequest, stage models.Stage) error {
	in := s.buildInput(state, req, stage)

	result, trace, err := s.policy.Do(ctx, s.invoker, in)
	if err != nil {
		return err
	}

	state.record(result, trace)
	if result.OK() {
		debugLog("stage %s ok: confidence=%.2f attempts=%d", stage, result.Confidence, len(trace))
	} else {
		debugLog("stage %s failed: kind=%s attempts=%d", stage, result.Failure.Kind, len(trace))
	}
	return nil
}

// buildInput assembles the typed input a stage needs from the request and
// the upstream results recorded so far.
func (s *Scheduler) buildInput(state *runState, req *models.AnalysisRequest, stage models.Stage) capability.StageInput {
	in := capability.StageInput{Stage: stage}

	switch stage {
	case models.StageParser:
		in.BillText = req.BillText
		in.BillRaw = req.BillRaw
		in.Media = req.Media

	case models.StageMeterAnalyzer:
		in.Extraction = s.extraction(state)
		in.MeterSeries = req.MeterSeries

	case models.StageAnomalyDetector:
		in.Extraction = s.extraction(state)
		in.MeterSeries = req.MeterSeries
		if r, ok := state.get(models.StageMeterAnalyzer); ok && r.OK() {
			if patterns, ok := r.Payload.(*models.PatternSummary); ok {
				in.Baseline = patterns
			}
		}

	case models.StageRecommendation:
		merged := &models.RecommendationInput{Extraction: s.extraction(state)}
		if r, ok := state.get(models.StageMeterAnalyzer); ok && r.OK() {
			merged.Patterns, _ = r.Payload.(*models.PatternSummary)
		} else {
			merged.PatternsUnavailable = true
		}
		if r, ok := state.get(models.StageAnomalyDetector); ok && r.OK() {
			merged.Anomalies, _ = r.Payload.(*models.AnomalyReport)
		} else {
			merged.AnomaliesUnavailable = true
		}
		in.Recommendation = merged
	}

	return in
}

// extraction returns the parser payload, nil if the parser has not succeeded.
func (s *Scheduler) extraction(state *runState) *models.BillData {
	r, ok := state.get(models.StageParser)
	if !ok || !r.OK() {
		return nil
	}
	bill, _ := r.Payload.(*models.BillData)
	return bill
}
