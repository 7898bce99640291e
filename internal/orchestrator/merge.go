package orchestrator

import (
	"time"

	"github.com/wattsonlabs/wattson/pkg/models"
)

// mergeRecord folds the run state into the final analysis record. The record
// always carries one result per stage in canonical order. Overall confidence
// is the minimum across the successful stages that feed the recommendation
// input; the recommendation's own score is reported per-stage only. Any
// unrecovered failure degrades the record: overall confidence drops to zero
// and the caller can inspect per-stage failures, but the record is still
// returned and appended like any other.
func mergeRecord(mode models.ExecutionMode, state *runState, started time.Time) *models.AnalysisRecord {
	record := &models.AnalysisRecord{
		Mode:      mode,
		StartedAt: started,
		Duration:  time.Since(started),
		Trace:     state.trace,
	}

	degraded := false
	overall := 1.0
	for _, stage := range models.Stages() {
		result, ok := state.get(stage)
		if !ok {
			// A stage that never ran is always reported, never dropped.
			result = models.FailureResult(stage, models.FailureSkipped, "stage never ran")
		}
		record.Results = append(record.Results, result)

		if !result.OK() {
			degraded = true
			continue
		}
		if stage == models.StageRecommendation {
			continue
		}
		if result.Confidence < overall {
			overall = result.Confidence
		}
	}

	record.Degraded = degraded
	if !degraded {
		record.OverallConfidence = overall
	}
	return record
}
