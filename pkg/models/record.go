package models

import "time"

// StageInvocation records a single attempt at a stage. Invocations are kept
// only as the trace inside the final AnalysisRecord.
type StageInvocation struct {
	// Stage identifies the invoked stage.
	Stage Stage `json:"stage"`
	// Attempt is the 1-indexed attempt number.
	Attempt int `json:"attempt"`
	// StartedAt is when the attempt began.
	StartedAt time.Time `json:"started_at"`
	// CompletedAt is when the attempt finished.
	CompletedAt time.Time `json:"completed_at"`
	// Latency is CompletedAt minus StartedAt.
	Latency time.Duration `json:"latency"`
	// Outcome is the attempt's result before retry-policy selection.
	Outcome StageResult `json:"outcome"`
}

// RecommendationInput is what the recommendation stage consumes: the
// extraction output plus whatever subset of the fan-out results succeeded.
// Failed optional inputs are explicit unavailable markers, never defaults.
type RecommendationInput struct {
	// Extraction is the parser output. Always present; the recommendation
	// stage must be able to operate on extraction data alone.
	Extraction *BillData `json:"extraction"`
	// Patterns is the meter analysis, nil when unavailable.
	Patterns *PatternSummary `json:"patterns,omitempty"`
	// PatternsUnavailable marks that the meter analysis failed.
	PatternsUnavailable bool `json:"patterns_unavailable,omitempty"`
	// Anomalies is the anomaly report, nil when unavailable.
	Anomalies *AnomalyReport `json:"anomalies,omitempty"`
	// AnomaliesUnavailable marks that anomaly detection failed.
	AnomaliesUnavailable bool `json:"anomalies_unavailable,omitempty"`
}

// AnalysisRecord is the durable (session-lifetime) output of one run:
// the merged results of all four stages plus run-level metadata.
type AnalysisRecord struct {
	// Sequence is the record's position within its session, starting at 1.
	Sequence uint64 `json:"sequence"`
	// Mode is the execution mode the run used.
	Mode ExecutionMode `json:"mode"`
	// Results holds exactly one entry per stage, in canonical stage order.
	Results []StageResult `json:"results"`
	// OverallConfidence is the minimum confidence across the successful
	// stages that fed the recommendation input. Zero when Degraded.
	OverallConfidence float64 `json:"overall_confidence"`
	// Degraded is true when any stage holds an unrecovered failure.
	Degraded bool `json:"degraded"`
	// Duration is the total wall-clock time of the run.
	Duration time.Duration `json:"duration"`
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`
	// Trace lists every stage invocation attempt made during the run.
	Trace []StageInvocation `json:"trace,omitempty"`
}

// Result returns the record's entry for the given stage.
// The second return is false if the stage is unknown.
func (r *AnalysisRecord) Result(stage Stage) (StageResult, bool) {
	for _, sr := range r.Results {
		if sr.Stage == stage {
			return sr, true
		}
	}
	return StageResult{}, false
}

// Attempts counts the trace entries for the given stage.
func (r *AnalysisRecord) Attempts(stage Stage) int {
	n := 0
	for _, inv := range r.Trace {
		if inv.Stage == stage {
			n++
		}
	}
	return n
}
