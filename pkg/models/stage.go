// Package models defines the shared data types for the analysis pipeline:
// stages, execution modes, stage payloads, results, and session records.
package models

// Stage identifies one of the four fixed analysis stages.
type Stage string

const (
	// StageParser extracts structured fields from the raw bill.
	StageParser Stage = "parser"
	// StageMeterAnalyzer summarizes consumption patterns from the meter series.
	StageMeterAnalyzer Stage = "meter_analyzer"
	// StageAnomalyDetector flags unusual consumption behavior.
	StageAnomalyDetector Stage = "anomaly_detector"
	// StageRecommendation synthesizes savings recommendations from the other stages.
	StageRecommendation Stage = "recommendation"
)

// Stages returns all stages in their canonical pipeline order.
func Stages() []Stage {
	return []Stage{StageParser, StageMeterAnalyzer, StageAnomalyDetector, StageRecommendation}
}

// Valid returns true if the stage is a known value.
func (s Stage) Valid() bool {
	switch s {
	case StageParser, StageMeterAnalyzer, StageAnomalyDetector, StageRecommendation:
		return true
	default:
		return false
	}
}

// String returns the stage identifier.
func (s Stage) String() string {
	return string(s)
}
