// Package capability wraps the four stage capabilities behind a uniform
// invocation interface. A capability turns a typed stage input into a typed
// payload plus a confidence score, or a classified failure. No orchestration
// logic lives here.
package capability

import (
	"context"

	"github.com/wattsonlabs/wattson/pkg/models"
)

// StageInput carries everything a single stage invocation may need. The
// scheduler populates only the fields relevant to the target stage; each
// invocation receives its own copy and capabilities never mutate it.
type StageInput struct {
	// Stage is the capability to invoke.
	Stage models.Stage
	// BillText is the decoded bill text (parser stage, text media).
	BillText string
	// BillRaw holds raw bill bytes (parser stage, image/pdf media),
	// forwarded untouched.
	BillRaw []byte
	// Media declares how the bill artifact is encoded.
	Media models.MediaKind
	// MeterSeries is the optional historical meter series.
	MeterSeries []models.MeterReading
	// Extraction is the parser output, set for every downstream stage.
	Extraction *models.BillData
	// Baseline is the meter analyzer's pattern summary, set for the
	// anomaly detector when historical data made it a dependency.
	Baseline *models.PatternSummary
	// Recommendation is the merged input for the recommendation stage.
	Recommendation *models.RecommendationInput
	// Hint carries retry guidance from a prior low-confidence attempt.
	Hint string
}

// Invoker is the single-attempt stage capability contract. Every failure is
// classified into the returned StageResult; the error return is reserved for
// context cancellation. Implementations must not retry and must not share
// mutable state across calls.
type Invoker interface {
	Invoke(ctx context.Context, in StageInput) (models.StageResult, error)
}

// AcceptanceThreshold returns the minimum confidence a stage's output must
// report to be accepted without a re-attempt. Extraction is held to a higher
// bar than the analysis stages.
func AcceptanceThreshold(stage models.Stage) float64 {
	if stage == models.StageParser {
		return 0.80
	}
	return 0.70
}
