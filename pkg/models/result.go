package models

// FailureKind classifies why a stage did not produce an accepted result.
type FailureKind string

const (
	// FailureTransient is a retryable failure such as a rate limit or network error.
	FailureTransient FailureKind = "transient"
	// FailureInvalidInput is a caller error; the request cannot succeed as given.
	FailureInvalidInput FailureKind = "invalid_input"
	// FailureLowConfidence means the stage succeeded but reported confidence
	// below its acceptance threshold.
	FailureLowConfidence FailureKind = "low_confidence"
	// FailureUpstreamFailed means a dependency never produced a usable result,
	// so the stage was not invoked.
	FailureUpstreamFailed FailureKind = "upstream_failed"
	// FailureSkipped means the stage was never reached because an earlier
	// stage aborted the run.
	FailureSkipped FailureKind = "skipped"
	// FailureFatal is an unclassified failure; never retried.
	FailureFatal FailureKind = "fatal"
)

// Retryable returns true for failure kinds the retry policy may retry.
func (k FailureKind) Retryable() bool {
	return k == FailureTransient || k == FailureLowConfidence
}

// Failure describes a terminal or intermediate stage failure.
type Failure struct {
	// Kind classifies the failure.
	Kind FailureKind `json:"kind"`
	// Message is a human-readable description of what went wrong.
	Message string `json:"message"`
}

// StageResult is the outcome of one stage: a payload with a confidence
// score, a classified failure, or both. A low_confidence failure keeps the
// attempt's payload and score so the retry policy can accept the best of
// several attempts; every other failure kind carries no payload.
type StageResult struct {
	// Stage identifies which stage produced this result.
	Stage Stage `json:"stage"`
	// Payload is the stage output; nil on failure.
	Payload Payload `json:"payload,omitempty"`
	// Confidence is the stage's self-assessed reliability in [0,1].
	// Zero on failure.
	Confidence float64 `json:"confidence"`
	// Failure is set when the stage did not produce an accepted result.
	Failure *Failure `json:"failure,omitempty"`
}

// OK returns true if the stage produced an accepted payload.
func (r StageResult) OK() bool {
	return r.Failure == nil
}

// SuccessResult builds a successful StageResult.
func SuccessResult(stage Stage, payload Payload, confidence float64) StageResult {
	return StageResult{Stage: stage, Payload: payload, Confidence: confidence}
}

// FailureResult builds a failed StageResult.
func FailureResult(stage Stage, kind FailureKind, message string) StageResult {
	return StageResult{Stage: stage, Failure: &Failure{Kind: kind, Message: message}}
}
