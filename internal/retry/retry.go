// Package retry drives repeated stage invocations: exponential backoff for
// transient failures, a single hinted re-attempt for low-confidence output,
// and best-of-attempts selection across payload-bearing results.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/wattsonlabs/wattson/internal/capability"
	"github.com/wattsonlabs/wattson/pkg/models"
)

// Defaults applied by NewPolicy when a field is zero.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 8 * time.Second
)

// Policy controls how stage invocations are retried.
type Policy struct {
	// MaxAttempts is the total invocation budget for transient failures,
	// including the first attempt.
	MaxAttempts int
	// BaseDelay is the wait before the first re-attempt; each subsequent
	// wait doubles it.
	BaseDelay time.Duration
	// MaxDelay caps the backoff wait.
	MaxDelay time.Duration

	// sleep waits for the backoff delay or until the context is done.
	// Swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPolicy builds a Policy, filling zero fields with defaults.
func NewPolicy(maxAttempts int, baseDelay, maxDelay time.Duration) *Policy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	return &Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		sleep:       sleepCtx,
	}
}

// Do invokes the capability until it yields an accepted result or the policy
// is exhausted. The returned trace records every attempt in order. A non-nil
// error means the context was cancelled; nothing about the stage outcome
// should be recorded in that case.
func (p *Policy) Do(ctx context.Context, inv capability.Invoker, in capability.StageInput) (models.StageResult, []models.StageInvocation, error) {
	var (
		trace []models.StageInvocation
		best  *models.StageResult
	)

	hintedOnce := false
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		started := time.Now()
		result, err := inv.Invoke(ctx, in)
		completed := time.Now()
		if err != nil {
			return models.StageResult{}, trace, err
		}

		trace = append(trace, models.StageInvocation{
			Stage:       in.Stage,
			Attempt:     attempt,
			StartedAt:   started,
			CompletedAt: completed,
			Latency:     completed.Sub(started),
			Outcome:     result,
		})

		if result.OK() {
			return result, trace, nil
		}

		if result.Payload != nil {
			if best == nil || result.Confidence > best.Confidence {
				r := result
				best = &r
			}
		}

		switch result.Failure.Kind {
		case models.FailureTransient:
			if attempt == p.MaxAttempts {
				return p.settle(in.Stage, best, result), trace, nil
			}
			if err := p.sleep(ctx, p.backoff(attempt)); err != nil {
				return models.StageResult{}, trace, err
			}
		case models.FailureLowConfidence:
			// One hinted re-attempt, then keep whichever try scored highest.
			if hintedOnce || attempt == p.MaxAttempts {
				return p.settle(in.Stage, best, result), trace, nil
			}
			hintedOnce = true
			in.Hint = fmt.Sprintf(
				"A previous attempt reported confidence %.2f, below the required %.2f. Re-examine the input carefully and report an honest confidence.",
				result.Confidence, capability.AcceptanceThreshold(in.Stage))
		default:
			return result, trace, nil
		}
	}

	// Unreachable: every loop exit returns.
	return models.FailureResult(in.Stage, models.FailureFatal, "retry budget exhausted"), trace, nil
}

// settle resolves an exhausted retry: the best payload-bearing attempt wins,
// promoted to a plain success carrying its own confidence; otherwise the
// final failure stands.
func (p *Policy) settle(stage models.Stage, best *models.StageResult, last models.StageResult) models.StageResult {
	if best != nil {
		return models.SuccessResult(stage, best.Payload, best.Confidence)
	}
	return last
}

// backoff returns the wait before re-attempting after the given attempt
// number, doubling from BaseDelay and capped at MaxDelay.
func (p *Policy) backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// sleepCtx blocks for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
