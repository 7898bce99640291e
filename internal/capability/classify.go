package capability

import (
	"context"
	"errors"
	"net"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/wattsonlabs/wattson/pkg/models"
)

// ClassifyError maps a capability transport error to a failure kind.
// Rate limits, timeouts, and server errors are transient; malformed
// requests are caller errors; everything else is fatal.
func ClassifyError(err error) models.FailureKind {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 429 || apierr.StatusCode == 408:
			return models.FailureTransient
		case apierr.StatusCode >= 500:
			return models.FailureTransient
		case apierr.StatusCode == 400 || apierr.StatusCode == 413 || apierr.StatusCode == 422:
			return models.FailureInvalidInput
		default:
			return models.FailureFatal
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return models.FailureTransient
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.FailureTransient
	}

	return models.FailureFatal
}
