package orchestrator

import (
	"context"
	"fmt"

	"github.com/wattsonlabs/wattson/internal/capability"
	"github.com/wattsonlabs/wattson/internal/retry"
	"github.com/wattsonlabs/wattson/internal/session"
	"github.com/wattsonlabs/wattson/pkg/models"
)

// Options configures an Analyzer. Invoker is required; everything else has
// a working default.
type Options struct {
	// Invoker is the stage capability backend.
	Invoker capability.Invoker
	// Policy is the retry policy; nil means the defaults.
	Policy *retry.Policy
	// Store is the session store; nil means a fresh in-memory store.
	Store *session.Store
	// DefaultMode is used when a request names no mode; empty means hybrid.
	DefaultMode models.ExecutionMode
	// Logger receives debug output; nil means no logging.
	Logger *DebugLogger
}

// Analyzer is the top-level entry point: it owns the scheduler and the
// session store, and turns submitted bills into appended analysis records.
type Analyzer struct {
	scheduler   *Scheduler
	store       *session.Store
	defaultMode models.ExecutionMode
	logger      *DebugLogger
}

// NewAnalyzer builds an Analyzer from options.
func NewAnalyzer(opts Options) (*Analyzer, error) {
	if opts.Invoker == nil {
		return nil, fmt.Errorf("analyzer requires a capability invoker")
	}

	store := opts.Store
	if store == nil {
		store = session.NewStore()
	}

	mode := opts.DefaultMode
	if mode == "" {
		mode = models.ModeHybrid
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	logger := opts.Logger
	if logger == nil {
		logger = NopLogger()
	}
	setPackageLogger(logger)

	return &Analyzer{
		scheduler:   NewScheduler(opts.Invoker, opts.Policy),
		store:       store,
		defaultMode: mode,
		logger:      logger,
	}, nil
}

// NewSession opens a fresh session and returns its ID.
func (a *Analyzer) NewSession() string {
	id := a.store.NewSession()
	a.logger.Log("session %s opened", id)
	return id
}

// Submit runs one bill through the pipeline and appends the resulting record
// to the session. On cancellation the run produces nothing: no partial
// record is appended and the session is unchanged.
func (a *Analyzer) Submit(ctx context.Context, sessionID string, req *models.AnalysisRequest) (*models.AnalysisRecord, error) {
	mode := req.Mode
	if mode == "" {
		mode = a.defaultMode
	}

	record, err := a.scheduler.Run(ctx, req, mode)
	if err != nil {
		return nil, err
	}

	seq, err := a.store.Append(sessionID, *record)
	if err != nil {
		return nil, err
	}
	record.Sequence = seq

	a.logger.Log("session %s record %d: degraded=%v overall=%.2f",
		sessionID, seq, record.Degraded, record.OverallConfidence)
	return record, nil
}

// SessionRecords returns the session's records in append order.
func (a *Analyzer) SessionRecords(sessionID string) ([]models.AnalysisRecord, error) {
	return a.store.Records(sessionID)
}

// CloseSession drops the session and its records.
func (a *Analyzer) CloseSession(sessionID string) {
	a.store.Close(sessionID)
	a.logger.Log("session %s closed", sessionID)
}
