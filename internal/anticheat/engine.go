// Package anticheat decides whether a submitted session's telemetry is
// consistent with plausible human play. The engine compensates for genuine
// client-side degradation, stutters, low frame rate, and memory pressure,
// before it accuses anyone of teleporting.
package anticheat

import (
	"sync/atomic"

	"drop-and-dodge/server/session"
)

// Engine runs the validation pipeline: adjustment, speed, proximity, then
// the confidence gate. It performs no I/O and is safe for concurrent use;
// the options snapshot is replaced wholesale with a single pointer swap, so
// in-flight validations observe either the fully-old or fully-new settings.
type Engine struct {
	profile Profile
	opts    atomic.Pointer[Options]
}

// New constructs an engine for the given game profile and initial options.
// Both are normalized before use.
func New(profile Profile, opts Options) *Engine {
	engine := &Engine{profile: profile.Normalized()}
	normalized := opts.Normalized()
	engine.opts.Store(&normalized)
	return engine
}

// Validate checks a submission without a performance context. Tolerances
// stay neutral and the confidence gate is bypassed: with no health report
// there is nothing to distrust beyond the rules themselves.
func (e *Engine) Validate(req session.SubmitSessionRequest) Result {
	return e.run(req, nil)
}

// ValidateWithContext checks a submission against the client's summarized
// performance report, relaxing rule tolerances for degraded clients and
// gating the final verdict on aggregate confidence.
func (e *Engine) ValidateWithContext(req session.SubmitSessionRequest, ctx session.PerformanceContext) Result {
	return e.run(req, &ctx)
}

// PerformanceThresholds returns the currently installed options snapshot.
func (e *Engine) PerformanceThresholds() Options {
	return *e.opts.Load()
}

// SetPerformanceThresholds replaces the options snapshot wholesale.
func (e *Engine) SetPerformanceThresholds(opts Options) {
	normalized := opts.Normalized()
	e.opts.Store(&normalized)
}

func (e *Engine) run(req session.SubmitSessionRequest, ctx *session.PerformanceContext) Result {
	opts := *e.opts.Load()

	adjustment := ComputeAdjustment(ctx, opts)
	confidence := confidenceFor(ctx)

	moves := session.SortedMoves(req.Events.Moves)
	windows := stutterWindows(ctx, adjustment, opts)

	if reason, ok := checkSpeed(moves, windows, adjustment, opts, e.profile); !ok {
		return invalidResult(reason, confidence, adjustment)
	}

	if reason, ok := checkProximity(moves, req.Events.Items, ctx, adjustment, opts); !ok {
		return invalidResult(reason, confidence, adjustment)
	}

	if ctx != nil && confidence < opts.ConfidenceThreshold {
		return invalidResult(ReasonLowConfidence, confidence, adjustment)
	}

	return validResult(confidence, adjustment)
}

// confidenceFor treats an absent context as fully trusted; the caller had no
// monitor running, so only the rule validators can speak against it.
func confidenceFor(ctx *session.PerformanceContext) float64 {
	if ctx == nil {
		return 1.0
	}
	return ComputeConfidence(*ctx)
}
