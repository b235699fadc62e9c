package anticheat

import (
	"drop-and-dodge/server/session"
)

// Deficit-term scale factors. Each severity weight unit adds 5% tolerance,
// and each memory pressure level adds 5% proximity tolerance.
const (
	issueTermScale  = 0.05
	memoryTermScale = 0.05
)

// Per-issue time window growth: a fixed step per severity weight unit plus a
// tenth of the issue duration, with long incidents capped so a single stalled
// tab cannot open an unbounded window.
const (
	extensionSeverityStepMs  = 25.0
	extensionDurationDivisor = 10.0
	extensionDurationCapMs   = 500.0
	stutterGrowthStepMs      = 50
)

func severityWeight(severity session.IssueSeverity) int {
	switch severity {
	case session.SeverityMedium:
		return 2
	case session.SeverityHigh:
		return 3
	default:
		return 1
	}
}

// ComputeAdjustment derives tolerance relaxations from one performance
// context. It is pure: the same context and options always produce the same
// adjustment. A nil context or a disabled adjustment pass returns the neutral
// adjustment regardless of what the context reports.
func ComputeAdjustment(ctx *session.PerformanceContext, opts Options) Adjustment {
	if ctx == nil || !opts.PerformanceAdjustmentEnabled {
		return NeutralAdjustment()
	}

	fpsTerm := 0.0
	if opts.LowFpsThreshold > 0 && ctx.AverageFps < opts.LowFpsThreshold {
		fpsTerm = (opts.LowFpsThreshold - ctx.AverageFps) / opts.LowFpsThreshold
	}

	scoreTerm := float64(100-ctx.PerformanceScore) / 100
	if scoreTerm < 0 {
		scoreTerm = 0
	}
	if scoreTerm > 1 {
		scoreTerm = 1
	}

	totalWeight := 0
	stutterWeight := 0
	extension := 0.0
	for _, issue := range ctx.Issues {
		weight := severityWeight(issue.Severity)
		totalWeight += weight
		if issue.Kind == session.IssueStutter {
			stutterWeight += weight
		}
		duration := float64(issue.DurationMs)
		if duration < 0 {
			duration = 0
		}
		if duration > extensionDurationCapMs {
			duration = extensionDurationCapMs
		}
		extension += float64(weight)*extensionSeverityStepMs + duration/extensionDurationDivisor
	}
	issueTerm := float64(totalWeight) * issueTermScale

	memoryLevel := ctx.MemoryPressureLevel
	if memoryLevel < 0 {
		memoryLevel = 0
	}
	if memoryLevel > 5 {
		memoryLevel = 5
	}
	memoryTerm := float64(memoryLevel) * memoryTermScale

	speedMultiplier := clampFloat(1+fpsTerm+scoreTerm+issueTerm, 1, opts.MaxSpeedMultiplier)
	proximityMultiplier := clampFloat(1+scoreTerm+issueTerm+memoryTerm, 1, opts.MaxProximityMultiplier)
	windowExtension := clampInt64(int64(extension), 0, opts.MaxTimeWindowExtensionMs)

	stutterTolerance := opts.StutterToleranceMs
	grown := opts.StutterToleranceMs + int64(stutterWeight)*stutterGrowthStepMs
	if grown > opts.MaxTimeWindowExtensionMs {
		grown = opts.MaxTimeWindowExtensionMs
	}
	if grown > stutterTolerance {
		stutterTolerance = grown
	}

	return Adjustment{
		SpeedToleranceMultiplier:     speedMultiplier,
		ProximityToleranceMultiplier: proximityMultiplier,
		TimeWindowExtensionMs:        windowExtension,
		StutterToleranceMs:           stutterTolerance,
	}
}

func clampFloat(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

func clampInt64(value, lo, hi int64) int64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
