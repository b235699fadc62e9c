package anticheat

import (
	"math"

	"drop-and-dodge/server/session"
)

// Fixed leniency factors for the speed check. The anti-teleport ceiling is
// deliberately hard: no context, however degraded, may raise the allowed
// speed past baseline * maxSpeedMultiplier * antiTeleportFactor.
const (
	antiTeleportFactor    = 2.5
	stutterLeniencyFactor = 1.5
)

// leniencyWindow is a closed interval of session time, in milliseconds, in
// which recorded client stalls excuse extra apparent speed.
type leniencyWindow struct {
	startMs int64
	endMs   int64
}

func (w leniencyWindow) overlaps(startMs, endMs int64) bool {
	return startMs <= w.endMs && endMs >= w.startMs
}

// stutterWindows collects the leniency intervals for one context. Stutter
// issues widen by the computed time window extension around their recorded
// duration; the bare stutter timestamp list, which carries no duration, uses
// the stutter tolerance on both sides instead.
func stutterWindows(ctx *session.PerformanceContext, adjustment Adjustment, opts Options) []leniencyWindow {
	if ctx == nil || !opts.PerformanceAdjustmentEnabled {
		return nil
	}
	windows := make([]leniencyWindow, 0, len(ctx.Issues)+len(ctx.StutterTimestamps))
	for _, issue := range ctx.Issues {
		if issue.Kind != session.IssueStutter {
			continue
		}
		duration := issue.DurationMs
		if duration < 0 {
			duration = 0
		}
		windows = append(windows, leniencyWindow{
			startMs: issue.TimestampMs - adjustment.TimeWindowExtensionMs,
			endMs:   issue.TimestampMs + duration + adjustment.TimeWindowExtensionMs,
		})
	}
	for _, ts := range ctx.StutterTimestamps {
		windows = append(windows, leniencyWindow{
			startMs: ts - adjustment.StutterToleranceMs,
			endMs:   ts + adjustment.StutterToleranceMs,
		})
	}
	return windows
}

func overlapsAny(windows []leniencyWindow, startMs, endMs int64) bool {
	for _, window := range windows {
		if window.overlaps(startMs, endMs) {
			return true
		}
	}
	return false
}

// checkSpeed walks consecutive sorted move pairs and fails fast on the first
// implausible lateral velocity. Zero or one moves pass trivially.
func checkSpeed(moves []session.MoveEvent, windows []leniencyWindow, adjustment Adjustment, opts Options, profile Profile) (Reason, bool) {
	if len(moves) < 2 {
		return "", true
	}

	baseline := profile.NominalMaxSpeed * opts.BaseSpeedTolerance
	allowed := baseline * adjustment.SpeedToleranceMultiplier
	ceiling := baseline * opts.MaxSpeedMultiplier * antiTeleportFactor
	adjusted := !adjustment.IsNeutral()

	for i := 1; i < len(moves); i++ {
		prev := moves[i-1]
		curr := moves[i]

		dtMs := curr.TimestampMs - prev.TimestampMs
		if dtMs < 1 {
			dtMs = 1
		}
		speed := math.Abs(curr.X-prev.X) / (float64(dtMs) / 1000.0)

		if speed <= allowed {
			continue
		}

		if overlapsAny(windows, prev.TimestampMs, curr.TimestampMs) {
			lenient := allowed * stutterLeniencyFactor
			if lenient > ceiling {
				lenient = ceiling
			}
			if speed <= lenient {
				continue
			}
			return ReasonSpeedExceededDespiteStutter, false
		}

		if adjusted {
			return ReasonDynamicSpeedExceeded, false
		}
		return ReasonSpeedExceeded, false
	}

	return "", true
}
