package anticheat

import (
	"math"
	"sort"

	"drop-and-dodge/server/session"
)

// Fixed leniency factors for the proximity check. Pickups are lane-locked,
// so only lateral distance matters; the ceiling keeps grab-anything clients
// out no matter how degraded the context looks.
const (
	proximityCeilingFactor = 2.0
	issueLeniencyFactor    = 1.5
)

// interpolatedX estimates where the player was at ts, using the surrounding
// sorted moves. With only one neighbor the estimate is one-sided. A session
// with no moves reports no estimate and the caller passes the item through.
func interpolatedX(moves []session.MoveEvent, ts int64) (float64, bool) {
	if len(moves) == 0 {
		return 0, false
	}

	idx := sort.Search(len(moves), func(i int) bool {
		return moves[i].TimestampMs >= ts
	})

	if idx == 0 {
		return moves[0].X, true
	}
	if idx == len(moves) {
		return moves[len(moves)-1].X, true
	}

	before := moves[idx-1]
	after := moves[idx]
	span := after.TimestampMs - before.TimestampMs
	if span <= 0 {
		return after.X, true
	}
	fraction := float64(ts-before.TimestampMs) / float64(span)
	return before.X + (after.X-before.X)*fraction, true
}

// nearAnyIssue reports whether ts falls within extensionMs of any recorded
// incident window. Unlike the stutter windows used by the speed check, every
// issue kind counts here: pickup misjudgment follows GC pauses and frame
// drops alike.
func nearAnyIssue(ctx *session.PerformanceContext, ts, extensionMs int64) bool {
	if ctx == nil {
		return false
	}
	for _, issue := range ctx.Issues {
		duration := issue.DurationMs
		if duration < 0 {
			duration = 0
		}
		if ts >= issue.TimestampMs-extensionMs && ts <= issue.TimestampMs+duration+extensionMs {
			return true
		}
	}
	return false
}

// checkProximity verifies each claimed pickup against the interpolated player
// position, failing fast on the first implausible grab.
func checkProximity(moves []session.MoveEvent, items []session.ItemEvent, ctx *session.PerformanceContext, adjustment Adjustment, opts Options) (Reason, bool) {
	if len(items) == 0 {
		return "", true
	}

	allowed := opts.BaseProximityTolerancePx * adjustment.ProximityToleranceMultiplier
	ceiling := opts.BaseProximityTolerancePx * opts.MaxProximityMultiplier * proximityCeilingFactor
	adjusted := !adjustment.IsNeutral()

	for _, item := range items {
		expectedX, ok := interpolatedX(moves, item.TimestampMs)
		if !ok {
			continue
		}

		distance := math.Abs(item.X - expectedX)
		if distance <= allowed {
			continue
		}

		if opts.PerformanceAdjustmentEnabled && nearAnyIssue(ctx, item.TimestampMs, adjustment.TimeWindowExtensionMs) {
			lenient := allowed * issueLeniencyFactor
			if lenient > ceiling {
				lenient = ceiling
			}
			if distance <= lenient {
				continue
			}
		}

		if adjusted {
			return ReasonDynamicProximityExceeded, false
		}
		return ReasonProximityExceeded, false
	}

	return "", true
}
