package anticheat

import (
	"drop-and-dodge/server/session"
)

// Confidence weighting. The positive weights sum to 1, so a flawless context
// scores exactly 1.0 before the issue penalty.
const (
	confidenceScoreWeight  = 0.75
	confidenceFpsWeight    = 0.25
	confidenceIssuePenalty = 0.02
	referenceFps           = 60.0
)

// ComputeConfidence maps one performance context onto an aggregate trust
// score in [0,1]. It is pure and independent of the adjustment pass: the
// score is reported on every verdict even when adjustment is disabled.
func ComputeConfidence(ctx session.PerformanceContext) float64 {
	score := float64(ctx.PerformanceScore) / 100
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	fps := ctx.AverageFps / referenceFps
	if fps < 0 {
		fps = 0
	}
	if fps > 1 {
		fps = 1
	}

	totalWeight := 0
	for _, issue := range ctx.Issues {
		totalWeight += severityWeight(issue.Severity)
	}

	confidence := confidenceScoreWeight*score + confidenceFpsWeight*fps - confidenceIssuePenalty*float64(totalWeight)
	return clampFloat(confidence, 0, 1)
}
