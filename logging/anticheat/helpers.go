package anticheat

import (
	"context"

	"drop-and-dodge/server/logging"
)

const (
	// EventSessionAccepted is emitted when a submitted session passes validation.
	EventSessionAccepted logging.EventType = "session.accepted"
	// EventSessionRejected is emitted when a submitted session fails validation.
	EventSessionRejected logging.EventType = "session.rejected"
	// EventThresholdsUpdated is emitted when an operator installs a new threshold snapshot.
	EventThresholdsUpdated logging.EventType = "session.thresholds_updated"
	// EventRejectionAlert is emitted when the journal's rejection rate policy trips.
	EventRejectionAlert logging.EventType = "session.rejection_alert"
)

// VerdictPayload captures the verdict details alongside the event volume that
// produced them.
type VerdictPayload struct {
	VerdictID           string  `json:"verdictId"`
	Reason              string  `json:"reason,omitempty"`
	Confidence          float64 `json:"confidence"`
	PerformanceAdjusted bool    `json:"performanceAdjusted"`
	MoveCount           int     `json:"moveCount"`
	HitCount            int     `json:"hitCount"`
	ItemCount           int     `json:"itemCount"`
}

// ThresholdsPayload summarizes the knobs an operator most often tunes.
type ThresholdsPayload struct {
	BaseSpeedTolerance           float64 `json:"baseSpeedTolerance"`
	BaseProximityTolerancePx     float64 `json:"baseProximityTolerancePx"`
	ConfidenceThreshold          float64 `json:"confidenceThreshold"`
	PerformanceAdjustmentEnabled bool    `json:"performanceAdjustmentEnabled"`
}

// SessionAccepted publishes an info event for a passing verdict.
func SessionAccepted(ctx context.Context, pub logging.Publisher, subject logging.SubjectRef, payload VerdictPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventSessionAccepted,
		Subject:  subject,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryVerdict,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// SessionRejected publishes a warning event for a failing verdict.
func SessionRejected(ctx context.Context, pub logging.Publisher, subject logging.SubjectRef, payload VerdictPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventSessionRejected,
		Subject:  subject,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryVerdict,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// AlertPayload carries the rejection-rate window that tripped the policy.
type AlertPayload struct {
	Rejected uint64 `json:"rejected"`
	Total    uint64 `json:"total"`
	Summary  string `json:"summary,omitempty"`
}

// RejectionAlert publishes an error event when rejections cross the policy rate.
func RejectionAlert(ctx context.Context, pub logging.Publisher, payload AlertPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventRejectionAlert,
		Severity: logging.SeverityError,
		Category: logging.CategoryVerdict,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// ThresholdsUpdated publishes an info event when the active thresholds change.
func ThresholdsUpdated(ctx context.Context, pub logging.Publisher, subject logging.SubjectRef, payload ThresholdsPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventThresholdsUpdated,
		Subject:  subject,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryAdmin,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
