package intake

import (
	"context"

	"drop-and-dodge/server/logging"
)

const (
	// EventThrottled is emitted when the rate limiter turns a submitter away.
	EventThrottled logging.EventType = "intake.throttled"
	// EventDuplicateSession is emitted when a session id is replayed.
	EventDuplicateSession logging.EventType = "intake.duplicate_session"
	// EventMalformed is emitted when a submission cannot be decoded.
	EventMalformed logging.EventType = "intake.malformed"
	// EventClientConnected is emitted when a live telemetry socket opens.
	EventClientConnected logging.EventType = "intake.client_connected"
	// EventClientDisconnected is emitted when a live telemetry socket closes.
	EventClientDisconnected logging.EventType = "intake.client_disconnected"
)

// ThrottlePayload names the limiter key that was rejected.
type ThrottlePayload struct {
	Key string `json:"key"`
}

// DuplicatePayload names the replayed session.
type DuplicatePayload struct {
	SessionID string `json:"sessionId"`
}

// MalformedPayload carries the decode failure.
type MalformedPayload struct {
	Error string `json:"error"`
}

// SocketPayload describes a live intake connection.
type SocketPayload struct {
	RemoteAddr string `json:"remoteAddr"`
	Reason     string `json:"reason,omitempty"`
}

// Throttled publishes a warning event for a rate-limited submission.
func Throttled(ctx context.Context, pub logging.Publisher, subject logging.SubjectRef, payload ThrottlePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventThrottled,
		Subject:  subject,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryIntake,
		Payload:  payload,
		Extra:    extra,
	})
}

// DuplicateSession publishes a warning event for a replayed session id.
func DuplicateSession(ctx context.Context, pub logging.Publisher, subject logging.SubjectRef, payload DuplicatePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDuplicateSession,
		Subject:  subject,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryIntake,
		Payload:  payload,
		Extra:    extra,
	})
}

// Malformed publishes a warning event for an undecodable submission.
func Malformed(ctx context.Context, pub logging.Publisher, subject logging.SubjectRef, payload MalformedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMalformed,
		Subject:  subject,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryIntake,
		Payload:  payload,
		Extra:    extra,
	})
}

// ClientConnected publishes an info event when a live socket opens.
func ClientConnected(ctx context.Context, pub logging.Publisher, subject logging.SubjectRef, payload SocketPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventClientConnected,
		Subject:  subject,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryIntake,
		Payload:  payload,
		Extra:    extra,
	})
}

// ClientDisconnected publishes an info event when a live socket closes.
func ClientDisconnected(ctx context.Context, pub logging.Publisher, subject logging.SubjectRef, payload SocketPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventClientDisconnected,
		Subject:  subject,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryIntake,
		Payload:  payload,
		Extra:    extra,
	})
}
