package server

import (
	"errors"

	"drop-and-dodge/server/internal/net/intake"
)

// Wire-level rejection reasons shared by the HTTP and websocket intake
// surfaces.
const (
	SubmitRejectThrottled        = "throttled"
	SubmitRejectDuplicateSession = "duplicate_session"
	SubmitRejectMalformedPayload = "malformed_payload"
)

// RejectReasonFor maps a submission pipeline error onto its wire reason.
func RejectReasonFor(err error) string {
	switch {
	case errors.Is(err, intake.ErrThrottled):
		return SubmitRejectThrottled
	case errors.Is(err, intake.ErrDuplicateSession):
		return SubmitRejectDuplicateSession
	default:
		return SubmitRejectMalformedPayload
	}
}

// RejectRetryable reports whether the client should resubmit the same
// session later. Only throttling is transient; duplicates and malformed
// payloads will fail again unchanged.
func RejectRetryable(err error) bool {
	return errors.Is(err, intake.ErrThrottled)
}
