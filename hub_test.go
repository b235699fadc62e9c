package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"drop-and-dodge/server/internal/anticheat"
	"drop-and-dodge/server/internal/net/intake"
	"drop-and-dodge/server/logging"
	loganticheat "drop-and-dodge/server/logging/anticheat"
	logintake "drop-and-dodge/server/logging/intake"
	"drop-and-dodge/server/session"
)

type eventRecorder struct {
	events []logging.Event
}

func (r *eventRecorder) Publish(_ context.Context, event logging.Event) {
	r.events = append(r.events, event)
}

func (r *eventRecorder) byType(eventType logging.EventType) []logging.Event {
	var matched []logging.Event
	for _, event := range r.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

func newTestHub(t *testing.T, mutate func(*HubConfig)) (*Hub, *eventRecorder) {
	t.Helper()
	cfg := DefaultHubConfig()
	cfg.Gate = intake.Config{ExpectedSessions: 1000}
	cfg.Now = func() time.Time { return time.Unix(1700000000, 0) }
	if mutate != nil {
		mutate(&cfg)
	}
	recorder := &eventRecorder{}
	hub, err := NewHubWithConfig(cfg, recorder)
	if err != nil {
		t.Fatalf("NewHubWithConfig returned error: %v", err)
	}
	return hub, recorder
}

func cleanSubmission(id string) session.SubmitSessionDocument {
	return session.SubmitSessionDocument{
		Request: session.SubmitSessionRequest{
			SessionID:    id,
			CanvasWidth:  800,
			CanvasHeight: 600,
			StartedAt:    1700000000000,
			EndedAt:      1700000060000,
			Events: session.EventEnvelope{
				Moves: []session.MoveEvent{
					{TimestampMs: 0, X: 400},
					{TimestampMs: 1000, X: 410},
					{TimestampMs: 2000, X: 420},
					{TimestampMs: 3000, X: 430},
				},
				Hits: []session.HitEvent{{TimestampMs: 2200, X: 418, Y: 560}},
				Items: []session.ItemEvent{
					{TimestampMs: 1500, ItemID: "item-1", Kind: session.ItemKindPoints, X: 405, Y: 540},
				},
			},
		},
	}
}

func teleportSubmission(id string) session.SubmitSessionDocument {
	doc := cleanSubmission(id)
	doc.Request.Events.Moves = []session.MoveEvent{
		{TimestampMs: 0, X: 100},
		{TimestampMs: 100, X: 650},
	}
	return doc
}

func TestHubSubmitSessionAcceptsCleanRun(t *testing.T) {
	hub, recorder := newTestHub(t, nil)

	verdict, err := hub.SubmitSession(context.Background(), "client-1", cleanSubmission("sess-1"))
	if err != nil {
		t.Fatalf("SubmitSession returned error: %v", err)
	}
	if !verdict.Valid {
		t.Fatalf("expected valid verdict, got reason %q", verdict.Reason)
	}
	if verdict.Confidence != 1.0 {
		t.Fatalf("expected confidence 1.0 without context, got %v", verdict.Confidence)
	}
	if verdict.PerformanceAdjusted {
		t.Fatalf("expected no performance adjustment without context")
	}
	if !strings.HasPrefix(verdict.VerdictID, "verdict-") {
		t.Fatalf("expected minted verdict id, got %q", verdict.VerdictID)
	}
	if verdict.SessionID != "sess-1" {
		t.Fatalf("expected session id carried through, got %q", verdict.SessionID)
	}

	entry, ok := hub.VerdictBySession("sess-1")
	if !ok {
		t.Fatalf("expected journal entry for sess-1")
	}
	if entry.VerdictID != verdict.VerdictID || !entry.Valid {
		t.Fatalf("unexpected journal entry: %+v", entry)
	}

	snapshot := hub.TelemetrySnapshot()
	if snapshot.SubmissionsTotal != 1 || snapshot.AcceptedTotal != 1 || snapshot.RejectedTotal != 0 {
		t.Fatalf("unexpected counters: %+v", snapshot)
	}

	accepted := recorder.byType(loganticheat.EventSessionAccepted)
	if len(accepted) != 1 {
		t.Fatalf("expected one accepted event, got %d", len(accepted))
	}
	if accepted[0].Subject.ID != "sess-1" || accepted[0].Subject.Kind != logging.SubjectKindSession {
		t.Fatalf("unexpected event subject: %+v", accepted[0].Subject)
	}
	if accepted[0].Category != logging.CategoryVerdict {
		t.Fatalf("expected verdict category, got %q", accepted[0].Category)
	}
}

func TestHubSubmitSessionRejectsTeleport(t *testing.T) {
	hub, recorder := newTestHub(t, nil)

	verdict, err := hub.SubmitSession(context.Background(), "client-1", teleportSubmission("sess-1"))
	if err != nil {
		t.Fatalf("SubmitSession returned error: %v", err)
	}
	if verdict.Valid {
		t.Fatalf("expected teleport rejection")
	}
	if verdict.Reason != anticheat.ReasonSpeedExceeded {
		t.Fatalf("expected SpeedExceeded, got %q", verdict.Reason)
	}

	snapshot := hub.TelemetrySnapshot()
	if snapshot.RejectedTotal != 1 || snapshot.SpeedRejects != 1 {
		t.Fatalf("unexpected counters: %+v", snapshot)
	}

	rejected := recorder.byType(loganticheat.EventSessionRejected)
	if len(rejected) != 1 {
		t.Fatalf("expected one rejected event, got %d", len(rejected))
	}
	if rejected[0].Severity != logging.SeverityWarn {
		t.Fatalf("expected warn severity, got %v", rejected[0].Severity)
	}
}

func TestHubSubmitSessionRejectsDuplicate(t *testing.T) {
	hub, recorder := newTestHub(t, nil)

	if _, err := hub.SubmitSession(context.Background(), "client-1", cleanSubmission("sess-1")); err != nil {
		t.Fatalf("first submission rejected: %v", err)
	}
	_, err := hub.SubmitSession(context.Background(), "client-1", cleanSubmission("sess-1"))
	if !errors.Is(err, intake.ErrDuplicateSession) {
		t.Fatalf("expected ErrDuplicateSession, got %v", err)
	}

	snapshot := hub.TelemetrySnapshot()
	if snapshot.DuplicateTotal != 1 {
		t.Fatalf("expected one duplicate tally, got %+v", snapshot)
	}
	if snapshot.SubmissionsTotal != 1 {
		t.Fatalf("duplicate must not count as a submission: %+v", snapshot)
	}
	if len(recorder.byType(logintake.EventDuplicateSession)) != 1 {
		t.Fatalf("expected duplicate_session event")
	}
}

func TestHubSubmitSessionThrottles(t *testing.T) {
	hub, recorder := newTestHub(t, func(cfg *HubConfig) {
		cfg.Gate = intake.Config{SubmitsPerSecond: 1, SubmitBurst: 1, ExpectedSessions: 1000}
	})

	if _, err := hub.SubmitSession(context.Background(), "client-1", cleanSubmission("sess-1")); err != nil {
		t.Fatalf("first submission rejected: %v", err)
	}
	_, err := hub.SubmitSession(context.Background(), "client-1", cleanSubmission("sess-2"))
	if !errors.Is(err, intake.ErrThrottled) {
		t.Fatalf("expected ErrThrottled, got %v", err)
	}

	snapshot := hub.TelemetrySnapshot()
	if snapshot.ThrottledTotal != 1 {
		t.Fatalf("expected one throttle tally, got %+v", snapshot)
	}
	if len(recorder.byType(logintake.EventThrottled)) != 1 {
		t.Fatalf("expected throttled event")
	}
}

func TestHubSubmitSessionRejectsMissingID(t *testing.T) {
	hub, recorder := newTestHub(t, nil)

	doc := cleanSubmission("")
	_, err := hub.SubmitSession(context.Background(), "client-1", doc)
	if !errors.Is(err, ErrInvalidSubmission) {
		t.Fatalf("expected ErrInvalidSubmission, got %v", err)
	}

	snapshot := hub.TelemetrySnapshot()
	if snapshot.MalformedTotal != 1 {
		t.Fatalf("expected one malformed tally, got %+v", snapshot)
	}
	if len(recorder.byType(logintake.EventMalformed)) != 1 {
		t.Fatalf("expected malformed event")
	}
}

func TestHubSetPerformanceThresholds(t *testing.T) {
	hub, recorder := newTestHub(t, nil)

	applied := hub.SetPerformanceThresholds(context.Background(), anticheat.Options{
		BaseSpeedTolerance: 1.5,
	})
	if applied.BaseSpeedTolerance != 1.5 {
		t.Fatalf("expected explicit tolerance kept, got %v", applied.BaseSpeedTolerance)
	}
	if applied.BaseProximityTolerancePx != anticheat.DefaultBaseProximityTolerance {
		t.Fatalf("expected zero fields normalized to defaults, got %+v", applied)
	}
	if got := hub.PerformanceThresholds(); got != applied {
		t.Fatalf("expected snapshot round trip, got %+v want %+v", got, applied)
	}
	if len(recorder.byType(loganticheat.EventThresholdsUpdated)) != 1 {
		t.Fatalf("expected thresholds_updated event")
	}
}

func TestHubRejectionAlertFiresOnSustainedRejects(t *testing.T) {
	hub, recorder := newTestHub(t, nil)

	for i := 0; i < 37; i++ {
		if _, err := hub.SubmitSession(context.Background(), "client-1", cleanSubmission(fmt.Sprintf("clean-%d", i))); err != nil {
			t.Fatalf("clean submission %d rejected: %v", i, err)
		}
	}
	for i := 0; i < 13; i++ {
		if _, err := hub.SubmitSession(context.Background(), "client-1", teleportSubmission(fmt.Sprintf("cheat-%d", i))); err != nil {
			t.Fatalf("teleport submission %d errored: %v", i, err)
		}
	}

	alerts := recorder.byType(loganticheat.EventRejectionAlert)
	if len(alerts) != 1 {
		t.Fatalf("expected exactly one rejection alert, got %d", len(alerts))
	}
	payload, ok := alerts[0].Payload.(loganticheat.AlertPayload)
	if !ok {
		t.Fatalf("unexpected alert payload type %T", alerts[0].Payload)
	}
	if payload.Total != 50 || payload.Rejected != 13 {
		t.Fatalf("unexpected alert window: %+v", payload)
	}
	if alerts[0].Severity != logging.SeverityError {
		t.Fatalf("expected error severity, got %v", alerts[0].Severity)
	}
}

func TestHubSocketAccounting(t *testing.T) {
	hub, recorder := newTestHub(t, nil)
	ctx := context.Background()

	hub.RecordSocketOpened(ctx, "10.0.0.1:1111")
	hub.RecordSocketOpened(ctx, "10.0.0.2:2222")
	hub.RecordSocketClosed(ctx, "10.0.0.1:1111", "read error")

	snapshot := hub.TelemetrySnapshot()
	if snapshot.LiveSockets != 1 {
		t.Fatalf("expected one live socket, got %d", snapshot.LiveSockets)
	}
	if len(recorder.byType(logintake.EventClientConnected)) != 2 {
		t.Fatalf("expected two connect events")
	}
	disconnects := recorder.byType(logintake.EventClientDisconnected)
	if len(disconnects) != 1 {
		t.Fatalf("expected one disconnect event")
	}
	payload, ok := disconnects[0].Payload.(logintake.SocketPayload)
	if !ok {
		t.Fatalf("unexpected disconnect payload type %T", disconnects[0].Payload)
	}
	if payload.Reason != "read error" {
		t.Fatalf("expected disconnect reason carried, got %q", payload.Reason)
	}
}

func TestHubDiagnosticsJournal(t *testing.T) {
	hub, _ := newTestHub(t, nil)

	for i := 0; i < 5; i++ {
		if _, err := hub.SubmitSession(context.Background(), "client-1", cleanSubmission(fmt.Sprintf("sess-%d", i))); err != nil {
			t.Fatalf("submission %d rejected: %v", i, err)
		}
	}

	diag := hub.DiagnosticsJournal(3)
	if diag.Size != 5 {
		t.Fatalf("expected journal size 5, got %d", diag.Size)
	}
	if diag.OldestSequence != 1 || diag.NewestSequence != 5 {
		t.Fatalf("unexpected journal window: %+v", diag)
	}
	if len(diag.Recent) != 3 {
		t.Fatalf("expected three recent entries, got %d", len(diag.Recent))
	}
	if diag.Recent[0].SessionID != "sess-4" {
		t.Fatalf("expected newest entry first, got %q", diag.Recent[0].SessionID)
	}
}
