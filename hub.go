package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"drop-and-dodge/server/internal/anticheat"
	"drop-and-dodge/server/internal/journal"
	"drop-and-dodge/server/internal/net/intake"
	"drop-and-dodge/server/internal/telemetry"
	"drop-and-dodge/server/logging"
	loganticheat "drop-and-dodge/server/logging/anticheat"
	logintake "drop-and-dodge/server/logging/intake"
	"drop-and-dodge/server/session"
)

// ErrInvalidSubmission signals a submission missing the fields the pipeline
// cannot work without.
var ErrInvalidSubmission = errors.New("server: submission missing session id")

// HubConfig carries the tunables for a validation hub. Zero values fall back
// to defaults during construction.
type HubConfig struct {
	Profile         anticheat.Profile
	Thresholds      anticheat.Options
	Gate            intake.Config
	JournalCapacity int
	JournalMaxAge   time.Duration
	Logger          telemetry.Logger
	Now             func() time.Time
}

// DefaultHubConfig returns the settings a production hub starts with.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		Profile:         anticheat.DefaultProfile(),
		Thresholds:      anticheat.DefaultOptions(),
		Gate:            intake.DefaultConfig(),
		JournalCapacity: 4096,
		JournalMaxAge:   30 * time.Minute,
	}
}

// Hub owns the validation pipeline: admission gate, engine, verdict journal,
// telemetry counters, and the structured event stream. It is safe for
// concurrent use.
type Hub struct {
	engine    *anticheat.Engine
	gate      *intake.Gate
	journal   journal.Journal
	counters  *telemetry.Counters
	publisher logging.Publisher
	logger    telemetry.Logger
	now       func() time.Time
}

// Verdict couples an engine result with its minted identity.
type Verdict struct {
	VerdictID string `json:"verdictId"`
	SessionID string `json:"sessionId"`
	anticheat.Result
}

// NewHubWithConfig builds a hub. The publisher may be nil; events are then
// dropped silently.
func NewHubWithConfig(cfg HubConfig, publisher logging.Publisher) (*Hub, error) {
	gate, err := intake.NewGate(cfg.Gate)
	if err != nil {
		return nil, fmt.Errorf("server: build admission gate: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	hub := &Hub{
		engine:    anticheat.New(cfg.Profile, cfg.Thresholds),
		gate:      gate,
		journal:   journal.New(cfg.JournalCapacity, cfg.JournalMaxAge),
		counters:  telemetry.NewCounters(),
		publisher: publisher,
		logger:    logger,
		now:       now,
	}
	hub.journal.AttachTelemetry(hub.counters)
	return hub, nil
}

// SubmitSession runs one submission through the full pipeline: admission,
// validation, journaling, counters, and event publication. Gate rejections
// surface as ErrThrottled or ErrDuplicateSession; the verdict is only
// meaningful when the returned error is nil.
func (h *Hub) SubmitSession(ctx context.Context, clientKey string, doc session.SubmitSessionDocument) (Verdict, error) {
	req := doc.Request
	subject := logging.SubjectRef{ID: req.SessionID, Kind: logging.SubjectKindSession}

	if req.SessionID == "" {
		h.counters.IncrementMalformed()
		logintake.Malformed(ctx, h.publisher, logging.SubjectRef{ID: clientKey, Kind: logging.SubjectKindClient},
			logintake.MalformedPayload{Error: ErrInvalidSubmission.Error()}, nil)
		return Verdict{}, ErrInvalidSubmission
	}

	if err := h.gate.Admit(clientKey, req.SessionID); err != nil {
		switch {
		case errors.Is(err, intake.ErrThrottled):
			h.counters.IncrementThrottled()
			logintake.Throttled(ctx, h.publisher, subject, logintake.ThrottlePayload{Key: clientKey}, nil)
		case errors.Is(err, intake.ErrDuplicateSession):
			h.counters.IncrementDuplicate()
			logintake.DuplicateSession(ctx, h.publisher, subject, logintake.DuplicatePayload{SessionID: req.SessionID}, nil)
		}
		return Verdict{}, err
	}

	started := h.now()
	var result anticheat.Result
	if doc.Context != nil {
		result = h.engine.ValidateWithContext(req, *doc.Context)
	} else {
		result = h.engine.Validate(req)
	}
	latency := h.now().Sub(started)

	verdictID := intake.NewVerdictID()
	h.journal.Record(journal.Entry{
		VerdictID:           verdictID,
		SessionID:           req.SessionID,
		Valid:               result.Valid,
		Reason:              string(result.Reason),
		Confidence:          result.Confidence,
		PerformanceAdjusted: result.PerformanceAdjusted,
		RecordedAt:          started,
	})
	h.counters.RecordVerdict(result.Valid, string(result.Reason), result.PerformanceAdjusted, latency)

	payload := loganticheat.VerdictPayload{
		VerdictID:           verdictID,
		Reason:              string(result.Reason),
		Confidence:          result.Confidence,
		PerformanceAdjusted: result.PerformanceAdjusted,
		MoveCount:           len(req.Events.Moves),
		HitCount:            len(req.Events.Hits),
		ItemCount:           len(req.Events.Items),
	}
	if result.Valid {
		loganticheat.SessionAccepted(ctx, h.publisher, subject, payload, nil)
	} else {
		loganticheat.SessionRejected(ctx, h.publisher, subject, payload, nil)
	}

	if signal, ok := h.journal.ConsumeAlert(); ok {
		h.logger.Printf("rejection alert: %s", signal.Summary())
		loganticheat.RejectionAlert(ctx, h.publisher, loganticheat.AlertPayload{
			Rejected: signal.Rejected,
			Total:    signal.Total,
			Summary:  signal.Summary(),
		}, nil)
	}

	return Verdict{VerdictID: verdictID, SessionID: req.SessionID, Result: result}, nil
}

// PerformanceThresholds returns the active engine options snapshot.
func (h *Hub) PerformanceThresholds() anticheat.Options {
	return h.engine.PerformanceThresholds()
}

// SetPerformanceThresholds installs a new options snapshot and returns the
// normalized form actually applied.
func (h *Hub) SetPerformanceThresholds(ctx context.Context, opts anticheat.Options) anticheat.Options {
	h.engine.SetPerformanceThresholds(opts)
	applied := h.engine.PerformanceThresholds()

	loganticheat.ThresholdsUpdated(ctx, h.publisher,
		logging.SubjectRef{Kind: logging.SubjectKindOperator},
		loganticheat.ThresholdsPayload{
			BaseSpeedTolerance:           applied.BaseSpeedTolerance,
			BaseProximityTolerancePx:     applied.BaseProximityTolerancePx,
			ConfidenceThreshold:          applied.ConfidenceThreshold,
			PerformanceAdjustmentEnabled: applied.PerformanceAdjustmentEnabled,
		}, nil)
	return applied
}

// RecordMalformed tallies a submission that never decoded far enough to run.
func (h *Hub) RecordMalformed(ctx context.Context, remoteAddr string, decodeErr error) {
	h.counters.IncrementMalformed()
	message := ""
	if decodeErr != nil {
		message = decodeErr.Error()
	}
	logintake.Malformed(ctx, h.publisher, logging.SubjectRef{ID: remoteAddr, Kind: logging.SubjectKindClient},
		logintake.MalformedPayload{Error: message}, nil)
}

// RecordSocketOpened tallies a live intake connection.
func (h *Hub) RecordSocketOpened(ctx context.Context, remoteAddr string) {
	h.counters.SocketOpened()
	logintake.ClientConnected(ctx, h.publisher, logging.SubjectRef{ID: remoteAddr, Kind: logging.SubjectKindClient},
		logintake.SocketPayload{RemoteAddr: remoteAddr}, nil)
}

// RecordSocketClosed tallies the end of a live intake connection.
func (h *Hub) RecordSocketClosed(ctx context.Context, remoteAddr, reason string) {
	h.counters.SocketClosed()
	logintake.ClientDisconnected(ctx, h.publisher, logging.SubjectRef{ID: remoteAddr, Kind: logging.SubjectKindClient},
		logintake.SocketPayload{RemoteAddr: remoteAddr, Reason: reason}, nil)
}

// VerdictBySession returns the newest journal entry for a session id.
func (h *Hub) VerdictBySession(sessionID string) (journal.Entry, bool) {
	return h.journal.BySession(sessionID)
}

// TelemetrySnapshot returns the current counter values.
func (h *Hub) TelemetrySnapshot() telemetry.Snapshot {
	return h.counters.Snapshot()
}

// JournalDiagnostics summarizes the verdict journal for the diagnostics
// endpoint.
type JournalDiagnostics struct {
	Size           int             `json:"size"`
	OldestSequence uint64          `json:"oldestSequence"`
	NewestSequence uint64          `json:"newestSequence"`
	Recent         []journal.Entry `json:"recent"`
}

// DiagnosticsJournal returns the journal window plus its most recent entries.
func (h *Hub) DiagnosticsJournal(recentLimit int) JournalDiagnostics {
	size, oldest, newest := h.journal.Window()
	return JournalDiagnostics{
		Size:           size,
		OldestSequence: oldest,
		NewestSequence: newest,
		Recent:         h.journal.Recent(recentLimit),
	}
}
