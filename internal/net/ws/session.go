package ws

import (
	"context"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"drop-and-dodge/server"
	"drop-and-dodge/server/internal/net/proto"
	"drop-and-dodge/server/session"
)

// Per-session buffer caps. Frames past a cap are dropped, not fatal; the
// envelope validates with whatever was kept.
const (
	maxMoveEvents  = 20000
	maxHitEvents   = 2000
	maxItemEvents  = 2000
	maxIssueEvents = 256
)

// Websocket-only reject reasons. Pipeline rejections reuse the shared
// server.SubmitReject* reasons.
const (
	rejectSessionAlreadyOpen = "session_already_open"
	rejectNoOpenSession      = "no_open_session"
)

// liveSession accumulates streamed telemetry frames for one connection until
// a session_end closes the envelope and triggers validation.
type liveSession struct {
	hub       *server.Hub
	logger    *log.Logger
	conn      *websocket.Conn
	remote    string
	clientKey string

	open   bool
	start  proto.SessionStart
	moves  []session.MoveEvent
	hits   []session.HitEvent
	items  []session.ItemEvent
	issues []session.PerformanceIssue
}

func (s *liveSession) reset() {
	s.open = false
	s.start = proto.SessionStart{}
	s.moves = nil
	s.hits = nil
	s.items = nil
	s.issues = nil
}

// handle processes one decoded frame. It returns false when the connection
// is no longer writable and the read loop should stop.
func (s *liveSession) handle(ctx context.Context, msg proto.ClientMessage) bool {
	switch msg.Type {
	case proto.TypeSessionStart:
		start, ok := proto.StartFromMessage(msg)
		if !ok {
			s.hub.RecordMalformed(ctx, s.remote, nil)
			return s.writeReject(server.SubmitRejectMalformedPayload, false)
		}
		if s.open {
			return s.writeReject(rejectSessionAlreadyOpen, false)
		}
		s.reset()
		s.open = true
		s.start = start
		return s.writeAck(msg, proto.TypeSessionStart)

	case proto.TypeMove:
		move, ok := proto.MoveFromMessage(msg)
		if !ok || !s.open {
			return s.rejectFrame(ctx, msg, ok)
		}
		if len(s.moves) < maxMoveEvents {
			s.moves = append(s.moves, move)
		}
		return s.writeAck(msg, proto.TypeMove)

	case proto.TypeHit:
		hit, ok := proto.HitFromMessage(msg)
		if !ok || !s.open {
			return s.rejectFrame(ctx, msg, ok)
		}
		if len(s.hits) < maxHitEvents {
			s.hits = append(s.hits, hit)
		}
		return s.writeAck(msg, proto.TypeHit)

	case proto.TypeItem:
		item, ok := proto.ItemFromMessage(msg)
		if !ok || !s.open {
			return s.rejectFrame(ctx, msg, ok)
		}
		if len(s.items) < maxItemEvents {
			s.items = append(s.items, item)
		}
		return s.writeAck(msg, proto.TypeItem)

	case proto.TypePerfIssue:
		issue, ok := proto.IssueFromMessage(msg)
		if !ok || !s.open {
			return s.rejectFrame(ctx, msg, ok)
		}
		if len(s.issues) < maxIssueEvents {
			s.issues = append(s.issues, issue)
		}
		return s.writeAck(msg, proto.TypePerfIssue)

	case proto.TypeSessionEnd:
		end, ok := proto.EndFromMessage(msg)
		if !ok {
			s.hub.RecordMalformed(ctx, s.remote, nil)
			return s.writeReject(server.SubmitRejectMalformedPayload, false)
		}
		if !s.open {
			return s.writeReject(rejectNoOpenSession, false)
		}
		return s.finish(ctx, end)

	case proto.TypeHeartbeat:
		now := time.Now()
		rtt := int64(0)
		if msg.SentAt > 0 && now.UnixMilli() > msg.SentAt {
			rtt = now.UnixMilli() - msg.SentAt
		}
		payload, err := proto.EncodeHeartbeat(proto.Heartbeat{
			ServerTime: now.UnixMilli(),
			ClientTime: msg.SentAt,
			RTTMillis:  rtt,
		})
		if err != nil {
			s.logger.Printf("failed to marshal heartbeat ack for %s: %v", s.remote, err)
			return true
		}
		return s.writeFrame(payload)

	default:
		s.logger.Printf("unknown message type %q from %s", msg.Type, s.remote)
		return true
	}
}

// rejectFrame answers an event frame that either failed mapping or arrived
// outside an open session.
func (s *liveSession) rejectFrame(ctx context.Context, msg proto.ClientMessage, mapped bool) bool {
	if !mapped {
		s.hub.RecordMalformed(ctx, s.remote, nil)
		return s.writeReject(server.SubmitRejectMalformedPayload, false)
	}
	return s.writeReject(rejectNoOpenSession, false)
}

// finish assembles the envelope, runs the submission pipeline, and answers
// with either a verdict or a reject frame. The session closes either way.
func (s *liveSession) finish(ctx context.Context, end proto.SessionEnd) bool {
	req := session.SubmitSessionRequest{
		SessionID:    s.start.SessionID,
		CanvasWidth:  s.start.CanvasWidth,
		CanvasHeight: s.start.CanvasHeight,
		StartedAt:    s.start.StartedAt,
		EndedAt:      end.EndedAt,
		Events: session.EventEnvelope{
			Moves: s.moves,
			Hits:  s.hits,
			Items: s.items,
		},
	}
	doc := session.SubmitSessionDocument{Request: req, Context: s.mergedContext(end.Context)}
	s.reset()

	verdict, err := s.hub.SubmitSession(ctx, s.clientKey, doc)
	if err != nil {
		return s.writeReject(server.RejectReasonFor(err), server.RejectRetryable(err))
	}

	payload, encodeErr := proto.EncodeVerdict(proto.VerdictV1{
		VerdictID:           verdict.VerdictID,
		SessionID:           verdict.SessionID,
		Valid:               verdict.Valid,
		Reason:              string(verdict.Reason),
		Confidence:          verdict.Confidence,
		PerformanceAdjusted: verdict.PerformanceAdjusted,
		Adjustment:          verdict.Adjustment,
	})
	if encodeErr != nil {
		s.logger.Printf("failed to marshal verdict for %s: %v", s.remote, encodeErr)
		return true
	}
	return s.writeFrame(payload)
}

// mergedContext returns the client's summarized report, filled in with
// streamed issues when the summary arrived without any. A session that never
// sent a summary validates without a context; streamed issues alone do not
// fabricate one.
func (s *liveSession) mergedContext(reported *session.PerformanceContext) *session.PerformanceContext {
	if reported == nil {
		return nil
	}
	if len(reported.Issues) > 0 || len(s.issues) == 0 {
		return reported
	}
	merged := *reported
	merged.Issues = append([]session.PerformanceIssue(nil), s.issues...)
	if len(merged.StutterTimestamps) == 0 {
		for _, issue := range s.issues {
			if issue.Kind == session.IssueStutter {
				merged.StutterTimestamps = append(merged.StutterTimestamps, issue.TimestampMs)
			}
		}
	}
	return &merged
}

func (s *liveSession) writeAck(msg proto.ClientMessage, frame string) bool {
	if msg.Seq == nil || *msg.Seq == 0 {
		return true
	}
	payload, err := proto.EncodeAck(proto.Ack{Seq: *msg.Seq, Frame: frame})
	if err != nil {
		s.logger.Printf("failed to marshal ack for %s: %v", s.remote, err)
		return true
	}
	return s.writeFrame(payload)
}

func (s *liveSession) writeReject(reason string, retry bool) bool {
	payload, err := proto.EncodeReject(proto.Reject{Reason: reason, Retry: retry})
	if err != nil {
		s.logger.Printf("failed to marshal reject for %s: %v", s.remote, err)
		return true
	}
	return s.writeFrame(payload)
}

func (s *liveSession) writeFrame(payload []byte) bool {
	return s.conn.WriteMessage(websocket.TextMessage, payload) == nil
}
