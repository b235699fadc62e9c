package proto

import (
	"encoding/json"
	"fmt"

	"drop-and-dodge/server/internal/anticheat"
	"drop-and-dodge/server/session"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1

	// Type identifiers for websocket payloads.
	typeVerdict   = "verdict"
	typeAck       = "ack"
	typeReject    = "reject"
	typeHeartbeat = "heartbeat"
)

// Client message type identifiers.
const (
	TypeSessionStart = "session_start"
	TypeMove         = "move"
	TypeHit          = "hit"
	TypeItem         = "item"
	TypePerfIssue    = "perf_issue"
	TypeSessionEnd   = "session_end"
	TypeHeartbeat    = "heartbeat"
)

// Exported aliases for outbound message type identifiers.
const (
	TypeVerdict = typeVerdict
	TypeAck     = typeAck
	TypeReject  = typeReject
)

// ClientMessage captures an inbound websocket message from the client.
type ClientMessage struct {
	Ver          int                         `json:"ver,omitempty"`
	Type         string                      `json:"type"`
	Seq          *uint64                     `json:"seq,omitempty"`
	SessionID    string                      `json:"sessionId,omitempty"`
	CanvasWidth  int                         `json:"canvasWidth,omitempty"`
	CanvasHeight int                         `json:"canvasHeight,omitempty"`
	StartedAt    int64                       `json:"startedAt,omitempty"`
	EndedAt      int64                       `json:"endedAt,omitempty"`
	T            int64                       `json:"t,omitempty"`
	X            float64                     `json:"x,omitempty"`
	Y            float64                     `json:"y,omitempty"`
	ItemID       string                      `json:"itemId,omitempty"`
	Kind         string                      `json:"kind,omitempty"`
	Severity     string                      `json:"severity,omitempty"`
	DurationMs   int64                       `json:"durationMs,omitempty"`
	Fps          float64                     `json:"fps,omitempty"`
	SentAt       int64                       `json:"sentAt,omitempty"`
	Context      *session.PerformanceContext `json:"context,omitempty"`
}

// DecodeClientMessage converts raw websocket payloads into a structured message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// SessionStart carries the opening frame of a live telemetry stream.
type SessionStart struct {
	SessionID    string
	CanvasWidth  int
	CanvasHeight int
	StartedAt    int64
}

// StartFromMessage extracts a session opener, if the message is one.
func StartFromMessage(msg ClientMessage) (SessionStart, bool) {
	if msg.Type != TypeSessionStart || msg.SessionID == "" {
		return SessionStart{}, false
	}
	return SessionStart{
		SessionID:    msg.SessionID,
		CanvasWidth:  msg.CanvasWidth,
		CanvasHeight: msg.CanvasHeight,
		StartedAt:    msg.StartedAt,
	}, true
}

// SessionEnd carries the closing frame, including the optional summarized
// performance context gathered by the client monitor.
type SessionEnd struct {
	EndedAt int64
	Context *session.PerformanceContext
}

// EndFromMessage extracts a session closer, if the message is one.
func EndFromMessage(msg ClientMessage) (SessionEnd, bool) {
	if msg.Type != TypeSessionEnd {
		return SessionEnd{}, false
	}
	return SessionEnd{EndedAt: msg.EndedAt, Context: msg.Context}, true
}

// MoveFromMessage extracts a paddle movement sample, if the message is one.
func MoveFromMessage(msg ClientMessage) (session.MoveEvent, bool) {
	if msg.Type != TypeMove {
		return session.MoveEvent{}, false
	}
	return session.MoveEvent{TimestampMs: msg.T, X: msg.X}, true
}

// HitFromMessage extracts an object hit, if the message is one.
func HitFromMessage(msg ClientMessage) (session.HitEvent, bool) {
	if msg.Type != TypeHit {
		return session.HitEvent{}, false
	}
	return session.HitEvent{TimestampMs: msg.T, X: msg.X, Y: msg.Y}, true
}

// ItemFromMessage extracts an item pickup, if the message is one with a
// recognized item kind.
func ItemFromMessage(msg ClientMessage) (session.ItemEvent, bool) {
	if msg.Type != TypeItem || msg.ItemID == "" {
		return session.ItemEvent{}, false
	}
	kind := session.ItemKind(msg.Kind)
	if !kind.Valid() {
		return session.ItemEvent{}, false
	}
	return session.ItemEvent{
		TimestampMs: msg.T,
		ItemID:      msg.ItemID,
		Kind:        kind,
		X:           msg.X,
		Y:           msg.Y,
	}, true
}

// IssueFromMessage extracts a performance incident, if the message is one
// with recognized kind and severity spellings.
func IssueFromMessage(msg ClientMessage) (session.PerformanceIssue, bool) {
	if msg.Type != TypePerfIssue {
		return session.PerformanceIssue{}, false
	}
	kind, err := session.ParseIssueKind(msg.Kind)
	if err != nil {
		return session.PerformanceIssue{}, false
	}
	severity, err := session.ParseIssueSeverity(msg.Severity)
	if err != nil {
		return session.PerformanceIssue{}, false
	}
	return session.PerformanceIssue{
		Kind:        kind,
		Severity:    severity,
		TimestampMs: msg.T,
		DurationMs:  msg.DurationMs,
		FpsAtTime:   msg.Fps,
	}, true
}

type verdict interface {
	ProtoVerdict()
}

// EncodeVerdict renders a verdict payload.
func EncodeVerdict(msg verdict) ([]byte, error) {
	switch payload := msg.(type) {
	case VerdictV1:
		return EncodeVerdictV1(payload)
	case *VerdictV1:
		if payload == nil {
			return json.Marshal(payload)
		}
		return EncodeVerdictV1(*payload)
	default:
		return json.Marshal(msg)
	}
}

// VerdictV1 captures the version 1 verdict payload layout.
type VerdictV1 struct {
	Ver                 int                   `json:"ver"`
	Type                string                `json:"type"`
	VerdictID           string                `json:"verdictId"`
	SessionID           string                `json:"sessionId"`
	Valid               bool                  `json:"valid"`
	Reason              string                `json:"reason,omitempty"`
	Confidence          float64               `json:"confidence"`
	PerformanceAdjusted bool                  `json:"performanceAdjusted"`
	Adjustment          *anticheat.Adjustment `json:"adjustment,omitempty"`
}

// ProtoVerdict tags the struct as a websocket verdict payload.
func (VerdictV1) ProtoVerdict() {}

// EncodeVerdictV1 renders a versioned verdict payload.
func EncodeVerdictV1(msg VerdictV1) ([]byte, error) {
	if msg.Type == "" {
		msg.Type = TypeVerdict
	}
	msg.Ver = Version
	return json.Marshal(msg)
}

// Ack confirms a processed frame back to the client.
type Ack struct {
	Seq   uint64
	Frame string
}

// EncodeAck renders a frame acknowledgement payload.
func EncodeAck(msg Ack) ([]byte, error) {
	frame := struct {
		Ver   int    `json:"ver"`
		Type  string `json:"type"`
		Seq   uint64 `json:"seq,omitempty"`
		Frame string `json:"frame"`
	}{
		Ver:   Version,
		Type:  typeAck,
		Frame: msg.Frame,
	}
	if msg.Seq > 0 {
		frame.Seq = msg.Seq
	}
	return json.Marshal(frame)
}

// Reject notifies the client that a frame was refused.
type Reject struct {
	Reason string
	Retry  bool
}

// EncodeReject renders a frame rejection payload.
func EncodeReject(msg Reject) ([]byte, error) {
	frame := struct {
		Ver    int    `json:"ver"`
		Type   string `json:"type"`
		Reason string `json:"reason"`
		Retry  bool   `json:"retry,omitempty"`
	}{
		Ver:    Version,
		Type:   typeReject,
		Reason: msg.Reason,
	}
	if msg.Retry {
		frame.Retry = true
	}
	return json.Marshal(frame)
}

// Heartbeat echoes timing metadata back to the client.
type Heartbeat struct {
	ServerTime int64
	ClientTime int64
	RTTMillis  int64
}

// EncodeHeartbeat renders a heartbeat acknowledgement payload.
func EncodeHeartbeat(msg Heartbeat) ([]byte, error) {
	frame := struct {
		Ver        int    `json:"ver"`
		Type       string `json:"type"`
		ServerTime int64  `json:"serverTime"`
		ClientTime int64  `json:"clientTime"`
		RTTMillis  int64  `json:"rtt"`
	}{
		Ver:        Version,
		Type:       typeHeartbeat,
		ServerTime: msg.ServerTime,
		ClientTime: msg.ClientTime,
		RTTMillis:  msg.RTTMillis,
	}
	return json.Marshal(frame)
}
