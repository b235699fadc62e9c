package proto

import (
	"encoding/json"
	"strings"
	"testing"

	"drop-and-dodge/server/internal/anticheat"
	"drop-and-dodge/server/session"
)

func TestDecodeClientMessageDefaultsVersion(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"move","t":120,"x":204.5}`))
	if err != nil {
		t.Fatalf("decode returned error: %v", err)
	}
	if msg.Ver != Version {
		t.Fatalf("expected version %d, got %d", Version, msg.Ver)
	}
	if msg.Type != TypeMove || msg.T != 120 || msg.X != 204.5 {
		t.Fatalf("unexpected decoded message: %+v", msg)
	}
}

func TestDecodeClientMessageRejectsUnknownVersion(t *testing.T) {
	_, err := DecodeClientMessage([]byte(`{"ver":99,"type":"move"}`))
	if err == nil {
		t.Fatalf("expected version error")
	}
	if !strings.Contains(err.Error(), "unsupported client protocol version 99") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestDecodeClientMessageRejectsMalformedPayload(t *testing.T) {
	if _, err := DecodeClientMessage([]byte(`{"type":`)); err == nil {
		t.Fatalf("expected decode error for truncated payload")
	}
}

func TestDecodeClientMessageSessionEndContext(t *testing.T) {
	payload := []byte(`{
		"type": "session_end",
		"endedAt": 61000,
		"context": {
			"issues": [{"kind":"stutter","severity":"high","timestampMs":12000,"durationMs":250,"fpsAtTime":18}],
			"averageFps": 42.5,
			"memoryPressureLevel": 2,
			"performanceScore": 68,
			"sessionDurationMs": 60000,
			"stutterTimestamps": [12000]
		}
	}`)
	msg, err := DecodeClientMessage(payload)
	if err != nil {
		t.Fatalf("decode returned error: %v", err)
	}
	end, ok := EndFromMessage(msg)
	if !ok {
		t.Fatalf("expected session_end mapping")
	}
	if end.EndedAt != 61000 {
		t.Fatalf("expected endedAt 61000, got %d", end.EndedAt)
	}
	if end.Context == nil {
		t.Fatalf("expected decoded performance context")
	}
	if end.Context.AverageFps != 42.5 || end.Context.PerformanceScore != 68 {
		t.Fatalf("unexpected context: %+v", end.Context)
	}
	if len(end.Context.Issues) != 1 {
		t.Fatalf("expected one issue, got %d", len(end.Context.Issues))
	}
	issue := end.Context.Issues[0]
	if issue.Kind != session.IssueStutter || issue.Severity != session.SeverityHigh {
		t.Fatalf("unexpected issue decode: %+v", issue)
	}
}

func TestStartFromMessage(t *testing.T) {
	cases := []struct {
		name string
		msg  ClientMessage
		ok   bool
	}{
		{
			name: "valid opener",
			msg: ClientMessage{
				Type:         TypeSessionStart,
				SessionID:    "sess-1",
				CanvasWidth:  800,
				CanvasHeight: 600,
				StartedAt:    1000,
			},
			ok: true,
		},
		{name: "missing session id", msg: ClientMessage{Type: TypeSessionStart}, ok: false},
		{name: "wrong type", msg: ClientMessage{Type: TypeMove, SessionID: "sess-1"}, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, ok := StartFromMessage(tc.msg)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if !ok {
				return
			}
			if start.SessionID != "sess-1" || start.CanvasWidth != 800 || start.CanvasHeight != 600 || start.StartedAt != 1000 {
				t.Fatalf("unexpected opener: %+v", start)
			}
		})
	}
}

func TestMoveFromMessage(t *testing.T) {
	move, ok := MoveFromMessage(ClientMessage{Type: TypeMove, T: 1500, X: 412})
	if !ok {
		t.Fatalf("expected move mapping")
	}
	if move.TimestampMs != 1500 || move.X != 412 {
		t.Fatalf("unexpected move: %+v", move)
	}
	if _, ok := MoveFromMessage(ClientMessage{Type: TypeHit, T: 1500, X: 412}); ok {
		t.Fatalf("expected non-move message to be skipped")
	}
}

func TestHitFromMessage(t *testing.T) {
	hit, ok := HitFromMessage(ClientMessage{Type: TypeHit, T: 2200, X: 418, Y: 560})
	if !ok {
		t.Fatalf("expected hit mapping")
	}
	if hit.TimestampMs != 2200 || hit.X != 418 || hit.Y != 560 {
		t.Fatalf("unexpected hit: %+v", hit)
	}
	if _, ok := HitFromMessage(ClientMessage{Type: TypeMove}); ok {
		t.Fatalf("expected non-hit message to be skipped")
	}
}

func TestItemFromMessage(t *testing.T) {
	cases := []struct {
		name string
		msg  ClientMessage
		ok   bool
	}{
		{
			name: "valid pickup",
			msg:  ClientMessage{Type: TypeItem, ItemID: "item-9", Kind: "POINTS", T: 1500, X: 405, Y: 540},
			ok:   true,
		},
		{name: "unknown kind", msg: ClientMessage{Type: TypeItem, ItemID: "item-9", Kind: "GEM"}, ok: false},
		{name: "missing item id", msg: ClientMessage{Type: TypeItem, Kind: "POINTS"}, ok: false},
		{name: "wrong type", msg: ClientMessage{Type: TypeMove, ItemID: "item-9", Kind: "POINTS"}, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item, ok := ItemFromMessage(tc.msg)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if !ok {
				return
			}
			if item.ItemID != "item-9" || item.Kind != session.ItemKindPoints {
				t.Fatalf("unexpected item: %+v", item)
			}
			if item.TimestampMs != 1500 || item.X != 405 || item.Y != 540 {
				t.Fatalf("unexpected item coordinates: %+v", item)
			}
		})
	}
}

func TestIssueFromMessage(t *testing.T) {
	cases := []struct {
		name string
		msg  ClientMessage
		ok   bool
	}{
		{
			name: "valid stutter",
			msg:  ClientMessage{Type: TypePerfIssue, Kind: "stutter", Severity: "high", T: 12000, DurationMs: 250, Fps: 18},
			ok:   true,
		},
		{name: "unknown kind", msg: ClientMessage{Type: TypePerfIssue, Kind: "thermal", Severity: "high"}, ok: false},
		{name: "unknown severity", msg: ClientMessage{Type: TypePerfIssue, Kind: "stutter", Severity: "fatal"}, ok: false},
		{name: "wrong type", msg: ClientMessage{Type: TypeMove, Kind: "stutter", Severity: "high"}, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			issue, ok := IssueFromMessage(tc.msg)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if !ok {
				return
			}
			if issue.Kind != session.IssueStutter || issue.Severity != session.SeverityHigh {
				t.Fatalf("unexpected issue: %+v", issue)
			}
			if issue.TimestampMs != 12000 || issue.DurationMs != 250 || issue.FpsAtTime != 18 {
				t.Fatalf("unexpected issue timing: %+v", issue)
			}
		})
	}
}

func TestEncodeVerdictV1(t *testing.T) {
	adjustment := anticheat.Adjustment{
		SpeedToleranceMultiplier:     1.25,
		ProximityToleranceMultiplier: 1.3,
		TimeWindowExtensionMs:        100,
		StutterToleranceMs:           150,
	}
	payload, err := EncodeVerdictV1(VerdictV1{
		VerdictID:           "verdict-1",
		SessionID:           "sess-1",
		Valid:               true,
		Confidence:          0.84,
		PerformanceAdjusted: true,
		Adjustment:          &adjustment,
	})
	if err != nil {
		t.Fatalf("encode returned error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded["ver"] != float64(Version) {
		t.Fatalf("expected ver %d, got %v", Version, decoded["ver"])
	}
	if decoded["type"] != TypeVerdict {
		t.Fatalf("expected type %q, got %v", TypeVerdict, decoded["type"])
	}
	if decoded["verdictId"] != "verdict-1" || decoded["sessionId"] != "sess-1" {
		t.Fatalf("unexpected identity fields: %v", decoded)
	}
	if decoded["valid"] != true || decoded["performanceAdjusted"] != true {
		t.Fatalf("unexpected verdict flags: %v", decoded)
	}
	if _, present := decoded["reason"]; present {
		t.Fatalf("expected reason omitted for valid verdict")
	}
	nested, ok := decoded["adjustment"].(map[string]any)
	if !ok {
		t.Fatalf("expected adjustment object, got %v", decoded["adjustment"])
	}
	if nested["speedToleranceMultiplier"] != 1.25 || nested["stutterToleranceMs"] != float64(150) {
		t.Fatalf("unexpected adjustment payload: %v", nested)
	}
}

func TestEncodeVerdictV1OmitsAdjustmentWhenAbsent(t *testing.T) {
	payload, err := EncodeVerdictV1(VerdictV1{
		VerdictID:  "verdict-2",
		SessionID:  "sess-2",
		Valid:      false,
		Reason:     "SpeedExceeded",
		Confidence: 1,
	})
	if err != nil {
		t.Fatalf("encode returned error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded["reason"] != "SpeedExceeded" {
		t.Fatalf("expected reason in payload, got %v", decoded)
	}
	if _, present := decoded["adjustment"]; present {
		t.Fatalf("expected adjustment omitted without performance context")
	}
}

func TestEncodeVerdictDispatch(t *testing.T) {
	byValue, err := EncodeVerdict(VerdictV1{VerdictID: "verdict-3", SessionID: "sess-3", Valid: true, Confidence: 1})
	if err != nil {
		t.Fatalf("encode by value returned error: %v", err)
	}
	byPointer, err := EncodeVerdict(&VerdictV1{VerdictID: "verdict-3", SessionID: "sess-3", Valid: true, Confidence: 1})
	if err != nil {
		t.Fatalf("encode by pointer returned error: %v", err)
	}
	if string(byValue) != string(byPointer) {
		t.Fatalf("expected identical payloads, got %s vs %s", byValue, byPointer)
	}
}

func TestEncodeAck(t *testing.T) {
	payload, err := EncodeAck(Ack{Seq: 7, Frame: TypeSessionStart})
	if err != nil {
		t.Fatalf("encode returned error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded["type"] != TypeAck || decoded["seq"] != float64(7) || decoded["frame"] != TypeSessionStart {
		t.Fatalf("unexpected ack payload: %v", decoded)
	}
}

func TestEncodeReject(t *testing.T) {
	payload, err := EncodeReject(Reject{Reason: "throttled", Retry: true})
	if err != nil {
		t.Fatalf("encode returned error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded["type"] != TypeReject || decoded["reason"] != "throttled" || decoded["retry"] != true {
		t.Fatalf("unexpected reject payload: %v", decoded)
	}
}

func TestEncodeHeartbeat(t *testing.T) {
	payload, err := EncodeHeartbeat(Heartbeat{ServerTime: 5000, ClientTime: 4980, RTTMillis: 20})
	if err != nil {
		t.Fatalf("encode returned error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded["type"] != "heartbeat" {
		t.Fatalf("expected heartbeat type, got %v", decoded["type"])
	}
	if decoded["serverTime"] != float64(5000) || decoded["clientTime"] != float64(4980) || decoded["rtt"] != float64(20) {
		t.Fatalf("unexpected heartbeat payload: %v", decoded)
	}
}
