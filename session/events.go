package session

import "sort"

// ItemKind identifies the pickup family a falling item belongs to.
type ItemKind string

const (
	ItemKindPoints ItemKind = "POINTS"
	ItemKindLife   ItemKind = "LIFE"
	ItemKindSlowmo ItemKind = "SLOWMO"
	ItemKindMulti  ItemKind = "MULTI"
)

// Valid reports whether the kind is one of the published pickup families.
func (k ItemKind) Valid() bool {
	switch k {
	case ItemKindPoints, ItemKindLife, ItemKindSlowmo, ItemKindMulti:
		return true
	}
	return false
}

// MoveEvent records one lateral position sample reported by the client.
// Clients batch and flush asynchronously, so a sequence is not guaranteed to
// arrive sorted by timestamp.
type MoveEvent struct {
	TimestampMs int64   `json:"timestampMs"`
	X           float64 `json:"x"`
}

// HitEvent records an obstacle collision. It is carried for score auditing
// and replay tooling; the validators do not consume it.
type HitEvent struct {
	TimestampMs int64   `json:"timestampMs"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

// ItemEvent records a claimed item pickup.
type ItemEvent struct {
	TimestampMs int64    `json:"timestampMs"`
	ItemID      string   `json:"itemId"`
	Kind        ItemKind `json:"kind"`
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
}

// EventEnvelope bundles every event stream reported for one session.
type EventEnvelope struct {
	Moves []MoveEvent `json:"moves"`
	Hits  []HitEvent  `json:"hits"`
	Items []ItemEvent `json:"items"`
}

// SortedMoves returns a copy of moves ordered by timestamp. The input slice
// is left untouched so callers can hand out shared envelopes safely.
func SortedMoves(moves []MoveEvent) []MoveEvent {
	if len(moves) < 2 {
		return append([]MoveEvent(nil), moves...)
	}
	sorted := append([]MoveEvent(nil), moves...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimestampMs < sorted[j].TimestampMs
	})
	return sorted
}
