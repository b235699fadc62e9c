package session

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// IssueKind is the closed set of client-health incidents the performance
// monitor reports. New kinds require a wire string, a schema entry, and a
// weighting rule in the validation engine, so the type is deliberately not a
// free string.
type IssueKind uint8

const (
	IssueStutter IssueKind = iota
	IssueLowFPS
	IssueMemoryPressure
)

const (
	issueKindStutterWire        = "stutter"
	issueKindLowFPSWire         = "low_fps"
	issueKindMemoryPressureWire = "memory_pressure"
)

// String returns the wire spelling of the kind.
func (k IssueKind) String() string {
	switch k {
	case IssueStutter:
		return issueKindStutterWire
	case IssueLowFPS:
		return issueKindLowFPSWire
	case IssueMemoryPressure:
		return issueKindMemoryPressureWire
	default:
		return fmt.Sprintf("issue_kind_%d", uint8(k))
	}
}

// ParseIssueKind maps a wire string onto an IssueKind.
func ParseIssueKind(raw string) (IssueKind, error) {
	switch raw {
	case issueKindStutterWire:
		return IssueStutter, nil
	case issueKindLowFPSWire:
		return IssueLowFPS, nil
	case issueKindMemoryPressureWire:
		return IssueMemoryPressure, nil
	default:
		return 0, fmt.Errorf("unknown issue kind %q", raw)
	}
}

// MarshalJSON encodes the kind as its wire string.
func (k IssueKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes the wire string form.
func (k *IssueKind) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseIssueKind(raw)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// JSONSchema publishes the closed kind set in the client contract.
func (IssueKind) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "string",
		Enum: []interface{}{issueKindStutterWire, issueKindLowFPSWire, issueKindMemoryPressureWire},
	}
}

// IssueSeverity grades how disruptive a reported incident was.
type IssueSeverity uint8

const (
	SeverityLow IssueSeverity = iota
	SeverityMedium
	SeverityHigh
)

const (
	severityLowWire    = "low"
	severityMediumWire = "medium"
	severityHighWire   = "high"
)

// String returns the wire spelling of the severity.
func (s IssueSeverity) String() string {
	switch s {
	case SeverityLow:
		return severityLowWire
	case SeverityMedium:
		return severityMediumWire
	case SeverityHigh:
		return severityHighWire
	default:
		return fmt.Sprintf("severity_%d", uint8(s))
	}
}

// ParseIssueSeverity maps a wire string onto an IssueSeverity.
func ParseIssueSeverity(raw string) (IssueSeverity, error) {
	switch raw {
	case severityLowWire:
		return SeverityLow, nil
	case severityMediumWire:
		return SeverityMedium, nil
	case severityHighWire:
		return SeverityHigh, nil
	default:
		return 0, fmt.Errorf("unknown issue severity %q", raw)
	}
}

// MarshalJSON encodes the severity as its wire string.
func (s IssueSeverity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes the wire string form.
func (s *IssueSeverity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseIssueSeverity(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// JSONSchema publishes the closed severity set in the client contract.
func (IssueSeverity) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "string",
		Enum: []interface{}{severityLowWire, severityMediumWire, severityHighWire},
	}
}

// PerformanceIssue is one client-health incident observed during a session.
type PerformanceIssue struct {
	Kind        IssueKind     `json:"kind"`
	Severity    IssueSeverity `json:"severity"`
	TimestampMs int64         `json:"timestampMs"`
	DurationMs  int64         `json:"durationMs"`
	FpsAtTime   float64       `json:"fpsAtTime"`
}

// PerformanceContext is the summarized health report the performance monitor
// aggregates from raw frame-time and memory samples. The validation engine
// only reads it.
type PerformanceContext struct {
	Issues              []PerformanceIssue `json:"issues"`
	AverageFps          float64            `json:"averageFps"`
	MemoryPressureLevel int                `json:"memoryPressureLevel"`
	PerformanceScore    int                `json:"performanceScore"`
	SessionDurationMs   int64              `json:"sessionDurationMs"`
	StutterTimestamps   []int64            `json:"stutterTimestamps"`
}
