package session

// SubmitSessionRequest is the end-of-session telemetry bundle a client sends
// when it wants a score persisted. It is built once by the caller and never
// mutated afterwards.
type SubmitSessionRequest struct {
	SessionID    string        `json:"sessionId" jsonschema:"title=Session ID,description=Client-issued identifier for the finished run.,minLength=1,required"`
	CanvasWidth  int           `json:"canvasWidth" jsonschema:"title=Canvas Width,description=Playfield width in CSS pixels at session start.,minimum=1,required"`
	CanvasHeight int           `json:"canvasHeight" jsonschema:"title=Canvas Height,description=Playfield height in CSS pixels at session start.,minimum=1,required"`
	StartedAt    int64         `json:"startedAt" jsonschema:"title=Started At,description=Session start as Unix epoch milliseconds.,required"`
	EndedAt      int64         `json:"endedAt" jsonschema:"title=Ended At,description=Session end as Unix epoch milliseconds.,required"`
	Events       EventEnvelope `json:"events" jsonschema:"title=Event Envelope,description=Every move and hit and item event recorded during the run.,required"`
}

// DurationMs returns the reported session length, clamped to zero for
// inconsistent clocks.
func (r SubmitSessionRequest) DurationMs() int64 {
	if r.EndedAt <= r.StartedAt {
		return 0
	}
	return r.EndedAt - r.StartedAt
}

// SubmitSessionDocument is the full body of a submission. The performance
// context is optional; clients without the monitor enabled omit it and the
// engine validates with neutral tolerances.
type SubmitSessionDocument struct {
	Request SubmitSessionRequest `json:"request" jsonschema:"title=Session Request,required"`
	Context *PerformanceContext  `json:"context,omitempty" jsonschema:"title=Performance Context,description=Summarized client-health report for the same run."`
}
