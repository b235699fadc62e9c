package telemetry

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// Counters accumulates the intake and verdict totals served by the
// diagnostics endpoint. All fields are atomics; Snapshot reads are
// tear-free per field, not across fields.
type Counters struct {
	submissionsTotal         atomic.Uint64
	acceptedTotal            atomic.Uint64
	rejectedTotal            atomic.Uint64
	adjustedTotal            atomic.Uint64
	speedRejects             atomic.Uint64
	dynamicSpeedRejects      atomic.Uint64
	stutterSpeedRejects      atomic.Uint64
	proximityRejects         atomic.Uint64
	dynamicProximityRejects  atomic.Uint64
	lowConfidenceRejects     atomic.Uint64
	throttledTotal           atomic.Uint64
	duplicateTotal           atomic.Uint64
	malformedTotal           atomic.Uint64
	journalDropsTotal        atomic.Uint64
	liveSockets              atomic.Int64
	lastValidateLatencyMicro atomic.Int64
	debug                    bool
}

type Snapshot struct {
	SubmissionsTotal        uint64 `json:"submissionsTotal"`
	AcceptedTotal           uint64 `json:"acceptedTotal"`
	RejectedTotal           uint64 `json:"rejectedTotal"`
	AdjustedTotal           uint64 `json:"adjustedTotal"`
	SpeedRejects            uint64 `json:"speedRejects"`
	DynamicSpeedRejects     uint64 `json:"dynamicSpeedRejects"`
	StutterSpeedRejects     uint64 `json:"stutterSpeedRejects"`
	ProximityRejects        uint64 `json:"proximityRejects"`
	DynamicProximityRejects uint64 `json:"dynamicProximityRejects"`
	LowConfidenceRejects    uint64 `json:"lowConfidenceRejects"`
	ThrottledTotal          uint64 `json:"throttledTotal"`
	DuplicateTotal          uint64 `json:"duplicateTotal"`
	MalformedTotal          uint64 `json:"malformedTotal"`
	JournalDropsTotal       uint64 `json:"journalDropsTotal"`
	LiveSockets             int64  `json:"liveSockets"`
	LastValidateLatencyUs   int64  `json:"lastValidateLatencyUs"`
}

func NewCounters() *Counters {
	c := &Counters{}
	if os.Getenv("DEBUG_TELEMETRY") == "1" {
		c.debug = true
	}
	return c
}

// RecordVerdict tallies one completed validation. The reason string matches
// the engine's rejection reasons and is empty for accepted sessions.
func (c *Counters) RecordVerdict(valid bool, reason string, adjusted bool, latency time.Duration) {
	if c == nil {
		return
	}
	c.submissionsTotal.Add(1)
	if adjusted {
		c.adjustedTotal.Add(1)
	}
	micros := latency.Microseconds()
	if micros < 0 {
		micros = 0
	}
	c.lastValidateLatencyMicro.Store(micros)

	if valid {
		c.acceptedTotal.Add(1)
	} else {
		c.rejectedTotal.Add(1)
		switch reason {
		case "SpeedExceeded":
			c.speedRejects.Add(1)
		case "DynamicSpeedExceeded":
			c.dynamicSpeedRejects.Add(1)
		case "SpeedExceededDespiteStutter":
			c.stutterSpeedRejects.Add(1)
		case "ProximityExceeded":
			c.proximityRejects.Add(1)
		case "DynamicProximityExceeded":
			c.dynamicProximityRejects.Add(1)
		case "LowConfidence":
			c.lowConfidenceRejects.Add(1)
		}
	}

	if c.debug {
		fmt.Printf("[telemetry] verdict valid=%t reason=%s adjusted=%t latency=%dus total=%d\n",
			valid, reason, adjusted, micros, c.submissionsTotal.Load())
	}
}

func (c *Counters) IncrementThrottled() {
	if c == nil {
		return
	}
	c.throttledTotal.Add(1)
}

func (c *Counters) IncrementDuplicate() {
	if c == nil {
		return
	}
	c.duplicateTotal.Add(1)
}

func (c *Counters) IncrementMalformed() {
	if c == nil {
		return
	}
	c.malformedTotal.Add(1)
}

// RecordJournalDrop tallies an entry the verdict journal refused to keep.
// The metric name is carried only to the debug stream.
func (c *Counters) RecordJournalDrop(metric string) {
	if c == nil {
		return
	}
	c.journalDropsTotal.Add(1)
	if c.debug {
		fmt.Printf("[telemetry] journal drop metric=%s total=%d\n", metric, c.journalDropsTotal.Load())
	}
}

func (c *Counters) SocketOpened() {
	if c == nil {
		return
	}
	c.liveSockets.Add(1)
}

func (c *Counters) SocketClosed() {
	if c == nil {
		return
	}
	c.liveSockets.Add(-1)
}

func (c *Counters) DebugEnabled() bool {
	return c != nil && c.debug
}

func (c *Counters) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	return Snapshot{
		SubmissionsTotal:        c.submissionsTotal.Load(),
		AcceptedTotal:           c.acceptedTotal.Load(),
		RejectedTotal:           c.rejectedTotal.Load(),
		AdjustedTotal:           c.adjustedTotal.Load(),
		SpeedRejects:            c.speedRejects.Load(),
		DynamicSpeedRejects:     c.dynamicSpeedRejects.Load(),
		StutterSpeedRejects:     c.stutterSpeedRejects.Load(),
		ProximityRejects:        c.proximityRejects.Load(),
		DynamicProximityRejects: c.dynamicProximityRejects.Load(),
		LowConfidenceRejects:    c.lowConfidenceRejects.Load(),
		ThrottledTotal:          c.throttledTotal.Load(),
		DuplicateTotal:          c.duplicateTotal.Load(),
		MalformedTotal:          c.malformedTotal.Load(),
		JournalDropsTotal:       c.journalDropsTotal.Load(),
		LiveSockets:             c.liveSockets.Load(),
		LastValidateLatencyUs:   c.lastValidateLatencyMicro.Load(),
	}
}
