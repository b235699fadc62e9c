package journal

import (
	"fmt"
)

// AlertReason pairs a rejection reason with the session that triggered it.
type AlertReason struct {
	Reason    string
	SessionID string
}

// AlertSignal summarizes the rejection spike that crossed the threshold.
type AlertSignal struct {
	Rejected uint64
	Total    uint64
	Reasons  []AlertReason
}

// Policy watches the rejection rate across recorded verdicts and raises a
// pending alert once rejections cross the configured share of traffic.
type Policy struct {
	total    uint64
	rejected uint64
	pending  bool
	reasons  []AlertReason
}

const rejectionThresholdPerTenThousand = 2500
const alertMinimumSample = 50
const alertReasonLimit = 8

func NewPolicy() *Policy {
	return &Policy{reasons: make([]AlertReason, 0, alertReasonLimit)}
}

func (p *Policy) NoteVerdict(valid bool, reason, sessionID string) {
	if p == nil {
		return
	}
	if p.total == ^uint64(0) {
		p.total = p.total / 2
		p.rejected = p.rejected / 2
	}
	p.total++
	if valid {
		return
	}
	p.rejected++
	if len(p.reasons) < alertReasonLimit {
		p.reasons = append(p.reasons, AlertReason{Reason: reason, SessionID: sessionID})
	}
	p.evaluate()
}

func (p *Policy) evaluate() {
	if p == nil || p.pending || p.rejected == 0 {
		return
	}
	if p.total < alertMinimumSample {
		return
	}
	if p.rejected*10000 >= p.total*rejectionThresholdPerTenThousand {
		p.pending = true
	}
}

func (p *Policy) Consume() (AlertSignal, bool) {
	if p == nil || !p.pending {
		return AlertSignal{}, false
	}
	signal := AlertSignal{
		Rejected: p.rejected,
		Total:    p.total,
		Reasons:  append([]AlertReason(nil), p.reasons...),
	}
	p.pending = false
	p.total = 0
	p.rejected = 0
	if len(p.reasons) > 0 {
		p.reasons = p.reasons[:0]
	}
	return signal, true
}

func (s AlertSignal) Summary() string {
	if s.Rejected == 0 && s.Total == 0 {
		return ""
	}
	return fmt.Sprintf("rejected=%d total=%d reasons=%v", s.Rejected, s.Total, s.Reasons)
}
