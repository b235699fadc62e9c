package telemetry

import (
	"sync"
	"testing"
	"time"
)

func TestCountersSnapshot(t *testing.T) {
	counters := NewCounters()

	counters.RecordVerdict(true, "", false, 120*time.Microsecond)
	counters.RecordVerdict(true, "", true, 80*time.Microsecond)
	counters.RecordVerdict(false, "SpeedExceeded", false, 95*time.Microsecond)
	counters.RecordVerdict(false, "DynamicProximityExceeded", true, 110*time.Microsecond)
	counters.RecordVerdict(false, "LowConfidence", true, 60*time.Microsecond)
	counters.IncrementThrottled()
	counters.IncrementDuplicate()
	counters.IncrementMalformed()
	counters.SocketOpened()
	counters.SocketOpened()
	counters.SocketClosed()

	snapshot := counters.Snapshot()
	if snapshot.SubmissionsTotal != 5 {
		t.Fatalf("expected 5 submissions, got %d", snapshot.SubmissionsTotal)
	}
	if snapshot.AcceptedTotal != 2 || snapshot.RejectedTotal != 3 {
		t.Fatalf("unexpected verdict split: %d accepted, %d rejected", snapshot.AcceptedTotal, snapshot.RejectedTotal)
	}
	if snapshot.AdjustedTotal != 3 {
		t.Fatalf("expected 3 adjusted verdicts, got %d", snapshot.AdjustedTotal)
	}
	if snapshot.SpeedRejects != 1 || snapshot.DynamicProximityRejects != 1 || snapshot.LowConfidenceRejects != 1 {
		t.Fatalf("unexpected reject breakdown: %+v", snapshot)
	}
	if snapshot.ThrottledTotal != 1 || snapshot.DuplicateTotal != 1 || snapshot.MalformedTotal != 1 {
		t.Fatalf("unexpected intake breakdown: %+v", snapshot)
	}
	if snapshot.LiveSockets != 1 {
		t.Fatalf("expected 1 live socket, got %d", snapshot.LiveSockets)
	}
	if snapshot.LastValidateLatencyUs != 60 {
		t.Fatalf("expected last latency 60us, got %d", snapshot.LastValidateLatencyUs)
	}
}

func TestRecordVerdictReasonBreakdown(t *testing.T) {
	cases := []struct {
		reason string
		field  func(Snapshot) uint64
	}{
		{reason: "SpeedExceeded", field: func(s Snapshot) uint64 { return s.SpeedRejects }},
		{reason: "DynamicSpeedExceeded", field: func(s Snapshot) uint64 { return s.DynamicSpeedRejects }},
		{reason: "SpeedExceededDespiteStutter", field: func(s Snapshot) uint64 { return s.StutterSpeedRejects }},
		{reason: "ProximityExceeded", field: func(s Snapshot) uint64 { return s.ProximityRejects }},
		{reason: "DynamicProximityExceeded", field: func(s Snapshot) uint64 { return s.DynamicProximityRejects }},
		{reason: "LowConfidence", field: func(s Snapshot) uint64 { return s.LowConfidenceRejects }},
	}

	for _, tc := range cases {
		t.Run(tc.reason, func(t *testing.T) {
			counters := NewCounters()
			counters.RecordVerdict(false, tc.reason, false, time.Microsecond)
			snapshot := counters.Snapshot()
			if snapshot.RejectedTotal != 1 {
				t.Fatalf("expected one rejection, got %d", snapshot.RejectedTotal)
			}
			if got := tc.field(snapshot); got != 1 {
				t.Fatalf("expected reason counter 1 for %q, got %d", tc.reason, got)
			}
		})
	}
}

func TestRecordVerdictUnknownReasonCountsRejectionOnly(t *testing.T) {
	counters := NewCounters()
	counters.RecordVerdict(false, "SomethingNew", false, time.Microsecond)

	snapshot := counters.Snapshot()
	if snapshot.RejectedTotal != 1 {
		t.Fatalf("expected one rejection, got %d", snapshot.RejectedTotal)
	}
	breakdown := snapshot.SpeedRejects + snapshot.DynamicSpeedRejects + snapshot.StutterSpeedRejects +
		snapshot.ProximityRejects + snapshot.DynamicProximityRejects + snapshot.LowConfidenceRejects
	if breakdown != 0 {
		t.Fatalf("expected no per-reason tally for an unknown reason, got %+v", snapshot)
	}
}

func TestRecordVerdictClampsNegativeLatency(t *testing.T) {
	counters := NewCounters()
	counters.RecordVerdict(true, "", false, -5*time.Millisecond)
	if got := counters.Snapshot().LastValidateLatencyUs; got != 0 {
		t.Fatalf("expected negative latency clamped to zero, got %d", got)
	}
}

func TestRecordJournalDrop(t *testing.T) {
	counters := NewCounters()
	counters.RecordJournalDrop("journal.entries_dropped")
	counters.RecordJournalDrop("journal.entries_dropped")
	if got := counters.Snapshot().JournalDropsTotal; got != 2 {
		t.Fatalf("expected 2 journal drops, got %d", got)
	}
}

func TestNilCountersAreSafe(t *testing.T) {
	var counters *Counters
	counters.RecordVerdict(true, "", false, 0)
	counters.IncrementThrottled()
	counters.IncrementDuplicate()
	counters.IncrementMalformed()
	counters.RecordJournalDrop("journal.entries_dropped")
	counters.SocketOpened()
	counters.SocketClosed()
	if snapshot := counters.Snapshot(); snapshot.SubmissionsTotal != 0 {
		t.Fatalf("expected zero snapshot from nil counters, got %+v", snapshot)
	}
}

func TestCountersConcurrentRecorders(t *testing.T) {
	counters := NewCounters()

	const workers = 8
	const perWorker = 500

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if i%2 == 0 {
					counters.RecordVerdict(true, "", false, time.Microsecond)
				} else {
					counters.RecordVerdict(false, "SpeedExceeded", false, time.Microsecond)
				}
				counters.SocketOpened()
				counters.SocketClosed()
			}
		}()
	}
	wg.Wait()

	snapshot := counters.Snapshot()
	if snapshot.SubmissionsTotal != workers*perWorker {
		t.Fatalf("expected %d submissions, got %d", workers*perWorker, snapshot.SubmissionsTotal)
	}
	if snapshot.AcceptedTotal != workers*perWorker/2 || snapshot.RejectedTotal != workers*perWorker/2 {
		t.Fatalf("unexpected split: %d accepted, %d rejected", snapshot.AcceptedTotal, snapshot.RejectedTotal)
	}
	if snapshot.SpeedRejects != workers*perWorker/2 {
		t.Fatalf("expected %d speed rejects, got %d", workers*perWorker/2, snapshot.SpeedRejects)
	}
	if snapshot.LiveSockets != 0 {
		t.Fatalf("expected sockets balanced at zero, got %d", snapshot.LiveSockets)
	}
}
