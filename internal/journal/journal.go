package journal

import (
	"sync"
	"time"
)

// Telemetry captures the metrics adapter used by the journal to report
// records it refused to store.
type Telemetry interface {
	RecordJournalDrop(metric string)
}

const (
	metricJournalMissingID        = "journal_missing_id"
	metricJournalDuplicateVerdict = "journal_duplicate_verdict"
)

// Entry is one recorded verdict.
type Entry struct {
	Sequence            uint64    `json:"sequence"`
	VerdictID           string    `json:"verdictId"`
	SessionID           string    `json:"sessionId"`
	Valid               bool      `json:"valid"`
	Reason              string    `json:"reason,omitempty"`
	Confidence          float64   `json:"confidence"`
	PerformanceAdjusted bool      `json:"performanceAdjusted"`
	RecordedAt          time.Time `json:"recordedAt"`
}

// Eviction describes an entry removed while enforcing retention limits.
type Eviction struct {
	Sequence  uint64
	VerdictID string
	Reason    string
}

// RecordResult reports the retention window after a record attempt.
type RecordResult struct {
	Size           int
	OldestSequence uint64
	NewestSequence uint64
	Evicted        []Eviction
}

// Journal keeps a bounded, age-pruned buffer of recent verdicts for the
// diagnostics endpoint, and feeds every verdict to the rejection alert
// policy. Entries are held oldest first.
type Journal struct {
	mu         sync.RWMutex
	entries    []Entry
	maxEntries int
	maxAge     time.Duration
	nextSeq    uint64
	telemetry  Telemetry
	alert      *Policy
}

// New constructs a journal with storage for the configured number of entries
// and retention window. A zero capacity disables retention entirely.
func New(capacity int, maxAge time.Duration) Journal {
	if capacity < 0 {
		capacity = 0
	}
	if maxAge < 0 {
		maxAge = 0
	}
	return Journal{
		entries:    make([]Entry, 0, capacity),
		maxEntries: capacity,
		maxAge:     maxAge,
		alert:      NewPolicy(),
	}
}

// Record stores a verdict, enforcing retention limits by count and age. The
// alert policy sees every well-formed verdict even when retention is off.
func (j *Journal) Record(entry Entry) RecordResult {
	j.mu.Lock()
	defer j.mu.Unlock()

	if entry.VerdictID == "" || entry.SessionID == "" {
		j.recordDropLocked(metricJournalMissingID)
		return j.windowResultLocked(nil)
	}

	for i := range j.entries {
		if j.entries[i].VerdictID == entry.VerdictID {
			j.recordDropLocked(metricJournalDuplicateVerdict)
			return j.windowResultLocked(nil)
		}
	}

	if j.alert != nil {
		j.alert.NoteVerdict(entry.Valid, entry.Reason, entry.SessionID)
	}

	if j.maxEntries == 0 {
		j.entries = j.entries[:0]
		return RecordResult{}
	}

	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}
	j.nextSeq++
	entry.Sequence = j.nextSeq
	j.entries = append(j.entries, entry)

	evicted := make([]Eviction, 0)

	if j.maxAge > 0 {
		cutoff := entry.RecordedAt.Add(-j.maxAge)
		idx := 0
		for idx < len(j.entries) {
			if !j.entries[idx].RecordedAt.Before(cutoff) {
				break
			}
			evicted = append(evicted, Eviction{
				Sequence:  j.entries[idx].Sequence,
				VerdictID: j.entries[idx].VerdictID,
				Reason:    "expired",
			})
			idx++
		}
		if idx > 0 {
			copy(j.entries, j.entries[idx:])
			j.entries = j.entries[:len(j.entries)-idx]
		}
	}

	if len(j.entries) > j.maxEntries {
		overflow := len(j.entries) - j.maxEntries
		for i := 0; i < overflow; i++ {
			evicted = append(evicted, Eviction{
				Sequence:  j.entries[i].Sequence,
				VerdictID: j.entries[i].VerdictID,
				Reason:    "count",
			})
		}
		copy(j.entries, j.entries[overflow:])
		j.entries = j.entries[:len(j.entries)-overflow]
	}

	return j.windowResultLocked(evicted)
}

func (j *Journal) windowResultLocked(evicted []Eviction) RecordResult {
	result := RecordResult{Size: len(j.entries), Evicted: evicted}
	if len(j.entries) > 0 {
		result.OldestSequence = j.entries[0].Sequence
		result.NewestSequence = j.entries[len(j.entries)-1].Sequence
	}
	return result
}

// Entries exposes the current buffer contents in chronological order.
// Callers receive a copy to avoid holding references into the buffer.
func (j *Journal) Entries() []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if len(j.entries) == 0 {
		return nil
	}
	entries := make([]Entry, len(j.entries))
	copy(entries, j.entries)
	return entries
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(limit int) []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if limit <= 0 || len(j.entries) == 0 {
		return nil
	}
	if limit > len(j.entries) {
		limit = len(j.entries)
	}
	entries := make([]Entry, 0, limit)
	for i := len(j.entries) - 1; i >= len(j.entries)-limit; i-- {
		entries = append(entries, j.entries[i])
	}
	return entries
}

// BySession returns the newest retained verdict for the session.
func (j *Journal) BySession(sessionID string) (Entry, bool) {
	if sessionID == "" {
		return Entry{}, false
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	for i := len(j.entries) - 1; i >= 0; i-- {
		if j.entries[i].SessionID == sessionID {
			return j.entries[i], true
		}
	}
	return Entry{}, false
}

// Window reports the current retention window.
func (j *Journal) Window() (size int, oldest, newest uint64) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	size = len(j.entries)
	if size == 0 {
		return size, 0, 0
	}
	oldest = j.entries[0].Sequence
	newest = j.entries[size-1].Sequence
	return size, oldest, newest
}

// ConsumeAlert returns the pending rejection alert, if any, and resets it.
func (j *Journal) ConsumeAlert() (AlertSignal, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.alert == nil {
		return AlertSignal{}, false
	}
	return j.alert.Consume()
}

func (j *Journal) recordDropLocked(metric string) {
	if j.telemetry == nil || metric == "" {
		return
	}
	j.telemetry.RecordJournalDrop(metric)
}

func (j *Journal) AttachTelemetry(t Telemetry) {
	j.mu.Lock()
	j.telemetry = t
	j.mu.Unlock()
}
