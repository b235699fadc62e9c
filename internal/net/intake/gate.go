package intake

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/google/uuid"
	"github.com/yasserelgammal/rate-limiter/limiter"
	"github.com/yasserelgammal/rate-limiter/store"
)

var (
	// ErrThrottled signals that a client key exhausted its submission budget.
	ErrThrottled = errors.New("intake: submission rate limit exceeded")
	// ErrDuplicateSession signals that a session id was already admitted.
	ErrDuplicateSession = errors.New("intake: session already submitted")
)

const defaultFalsePositiveRate = 0.01

// Config tunes the admission gate. A non-positive SubmitsPerSecond disables
// throttling; a zero ExpectedSessions disables replay detection.
type Config struct {
	SubmitsPerSecond  int64
	SubmitBurst       int64
	ExpectedSessions  uint
	FalsePositiveRate float64
}

// DefaultConfig returns the admission settings used by the server when no
// overrides are supplied.
func DefaultConfig() Config {
	return Config{
		SubmitsPerSecond:  10,
		SubmitBurst:       20,
		ExpectedSessions:  100000,
		FalsePositiveRate: defaultFalsePositiveRate,
	}
}

// Gate screens session submissions before they reach the validation engine.
// It throttles per client key and rejects session ids it has already seen.
type Gate struct {
	limiter      *limiter.TokenBucket
	limiterStore store.Store

	mu        sync.Mutex
	seen      *bloom.BloomFilter
	seenCount int
	expected  uint
	fpRate    float64
}

// NewGate builds a gate from the supplied config.
func NewGate(cfg Config) (*Gate, error) {
	gate := &Gate{}
	if cfg.SubmitsPerSecond > 0 {
		burst := cfg.SubmitBurst
		if burst <= 0 {
			burst = cfg.SubmitsPerSecond
		}
		gate.limiterStore = store.NewMemoryStore(time.Minute)
		bucket, err := limiter.NewTokenBucket(
			limiter.Config{
				Rate:     cfg.SubmitsPerSecond,
				Duration: time.Second,
				Burst:    burst,
			},
			gate.limiterStore,
		)
		if err != nil {
			return nil, fmt.Errorf("intake: build rate limiter: %w", err)
		}
		gate.limiter = bucket
	}
	if cfg.ExpectedSessions > 0 {
		fpRate := cfg.FalsePositiveRate
		if fpRate <= 0 || fpRate >= 1 {
			fpRate = defaultFalsePositiveRate
		}
		gate.expected = cfg.ExpectedSessions
		gate.fpRate = fpRate
		gate.seen = bloom.NewWithEstimates(cfg.ExpectedSessions, fpRate)
	}
	return gate, nil
}

// Admit screens one submission. It returns ErrThrottled when the client key
// is over budget, ErrDuplicateSession when the session id was seen before,
// and nil when the submission may proceed. Admitted session ids are marked
// as seen.
func (g *Gate) Admit(clientKey, sessionID string) error {
	if g == nil {
		return nil
	}
	if g.limiter != nil && clientKey != "" {
		if !g.limiter.Allow(clientKey) {
			return ErrThrottled
		}
	}
	if g.seen == nil || sessionID == "" {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen.Test([]byte(sessionID)) {
		return ErrDuplicateSession
	}
	g.seen.Add([]byte(sessionID))
	g.seenCount++
	// Rotation bounds filter memory. Sessions admitted before a rotation can
	// be admitted once more afterwards.
	if g.seenCount > int(g.expected) {
		g.seen = bloom.NewWithEstimates(g.expected, g.fpRate)
		g.seenCount = 0
	}
	return nil
}

// NewVerdictID mints a globally unique verdict identifier.
func NewVerdictID() string {
	return "verdict-" + uuid.New().String()
}
