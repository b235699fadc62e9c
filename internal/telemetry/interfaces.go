package telemetry

import (
	"log"
	"time"
)

// Logger exposes the logging capabilities required by server components.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts functions into the Logger interface.
type LoggerFunc func(format string, args ...any)

// Printf implements Logger for LoggerFunc.
func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a standard library logger to the Logger interface.
func WrapLogger(logger *log.Logger) Logger {
	return &loggerAdapter{logger: logger}
}

type loggerAdapter struct {
	logger *log.Logger
}

func (l *loggerAdapter) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

// StandardLogger exposes the wrapped standard library logger, when present.
func (l *loggerAdapter) StandardLogger() *log.Logger {
	if l == nil {
		return nil
	}
	return l.logger
}

// Metrics exposes the counter methods server components record against.
// *Counters satisfies it; NopMetrics stands in where accounting is unwanted.
type Metrics interface {
	RecordVerdict(valid bool, reason string, adjusted bool, latency time.Duration)
	IncrementThrottled()
	IncrementDuplicate()
	IncrementMalformed()
	SocketOpened()
	SocketClosed()
}

type nopMetrics struct{}

func (nopMetrics) RecordVerdict(bool, string, bool, time.Duration) {}
func (nopMetrics) IncrementThrottled()                             {}
func (nopMetrics) IncrementDuplicate()                             {}
func (nopMetrics) IncrementMalformed()                             {}
func (nopMetrics) SocketOpened()                                   {}
func (nopMetrics) SocketClosed()                                   {}

func NopMetrics() Metrics {
	return nopMetrics{}
}
