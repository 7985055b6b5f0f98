// Package logging provides structured audit logging for approval actions.
// It defines a Logger interface and implementations for JSON output,
// CloudWatch Logs forwarding, fan-out and no-op logging.
package logging

import (
	"encoding/json"
	"io"
	"sync"
)

// Logger records approval workflow events. Implementations never fail the
// caller: a write that cannot be delivered is dropped or reported to stderr.
type Logger interface {
	// LogApproval logs a successful approve or reject.
	LogApproval(entry ApprovalLogEntry)

	// LogFailure logs an action that was refused or could not be persisted.
	LogFailure(entry FailureLogEntry)
}

// JSONLogger implements Logger with JSON Lines output.
// Each entry is written as a single line of JSON suitable for log aggregation.
type JSONLogger struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewJSONLogger creates a new JSONLogger that writes to the given writer.
func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{writer: w}
}

// LogApproval writes the approval entry as a single line of JSON.
func (l *JSONLogger) LogApproval(entry ApprovalLogEntry) {
	l.writeLine(entry)
}

// LogFailure writes the failure entry as a single line of JSON.
func (l *JSONLogger) LogFailure(entry FailureLogEntry) {
	l.writeLine(entry)
}

func (l *JSONLogger) writeLine(entry any) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer.Write(append(data, '\n'))
}

// NopLogger implements Logger but discards all entries.
// Useful for testing or when logging is disabled.
type NopLogger struct{}

// NewNopLogger creates a new NopLogger that discards all entries.
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

// LogApproval discards the approval entry.
func (l *NopLogger) LogApproval(entry ApprovalLogEntry) {}

// LogFailure discards the failure entry.
func (l *NopLogger) LogFailure(entry FailureLogEntry) {}

// MultiLogger forwards every entry to each of its loggers in order.
type MultiLogger []Logger

// NewMultiLogger drops nil loggers and returns the fan-out.
func NewMultiLogger(loggers ...Logger) MultiLogger {
	out := make(MultiLogger, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

// LogApproval implements Logger.
func (m MultiLogger) LogApproval(entry ApprovalLogEntry) {
	for _, l := range m {
		l.LogApproval(entry)
	}
}

// LogFailure implements Logger.
func (m MultiLogger) LogFailure(entry FailureLogEntry) {
	for _, l := range m {
		l.LogFailure(entry)
	}
}
