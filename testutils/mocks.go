package testutils

import (
	"github.com/minsukim/autotrader/logger"
	"github.com/minsukim/autotrader/types"
)

// logEntry captures a single log invocation for inspection in tests.
type logEntry struct {
	level  string
	msg    string
	fields []logger.Field
}

// MockLogger implements the Logger interface but stores entries in-memory.
type MockLogger struct {
	entries []logEntry
}

func NewMockLogger() *MockLogger { return &MockLogger{} }

func (l *MockLogger) record(level, msg string, fields ...logger.Field) {
	copied := append([]logger.Field(nil), fields...)
	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: copied})
}

func (l *MockLogger) Info(msg string, fields ...logger.Field)  { l.record("info", msg, fields...) }
func (l *MockLogger) Warn(msg string, fields ...logger.Field)  { l.record("warn", msg, fields...) }
func (l *MockLogger) Error(msg string, fields ...logger.Field) { l.record("error", msg, fields...) }

// LastMessage returns the message of the most recent log entry.
func (l *MockLogger) LastMessage() string {
	if len(l.entries) == 0 {
		return ""
	}
	return l.entries[len(l.entries)-1].msg
}

// Notification is one captured notifier call.
type Notification struct {
	Msg     string
	IsError bool
}

// MockNotifier records every message instead of delivering it.
type MockNotifier struct {
	Sent []Notification
}

func NewMockNotifier() *MockNotifier { return &MockNotifier{} }

func (n *MockNotifier) Notify(msg string, isError bool) {
	n.Sent = append(n.Sent, Notification{Msg: msg, IsError: isError})
}

// MockJournal records trade events in-memory.
type MockJournal struct {
	Events []types.TradeEvent
}

func NewMockJournal() *MockJournal { return &MockJournal{} }

func (j *MockJournal) Record(ev types.TradeEvent) error {
	j.Events = append(j.Events, ev)
	return nil
}
