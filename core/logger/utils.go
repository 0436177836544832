package logger

import (
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LogRecorder is a callback that stores events in an external datastore.
type LogRecorder func(sessionID string, event Event) error

// Logger captures interaction events so sessions can be audited later.
type Logger struct {
	Record LogRecorder
}

// NewJsonLinesLogRecorder creates a Logger that exports logs in newline
// delimited JSON object format.
func NewJsonLinesLogRecorder(w io.Writer) *Logger {
	zl := zerolog.New(zerolog.SyncWriter(w)).With().Timestamp().Logger()

	return &Logger{
		Record: func(sessionID string, event Event) error {
			e := zl.Log().Str(EventFieldName, event.EventName())
			if sessionID != "" {
				e = e.Str(SessionFieldName, sessionID)
			}
			e.EmbedObject(event).Send()
			return nil
		},
	}
}

// Discard returns a Logger that drops every event.
func Discard() *Logger {
	return &Logger{
		Record: func(string, Event) error { return nil },
	}
}

// NewSession creates a logger with attached session ID.
func (l *Logger) NewSession() *SessionLogger {
	return &SessionLogger{Logger: l, sessionID: uuid.NewString()}
}

// Sessionless creates a logger without a session ID.
func (l *Logger) Sessionless() *SessionLogger {
	return &SessionLogger{Logger: l, sessionID: ""}
}

// SessionLogger logs messages with a shared session ID.
type SessionLogger struct {
	*Logger
	sessionID string
}

// SessionID returns the ID attached to every event.
func (l *SessionLogger) SessionID() string {
	return l.sessionID
}

func (l *SessionLogger) Record(event Event) error {
	return l.Logger.Record(l.sessionID, event)
}
