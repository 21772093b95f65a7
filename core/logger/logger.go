package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType names the kind of Event.
type EventType string

const (
	EventSessionStart   EventType = "session_start"
	EventCommand        EventType = "command"
	EventBuiltin        EventType = "builtin"
	EventUnknownCommand EventType = "unknown_command"
	EventJobStarted     EventType = "job_started"
	EventJobFinished    EventType = "job_finished"
	EventJobKilled      EventType = "job_killed"
)

// Event is a single logged interpreter action.
type Event struct {
	TimestampMicros int64     `json:"timestamp_micros"`
	SessionID       string    `json:"session_id,omitempty"`
	Type            EventType `json:"type"`
	Command         string    `json:"command,omitempty"`
	Args            []string  `json:"args,omitempty"`
	JobID           int       `json:"job_id,omitempty"`
	Pid             int       `json:"pid,omitempty"`
	Status          int       `json:"status"`
	Error           string    `json:"error,omitempty"`
}

// Recorder stores events.
type Recorder interface {
	Record(event Event) error
}

// LogRecorder is a callback that stores events in an external datastore.
type LogRecorder func(e *Event) error

// Logger captures interpreter events.
type Logger struct {
	Record LogRecorder
	now    func() time.Time
}

// NewJsonLinesLogRecorder creates a Logger that exports logs in newline
// delimited JSON object format. It's safe for concurrent use.
func NewJsonLinesLogRecorder(w io.Writer) *Logger {
	var mu sync.Mutex
	return &Logger{
		Record: func(e *Event) error {
			entry, err := json.Marshal(e)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			_, err = fmt.Fprintln(w, string(entry))
			return err
		},
		now: time.Now,
	}
}

func (l *Logger) record(sessionID string, event Event) error {
	now := time.Now
	if l.now != nil {
		now = l.now
	}

	event.TimestampMicros = now().UnixMicro()
	event.SessionID = sessionID
	return l.Record(&event)
}

// NewSession creates a logger with a new session ID attached.
func (l *Logger) NewSession() *SessionLogger {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return &SessionLogger{Logger: l, sessionID: ulid.MustNew(ulid.Timestamp(t), entropy).String()}
}

// Sessionless creates a logger with no session ID.
func (l *Logger) Sessionless() *SessionLogger {
	return &SessionLogger{Logger: l, sessionID: ""}
}

// SessionLogger logs events with a shared session ID.
type SessionLogger struct {
	*Logger
	sessionID string
}

var _ Recorder = (*SessionLogger)(nil)

// SessionID returns the ID attached to every event.
func (l *SessionLogger) SessionID() string {
	return l.sessionID
}

// Record implements Recorder.
func (l *SessionLogger) Record(event Event) error {
	return l.record(l.sessionID, event)
}
