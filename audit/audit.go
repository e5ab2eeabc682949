// Package audit emits structured security events as JSON lines.
package audit

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Security event names emitted by the grant engine.
const (
	EventCodeReplay    = "authorization_code.replay"
	EventRefreshReplay = "refresh_token.replay"
	EventFamilyRevoked = "token_family.revoked"
)

// Logger receives security events. Implementations must not block the
// request path on slow sinks.
type Logger interface {
	Event(ctx context.Context, event string, fields map[string]any)
}

// NewJSONLogger writes events to the process log, one JSON object per line.
func NewJSONLogger(l *log.Logger) *JSONLogger {
	if l == nil {
		l = log.Default()
	}
	return &JSONLogger{l: l}
}

// JSONLogger is the default sink.
type JSONLogger struct {
	l *log.Logger
}

// Event writes a structured audit event.
func (j *JSONLogger) Event(ctx context.Context, event string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["event"] = event
	fields["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	b, _ := json.Marshal(fields)
	j.l.Printf("%s", string(b))
}

// Nop discards all events.
type Nop struct{}

// Event is a no-op.
func (Nop) Event(context.Context, string, map[string]any) {}
