// Package audit records account and event mutations as structured log
// entries, separate from request logging.
package audit

import (
	"net"
	"net/http"
	"time"

	"github.com/eventboard/server/internal/api/middleware"
	"github.com/rs/zerolog"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Entry is a single audited action. ActorID is zero when the caller is
// not authenticated (signup, failed login).
type Entry struct {
	Timestamp    time.Time
	Action       string
	ActorID      int64
	ResourceType string
	ResourceID   int64
	IPAddress    string
	RequestID    string
	Status       string
	Reason       string
}

// Logger writes audit entries. A nil *Logger discards everything.
type Logger struct {
	logger zerolog.Logger
	now    func() time.Time
}

func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{
		logger: logger.With().Str("component", "audit").Logger(),
		now:    time.Now,
	}
}

func (l *Logger) Log(entry Entry) {
	if l == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now().UTC()
	}

	evt := l.logger.Info()
	if entry.Status == StatusFailure {
		evt = l.logger.Warn()
	}
	evt = evt.
		Time("audit_time", entry.Timestamp).
		Str("action", entry.Action).
		Str("status", entry.Status).
		Str("ip_address", entry.IPAddress)
	if entry.ActorID != 0 {
		evt = evt.Int64("actor_id", entry.ActorID)
	}
	if entry.ResourceType != "" {
		evt = evt.Str("resource_type", entry.ResourceType)
	}
	if entry.ResourceID != 0 {
		evt = evt.Int64("resource_id", entry.ResourceID)
	}
	if entry.RequestID != "" {
		evt = evt.Str("request_id", entry.RequestID)
	}
	if entry.Reason != "" {
		evt = evt.Str("reason", entry.Reason)
	}
	evt.Msg("audit")
}

// Success records a completed action taken in request r.
func (l *Logger) Success(r *http.Request, action string, actorID int64, resourceType string, resourceID int64) {
	l.fromRequest(r, Entry{
		Action:       action,
		ActorID:      actorID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Status:       StatusSuccess,
	})
}

// Failure records a rejected action and the error that rejected it.
func (l *Logger) Failure(r *http.Request, action string, actorID int64, resourceType string, resourceID int64, err error) {
	entry := Entry{
		Action:       action,
		ActorID:      actorID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Status:       StatusFailure,
	}
	if err != nil {
		entry.Reason = err.Error()
	}
	l.fromRequest(r, entry)
}

func (l *Logger) fromRequest(r *http.Request, entry Entry) {
	if l == nil {
		return
	}
	entry.IPAddress = remoteIP(r)
	entry.RequestID = middleware.GetRequestID(r.Context())
	l.Log(entry)
}

// remoteIP is the socket peer; forwarded headers are not trusted here.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
