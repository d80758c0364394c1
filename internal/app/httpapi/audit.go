package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/R3E-Network/vybe_engagement/internal/app/auth"
	"github.com/R3E-Network/vybe_engagement/internal/middleware"
	"github.com/R3E-Network/vybe_engagement/pkg/logger"
)

// auditEntry records one operator request.
type auditEntry struct {
	Time       time.Time `json:"time"`
	Actor      string    `json:"actor"`
	Role       string    `json:"role"`
	Path       string    `json:"path"`
	Method     string    `json:"method"`
	Status     int       `json:"status"`
	TraceID    string    `json:"trace_id,omitempty"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
}

type auditLog struct {
	mu      sync.Mutex
	entries []auditEntry
	max     int
	sink    auditSink
}

type auditSink interface {
	Write(entry auditEntry) error
}

func newAuditLog(max int, sink auditSink) *auditLog {
	if max <= 0 {
		max = 200
	}
	return &auditLog{max: max, sink: sink}
}

func (l *auditLog) add(entry auditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	if l.sink != nil {
		_ = l.sink.Write(entry)
	}
}

// listLimit returns up to limit entries, newest first.
func (l *auditLog) listLimit(limit int) []auditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]auditEntry, 0, limit)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

// middleware records every request that reaches it.
func (l *auditLog) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		actor, _ := auth.ActorFromContext(r.Context())
		l.add(auditEntry{
			Time:       time.Now().UTC(),
			Actor:      actor.ID,
			Role:       actor.Role,
			Path:       r.URL.Path,
			Method:     r.Method,
			Status:     rec.status,
			TraceID:    middleware.TraceID(r.Context()),
			RemoteAddr: r.RemoteAddr,
		})
	})
}

// logAuditSink writes entries to the structured log.
type logAuditSink struct {
	log *logger.Logger
}

func (s logAuditSink) Write(entry auditEntry) error {
	s.log.WithField("actor_id", entry.Actor).
		WithField("role", entry.Role).
		WithField("method", entry.Method).
		WithField("path", entry.Path).
		WithField("status", entry.Status).
		WithField("trace_id", entry.TraceID).
		Info("operator request")
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}
