package httpapi

import (
	"encoding/json"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/R3E-Network/constants_registry/internal/middleware"
	"github.com/R3E-Network/constants_registry/pkg/logger"
)

const defaultAuditSize = 200

// AuditEntry describes one write attempt, authorized or not.
type AuditEntry struct {
	Time       time.Time `json:"time"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Domain     string    `json:"domain,omitempty"`
	Name       string    `json:"name,omitempty"`
	Status     int       `json:"status"`
	TraceID    string    `json:"trace_id,omitempty"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
}

// AuditSink persists audit entries outside the process.
type AuditSink interface {
	Write(entry AuditEntry) error
}

// AuditLog keeps the most recent write attempts in memory, optionally
// forwards them to a sink and fans them out to live subscribers.
type AuditLog struct {
	mu          sync.Mutex
	entries     []AuditEntry
	max         int
	sink        AuditSink
	subscribers map[chan AuditEntry]struct{}
	log         *logger.Logger
	now         func() time.Time
}

// NewAuditLog creates a log holding at most max entries.
func NewAuditLog(max int, sink AuditSink, log *logger.Logger) *AuditLog {
	if max <= 0 {
		max = defaultAuditSize
	}
	if log == nil {
		log = logger.NewDefault("audit")
	}
	return &AuditLog{
		max:         max,
		sink:        sink,
		subscribers: make(map[chan AuditEntry]struct{}),
		log:         log,
		now:         time.Now,
	}
}

// Add appends an entry, dropping the oldest once full. Sink failures are
// logged and never reach the request.
func (l *AuditLog) Add(entry AuditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	if l.sink != nil {
		if err := l.sink.Write(entry); err != nil {
			l.log.WithError(err).WithFields(map[string]interface{}{
				"method":   entry.Method,
				"path":     entry.Path,
				"trace_id": entry.TraceID,
			}).Warn("audit sink write failed")
		}
	}
	for ch := range l.subscribers {
		select {
		case ch <- entry:
		default:
			// slow subscriber; it misses this entry
		}
	}
}

// Subscribe returns a channel receiving every entry added from now on and a
// function that unsubscribes and closes the channel.
func (l *AuditLog) Subscribe(buffer int) (<-chan AuditEntry, func()) {
	ch := make(chan AuditEntry, buffer)
	l.mu.Lock()
	l.subscribers[ch] = struct{}{}
	l.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subscribers, ch)
			l.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers reports how many live subscriptions exist.
func (l *AuditLog) Subscribers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subscribers)
}

// List returns up to limit of the newest entries, oldest first.
func (l *AuditLog) List(limit int) []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]AuditEntry, limit)
	copy(out, l.entries[len(l.entries)-limit:])
	return out
}

// Middleware records the outcome of every request passing through it.
func (l *AuditLog) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		l.Add(AuditEntry{
			Time:       l.now().UTC(),
			Method:     r.Method,
			Path:       r.URL.Path,
			Domain:     pathVar(r, "domain"),
			Name:       pathVar(r, "name"),
			Status:     rec.status,
			TraceID:    middleware.TraceID(r.Context()),
			RemoteAddr: remoteHost(r.RemoteAddr),
			UserAgent:  r.UserAgent(),
		})
	})
}

// FileAuditSink appends audit entries as JSONL.
type FileAuditSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileAuditSink opens path for appending.
func NewFileAuditSink(path string) (*FileAuditSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}
	return &FileAuditSink{file: f}, nil
}

func (s *FileAuditSink) Write(entry AuditEntry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.file.Write(append(b, '\n'))
	return err
}

// Close closes the underlying file.
func (s *FileAuditSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.written {
		r.status = code
		r.written = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.written = true
	return r.ResponseWriter.Write(b)
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func parseLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
