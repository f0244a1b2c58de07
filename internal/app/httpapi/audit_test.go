package httpapi

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/constants_registry/pkg/logger"
)

type failingSink struct{ calls int }

func (s *failingSink) Write(AuditEntry) error {
	s.calls++
	return errors.New("disk full")
}

func TestAuditLogRing(t *testing.T) {
	log := NewAuditLog(3, nil, logger.NewDiscard())
	for i := 0; i < 5; i++ {
		log.Add(AuditEntry{Status: i})
	}

	all := log.List(0)
	require.Len(t, all, 3)
	assert.Equal(t, []int{2, 3, 4}, []int{all[0].Status, all[1].Status, all[2].Status})

	newest := log.List(2)
	require.Len(t, newest, 2)
	assert.Equal(t, 3, newest[0].Status)
	assert.Equal(t, 4, newest[1].Status)

	assert.Len(t, log.List(10), 3)
	assert.Len(t, NewAuditLog(0, nil, logger.NewDiscard()).List(0), 0)
}

func TestAuditSinkFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	base := logger.New(logger.LoggingConfig{Level: "info", Format: "json"})
	base.SetOutput(&buf)

	sink := &failingSink{}
	log := NewAuditLog(2, sink, base)
	log.Add(AuditEntry{Method: http.MethodPut, Path: "/api/domains", TraceID: "trace-1"})

	assert.Equal(t, 1, sink.calls)
	assert.Len(t, log.List(0), 1, "the entry is kept even when the sink fails")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "audit sink write failed", line["msg"])
	assert.Equal(t, "trace-1", line["trace_id"])
	assert.Equal(t, "disk full", line["error"])
}

func TestAuditSubscribe(t *testing.T) {
	log := NewAuditLog(5, nil, logger.NewDiscard())

	entries, cancel := log.Subscribe(1)
	assert.Equal(t, 1, log.Subscribers())

	log.Add(AuditEntry{Status: 201})
	log.Add(AuditEntry{Status: 204}) // buffer full, dropped for this subscriber

	got := <-entries
	assert.Equal(t, 201, got.Status)
	assert.Len(t, log.List(0), 2)

	cancel()
	cancel()
	assert.Equal(t, 0, log.Subscribers())
	_, open := <-entries
	assert.False(t, open)

	log.Add(AuditEntry{Status: 200})
}

func TestAuditMiddleware(t *testing.T) {
	log := NewAuditLog(5, nil, logger.NewDiscard())
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	log.now = func() time.Time { return fixed }

	r := mux.NewRouter()
	r.Handle("/api/domain/{domain}/{name}", log.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	req := httptest.NewRequest(http.MethodDelete, "/api/domain/neo/GAS", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	req.Header.Set("User-Agent", "cli")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := log.List(0)
	require.Len(t, entries, 1)
	assert.Equal(t, AuditEntry{
		Time:       fixed,
		Method:     http.MethodDelete,
		Path:       "/api/domain/neo/GAS",
		Domain:     "neo",
		Name:       "GAS",
		Status:     http.StatusNoContent,
		RemoteAddr: "10.0.0.1",
		UserAgent:  "cli",
	}, entries[0])
}

func TestFileAuditSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	sink, err := NewFileAuditSink(path)
	require.NoError(t, err)

	require.NoError(t, sink.Write(AuditEntry{Method: http.MethodPut, Domain: "neo", Status: 201}))
	require.NoError(t, sink.Write(AuditEntry{Method: http.MethodDelete, Domain: "neo", Status: 204}))
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var statuses []int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry AuditEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		statuses = append(statuses, entry.Status)
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []int{201, 204}, statuses)
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 0, parseLimit(""))
	assert.Equal(t, 0, parseLimit("-3"))
	assert.Equal(t, 0, parseLimit("abc"))
	assert.Equal(t, 7, parseLimit("7"))
}
