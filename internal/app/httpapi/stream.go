package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/R3E-Network/constants_registry/internal/middleware"
)

const (
	auditStreamBuffer = 64
	auditWriteWait    = 10 * time.Second
	auditPingInterval = 30 * time.Second
)

var auditUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// streamAudit pushes every new audit entry to a websocket client as JSON
// until either side closes.
func (h *handler) streamAudit(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the handshake completes so nothing added after the
	// client sees the upgrade is missed.
	entries, cancel := h.audit.Subscribe(auditStreamBuffer)
	defer cancel()

	conn, err := auditUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).
			WithField("trace_id", middleware.TraceID(r.Context())).
			Warn("audit stream upgrade failed")
		return
	}
	// The server's read deadline no longer applies to the hijacked conn.
	_ = conn.SetReadDeadline(time.Time{})

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	defer func() {
		conn.Close()
		<-closed
	}()

	ping := time.NewTicker(auditPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case entry, ok := <-entries:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(auditWriteWait))
			if err := conn.WriteJSON(entry); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(auditWriteWait)); err != nil {
				return
			}
		}
	}
}
