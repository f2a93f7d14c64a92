// Package debug implements the admin event-tail WebSocket (§"Supplemented
// features"): a client connected to it can watch zone_events as they are
// ingested, useful for diagnosing a misbehaving camera without querying
// the event log directly. The handler performs no authentication and
// accepts any origin. Grounded on the teacher's gorilla/websocket
// signaling handlers, repurposed here for a simple fan-out tail instead
// of SFU session negotiation.
package debug

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/technosupport/zoneguard/internal/data"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// EventTail fans out every ingested ZoneEvent to connected admin clients.
// Publish is called by Ingest (or anything observing the detections
// queue); it never blocks a slow subscriber beyond a short write deadline.
type EventTail struct {
	mu          sync.Mutex
	subscribers map[*websocket.Conn]struct{}
}

func NewEventTail() *EventTail {
	return &EventTail{subscribers: make(map[*websocket.Conn]struct{})}
}

// ServeWS upgrades the connection and keeps it registered until it closes.
func (t *EventTail) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[debug] websocket upgrade failed: %v", err)
		return
	}

	t.mu.Lock()
	t.subscribers[conn] = struct{}{}
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.subscribers, conn)
		t.mu.Unlock()
		conn.Close()
	}()

	// The client never sends anything meaningful; read until it
	// disconnects so the handler notices and cleans up.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Publish writes e to every connected subscriber. A subscriber that can't
// keep up within the write deadline is dropped rather than backing up the
// whole tail.
func (t *EventTail) Publish(e data.ZoneEvent) {
	payload, err := json.Marshal(e)
	if err != nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for conn := range t.subscribers {
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(t.subscribers, conn)
		}
	}
}
