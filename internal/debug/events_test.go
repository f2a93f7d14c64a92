package debug_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/technosupport/zoneguard/internal/data"
	"github.com/technosupport/zoneguard/internal/debug"
)

func TestEventTail_PublishesToConnectedSubscriber(t *testing.T) {
	tail := debug.NewEventTail()
	server := httptest.NewServer(http.HandlerFunc(tail.ServeWS))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the server a moment to register the subscriber.
	time.Sleep(20 * time.Millisecond)

	dwell := 4.0
	tail.Publish(data.ZoneEvent{ZoneID: "zone-1", TrackID: 7, Event: data.EventExit, DwellSeconds: &dwell})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got data.ZoneEvent
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ZoneID != "zone-1" || got.TrackID != 7 || got.Event != data.EventExit {
		t.Fatalf("unexpected event received: %+v", got)
	}
}
