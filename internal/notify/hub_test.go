package notify

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pdf-rag/internal/models"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHubServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub()
	hub.Start()
	t.Cleanup(hub.Shutdown)

	r := mux.NewRouter()
	r.HandleFunc("/ws/users/{id}", NewWebSocketHandler(hub).HandleUserConnection)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/users/" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, userID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.SubscriberCount(userID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("user %s never reached %d subscribers", userID, want)
}

func TestHubDeliversStatusEvents(t *testing.T) {
	hub, srv := startHubServer(t)
	conn := dial(t, srv, "u1")
	waitForSubscribers(t, hub, "u1", 1)

	hub.PublishDocumentStatus("u1", "d1", models.StatusProcessed, true)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var evt StatusEvent
	require.NoError(t, json.Unmarshal(payload, &evt))
	assert.Equal(t, "document_status", evt.Type)
	assert.Equal(t, "d1", evt.DocumentID)
	assert.Equal(t, models.StatusProcessed, evt.Status)
	assert.True(t, evt.Embedded)
}

func TestHubScopesEventsToUser(t *testing.T) {
	hub, srv := startHubServer(t)
	u1 := dial(t, srv, "u1")
	u2 := dial(t, srv, "u2")
	waitForSubscribers(t, hub, "u1", 1)
	waitForSubscribers(t, hub, "u2", 1)

	hub.PublishDocumentStatus("u1", "d1", models.StatusProcessed, true)

	u1.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := u1.ReadMessage()
	require.NoError(t, err)

	// The other user's connection stays silent.
	u2.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = u2.ReadMessage()
	assert.Error(t, err)
}

func TestHubPublishWithoutSubscribersIsDropped(t *testing.T) {
	hub, _ := startHubServer(t)

	// Must not block or panic.
	hub.PublishDocumentStatus("nobody", "d1", models.StatusProcessed, true)
	assert.Zero(t, hub.SubscriberCount("nobody"))
}

func TestHubShutdownWithOpenConnections(t *testing.T) {
	hub := NewHub()
	hub.Start()

	r := mux.NewRouter()
	r.HandleFunc("/ws/users/{id}", NewWebSocketHandler(hub).HandleUserConnection)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn := dial(t, srv, "u1")
	waitForSubscribers(t, hub, "u1", 1)

	finished := make(chan struct{})
	go func() {
		hub.Shutdown()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not complete with an open connection")
	}

	// The server side closed the connection under the client.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	// A late publish is dropped without blocking.
	hub.PublishDocumentStatus("u1", "d1", models.StatusProcessed, true)
	assert.Zero(t, hub.SubscriberCount("u1"))
}

func TestHubUnregistersClosedConnections(t *testing.T) {
	hub, srv := startHubServer(t)
	conn := dial(t, srv, "u1")
	waitForSubscribers(t, hub, "u1", 1)

	conn.Close()
	waitForSubscribers(t, hub, "u1", 0)
}
