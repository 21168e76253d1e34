package notify

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"pdf-rag/internal/models"

	"github.com/gorilla/websocket"
)

// StatusEvent is the wire format pushed to subscribed clients when a
// document's processing state changes.
type StatusEvent struct {
	Type       string                `json:"type"`
	DocumentID string                `json:"document_id"`
	Status     models.DocumentStatus `json:"status"`
	Embedded   bool                  `json:"embedded"`
	Timestamp  time.Time             `json:"timestamp"`
}

// Hub fans document status events out to WebSocket subscribers, one room per
// user. Publishing is best-effort: a slow or dead subscriber is dropped, and
// events published while a user has no open connection are lost.
type Hub struct {
	users      map[string]map[*subscriber]bool // userID -> set of subscribers
	register   chan *subscriber
	unregister chan *subscriber
	events     chan *userEvent
	mu         sync.RWMutex

	done chan struct{}
}

type subscriber struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
}

type userEvent struct {
	userID  string
	payload []byte
}

const (
	sendBufferSize = 64
	writeDeadline  = 10 * time.Second
	pongDeadline   = 60 * time.Second
	pingInterval   = 54 * time.Second
)

// NewHub creates the hub without starting its event loop.
func NewHub() *Hub {
	return &Hub{
		users:      make(map[string]map[*subscriber]bool),
		register:   make(chan *subscriber),
		unregister: make(chan *subscriber),
		events:     make(chan *userEvent, 256),
		done:       make(chan struct{}),
	}
}

// Start begins the hub event loop.
func (h *Hub) Start() {
	log.Println("🔄 Starting status notification hub...")

	go func() {
		for {
			select {
			case <-h.done:
				return
			case sub := <-h.register:
				h.handleRegister(sub)
			case sub := <-h.unregister:
				h.handleUnregister(sub)
			case evt := <-h.events:
				h.handleEvent(evt)
			}
		}
	}()

	log.Println("✓ Status notification hub started")
}

// PublishDocumentStatus queues a status event for all of the user's open
// connections. It never blocks the caller: when the hub's queue is full the
// event is dropped.
func (h *Hub) PublishDocumentStatus(userID, documentID string, status models.DocumentStatus, embedded bool) {
	payload, err := json.Marshal(StatusEvent{
		Type:       "document_status",
		DocumentID: documentID,
		Status:     status,
		Embedded:   embedded,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		return
	}

	select {
	case h.events <- &userEvent{userID: userID, payload: payload}:
	default:
		log.Printf("⚠️  Status hub queue full, dropping event for user %s", userID)
	}
}

// SubscriberCount returns the number of open connections for a user.
func (h *Hub) SubscriberCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

func (h *Hub) handleRegister(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.users[sub.userID] == nil {
		h.users[sub.userID] = make(map[*subscriber]bool)
	}
	h.users[sub.userID][sub] = true

	log.Printf("  Status subscriber joined for user %s (total: %d)",
		sub.userID, len(h.users[sub.userID]))
}

func (h *Hub) handleUnregister(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.users[sub.userID]; ok {
		if _, ok := subs[sub]; ok {
			delete(subs, sub)
			close(sub.send)
			if len(subs) == 0 {
				delete(h.users, sub.userID)
			}
			log.Printf("  Status subscriber left for user %s (remaining: %d)",
				sub.userID, len(subs))
		}
	}
}

func (h *Hub) handleEvent(evt *userEvent) {
	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.users[evt.userID]))
	for sub := range h.users[evt.userID] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.send <- evt.payload:
		default:
			// Buffer full means the connection is slow or dead.
			log.Printf("⚠️  Subscriber buffer full for user %s, closing connection", sub.userID)
			h.handleUnregister(sub)
		}
	}
}

// Shutdown closes all open connections and stops the event loop.
func (h *Hub) Shutdown() {
	log.Println("🛑 Shutting down status notification hub...")

	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, subs := range h.users {
		for sub := range subs {
			close(sub.send)
			sub.conn.Close()
		}
	}
	h.users = make(map[string]map[*subscriber]bool)

	log.Println("✓ Status notification hub shutdown complete")
}

// readPump discards inbound frames; the status feed is one-way. It exists to
// process control frames and detect the peer going away.
func (s *subscriber) readPump() {
	defer func() {
		// The hub loop stops consuming unregister once it shuts down.
		select {
		case s.hub.unregister <- s:
		case <-s.hub.done:
		}
		s.conn.Close()
	}()

	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongDeadline))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongDeadline))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Status subscriber read error: %v", err)
			}
			return
		}
	}
}

// writePump drains the send buffer and keeps the connection alive with pings.
func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
