package events

import (
	"NSSaDS/fileshare/internal/domain"
	"NSSaDS/fileshare/pkg/logger"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
	sendQueueLen = 64
)

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts server events as JSON text messages to every connected
// WebSocket subscriber. A subscriber that cannot keep up loses events
// instead of slowing the file server down.
type Hub struct {
	upgrader websocket.Upgrader
	log      *logger.Logger

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	latest      map[domain.EventType][]byte
	closed      bool
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log:         log,
		subscribers: make(map[*subscriber]struct{}),
		latest:      make(map[domain.EventType][]byte),
	}
}

// Notify queues event for every subscriber. The most recent connection count
// and store listing are kept for replay to late subscribers.
func (h *Hub) Notify(event domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Warnf("Failed to encode event %s: %v", event.Type, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if event.Type == domain.EventConnections || event.Type == domain.EventStoreChanged {
		h.latest[event.Type] = data
	}

	for sub := range h.subscribers {
		select {
		case sub.send <- data:
		default:
			h.log.Debugf("Dropping %s event for slow subscriber %s", event.Type, sub.conn.RemoteAddr())
		}
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("Failed to upgrade WebSocket connection: %v", err)
		return
	}

	sub := &subscriber{conn: conn, send: make(chan []byte, sendQueueLen)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	for _, kind := range []domain.EventType{domain.EventConnections, domain.EventStoreChanged} {
		if data, ok := h.latest[kind]; ok {
			sub.send <- data
		}
	}
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()

	h.log.Debugf("Event subscriber connected: %s", conn.RemoteAddr())

	go h.writeLoop(sub)
	h.readLoop(sub)
}

// readLoop only drains control frames; subscribers have nothing to say.
func (h *Hub) readLoop(sub *subscriber) {
	defer func() {
		h.remove(sub)
		sub.conn.Close()
		h.log.Debugf("Event subscriber disconnected: %s", sub.conn.RemoteAddr())
	}()

	sub.conn.SetReadLimit(512)
	sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case data, ok := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				sub.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		close(sub.send)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for sub := range h.subscribers {
		delete(h.subscribers, sub)
		close(sub.send)
	}
}
