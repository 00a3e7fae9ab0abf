package events

import (
	"net/http"
	"sync"
	"time"

	"github.com/bryanchriswhite/CaptureDeck/internal/logger"
	"github.com/gorilla/websocket"
)

const (
	subscriberBuffer = 32
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = pongWait * 9 / 10
)

// Hub broadcasts events to subscribers, including WebSocket clients
type Hub struct {
	mu        sync.RWMutex
	listeners map[chan Event]struct{}
	closed    bool
	upgrader  websocket.Upgrader
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		listeners: make(map[chan Event]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: LocalRequest,
		},
	}
}

// Emit implements Sink
func (h *Hub) Emit(name string, payload any) {
	h.Publish(NewEvent(name, payload))
}

// Publish delivers ev to every listener, skipping any whose buffer is full
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.listeners {
		select {
		case ch <- ev:
		default:
			logger.WithComponent("events").Warn().
				Str("event", ev.Name).
				Msg("Subscriber buffer full, dropping event")
		}
	}
}

// Subscribe adds a listener
func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	if h.closed {
		close(ch)
	} else {
		h.listeners[ch] = struct{}{}
	}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.listeners[ch]; ok {
		delete(h.listeners, ch)
		close(ch)
	}
}

// Subscribers returns the number of active listeners
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// Close disconnects every listener
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.listeners {
		delete(h.listeners, ch)
		close(ch)
	}
	h.closed = true
}

// ServeHTTP upgrades the request to a WebSocket and streams events as JSON
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("events")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	updates := h.Subscribe()
	defer h.Unsubscribe(updates)

	log.Debug().Str("remote", r.RemoteAddr).Msg("Event stream client connected")

	// Reader only exists to notice the client going away and to handle pongs
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-updates:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				log.Debug().Err(err).Msg("Event stream write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			log.Debug().Str("remote", r.RemoteAddr).Msg("Event stream client disconnected")
			return
		}
	}
}
