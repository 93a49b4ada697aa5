package server

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// ClientConn is the part of a WebSocket connection the hub writes to.
type ClientConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Hub manages WebSocket clients.
type Hub struct {
	clients    map[ClientConn]bool
	mu         sync.Mutex
	broadcast  chan Message
	register   chan ClientConn
	unregister chan ClientConn
	done       chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[ClientConn]bool),
		broadcast:  make(chan Message, 16),
		register:   make(chan ClientConn),
		unregister: make(chan ClientConn),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Println("[WS] Client connected.")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
				log.Println("[WS] Client disconnected.")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if err := client.WriteJSON(message); err != nil {
					log.Printf("[WS] Broadcast error: %v", err)
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a client. It is a no-op once the hub has stopped.
func (h *Hub) Register(c ClientConn) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

// Unregister removes and closes a client.
func (h *Hub) Unregister(c ClientConn) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues a message for all connected clients. It drops the message
// if the hub is backed up.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		log.Printf("[WS] Broadcast queue full, dropping %s", msg.Type)
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
