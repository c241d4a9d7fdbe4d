package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go-inventory-ledger/internal/event"
	"go-inventory-ledger/pkg/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// ErrHubBusy is returned by Publish when the broadcast buffer is full.
var ErrHubBusy = errors.New("websocket hub is busy, event dropped")

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Hub struct {
	Clients    map[Conn]bool
	Register   chan Conn
	Unregister chan Conn
	Broadcast  chan []byte
	mutex      sync.Mutex
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[Conn]bool),
		Register:   make(chan Conn),
		Unregister: make(chan Conn),
		Broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Publish queues e for every connected client without blocking the caller.
func (h *Hub) Publish(_ context.Context, e event.Event) error {
	msg, err := json.Marshal(e)
	if err != nil {
		return err
	}
	select {
	case h.Broadcast <- msg:
		return nil
	default:
		return ErrHubBusy
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.Clients)
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client. It must be called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for conn := range h.Clients {
				conn.Close()
				delete(h.Clients, conn)
			}
			h.mutex.Unlock()
			return

		case conn := <-h.Register:
			h.mutex.Lock()
			h.Clients[conn] = true
			h.mutex.Unlock()
			logger.Logger.Debug().Msg("websocket client connected")

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.Clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// register adds conn unless the hub has stopped.
func (h *Hub) register(conn Conn) bool {
	select {
	case h.Register <- conn:
		return true
	case <-h.done:
		conn.Close()
		return false
	}
}

func (h *Hub) unregister(conn Conn) {
	select {
	case h.Unregister <- conn:
	case <-h.done:
	}
}

// Upgrade rejects plain HTTP requests on the websocket route.
func Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return c.SendStatus(fiber.StatusUpgradeRequired)
}

// Handler registers each connection with the hub and keeps it open until the
// client goes away. Clients only listen; inbound frames are discarded.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		if !h.register(c) {
			return
		}
		defer h.unregister(c)

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	})
}
