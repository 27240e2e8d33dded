package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/pkg/logger"

	"github.com/gofiber/contrib/websocket"
)

// Conn is the subset of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

var _ Conn = (*websocket.Conn)(nil)

const broadcastBuffer = 256

type Hub struct {
	Clients    map[Conn]bool
	Register   chan Conn
	Unregister chan Conn
	Broadcast  chan []byte
	mutex      sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[Conn]bool),
		Register:   make(chan Conn),
		Unregister: make(chan Conn),
		Broadcast:  make(chan []byte, broadcastBuffer),
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
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
			count := len(h.Clients)
			h.mutex.Unlock()
			logger.Logger.Debug().Int("clients", count).Msg("WS client connected")

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

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.Clients)
}

// Notify queues the event for broadcast. When the queue is full the event is
// dropped so a slow client never holds up a ledger write.
func (h *Hub) Notify(ctx context.Context, event model.StockEvent) {
	msg, err := json.Marshal(event)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("Failed to encode WS event")
		return
	}
	select {
	case h.Broadcast <- msg:
	default:
		logger.Warn(ctx).
			Str("action", event.Action).
			Str("product_id", event.ProductID.String()).
			Msg("WS broadcast queue full, event dropped")
	}
}
