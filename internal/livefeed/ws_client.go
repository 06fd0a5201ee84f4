package livefeed

import (
	"complaintdesk/backend/internal/filter"
	"complaintdesk/backend/internal/models"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// WebSocketClient реалізує інтерфейс livefeed.Client
type WebSocketClient struct {
	ID      string
	AgentID string
	Conn    *websocket.Conn
	Hub     *Hub
	Send    chan models.FeedMessage

	criteria  filter.Criteria
	closeOnce sync.Once
}

// NewWebSocketClient creates a client with the initial filter taken from the request.
func NewWebSocketClient(id, agentID string, conn *websocket.Conn, hub *Hub, criteria filter.Criteria, buffer int) *WebSocketClient {
	return &WebSocketClient{
		ID:       id,
		AgentID:  agentID,
		Conn:     conn,
		Hub:      hub,
		Send:     make(chan models.FeedMessage, buffer),
		criteria: criteria,
	}
}

func (c *WebSocketClient) GetID() string                             { return c.ID }
func (c *WebSocketClient) Criteria() filter.Criteria                 { return c.criteria }
func (c *WebSocketClient) SetCriteria(cr filter.Criteria)            { c.criteria = cr }
func (c *WebSocketClient) GetSendChannel() chan<- models.FeedMessage { return c.Send }

// Run запускає 'pumps' для WebSocket
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close закриває Send канал (що зупинить writePump)
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

// readPump приймає лише зміни фільтра від клієнта.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error reading message: %v", err)
			}
			break
		}

		var f models.FeedFilter
		if err := json.Unmarshal(message, &f); err != nil {
			log.Printf("Error decoding JSON from client %s: %v", c.ID, err)
			continue // Пропускаємо невірне повідомлення
		}
		criteria, err := filter.ParseCriteria(f.Search, f.Status, f.Date)
		if err != nil {
			log.Printf("Ignoring invalid filter from client %s: %v", c.ID, err)
			continue
		}
		c.Hub.UpdateCriteria(c, criteria)
	}
}

// writePump читає повідомлення з каналу Send і записує їх у WebSocket.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Канал закрито хабом, закриваємо з'єднання WS
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				log.Printf("Error writing to client %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			// Надсилаємо Ping для підтримки з'єднання активним
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
