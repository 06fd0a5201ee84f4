package handler

import (
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/livefeed"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Дозволяє з'єднання з будь-якого домену. У продакшені налаштувати!
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket оновлює HTTP-з'єднання до WebSocket і підключає його до live feed.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	criteria, err := criteriaFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade вже записав відповідь з помилкою
		return
	}

	client := livefeed.NewWebSocketClient(uuid.NewString(), currentAgent(c).ID, conn, h.Hub, criteria, config.FeedClientBuffer)
	if !h.Hub.Register(client) {
		conn.Close()
		return
	}
	client.Run()
}
