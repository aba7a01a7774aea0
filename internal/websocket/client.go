package websocket

import (
	"context"
	"sync"
	"time"

	"govchat/pkg/logger"

	"github.com/gorilla/websocket"
)

// Client couples one gorilla connection to its registry entry and runs the
// read and write pumps. Cleanup runs exactly once regardless of which pump
// exits first or whether the transport died abruptly.
type Client struct {
	conn       *websocket.Conn
	connection *Connection
	router     *EventRouter

	pongTimeout  time.Duration
	writeTimeout time.Duration

	cleanupOnce sync.Once
}

func NewClient(conn *websocket.Conn, connection *Connection, router *EventRouter, pongTimeout, writeTimeout time.Duration) *Client {
	if pongTimeout <= 0 {
		pongTimeout = 60 * time.Second
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Client{
		conn:         conn,
		connection:   connection,
		router:       router,
		pongTimeout:  pongTimeout,
		writeTimeout: writeTimeout,
	}
}

// ReadPump feeds inbound frames to the event router until the socket
// closes, then runs disconnect cleanup.
func (c *Client) ReadPump() {
	defer c.cleanup()

	c.conn.SetReadDeadline(time.Now().Add(c.pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error on %s: %v", c.connection.ID, err)
			}
			break
		}

		c.router.HandleEvent(context.Background(), c.connection, message)
	}
}

// WritePump drains the outbound queue to the socket and keeps the
// connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pongTimeout * 9 / 10)
	defer func() {
		ticker.Stop()
		c.cleanup()
	}()

	for {
		select {
		case msg, ok := <-c.connection.Outbound():
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if !ok {
				// Registry closed the queue; say goodbye politely.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Error("Write error on %s: %v", c.connection.ID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) cleanup() {
	c.cleanupOnce.Do(func() {
		c.router.HandleDisconnect(c.connection)
		c.conn.Close()
	})
}
