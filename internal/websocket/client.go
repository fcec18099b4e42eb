package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// command is a client-to-server control frame.
type command struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}

const (
	commandSubscribe   = "SUBSCRIBE"
	commandUnsubscribe = "UNSUBSCRIBE"
)

// Client is one live connection, identified by the authenticated user.
type Client struct {
	Identity string

	conn   *websocket.Conn
	hub    *Hub
	logger *zap.Logger
	send   chan []byte
}

func NewClient(identity string, conn *websocket.Conn, hub *Hub, logger *zap.Logger) *Client {
	return &Client{
		Identity: identity,
		conn:     conn,
		hub:      hub,
		logger:   logger,
		send:     make(chan []byte, 256),
	}
}

// ReadPump consumes control frames until the connection closes. It blocks;
// the caller runs WritePump on a separate goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(context.Background(), c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read failed",
					zap.String("identity", c.Identity),
					zap.Error(err),
				)
			}
			break
		}

		var cmd command
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.writeError("malformed command")
			continue
		}
		c.handle(cmd)
	}
}

// WritePump flushes outgoing frames and keeps the connection alive with
// pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handle(cmd command) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch cmd.Type {
	case commandSubscribe:
		if err := c.hub.Subscribe(ctx, c, cmd.Topic); err != nil {
			c.logger.Debug("subscription rejected",
				zap.String("identity", c.Identity),
				zap.String("topic", cmd.Topic),
				zap.Error(err),
			)
			c.writeError("cannot subscribe to " + cmd.Topic)
			return
		}
		c.writeAck("subscribed", cmd.Topic)

	case commandUnsubscribe:
		c.hub.Unsubscribe(ctx, c, cmd.Topic)
		c.writeAck("unsubscribed", cmd.Topic)

	default:
		c.writeError("unknown command type")
	}
}

func (c *Client) writeAck(status, topic string) {
	data, err := json.Marshal(map[string]string{"type": "ACK", "status": status, "topic": topic})
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) writeError(message string) {
	data, err := json.Marshal(map[string]string{"type": "ERROR", "error": message})
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
