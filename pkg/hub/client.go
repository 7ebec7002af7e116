// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hub

import (
	"time"

	"github.com/bojanbass/01v96-remote/pkg/message"
	"github.com/gorilla/websocket"
)

// client is one WebSocket connection. The write pump is the only writer of
// conn.
type client struct {
	id    string
	hub   *Hub
	conn  *websocket.Conn
	codec message.Codec
	send  chan []byte
}

// readPump decodes requests until the connection fails
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
		c.hub.log.Info().Str("client", c.id).Msg("client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug().Err(err).Str("client", c.id).Msg("read failed")
			}
			return
		}

		var req message.Request
		if err := c.codec.Unmarshal(data, &req); err != nil {
			c.hub.log.Debug().Err(err).Str("client", c.id).Msg("invalid request")
			continue
		}

		if c.hub.onRequest != nil {
			if err := c.hub.onRequest(req); err != nil {
				c.hub.log.Debug().Err(err).Str("client", c.id).Msg("request rejected")
			}
		}
	}
}

// writePump delivers queued messages and keeps the connection alive with
// pings
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the queue
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
