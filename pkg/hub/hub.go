// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package hub serves the client bus: a WebSocket endpoint that broadcasts
// console events to every connected client and forwards client requests to
// the bridge.
//
// Clients choose the wire encoding with the WebSocket subprotocol: "json"
// (text frames, the default) or "cbor" (binary frames).
package hub

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/bojanbass/01v96-remote/pkg/message"
	"github.com/bojanbass/01v96-remote/pkg/sysex"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Endpoint paths
const (
	PathWS     = "/ws"
	PathStatus = "/status"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueueSize  = 256
)

// RequestHandler receives decoded client requests
type RequestHandler func(req message.Request) error

// Status is the /status response
type Status struct {
	Clients    int             `json:"clients"`
	Statistics *sysex.Counters `json:"statistics,omitempty"`
}

// Hub tracks connected clients
type Hub struct {
	log       zerolog.Logger
	onRequest RequestHandler
	stats     *sysex.Statistics
	upgrader  websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// New creates a hub passing client requests to onRequest. stats may be nil.
func New(logger zerolog.Logger, onRequest RequestHandler, stats *sysex.Statistics) *Hub {
	return &Hub{
		log:       logger.With().Str("component", "hub").Logger(),
		onRequest: onRequest,
		stats:     stats,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    message.Subprotocols,
			// Control surfaces are served from other origins on the LAN
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Handler returns the HTTP handler serving PathWS and PathStatus
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(PathWS, h.ServeWS)
	mux.HandleFunc(PathStatus, h.serveStatus)
	return mux
}

// ServeWS upgrades a request to a client connection
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("upgrade failed")
		return
	}

	codec, err := message.CodecFor(conn.Subprotocol())
	if err != nil {
		// The upgrader only negotiates supported subprotocols
		codec = message.JSON
	}

	c := &client{
		id:    uuid.New().String(),
		hub:   h,
		conn:  conn,
		codec: codec,
		send:  make(chan []byte, sendQueueSize),
	}

	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	h.log.Info().
		Str("client", c.id).
		Str("remote", r.RemoteAddr).
		Str("protocol", codec.Name()).
		Msg("client connected")

	go c.writePump()
	go c.readPump()
}

// Broadcast sends v to every client. v is encoded once per codec. Clients
// whose send queue is full are disconnected.
func (h *Hub) Broadcast(v interface{}) {
	encoded := make(map[string][]byte, 2)
	var slow []*client

	h.mu.RLock()
	for c := range h.clients {
		data, ok := encoded[c.codec.Name()]
		if !ok {
			var err error
			data, err = c.codec.Marshal(v)
			if err != nil {
				h.mu.RUnlock()
				h.log.Error().Err(err).Str("protocol", c.codec.Name()).Msg("encode failed")
				return
			}
			encoded[c.codec.Name()] = data
		}

		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn().Str("client", c.id).Msg("client too slow, disconnecting")
		h.unregister(c)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

// unregister removes a client and closes its send queue, which stops the
// write pump
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) serveStatus(w http.ResponseWriter, r *http.Request) {
	status := Status{Clients: h.ClientCount()}
	if h.stats != nil {
		snapshot := h.stats.Snapshot()
		status.Statistics = &snapshot
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.log.Debug().Err(err).Msg("status write failed")
	}
}
