// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bojanbass/01v96-remote/pkg/message"
	"github.com/bojanbass/01v96-remote/pkg/sysex"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Test Helpers
// ============================================================

type testServer struct {
	hub      *Hub
	srv      *httptest.Server
	requests chan message.Request
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{requests: make(chan message.Request, 16)}
	stats := sysex.NewStatistics()
	ts.hub = New(zerolog.Nop(), func(req message.Request) error {
		ts.requests <- req
		return nil
	}, stats)
	ts.srv = httptest.NewServer(ts.hub.Handler())

	t.Cleanup(func() {
		ts.hub.Close()
		ts.srv.Close()
	})
	return ts
}

func (ts *testServer) dial(t *testing.T, subprotocol string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + PathWS
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	if subprotocol != "" {
		dialer.Subprotocols = []string{subprotocol}
	}

	conn, _, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	// Wait for registration so broadcasts reach the client
	require.Eventually(t, func() bool {
		return ts.hub.ClientCount() > 0
	}, 5*time.Second, 5*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) (int, []byte) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	messageType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return messageType, data
}

// ============================================================
// Broadcast Tests
// ============================================================

func TestBroadcast_JSON(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "")
	assert.Equal(t, "", conn.Subprotocol())

	ts.hub.Broadcast(message.Event{Type: "fader", Target: "channel", Num: 5, Value: 511})

	messageType, data := readMessage(t, conn)
	assert.Equal(t, websocket.TextMessage, messageType)
	assert.JSONEq(t, `{"type":"fader","target":"channel","num":5,"value":511}`, string(data))
}

func TestBroadcast_CBOR(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, message.SubprotocolCBOR)
	assert.Equal(t, message.SubprotocolCBOR, conn.Subprotocol())

	var levels sysex.Levels
	levels[2] = 77
	ts.hub.Broadcast(message.FromLevels(levels))

	messageType, data := readMessage(t, conn)
	assert.Equal(t, websocket.BinaryMessage, messageType)

	var env message.Envelope
	require.NoError(t, message.CBOR.Unmarshal(data, &env))
	assert.Equal(t, message.TypeLevel, env.Type)
	assert.Equal(t, 77, env.Levels["3"])
}

func TestBroadcast_MixedClients(t *testing.T) {
	ts := newTestServer(t)
	jsonConn := ts.dial(t, message.SubprotocolJSON)
	cborConn := ts.dial(t, message.SubprotocolCBOR)
	require.Eventually(t, func() bool { return ts.hub.ClientCount() == 2 }, 5*time.Second, 5*time.Millisecond)

	ts.hub.Broadcast(message.Event{Type: "on", Target: "bus", Num: 2, Value: true})

	_, data := readMessage(t, jsonConn)
	var fromJSON message.Envelope
	require.NoError(t, message.JSON.Unmarshal(data, &fromJSON))

	_, data = readMessage(t, cborConn)
	var fromCBOR message.Envelope
	require.NoError(t, message.CBOR.Unmarshal(data, &fromCBOR))

	for _, env := range []message.Envelope{fromJSON, fromCBOR} {
		on, err := env.OnValue()
		require.NoError(t, err)
		assert.True(t, on)
		assert.Equal(t, "bus", env.Target)
		assert.Equal(t, 2, env.Num)
	}
}

func TestBroadcast_DropsSlowClient(t *testing.T) {
	h := New(zerolog.Nop(), nil, nil)
	c := &client{id: "slow", hub: h, codec: message.JSON, send: make(chan []byte, 1)}
	require.True(t, h.register(c))

	h.Broadcast(message.Event{Type: "fader", Target: "sum", Value: 1})
	assert.Equal(t, 1, h.ClientCount())

	h.Broadcast(message.Event{Type: "fader", Target: "sum", Value: 2})
	assert.Equal(t, 0, h.ClientCount())

	// Queued message is still delivered before the close
	data, ok := <-c.send
	assert.True(t, ok)
	assert.Contains(t, string(data), `"value":1`)
	_, ok = <-c.send
	assert.False(t, ok)
}

// ============================================================
// Request Tests
// ============================================================

func TestRequests(t *testing.T) {
	for _, sub := range []string{message.SubprotocolJSON, message.SubprotocolCBOR} {
		t.Run(sub, func(t *testing.T) {
			ts := newTestServer(t)
			conn := ts.dial(t, sub)
			codec, err := message.CodecFor(sub)
			require.NoError(t, err)

			// Malformed requests are ignored
			require.NoError(t, conn.WriteMessage(codec.FrameType(), []byte{0xFF, 0x00}))

			data, err := codec.Marshal(message.Request{Type: "fader", Target: "auxsend", Num: 3, Num2: 2, Value: 700})
			require.NoError(t, err)
			require.NoError(t, conn.WriteMessage(codec.FrameType(), data))

			select {
			case req := <-ts.requests:
				assert.Equal(t, "fader", req.Type)
				assert.Equal(t, "auxsend", req.Target)
				assert.Equal(t, 3, req.Num)
				assert.Equal(t, 2, req.Num2)
				v, err := req.FaderValue()
				require.NoError(t, err)
				assert.Equal(t, 700, v)
			case <-time.After(5 * time.Second):
				t.Fatal("request not received")
			}
		})
	}
}

// ============================================================
// Lifecycle Tests
// ============================================================

func TestClientDisconnect(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "")

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = conn.Close()

	assert.Eventually(t, func() bool {
		return ts.hub.ClientCount() == 0
	}, 5*time.Second, 5*time.Millisecond)
}

func TestClose_DisconnectsClients(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "")

	ts.hub.Close()
	assert.Equal(t, 0, ts.hub.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure),
		"unexpected error: %v", err)
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.dial(t, "")

	resp, err := http.Get(ts.srv.URL + PathStatus)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var status Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, 1, status.Clients)
	require.NotNil(t, status.Statistics)
}
