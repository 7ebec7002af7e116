// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newEchoBridge serves a bridge that sends a text frame, then echoes binary frames
func newEchoBridge(t *testing.T, auth chan<- string) *httptest.Server {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ := r.BasicAuth()
		auth <- user + ":" + pass

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteMessage(websocket.TextMessage, []byte("hello"))
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURLOf(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocket_RoundTrip(t *testing.T) {
	auth := make(chan string, 1)
	srv := newEchoBridge(t, auth)

	conn, err := OpenWebSocket(wsURLOf(srv), "mixer", "secret", false)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "mixer:secret", <-auth)

	frame := []byte{0xF0, 0x43, 0x10, 0x3E, 0xF7}
	n, err := conn.Write(frame)
	require.NoError(t, err)
	assert.Equal(t, len(frame), n)

	// The text greeting is skipped
	chunk, err := conn.ReadChunk()
	require.NoError(t, err)
	assert.Equal(t, frame, chunk)
}

func TestWebSocket_NoCredentials(t *testing.T) {
	auth := make(chan string, 1)
	srv := newEchoBridge(t, auth)

	conn, err := OpenWebSocket(wsURLOf(srv), "mixer", "", false)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, ":", <-auth)
}

func TestWebSocket_ClosedAfterReadError(t *testing.T) {
	auth := make(chan string, 1)
	srv := newEchoBridge(t, auth)

	conn, err := OpenWebSocket(wsURLOf(srv), "", "", false)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	_, err = conn.ReadChunk()
	require.Error(t, err)
	_, err = conn.ReadChunk()
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestWebSocket_InvalidURL(t *testing.T) {
	for _, u := range []string{"http://mixer.local/ws", "mixer.local:8080", "://bad"} {
		_, err := OpenWebSocket(u, "", "", false)
		assert.Error(t, err, u)
	}
}
