// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport provides the byte transports that connect the bridge to
// the console: a MIDI serial port, an OS MIDI port, a WebSocket byte bridge
// and a virtual console for testing.
//
// Every transport delivers SysEx data in chunks of at most sysex.ChunkSize
// bytes. Longer frames arrive split across consecutive chunks.
package transport

import (
	"errors"
	"io"
)

// Connection reads chunks from and writes frames to a console
type Connection interface {
	// ReadChunk blocks until the next chunk arrives
	ReadChunk() ([]byte, error)
	io.Writer
	io.Closer
}

// ErrConnectionClosed is returned when reading from a closed connection
var ErrConnectionClosed = errors.New("connection closed")
