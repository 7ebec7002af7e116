// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"bufio"
	"fmt"
	"io"

	"github.com/bojanbass/01v96-remote/pkg/sysex"
	"go.bug.st/serial"
)

// DefaultMIDIBaud is the standard MIDI baud rate
const DefaultMIDIBaud = 31250

// SerialConnection reads SysEx chunks from a MIDI serial port
type SerialConnection struct {
	port    serial.Port
	scanner *bufio.Scanner
}

// OpenSerial opens a MIDI serial port (8N1)
func OpenSerial(portName string, baudRate int) (*SerialConnection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	return newSerialConnection(port), nil
}

func newSerialConnection(port serial.Port) *SerialConnection {
	return &SerialConnection{
		port:    port,
		scanner: newChunkScanner(port),
	}
}

func newChunkScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4*sysex.ChunkSize), 16*sysex.ChunkSize)
	scanner.Split(SplitSysEx(sysex.ChunkSize))
	return scanner
}

// ReadChunk returns the next SysEx chunk from the port
func (s *SerialConnection) ReadChunk() ([]byte, error) {
	if s.scanner.Scan() {
		chunk := make([]byte, len(s.scanner.Bytes()))
		copy(chunk, s.scanner.Bytes())
		return chunk, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, ErrConnectionClosed
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}
