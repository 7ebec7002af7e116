// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"fmt"
	"strings"
	"sync"

	"github.com/bojanbass/01v96-remote/pkg/sysex"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// MIDIConnection talks to the console through OS MIDI ports (USB MIDI
// interfaces, the console's own USB port)
type MIDIConnection struct {
	drv    *rtmididrv.Driver
	in     drivers.In
	out    drivers.Out
	stopFn func()

	chunks    chan []byte
	errs      chan error
	done      chan struct{}
	closeOnce sync.Once
}

// OpenMIDI opens the first input and output ports whose names contain the
// given patterns (case-insensitive). An empty pattern selects the first port.
func OpenMIDI(inPattern, outPattern string) (*MIDIConnection, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}

	ins, err := drv.Ins()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("list MIDI inputs: %w", err)
	}
	outs, err := drv.Outs()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("list MIDI outputs: %w", err)
	}

	in, err := findPort(ins, inPattern)
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("MIDI input: %w", err)
	}
	out, err := findPort(outs, outPattern)
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("MIDI output: %w", err)
	}

	if err := out.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("open %q: %w", out.String(), err)
	}

	m := &MIDIConnection{
		drv:    drv,
		in:     in,
		out:    out,
		chunks: make(chan []byte, 512),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}

	stop, err := midi.ListenTo(in, m.handleMessage,
		midi.UseSysEx(),
		midi.SysExBufferSize(sysex.ChunkSize),
		midi.HandleError(func(listenErr error) {
			select {
			case m.errs <- listenErr:
			default:
			}
		}),
	)
	if err != nil {
		_ = out.Close()
		drv.Close()
		return nil, fmt.Errorf("listen %q: %w", in.String(), err)
	}
	m.stopFn = stop

	return m, nil
}

// handleMessage forwards SysEx messages; channel messages are ignored
func (m *MIDIConnection) handleMessage(msg midi.Message, _ int32) {
	if len(msg) == 0 || msg[0] != sysex.StartByte {
		return
	}
	chunk := make([]byte, len(msg))
	copy(chunk, msg)
	select {
	case m.chunks <- chunk:
	case <-m.done:
	default:
		// Reader is not keeping up; drop rather than block the driver
	}
}

// ReadChunk returns the next SysEx message from the input port
func (m *MIDIConnection) ReadChunk() ([]byte, error) {
	select {
	case chunk := <-m.chunks:
		return chunk, nil
	case err := <-m.errs:
		return nil, err
	case <-m.done:
		return nil, ErrConnectionClosed
	}
}

func (m *MIDIConnection) Write(p []byte) (int, error) {
	if err := m.out.Send(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (m *MIDIConnection) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
		if m.stopFn != nil {
			m.stopFn()
		}
		_ = m.in.Close()
		_ = m.out.Close()
		m.drv.Close()
	})
	return nil
}

// PortNames returns the input port name and output port name
func (m *MIDIConnection) PortNames() (string, string) {
	return m.in.String(), m.out.String()
}

// findPort picks the first port whose name contains pattern
func findPort[P interface{ String() string }](ports []P, pattern string) (P, error) {
	var zero P
	if len(ports) == 0 {
		return zero, fmt.Errorf("no ports available")
	}
	if pattern == "" {
		return ports[0], nil
	}
	for _, p := range ports {
		if containsCI(p.String(), pattern) {
			return p, nil
		}
	}
	return zero, fmt.Errorf("no port matching %q", pattern)
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
