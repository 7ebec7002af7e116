// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"sync"
	"time"

	"github.com/bojanbass/01v96-remote/pkg/sysex"
)

// Virtual console meter timing, matching the hardware
const (
	VirtualMeterPeriod = 50 * time.Millisecond
	VirtualMeterWindow = 10 * time.Second
)

// VirtualConsole is an in-process stand-in for the mixer. It keeps
// parameter state, answers parameter requests, applies parameter changes
// and streams meter snapshots after each remote meter request.
type VirtualConsole struct {
	layout sysex.Layout

	mu          sync.Mutex
	params      map[sysex.Address][sysex.PayloadSize]byte
	meterPeriod time.Duration
	meterWindow time.Duration
	meterUntil  time.Time
	metering    bool
	received    int

	chunks    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewVirtualConsole creates a virtual console with every fader at 0 and
// every channel switched on
func NewVirtualConsole(layout sysex.Layout) *VirtualConsole {
	v := &VirtualConsole{
		layout:      layout,
		params:      make(map[sysex.Address][sysex.PayloadSize]byte),
		meterPeriod: VirtualMeterPeriod,
		meterWindow: VirtualMeterWindow,
		chunks:      make(chan []byte, 512),
		done:        make(chan struct{}),
	}

	on := sysex.OnOffToWire(true)
	for _, code := range []byte{sysex.CodeChannelOn, sysex.CodeAuxOn, sysex.CodeBusOn} {
		elem, _ := sysex.LookupElement(code)
		for i := 0; i < layout.Count(elem.Family); i++ {
			v.params[sysex.Address{Code: code, Index: byte(i)}] = on
		}
	}
	v.params[sysex.Address{Code: sysex.CodeSumOn}] = on

	return v
}

// SetMeterTiming overrides the meter snapshot period and the window a meter
// request keeps the stream alive
func (v *VirtualConsole) SetMeterTiming(period, window time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.meterPeriod = period
	v.meterWindow = window
}

// SetParameter stores a parameter value without notifying the reader
func (v *VirtualConsole) SetParameter(addr sysex.Address, payload [sysex.PayloadSize]byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.params[addr] = payload
}

// Parameter returns the stored value of a parameter
func (v *VirtualConsole) Parameter(addr sysex.Address) [sysex.PayloadSize]byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.params[addr]
}

// Received returns the number of frames written to the console
func (v *VirtualConsole) Received() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.received
}

// ProgramChange simulates a scene recall on the console surface
func (v *VirtualConsole) ProgramChange(program byte) {
	v.emit(sysex.BuildProgramChange(program))
}

// Inject delivers a raw chunk to the reader as if the console sent it
func (v *VirtualConsole) Inject(chunk []byte) {
	c := make([]byte, len(chunk))
	copy(c, chunk)
	v.emit(c)
}

// ReadChunk returns the next chunk sent by the console
func (v *VirtualConsole) ReadChunk() ([]byte, error) {
	select {
	case chunk := <-v.chunks:
		return chunk, nil
	case <-v.done:
		return nil, ErrConnectionClosed
	}
}

// Write handles one frame sent to the console
func (v *VirtualConsole) Write(p []byte) (int, error) {
	select {
	case <-v.done:
		return 0, ErrConnectionClosed
	default:
	}

	frame := make([]byte, len(p))
	copy(frame, p)

	v.mu.Lock()
	v.received++
	v.mu.Unlock()

	class, ok := sysex.FrameClass(frame)
	if !ok {
		return len(p), nil
	}

	switch class {
	case sysex.ClassRemoteMeter:
		// The console echoes meter requests
		v.emit(frame)
		v.armMeters()
	case sysex.ClassParameter:
		v.handleParameter(frame)
	}

	return len(p), nil
}

func (v *VirtualConsole) Close() error {
	v.closeOnce.Do(func() {
		close(v.done)
	})
	return nil
}

func (v *VirtualConsole) handleParameter(frame []byte) {
	addr, ok := sysex.ParseAddress(frame)
	if !ok {
		return
	}
	if _, known := sysex.LookupElement(addr.Code); !known {
		return
	}

	header, _ := sysex.MatchHeader(frame)
	if header == sysex.Generic && len(frame) == sysex.RequestFrameSize {
		v.emit(sysex.BuildParameterChange(addr.Code, addr.Secondary, addr.Index, v.Parameter(addr)))
		return
	}

	payload, err := sysex.ParsePayload(frame)
	if err != nil {
		return
	}
	v.SetParameter(addr, payload)
}

// armMeters extends the meter window and starts the stream if idle
func (v *VirtualConsole) armMeters() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.meterUntil = time.Now().Add(v.meterWindow)
	if v.metering {
		return
	}
	v.metering = true
	go v.streamMeters(v.meterPeriod)
}

func (v *VirtualConsole) streamMeters(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-v.done:
			return
		case now := <-ticker.C:
			v.mu.Lock()
			if now.After(v.meterUntil) {
				v.metering = false
				v.mu.Unlock()
				return
			}
			levels := v.levelsLocked()
			v.mu.Unlock()

			v.emit(sysex.BuildMeterFrame(levels))
		}
	}
}

// levelsLocked derives channel levels from channel faders and on switches
func (v *VirtualConsole) levelsLocked() sysex.Levels {
	var levels sysex.Levels
	for i := 0; i < sysex.MeterChannels && i < v.layout.Channels; i++ {
		addr := sysex.Address{Code: sysex.CodeChannelOn, Index: byte(i)}
		if !sysex.WireToOnOff(v.params[addr]) {
			continue
		}
		addr.Code = sysex.CodeChannelFader
		levels[i] = uint8(sysex.WireToFader(v.params[addr]) >> 3)
	}
	return levels
}

func (v *VirtualConsole) emit(chunk []byte) {
	select {
	case v.chunks <- chunk:
	case <-v.done:
	default:
		// Reader is not keeping up
	}
}
