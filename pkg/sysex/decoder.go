// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sysex

import "time"

// EventKind classifies a decoded frame
type EventKind int

// Event kinds
const (
	// EventUnrecognized: unknown header, class or element code. Reason is
	// ErrUnrecognizedFrame.
	EventUnrecognized EventKind = iota

	// EventControl: a fader or on/off parameter value
	EventControl

	// EventLevels: a forwarded meter snapshot
	EventLevels

	// EventResync: the console changed program; every parameter must be
	// requested again
	EventResync

	// EventDropped: a meter-class frame that produces nothing. Reason is
	// ErrTruncatedMeterEcho or ErrMeterThrottled.
	EventDropped
)

func (k EventKind) String() string {
	switch k {
	case EventUnrecognized:
		return "UNRECOGNIZED"
	case EventControl:
		return "CONTROL"
	case EventLevels:
		return "LEVELS"
	case EventResync:
		return "RESYNC"
	case EventDropped:
		return "DROPPED"
	}
	return "UNKNOWN"
}

// Control is a decoded parameter value
type Control struct {
	Element Element

	// Index is 1-based; the sum has index 0
	Index int

	// AuxSlot is the aux send slot (1-based) for the aux-send family
	AuxSlot int

	// Fader holds the value of fader elements, On the value of on/off elements
	Fader uint16
	On    bool
}

// Value returns the control value as int (fader) or bool (on/off)
func (c Control) Value() interface{} {
	if c.Element.Kind == KindOn {
		return c.On
	}
	return int(c.Fader)
}

// Levels is a meter snapshot; Levels[i] is the level of channel i+1
type Levels [MeterChannels]uint8

// Event is the result of decoding one frame
type Event struct {
	Kind      EventKind
	Control   Control
	Levels    Levels
	Reason    error
	Frame     []byte
	Timestamp time.Time
}

// Decoder classifies complete frames from the console.
// Meter snapshots pass through the decoder's MeterThrottle.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	throttle *MeterThrottle
}

// NewDecoder creates a decoder that forwards meter snapshots through throttle.
// A nil throttle forwards every snapshot.
func NewDecoder(throttle *MeterThrottle) *Decoder {
	if throttle == nil {
		throttle = NewMeterThrottle(1)
	}
	return &Decoder{throttle: throttle}
}

// Throttle returns the decoder's meter throttle
func (d *Decoder) Throttle() *MeterThrottle {
	return d.throttle
}

// Decode classifies a complete frame. Decoding never fails; frames that
// cannot be interpreted yield EventUnrecognized.
func (d *Decoder) Decode(frame []byte) Event {
	ev := Event{Frame: frame, Timestamp: time.Now()}

	if _, ok := MatchHeader(frame); !ok || len(frame) <= offsetClass {
		return unrecognized(ev)
	}

	switch frame[offsetClass] {
	case ClassProgramChange:
		ev.Kind = EventResync
		return ev

	case ClassRemoteMeter:
		return d.decodeMeter(ev)
	}

	return decodeParameter(ev)
}

// decodeMeter builds a level snapshot from a meter-class frame
func (d *Decoder) decodeMeter(ev Event) Event {
	frame := ev.Frame

	// Echoes of meter requests carry the meter class too
	if len(frame) < MeterMinLength {
		ev.Kind = EventDropped
		ev.Reason = ErrTruncatedMeterEcho
		return ev
	}

	if !d.throttle.Allow() {
		ev.Kind = EventDropped
		ev.Reason = ErrMeterThrottled
		return ev
	}

	ev.Kind = EventLevels
	for i := 0; i < MeterChannels; i++ {
		off := offsetPayload + 2*i
		if off < len(frame) {
			ev.Levels[i] = frame[off]
		}
	}
	return ev
}

// decodeParameter decodes a fader or on/off parameter frame
func decodeParameter(ev Event) Event {
	frame := ev.Frame
	if len(frame) <= offsetIndex {
		return unrecognized(ev)
	}

	elem, ok := LookupElement(frame[offsetElement])
	if !ok {
		return unrecognized(ev)
	}

	payload, err := payloadAt(frame)
	if err != nil {
		return unrecognized(ev)
	}

	c := Control{Element: elem}
	switch elem.Family {
	case FamilySum:
		c.Index = 0
	case FamilyAuxSend:
		c.Index = int(frame[offsetIndex]) + 1
		c.AuxSlot = AuxSendSlot(frame[offsetSecondary])
	default:
		c.Index = int(frame[offsetIndex]) + 1
	}

	switch elem.Kind {
	case KindFader:
		c.Fader = WireToFader(payload)
	case KindOn:
		c.On = WireToOnOff(payload)
	}

	ev.Kind = EventControl
	ev.Control = c
	return ev
}

func unrecognized(ev Event) Event {
	ev.Kind = EventUnrecognized
	ev.Reason = ErrUnrecognizedFrame
	return ev
}
