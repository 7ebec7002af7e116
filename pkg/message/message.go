// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package message defines the messages exchanged with remote clients.
//
// Clients send requests:
//
//	{"type": "fader"|"on"|"sync", "target": "channel"|"aux"|"bus"|"sum"|"auxsend",
//	 "num": 1, "num2": 1, "value": 512|true}
//
// and receive control events of the same shape plus level events:
//
//	{"type": "level", "levels": {"1": 12, ..., "32": 0}}
//
// num2 is the aux send slot and only present for the auxsend target.
package message

import (
	"fmt"
	"strconv"

	"github.com/bojanbass/01v96-remote/pkg/sysex"
)

// Message types
const (
	TypeFader = "fader"
	TypeOn    = "on"
	TypeSync  = "sync"
	TypeLevel = "level"
)

// Request is a client control request
type Request struct {
	Type   string      `json:"type" cbor:"type"`
	Target string      `json:"target,omitempty" cbor:"target,omitempty"`
	Num    int         `json:"num" cbor:"num"`
	Num2   int         `json:"num2,omitempty" cbor:"num2,omitempty"`
	Value  interface{} `json:"value" cbor:"value"`
}

// Event is a control value broadcast to clients
type Event struct {
	Type   string      `json:"type" cbor:"type"`
	Target string      `json:"target" cbor:"target"`
	Num    int         `json:"num" cbor:"num"`
	Num2   int         `json:"num2,omitempty" cbor:"num2,omitempty"`
	Value  interface{} `json:"value" cbor:"value"`
}

// LevelEvent is a meter snapshot broadcast to clients, keyed "1".."32"
type LevelEvent struct {
	Type   string         `json:"type" cbor:"type"`
	Levels map[string]int `json:"levels" cbor:"levels"`
}

// Envelope decodes any event received from the bridge
type Envelope struct {
	Type   string         `json:"type" cbor:"type"`
	Target string         `json:"target,omitempty" cbor:"target,omitempty"`
	Num    int            `json:"num" cbor:"num"`
	Num2   int            `json:"num2,omitempty" cbor:"num2,omitempty"`
	Value  interface{}    `json:"value,omitempty" cbor:"value,omitempty"`
	Levels map[string]int `json:"levels,omitempty" cbor:"levels,omitempty"`
}

// FromControl converts a decoded control into a client event
func FromControl(c sysex.Control) Event {
	ev := Event{
		Type:   c.Element.Kind.String(),
		Target: c.Element.Family.String(),
		Num:    c.Index,
		Value:  c.Value(),
	}
	if c.Element.Family == sysex.FamilyAuxSend {
		ev.Num2 = c.AuxSlot
	}
	return ev
}

// FromLevels converts a meter snapshot into a client level event
func FromLevels(l sysex.Levels) LevelEvent {
	levels := make(map[string]int, len(l))
	for i, v := range l {
		levels[strconv.Itoa(i+1)] = int(v)
	}
	return LevelEvent{Type: TypeLevel, Levels: levels}
}

// FaderValue returns the request value as a fader position.
// JSON numbers decode as float64, CBOR integers as uint64 or int64.
func (r Request) FaderValue() (int, error) {
	return faderValue(r.Value)
}

// OnValue returns the request value as an on/off state
func (r Request) OnValue() (bool, error) {
	return onValue(r.Value)
}

// FaderValue returns the event value as a fader position
func (e Envelope) FaderValue() (int, error) {
	return faderValue(e.Value)
}

// OnValue returns the event value as an on/off state
func (e Envelope) OnValue() (bool, error) {
	return onValue(e.Value)
}

func faderValue(v interface{}) (int, error) {
	switch val := v.(type) {
	case float64:
		if val != float64(int(val)) {
			return 0, fmt.Errorf("fader value %v is not an integer", val)
		}
		return int(val), nil
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case uint64:
		if val > uint64(sysex.FaderMax) {
			return 0, fmt.Errorf("fader value %d out of range", val)
		}
		return int(val), nil
	case nil:
		return 0, fmt.Errorf("missing fader value")
	}
	return 0, fmt.Errorf("expected number for fader value, got %T", v)
}

func onValue(v interface{}) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case float64:
		return val != 0, nil
	case int:
		return val != 0, nil
	case int64:
		return val != 0, nil
	case uint64:
		return val != 0, nil
	case nil:
		return false, fmt.Errorf("missing on value")
	}
	return false, fmt.Errorf("expected bool for on value, got %T", v)
}
