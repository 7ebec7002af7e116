// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sysex

import (
	"bytes"
	"fmt"
)

// Header selects one of the two frame headers
type Header uint8

// Header values
const (
	Generic Header = iota
	Specific
)

// Bytes returns the four header bytes
func (h Header) Bytes() []byte {
	if h == Specific {
		return headerSpecific[:]
	}
	return headerGeneric[:]
}

// SubFunction returns the sub-function byte paired with the header
func (h Header) SubFunction() byte {
	if h == Specific {
		return SubFunctionSpecific
	}
	return SubFunctionGeneric
}

func (h Header) String() string {
	if h == Specific {
		return "specific"
	}
	return "generic"
}

// MatchHeader reports which header a frame starts with
func MatchHeader(frame []byte) (Header, bool) {
	switch {
	case bytes.HasPrefix(frame, headerSpecific[:]):
		return Specific, true
	case bytes.HasPrefix(frame, headerGeneric[:]):
		return Generic, true
	}
	return 0, false
}

// 10 bit fader values are transmitted in four bytes:
// 00000000 00000000 00000nnn 0nnnnnnn

// FaderToWire encodes a fader value in [FaderMin, FaderMax]
func FaderToWire(v uint16) [PayloadSize]byte {
	return [PayloadSize]byte{0, 0, byte(v >> 7), byte(v & 0x7F)}
}

// WireToFader decodes a fader payload
func WireToFader(data [PayloadSize]byte) uint16 {
	return uint16(data[2])<<7 + uint16(data[3])
}

// OnOffToWire encodes an on/off value; the last byte is 1 or 0
func OnOffToWire(on bool) [PayloadSize]byte {
	var data [PayloadSize]byte
	if on {
		data[3] = 1
	}
	return data
}

// WireToOnOff decodes an on/off payload
func WireToOnOff(data [PayloadSize]byte) bool {
	return data[3] != 0
}

// AuxSendSecondary returns the secondary parameter byte addressing an aux
// send slot (1-based)
func AuxSendSecondary(slot int) byte {
	return byte(3*slot - 1)
}

// AuxSendSlot is the inverse of AuxSendSecondary. Secondary values not of
// the form 3k-1 do not address a slot.
func AuxSendSlot(secondary byte) int {
	return (int(secondary) + 1) / 3
}

// BuildFrame assembles a parameter frame. The sub-function byte always
// matches the header. A nil payload builds a request frame.
func BuildFrame(h Header, elementCode, secondary, index byte, payload []byte) []byte {
	frame := make([]byte, 0, offsetPayload+len(payload)+1)
	frame = append(frame, h.Bytes()...)
	frame = append(frame, h.SubFunction(), ClassParameter, elementCode, secondary, index)
	frame = append(frame, payload...)
	frame = append(frame, EndByte)
	return frame
}

// BuildParameterChange builds a device-specific parameter change frame
func BuildParameterChange(elementCode, secondary, index byte, payload [PayloadSize]byte) []byte {
	return BuildFrame(Specific, elementCode, secondary, index, payload[:])
}

// BuildParameterRequest builds a generic parameter request frame
func BuildParameterRequest(elementCode, secondary, index byte) []byte {
	return BuildFrame(Generic, elementCode, secondary, index, nil)
}

// RemoteMeterRequest returns the request that arms the console's meter
// stream. The console sends snapshots every 50 ms and stops unless the
// request is repeated within 10 seconds.
func RemoteMeterRequest() []byte {
	return []byte{
		0xF0, 0x43, 0x30, 0x3E,
		0x0D,
		ClassRemoteMeter,
		0x00, // address UL
		0x00, // address LU
		0x00, // address LL
		0x00, // count H
		MeterChannels,
		EndByte,
	}
}

// payloadAt extracts the 4-byte value payload of a parameter frame
func payloadAt(frame []byte) ([PayloadSize]byte, error) {
	var data [PayloadSize]byte
	if len(frame) < offsetPayload+PayloadSize {
		return data, fmt.Errorf("parameter frame too short: %d bytes", len(frame))
	}
	copy(data[:], frame[offsetPayload:offsetPayload+PayloadSize])
	return data, nil
}

// Address locates a parameter on the console
type Address struct {
	Code      byte
	Secondary byte
	Index     byte
}

// ParseAddress reads the parameter address of a parameter-class frame
func ParseAddress(frame []byte) (Address, bool) {
	if _, ok := MatchHeader(frame); !ok || len(frame) <= offsetIndex {
		return Address{}, false
	}
	if frame[offsetClass] != ClassParameter {
		return Address{}, false
	}
	return Address{
		Code:      frame[offsetElement],
		Secondary: frame[offsetSecondary],
		Index:     frame[offsetIndex],
	}, true
}

// ParsePayload returns the value payload of a parameter-change frame
func ParsePayload(frame []byte) ([PayloadSize]byte, error) {
	return payloadAt(frame)
}

// FrameClass returns the message class byte of a frame with a known header
func FrameClass(frame []byte) (byte, bool) {
	if _, ok := MatchHeader(frame); !ok || len(frame) <= offsetClass {
		return 0, false
	}
	return frame[offsetClass], true
}

// BuildMeterFrame builds a remote meter snapshot as the console sends it:
// one level byte and one padding byte per channel.
func BuildMeterFrame(levels Levels) []byte {
	frame := make([]byte, 0, offsetPayload+2*MeterChannels+1)
	frame = append(frame, headerSpecific[:]...)
	frame = append(frame, SubFunctionSpecific, ClassRemoteMeter, 0, 0, 0)
	for _, l := range levels {
		frame = append(frame, l&0x7F, 0)
	}
	return append(frame, EndByte)
}

// BuildProgramChange builds the notification the console sends after a
// scene recall
func BuildProgramChange(program byte) []byte {
	frame := make([]byte, 0, offsetPayload+1)
	frame = append(frame, headerSpecific[:]...)
	frame = append(frame, SubFunctionSpecific, ClassProgramChange, 0, 0, program&0x7F)
	return append(frame, EndByte)
}
