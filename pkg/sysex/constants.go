// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sysex implements the System Exclusive control protocol of the
// Yamaha 01V96 digital mixing console.
//
// The package covers the fixed message vocabulary of the console's remote
// control surface: fader and on/off parameters for channels, aux sends, aux
// and bus masters and the stereo sum, the remote meter stream, and the
// program-change notification. It provides frame reassembly, a stateless
// parameter codec, a decoder for console frames, an encoder for client
// commands and the full-state request sequence.
package sysex

// Framing bytes
const (
	StartByte = 0xF0
	EndByte   = 0xF7
)

// Frame header bytes. The generic header is used for parameter requests,
// the device-specific header for parameter changes.
var (
	headerGeneric  = [HeaderSize]byte{0xF0, 0x43, 0x30, 0x3E}
	headerSpecific = [HeaderSize]byte{0xF0, 0x43, 0x10, 0x3E}
)

// HeaderSize is the length of both frame headers
const HeaderSize = 4

// Sub-function byte (offset 4)
const (
	SubFunctionSpecific = 13
	SubFunctionGeneric  = 127
)

// Message class byte (offset 5)
const (
	ClassParameter     = 1
	ClassProgramChange = 16
	ClassRemoteMeter   = 33
)

// Byte offsets within a frame
const (
	offsetSubFunction = 4
	offsetClass       = 5
	offsetElement     = 6
	offsetSecondary   = 7
	offsetIndex       = 8
	offsetPayload     = 9
)

// Size limits
const (
	// ChunkSize is the transport delivery limit. A SysEx frame reaching
	// this size without a terminator continues in the next chunk.
	ChunkSize = 1024

	// PayloadSize is the width of an encoded parameter value.
	PayloadSize = 4

	// ParameterFrameSize is the length of a parameter-change frame.
	ParameterFrameSize = offsetPayload + PayloadSize + 1

	// RequestFrameSize is the length of a parameter-request frame.
	RequestFrameSize = offsetPayload + 1

	// MeterMinLength is the shortest frame accepted as a meter snapshot.
	// Shorter class-33 frames are echoes of our own meter requests.
	MeterMinLength = 71

	// MeterChannels is the number of channel levels in a meter snapshot.
	MeterChannels = 32
)

// Fader range (10 bit)
const (
	FaderMin = 0
	FaderMax = 1023
)

// Default console layout
const (
	DefaultChannels = 32
	DefaultAuxes    = 8
	DefaultAuxSends = 2
	DefaultBuses    = 8
)

// DefaultMeterInterval forwards every 4th meter snapshot. The console sends
// one every 50 ms.
const DefaultMeterInterval = 4
