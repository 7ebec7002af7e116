// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sysex

import (
	"errors"
	"fmt"
)

// Point failures of a single frame or request. None of them affects the
// handling of later messages.
var (
	// ErrUnrecognizedFrame: the frame matches no known header or element code
	ErrUnrecognizedFrame = errors.New("sysex: unrecognized frame")

	// ErrTruncatedMeterEcho: a meter-class frame shorter than MeterMinLength,
	// which is the echo of a meter request
	ErrTruncatedMeterEcho = errors.New("sysex: truncated meter echo")

	// ErrMeterThrottled: a meter snapshot withheld by the meter throttle
	ErrMeterThrottled = errors.New("sysex: meter snapshot throttled")

	// ErrFragmentOverrun: a continuation chunk reached ChunkSize while a
	// fragment was pending
	ErrFragmentOverrun = errors.New("sysex: fragment overrun")
)

// RangeError reports a client request addressing an index, aux send slot or
// value outside the console layout
type RangeError struct {
	Family Family
	Field  string // "index", "slot" or "value"
	Value  int
	Min    int
	Max    int
}

// Error implements the error interface
func (e *RangeError) Error() string {
	return fmt.Sprintf("sysex: %s %s %d out of range [%d, %d]", e.Family, e.Field, e.Value, e.Min, e.Max)
}
