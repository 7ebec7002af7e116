// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sysex

// MeterThrottle forwards every Nth meter snapshot
type MeterThrottle struct {
	interval int
	count    int
}

// NewMeterThrottle creates a throttle forwarding one of every interval
// snapshots. An interval below 1 forwards every snapshot.
func NewMeterThrottle(interval int) *MeterThrottle {
	if interval < 1 {
		interval = 1
	}
	return &MeterThrottle{interval: interval}
}

// Allow counts one candidate snapshot and reports whether to forward it.
// The first interval-1 candidates of each cycle are dropped.
func (t *MeterThrottle) Allow() bool {
	t.count++
	if t.count == t.interval {
		t.count = 0
	}
	return t.count == 0
}

// Interval returns the configured interval
func (t *MeterThrottle) Interval() int {
	return t.interval
}

// Reset restarts the cycle
func (t *MeterThrottle) Reset() {
	t.count = 0
}
