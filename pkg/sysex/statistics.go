// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sysex

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Counters is a point-in-time copy of Statistics
type Counters struct {
	StartTime time.Time `json:"start_time"`

	TotalFrames   uint64 `json:"total_frames"`
	Controls      uint64 `json:"controls"`
	Levels        uint64 `json:"levels"`
	Resyncs       uint64 `json:"resyncs"`
	Throttled     uint64 `json:"throttled"`
	MeterEchoes   uint64 `json:"meter_echoes"`
	Unrecognized  uint64 `json:"unrecognized"`
	Overruns      uint64 `json:"overruns"`
	RangeErrors   uint64 `json:"range_errors"`
	FramesSent    uint64 `json:"frames_sent"`
	SyncRequests  uint64 `json:"sync_requests"`
	MeterRequests uint64 `json:"meter_requests"`

	FrameRate float64 `json:"frame_rate"`
}

// Statistics tracks frame counts and rates. It is safe for concurrent use.
type Statistics struct {
	mu sync.Mutex
	c  Counters
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{c: Counters{StartTime: time.Now()}}
}

// Update counts one decoded frame
func (s *Statistics) Update(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.c.TotalFrames++
	switch ev.Kind {
	case EventControl:
		s.c.Controls++
	case EventLevels:
		s.c.Levels++
	case EventResync:
		s.c.Resyncs++
	case EventUnrecognized:
		s.c.Unrecognized++
	case EventDropped:
		if errors.Is(ev.Reason, ErrMeterThrottled) {
			s.c.Throttled++
		} else {
			s.c.MeterEchoes++
		}
	}
}

// CountOverrun counts one dropped continuation chunk
func (s *Statistics) CountOverrun() {
	s.mu.Lock()
	s.c.Overruns++
	s.mu.Unlock()
}

// CountRangeError counts one rejected client request
func (s *Statistics) CountRangeError() {
	s.mu.Lock()
	s.c.RangeErrors++
	s.mu.Unlock()
}

// CountSent counts frames written to the console
func (s *Statistics) CountSent(n int) {
	s.mu.Lock()
	s.c.FramesSent += uint64(n)
	s.mu.Unlock()
}

// CountSync counts one full sync
func (s *Statistics) CountSync() {
	s.mu.Lock()
	s.c.SyncRequests++
	s.mu.Unlock()
}

// CountMeterRequest counts one remote meter re-arm
func (s *Statistics) CountMeterRequest() {
	s.mu.Lock()
	s.c.MeterRequests++
	s.mu.Unlock()
}

// Snapshot returns a copy of the counters with the frame rate calculated
func (s *Statistics) Snapshot() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.c
	elapsed := time.Since(c.StartTime).Seconds()
	if elapsed > 0 {
		c.FrameRate = float64(c.TotalFrames) / elapsed
	}
	return c
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	c := s.Snapshot()
	elapsed := time.Since(c.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", c.TotalFrames)
	result += fmt.Sprintf("Controls:        %8d\n", c.Controls)
	result += fmt.Sprintf("Meter Levels:    %8d (%d throttled)\n", c.Levels, c.Throttled)
	if c.Resyncs > 0 {
		result += fmt.Sprintf("Program Changes: %8d\n", c.Resyncs)
	}
	if c.Unrecognized > 0 {
		result += fmt.Sprintf("Unrecognized:    %8d\n", c.Unrecognized)
	}
	if c.Overruns > 0 {
		result += fmt.Sprintf("Overruns:        %8d\n", c.Overruns)
	}
	if c.RangeErrors > 0 {
		result += fmt.Sprintf("Range Errors:    %8d\n", c.RangeErrors)
	}
	result += fmt.Sprintf("Frames Sent:     %8d\n", c.FramesSent)
	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", c.FrameRate)
	result += "================================\n"

	return result
}
