// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sysex

// Reassembler joins SysEx frames that the transport split at ChunkSize.
//
// At most one fragment is held. A frame is only ever split into two chunks;
// a second chunk that itself reaches ChunkSize is dropped with
// ErrFragmentOverrun and the held fragment stays until the next unrelated
// chunk replaces or clears it.
//
// A Reassembler is not safe for concurrent use. Consecutive chunks must be
// fed in arrival order from a single goroutine.
type Reassembler struct {
	pending  []byte
	overruns uint64
}

// NewReassembler creates an empty reassembler
func NewReassembler() *Reassembler {
	return &Reassembler{}
}

// Feed processes one transport chunk.
// Returns the complete frame, or nil if the frame is incomplete.
// Returns ErrFragmentOverrun when a continuation chunk is oversized.
// An empty chunk yields nothing and discards any held fragment.
func (r *Reassembler) Feed(chunk []byte) ([]byte, error) {
	switch {
	case len(chunk) == ChunkSize && chunk[0] == StartByte:
		r.pending = append(r.pending[:0], chunk...)
		return nil, nil

	case r.pending != nil && len(chunk) > 0 && chunk[len(chunk)-1] == EndByte:
		frame := make([]byte, 0, len(r.pending)+len(chunk))
		frame = append(frame, r.pending...)
		frame = append(frame, chunk...)
		r.pending = nil
		return frame, nil

	case r.pending != nil && len(chunk) == ChunkSize:
		r.overruns++
		return nil, ErrFragmentOverrun

	default:
		r.pending = nil
		if len(chunk) == 0 {
			return nil, nil
		}
		return chunk, nil
	}
}

// Pending reports whether a fragment is held
func (r *Reassembler) Pending() bool {
	return r.pending != nil
}

// Overruns returns the number of oversized continuation chunks dropped
func (r *Reassembler) Overruns() uint64 {
	return r.overruns
}

// Reset discards any held fragment
func (r *Reassembler) Reset() {
	r.pending = nil
}
