// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sysex

import "iter"

// syncOrder is the element enumeration order of a full sync. Aux sends are
// requested separately, per slot.
var syncOrder = []byte{
	CodeChannelFader,
	CodeSumFader,
	CodeAuxFader,
	CodeBusFader,
	CodeChannelOn,
	CodeSumOn,
	CodeAuxOn,
	CodeBusOn,
}

// Sequencer enumerates a parameter request for every addressable control.
// Replies arrive asynchronously as ordinary parameter frames.
type Sequencer struct {
	layout Layout
}

// NewSequencer creates a sequencer for the given layout
func NewSequencer(layout Layout) *Sequencer {
	return &Sequencer{layout: layout}
}

// FullSync yields one request frame per parameter address, family by family
// in ascending index order, followed by the aux send faders of every slot.
func (s *Sequencer) FullSync() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for _, code := range syncOrder {
			elem, _ := LookupElement(code)
			limit := s.layout.Count(elem.Family)
			for i := 0; i < limit; i++ {
				if !yield(BuildParameterRequest(code, 0, byte(i))) {
					return
				}
			}
		}

		for slot := 1; slot <= s.layout.AuxSends; slot++ {
			secondary := AuxSendSecondary(slot)
			for ch := 0; ch < s.layout.Channels; ch++ {
				if !yield(BuildParameterRequest(CodeAuxSendFader, secondary, byte(ch))) {
					return
				}
			}
		}
	}
}

// RequestCount returns the number of frames FullSync yields
func (s *Sequencer) RequestCount() int {
	l := s.layout
	return 2*l.Channels + 2 + 2*l.Auxes + 2*l.Buses + l.AuxSends*l.Channels
}
