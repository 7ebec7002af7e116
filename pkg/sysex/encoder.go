// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sysex

// Encoder validates client commands against a console layout and encodes
// them as parameter change frames.
type Encoder struct {
	layout Layout
}

// NewEncoder creates an encoder for the given layout
func NewEncoder(layout Layout) *Encoder {
	return &Encoder{layout: layout}
}

// Layout returns the encoder's console layout
func (e *Encoder) Layout() Layout {
	return e.layout
}

// SetFader encodes a fader move.
// index is 1-based and ignored for the sum. auxSlot is only used for the
// aux-send family, where index is the channel.
// Returns a *RangeError if index, auxSlot or value is out of range.
func (e *Encoder) SetFader(f Family, index, auxSlot, value int) ([]byte, error) {
	elem, ok := ElementFor(f, KindFader)
	if !ok {
		return nil, &RangeError{Family: f, Field: "family", Value: int(f)}
	}

	var secondary byte
	if f == FamilyAuxSend {
		if err := checkRange(f, "slot", auxSlot, 1, e.layout.AuxSends); err != nil {
			return nil, err
		}
		secondary = AuxSendSecondary(auxSlot)
	}

	idx, err := e.wireIndex(f, index)
	if err != nil {
		return nil, err
	}

	if err := checkRange(f, "value", value, FaderMin, FaderMax); err != nil {
		return nil, err
	}

	return BuildParameterChange(elem.Code, secondary, idx, FaderToWire(uint16(value))), nil
}

// SetOnOff encodes an on/off switch.
// The aux-send family shares the channel on/off control: an aux-send on/off
// command addresses the channel's on/off element.
func (e *Encoder) SetOnOff(f Family, index int, on bool) ([]byte, error) {
	if f == FamilyAuxSend {
		f = FamilyChannel
	}

	elem, ok := ElementFor(f, KindOn)
	if !ok {
		return nil, &RangeError{Family: f, Field: "family", Value: int(f)}
	}

	idx, err := e.wireIndex(f, index)
	if err != nil {
		return nil, err
	}

	return BuildParameterChange(elem.Code, 0, idx, OnOffToWire(on)), nil
}

// wireIndex validates a 1-based index and returns the zero-based wire index
func (e *Encoder) wireIndex(f Family, index int) (byte, error) {
	if f == FamilySum {
		return 0, nil
	}
	if err := checkRange(f, "index", index, 1, e.layout.Count(f)); err != nil {
		return 0, err
	}
	return byte(index - 1), nil
}

func checkRange(f Family, field string, v, min, max int) error {
	if v < min || v > max {
		return &RangeError{Family: f, Field: field, Value: v, Min: min, Max: max}
	}
	return nil
}
