// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sysex

import "fmt"

// Family is a class of addressable mixer controls
type Family uint8

// Family values
const (
	FamilyChannel Family = iota
	FamilyAux
	FamilyBus
	FamilySum
	FamilyAuxSend
)

var familyNames = [...]string{
	FamilyChannel: "channel",
	FamilyAux:     "aux",
	FamilyBus:     "bus",
	FamilySum:     "sum",
	FamilyAuxSend: "auxsend",
}

func (f Family) String() string {
	if int(f) < len(familyNames) {
		return familyNames[f]
	}
	return fmt.Sprintf("family(%d)", uint8(f))
}

// ParseFamily maps a client target name to a Family
func ParseFamily(s string) (Family, error) {
	for i, name := range familyNames {
		if name == s {
			return Family(i), nil
		}
	}
	return 0, fmt.Errorf("unknown target %q", s)
}

// Kind is the value kind carried by a control
type Kind uint8

// Kind values
const (
	KindFader Kind = iota
	KindOn
)

func (k Kind) String() string {
	switch k {
	case KindFader:
		return "fader"
	case KindOn:
		return "on"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps a client message type to a Kind
func ParseKind(s string) (Kind, error) {
	switch s {
	case "fader":
		return KindFader, nil
	case "on":
		return KindOn, nil
	}
	return 0, fmt.Errorf("unknown control type %q", s)
}

// Element codes (offset 6)
const (
	CodeChannelFader = 28
	CodeSumFader     = 79
	CodeAuxSendFader = 35
	CodeAuxFader     = 57
	CodeBusFader     = 43

	CodeChannelOn = 26
	CodeSumOn     = 77
	CodeAuxOn     = 54
	CodeBusOn     = 41
)

// Element identifies one (family, kind) control on the wire
type Element struct {
	Code   byte
	Family Family
	Kind   Kind
}

func (e Element) String() string {
	return e.Family.String() + "-" + e.Kind.String()
}

// elements lists every known element. The aux-send family has no on/off
// element of its own; its on/off state is the channel on/off.
var elements = []Element{
	{CodeChannelFader, FamilyChannel, KindFader},
	{CodeSumFader, FamilySum, KindFader},
	{CodeAuxSendFader, FamilyAuxSend, KindFader},
	{CodeAuxFader, FamilyAux, KindFader},
	{CodeBusFader, FamilyBus, KindFader},
	{CodeChannelOn, FamilyChannel, KindOn},
	{CodeSumOn, FamilySum, KindOn},
	{CodeAuxOn, FamilyAux, KindOn},
	{CodeBusOn, FamilyBus, KindOn},
}

type elementKey struct {
	family Family
	kind   Kind
}

var (
	elementsByCode = make(map[byte]Element, len(elements))
	elementsByKey  = make(map[elementKey]Element, len(elements))
)

func init() {
	for _, e := range elements {
		elementsByCode[e.Code] = e
		elementsByKey[elementKey{e.Family, e.Kind}] = e
	}
}

// Elements returns a copy of the element table
func Elements() []Element {
	out := make([]Element, len(elements))
	copy(out, elements)
	return out
}

// LookupElement returns the element for a wire code
func LookupElement(code byte) (Element, bool) {
	e, ok := elementsByCode[code]
	return e, ok
}

// ElementFor returns the element addressing a family and kind.
// There is no aux-send on/off element.
func ElementFor(f Family, k Kind) (Element, bool) {
	e, ok := elementsByKey[elementKey{f, k}]
	return e, ok
}

// Layout is the addressable size of each family
type Layout struct {
	Channels int
	Auxes    int
	AuxSends int
	Buses    int
}

// DefaultLayout returns the 01V96 layout: 32 channels, 8 aux, 2 aux sends, 8 buses
func DefaultLayout() Layout {
	return Layout{
		Channels: DefaultChannels,
		Auxes:    DefaultAuxes,
		AuxSends: DefaultAuxSends,
		Buses:    DefaultBuses,
	}
}

// Count returns the number of addressable indices of a family. The sum is a
// singleton and the aux-send family is indexed by channel.
func (l Layout) Count(f Family) int {
	switch f {
	case FamilyChannel, FamilyAuxSend:
		return l.Channels
	case FamilyAux:
		return l.Auxes
	case FamilyBus:
		return l.Buses
	case FamilySum:
		return 1
	}
	return 0
}
