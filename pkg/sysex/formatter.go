// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sysex

import (
	"fmt"
	"strings"
)

// FormatEvent formats a decoded event into a human-readable string
func FormatEvent(ev Event) string {
	timestamp := ev.Timestamp.Format("15:04:05.000")
	result := fmt.Sprintf("[%s] %s len=%d\n", timestamp, ev.Kind, len(ev.Frame))

	switch ev.Kind {
	case EventControl:
		result += "  " + FormatControl(ev.Control) + "\n"
	case EventLevels:
		result += FormatLevels(ev.Levels)
	case EventResync:
		result += "  Program change, resync required\n"
	case EventDropped:
		result += fmt.Sprintf("  %v\n", ev.Reason)
	default:
		result += formatHeaderInfo(ev.Frame)
		result += FormatHex(ev.Frame)
	}

	return result
}

// FormatControl formats a control value on one line
func FormatControl(c Control) string {
	var addr string
	switch c.Element.Family {
	case FamilySum:
		addr = "sum"
	case FamilyAuxSend:
		addr = fmt.Sprintf("aux %d send ch %d", c.AuxSlot, c.Index)
	default:
		addr = fmt.Sprintf("%s %d", c.Element.Family, c.Index)
	}

	if c.Element.Kind == KindOn {
		state := "OFF"
		if c.On {
			state = "ON"
		}
		return fmt.Sprintf("%-22s on    = %s", addr, state)
	}
	return fmt.Sprintf("%-22s fader = %4d (%5.1f%%)", addr, c.Fader, float64(c.Fader)*100/FaderMax)
}

// FormatLevels formats a meter snapshot as rows of eight channels
func FormatLevels(l Levels) string {
	var b strings.Builder
	for row := 0; row < MeterChannels; row += 8 {
		b.WriteString(fmt.Sprintf("  ch%02d-%02d:", row+1, row+8))
		for i := row; i < row+8; i++ {
			b.WriteString(fmt.Sprintf(" %3d", l[i]))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatMessageClass returns the human-readable name of a message class byte
func FormatMessageClass(class byte) string {
	switch class {
	case ClassParameter:
		return "PARAMETER"
	case ClassProgramChange:
		return "PROGRAM_CHANGE"
	case ClassRemoteMeter:
		return "REMOTE_METER"
	}
	return "UNKNOWN"
}

func formatHeaderInfo(frame []byte) string {
	h, ok := MatchHeader(frame)
	if !ok {
		return "  Header: none\n"
	}
	if len(frame) <= offsetElement {
		return fmt.Sprintf("  Header: %s\n", h)
	}
	return fmt.Sprintf("  Header: %s, Class: %s (0x%02X), Element: 0x%02X\n",
		h, FormatMessageClass(frame[offsetClass]), frame[offsetClass], frame[offsetElement])
}

// FormatHex renders frame bytes as a hex dump, 16 bytes per line
func FormatHex(frame []byte) string {
	result := "  Bytes: "
	for i, b := range frame {
		if i > 0 && i%16 == 0 {
			result += "\n         "
		}
		result += fmt.Sprintf("%02X ", b)
	}
	return result + "\n"
}
