// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"bufio"
	"bytes"

	"github.com/bojanbass/01v96-remote/pkg/sysex"
)

// SplitSysEx returns a bufio.SplitFunc that extracts SysEx data from a raw
// MIDI byte stream. Bytes outside a SysEx frame are discarded. A frame that
// reaches chunkSize bytes without a terminator is emitted as a chunk and
// continues in the next token.
//
// The returned function keeps state between calls and must only be used by
// one Scanner.
func SplitSysEx(chunkSize int) bufio.SplitFunc {
	continuing := false

	return func(data []byte, atEOF bool) (int, []byte, error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}

		start := 0
		if !continuing {
			start = bytes.IndexByte(data, sysex.StartByte)
			if start < 0 {
				// No frame start, drop everything buffered
				return len(data), nil, nil
			}
		}

		frame := data[start:]
		if end := bytes.IndexByte(frame, sysex.EndByte); end >= 0 && end < chunkSize {
			continuing = false
			return start + end + 1, frame[:end+1], nil
		}

		if len(frame) >= chunkSize {
			continuing = true
			return start + chunkSize, frame[:chunkSize], nil
		}

		if atEOF {
			// Incomplete trailing frame
			return len(data), nil, nil
		}

		// Request more data, dropping any bytes before the frame start
		return start, nil, nil
	}
}
