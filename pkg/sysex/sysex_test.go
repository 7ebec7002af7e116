// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sysex

import (
	"bytes"
	"errors"
	"testing"
)

// ============================================================
// Test Helpers
// ============================================================

// buildMeterFrame creates a remote meter snapshot with the given frame length.
// Channel i is set to level i+1.
func buildMeterFrame(length int) []byte {
	frame := make([]byte, length)
	copy(frame, headerSpecific[:])
	frame[offsetSubFunction] = SubFunctionSpecific
	frame[offsetClass] = ClassRemoteMeter
	for i := 0; i < MeterChannels; i++ {
		off := offsetPayload + 2*i
		if off < length-1 {
			frame[off] = byte(i + 1)
		}
	}
	frame[length-1] = EndByte
	return frame
}

// buildChunk creates a chunk of the given size filled with data bytes
func buildChunk(size int, first, last byte) []byte {
	chunk := bytes.Repeat([]byte{0x11}, size)
	chunk[0] = first
	chunk[size-1] = last
	return chunk
}

// ============================================================
// Codec Tests
// ============================================================

func TestFaderRoundTrip(t *testing.T) {
	for v := FaderMin; v <= FaderMax; v++ {
		got := WireToFader(FaderToWire(uint16(v)))
		if int(got) != v {
			t.Fatalf("WireToFader(FaderToWire(%d)) = %d", v, got)
		}
	}
}

func TestFaderToWire_SevenBitBytes(t *testing.T) {
	for v := FaderMin; v <= FaderMax; v++ {
		data := FaderToWire(uint16(v))
		for i, b := range data {
			if b > 0x7F {
				t.Fatalf("FaderToWire(%d) byte %d = 0x%02X exceeds 7 bits", v, i, b)
			}
		}
	}
}

func TestFaderToWire_KnownValues(t *testing.T) {
	tests := []struct {
		value    uint16
		expected [PayloadSize]byte
	}{
		{0, [PayloadSize]byte{0, 0, 0, 0}},
		{127, [PayloadSize]byte{0, 0, 0, 0x7F}},
		{128, [PayloadSize]byte{0, 0, 1, 0}},
		{511, [PayloadSize]byte{0, 0, 3, 0x7F}},
		{1023, [PayloadSize]byte{0, 0, 7, 0x7F}},
	}

	for _, tt := range tests {
		got := FaderToWire(tt.value)
		if got != tt.expected {
			t.Errorf("FaderToWire(%d) = %v, want %v", tt.value, got, tt.expected)
		}
	}
}

func TestOnOffRoundTrip(t *testing.T) {
	for _, on := range []bool{true, false} {
		if got := WireToOnOff(OnOffToWire(on)); got != on {
			t.Errorf("WireToOnOff(OnOffToWire(%v)) = %v", on, got)
		}
	}
	if OnOffToWire(true) != [PayloadSize]byte{0, 0, 0, 1} {
		t.Errorf("OnOffToWire(true) = %v", OnOffToWire(true))
	}
}

func TestAuxSendSecondaryRoundTrip(t *testing.T) {
	for slot := 1; slot <= DefaultAuxSends; slot++ {
		secondary := AuxSendSecondary(slot)
		if secondary != byte(3*slot-1) {
			t.Errorf("AuxSendSecondary(%d) = %d, want %d", slot, secondary, 3*slot-1)
		}
		if got := AuxSendSlot(secondary); got != slot {
			t.Errorf("AuxSendSlot(AuxSendSecondary(%d)) = %d", slot, got)
		}
	}
}

func TestBuildFrame_SubFunctionMatchesHeader(t *testing.T) {
	change := BuildParameterChange(CodeChannelFader, 0, 4, FaderToWire(511))
	expected := []byte{240, 67, 16, 62, 13, 1, 28, 0, 4, 0, 0, 3, 0x7F, 247}
	if !bytes.Equal(change, expected) {
		t.Errorf("BuildParameterChange = %v, want %v", change, expected)
	}
	if len(change) != ParameterFrameSize {
		t.Errorf("parameter change length = %d, want %d", len(change), ParameterFrameSize)
	}

	request := BuildParameterRequest(CodeBusOn, 0, 7)
	expected = []byte{240, 67, 48, 62, 127, 1, 41, 0, 7, 247}
	if !bytes.Equal(request, expected) {
		t.Errorf("BuildParameterRequest = %v, want %v", request, expected)
	}
	if len(request) != RequestFrameSize {
		t.Errorf("parameter request length = %d, want %d", len(request), RequestFrameSize)
	}
}

func TestRemoteMeterRequest(t *testing.T) {
	expected := []byte{0xF0, 0x43, 0x30, 0x3E, 0x0D, 0x21, 0, 0, 0, 0, 32, 0xF7}
	if got := RemoteMeterRequest(); !bytes.Equal(got, expected) {
		t.Errorf("RemoteMeterRequest = % X, want % X", got, expected)
	}
}

func TestParseAddress(t *testing.T) {
	addr, ok := ParseAddress(BuildParameterRequest(CodeAuxSendFader, AuxSendSecondary(2), 9))
	if !ok {
		t.Fatal("ParseAddress rejected a parameter request")
	}
	want := Address{Code: CodeAuxSendFader, Secondary: 5, Index: 9}
	if addr != want {
		t.Errorf("ParseAddress = %+v, want %+v", addr, want)
	}

	if _, ok := ParseAddress(RemoteMeterRequest()); ok {
		t.Error("ParseAddress accepted a meter request")
	}
	if _, ok := ParseAddress([]byte{0xF0, 0x43, 0x10, 0x3E, 13, 1}); ok {
		t.Error("ParseAddress accepted a truncated frame")
	}
}

func TestParsePayload(t *testing.T) {
	payload, err := ParsePayload(BuildParameterChange(CodeChannelFader, 0, 0, FaderToWire(1000)))
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	if got := WireToFader(payload); got != 1000 {
		t.Errorf("payload fader = %d, want 1000", got)
	}

	if _, err := ParsePayload(BuildParameterRequest(CodeChannelFader, 0, 0)); err == nil {
		t.Error("ParsePayload accepted a request frame")
	}
}

func TestBuildMeterFrame(t *testing.T) {
	var levels Levels
	for i := range levels {
		levels[i] = uint8(i * 3)
	}

	frame := BuildMeterFrame(levels)
	if len(frame) != 74 {
		t.Fatalf("meter frame length = %d, want 74", len(frame))
	}
	if class, ok := FrameClass(frame); !ok || class != ClassRemoteMeter {
		t.Errorf("FrameClass = %d, %v", class, ok)
	}

	ev := NewDecoder(nil).Decode(frame)
	if ev.Kind != EventLevels {
		t.Fatalf("Decode kind = %s, want LEVELS", ev.Kind)
	}
	if ev.Levels != levels {
		t.Errorf("levels = %v, want %v", ev.Levels, levels)
	}
}

func TestBuildProgramChange(t *testing.T) {
	ev := NewDecoder(nil).Decode(BuildProgramChange(5))
	if ev.Kind != EventResync {
		t.Errorf("Decode kind = %s, want RESYNC", ev.Kind)
	}
}

func TestElementTable(t *testing.T) {
	seen := map[byte]bool{}
	for _, e := range Elements() {
		if seen[e.Code] {
			t.Errorf("duplicate element code %d", e.Code)
		}
		seen[e.Code] = true

		got, ok := LookupElement(e.Code)
		if !ok || got != e {
			t.Errorf("LookupElement(%d) = %v, %v", e.Code, got, ok)
		}
		got, ok = ElementFor(e.Family, e.Kind)
		if !ok || got != e {
			t.Errorf("ElementFor(%s, %s) = %v, %v", e.Family, e.Kind, got, ok)
		}
	}
	if len(seen) != 9 {
		t.Errorf("expected 9 element codes, got %d", len(seen))
	}
	if _, ok := ElementFor(FamilyAuxSend, KindOn); ok {
		t.Error("aux-send on/off must not have an element of its own")
	}
}

func TestParseFamily(t *testing.T) {
	for _, name := range []string{"channel", "aux", "bus", "sum", "auxsend"} {
		f, err := ParseFamily(name)
		if err != nil {
			t.Fatalf("ParseFamily(%q): %v", name, err)
		}
		if f.String() != name {
			t.Errorf("ParseFamily(%q).String() = %q", name, f.String())
		}
	}
	if _, err := ParseFamily("matrix"); err == nil {
		t.Error("expected error for unknown family")
	}
}

// ============================================================
// Reassembler Tests
// ============================================================

func TestReassembler_CompleteChunk(t *testing.T) {
	r := NewReassembler()
	chunk := BuildParameterChange(CodeChannelOn, 0, 0, OnOffToWire(true))

	frame, err := r.Feed(chunk)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if !bytes.Equal(frame, chunk) {
		t.Errorf("expected chunk passed through unchanged")
	}
	if r.Pending() {
		t.Error("no fragment should be pending")
	}
}

func TestReassembler_TwoChunks(t *testing.T) {
	r := NewReassembler()
	first := buildChunk(ChunkSize, StartByte, 0x22)
	second := buildChunk(100, 0x33, EndByte)

	frame, err := r.Feed(first)
	if err != nil || frame != nil {
		t.Fatalf("first chunk: frame=%v err=%v, want incomplete", frame != nil, err)
	}
	if !r.Pending() {
		t.Fatal("first chunk should be pending")
	}

	frame, err = r.Feed(second)
	if err != nil {
		t.Fatalf("second chunk: %v", err)
	}
	if len(frame) != ChunkSize+100 {
		t.Fatalf("frame length = %d, want %d", len(frame), ChunkSize+100)
	}
	if !bytes.Equal(frame[:ChunkSize], first) || !bytes.Equal(frame[ChunkSize:], second) {
		t.Error("frame is not the concatenation of both chunks")
	}
	if r.Pending() {
		t.Error("pending fragment should be cleared")
	}

	// A following independent chunk is not merged
	next := []byte{0xF0, 0x01, 0xF7}
	frame, _ = r.Feed(next)
	if !bytes.Equal(frame, next) {
		t.Errorf("independent chunk = %v, want %v", frame, next)
	}
}

func TestReassembler_FirstChunkIsolated(t *testing.T) {
	r := NewReassembler()
	first := buildChunk(ChunkSize, StartByte, 0x22)
	r.Feed(first)

	// The original fragment is kept by the caller's copy only
	first[1] = 0x7E
	frame, _ := r.Feed([]byte{0x01, EndByte})
	if frame[1] == 0x7E {
		t.Error("reassembler must copy the pending fragment")
	}
}

func TestReassembler_Overrun(t *testing.T) {
	r := NewReassembler()
	r.Feed(buildChunk(ChunkSize, StartByte, 0x22))

	frame, err := r.Feed(buildChunk(ChunkSize, 0x44, 0x55))
	if !errors.Is(err, ErrFragmentOverrun) {
		t.Fatalf("expected ErrFragmentOverrun, got %v", err)
	}
	if frame != nil {
		t.Error("no frame expected on overrun")
	}
	if !r.Pending() {
		t.Error("stale fragment stays pending after overrun")
	}
	if r.Overruns() != 1 {
		t.Errorf("Overruns() = %d, want 1", r.Overruns())
	}

	// The next unrelated chunk clears the stale fragment
	next := []byte{0xF0, 0x43, 0x10}
	frame, err = r.Feed(next)
	if err != nil || !bytes.Equal(frame, next) {
		t.Errorf("unrelated chunk = %v, %v", frame, err)
	}
	if r.Pending() {
		t.Error("stale fragment should be cleared")
	}
}

func TestReassembler_StaleFragmentCompletedByTerminator(t *testing.T) {
	r := NewReassembler()
	first := buildChunk(ChunkSize, StartByte, 0x22)
	r.Feed(first)
	r.Feed(buildChunk(ChunkSize, 0x44, 0x55))

	// A terminated chunk after an overrun still joins the held fragment
	frame, _ := r.Feed([]byte{0x01, EndByte})
	if len(frame) != ChunkSize+2 {
		t.Errorf("frame length = %d, want %d", len(frame), ChunkSize+2)
	}
}

func TestReassembler_NewStartReplacesPending(t *testing.T) {
	r := NewReassembler()
	r.Feed(buildChunk(ChunkSize, StartByte, 0x22))
	second := buildChunk(ChunkSize, StartByte, 0x66)
	frame, err := r.Feed(second)
	if frame != nil || err != nil {
		t.Fatalf("expected incomplete, got frame=%v err=%v", frame != nil, err)
	}

	frame, _ = r.Feed([]byte{EndByte})
	if frame[ChunkSize-1] != 0x66 {
		t.Error("second fragment should replace the first")
	}
}

func TestReassembler_EmptyChunk(t *testing.T) {
	r := NewReassembler()
	for _, chunk := range [][]byte{nil, {}} {
		frame, err := r.Feed(chunk)
		if frame != nil || err != nil {
			t.Errorf("empty chunk: frame=%v err=%v", frame, err)
		}
	}
}

func TestReassembler_EmptyChunkClearsFragment(t *testing.T) {
	r := NewReassembler()

	fragment := make([]byte, ChunkSize)
	fragment[0] = StartByte
	if frame, _ := r.Feed(fragment); frame != nil {
		t.Fatalf("first fragment returned a frame")
	}

	if frame, err := r.Feed([]byte{}); frame != nil || err != nil {
		t.Fatalf("empty chunk: frame=%v err=%v", frame, err)
	}
	if r.Pending() {
		t.Fatal("fragment still pending after empty chunk")
	}

	fader := BuildParameterChange(CodeChannelFader, 0, 2, FaderToWire(512))
	frame, err := r.Feed(fader)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if !bytes.Equal(frame, fader) {
		t.Fatalf("got %d byte frame, want the %d byte fader frame", len(frame), len(fader))
	}
}

// ============================================================
// Meter Throttle Tests
// ============================================================

func TestMeterThrottle_EveryFourth(t *testing.T) {
	th := NewMeterThrottle(4)
	for i := 1; i <= 16; i++ {
		allowed := th.Allow()
		if allowed != (i%4 == 0) {
			t.Errorf("candidate %d: allowed=%v", i, allowed)
		}
	}
}

func TestMeterThrottle_IntervalOne(t *testing.T) {
	th := NewMeterThrottle(0)
	for i := 0; i < 5; i++ {
		if !th.Allow() {
			t.Fatalf("interval 1 must forward every snapshot")
		}
	}
}

func TestMeterThrottle_Reset(t *testing.T) {
	th := NewMeterThrottle(3)
	th.Allow()
	th.Allow()
	th.Reset()
	if th.Allow() || th.Allow() || !th.Allow() {
		t.Error("reset should restart the cycle")
	}
}
