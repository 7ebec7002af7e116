// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package message

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
)

// Codec encodes messages for one WebSocket subprotocol
type Codec interface {
	// Name is the WebSocket subprotocol name
	Name() string
	// FrameType is the WebSocket message type carrying encoded messages
	FrameType() int
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// Subprotocol names
const (
	SubprotocolJSON = "json"
	SubprotocolCBOR = "cbor"
)

// Subprotocols lists the supported subprotocols in order of preference
var Subprotocols = []string{SubprotocolJSON, SubprotocolCBOR}

// JSON encodes messages as JSON text frames
var JSON Codec = jsonCodec{}

// CBOR encodes messages as CBOR binary frames
var CBOR Codec = cborCodec{}

// CodecFor returns the codec for a negotiated subprotocol. An empty
// subprotocol selects JSON.
func CodecFor(subprotocol string) (Codec, error) {
	switch subprotocol {
	case "", SubprotocolJSON:
		return JSON, nil
	case SubprotocolCBOR:
		return CBOR, nil
	}
	return nil, fmt.Errorf("unsupported subprotocol %q", subprotocol)
}

type jsonCodec struct{}

func (jsonCodec) Name() string   { return SubprotocolJSON }
func (jsonCodec) FrameType() int { return websocket.TextMessage }

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

type cborCodec struct{}

func (cborCodec) Name() string   { return SubprotocolCBOR }
func (cborCodec) FrameType() int { return websocket.BinaryMessage }

func (cborCodec) Marshal(v interface{}) ([]byte, error) {
	return cbor.Marshal(v)
}

func (cborCodec) Unmarshal(data []byte, v interface{}) error {
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode CBOR: %w", err)
	}
	return nil
}
