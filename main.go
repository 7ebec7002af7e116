// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// mixerbridge - Yamaha 01V96 SysEx remote bridge
//
// Connects to the console over MIDI and serves its faders, on/off switches
// and channel meters to WebSocket clients.

package main

import (
	"os"

	"github.com/bojanbass/01v96-remote/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
