// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/bojanbass/01v96-remote/pkg/config"
	"github.com/bojanbass/01v96-remote/pkg/sysex"
	"github.com/bojanbass/01v96-remote/pkg/transport"
	"golang.org/x/term"
)

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv("MIXER_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenConnection opens the console transport selected by the configuration
func OpenConnection(dev config.DeviceConfig) (transport.Connection, string, error) {
	switch dev.DeviceType() {
	case config.DeviceWebSocket:
		password := ""
		if dev.Username != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := transport.OpenWebSocket(dev.URL, dev.Username, password, dev.NoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("WebSocket: %s", dev.URL), nil

	case config.DeviceMIDI:
		conn, err := transport.OpenMIDI(dev.MIDIIn, dev.MIDIOut)
		if err != nil {
			return nil, "", err
		}
		in, out := conn.PortNames()
		return conn, fmt.Sprintf("MIDI: %s -> %s", in, out), nil

	case config.DeviceSerial:
		conn, err := transport.OpenSerial(dev.Port, dev.Baud)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("Serial: %s @ %d baud", dev.Port, dev.Baud), nil

	case config.DeviceVirtual:
		return transport.NewVirtualConsole(sysex.DefaultLayout()), "Virtual console", nil
	}

	return nil, "", config.ErrNoDevice
}
