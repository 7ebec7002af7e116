// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mixerbridge.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
[device]
type = "MIDI"
midi_in = "01V96"
midi_out = "01V96"

[server]
listen = "127.0.0.1:9000"
mdns = false

[log]
level = "debug"
format = "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DeviceMIDI, cfg.Device.Type)
	assert.Equal(t, "01V96", cfg.Device.MIDIIn)
	assert.Equal(t, DefaultBaud, cfg.Device.Baud)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
	assert.False(t, cfg.Server.MDNS)
	assert.Equal(t, Default().Server.Name, cfg.Server.Name)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, FormatJSON, cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeConfig(t, `
[device]
prot = "/dev/ttyUSB0"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device.prot")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestDeviceType_Inferred(t *testing.T) {
	tests := []struct {
		name   string
		device DeviceConfig
		want   string
	}{
		{"none", DeviceConfig{}, ""},
		{"serial", DeviceConfig{Port: "/dev/ttyUSB0"}, DeviceSerial},
		{"midi", DeviceConfig{MIDIIn: "USB"}, DeviceMIDI},
		{"websocket", DeviceConfig{URL: "ws://host/midi", Port: "/dev/ttyUSB0"}, DeviceWebSocket},
		{"explicit", DeviceConfig{Type: DeviceVirtual, Port: "/dev/ttyUSB0"}, DeviceVirtual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.device.DeviceType())
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"no device", func(c *Config) {}, true},
		{"virtual", func(c *Config) { c.Device.Type = DeviceVirtual }, false},
		{"serial", func(c *Config) { c.Device.Port = "/dev/ttyUSB0" }, false},
		{"serial without port", func(c *Config) { c.Device.Type = DeviceSerial }, true},
		{"bad baud", func(c *Config) { c.Device.Port = "/dev/ttyUSB0"; c.Device.Baud = 0 }, true},
		{"websocket", func(c *Config) { c.Device.URL = "wss://host/midi" }, false},
		{"bad scheme", func(c *Config) { c.Device.Type = DeviceWebSocket; c.Device.URL = "http://host" }, true},
		{"unknown type", func(c *Config) { c.Device.Type = "bluetooth" }, true},
		{"bad listen", func(c *Config) { c.Device.Type = DeviceVirtual; c.Server.Listen = "8080" }, true},
		{"bad level", func(c *Config) { c.Device.Type = DeviceVirtual; c.Log.Level = "loud" }, true},
		{"bad format", func(c *Config) { c.Device.Type = DeviceVirtual; c.Log.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_NoDevice(t *testing.T) {
	assert.ErrorIs(t, Default().Validate(), ErrNoDevice)
}
