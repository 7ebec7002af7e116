// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the mixerbridge configuration file.
//
// The file is optional. Command-line flags override values from the file,
// and values missing from both fall back to Default.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

// Device types
const (
	DeviceSerial    = "serial"
	DeviceMIDI      = "midi"
	DeviceWebSocket = "websocket"
	DeviceVirtual   = "virtual"
)

// Log formats
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// DefaultBaud is the MIDI baud rate
const DefaultBaud = 31250

// ErrNoDevice is returned when no device is configured
var ErrNoDevice = errors.New("no device configured: set --port, --midi-in/--midi-out, --url or --device virtual")

// Config is the complete mixerbridge configuration
type Config struct {
	Device DeviceConfig `toml:"device"`
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
}

// DeviceConfig selects and parameterizes the console transport
type DeviceConfig struct {
	// Type is serial, midi, websocket or virtual. Empty infers the type
	// from the other fields.
	Type string `toml:"type"`

	Port string `toml:"port"`
	Baud int    `toml:"baud"`

	MIDIIn  string `toml:"midi_in"`
	MIDIOut string `toml:"midi_out"`

	URL         string `toml:"url"`
	Username    string `toml:"username"`
	NoSSLVerify bool   `toml:"no_ssl_verify"`
}

// ServerConfig configures the client bus
type ServerConfig struct {
	Listen string `toml:"listen"`
	Name   string `toml:"name"`
	MDNS   bool   `toml:"mdns"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Device: DeviceConfig{
			Baud: DefaultBaud,
		},
		Server: ServerConfig{
			Listen: ":8080",
			Name:   "01V96 Remote",
			MDNS:   true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: FormatConsole,
		},
	}
}

// Load reads a TOML configuration file over the defaults
func Load(path string) (Config, error) {
	cfg := Default()

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("load config: unknown keys: %s", strings.Join(keys, ", "))
	}

	cfg.Device.Type = strings.ToLower(strings.TrimSpace(cfg.Device.Type))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))

	return cfg, nil
}

// DeviceType returns the configured device type, inferring it when unset
func (d DeviceConfig) DeviceType() string {
	if d.Type != "" {
		return d.Type
	}
	switch {
	case d.URL != "":
		return DeviceWebSocket
	case d.MIDIIn != "" || d.MIDIOut != "":
		return DeviceMIDI
	case d.Port != "":
		return DeviceSerial
	}
	return ""
}

// Validate checks the configuration for consistency
func (c Config) Validate() error {
	switch c.Device.DeviceType() {
	case "":
		return ErrNoDevice
	case DeviceSerial:
		if c.Device.Port == "" {
			return errors.New("device: serial requires a port")
		}
		if c.Device.Baud <= 0 {
			return fmt.Errorf("device: invalid baud rate %d", c.Device.Baud)
		}
	case DeviceWebSocket:
		if !strings.HasPrefix(c.Device.URL, "ws://") && !strings.HasPrefix(c.Device.URL, "wss://") {
			return fmt.Errorf("device: unsupported URL %q (use ws:// or wss://)", c.Device.URL)
		}
	case DeviceMIDI, DeviceVirtual:
		// Port names are matched when opening
	default:
		return fmt.Errorf("device: unknown type %q", c.Device.Type)
	}

	if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		return fmt.Errorf("server: invalid listen address %q: %w", c.Server.Listen, err)
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	switch c.Log.Format {
	case FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("log: unknown format %q", c.Log.Format)
	}

	return nil
}
