// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/bojanbass/01v96-remote/pkg/config"
	"github.com/spf13/cobra"
)

// Version is the mixerbridge release
const Version = "1.0.0"

var (
	configPath string

	// Device flags
	deviceType string

	// Serial connection flags
	portName string
	baudRate int

	// MIDI port flags
	midiIn  string
	midiOut string

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Logging flags
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "mixerbridge",
	Short: "Yamaha 01V96 remote control bridge",
	Long: `mixerbridge - Remote control bridge for the Yamaha 01V96 digital mixer.

Talks to the console over its MIDI SysEx remote protocol and serves fader,
on/off and meter state to WebSocket clients.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 31250]
  MIDI port: --midi-in "01V96" --midi-out "01V96"
  WebSocket: --url ws://host/path [--username user]
  Virtual:   --device virtual

Settings may also be read from a TOML file with --config. Flags given on the
command line override the file.

For WebSocket authentication, the password is read from the MIXER_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&deviceType, "device", "", "Device type: serial, midi, websocket or virtual (default: inferred)")

	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", config.DefaultBaud, "Baud rate (serial only)")

	// MIDI port flags
	rootCmd.PersistentFlags().StringVar(&midiIn, "midi-in", "", "MIDI input port name (substring match)")
	rootCmd.PersistentFlags().StringVar(&midiOut, "midi-out", "", "MIDI output port name (substring match)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Logging flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", config.FormatConsole, "Log format (console, json)")
}

// loadConfig merges the configuration file with explicitly set flags
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return config.Config{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("device") {
		cfg.Device.Type = deviceType
	}
	if flags.Changed("port") {
		cfg.Device.Port = portName
	}
	if flags.Changed("baud") {
		cfg.Device.Baud = baudRate
	}
	if flags.Changed("midi-in") {
		cfg.Device.MIDIIn = midiIn
	}
	if flags.Changed("midi-out") {
		cfg.Device.MIDIOut = midiOut
	}
	if flags.Changed("url") {
		cfg.Device.URL = wsURL
	}
	if flags.Changed("username") {
		cfg.Device.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		cfg.Device.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}

	return cfg, nil
}

// loadDeviceConfig loads the configuration and checks it names a device
func loadDeviceConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
