// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bojanbass/01v96-remote/pkg/bridge"
	"github.com/bojanbass/01v96-remote/pkg/sysex"
	"github.com/bojanbass/01v96-remote/pkg/transport"
	"github.com/spf13/cobra"
)

var (
	rawLogMeters   bool
	rawLogSync     bool
	rawLogThrottle int
	rawLogStats    int
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display decoded console frames in human-readable format",
	Long: `Continuously decode and display SysEx frames from the console as they
arrive, with timestamp, event kind and decoded value. Frames that cannot be
decoded are shown as a hex dump.

With --meters the remote meter stream is armed and kept alive. With --sync
every fader and on/off value is requested once at startup.

Supports serial, MIDI port, WebSocket and virtual connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogMeters, "meters", false, "Arm the remote meter stream")
	rawLogCmd.Flags().BoolVar(&rawLogSync, "sync", false, "Request a full sync at startup")
	rawLogCmd.Flags().IntVar(&rawLogThrottle, "throttle", 1, "Show every N-th meter snapshot")
	rawLogCmd.Flags().IntVar(&rawLogStats, "stats", 0, "Print statistics every N seconds (0 = off)")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	cfg, err := loadDeviceConfig(cmd)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection(cfg.Device)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("mixerbridge - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	if rawLogMeters {
		if _, err := conn.Write(sysex.RemoteMeterRequest()); err != nil {
			return fmt.Errorf("meter request: %w", err)
		}
		go keepMetersAlive(conn)
	}

	if rawLogSync {
		for frame := range sysex.NewSequencer(sysex.DefaultLayout()).FullSync() {
			if _, err := conn.Write(frame); err != nil {
				return fmt.Errorf("sync request: %w", err)
			}
		}
	}

	reassembler := sysex.NewReassembler()
	decoder := sysex.NewDecoder(sysex.NewMeterThrottle(rawLogThrottle))
	stats := sysex.NewStatistics()
	lastStats := time.Now()

	for {
		chunk, err := conn.ReadChunk()
		if err != nil {
			if errors.Is(err, transport.ErrConnectionClosed) {
				log.Printf("Connection closed")
				fmt.Print(stats.String())
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}

		frame, err := reassembler.Feed(chunk)
		if err != nil {
			stats.CountOverrun()
			fmt.Printf("[ERROR] %v (%d bytes dropped)\n", err, len(chunk))
			continue
		}
		if frame == nil {
			continue
		}

		ev := decoder.Decode(frame)
		stats.Update(ev)
		if ev.Kind == sysex.EventDropped && errors.Is(ev.Reason, sysex.ErrMeterThrottled) {
			continue
		}
		fmt.Print(sysex.FormatEvent(ev))

		if rawLogStats > 0 && time.Since(lastStats) >= time.Duration(rawLogStats)*time.Second {
			fmt.Print(stats.String())
			lastStats = time.Now()
		}
	}
}

// keepMetersAlive repeats the remote meter request until a write fails
func keepMetersAlive(conn transport.Connection) {
	ticker := time.NewTicker(bridge.KeepAlivePeriod)
	defer ticker.Stop()

	for range ticker.C {
		if _, err := conn.Write(sysex.RemoteMeterRequest()); err != nil {
			return
		}
	}
}
