// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bojanbass/01v96-remote/pkg/sysex"
	"github.com/spf13/cobra"
)

var (
	meterTestDuration int
)

var meterTestCmd = &cobra.Command{
	Use:   "meter_test",
	Short: "Arm remote metering and measure the snapshot rate",
	Long: `Send the remote meter request and count meter snapshots for a fixed time.

The console sends one snapshot every 50 ms while metering is armed. The
command reports the snapshot rate, the number of request echoes and the
peak level seen per channel.

Exit codes:
  0 - Meter snapshots received
  1 - No snapshot received before the duration ended
  2 - Connection error`,
	RunE: runMeterTest,
}

func init() {
	rootCmd.AddCommand(meterTestCmd)
	meterTestCmd.Flags().IntVar(&meterTestDuration, "duration", 5, "Measurement duration in seconds")
}

func runMeterTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadDeviceConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}

	conn, connInfo, err := OpenConnection(cfg.Device)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("mixerbridge - Meter Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Duration: %d seconds\n\n", meterTestDuration)

	events := make(chan sysex.Event, 64)
	errChan := make(chan error, 1)

	go func() {
		reassembler := sysex.NewReassembler()
		decoder := sysex.NewDecoder(nil)
		for {
			chunk, err := conn.ReadChunk()
			if err != nil {
				errChan <- err
				return
			}
			frame, err := reassembler.Feed(chunk)
			if err != nil || frame == nil {
				continue
			}
			ev := decoder.Decode(frame)
			if ev.Kind == sysex.EventLevels || ev.Kind == sysex.EventDropped {
				events <- ev
			}
		}
	}()

	start := time.Now()
	if _, err := conn.Write(sysex.RemoteMeterRequest()); err != nil {
		fmt.Fprintf(os.Stderr, "Write error: %v\n", err)
		os.Exit(2)
	}

	var peaks sysex.Levels
	snapshots := 0
	echoes := 0
	var first, last time.Time

	deadline := time.After(time.Duration(meterTestDuration) * time.Second)
measure:
	for {
		select {
		case ev := <-events:
			if ev.Kind == sysex.EventDropped {
				if errors.Is(ev.Reason, sysex.ErrTruncatedMeterEcho) {
					echoes++
				}
				continue
			}
			if snapshots == 0 {
				first = ev.Timestamp
				fmt.Printf("First snapshot after %v\n", first.Sub(start).Round(time.Millisecond))
			}
			last = ev.Timestamp
			snapshots++
			for i, l := range ev.Levels {
				peaks[i] = max(peaks[i], l)
			}
		case err := <-errChan:
			fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
			os.Exit(2)
		case <-deadline:
			break measure
		}
	}

	if snapshots == 0 {
		fmt.Fprintf(os.Stderr, "TIMEOUT: No meter snapshot received within %d seconds\n", meterTestDuration)
		os.Exit(1)
	}

	fmt.Printf("Snapshots: %d\n", snapshots)
	fmt.Printf("Echoes:    %d\n", echoes)
	if snapshots > 1 && last.After(first) {
		interval := last.Sub(first) / time.Duration(snapshots-1)
		fmt.Printf("Interval:  %v (%.1f snapshots/sec)\n", interval.Round(time.Millisecond), float64(time.Second)/float64(interval))
	}
	fmt.Printf("\nPeak levels:\n%s", sysex.FormatLevels(peaks))

	os.Exit(0)
	return nil
}
