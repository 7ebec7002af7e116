// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/bojanbass/01v96-remote/pkg/sysex"
	"github.com/spf13/cobra"
)

var (
	syncTimeout int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Request every parameter once and print the console state",
	Long: `Send one full sync (every fader and on/off parameter) to the console and
print the values it returns as a table.

The command waits until every parameter has answered or the timeout
expires.

Exit codes:
  0 - At least one parameter answered
  1 - Timeout reached without any answer
  2 - Connection error`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().IntVar(&syncTimeout, "timeout", 5, "Timeout in seconds to wait for answers")
}

// controlKey identifies a control in the collected table
type controlKey struct {
	code    byte
	slot    int
	index   int
	ordinal int
}

func runSync(cmd *cobra.Command, args []string) error {
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

	sequencer := sysex.NewSequencer(sysex.DefaultLayout())
	expected := sequencer.RequestCount()

	fmt.Printf("mixerbridge - Full Sync\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Requests: %d\n", expected)
	fmt.Printf("Timeout: %d seconds\n\n", syncTimeout)

	controls := make(chan sysex.Control, expected)
	errChan := make(chan error, 1)

	// Reader goroutine
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
			if ev := decoder.Decode(frame); ev.Kind == sysex.EventControl {
				select {
				case controls <- ev.Control:
				default:
				}
			}
		}
	}()

	for frame := range sequencer.FullSync() {
		if _, err := conn.Write(frame); err != nil {
			fmt.Fprintf(os.Stderr, "Write error: %v\n", err)
			os.Exit(2)
		}
	}

	// Elements are listed in table order
	order := make(map[byte]int)
	for i, e := range sysex.Elements() {
		order[e.Code] = i
	}

	received := make(map[controlKey]sysex.Control)
	deadline := time.After(time.Duration(syncTimeout) * time.Second)

collect:
	for len(received) < expected {
		select {
		case c := <-controls:
			key := controlKey{code: c.Element.Code, slot: c.AuxSlot, index: c.Index, ordinal: order[c.Element.Code]}
			received[key] = c
		case err := <-errChan:
			if len(received) == 0 {
				fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
				os.Exit(2)
			}
			break collect
		case <-deadline:
			break collect
		}
	}

	if len(received) == 0 {
		fmt.Fprintf(os.Stderr, "TIMEOUT: No answer received within %d seconds\n", syncTimeout)
		os.Exit(1)
	}

	keys := make([]controlKey, 0, len(received))
	for k := range received {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.ordinal != b.ordinal {
			return a.ordinal < b.ordinal
		}
		if a.slot != b.slot {
			return a.slot < b.slot
		}
		return a.index < b.index
	})

	for _, k := range keys {
		fmt.Println(sysex.FormatControl(received[k]))
	}
	fmt.Printf("\nReceived %d of %d parameters\n", len(received), expected)

	os.Exit(0)
	return nil
}
