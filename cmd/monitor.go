// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bojanbass/01v96-remote/pkg/discovery"
	"github.com/bojanbass/01v96-remote/pkg/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var (
	monitorServer string
	monitorCBOR   bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive TUI client of a running bridge",
	Long: `Connect to a running "mixerbridge serve" as a client and show the console
state in an interactive terminal UI.

Features:
  - Fader and on/off table for channels, aux, bus and sum
  - Live channel meters
  - Event log
  - Command line for sending requests
  - Automatic reconnection on connection loss

Commands:
  fader <channel|aux|bus> <n> <0-1023>    fader sum <0-1023>
  on <channel|aux|bus> <n> <on|off>       on sum <on|off>
  send <slot> <channel> <0-1023>          aux send level
  sync                                    request full state

Without --server the bridge is located over mDNS.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().StringVarP(&monitorServer, "server", "s", "", "Bridge WebSocket URL (default: mDNS discovery)")
	monitorCmd.Flags().BoolVar(&monitorCBOR, "cbor", false, "Use the CBOR subprotocol")
}

// busClient handles the client bus connection lifecycle and reconnection
type busClient struct {
	url   string
	codec message.Codec

	mu   sync.Mutex
	conn *websocket.Conn

	p    *tea.Program
	done chan struct{}
}

func runMonitor(cmd *cobra.Command, args []string) error {
	url := monitorServer
	if url == "" {
		fmt.Printf("Looking for a bridge over mDNS...\n")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		svc, err := discovery.FindFirst(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("%w (use --server)", err)
		}
		url = svc.URL()
	}

	codec := message.JSON
	if monitorCBOR {
		codec = message.CBOR
	}

	bc := &busClient{
		url:   url,
		codec: codec,
		done:  make(chan struct{}),
	}
	if err := bc.connect(); err != nil {
		return err
	}

	m := initialMonitorModel(bc, url)
	p := tea.NewProgram(m, tea.WithAltScreen())
	bc.p = p

	go bc.readerLoop()

	_, err := p.Run()
	close(bc.done)
	bc.closeConn()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func (bc *busClient) connect() error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Subprotocols:     []string{bc.codec.Name()},
	}

	conn, resp, err := dialer.Dial(bc.url, http.Header{})
	if err != nil {
		if resp != nil {
			return fmt.Errorf("bridge connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("bridge connection failed: %w", err)
	}

	bc.mu.Lock()
	bc.conn = conn
	bc.mu.Unlock()
	return nil
}

func (bc *busClient) closeConn() {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if bc.conn != nil {
		_ = bc.conn.Close()
	}
}

// Send encodes and writes one request
func (bc *busClient) Send(req message.Request) error {
	data, err := bc.codec.Marshal(req)
	if err != nil {
		return err
	}

	bc.mu.Lock()
	defer bc.mu.Unlock()
	if bc.conn == nil {
		return errors.New("not connected")
	}
	_ = bc.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return bc.conn.WriteMessage(bc.codec.FrameType(), data)
}

// readerLoop delivers bus events to the TUI and reconnects on failure
func (bc *busClient) readerLoop() {
	for {
		bc.readFromConnection()

		select {
		case <-bc.done:
			return
		default:
		}

		bc.p.Send(connectionLostMsg{})
		if !bc.reconnect() {
			return
		}
	}
}

// readFromConnection reads events until the connection fails
func (bc *busClient) readFromConnection() {
	bc.mu.Lock()
	conn := bc.conn
	bc.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var env message.Envelope
		if err := bc.codec.Unmarshal(data, &env); err != nil {
			bc.p.Send(busErrorMsg{err: err})
			continue
		}
		bc.p.Send(busEventMsg{env: env})
	}
}

// reconnect attempts to reconnect with exponential backoff
// Returns false if shutdown was requested during reconnection
func (bc *busClient) reconnect() bool {
	bc.closeConn()

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-bc.done:
			return false
		case <-time.After(backoff):
		}

		if err := bc.connect(); err == nil {
			bc.p.Send(reconnectedMsg{url: bc.url})
			return true
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
