// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bojanbass/01v96-remote/pkg/bridge"
	"github.com/bojanbass/01v96-remote/pkg/discovery"
	"github.com/bojanbass/01v96-remote/pkg/hub"
	"github.com/bojanbass/01v96-remote/pkg/logging"
	"github.com/bojanbass/01v96-remote/pkg/message"
	"github.com/bojanbass/01v96-remote/pkg/sysex"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	serveListen string
	serveName   string
	serveNoMDNS bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Bridge the console to WebSocket clients",
	Long: `Connect to the console and serve its state to WebSocket clients.

On startup the bridge arms the console's meter stream and requests every
fader and on/off value. Clients connect to /ws and receive value changes and
meter levels; they send fader, on and sync requests on the same connection.
The "json" (default) and "cbor" WebSocket subprotocols select the encoding.

GET /status returns the number of clients and protocol statistics.

The service is advertised as _mixer-remote._tcp over mDNS unless --no-mdns
is given.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "HTTP listen address (default :8080)")
	serveCmd.Flags().StringVar(&serveName, "name", "", "mDNS instance name")
	serveCmd.Flags().BoolVar(&serveNoMDNS, "no-mdns", false, "Do not advertise the service over mDNS")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("listen") {
		cfg.Server.Listen = serveListen
	}
	if cmd.Flags().Changed("name") {
		cfg.Server.Name = serveName
	}
	if serveNoMDNS {
		cfg.Server.MDNS = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection(cfg.Device)
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Info().Str("device", connInfo).Msg("device connected")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats := sysex.NewStatistics()

	// The hub hands requests to the bridge, which broadcasts through the hub
	var b *bridge.Bridge
	h := hub.New(logger, func(req message.Request) error {
		return b.Submit(req)
	}, stats)
	b = bridge.New(conn, h, logger, bridge.WithStatistics(stats))

	listener, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Listen, err)
	}
	srv := &http.Server{
		Handler:           h.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.Run(gctx)
	})

	g.Go(func() error {
		logger.Info().Str("addr", listener.Addr().String()).Msg("client bus listening")
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if cfg.Server.MDNS {
		advertiser := discovery.NewAdvertiser(logger)
		port := listener.Addr().(*net.TCPAddr).Port
		err := advertiser.Advertise(discovery.Info{
			Instance:  cfg.Server.Name,
			Port:      port,
			Path:      hub.PathWS,
			Protocols: message.Subprotocols,
			Version:   Version,
		})
		if err != nil {
			// The bus still works without discovery
			logger.Warn().Err(err).Msg("mDNS advertisement failed")
		} else {
			defer advertiser.Shutdown()
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		h.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		// Unblocks the bridge's device reader
		_ = conn.Close()
		return nil
	})

	err = g.Wait()
	fmt.Fprint(os.Stderr, "\n"+stats.String())
	return err
}
