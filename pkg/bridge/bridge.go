// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package bridge connects a console transport to the client bus.
//
// A Bridge owns all protocol state: the frame reassembler, the meter
// throttle, the encoder and the resync sequencer. That state is only
// touched by the goroutine running Run. Other goroutines hand client
// requests to the bridge with Submit.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bojanbass/01v96-remote/pkg/message"
	"github.com/bojanbass/01v96-remote/pkg/sysex"
	"github.com/bojanbass/01v96-remote/pkg/transport"
	"github.com/rs/zerolog"
)

// KeepAlivePeriod is how often the remote meter request is repeated. The
// console stops metering 10 seconds after the last request.
const KeepAlivePeriod = 10 * time.Second

// requestQueueSize bounds client requests waiting for the dispatch loop
const requestQueueSize = 256

// ErrQueueFull is returned by Submit when the dispatch loop is saturated
var ErrQueueFull = errors.New("bridge: request queue full")

// Broadcaster delivers events to every connected client
type Broadcaster interface {
	Broadcast(v interface{})
}

// Option configures a Bridge
type Option func(*Bridge)

// WithLayout overrides the console layout
func WithLayout(layout sysex.Layout) Option {
	return func(b *Bridge) {
		b.layout = layout
	}
}

// WithMeterInterval forwards every n-th meter snapshot
func WithMeterInterval(n int) Option {
	return func(b *Bridge) {
		b.meterInterval = n
	}
}

// WithKeepAlive overrides the meter request period
func WithKeepAlive(d time.Duration) Option {
	return func(b *Bridge) {
		b.keepAlive = d
	}
}

// WithStatistics shares a statistics collector with the bridge
func WithStatistics(stats *sysex.Statistics) Option {
	return func(b *Bridge) {
		b.stats = stats
	}
}

// Bridge dispatches console frames to clients and client requests to the
// console
type Bridge struct {
	dev transport.Connection
	out Broadcaster
	log zerolog.Logger

	layout        sysex.Layout
	meterInterval int
	keepAlive     time.Duration

	reassembler *sysex.Reassembler
	decoder     *sysex.Decoder
	encoder     *sysex.Encoder
	sequencer   *sysex.Sequencer
	stats       *sysex.Statistics

	requests chan message.Request
}

// New creates a bridge between a console connection and a broadcaster
func New(dev transport.Connection, out Broadcaster, logger zerolog.Logger, opts ...Option) *Bridge {
	b := &Bridge{
		dev:           dev,
		out:           out,
		log:           logger.With().Str("component", "bridge").Logger(),
		layout:        sysex.DefaultLayout(),
		meterInterval: sysex.DefaultMeterInterval,
		keepAlive:     KeepAlivePeriod,
		requests:      make(chan message.Request, requestQueueSize),
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.stats == nil {
		b.stats = sysex.NewStatistics()
	}
	b.reassembler = sysex.NewReassembler()
	b.decoder = sysex.NewDecoder(sysex.NewMeterThrottle(b.meterInterval))
	b.encoder = sysex.NewEncoder(b.layout)
	b.sequencer = sysex.NewSequencer(b.layout)

	return b
}

// Stats returns the bridge statistics
func (b *Bridge) Stats() *sysex.Statistics {
	return b.stats
}

// Submit queues a client request for the dispatch loop. It never blocks.
func (b *Bridge) Submit(req message.Request) error {
	select {
	case b.requests <- req:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run arms metering, requests a full sync and dispatches until ctx is done
// or the device fails. The caller closes the device after Run returns to
// release the reader goroutine.
func (b *Bridge) Run(ctx context.Context) error {
	chunks := make(chan []byte, 64)
	readErr := make(chan error, 1)

	go func() {
		for {
			chunk, err := b.dev.ReadChunk()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	b.log.Info().Int("channels", b.layout.Channels).Int("meter_interval", b.meterInterval).Msg("bridge started")

	if err := b.armMeters(); err != nil {
		return err
	}
	if err := b.fullSync(); err != nil {
		return err
	}

	ticker := time.NewTicker(b.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.log.Info().Msg("bridge stopped")
			return nil

		case chunk := <-chunks:
			b.HandleChunk(chunk)

		case req := <-b.requests:
			// Request errors are logged by HandleRequest
			_ = b.HandleRequest(req)

		case <-ticker.C:
			if err := b.armMeters(); err != nil {
				return err
			}

		case err := <-readErr:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("device read: %w", err)
		}
	}
}

// HandleChunk processes one chunk from the console. It must not be called
// concurrently with Run.
func (b *Bridge) HandleChunk(chunk []byte) {
	frame, err := b.reassembler.Feed(chunk)
	if err != nil {
		if errors.Is(err, sysex.ErrFragmentOverrun) {
			b.stats.CountOverrun()
			b.log.Debug().Int("len", len(chunk)).Msg("fragment overrun, chunk dropped")
		}
		return
	}
	if frame == nil {
		return
	}

	ev := b.decoder.Decode(frame)
	b.stats.Update(ev)

	switch ev.Kind {
	case sysex.EventControl:
		b.out.Broadcast(message.FromControl(ev.Control))

	case sysex.EventLevels:
		b.out.Broadcast(message.FromLevels(ev.Levels))

	case sysex.EventResync:
		b.log.Info().Msg("program change, resyncing")
		if err := b.fullSync(); err != nil {
			b.log.Error().Err(err).Msg("resync failed")
		}

	case sysex.EventUnrecognized:
		b.log.Info().Hex("frame", frame).Msg("unrecognized frame")

	case sysex.EventDropped:
		// Meter request echoes and throttled snapshots
	}
}

// HandleRequest encodes one client request and sends it to the console.
// Accepted parameter changes are broadcast to clients, since the console
// does not echo them. It must not be called concurrently with Run.
func (b *Bridge) HandleRequest(req message.Request) error {
	if req.Type == message.TypeSync {
		b.log.Debug().Msg("client requested sync")
		return b.fullSync()
	}

	frame, err := b.encode(req)
	if err != nil {
		var rangeErr *sysex.RangeError
		if errors.As(err, &rangeErr) {
			b.stats.CountRangeError()
		}
		b.log.Warn().Err(err).
			Str("type", req.Type).
			Str("target", req.Target).
			Int("num", req.Num).
			Msg("request dropped")
		return err
	}

	if err := b.send(frame); err != nil {
		b.log.Error().Err(err).Msg("write failed")
		return err
	}

	if ev := b.decoder.Decode(frame); ev.Kind == sysex.EventControl {
		b.out.Broadcast(message.FromControl(ev.Control))
	}
	return nil
}

func (b *Bridge) encode(req message.Request) ([]byte, error) {
	family, err := sysex.ParseFamily(req.Target)
	if err != nil {
		return nil, err
	}

	switch req.Type {
	case message.TypeFader:
		value, err := req.FaderValue()
		if err != nil {
			return nil, err
		}
		return b.encoder.SetFader(family, req.Num, req.Num2, value)

	case message.TypeOn:
		on, err := req.OnValue()
		if err != nil {
			return nil, err
		}
		return b.encoder.SetOnOff(family, req.Num, on)
	}

	return nil, fmt.Errorf("unknown request type %q", req.Type)
}

// fullSync requests every parameter from the console
func (b *Bridge) fullSync() error {
	sent := 0
	for frame := range b.sequencer.FullSync() {
		if err := b.send(frame); err != nil {
			return fmt.Errorf("full sync after %d requests: %w", sent, err)
		}
		sent++
	}
	b.stats.CountSync()
	b.log.Debug().Int("requests", sent).Msg("full sync sent")
	return nil
}

// armMeters repeats the remote meter request
func (b *Bridge) armMeters() error {
	if err := b.send(sysex.RemoteMeterRequest()); err != nil {
		return fmt.Errorf("meter request: %w", err)
	}
	b.stats.CountMeterRequest()
	return nil
}

func (b *Bridge) send(frame []byte) error {
	if _, err := b.dev.Write(frame); err != nil {
		return err
	}
	b.stats.CountSent(1)
	return nil
}
