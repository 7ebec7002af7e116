// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package discovery

import (
	"fmt"
	"sync"

	"github.com/enbility/zeroconf/v3"
	"github.com/rs/zerolog"
)

// Advertiser publishes the client bus on the local network
type Advertiser struct {
	log zerolog.Logger

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an idle advertiser
func NewAdvertiser(logger zerolog.Logger) *Advertiser {
	return &Advertiser{
		log: logger.With().Str("component", "discovery").Logger(),
	}
}

// Advertise registers the service, replacing any previous registration
func (a *Advertiser) Advertise(info Info) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	server, err := zeroconf.Register(
		info.Instance,
		ServiceType,
		Domain,
		info.Port,
		info.TXT(),
		nil, // all interfaces
	)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", ServiceType, err)
	}

	a.server = server
	a.log.Info().
		Str("instance", info.Instance).
		Int("port", info.Port).
		Strs("txt", info.TXT()).
		Msg("advertising client bus")
	return nil
}

// Shutdown withdraws the registration
func (a *Advertiser) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
		a.log.Info().Msg("advertisement withdrawn")
	}
}
