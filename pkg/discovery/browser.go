// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/enbility/zeroconf/v3"
)

// ErrNotFound is returned when no client bus answers before the deadline
var ErrNotFound = errors.New("no mixer bridge found")

// Service is a discovered client bus
type Service struct {
	Info
	Host      string
	Addresses []net.IP
}

// URL returns the WebSocket URL of the service
func (s Service) URL() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0].String()
	}
	path := s.Path
	if path == "" {
		path = "/"
	}
	return "ws://" + net.JoinHostPort(host, strconv.Itoa(s.Port)) + path
}

// Browse calls found for every client bus that answers until ctx is done
func Browse(ctx context.Context, found func(Service)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	browseErr := make(chan error, 1)
	go func() {
		browseErr <- zeroconf.Browse(ctx, ServiceType, Domain, entries, removed)
	}()

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return nil
			}
			if svc, ok := entryToService(entry); ok {
				found(svc)
			}
		case <-removed:
		case err := <-browseErr:
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("browse %s: %w", ServiceType, err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// FindFirst browses until the first client bus answers or ctx is done
func FindFirst(ctx context.Context) (Service, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var first *Service
	err := Browse(ctx, func(svc Service) {
		if first == nil {
			first = &svc
			cancel()
		}
	})
	if first != nil {
		return *first, nil
	}
	if err != nil {
		return Service{}, err
	}
	return Service{}, ErrNotFound
}

func entryToService(entry *zeroconf.ServiceEntry) (Service, bool) {
	if entry == nil || entry.Port == 0 {
		return Service{}, false
	}

	svc := Service{
		Info: Info{
			Instance: entry.Instance,
			Port:     entry.Port,
		},
		Host: entry.HostName,
	}
	parseTXT(entry.Text, &svc.Info)

	svc.Addresses = append(svc.Addresses, entry.AddrIPv4...)
	svc.Addresses = append(svc.Addresses, entry.AddrIPv6...)
	if svc.Host == "" && len(svc.Addresses) == 0 {
		return Service{}, false
	}
	return svc, true
}
