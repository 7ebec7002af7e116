// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package discovery advertises and finds mixerbridge client buses with
// mDNS/DNS-SD.
package discovery

import (
	"fmt"
	"sort"
	"strings"
)

// Service type and domain
const (
	ServiceType = "_mixer-remote._tcp"
	Domain      = "local."
)

// TXT record keys
const (
	TXTPath     = "path"
	TXTProtocol = "proto"
	TXTVersion  = "version"
)

// Info describes an advertised client bus
type Info struct {
	// Instance is the human-readable service instance name
	Instance string

	Port int

	// Path is the WebSocket endpoint path
	Path string

	// Protocols are the supported WebSocket subprotocols
	Protocols []string

	Version string
}

// TXT encodes the info into "key=value" TXT strings in key order
func (i Info) TXT() []string {
	records := map[string]string{
		TXTPath:     i.Path,
		TXTProtocol: strings.Join(i.Protocols, ","),
	}
	if i.Version != "" {
		records[TXTVersion] = i.Version
	}

	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	txt := make([]string, 0, len(keys))
	for _, k := range keys {
		txt = append(txt, fmt.Sprintf("%s=%s", k, records[k]))
	}
	return txt
}

// parseTXT decodes TXT strings into info fields
func parseTXT(txt []string, info *Info) {
	for _, s := range txt {
		key, value, _ := strings.Cut(s, "=")
		switch key {
		case TXTPath:
			info.Path = value
		case TXTProtocol:
			if value != "" {
				info.Protocols = strings.Split(value, ",")
			}
		case TXTVersion:
			info.Version = value
		}
	}
}
