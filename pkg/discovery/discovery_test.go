// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package discovery

import (
	"net"
	"testing"

	"github.com/enbility/zeroconf/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfo_TXT(t *testing.T) {
	info := Info{
		Instance:  "01V96 Remote",
		Port:      8080,
		Path:      "/ws",
		Protocols: []string{"json", "cbor"},
		Version:   "1.0.0",
	}

	assert.Equal(t, []string{"path=/ws", "proto=json,cbor", "version=1.0.0"}, info.TXT())

	info.Version = ""
	assert.Equal(t, []string{"path=/ws", "proto=json,cbor"}, info.TXT())
}

func TestParseTXT(t *testing.T) {
	var info Info
	parseTXT([]string{"proto=json,cbor", "path=/ws", "version=2", "extra=1", "flag"}, &info)

	assert.Equal(t, "/ws", info.Path)
	assert.Equal(t, []string{"json", "cbor"}, info.Protocols)
	assert.Equal(t, "2", info.Version)
}

func TestEntryToService(t *testing.T) {
	entry := &zeroconf.ServiceEntry{}
	entry.Instance = "desk"
	entry.HostName = "studio.local."
	entry.Port = 8080
	entry.Text = []string{"path=/ws", "proto=json"}
	entry.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.20")}

	svc, ok := entryToService(entry)
	require.True(t, ok)
	assert.Equal(t, "desk", svc.Instance)
	assert.Equal(t, "ws://192.168.1.20:8080/ws", svc.URL())

	svc.Addresses = nil
	assert.Equal(t, "ws://studio.local.:8080/ws", svc.URL())

	_, ok = entryToService(&zeroconf.ServiceEntry{})
	assert.False(t, ok)
}
