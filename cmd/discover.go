// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bojanbass/01v96-remote/pkg/discovery"
	"github.com/spf13/cobra"
)

var (
	discoverTimeout int
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List mixer bridges advertised over mDNS",
	Long: `Browse the local network for running "mixerbridge serve" instances and
print each one with its WebSocket URL.

Exit codes:
  0 - At least one bridge found
  1 - No bridge found before the timeout
  2 - Browse error`,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	discoverCmd.Flags().IntVar(&discoverTimeout, "timeout", 3, "Browse time in seconds")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	fmt.Printf("Browsing %s for %d seconds...\n\n", discovery.ServiceType, discoverTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(discoverTimeout)*time.Second)
	defer cancel()

	seen := make(map[string]bool)
	err := discovery.Browse(ctx, func(svc discovery.Service) {
		if seen[svc.Instance] {
			return
		}
		seen[svc.Instance] = true

		fmt.Printf("%s\n", svc.Instance)
		fmt.Printf("  URL:       %s\n", svc.URL())
		fmt.Printf("  Host:      %s\n", svc.Host)
		if len(svc.Protocols) > 0 {
			fmt.Printf("  Protocols: %s\n", strings.Join(svc.Protocols, ", "))
		}
		if svc.Version != "" {
			fmt.Printf("  Version:   %s\n", svc.Version)
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Browse error: %v\n", err)
		os.Exit(2)
	}

	if len(seen) == 0 {
		fmt.Printf("No bridges found\n")
		os.Exit(1)
	}
	fmt.Printf("\n%d bridge(s) found\n", len(seen))
	return nil
}
