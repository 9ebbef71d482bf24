// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/server"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the health of a running server",
		RunE:  runStatus,
	}
	cmd.Flags().String("address", "127.0.0.1:8000", "server address to check")
	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	var report server.HealthReport
	if err := newAPIClient(addr).getJSON("/health", &report); err != nil {
		if srserr.HasCode(err, srserr.CodeCLIServerUnavailable) {
			_, _ = fmt.Fprintf(out, "srs at %s is not running (connection refused)\n", addr)
			return nil
		}
		return err
	}

	_, _ = fmt.Fprintf(out, "srs at %s: %s\n", addr, report.Status)
	names := make([]string, 0, len(report.Components))
	for name := range report.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := report.Components[name]
		line := fmt.Sprintf("  %-18s %s", name, c.Status)
		if c.Name != "" {
			line += " (" + c.Name + ")"
		}
		if c.Error != "" {
			line += ": " + c.Error
		}
		_, _ = fmt.Fprintln(out, line)
	}
	return nil
}
