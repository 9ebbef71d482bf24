// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the vector index from every active artifact",
		RunE:  runReindex,
	}
}

func runReindex(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	app, err := Wire(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	if !app.Sync.Available() {
		return srserr.New(srserr.CodeCLISetupFailure, "reindex needs both a vector backend and an embedding provider")
	}
	n, err := app.Sync.ReindexAll(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Reindexed %d artifacts\n", n)
	return err
}
