// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/batchimport"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json|->",
		Short: "Import a JSON array of artifact records",
		Long: `Import creates one artifact per record and embeds it. The file must hold a
JSON array of objects with at least "title" and "content". If any record is
invalid nothing is imported.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return srserr.Errorf(srserr.CodeCLIInputInvalid, "reading %s: %w", args[0], err)
	}

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

	id, err := app.Imports.Submit(ctx, data)
	if err != nil {
		return err
	}
	task, err := app.Imports.Wait(ctx, id)
	if err != nil {
		return err
	}
	printTask(cmd.OutOrStdout(), task)
	if task.Status != batchimport.StatusCompleted {
		return srserr.Errorf(srserr.CodeCLIRequestFailure, "import %s ended %s", task.ID, task.Status)
	}
	return nil
}

func printTask(w io.Writer, t batchimport.Task) {
	_, _ = fmt.Fprintf(w, "Import %s: %s\n", t.ID, t.Status)
	_, _ = fmt.Fprintf(w, "  processed %d/%d, %d succeeded, %d failed\n", t.Processed, t.Total, t.SuccessCount, t.FailedCount)
	for _, e := range t.RecentErrors {
		_, _ = fmt.Fprintln(w, errorStyle.Render("  "+e))
	}
}
