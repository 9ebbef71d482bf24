// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/retrieval"
)

var (
	scoreStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	categoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
)

const snippetWidth = 160

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a hybrid search against the local stores",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}
	cmd.Flags().Int("top-k", 0, "maximum results (default from search.top_k)")
	cmd.Flags().Float64("threshold", 0, "minimum similarity in [0, 1] (default from search.threshold)")
	cmd.Flags().StringSlice("category", nil, "restrict to categories (repeatable)")
	cmd.Flags().Bool("answer", false, "generate an answer from the results with the configured llm")
	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	req := retrieval.Request{Query: strings.Join(args, " ")}
	req.TopK, _ = cmd.Flags().GetInt("top-k")
	req.Categories, _ = cmd.Flags().GetStringSlice("category")
	if cmd.Flags().Changed("threshold") {
		th, _ := cmd.Flags().GetFloat64("threshold")
		req.Threshold = &th
	}
	if err := req.Validate(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := Wire(commandContext(cmd), cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	out := cmd.OutOrStdout()
	if answer, _ := cmd.Flags().GetBool("answer"); answer {
		ans, err := app.Engine.Answer(commandContext(cmd), req)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, boxStyle.Render(ans.Text))
		renderHits(out, ans.Sources)
		return nil
	}

	resp, err := app.Engine.Retrieve(commandContext(cmd), req)
	if err != nil {
		return err
	}
	if resp.VectorDegraded {
		_, _ = fmt.Fprintln(out, dimStyle.Render("vector search unavailable, showing keyword matches only"))
	}
	renderHits(out, resp.Artifacts)
	_, _ = fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%d results in %.3fs", resp.TotalCount, resp.ResponseTime)))
	return nil
}

func renderHits(w io.Writer, hits []retrieval.ScoredArtifact) {
	if len(hits) == 0 {
		_, _ = fmt.Fprintln(w, "No matching artifacts.")
		return
	}
	for i, h := range hits {
		header := fmt.Sprintf("%d. %s %s", i+1,
			titleStyle.Render(h.Artifact.Title),
			scoreStyle.Render(fmt.Sprintf("%.3f", h.Similarity)))
		if h.Artifact.Category != "" {
			header += " " + categoryStyle.Render("["+h.Artifact.Category+"]")
		}
		_, _ = fmt.Fprintln(w, header)
		_, _ = fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("   #%d %s  %s", h.Artifact.ID, h.Source, snippet(h.Artifact.Content, snippetWidth))))
	}
}

// snippet collapses whitespace and truncates to n runes.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
