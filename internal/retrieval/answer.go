// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package retrieval

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/provider"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

const (
	answerSystemPrompt = "You answer questions using only the numbered sources provided. " +
		"Cite sources as [n]. If the sources do not contain the answer, say so."
	noContextAnswer = "No relevant artifacts were found for this question."

	maxSourceRunes = 2000
)

// Answer is a completion grounded on retrieved artifacts.
type Answer struct {
	Query        string
	Text         string
	Sources      []ScoredArtifact
	ResponseTime float64
}

// Answer retrieves context for req and asks the completer to answer from it.
// With no matching artifacts the completer is not called.
func (e *Engine) Answer(ctx context.Context, req Request) (*Answer, error) {
	if e.completer == nil {
		return nil, srserr.New(srserr.CodeProviderNotConfigured, "no completion provider configured")
	}

	start := e.now()
	resp, err := e.Retrieve(ctx, req)
	if err != nil {
		return nil, err
	}

	out := &Answer{Query: req.Query, Sources: resp.Artifacts}
	if len(resp.Artifacts) == 0 {
		out.Text = noContextAnswer
		out.ResponseTime = e.now().Sub(start).Seconds()
		return out, nil
	}

	text, err := e.completer.Complete(ctx, provider.CompletionRequest{
		SystemPrompt: answerSystemPrompt,
		Prompt:       BuildPrompt(req.Query, resp.Artifacts),
	})
	if err != nil {
		return nil, err
	}
	out.Text = strings.TrimSpace(text)
	out.ResponseTime = e.now().Sub(start).Seconds()
	return out, nil
}

// BuildPrompt renders the question and its numbered sources.
func BuildPrompt(query string, sources []ScoredArtifact) string {
	var sb strings.Builder
	sb.WriteString("Sources:\n\n")
	for i, s := range sources {
		fmt.Fprintf(&sb, "[%d] %s\n%s\n\n", i+1, s.Artifact.Title, truncateRunes(s.Artifact.Content, maxSourceRunes))
	}
	sb.WriteString("Question: ")
	sb.WriteString(query)
	return sb.String()
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
