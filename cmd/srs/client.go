// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package main

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

// statusClient is the HTTP client used by status. Overridden in tests.
var statusClient = &http.Client{
	Timeout: 5 * time.Second,
}

// apiClient reads from a running srs server.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(addr string) *apiClient {
	return &apiClient{
		baseURL: "http://" + addr,
		http:    statusClient,
	}
}

// getJSON decodes the body of a GET into dest. 503 bodies are decoded too
// since /health reports through them.
func (c *apiClient) getJSON(path string, dest any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		if isDialError(err) {
			return srserr.Errorf(srserr.CodeCLIServerUnavailable, "server is not running: %w", err)
		}
		return srserr.Errorf(srserr.CodeCLIRequestFailure, "request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		body, _ := io.ReadAll(resp.Body)
		return srserr.Errorf(srserr.CodeCLIRequestFailure, "server returned status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return srserr.Errorf(srserr.CodeCLIRequestFailure, "invalid response: %w", err)
	}
	return nil
}

// isDialError returns true if err is a net dial error (connection refused, etc.).
func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}

