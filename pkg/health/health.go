// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package health

import "time"

// Metrics is a point-in-time snapshot of an upstream dependency's health.
// All fields are safe to serialize to JSON.
type Metrics struct {
	Available     bool       `json:"available"`
	SuccessCount  int64      `json:"success_count"`
	FailureCount  int64      `json:"failure_count"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
}

// Status is the reported state of one system component.
type Status string

const (
	StatusHealthy     Status = "healthy"
	StatusUnhealthy   Status = "unhealthy"
	StatusUnavailable Status = "unavailable"
	StatusConfigured  Status = "configured"
	StatusDegraded    Status = "degraded"
)

// Report is the overall health of the system and its components.
type Report struct {
	Status     Status            `json:"status"`
	Components map[string]Status `json:"components"`
	CheckedAt  time.Time         `json:"checked_at"`
}

// Overall returns healthy when every required component is healthy and
// degraded otherwise. Optional components never degrade the result.
func Overall(components map[string]Status, required ...string) Status {
	for _, name := range required {
		if components[name] != StatusHealthy {
			return StatusDegraded
		}
	}
	return StatusHealthy
}
