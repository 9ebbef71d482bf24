// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package server

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testLimiter(cfg RateLimitConfig) (*limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := newLimiter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	l.now = clock.now
	return l, clock
}

func TestLimiter_RefillsOverTime(t *testing.T) {
	l, clock := testLimiter(RateLimitConfig{RequestsPerSecond: 2, Burst: 2, MaxVisitors: 10})

	assert.True(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"), "buckets are per ip")

	clock.advance(500 * time.Millisecond)
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))

	clock.advance(time.Hour)
	assert.True(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"), "refill is capped at burst")
}

func TestLimiter_SweepDropsIdleVisitors(t *testing.T) {
	l, clock := testLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, MaxVisitors: 10})

	l.allow("10.0.0.1")
	clock.advance(visitorIdle + time.Second)
	l.allow("10.0.0.2")
	l.sweep()

	require.Len(t, l.visitors, 1)
	assert.Contains(t, l.visitors, "10.0.0.2")
}

func TestLimiter_SweepEnforcesCap(t *testing.T) {
	l, clock := testLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, MaxVisitors: 3})

	for i := range 5 {
		l.allow(fmt.Sprintf("10.0.0.%d", i))
		clock.advance(time.Second)
	}
	l.sweep()

	require.Len(t, l.visitors, 3)
	for i := 2; i < 5; i++ {
		assert.Contains(t, l.visitors, fmt.Sprintf("10.0.0.%d", i))
	}
}

func TestRateLimitConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RateLimitConfig
		wantErr bool
	}{
		{"disabled", RateLimitConfig{}, false},
		{"valid", RateLimitConfig{RequestsPerSecond: 5, Burst: 10}, false},
		{"negative rate", RateLimitConfig{RequestsPerSecond: -1}, true},
		{"zero burst", RateLimitConfig{RequestsPerSecond: 5}, true},
		{"negative visitors", RateLimitConfig{MaxVisitors: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, defaultMaxVisitors, cfg.MaxVisitors)
		})
	}
}
