// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

// Package batchimport runs bulk artifact imports as background tasks. Each
// task creates its records one at a time and waits for the vector sync of a
// record before starting the next.
package batchimport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/observability"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

const (
	DefaultRetention = 30 * time.Minute
	DefaultMaxErrors = 5

	defaultJanitorInterval = time.Minute
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further progress will be made.
func (s Status) Terminal() bool { return s != StatusProcessing }

// Task is a point-in-time snapshot of an import.
type Task struct {
	ID           string
	Total        int
	Processed    int
	SuccessCount int
	FailedCount  int
	RecentErrors []string
	Status       Status
	StartTime    time.Time
	EndTime      time.Time
}

// ArtifactCreator persists new artifacts.
type ArtifactCreator interface {
	Create(ctx context.Context, a *store.Artifact) (int64, error)
}

// Syncer pushes one artifact into the vector index and reports success.
type Syncer interface {
	Sync(ctx context.Context, id int64, title, content, category string) bool
}

// Config tunes a Manager. Zero values select defaults.
type Config struct {
	// Retention is how long a finished task stays queryable.
	Retention time.Duration
	// MaxErrors caps Task.RecentErrors.
	MaxErrors       int
	JanitorInterval time.Duration
	Logger          *slog.Logger
}

type taskState struct {
	mu        sync.Mutex
	task      Task
	cancelled bool
	done      chan struct{}
}

func (s *taskState) snapshot() Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.task
	t.RecentErrors = append([]string(nil), s.task.RecentErrors...)
	return t
}

// Manager owns the set of import tasks.
type Manager struct {
	artifacts ArtifactCreator
	syncer    Syncer
	retention time.Duration
	maxErrors int
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.RWMutex
	tasks  map[string]*taskState
	closed bool

	wg        sync.WaitGroup
	stop      chan struct{}
	closeOnce sync.Once
}

// NewManager creates a manager. A nil syncer imports without vector sync.
func NewManager(artifacts ArtifactCreator, syncer Syncer, cfg Config) *Manager {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = DefaultMaxErrors
	}
	if cfg.JanitorInterval <= 0 {
		cfg.JanitorInterval = defaultJanitorInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		artifacts: artifacts,
		syncer:    syncer,
		retention: cfg.Retention,
		maxErrors: cfg.MaxErrors,
		interval:  cfg.JanitorInterval,
		logger:    cfg.Logger,
		now:       time.Now,
		tasks:     make(map[string]*taskState),
		stop:      make(chan struct{}),
	}
}

// SetNowFunc overrides the clock (for testing).
func (m *Manager) SetNowFunc(fn func() time.Time) {
	m.mu.Lock()
	m.now = fn
	m.mu.Unlock()
}

func (m *Manager) clock() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now()
}

// Submit validates payload and starts a background task for it. An invalid
// payload is rejected before any artifact is created and no task is made.
func (m *Manager) Submit(ctx context.Context, payload []byte) (string, error) {
	records, err := ParseRecords(payload)
	if err != nil {
		return "", err
	}
	return m.SubmitRecords(ctx, records)
}

// SubmitRecords starts a background task for already validated records. The
// task outlives ctx; only its values are inherited.
func (m *Manager) SubmitRecords(ctx context.Context, records []Record) (string, error) {
	id := uuid.NewString()
	st := &taskState{
		task: Task{
			ID:        id,
			Total:     len(records),
			Status:    StatusProcessing,
			StartTime: m.clock(),
		},
		done: make(chan struct{}),
	}

	// closed and wg.Add share m.mu with Close so no task starts after Wait.
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", srserr.New(srserr.CodeImportManagerClosed, "import manager is closed")
	}
	m.tasks[id] = st
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		m.run(context.WithoutCancel(ctx), st, records)
	}()

	m.logger.Info("import task submitted", "task_id", id, "total", len(records))
	return id, nil
}

// Status returns a snapshot of the task.
func (m *Manager) Status(id string) (Task, error) {
	st, err := m.lookup(id)
	if err != nil {
		return Task{}, err
	}
	return st.snapshot(), nil
}

// Cancel asks a running task to stop before its next record. It returns
// false when the task has already finished.
func (m *Manager) Cancel(id string) (bool, error) {
	st, err := m.lookup(id)
	if err != nil {
		return false, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.task.Status.Terminal() {
		return false, nil
	}
	st.cancelled = true
	m.logger.Info("import task cancel requested", "task_id", id)
	return true, nil
}

// Done returns a channel closed when the task reaches a terminal status.
func (m *Manager) Done(id string) (<-chan struct{}, error) {
	st, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return st.done, nil
}

// Wait blocks until the task finishes or ctx is done.
func (m *Manager) Wait(ctx context.Context, id string) (Task, error) {
	done, err := m.Done(id)
	if err != nil {
		return Task{}, err
	}
	select {
	case <-done:
		return m.Status(id)
	case <-ctx.Done():
		return Task{}, ctx.Err()
	}
}

// List returns snapshots of every retained task.
func (m *Manager) List() []Task {
	m.mu.RLock()
	states := make([]*taskState, 0, len(m.tasks))
	for _, st := range m.tasks {
		states = append(states, st)
	}
	m.mu.RUnlock()

	out := make([]Task, 0, len(states))
	for _, st := range states {
		out = append(out, st.snapshot())
	}
	return out
}

func (m *Manager) lookup(id string) (*taskState, error) {
	m.mu.RLock()
	st, ok := m.tasks[id]
	m.mu.RUnlock()
	if !ok {
		return nil, srserr.New(srserr.CodeImportTaskNotFound, "import task not found", srserr.FieldTaskID(id))
	}
	return st, nil
}

func (m *Manager) run(ctx context.Context, st *taskState, records []Record) {
	ctx, span := observability.StartSpan(ctx, "batchimport.task",
		attribute.String("import.task_id", st.task.ID),
		attribute.Int("import.total", len(records)),
	)
	defer span.End()
	defer close(st.done)

	status := StatusCompleted
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("import task panicked", "task_id", st.task.ID, "panic", r)
			status = StatusFailed
			st.mu.Lock()
			st.task.RecentErrors = m.appendError(st.task.RecentErrors, fmt.Sprintf("internal error: %v", r))
			st.mu.Unlock()
		}
		final := m.finish(st, status)
		span.SetAttributes(
			attribute.String("import.status", string(final.Status)),
			attribute.Int("import.processed", final.Processed),
			attribute.Int("import.success", final.SuccessCount),
			attribute.Int("import.failed", final.FailedCount),
		)
		observability.RecordOutcome(span, final.Status != StatusFailed, string(final.Status))
		m.logger.Info("import task finished",
			"task_id", final.ID,
			"status", final.Status,
			"success", final.SuccessCount,
			"failed", final.FailedCount,
		)
	}()

	for i, rec := range records {
		st.mu.Lock()
		cancelled := st.cancelled
		st.mu.Unlock()
		if cancelled {
			status = StatusCancelled
			return
		}

		errMsg := m.process(ctx, rec)

		st.mu.Lock()
		st.task.Processed = i + 1
		if errMsg == "" {
			st.task.SuccessCount++
		} else {
			st.task.FailedCount++
			st.task.RecentErrors = m.appendError(st.task.RecentErrors, fmt.Sprintf("record %d: %s", i+1, errMsg))
		}
		st.mu.Unlock()
	}
}

// process creates one record and syncs it. It returns an error message, or
// "" on success.
func (m *Manager) process(ctx context.Context, rec Record) string {
	a := rec.Artifact()
	id, err := m.artifacts.Create(ctx, a)
	if err != nil {
		m.logger.Warn("import record create failed", "title", rec.Title, "error", err)
		return fmt.Sprintf("create failed: %v", err)
	}
	if m.syncer == nil {
		return ""
	}
	if !m.syncer.Sync(ctx, id, a.Title, a.Content, a.Category) {
		m.logger.Warn("import record vector sync failed", "artifact_id", id)
		return fmt.Sprintf("artifact %d created but vector sync failed", id)
	}
	return ""
}

func (m *Manager) appendError(errs []string, msg string) []string {
	errs = append(errs, msg)
	if over := len(errs) - m.maxErrors; over > 0 {
		errs = append([]string(nil), errs[over:]...)
	}
	return errs
}

// finish records the terminal status. A cancel that arrived after the last
// record was started still marks the task cancelled when records remain.
func (m *Manager) finish(st *taskState, status Status) Task {
	end := m.clock()
	st.mu.Lock()
	defer st.mu.Unlock()
	if status == StatusCompleted && st.cancelled && st.task.Processed < st.task.Total {
		status = StatusCancelled
	}
	st.task.Status = status
	st.task.EndTime = end
	t := st.task
	t.RecentErrors = append([]string(nil), st.task.RecentErrors...)
	return t
}

// Cleanup drops terminal tasks that finished more than the retention window
// ago and returns how many were removed.
func (m *Manager) Cleanup() int {
	now := m.clock()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, st := range m.tasks {
		st.mu.Lock()
		expired := st.task.Status.Terminal() && now.Sub(st.task.EndTime) > m.retention
		st.mu.Unlock()
		if expired {
			delete(m.tasks, id)
			removed++
		}
	}
	return removed
}

// StartJanitor runs Cleanup periodically until Close.
func (m *Manager) StartJanitor() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := m.Cleanup(); n > 0 {
					m.logger.Debug("expired import tasks removed", "count", n)
				}
			case <-m.stop:
				return
			}
		}
	}()
}

// Close cancels running tasks, stops the janitor and waits for both.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		close(m.stop)
		for _, st := range m.tasks {
			st.mu.Lock()
			if !st.task.Status.Terminal() {
				st.cancelled = true
			}
			st.mu.Unlock()
		}
		m.mu.Unlock()
	})
	m.wg.Wait()
	return nil
}
