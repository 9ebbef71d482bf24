// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package vectorsync

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 256
)

// Syncer is the part of Service the dispatcher drives.
type Syncer interface {
	Sync(ctx context.Context, id int64, title, content, category string) bool
	Remove(ctx context.Context, id int64) bool
}

// Op names the write that triggered a background sync.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Result reports the outcome of one background sync. Err is set only when
// the job never ran.
type Result struct {
	Op         Op
	ArtifactID int64
	OK         bool
	Err        error
}

type job struct {
	op       Op
	artifact store.Artifact
	ctx      context.Context
	result   chan<- Result
}

// Dispatcher runs write-path syncs on a bounded pool of workers so the
// caller never waits for the embedding provider. Each hook returns a channel
// that receives exactly one Result; callers that don't care may drop it.
//
// Every worker owns one lane and an artifact always maps to the same lane,
// so jobs for one id run in submission order and the last write wins.
type Dispatcher struct {
	syncer Syncer
	logger *slog.Logger
	lanes  []chan job

	mu      sync.RWMutex // held for read while enqueuing, for write while closing
	closed  bool
	closing chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// DispatcherConfig sizes the pool. QueueSize is split evenly across the
// workers' lanes. Zero values select defaults.
type DispatcherConfig struct {
	Workers   int
	QueueSize int
	Logger    *slog.Logger
}

// NewDispatcher starts the workers. Call Close to drain and stop them.
func NewDispatcher(syncer Syncer, cfg DispatcherConfig) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	d := &Dispatcher{
		syncer:  syncer,
		logger:  cfg.Logger,
		lanes:   make([]chan job, cfg.Workers),
		closing: make(chan struct{}),
	}
	laneSize := max(1, (cfg.QueueSize+cfg.Workers-1)/cfg.Workers)
	d.wg.Add(cfg.Workers)
	for i := range d.lanes {
		d.lanes[i] = make(chan job, laneSize)
		go d.run(d.lanes[i])
	}
	return d
}

// SyncOnCreate schedules indexing of a newly created artifact.
func (d *Dispatcher) SyncOnCreate(ctx context.Context, a *store.Artifact) <-chan Result {
	return d.submit(ctx, OpCreate, *a)
}

// SyncOnUpdate schedules re-indexing of a changed artifact.
func (d *Dispatcher) SyncOnUpdate(ctx context.Context, a *store.Artifact) <-chan Result {
	return d.submit(ctx, OpUpdate, *a)
}

// SyncOnDelete schedules removal of a deleted or deactivated artifact.
func (d *Dispatcher) SyncOnDelete(ctx context.Context, id int64) <-chan Result {
	return d.submit(ctx, OpDelete, store.Artifact{ID: id})
}

// Pending returns the number of queued jobs not yet picked up.
func (d *Dispatcher) Pending() int {
	n := 0
	for _, lane := range d.lanes {
		n += len(lane)
	}
	return n
}

func (d *Dispatcher) lane(id int64) chan job {
	return d.lanes[uint64(id)%uint64(len(d.lanes))]
}

// submit blocks only while the artifact's lane is full. ctx bounds that wait; the job
// itself runs detached from ctx cancellation.
func (d *Dispatcher) submit(ctx context.Context, op Op, a store.Artifact) <-chan Result {
	result := make(chan Result, 1)
	fail := func(err error) <-chan Result {
		d.logger.Warn("vector sync not scheduled", "op", op, "artifact_id", a.ID, "error", err)
		result <- Result{Op: op, ArtifactID: a.ID, Err: err}
		return result
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return fail(srserr.New(srserr.CodeSyncDispatchClosed, "sync dispatcher is closed"))
	}

	j := job{op: op, artifact: a, ctx: context.WithoutCancel(ctx), result: result}
	select {
	case d.lane(a.ID) <- j:
		return result
	case <-ctx.Done():
		return fail(ctx.Err())
	}
}

func (d *Dispatcher) run(lane <-chan job) {
	defer d.wg.Done()
	for {
		select {
		case j := <-lane:
			d.execute(j)
		case <-d.closing:
			for {
				select {
				case j := <-lane:
					d.execute(j)
				default:
					return
				}
			}
		}
	}
}

// execute runs a job with panic recovery.
func (d *Dispatcher) execute(j job) {
	res := Result{Op: j.op, ArtifactID: j.artifact.ID}
	func() {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("sync worker panic recovered",
					"artifact_id", j.artifact.ID,
					"panic", r,
					"stack", string(debug.Stack()))
				res.OK = false
			}
		}()
		switch j.op {
		case OpDelete:
			res.OK = d.syncer.Remove(j.ctx, j.artifact.ID)
		default:
			a := j.artifact
			res.OK = d.syncer.Sync(j.ctx, a.ID, a.Title, a.Content, a.Category)
		}
	}()
	j.result <- res
}

// Close stops accepting work, runs everything already queued and waits for
// the workers to exit. It is idempotent.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.closing)
		d.mu.Unlock()
		d.wg.Wait()
	})
}
