// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package vectorsync_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/vectorsync"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func await(t *testing.T, ch <-chan vectorsync.Result) vectorsync.Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for sync result")
		return vectorsync.Result{}
	}
}

func TestDispatcher_HooksReachTheIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := vectorsync.NewDispatcher(f.svc, vectorsync.DispatcherConfig{Workers: 2, Logger: discardLogger()})
	defer d.Close()

	a := f.create(t, "Title", "Body", "cat")
	r := await(t, d.SyncOnCreate(ctx, a))
	assert.Equal(t, vectorsync.OpCreate, r.Op)
	assert.Equal(t, a.ID, r.ArtifactID)
	assert.True(t, r.OK)
	assert.NoError(t, r.Err)
	assert.Equal(t, int64(1), f.count(t))

	a.Content = "Changed"
	r = await(t, d.SyncOnUpdate(ctx, a))
	assert.True(t, r.OK)
	assert.Equal(t, int64(1), f.count(t))

	r = await(t, d.SyncOnDelete(ctx, a.ID))
	assert.Equal(t, vectorsync.OpDelete, r.Op)
	assert.True(t, r.OK)
	assert.Zero(t, f.count(t))
}

func TestDispatcher_FailureIsReportedNotRaised(t *testing.T) {
	f := newFixture(t, "poison")
	d := vectorsync.NewDispatcher(f.svc, vectorsync.DispatcherConfig{Logger: discardLogger()})
	defer d.Close()

	r := await(t, d.SyncOnCreate(context.Background(), &store.Artifact{ID: 1, Title: "poison", Content: "x"}))
	assert.False(t, r.OK)
	assert.NoError(t, r.Err)
}

func TestDispatcher_JobOutlivesCallerContext(t *testing.T) {
	f := newFixture(t)
	d := vectorsync.NewDispatcher(f.svc, vectorsync.DispatcherConfig{Logger: discardLogger()})
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := d.SyncOnCreate(ctx, &store.Artifact{ID: 5, Title: "t", Content: "c"})
	cancel()

	assert.True(t, await(t, ch).OK)
}

// blockingSyncer holds every job until released.
type blockingSyncer struct {
	release chan struct{}
	started chan struct{}
	synced  atomic.Int32
	once    sync.Once
}

func newBlockingSyncer() *blockingSyncer {
	return &blockingSyncer{release: make(chan struct{}), started: make(chan struct{})}
}

func (b *blockingSyncer) Sync(context.Context, int64, string, string, string) bool {
	b.once.Do(func() { close(b.started) })
	<-b.release
	b.synced.Add(1)
	return true
}

func (b *blockingSyncer) Remove(context.Context, int64) bool { return true }

func TestDispatcher_CloseDrainsQueuedWork(t *testing.T) {
	b := newBlockingSyncer()
	d := vectorsync.NewDispatcher(b, vectorsync.DispatcherConfig{Workers: 1, QueueSize: 8, Logger: discardLogger()})

	var results []<-chan vectorsync.Result
	for i := int64(1); i <= 5; i++ {
		results = append(results, d.SyncOnCreate(context.Background(), &store.Artifact{ID: i}))
	}
	<-b.started

	closed := make(chan struct{})
	go func() {
		d.Close()
		close(closed)
	}()
	close(b.release)

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
	assert.Equal(t, int32(5), b.synced.Load())
	for _, ch := range results {
		assert.True(t, await(t, ch).OK)
	}

	r := await(t, d.SyncOnCreate(context.Background(), &store.Artifact{ID: 9}))
	require.Error(t, r.Err)
	assert.True(t, srserr.HasCode(r.Err, srserr.CodeSyncDispatchClosed))

	d.Close()
}

func TestDispatcher_FullQueueRespectsContext(t *testing.T) {
	b := newBlockingSyncer()
	d := vectorsync.NewDispatcher(b, vectorsync.DispatcherConfig{Workers: 1, QueueSize: 1, Logger: discardLogger()})
	defer func() {
		close(b.release)
		d.Close()
	}()

	d.SyncOnCreate(context.Background(), &store.Artifact{ID: 1})
	<-b.started
	d.SyncOnCreate(context.Background(), &store.Artifact{ID: 2})
	assert.Equal(t, 1, d.Pending())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	r := await(t, d.SyncOnCreate(ctx, &store.Artifact{ID: 3}))
	assert.ErrorIs(t, r.Err, context.DeadlineExceeded)
	assert.False(t, r.OK)
}

// orderSyncer logs the operations applied per artifact. Sync is slow and
// Remove is instant, so any reordering between workers shows up.
type orderSyncer struct {
	mu  sync.Mutex
	ops map[int64][]vectorsync.Op
}

func (o *orderSyncer) record(id int64, op vectorsync.Op) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops[id] = append(o.ops[id], op)
}

func (o *orderSyncer) Sync(_ context.Context, id int64, _, _, _ string) bool {
	time.Sleep(15 * time.Millisecond)
	o.record(id, vectorsync.OpCreate)
	return true
}

func (o *orderSyncer) Remove(_ context.Context, id int64) bool {
	o.record(id, vectorsync.OpDelete)
	return true
}

func TestDispatcher_SameArtifactRunsInOrder(t *testing.T) {
	o := &orderSyncer{ops: make(map[int64][]vectorsync.Op)}
	d := vectorsync.NewDispatcher(o, vectorsync.DispatcherConfig{Workers: 4, QueueSize: 64, Logger: discardLogger()})

	ctx := context.Background()
	var results []<-chan vectorsync.Result
	for id := int64(1); id <= 8; id++ {
		results = append(results,
			d.SyncOnCreate(ctx, &store.Artifact{ID: id, Title: "t", Content: "c"}),
			d.SyncOnDelete(ctx, id))
	}
	for _, ch := range results {
		assert.True(t, await(t, ch).OK)
	}
	d.Close()

	for id := int64(1); id <= 8; id++ {
		assert.Equal(t, []vectorsync.Op{vectorsync.OpCreate, vectorsync.OpDelete}, o.ops[id], "artifact %d", id)
	}
}

func TestDispatcher_CreateThenDeleteLeavesNoVector(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := vectorsync.NewDispatcher(f.svc, vectorsync.DispatcherConfig{Workers: 4, Logger: discardLogger()})
	defer d.Close()

	a := f.create(t, "Title", "Body", "cat")
	created := d.SyncOnCreate(ctx, a)
	deleted := d.SyncOnDelete(ctx, a.ID)
	assert.True(t, await(t, created).OK)
	assert.True(t, await(t, deleted).OK)
	assert.Zero(t, f.count(t))
}
