// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

// Package qdrant implements store.VectorIndex on a Qdrant collection over
// gRPC. Points use the artifact id as a numeric point id and Euclidean
// distance.
package qdrant

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

const (
	payloadCategory = "category"
	payloadSource   = "source"
)

func init() {
	store.RegisterVectorBackend("qdrant", func(cfg *store.StorageConfig, dims int) (store.VectorIndex, error) {
		return New(context.Background(), cfg.QdrantHost, cfg.QdrantPort, cfg.QdrantCollection, dims)
	})
}

// Compile-time interface check.
var _ store.VectorIndex = (*Index)(nil)

// Index is a Qdrant-backed vector index.
type Index struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dimensions  int
}

// New connects to host:port and creates the collection if it is missing.
func New(ctx context.Context, host string, port int, collection string, dimensions int) (*Index, error) {
	if dimensions <= 0 {
		return nil, srserr.Errorf(srserr.CodeVectorDimensionsInvalid, "vector dimensions must be positive, got %d", dimensions)
	}
	if collection == "" {
		collection = "artifacts"
	}
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, srserr.Errorf(srserr.CodeVectorIndexUnavailable, "qdrant connect %s: %w", addr, err)
	}

	idx := &Index{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		dimensions:  dimensions,
	}
	if err := idx.ensureCollection(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return idx, nil
}

func (x *Index) ensureCollection(ctx context.Context) error {
	resp, err := x.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: x.collection})
	if err != nil {
		return srserr.Errorf(srserr.CodeVectorIndexUnavailable, "checking qdrant collection %s: %w", x.collection, err)
	}
	if resp.GetResult().GetExists() {
		return nil
	}
	return x.createCollection(ctx)
}

func (x *Index) createCollection(ctx context.Context) error {
	_, err := x.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: x.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{Params: &pb.VectorParams{
			Size:     uint64(x.dimensions),
			Distance: pb.Distance_Euclid,
		}}},
	})
	if err != nil {
		return srserr.Errorf(srserr.CodeVectorIndexFailure, "creating qdrant collection %s: %w", x.collection, err)
	}
	return nil
}

func (x *Index) Dimensions() int { return x.dimensions }

func (x *Index) Upsert(ctx context.Context, entry store.VectorEntry) error {
	return x.UpsertBatch(ctx, []store.VectorEntry{entry})
}

// UpsertBatch sends all points in one request.
func (x *Index) UpsertBatch(ctx context.Context, entries []store.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}
	points := make([]*pb.PointStruct, len(entries))
	for i, e := range entries {
		if err := e.Validate(x.dimensions); err != nil {
			return err
		}
		points[i] = &pb.PointStruct{
			Id:      pointID(e.ID),
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: e.Embedding}}},
			Payload: map[string]*pb.Value{
				payloadCategory: {Kind: &pb.Value_StringValue{StringValue: e.Metadata.Category}},
				payloadSource:   {Kind: &pb.Value_StringValue{StringValue: e.Metadata.Source}},
			},
		}
	}

	wait := true
	if _, err := x.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: x.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return srserr.Errorf(srserr.CodeVectorIndexFailure, "qdrant upsert: %w", err)
	}
	return nil
}

func (x *Index) Query(ctx context.Context, embedding []float32, k int) ([]store.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}
	if err := store.CheckDimensions("query embedding", embedding, x.dimensions); err != nil {
		return nil, err
	}
	resp, err := x.points.Search(ctx, &pb.SearchPoints{
		CollectionName: x.collection,
		Vector:         embedding,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, srserr.Errorf(srserr.CodeVectorIndexFailure, "qdrant search: %w", err)
	}

	hits := make([]store.VectorHit, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		hits = append(hits, store.VectorHit{
			ID:       int64(pt.GetId().GetNum()),
			Distance: float64(pt.GetScore()),
			Metadata: store.VectorMetadata{
				Category: pt.GetPayload()[payloadCategory].GetStringValue(),
				Source:   pt.GetPayload()[payloadSource].GetStringValue(),
			},
		})
	}
	return hits, nil
}

func (x *Index) Delete(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	pids := make([]*pb.PointId, len(ids))
	for i, id := range ids {
		pids[i] = pointID(id)
	}
	wait := true
	if _, err := x.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: x.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{PointsSelectorOneOf: &pb.PointsSelector_Points{
			Points: &pb.PointsIdsList{Ids: pids},
		}},
	}); err != nil {
		return srserr.Errorf(srserr.CodeVectorIndexFailure, "qdrant delete: %w", err)
	}
	return nil
}

// Clear drops and recreates the collection.
func (x *Index) Clear(ctx context.Context) error {
	if _, err := x.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: x.collection}); err != nil {
		return srserr.Errorf(srserr.CodeVectorIndexFailure, "dropping qdrant collection %s: %w", x.collection, err)
	}
	return x.createCollection(ctx)
}

func (x *Index) Count(ctx context.Context) (int64, error) {
	exact := true
	resp, err := x.points.Count(ctx, &pb.CountPoints{CollectionName: x.collection, Exact: &exact})
	if err != nil {
		return 0, srserr.Errorf(srserr.CodeVectorIndexFailure, "qdrant count: %w", err)
	}
	return int64(resp.GetResult().GetCount()), nil
}

func (x *Index) Close() error {
	return x.conn.Close()
}

func pointID(id int64) *pb.PointId {
	return &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: uint64(id)}}
}
