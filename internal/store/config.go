// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package store

// StorageConfig selects and parameterizes the relational and vector backends.
type StorageConfig struct {
	Backend     string // "sqlite" (default) or "postgres"
	DataDir     string // sqlite database directory
	PostgresDSN string

	VectorBackend    string // "sqlite" (default), "qdrant" or "none"
	VectorDimensions int    // 0 uses the default (1536)
	QdrantHost       string
	QdrantPort       int
	QdrantCollection string
}
