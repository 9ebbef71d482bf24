// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package sqlite

import (
	"database/sql"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// DriverName is the database/sql driver every store in this package opens.
// It is go-sqlite3 with a fold(text) function that lowercases with Go's
// Unicode tables; SQLite's own LIKE and lower() only fold ASCII.
const DriverName = "sqlite3_srs"

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("fold", strings.ToLower, true)
		},
	})
}
