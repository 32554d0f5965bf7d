//go:build !sqlite_cgo

package store

import _ "modernc.org/sqlite"

// driverName is the database/sql driver registered by the pure-Go SQLite
// port. Build with the sqlite_cgo tag to use the cgo driver instead.
const driverName = "sqlite"
