//go:build !cgo

package sqlite

import (
	_ "modernc.org/sqlite" // SQLite driver
)

// driverName selects the registered database/sql driver.
const driverName = "sqlite"

// vecCapable reports whether this build can load the vec0 extension.
// The pure-Go build cannot; vector search runs in fallback mode.
const vecCapable = false

// dsn builds the connection string with WAL and a busy timeout.
func dsn(path string) string {
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}
