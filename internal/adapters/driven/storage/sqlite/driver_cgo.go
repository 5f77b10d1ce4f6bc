//go:build cgo

package sqlite

import (
	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

func init() {
	sqlite_vec.Auto()
}

// driverName selects the registered database/sql driver.
const driverName = "sqlite3"

// vecCapable reports whether this build can load the vec0 extension.
const vecCapable = true

// dsn builds the connection string with WAL and a busy timeout.
func dsn(path string) string {
	return path + "?_journal_mode=WAL&_busy_timeout=5000"
}
