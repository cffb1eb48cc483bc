//go:build !cgo_sqlite

package sqlite

import (
	"net/url"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

const (
	driverName    = "sqlite"
	driverType    = "purego"
	driverPackage = "modernc.org/sqlite"
)

var pragmas = url.Values{
	"_pragma": {"busy_timeout(5000)", "journal_mode(WAL)"},
}
