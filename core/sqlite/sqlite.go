// Package sqlite opens SQLite databases through whichever driver the binary was
// built with.
//
// Build modes:
//   - Default: pure Go modernc.org/sqlite, driver name "sqlite"
//   - -tags cgo_sqlite (CGO_ENABLED=1): mattn/go-sqlite3, driver name "sqlite3"
//
// Use Open instead of sql.Open so that the driver name and the connection
// pragmas always match the linked driver.
package sqlite

import (
	"database/sql"
	"fmt"
)

// DriverName returns the SQL driver name to use.
func DriverName() string {
	return driverName
}

// DriverType returns "cgo" for mattn/go-sqlite3 and "purego" for modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// IsCGO returns true if the CGO implementation is being used.
func IsCGO() bool {
	return driverType == "cgo"
}

// Open opens the database file at path with a busy timeout and WAL journaling,
// expressed in the DSN dialect of the linked driver.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, path+"?"+pragmas.Encode())
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	return db, nil
}

// Info contains information about the SQLite driver configuration.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	IsCGO      bool   `json:"is_cgo"`
	Package    string `json:"package"`
}

// GetInfo returns information about the current SQLite configuration.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
	}
}
