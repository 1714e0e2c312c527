// Package sqlite registers a go-sqlite3 driver with the sqlite-vec
// extension compiled in.
package sqlite

import (
	"database/sql"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/mattn/go-sqlite3"
)

// DriverName opens connections that can create and query vec0 tables.
const DriverName = "sqlite3_vec"

func init() {
	sqlite_vec.Auto()
	sql.Register(DriverName, &sqlite3.SQLiteDriver{})
}

// SerializeVector encodes vec in the little-endian float32 layout vec0 expects.
func SerializeVector(vec []float32) ([]byte, error) {
	return sqlite_vec.SerializeFloat32(vec)
}
