package backend

import (
	"context"
	"fmt"
)

// Supported driver names for [Open].
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Drivers lists every driver name accepted by [Open].
var Drivers = []string{DriverMemory, DriverFile, DriverSQLite, DriverPostgres, DriverRedis}

// Options selects and configures a backend.
type Options struct {
	// Driver is one of [Drivers]. Empty selects memory.
	Driver string
	// Path is the directory (file) or database file (sqlite).
	Path string
	// DSN is the PostgreSQL connection string.
	DSN string
	// Addr, Password and DB configure the Redis connection.
	Addr     string
	Password string
	DB       int
}

// Open constructs the backend described by opts.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverFile:
		return NewFile(opts.Path)
	case DriverSQLite:
		return OpenSQLite(opts.Path)
	case DriverPostgres:
		return OpenPostgres(ctx, opts.DSN)
	case DriverRedis:
		return OpenRedis(ctx, opts.Addr, opts.Password, opts.DB)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
