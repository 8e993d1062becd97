// Package persist stores specialist profiles and board signals so that a
// process can restart without losing what it has learned.
package persist

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ShayCichocki/swarm/internal/resonance"
	"github.com/ShayCichocki/swarm/internal/stigmergy"
)

// ErrUnknownDriver is returned by OpenStore for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown storage driver")

// Supported driver names.
const (
	DriverSQLite  = "sqlite"  // modernc.org/sqlite, pure Go
	DriverSQLite3 = "sqlite3" // github.com/mattn/go-sqlite3, cgo
	DriverYAML    = "yaml"
)

// ProfileStore persists specialist profiles.
type ProfileStore interface {
	// SaveProfile inserts or updates p. A stored profile with an equal or
	// newer Revision is left untouched.
	SaveProfile(ctx context.Context, p resonance.Profile) error
	DeleteProfiles(ctx context.Context, ids []string) error
	LoadProfiles(ctx context.Context) ([]resonance.Profile, error)
}

// SignalStore persists the signal table.
type SignalStore interface {
	SaveSignal(ctx context.Context, s stigmergy.Signal) error
	// ReplaceSignals swaps the whole signal table for signals.
	ReplaceSignals(ctx context.Context, signals []stigmergy.Signal) error
	LoadSignals(ctx context.Context) ([]stigmergy.Signal, error)
}

// Store composes profile and signal persistence.
type Store interface {
	ProfileStore
	SignalStore
	io.Closer
}

// OpenStore opens a store for driver at path. SQLite stores are migrated
// before they are returned.
func OpenStore(driver, path string) (Store, error) {
	switch driver {
	case "", DriverSQLite, DriverSQLite3:
		db, err := Open(path, driver)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	case DriverYAML:
		return OpenFileStore(path)
	default:
		return nil, fmt.Errorf("open store %q: %w", driver, ErrUnknownDriver)
	}
}
