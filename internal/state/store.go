// Package state persists the registry of installed style packages and the
// linter binary, plus a log of synchronizer operations, in SQLite.
//
// Records are immutable: installing a new version inserts a new record and
// marks the previous one superseded in the same transaction.
package state

import (
	"context"
	"time"
)

// Record kinds.
const (
	KindPackage = "package"
	KindBinary  = "binary"
)

// Event statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Record is one installed version of a package or binary.
type Record struct {
	ID           string
	Kind         string
	Name         string
	Version      string
	Origin       string
	Checksum     string
	InstalledAt  time.Time
	SupersededAt *time.Time
	SupersededBy string
}

// Event is one synchronizer operation.
type Event struct {
	ID         string
	Op         string
	Ref        string
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store is the registry contract used by the synchronizer.
type Store interface {
	// Current returns the live record for kind/name, nil if none.
	Current(ctx context.Context, kind, name string) (*Record, error)
	// Installed returns all live records of a kind sorted by name.
	Installed(ctx context.Context, kind string) ([]Record, error)
	// History returns every record for kind/name, newest first.
	History(ctx context.Context, kind, name string) ([]Record, error)
	// Supersede stores rec as the live record, superseding any previous one.
	Supersede(ctx context.Context, rec Record) (*Record, error)
	// RecordEvent appends to the operation log.
	RecordEvent(ctx context.Context, ev Event) error
	// Events returns the most recent operations, newest first.
	Events(ctx context.Context, limit int) ([]Event, error)
	Close() error
}
