// Package store persists 3DS transaction records between the authentication,
// results and challenge legs of a flow. Four backends implement the same Store
// interface: in memory (default), redis (wire compatible with the original
// server keyspace), boltdb (single file) and postgres.
//
// Records are keyed by the threeDSServerTransID and indexed by the acsTransID,
// the only identifier a mobile challenge envelope carries. Every backend
// enforces the transaction TTL so an abandoned challenge can not be resumed.
package store

import (
	"context"

	"github.com/google/uuid"
)

// Keyed is implemented by stored record types.
type Keyed interface {
	// Key returns the primary key, the threeDSServerTransID.
	Key() uuid.UUID

	// ACSKey returns the secondary index key, the acsTransID.
	ACSKey() uuid.UUID
}

// Store persists transaction records of type V.
type Store[V Keyed] interface {
	// Save registers a new record. An existing record under the same key is
	// overwritten and its TTL restarts.
	Save(ctx context.Context, v V) error

	// Update replaces an existing record keeping its TTL.
	// It errors with ErrNotFound if no live record exists under the key.
	Update(ctx context.Context, v V) error

	// Load returns the live record stored under key.
	// It errors with ErrNotFound if there is none.
	Load(ctx context.Context, key uuid.UUID) (V, error)

	// FindByACSKey returns the live record whose ACSKey matches acsKey.
	// It errors with ErrNotFound if there is none.
	FindByACSKey(ctx context.Context, acsKey uuid.UUID) (V, error)

	// Close releases backend resources. The Store is unusable afterwards.
	Close() error
}
