package interfaces

import (
	"context"

	"meetingbridge/pkg/types"
)

// KeyValueStore is a durable string-keyed byte store, one per collection
// ARCHITECTURAL DISCOVERY: Conditional writes (SetIfAbsent, CompareAndSwap)
// live at the storage boundary so concurrent writers across processes cannot
// silently overwrite each other's session records
type KeyValueStore interface {
	// Get returns the stored value and whether the key exists
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set writes the value unconditionally
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key and reports whether it existed
	Delete(ctx context.Context, key string) (bool, error)

	// Has reports whether the key exists
	Has(ctx context.Context, key string) (bool, error)

	// SetIfAbsent writes the value only when the key does not exist yet
	SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error)

	// CompareAndSwap replaces the value only when the stored value equals old
	CompareAndSwap(ctx context.Context, key string, old, new []byte) (bool, error)
}

// ContentCatalog stores the content items mirrored from the
// content-management system
type ContentCatalog interface {
	// GetContentItem returns ErrContentNotFound when the item is unknown
	GetContentItem(ctx context.Context, id string) (*types.ContentItem, error)

	// UpsertContentItem inserts or replaces the item
	UpsertContentItem(ctx context.Context, item *types.ContentItem) error

	// DeleteContentItem removes the item and reports whether it existed
	DeleteContentItem(ctx context.Context, id string) (bool, error)
}

// DatabaseManager handles all database operations
// ARCHITECTURAL DISCOVERY: Single interface for all persistence operations
// enables consistent connection management and a single health check
type DatabaseManager interface {
	ContentCatalog

	// Collection returns the key-value store for a named collection
	Collection(name string) KeyValueStore

	// HealthCheck verifies database connectivity and basic operations
	HealthCheck(ctx context.Context) error

	// Close closes the database connection and cleans up resources
	Close() error
}
