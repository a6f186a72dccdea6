package domain

import "context"

// ConfigRepository is the key/value configuration store.
type ConfigRepository interface {
	// GetAll returns every pair ordered by key.
	GetAll(ctx context.Context) ([]ConfigPair, error)

	// Get returns the pair for key, or (nil, nil) when absent.
	Get(ctx context.Context, key string) (*ConfigPair, error)

	// Set inserts or replaces the value for key.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Reports whether a row was removed.
	Delete(ctx context.Context, key string) (bool, error)
}
