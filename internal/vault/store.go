// Package vault stores flow snapshots in an object store, keyed by
// capture time, with a JSON metadata document next to every snapshot.
package vault

import "context"

// Store is the object-store surface the vault needs. GCSStore backs
// production; FSStore backs local work and tests.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns every object key under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}
