package ports

import "context"

// SnapshotStore is a durable key-value slot holding whole engine snapshots.
type SnapshotStore interface {
	// Put overwrites the blob stored under key.
	Put(ctx context.Context, key string, blob []byte) error

	// Get returns the blob under key. found is false when the slot is empty.
	Get(ctx context.Context, key string) (blob []byte, found bool, err error)

	// Delete clears the slot. Deleting an empty slot is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the underlying connection.
	Close() error
}
