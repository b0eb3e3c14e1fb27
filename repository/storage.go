package repository

import "context"

// ClientStorage is the durable key/value storage holding the client session
// between process runs. Save and Remove apply to all given keys atomically.
type ClientStorage interface {
	// Load returns the values of the requested keys; absent keys are omitted.
	Load(ctx context.Context, keys ...string) (map[string]string, error)
	Save(ctx context.Context, entries map[string]string) error
	// Remove deletes the keys. Removing absent keys is not an error.
	Remove(ctx context.Context, keys ...string) error
}

// Pinger is implemented by storages that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}
