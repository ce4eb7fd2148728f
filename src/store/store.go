package store

import "encoding/json"

// Store is durable, idempotent key to record storage with save-only-if-changed
// semantics. Records are opaque JSON; a Set with byte-identical content does not
// dirty the store, so SaveIfDirty called every tick stays free of I/O.
//
// Implementations must tolerate a missing or unreadable backing medium by
// behaving as an empty store: a skipped read is always safe, a failed tick is not.
type Store interface {
	// Load reads the backing medium into memory. Missing data is not an error.
	Load() error

	// Get returns the raw record for key, if present.
	Get(key string) (json.RawMessage, bool)

	// Set stores the record under key. No-op if the bytes are unchanged.
	Set(key string, rec json.RawMessage)

	// Remove deletes the record under key, if present.
	Remove(key string)

	// Keys returns all stored keys.
	Keys() []string

	// SaveIfDirty persists in-memory state. It performs no I/O when nothing
	// changed since the last save.
	SaveIfDirty() error
}
