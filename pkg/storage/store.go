package storage

import "github.com/cuemby/netwatch/pkg/store"

// Store is the durable backing for MemoryStore, covering the five
// tables of spec.md §6: settings, aliases, imports, services, status.
// BoltStore is the only implementation; cmd/dealer uses *BoltStore
// directly.
type Store interface {
	// Snapshot truncates and re-inserts the aliases, imports, services
	// and status tables from ms in a single transaction (spec.md §4.6);
	// the settings table is not touched by Snapshot. A per-row error is
	// logged and skipped; a failure to truncate rolls back the whole
	// write.
	Snapshot(ms *store.MemoryStore) error

	// Restore loads every durable table back into ms, in the fixed order
	// status, aliases, imports, services, re-deriving every watermark and
	// secondary index along the way (spec.md §4.6).
	Restore(ms *store.MemoryStore) error

	// Setting and SetSetting persist arbitrary dealer configuration
	// (e.g. the last-seen seed file checksum) in the settings table.
	Setting(key string) (string, bool, error)
	SetSetting(key, value string) error

	// Close releases the underlying database handle.
	Close() error
}
