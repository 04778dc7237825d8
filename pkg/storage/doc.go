/*
Package storage provides BoltDB-backed durability for the dealer's
in-memory database, implementing spec.md §4.6 and §6.

# Architecture

	┌──────────────────── BOLTDB STORAGE ──────────────────────┐
	│                                                            │
	│  BoltStore                                                │
	│    File: <dataDir>/netwatch.db                            │
	│    Buckets: settings, aliases, imports, services, status  │
	│                                                            │
	│  Snapshot(ms)                                             │
	│    One db.Update transaction: truncate the four row       │
	│    buckets, then re-insert every row from the in-memory   │
	│    MemoryStore. A row that fails to marshal is logged and │
	│    skipped; anything else rolls back the whole snapshot.  │
	│                                                            │
	│  Restore(ms)                                              │
	│    One db.View transaction, read in order status, aliases,│
	│    imports, services, handed to MemoryStore.RestoreRows   │
	│    which rebuilds every watermark, unique key, and         │
	│    secondary index and re-enqueues every group into init. │
	└────────────────────────────────────────────────────────────┘

# Usage

	db, err := storage.NewBoltStore("/var/lib/netwatch")
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Restore(ms); err != nil {
		log.Fatal(err)
	}
	// ... serve requests, periodically:
	if err := db.Snapshot(ms); err != nil {
		logger.Error().Err(err).Msg("snapshot failed")
	}

Snapshot is called by pkg/catalogue.Builder after every rebuild, so the
durable copy never lags the public catalogue by more than one rebuild
interval.

# See Also

  - pkg/store for the in-memory tables this package persists
  - pkg/catalogue for the Snapshotter caller
  - BoltDB documentation: https://github.com/etcd-io/bbolt
*/
package storage
