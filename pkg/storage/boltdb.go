/*
Package storage implements the dealer's durable snapshot: a BoltDB file
holding the five tables of spec.md §6 (settings, aliases, imports,
services, status), written as one truncate-and-reinsert transaction
after every catalogue rebuild and read back once at startup. The
bucket-per-entity, json.Marshal-per-row layout is grounded on warren's
BoltStore; the snapshot/restore transaction semantics are new to
spec.md §4.6.
*/
package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/cuemby/netwatch/pkg/log"
	"github.com/cuemby/netwatch/pkg/metrics"
	"github.com/cuemby/netwatch/pkg/store"
	"github.com/cuemby/netwatch/pkg/types"
	bolt "go.etcd.io/bbolt"
	"github.com/rs/zerolog"
)

var (
	bucketSettings = []byte("settings")
	bucketAliases  = []byte("aliases")
	bucketImports  = []byte("imports")
	bucketServices = []byte("services")
	bucketStatus   = []byte("status")

	allBuckets = [][]byte{bucketSettings, bucketAliases, bucketImports, bucketServices, bucketStatus}
)

// BoltStore is the Store implementation backing cmd/dealer.
type BoltStore struct {
	db     *bolt.DB
	logger zerolog.Logger
}

// NewBoltStore opens (creating if absent) dataDir/netwatch.db and ensures
// all five buckets exist.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "netwatch.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, logger: log.WithComponent("storage")}, nil
}

// Close releases the database handle.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func idKey(id uint64) []byte {
	return []byte(strconv.FormatUint(id, 10))
}

// Setting reads a single key from the settings bucket.
func (s *BoltStore) Setting(key string) (string, bool, error) {
	var value string
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSettings).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		value = string(data)
		return nil
	})
	return value, found, err
}

// SetSetting upserts a single key in the settings bucket, in its own
// transaction (settings changes are rare and not part of the periodic
// snapshot cycle).
func (s *BoltStore) SetSetting(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSettings).Put([]byte(key), []byte(value))
	})
}

// Snapshot truncates and re-inserts aliases, imports, services, and
// status in one transaction (spec.md §4.6: "the dealer writes a full
// snapshot... truncating and re-inserting every table"). A row that
// fails to marshal or to be put is a logged-and-skipped integrity error,
// since a one-off bad row should not hold the rest of the snapshot
// hostage; a failure to delete or recreate a bucket aborts the whole
// transaction so the previous snapshot survives untouched.
func (s *BoltStore) Snapshot(ms *store.MemoryStore) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SnapshotDuration)

	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := truncate(tx, bucketStatus, bucketAliases, bucketImports, bucketServices); err != nil {
			return err
		}

		statuses := tx.Bucket(bucketStatus)
		for id, st := range ms.AllStatuses() {
			if err := putJSON(statuses, idKey(id), st); err != nil {
				s.logger.Error().Err(err).Uint64("status_id", id).Msg("snapshot: skipping unmarshalable status row")
			}
		}

		aliases := tx.Bucket(bucketAliases)
		for id, a := range ms.AllAliases() {
			if err := putJSON(aliases, idKey(id), a); err != nil {
				s.logger.Error().Err(err).Uint64("alias_id", id).Msg("snapshot: skipping unmarshalable alias row")
			}
		}

		imports := tx.Bucket(bucketImports)
		for id, i := range ms.AllImports() {
			if err := putJSON(imports, idKey(id), i); err != nil {
				s.logger.Error().Err(err).Uint64("import_id", id).Msg("snapshot: skipping unmarshalable import row")
			}
		}

		services := tx.Bucket(bucketServices)
		for id, svc := range ms.AllServices() {
			if err := putJSON(services, idKey(id), svc); err != nil {
				s.logger.Error().Err(err).Uint64("service_id", id).Msg("snapshot: skipping unmarshalable service row")
			}
		}
		return nil
	})
	if err != nil {
		metrics.SnapshotFailuresTotal.Inc()
	}
	return err
}

func truncate(tx *bolt.Tx, buckets ...[]byte) error {
	for _, b := range buckets {
		if err := tx.DeleteBucket(b); err != nil && err != bolt.ErrBucketNotFound {
			return fmt.Errorf("truncate bucket %s: %w", b, err)
		}
		if _, err := tx.CreateBucket(b); err != nil {
			return fmt.Errorf("recreate bucket %s: %w", b, err)
		}
	}
	return nil
}

func putJSON(b *bolt.Bucket, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

// Restore loads every durable table back into ms, in the fixed order
// status, aliases, imports, services (spec.md §4.6), then hands the rows
// to MemoryStore.RestoreRows, which re-derives every watermark, unique
// key, and secondary index, and re-enqueues every group into its
// WorkQueue's init sublist regardless of its persisted status (spec.md
// §4.6: "on restart every row is due for immediate re-check, since
// nothing was probed while the dealer was down").
func (s *BoltStore) Restore(ms *store.MemoryStore) error {
	return s.db.View(func(tx *bolt.Tx) error {
		statusByID := make(map[uint64]*types.Status)
		if err := tx.Bucket(bucketStatus).ForEach(func(k, v []byte) error {
			var st types.Status
			if err := json.Unmarshal(v, &st); err != nil {
				s.logger.Error().Err(err).Str("key", string(k)).Msg("restore: skipping corrupt status row")
				metrics.RestoreSkippedRowsTotal.WithLabelValues(string(bucketStatus)).Inc()
				return nil
			}
			statusByID[st.ID] = &st
			ms.BumpNextStatusID(st.ID)
			return nil
		}); err != nil {
			return err
		}

		var aliases []*types.Alias
		if err := tx.Bucket(bucketAliases).ForEach(func(k, v []byte) error {
			var a types.Alias
			if err := json.Unmarshal(v, &a); err != nil {
				s.logger.Error().Err(err).Str("key", string(k)).Msg("restore: skipping corrupt alias row")
				metrics.RestoreSkippedRowsTotal.WithLabelValues(string(bucketAliases)).Inc()
				return nil
			}
			aliases = append(aliases, &a)
			return nil
		}); err != nil {
			return err
		}

		var imports []*types.Import
		if err := tx.Bucket(bucketImports).ForEach(func(k, v []byte) error {
			var i types.Import
			if err := json.Unmarshal(v, &i); err != nil {
				s.logger.Error().Err(err).Str("key", string(k)).Msg("restore: skipping corrupt import row")
				metrics.RestoreSkippedRowsTotal.WithLabelValues(string(bucketImports)).Inc()
				return nil
			}
			imports = append(imports, &i)
			return nil
		}); err != nil {
			return err
		}

		var services []*types.Service
		if err := tx.Bucket(bucketServices).ForEach(func(k, v []byte) error {
			var svc types.Service
			if err := json.Unmarshal(v, &svc); err != nil {
				s.logger.Error().Err(err).Str("key", string(k)).Msg("restore: skipping corrupt service row")
				metrics.RestoreSkippedRowsTotal.WithLabelValues(string(bucketServices)).Inc()
				return nil
			}
			services = append(services, &svc)
			return nil
		}); err != nil {
			return err
		}

		ms.RestoreRows(aliases, imports, services, statusByID)
		return nil
	})
}
