package cachestore

import (
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/easyhttp-go/easyhttp/log"
)

var bucketName = []byte("cache_metadata")

// schemaVersionKey is a reserved key living inside bucketName itself,
// rather than a separate bucket, to keep the store to one bucket.
var schemaVersionKey = []byte("__schema_version__")

// Store is the persistent CacheRecord metadata store. All operations run
// inside a bbolt transaction, which serializes writers by design —
// exactly the "all transactional, single-writer" contract this component
// is specified against.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) the bbolt file at path and upgrades
// its schema if needed.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("cachestore: cannot open %q: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		existing := b.Get(schemaVersionKey)
		if existing == nil {
			return b.Put(schemaVersionKey, []byte{schemaVersion})
		}
		if existing[0] < schemaVersion {
			if err := upgradeSchema(tx, b, int(existing[0])); err != nil {
				return err
			}
			return b.Put(schemaVersionKey, []byte{schemaVersion})
		}
		return nil
	})
}

// upgradeSchema is a no-op for version 1, the only version this store has
// ever defined; it exists as the hook future schema bumps attach to.
func upgradeSchema(_ *bbolt.Tx, _ *bbolt.Bucket, from int) error {
	log.Debugf("cachestore: schema already at version %d, nothing to upgrade from %d", schemaVersion, from)
	return nil
}

// Close releases the underlying bbolt file.
func (s *Store) Close() error { return s.db.Close() }

// Get looks up the record for key. A missing record is reported as
// (Record{}, false, nil), never an error — the caller's cache miss path
// should not distinguish "absent" from some other store anomaly.
func (s *Store) Get(key Key) (Record, bool, error) {
	var rec Record
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		data := b.Get([]byte(key.String()))
		if data == nil {
			return nil
		}
		r, err := decodeRecord(data)
		if err != nil {
			return err
		}
		rec, found = r, true
		return nil
	})
	if err != nil {
		return Record{}, false, err
	}
	return rec, found, nil
}

// Put writes rec under its own Key, overwriting any existing record.
func (s *Store) Put(rec Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.Put([]byte(rec.Key.String()), data)
	})
}

// Delete removes the record for key, if any.
func (s *Store) Delete(key Key) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.Delete([]byte(key.String()))
	})
}

// Touch updates only LastAccessedAtEpoch for key, used on a cache hit so
// EnumerateLRU reflects true recency without rewriting the whole record.
func (s *Store) Touch(key Key, accessedAtEpoch int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		data := b.Get([]byte(key.String()))
		if data == nil {
			return nil
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return err
		}
		rec.LastAccessedAtEpoch = accessedAtEpoch
		encoded, err := encodeRecord(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(key.String()), encoded)
	})
}

// EnumerateLRU returns every record in the store ordered from least to
// most recently accessed. bbolt orders keys lexicographically, not by
// value, so this performs a full bucket scan and an in-memory sort —
// acceptable at the scale this core targets, since eviction runs as an
// infrequent background sweep rather than on the hot path.
func (s *Store) EnumerateLRU() ([]Record, error) {
	var records []Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.ForEach(func(k, v []byte) error {
			if string(k) == string(schemaVersionKey) {
				return nil
			}
			rec, err := decodeRecord(v)
			if err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].LastAccessedAtEpoch < records[j].LastAccessedAtEpoch
	})
	return records, nil
}
