package cachestore

import (
	"bytes"
	"encoding/gob"
	"net/http"
)

// Record is the persisted metadata for one cached response, mirroring the
// columns HttpCacheDatabaseOpenHelper::onCreate defines in the original
// SQL schema, stored here as a gob-encoded bbolt value instead of a SQL
// row, treating the database as an opaque key-value store.
type Record struct {
	Key Key

	StatusCode    int
	StatusMessage string
	Headers       http.Header

	// PayloadSize is the committed payload file's size in bytes, used by
	// EnumerateLRU callers to implement a total-size eviction budget.
	PayloadSize int64

	SentRequestAtEpoch     int64
	ReceivedResponseAtEpoch int64
	LastAccessedAtEpoch    int64
}

func encodeRecord(r Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (Record, error) {
	var r Record
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&r); err != nil {
		return Record{}, err
	}
	return r, nil
}
