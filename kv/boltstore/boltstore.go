/*
 * Copyright (c) 2024. Shuojiang Liu.
 * Licensed under the MIT License (the "License");
 * you may not use this file except in compliance with the License.
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package boltstore

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bigdaronlee163/pika/kv"
	"github.com/gofrs/flock"
	bolt "go.etcd.io/bbolt"
)

const (
	dataFileName = "pika-data.db"
	fileLockName = "flock"

	// initialMmapSize is mapped up front; bbolt remaps to grow past it,
	// and a remap waits for every open read transaction (snapshot), so
	// commits under an open snapshot stay non-blocking while the file
	// fits in this mapping
	initialMmapSize = 1 << 30
)

// Options defines the persistent store configuration options
type Options struct {
	// DirectoryPath is the path to the data directory
	DirectoryPath string

	// SyncWrites indicates whether to fsync on every commit
	SyncWrites bool

	// Clock returns the store time in unix seconds
	Clock func() uint64
}

var DefaultOptions = Options{
	DirectoryPath: os.TempDir(),
	SyncWrites:    true,
	Clock:         func() uint64 { return uint64(time.Now().Unix()) },
}

// DB is a persistent kv.Store backed by a single bbolt file; every
// column family maps to one bucket, read transactions act as snapshots.
type DB struct {
	options Options
	db      *bolt.DB

	// fileLock guards the data directory against concurrent processes
	// refer to [https://github.com/gofrs/flock]
	fileLock *flock.Flock

	cfs       []kv.ColumnFamily
	factories map[kv.ColumnFamily]kv.CompactionFilterFactory
}

// Open initializes the persistent store, creating the data directory and
// one bucket per column family
func Open(options Options, cfs []kv.ColumnFamily) (*DB, error) {
	if options.Clock == nil {
		options.Clock = DefaultOptions.Clock
	}

	if _, err := os.Stat(options.DirectoryPath); os.IsNotExist(err) {
		if err := os.MkdirAll(options.DirectoryPath, os.ModePerm); err != nil {
			return nil, err
		}
	}

	// check if the data directory is used by another process
	fileLock := flock.New(filepath.Join(options.DirectoryPath, fileLockName))
	hold, err := fileLock.TryLock()
	if err != nil {
		return nil, err
	}
	if !hold {
		return nil, kv.ErrDatabaseIsUsing
	}

	bdb, err := bolt.Open(filepath.Join(options.DirectoryPath, dataFileName), 0644, &bolt.Options{
		NoSync:          !options.SyncWrites,
		InitialMmapSize: initialMmapSize,
	})
	if err != nil {
		_ = fileLock.Unlock()
		return nil, err
	}

	if err := bdb.Update(func(tx *bolt.Tx) error {
		for _, cf := range cfs {
			if _, err := tx.CreateBucketIfNotExists([]byte(cf)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		_ = fileLock.Unlock()
		return nil, err
	}

	return &DB{
		options:   options,
		db:        bdb,
		fileLock:  fileLock,
		cfs:       append([]kv.ColumnFamily(nil), cfs...),
		factories: make(map[kv.ColumnFamily]kv.CompactionFilterFactory),
	}, nil
}

// snapshot wraps a long-lived read transaction; it stays open until
// ReleaseSnapshot rolls it back
type snapshot struct {
	tx *bolt.Tx
}

func (db *DB) Get(cf kv.ColumnFamily, key []byte, snap kv.Snapshot) ([]byte, error) {
	if snap != nil {
		s := snap.(*snapshot)
		if s.tx == nil {
			return nil, kv.ErrSnapshotReleased
		}
		return bucketGet(s.tx, cf, key)
	}

	var value []byte
	err := db.db.View(func(tx *bolt.Tx) error {
		v, err := bucketGet(tx, cf, key)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func bucketGet(tx *bolt.Tx, cf kv.ColumnFamily, key []byte) ([]byte, error) {
	bucket := tx.Bucket([]byte(cf))
	if bucket == nil {
		return nil, kv.ErrColumnFamily
	}
	value := bucket.Get(key)
	if value == nil {
		return nil, kv.ErrKeyNotFound
	}

	// bucket memory is only valid for the lifetime of the transaction
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (db *DB) Put(cf kv.ColumnFamily, key, value []byte) error {
	return db.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(cf))
		if bucket == nil {
			return kv.ErrColumnFamily
		}
		return bucket.Put(key, value)
	})
}

func (db *DB) Delete(cf kv.ColumnFamily, key []byte) error {
	return db.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(cf))
		if bucket == nil {
			return kv.ErrColumnFamily
		}
		return bucket.Delete(key)
	})
}

func (db *DB) NewSnapshot() kv.Snapshot {
	tx, err := db.db.Begin(false)
	if err != nil {
		return &snapshot{}
	}
	return &snapshot{tx: tx}
}

func (db *DB) ReleaseSnapshot(snap kv.Snapshot) {
	if s, ok := snap.(*snapshot); ok && s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
}

func (db *DB) RegisterCompactionFilter(cf kv.ColumnFamily, factory kv.CompactionFilterFactory) {
	db.factories[cf] = factory
}

func (db *DB) CurrentTime() uint64 {
	return db.options.Clock()
}

// txReader resolves compaction-filter lookups inside the compaction
// transaction, so filters observe the state being rewritten
type txReader struct {
	tx *bolt.Tx
}

func (r *txReader) Get(cf kv.ColumnFamily, key []byte) ([]byte, error) {
	return bucketGet(r.tx, cf, key)
}

// Compact rewrites every column family in a single transaction, dropping
// the entries rejected by the registered filters
func (db *DB) Compact() error {
	now := db.options.Clock()

	return db.db.Update(func(tx *bolt.Tx) error {
		reader := &txReader{tx: tx}
		for cf, factory := range db.factories {
			bucket := tx.Bucket([]byte(cf))
			if bucket == nil {
				continue
			}

			filter := factory.NewFilter()
			var drops [][]byte
			cursor := bucket.Cursor()
			for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
				if filter.ShouldDrop(reader, k, v, now) {
					key := make([]byte, len(k))
					copy(key, k)
					drops = append(drops, key)
				}
			}

			for _, key := range drops {
				if err := bucket.Delete(key); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (db *DB) Close() error {
	if err := db.db.Close(); err != nil {
		return err
	}
	return db.fileLock.Unlock()
}
