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

package memdb

import (
	"bytes"
	"sync"
	"time"

	"github.com/bigdaronlee163/pika/kv"
	"github.com/google/btree"
)

// Options defines the in-memory store configuration options
type Options struct {
	// Degree is the branching degree of the underlying btree
	Degree int

	// Clock returns the store time in unix seconds;
	// tests inject a fake clock to drive TTL paths deterministically
	Clock func() uint64
}

var DefaultOptions = Options{
	Degree: 32,
	Clock:  func() uint64 { return uint64(time.Now().Unix()) },
}

// Item defines each key-value pair to be inserted into the btree
type Item struct {
	key   []byte
	value []byte
}

// Less compares the current item with the right-hand side item
func (i *Item) Less(rhs btree.Item) bool {
	return bytes.Compare(i.key, rhs.(*Item).key) == -1
}

// DB is an in-memory kv.Store keeping one btree per column family.
// Snapshots are copy-on-write clones of the trees, so readers never
// block writers and a snapshot stays consistent across column families.
type DB struct {
	mu        sync.RWMutex
	options   Options
	cfs       map[kv.ColumnFamily]*btree.BTree
	factories map[kv.ColumnFamily]kv.CompactionFilterFactory
	closed    bool
}

// Open initializes a new in-memory store
func Open(options Options) *DB {
	if options.Degree <= 0 {
		options.Degree = DefaultOptions.Degree
	}
	if options.Clock == nil {
		options.Clock = DefaultOptions.Clock
	}

	return &DB{
		options:   options,
		cfs:       make(map[kv.ColumnFamily]*btree.BTree),
		factories: make(map[kv.ColumnFamily]kv.CompactionFilterFactory),
	}
}

// tree fetches the btree for cf, creating it on first use;
// the caller must hold db.mu
func (db *DB) tree(cf kv.ColumnFamily) *btree.BTree {
	t, ok := db.cfs[cf]
	if !ok {
		t = btree.New(db.options.Degree)
		db.cfs[cf] = t
	}
	return t
}

// snapshot holds a consistent clone of every column family tree
type snapshot struct {
	trees map[kv.ColumnFamily]*btree.BTree
}

func (db *DB) Get(cf kv.ColumnFamily, key []byte, snap kv.Snapshot) ([]byte, error) {
	var item btree.Item
	if snap != nil {
		s := snap.(*snapshot)
		t := s.trees[cf]
		if t == nil {
			return nil, kv.ErrKeyNotFound
		}
		item = t.Get(&Item{key: key})
	} else {
		db.mu.RLock()
		if t := db.cfs[cf]; t != nil {
			item = t.Get(&Item{key: key})
		}
		db.mu.RUnlock()
	}
	if item == nil {
		return nil, kv.ErrKeyNotFound
	}

	// callers mutate returned buffers in place before re-putting them,
	// so the stored value must never be aliased out
	value := item.(*Item).value
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (db *DB) Put(cf kv.ColumnFamily, key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.tree(cf).ReplaceOrInsert(newItem(key, value))
	return nil
}

func (db *DB) Delete(cf kv.ColumnFamily, key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if t, ok := db.cfs[cf]; ok {
		t.Delete(&Item{key: key})
	}
	return nil
}

func (db *DB) NewSnapshot() kv.Snapshot {
	db.mu.Lock()
	defer db.mu.Unlock()

	trees := make(map[kv.ColumnFamily]*btree.BTree, len(db.cfs))
	for cf, t := range db.cfs {
		trees[cf] = t.Clone()
	}
	return &snapshot{trees: trees}
}

func (db *DB) ReleaseSnapshot(snap kv.Snapshot) {
	if s, ok := snap.(*snapshot); ok {
		s.trees = nil
	}
}

func (db *DB) RegisterCompactionFilter(cf kv.ColumnFamily, factory kv.CompactionFilterFactory) {
	db.mu.Lock()
	db.factories[cf] = factory
	db.mu.Unlock()
}

func (db *DB) CurrentTime() uint64 {
	return db.options.Clock()
}

func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.closed = true
	db.cfs = make(map[kv.ColumnFamily]*btree.BTree)
	return nil
}

// compactionReader resolves lookups against the cloned trees of the
// running compaction, so a filter observes one consistent state
type compactionReader struct {
	trees map[kv.ColumnFamily]*btree.BTree
}

func (r *compactionReader) Get(cf kv.ColumnFamily, key []byte) ([]byte, error) {
	t, ok := r.trees[cf]
	if !ok {
		return nil, kv.ErrKeyNotFound
	}
	item := t.Get(&Item{key: key})
	if item == nil {
		return nil, kv.ErrKeyNotFound
	}
	return item.(*Item).value, nil
}

// Compact rewrites every column family, dropping the entries rejected by
// the registered filters
func (db *DB) Compact() error {
	db.mu.Lock()
	trees := make(map[kv.ColumnFamily]*btree.BTree, len(db.cfs))
	for cf, t := range db.cfs {
		trees[cf] = t.Clone()
	}
	factories := make(map[kv.ColumnFamily]kv.CompactionFilterFactory, len(db.factories))
	for cf, f := range db.factories {
		factories[cf] = f
	}
	db.mu.Unlock()

	now := db.options.Clock()
	reader := &compactionReader{trees: trees}

	for cf, factory := range factories {
		t, ok := trees[cf]
		if !ok {
			continue
		}

		filter := factory.NewFilter()
		var drops [][]byte
		t.Ascend(func(item btree.Item) bool {
			it := item.(*Item)
			if filter.ShouldDrop(reader, it.key, it.value, now) {
				drops = append(drops, it.key)
			}
			return true
		})

		db.mu.Lock()
		if live, ok := db.cfs[cf]; ok {
			for _, key := range drops {
				live.Delete(&Item{key: key})
			}
		}
		db.mu.Unlock()
	}
	return nil
}

func newItem(key, value []byte) *Item {
	k := make([]byte, len(key))
	copy(k, key)
	v := make([]byte, len(value))
	copy(v, value)
	return &Item{key: k, value: v}
}
