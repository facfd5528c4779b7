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
	"sort"

	"github.com/bigdaronlee163/pika/kv"
	"github.com/google/btree"
)

// Iterator walks one column family over a sorted snapshot slice
type Iterator struct {
	// currentIndex defines the current iterating index position
	currentIndex int

	// values stores the key-value pairs captured at creation time
	values []*Item
}

// NewIterator initializes an iterator over cf; a nil snapshot clones the
// current state so the walk is unaffected by concurrent writes
func (db *DB) NewIterator(cf kv.ColumnFamily, snap kv.Snapshot) kv.Iterator {
	var t *btree.BTree
	if snap != nil {
		t = snap.(*snapshot).trees[cf]
	} else {
		// Clone resets the tree's copy-on-write context, so it needs
		// the write lock even though it does not change the contents
		db.mu.Lock()
		if live, ok := db.cfs[cf]; ok {
			t = live.Clone()
		}
		db.mu.Unlock()
	}

	if t == nil {
		return &Iterator{}
	}

	values := make([]*Item, 0, t.Len())
	t.Ascend(func(item btree.Item) bool {
		values = append(values, item.(*Item))
		return true
	})

	return &Iterator{values: values}
}

// Seek positions the iterator on the first key >= target
func (it *Iterator) Seek(target []byte) {
	it.currentIndex = sort.Search(len(it.values), func(i int) bool {
		return bytes.Compare(it.values[i].key, target) >= 0
	})
}

// SeekForPrev positions the iterator on the last key <= target
func (it *Iterator) SeekForPrev(target []byte) {
	it.currentIndex = sort.Search(len(it.values), func(i int) bool {
		return bytes.Compare(it.values[i].key, target) > 0
	}) - 1
}

func (it *Iterator) SeekToFirst() {
	it.currentIndex = 0
}

func (it *Iterator) SeekToLast() {
	it.currentIndex = len(it.values) - 1
}

func (it *Iterator) Next() {
	it.currentIndex++
}

func (it *Iterator) Prev() {
	it.currentIndex--
}

// Valid checks whether the iterator still points at an entry
func (it *Iterator) Valid() bool {
	return it.currentIndex >= 0 && it.currentIndex < len(it.values)
}

func (it *Iterator) Key() []byte {
	return it.values[it.currentIndex].key
}

func (it *Iterator) Value() []byte {
	value := it.values[it.currentIndex].value
	out := make([]byte, len(value))
	copy(out, value)
	return out
}

// Close frees the captured entries
func (it *Iterator) Close() {
	it.values = nil
	it.currentIndex = 0
}
