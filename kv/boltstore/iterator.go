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
	"bytes"

	"github.com/bigdaronlee163/pika/kv"
	bolt "go.etcd.io/bbolt"
)

// Iterator walks one bucket through a bolt cursor. When created without
// a snapshot it opens its own read transaction and closes it on Close.
type Iterator struct {
	cursor *bolt.Cursor
	ownTx  *bolt.Tx

	key   []byte
	value []byte
	valid bool
}

// NewIterator initializes an iterator over cf
func (db *DB) NewIterator(cf kv.ColumnFamily, snap kv.Snapshot) kv.Iterator {
	var tx *bolt.Tx
	var ownTx *bolt.Tx

	if snap != nil {
		tx = snap.(*snapshot).tx
	} else {
		t, err := db.db.Begin(false)
		if err != nil {
			return &Iterator{}
		}
		tx = t
		ownTx = t
	}
	if tx == nil {
		return &Iterator{}
	}

	bucket := tx.Bucket([]byte(cf))
	if bucket == nil {
		if ownTx != nil {
			_ = ownTx.Rollback()
		}
		return &Iterator{}
	}

	return &Iterator{cursor: bucket.Cursor(), ownTx: ownTx}
}

func (it *Iterator) set(k, v []byte) {
	if k == nil {
		it.valid = false
		it.key = nil
		it.value = nil
		return
	}

	// cursor memory is only valid inside the transaction, and callers
	// hold on to returned keys, so every move gets fresh copies
	it.key = append([]byte(nil), k...)
	it.value = append([]byte(nil), v...)
	it.valid = true
}

// Seek positions the iterator on the first key >= target
func (it *Iterator) Seek(target []byte) {
	if it.cursor == nil {
		return
	}
	it.set(it.cursor.Seek(target))
}

// SeekForPrev positions the iterator on the last key <= target
func (it *Iterator) SeekForPrev(target []byte) {
	if it.cursor == nil {
		return
	}
	k, v := it.cursor.Seek(target)
	if k == nil {
		k, v = it.cursor.Last()
	} else if bytes.Compare(k, target) > 0 {
		k, v = it.cursor.Prev()
	}
	it.set(k, v)
}

func (it *Iterator) SeekToFirst() {
	if it.cursor == nil {
		return
	}
	it.set(it.cursor.First())
}

func (it *Iterator) SeekToLast() {
	if it.cursor == nil {
		return
	}
	it.set(it.cursor.Last())
}

func (it *Iterator) Next() {
	if it.cursor == nil || !it.valid {
		return
	}
	it.set(it.cursor.Next())
}

func (it *Iterator) Prev() {
	if it.cursor == nil || !it.valid {
		return
	}
	it.set(it.cursor.Prev())
}

func (it *Iterator) Valid() bool {
	return it.valid
}

func (it *Iterator) Key() []byte {
	return it.key
}

func (it *Iterator) Value() []byte {
	return it.value
}

// Close releases the iterator transaction when it owns one
func (it *Iterator) Close() {
	if it.ownTx != nil {
		_ = it.ownTx.Rollback()
		it.ownTx = nil
	}
	it.cursor = nil
	it.valid = false
}
