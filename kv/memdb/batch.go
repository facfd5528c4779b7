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

import "github.com/bigdaronlee163/pika/kv"

type opKind byte

const (
	opPut opKind = iota
	opDelete
)

type batchOp struct {
	kind  opKind
	cf    kv.ColumnFamily
	key   []byte
	value []byte
}

// WriteBatch is a batch writing struct to ensure atomic commits
type WriteBatch struct {
	db      *DB
	pending []batchOp
}

// NewWriteBatch initializes a new WriteBatch
func (db *DB) NewWriteBatch() kv.WriteBatch {
	return &WriteBatch{db: db}
}

// Put stores the data in the batch
func (wb *WriteBatch) Put(cf kv.ColumnFamily, key, value []byte) {
	k := make([]byte, len(key))
	copy(k, key)
	v := make([]byte, len(value))
	copy(v, value)
	wb.pending = append(wb.pending, batchOp{kind: opPut, cf: cf, key: k, value: v})
}

// Delete removes the data in the batch
func (wb *WriteBatch) Delete(cf kv.ColumnFamily, key []byte) {
	k := make([]byte, len(key))
	copy(k, key)
	wb.pending = append(wb.pending, batchOp{kind: opDelete, cf: cf, key: k})
}

func (wb *WriteBatch) Count() int {
	return len(wb.pending)
}

// Commit applies every pending operation under the store lock;
// a reader either observes the whole batch or none of it
func (wb *WriteBatch) Commit() error {
	if len(wb.pending) == 0 {
		return nil
	}

	wb.db.mu.Lock()
	defer wb.db.mu.Unlock()

	if wb.db.closed {
		return kv.ErrStoreClosed
	}

	for _, op := range wb.pending {
		switch op.kind {
		case opPut:
			wb.db.tree(op.cf).ReplaceOrInsert(&Item{key: op.key, value: op.value})
		case opDelete:
			if t, ok := wb.db.cfs[op.cf]; ok {
				t.Delete(&Item{key: op.key})
			}
		}
	}

	wb.pending = wb.pending[:0]
	return nil
}
