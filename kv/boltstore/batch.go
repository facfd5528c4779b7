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
	"github.com/bigdaronlee163/pika/kv"
	bolt "go.etcd.io/bbolt"
)

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

// WriteBatch accumulates operations and applies them in one bolt
// transaction, which makes the commit atomic and durable
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

// Commit applies the whole batch inside a single writable transaction
func (wb *WriteBatch) Commit() error {
	if len(wb.pending) == 0 {
		return nil
	}

	err := wb.db.db.Update(func(tx *bolt.Tx) error {
		for _, op := range wb.pending {
			bucket := tx.Bucket([]byte(op.cf))
			if bucket == nil {
				return kv.ErrColumnFamily
			}
			switch op.kind {
			case opPut:
				if err := bucket.Put(op.key, op.value); err != nil {
					return err
				}
			case opDelete:
				if err := bucket.Delete(op.key); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	wb.pending = wb.pending[:0]
	return nil
}
