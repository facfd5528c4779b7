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
	"testing"

	"github.com/bigdaronlee163/pika/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCF kv.ColumnFamily = "test_cf"

func newTestDB(t *testing.T) *DB {
	t.Helper()

	options := DefaultOptions
	options.DirectoryPath = t.TempDir()
	options.SyncWrites = false

	db, err := Open(options, []kv.ColumnFamily{testCF, "other_cf"})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestBoltStore_PutGetDelete(t *testing.T) {
	db := newTestDB(t)

	assert.NoError(t, db.Put(testCF, []byte("key"), []byte("value")))

	value, err := db.Get(testCF, []byte("key"), nil)
	assert.NoError(t, err)
	assert.Equal(t, []byte("value"), value)

	assert.NoError(t, db.Delete(testCF, []byte("key")))
	_, err = db.Get(testCF, []byte("key"), nil)
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)

	_, err = db.Get("unknown_cf", []byte("key"), nil)
	assert.ErrorIs(t, err, kv.ErrColumnFamily)
}

func TestBoltStore_DirectoryLock(t *testing.T) {
	options := DefaultOptions
	options.DirectoryPath = t.TempDir()
	options.SyncWrites = false

	db, err := Open(options, []kv.ColumnFamily{testCF})
	require.NoError(t, err)

	_, err = Open(options, []kv.ColumnFamily{testCF})
	assert.ErrorIs(t, err, kv.ErrDatabaseIsUsing)

	require.NoError(t, db.Close())

	// the directory is reusable once the first holder is gone
	db, err = Open(options, []kv.ColumnFamily{testCF})
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestBoltStore_WriteBatchAtomic(t *testing.T) {
	db := newTestDB(t)

	batch := db.NewWriteBatch()
	batch.Put(testCF, []byte("a"), []byte("1"))
	batch.Put("other_cf", []byte("b"), []byte("2"))
	assert.Equal(t, 2, batch.Count())

	_, err := db.Get(testCF, []byte("a"), nil)
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)

	require.NoError(t, batch.Commit())

	value, err := db.Get(testCF, []byte("a"), nil)
	assert.NoError(t, err)
	assert.Equal(t, []byte("1"), value)
	value, err = db.Get("other_cf", []byte("b"), nil)
	assert.NoError(t, err)
	assert.Equal(t, []byte("2"), value)
}

func TestBoltStore_SnapshotIsolation(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.Put(testCF, []byte("key"), []byte("before")))

	snap := db.NewSnapshot()
	defer db.ReleaseSnapshot(snap)

	require.NoError(t, db.Put(testCF, []byte("key"), []byte("after")))

	value, err := db.Get(testCF, []byte("key"), snap)
	assert.NoError(t, err)
	assert.Equal(t, []byte("before"), value)

	value, err = db.Get(testCF, []byte("key"), nil)
	assert.NoError(t, err)
	assert.Equal(t, []byte("after"), value)
}

func TestBoltStore_Iterator(t *testing.T) {
	db := newTestDB(t)

	for _, key := range []string{"a", "c", "e"} {
		require.NoError(t, db.Put(testCF, []byte(key), []byte("v"+key)))
	}

	iter := db.NewIterator(testCF, nil)
	defer iter.Close()

	iter.Seek([]byte("b"))
	require.True(t, iter.Valid())
	assert.Equal(t, []byte("c"), iter.Key())
	assert.Equal(t, []byte("vc"), iter.Value())

	iter.Next()
	assert.Equal(t, []byte("e"), iter.Key())
	iter.Next()
	assert.False(t, iter.Valid())

	iter.SeekForPrev([]byte("d"))
	require.True(t, iter.Valid())
	assert.Equal(t, []byte("c"), iter.Key())

	iter.SeekForPrev([]byte("z"))
	require.True(t, iter.Valid())
	assert.Equal(t, []byte("e"), iter.Key())

	iter.SeekToFirst()
	assert.Equal(t, []byte("a"), iter.Key())
	iter.SeekToLast()
	assert.Equal(t, []byte("e"), iter.Key())
}

type dropAllFilter struct{}

func (dropAllFilter) ShouldDrop(_ kv.Reader, _, _ []byte, _ uint64) bool {
	return true
}

type dropAllFactory struct{}

func (dropAllFactory) NewFilter() kv.CompactionFilter {
	return dropAllFilter{}
}

func TestBoltStore_Compact(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.Put(testCF, []byte("a"), []byte("1")))
	require.NoError(t, db.Put("other_cf", []byte("b"), []byte("2")))

	db.RegisterCompactionFilter(testCF, dropAllFactory{})
	require.NoError(t, db.Compact())

	_, err := db.Get(testCF, []byte("a"), nil)
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)

	value, err := db.Get("other_cf", []byte("b"), nil)
	assert.NoError(t, err)
	assert.Equal(t, []byte("2"), value)
}

func TestBoltStore_Reopen(t *testing.T) {
	options := DefaultOptions
	options.DirectoryPath = t.TempDir()
	options.SyncWrites = false

	db, err := Open(options, []kv.ColumnFamily{testCF})
	require.NoError(t, err)
	require.NoError(t, db.Put(testCF, []byte("key"), []byte("value")))
	require.NoError(t, db.Close())

	db, err = Open(options, []kv.ColumnFamily{testCF})
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	value, err := db.Get(testCF, []byte("key"), nil)
	assert.NoError(t, err)
	assert.Equal(t, []byte("value"), value)
}
