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

package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_HSetHGet(t *testing.T) {
	r, _ := newTestEngine(t)

	n, err := r.HSet([]byte("hash"), []byte("field"), []byte("value"))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), n)

	value, err := r.HGet([]byte("hash"), []byte("field"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("value"), value)

	// overwriting an existing field is not a new field
	n, err = r.HSet([]byte("hash"), []byte("field"), []byte("other"))
	assert.NoError(t, err)
	assert.Equal(t, int32(0), n)

	value, err = r.HGet([]byte("hash"), []byte("field"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("other"), value)

	_, err = r.HGet([]byte("hash"), []byte("missing"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
	_, err = r.HGet([]byte("missing"), []byte("field"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedis_HLenHGetall(t *testing.T) {
	r, _ := newTestEngine(t)

	n, err := r.HSet([]byte("h"), []byte("a"), []byte("1"))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), n)
	n, err = r.HSet([]byte("h"), []byte("b"), []byte("2"))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), n)

	length, err := r.HLen([]byte("h"))
	assert.NoError(t, err)
	assert.Equal(t, int32(2), length)

	fvs, err := r.HGetall([]byte("h"))
	assert.NoError(t, err)
	require.Len(t, fvs, 2)
	assert.Equal(t, []byte("a"), fvs[0].Field)
	assert.Equal(t, []byte("1"), fvs[0].Value)
	assert.Equal(t, []byte("b"), fvs[1].Field)
	assert.Equal(t, []byte("2"), fvs[1].Value)
}

func TestRedis_HDel(t *testing.T) {
	r, _ := newTestEngine(t)

	_, err := r.HSet([]byte("h"), []byte("a"), []byte("1"))
	require.NoError(t, err)
	_, err = r.HSet([]byte("h"), []byte("b"), []byte("2"))
	require.NoError(t, err)

	// duplicates and absent fields are not double counted
	n, err := r.HDel([]byte("h"), [][]byte{[]byte("a"), []byte("a"), []byte("missing")})
	assert.NoError(t, err)
	assert.Equal(t, int32(1), n)

	length, err := r.HLen([]byte("h"))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), length)

	// deleting from an absent key is a no-op
	n, err = r.HDel([]byte("missing"), [][]byte{[]byte("a")})
	assert.NoError(t, err)
	assert.Equal(t, int32(0), n)
}

func TestRedis_HDelLastFieldEmptiesKey(t *testing.T) {
	r, _ := newTestEngine(t)

	_, err := r.HSet([]byte("h"), []byte("a"), []byte("1"))
	require.NoError(t, err)

	n, err := r.HDel([]byte("h"), [][]byte{[]byte("a")})
	assert.NoError(t, err)
	assert.Equal(t, int32(1), n)

	_, err = r.HGet([]byte("h"), []byte("a"))
	assert.ErrorIs(t, err, ErrKeyNotFound)

	ok, err := r.Exists([]byte("h"))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_HMSetDedupPrefersLast(t *testing.T) {
	r, _ := newTestEngine(t)

	err := r.HMSet([]byte("h"), []FieldValue{
		{Field: []byte("a"), Value: []byte("first")},
		{Field: []byte("b"), Value: []byte("2")},
		{Field: []byte("a"), Value: []byte("last")},
	})
	assert.NoError(t, err)

	length, err := r.HLen([]byte("h"))
	assert.NoError(t, err)
	assert.Equal(t, int32(2), length)

	value, err := r.HGet([]byte("h"), []byte("a"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("last"), value)
}

func TestRedis_HMGet(t *testing.T) {
	r, _ := newTestEngine(t)

	require.NoError(t, r.HMSet([]byte("h"), []FieldValue{
		{Field: []byte("a"), Value: []byte("1")},
		{Field: []byte("b"), Value: []byte("2")},
	}))

	vss, err := r.HMGet([]byte("h"), [][]byte{[]byte("a"), []byte("missing"), []byte("b")})
	assert.NoError(t, err)
	require.Len(t, vss, 3)
	assert.Equal(t, []byte("1"), vss[0].Value)
	assert.ErrorIs(t, vss[1].Err, ErrKeyNotFound)
	assert.Equal(t, []byte("2"), vss[2].Value)

	vss, err = r.HMGet([]byte("missing"), [][]byte{[]byte("a")})
	assert.NoError(t, err)
	require.Len(t, vss, 1)
	assert.ErrorIs(t, vss[0].Err, ErrKeyNotFound)
}

func TestRedis_HKeysHValsHExistsHStrlen(t *testing.T) {
	r, _ := newTestEngine(t)

	require.NoError(t, r.HMSet([]byte("h"), []FieldValue{
		{Field: []byte("a"), Value: []byte("one")},
		{Field: []byte("b"), Value: []byte("two")},
	}))

	fields, err := r.HKeys([]byte("h"))
	assert.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, fields)

	values, err := r.HVals([]byte("h"))
	assert.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("one"), []byte("two")}, values)

	ok, err := r.HExists([]byte("h"), []byte("a"))
	assert.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.HExists([]byte("h"), []byte("z"))
	assert.NoError(t, err)
	assert.False(t, ok)

	n, err := r.HStrlen([]byte("h"), []byte("a"))
	assert.NoError(t, err)
	assert.Equal(t, int32(3), n)
}

func TestRedis_HSetnx(t *testing.T) {
	r, _ := newTestEngine(t)

	n, err := r.HSetnx([]byte("h"), []byte("f"), []byte("first"))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), n)

	n, err = r.HSetnx([]byte("h"), []byte("f"), []byte("second"))
	assert.NoError(t, err)
	assert.Equal(t, int32(0), n)

	value, err := r.HGet([]byte("h"), []byte("f"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("first"), value)
}

func TestRedis_HIncrby(t *testing.T) {
	r, _ := newTestEngine(t)

	n, err := r.HIncrby([]byte("h"), []byte("f"), 10)
	assert.NoError(t, err)
	assert.Equal(t, int64(10), n)

	n, err = r.HIncrby([]byte("h"), []byte("f"), -4)
	assert.NoError(t, err)
	assert.Equal(t, int64(6), n)

	_, err = r.HSet([]byte("h"), []byte("text"), []byte("abc"))
	require.NoError(t, err)
	_, err = r.HIncrby([]byte("h"), []byte("text"), 1)
	assert.ErrorIs(t, err, ErrCorruption)
}

func TestRedis_HIncrbyOverflow(t *testing.T) {
	r, _ := newTestEngine(t)

	_, err := r.HSet([]byte("h"), []byte("f"), []byte("9223372036854775807"))
	require.NoError(t, err)

	_, err = r.HIncrby([]byte("h"), []byte("f"), 1)
	assert.ErrorIs(t, err, ErrOverflow)

	// the field is untouched after the failed increment
	value, err := r.HGet([]byte("h"), []byte("f"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("9223372036854775807"), value)
}

func TestRedis_HIncrbyfloat(t *testing.T) {
	r, _ := newTestEngine(t)

	value, err := r.HIncrbyfloat([]byte("h"), []byte("f"), []byte("10.5"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("10.5"), value)

	value, err = r.HIncrbyfloat([]byte("h"), []byte("f"), []byte("0.1"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("10.6"), value)

	_, err = r.HIncrbyfloat([]byte("h"), []byte("f"), []byte("bad"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRedis_HGetallWithTTL(t *testing.T) {
	r, clock := newTestEngine(t)

	_, err := r.HSet([]byte("h"), []byte("a"), []byte("1"))
	require.NoError(t, err)

	fvs, ttl, err := r.HGetallWithTTL([]byte("h"))
	assert.NoError(t, err)
	assert.Len(t, fvs, 1)
	assert.Equal(t, int64(-1), ttl)

	require.NoError(t, r.HashesExpire([]byte("h"), 100))
	clock.Advance(30)
	_, ttl, err = r.HGetallWithTTL([]byte("h"))
	assert.NoError(t, err)
	assert.Equal(t, int64(70), ttl)
}

func TestRedis_HashesExpireTTLPersist(t *testing.T) {
	r, clock := newTestEngine(t)

	_, err := r.HSet([]byte("h"), []byte("f"), []byte("v"))
	require.NoError(t, err)

	ttl, err := r.HashesTTL([]byte("h"))
	assert.NoError(t, err)
	assert.Equal(t, int64(-1), ttl)

	require.NoError(t, r.HashesExpire([]byte("h"), 50))
	ttl, err = r.HashesTTL([]byte("h"))
	assert.NoError(t, err)
	assert.Equal(t, int64(50), ttl)

	n, err := r.HashesPersist([]byte("h"))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), n)

	require.NoError(t, r.HashesExpire([]byte("h"), 1))
	clock.Advance(2)
	_, err = r.HGet([]byte("h"), []byte("f"))
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// a write after expiry rebuilds the hash under a fresh version
	n, err = r.HSet([]byte("h"), []byte("f"), []byte("v2"))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), n)
	length, err := r.HLen([]byte("h"))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), length)
}

func TestRedis_HScanx(t *testing.T) {
	r, _ := newTestEngine(t)

	require.NoError(t, r.HMSet([]byte("h"), []FieldValue{
		{Field: []byte("a1"), Value: []byte("1")},
		{Field: []byte("a2"), Value: []byte("2")},
		{Field: []byte("b1"), Value: []byte("3")},
		{Field: []byte("b2"), Value: []byte("4")},
	}))

	fvs, next, err := r.HScanx([]byte("h"), nil, "*", 2)
	assert.NoError(t, err)
	require.Len(t, fvs, 2)
	assert.Equal(t, []byte("a1"), fvs[0].Field)
	assert.Equal(t, []byte("b1"), next)

	fvs, next, err = r.HScanx([]byte("h"), next, "*", 10)
	assert.NoError(t, err)
	require.Len(t, fvs, 2)
	assert.Equal(t, []byte("b1"), fvs[0].Field)
	assert.Nil(t, next)

	// pattern filtering still visits count entries
	fvs, next, err = r.HScanx([]byte("h"), nil, "b*", 10)
	assert.NoError(t, err)
	require.Len(t, fvs, 2)
	assert.Equal(t, []byte("b1"), fvs[0].Field)
	assert.Nil(t, next)
}

func TestRedis_HScanCursor(t *testing.T) {
	r, _ := newTestEngine(t)

	require.NoError(t, r.HMSet([]byte("h"), []FieldValue{
		{Field: []byte("f1"), Value: []byte("1")},
		{Field: []byte("f2"), Value: []byte("2")},
		{Field: []byte("f3"), Value: []byte("3")},
		{Field: []byte("f4"), Value: []byte("4")},
	}))

	var collected []FieldValue
	var cursor int64
	for {
		fvs, next, err := r.HScan([]byte("h"), cursor, "*", 2)
		require.NoError(t, err)
		collected = append(collected, fvs...)
		if next == 0 {
			break
		}
		cursor = next
	}
	require.Len(t, collected, 4)
	assert.Equal(t, []byte("f1"), collected[0].Field)
	assert.Equal(t, []byte("f4"), collected[3].Field)
}

func TestRedis_PKHScanRange(t *testing.T) {
	r, _ := newTestEngine(t)

	require.NoError(t, r.HMSet([]byte("h"), []FieldValue{
		{Field: []byte("a"), Value: []byte("1")},
		{Field: []byte("b"), Value: []byte("2")},
		{Field: []byte("c"), Value: []byte("3")},
		{Field: []byte("d"), Value: []byte("4")},
	}))

	fvs, next, err := r.PKHScanRange([]byte("h"), []byte("b"), []byte("c"), "*", 10)
	assert.NoError(t, err)
	require.Len(t, fvs, 2)
	assert.Equal(t, []byte("b"), fvs[0].Field)
	assert.Equal(t, []byte("c"), fvs[1].Field)
	assert.Nil(t, next)

	// an inverted range is rejected
	_, _, err = r.PKHScanRange([]byte("h"), []byte("c"), []byte("b"), "*", 10)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// limit caps the walk and hands back the resume field
	fvs, next, err = r.PKHScanRange([]byte("h"), nil, nil, "*", 2)
	assert.NoError(t, err)
	require.Len(t, fvs, 2)
	assert.Equal(t, []byte("c"), next)
}

func TestRedis_PKHRScanRange(t *testing.T) {
	r, _ := newTestEngine(t)

	require.NoError(t, r.HMSet([]byte("h"), []FieldValue{
		{Field: []byte("a"), Value: []byte("1")},
		{Field: []byte("b"), Value: []byte("2")},
		{Field: []byte("c"), Value: []byte("3")},
	}))

	fvs, next, err := r.PKHRScanRange([]byte("h"), nil, nil, "*", 10)
	assert.NoError(t, err)
	require.Len(t, fvs, 3)
	assert.Equal(t, []byte("c"), fvs[0].Field)
	assert.Equal(t, []byte("a"), fvs[2].Field)
	assert.Nil(t, next)

	fvs, next, err = r.PKHRScanRange([]byte("h"), []byte("c"), []byte("b"), "*", 10)
	assert.NoError(t, err)
	require.Len(t, fvs, 2)
	assert.Equal(t, []byte("c"), fvs[0].Field)
	assert.Equal(t, []byte("b"), fvs[1].Field)

	_, _, err = r.PKHRScanRange([]byte("h"), []byte("a"), []byte("b"), "*", 10)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
