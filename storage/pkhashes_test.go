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

func TestRedis_PKHSetPKHGet(t *testing.T) {
	r, _ := newTestEngine(t)

	n, err := r.PKHSet([]byte("h"), []byte("f"), []byte("v"))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), n)

	value, err := r.PKHGet([]byte("h"), []byte("f"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("v"), value)

	n, err = r.PKHSet([]byte("h"), []byte("f"), []byte("v2"))
	assert.NoError(t, err)
	assert.Equal(t, int32(0), n)

	length, err := r.PKHLen([]byte("h"))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), length)
}

func TestRedis_PKHExpireFieldBecomesStale(t *testing.T) {
	r, clock := newTestEngine(t)

	_, err := r.PKHSet([]byte("h"), []byte("f"), []byte("v"))
	require.NoError(t, err)

	rets, err := r.PKHExpire([]byte("h"), 1, [][]byte{[]byte("f")})
	assert.NoError(t, err)
	assert.Equal(t, []int32{1}, rets)

	clock.Advance(2)
	_, err = r.PKHGet([]byte("h"), []byte("f"))
	assert.ErrorIs(t, err, ErrStaleKey)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// the sibling field is unaffected
	_, err = r.PKHSet([]byte("h"), []byte("g"), []byte("w"))
	require.NoError(t, err)
	value, err := r.PKHGet([]byte("h"), []byte("g"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("w"), value)
}

func TestRedis_PKHExpireRejectsNonPositiveTTL(t *testing.T) {
	r, _ := newTestEngine(t)

	_, err := r.PKHSet([]byte("h"), []byte("f"), []byte("v"))
	require.NoError(t, err)

	_, err = r.PKHExpire([]byte("h"), 0, [][]byte{[]byte("f")})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = r.PKHExpire([]byte("h"), -5, [][]byte{[]byte("f")})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRedis_PKHExpireMissingFields(t *testing.T) {
	r, _ := newTestEngine(t)

	_, err := r.PKHSet([]byte("h"), []byte("f"), []byte("v"))
	require.NoError(t, err)

	rets, err := r.PKHExpire([]byte("h"), 10, [][]byte{[]byte("f"), []byte("missing")})
	assert.NoError(t, err)
	assert.Equal(t, []int32{1, -2}, rets)
}

func TestRedis_PKHExpireat(t *testing.T) {
	r, clock := newTestEngine(t)

	_, err := r.PKHSet([]byte("h"), []byte("f"), []byte("v"))
	require.NoError(t, err)

	deadline := int64(clock.Now()) + 100
	rets, err := r.PKHExpireat([]byte("h"), deadline, [][]byte{[]byte("f")})
	assert.NoError(t, err)
	assert.Equal(t, []int32{1}, rets)

	timestamps, rets, err := r.PKHExpiretime([]byte("h"), [][]byte{[]byte("f")})
	assert.NoError(t, err)
	assert.Equal(t, []int32{1}, rets)
	assert.Equal(t, []int64{deadline}, timestamps)

	// a past deadline is rejected
	_, err = r.PKHExpireat([]byte("h"), int64(clock.Now())-1, [][]byte{[]byte("f")})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRedis_PKHTTL(t *testing.T) {
	r, clock := newTestEngine(t)

	_, err := r.PKHSet([]byte("h"), []byte("f"), []byte("v"))
	require.NoError(t, err)
	_, err = r.PKHSet([]byte("h"), []byte("g"), []byte("w"))
	require.NoError(t, err)

	_, err = r.PKHExpire([]byte("h"), 100, [][]byte{[]byte("f")})
	require.NoError(t, err)
	clock.Advance(40)

	ttls, rets, err := r.PKHTTL([]byte("h"), [][]byte{[]byte("f"), []byte("g"), []byte("missing")})
	assert.NoError(t, err)
	assert.Equal(t, []int32{1, -1, -2}, rets)
	assert.Equal(t, []int64{60, -1, -2}, ttls)
}

func TestRedis_PKHPersist(t *testing.T) {
	r, clock := newTestEngine(t)

	_, err := r.PKHSet([]byte("h"), []byte("f"), []byte("v"))
	require.NoError(t, err)

	_, err = r.PKHExpire([]byte("h"), 5, [][]byte{[]byte("f")})
	require.NoError(t, err)

	rets, err := r.PKHPersist([]byte("h"), [][]byte{[]byte("f")})
	assert.NoError(t, err)
	assert.Equal(t, []int32{1}, rets)

	// the field survives past the old deadline
	clock.Advance(10)
	value, err := r.PKHGet([]byte("h"), []byte("f"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("v"), value)

	// persisting a field without a TTL reports -1
	rets, err = r.PKHPersist([]byte("h"), [][]byte{[]byte("f")})
	assert.NoError(t, err)
	assert.Equal(t, []int32{-1}, rets)
}

func TestRedis_PKHDel(t *testing.T) {
	r, _ := newTestEngine(t)

	_, err := r.PKHSet([]byte("h"), []byte("a"), []byte("1"))
	require.NoError(t, err)
	_, err = r.PKHSet([]byte("h"), []byte("b"), []byte("2"))
	require.NoError(t, err)

	n, err := r.PKHDel([]byte("h"), [][]byte{[]byte("a"), []byte("a"), []byte("missing")})
	assert.NoError(t, err)
	assert.Equal(t, int32(1), n)

	length, err := r.PKHLen([]byte("h"))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), length)
}

func TestRedis_PKHGetall(t *testing.T) {
	r, clock := newTestEngine(t)

	_, err := r.PKHSet([]byte("h"), []byte("a"), []byte("1"))
	require.NoError(t, err)
	_, err = r.PKHSet([]byte("h"), []byte("b"), []byte("2"))
	require.NoError(t, err)

	_, err = r.PKHExpire([]byte("h"), 100, [][]byte{[]byte("a")})
	require.NoError(t, err)
	_, err = r.PKHExpire([]byte("h"), 1, [][]byte{[]byte("b")})
	require.NoError(t, err)
	clock.Advance(2)

	// expired fields disappear from the listing
	fvts, err := r.PKHGetall([]byte("h"))
	assert.NoError(t, err)
	require.Len(t, fvts, 1)
	assert.Equal(t, []byte("a"), fvts[0].Field)
	assert.Equal(t, []byte("1"), fvts[0].Value)
	assert.Equal(t, int64(98), fvts[0].TTL)
}

func TestRedis_PKHExists(t *testing.T) {
	r, clock := newTestEngine(t)

	_, err := r.PKHSet([]byte("h"), []byte("f"), []byte("v"))
	require.NoError(t, err)

	ok, err := r.PKHExists([]byte("h"), []byte("f"))
	assert.NoError(t, err)
	assert.True(t, ok)

	_, err = r.PKHExpire([]byte("h"), 1, [][]byte{[]byte("f")})
	require.NoError(t, err)
	clock.Advance(2)

	ok, err = r.PKHExists([]byte("h"), []byte("f"))
	assert.NoError(t, err)
	assert.False(t, ok)
}
