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

func TestRedis_PushPopRange(t *testing.T) {
	r, _ := newTestEngine(t)

	n, err := r.RPush([]byte("L"), [][]byte{[]byte("x"), []byte("y"), []byte("z")})
	assert.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	elements, err := r.LRange([]byte("L"), 0, -1)
	assert.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("x"), []byte("y"), []byte("z")}, elements)

	element, err := r.LPop([]byte("L"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("x"), element)

	elements, err = r.LRange([]byte("L"), 0, -1)
	assert.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("y"), []byte("z")}, elements)

	element, err = r.RPop([]byte("L"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("z"), element)

	length, err := r.LLen([]byte("L"))
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), length)
}

func TestRedis_LPushOrdering(t *testing.T) {
	r, _ := newTestEngine(t)

	_, err := r.LPush([]byte("L"), [][]byte{[]byte("a"), []byte("b"), []byte("c")})
	assert.NoError(t, err)

	// LPUSH prepends one at a time, so the last value ends up first
	elements, err := r.LRange([]byte("L"), 0, -1)
	assert.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("c"), []byte("b"), []byte("a")}, elements)
}

func TestRedis_LIndex(t *testing.T) {
	r, _ := newTestEngine(t)

	_, err := r.RPush([]byte("L"), [][]byte{[]byte("a"), []byte("b"), []byte("c")})
	require.NoError(t, err)

	element, err := r.LIndex([]byte("L"), 0)
	assert.NoError(t, err)
	assert.Equal(t, []byte("a"), element)

	element, err = r.LIndex([]byte("L"), -1)
	assert.NoError(t, err)
	assert.Equal(t, []byte("c"), element)

	_, err = r.LIndex([]byte("L"), 3)
	assert.ErrorIs(t, err, ErrKeyNotFound)
	_, err = r.LIndex([]byte("L"), -4)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedis_LSet(t *testing.T) {
	r, _ := newTestEngine(t)

	_, err := r.RPush([]byte("L"), [][]byte{[]byte("a"), []byte("b")})
	require.NoError(t, err)

	assert.NoError(t, r.LSet([]byte("L"), 1, []byte("B")))
	element, err := r.LIndex([]byte("L"), 1)
	assert.NoError(t, err)
	assert.Equal(t, []byte("B"), element)

	assert.ErrorIs(t, r.LSet([]byte("L"), 5, []byte("x")), ErrInvalidArgument)
}

func TestRedis_LRem(t *testing.T) {
	r, _ := newTestEngine(t)

	_, err := r.RPush([]byte("L"), [][]byte{
		[]byte("a"), []byte("b"), []byte("a"), []byte("c"), []byte("a"),
	})
	require.NoError(t, err)

	// remove two occurrences from the head
	removed, err := r.LRem([]byte("L"), 2, []byte("a"))
	assert.NoError(t, err)
	assert.Equal(t, uint64(2), removed)

	elements, err := r.LRange([]byte("L"), 0, -1)
	assert.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("b"), []byte("c"), []byte("a")}, elements)

	// remove from the tail
	removed, err = r.LRem([]byte("L"), -1, []byte("a"))
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), removed)

	elements, err = r.LRange([]byte("L"), 0, -1)
	assert.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("b"), []byte("c")}, elements)

	removed, err = r.LRem([]byte("L"), 0, []byte("missing"))
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), removed)
}

func TestRedis_LTrim(t *testing.T) {
	r, _ := newTestEngine(t)

	_, err := r.RPush([]byte("L"), [][]byte{
		[]byte("a"), []byte("b"), []byte("c"), []byte("d"),
	})
	require.NoError(t, err)

	assert.NoError(t, r.LTrim([]byte("L"), 1, 2))

	elements, err := r.LRange([]byte("L"), 0, -1)
	assert.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("b"), []byte("c")}, elements)

	length, err := r.LLen([]byte("L"))
	assert.NoError(t, err)
	assert.Equal(t, uint64(2), length)
}

func TestRedis_ListIndexWindowNoUnderflow(t *testing.T) {
	r, _ := newTestEngine(t)

	// many prepends walk the left boundary down from 2^63-1 without
	// wrapping, and the list still reads back in order
	values := make([][]byte, 0, 1000)
	for i := 0; i < 1000; i++ {
		values = append(values, []byte{byte(i >> 8), byte(i)})
	}
	_, err := r.LPush([]byte("L"), values)
	require.NoError(t, err)

	metaValue, err := r.loadMeta([]byte("L"), ListsType, nil)
	require.NoError(t, err)
	parsed, err := ParseListsMetaValue(metaValue)
	require.NoError(t, err)
	assert.Equal(t, InitialLeftIndex-1000, parsed.LeftIndex())
	assert.Equal(t, InitialRightIndex, parsed.RightIndex())
	assert.Equal(t, uint64(1000), parsed.Count())

	element, err := r.LIndex([]byte("L"), 0)
	assert.NoError(t, err)
	assert.Equal(t, values[999], element)
}

func TestRedis_ListEmptyAfterPops(t *testing.T) {
	r, _ := newTestEngine(t)

	_, err := r.RPush([]byte("L"), [][]byte{[]byte("only")})
	require.NoError(t, err)

	_, err = r.LPop([]byte("L"))
	assert.NoError(t, err)

	_, err = r.LPop([]byte("L"))
	assert.ErrorIs(t, err, ErrKeyNotFound)

	ok, err := r.Exists([]byte("L"))
	assert.NoError(t, err)
	assert.False(t, ok)

	// a push after emptying starts a fresh window
	_, err = r.RPush([]byte("L"), [][]byte{[]byte("again")})
	assert.NoError(t, err)
	element, err := r.LPop([]byte("L"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("again"), element)
}
