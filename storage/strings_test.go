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
)

func TestRedis_SetGet(t *testing.T) {
	r, _ := newTestEngine(t)

	err := r.Set([]byte("key"), []byte("value"))
	assert.NoError(t, err)

	value, err := r.Get([]byte("key"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("value"), value)

	_, err = r.Get([]byte("missing"))
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// overwrite replaces the payload
	assert.NoError(t, r.Set([]byte("key"), []byte("other")))
	value, err = r.Get([]byte("key"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("other"), value)
}

func TestRedis_SetexExpires(t *testing.T) {
	r, clock := newTestEngine(t)

	err := r.Setex([]byte("key"), []byte("value"), 1)
	assert.NoError(t, err)

	value, err := r.Get([]byte("key"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("value"), value)

	clock.Advance(2)
	_, err = r.Get([]byte("key"))
	assert.ErrorIs(t, err, ErrKeyNotFound)

	err = r.Setex([]byte("key"), []byte("value"), 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRedis_SetOverwriteClearsTTL(t *testing.T) {
	r, clock := newTestEngine(t)

	assert.NoError(t, r.Setex([]byte("key"), []byte("value"), 5))
	assert.NoError(t, r.Set([]byte("key"), []byte("fresh")))

	clock.Advance(6)
	value, err := r.Get([]byte("key"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("fresh"), value)
}

func TestRedis_Setnx(t *testing.T) {
	r, clock := newTestEngine(t)

	n, err := r.Setnx([]byte("key"), []byte("first"))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), n)

	n, err = r.Setnx([]byte("key"), []byte("second"))
	assert.NoError(t, err)
	assert.Equal(t, int32(0), n)

	value, err := r.Get([]byte("key"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("first"), value)

	// a stale record no longer blocks the write
	assert.NoError(t, r.Setex([]byte("gone"), []byte("v"), 1))
	clock.Advance(2)
	n, err = r.Setnx([]byte("gone"), []byte("reborn"))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), n)
}

func TestRedis_GetSet(t *testing.T) {
	r, _ := newTestEngine(t)

	old, err := r.GetSet([]byte("key"), []byte("one"))
	assert.NoError(t, err)
	assert.Nil(t, old)

	old, err = r.GetSet([]byte("key"), []byte("two"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("one"), old)
}

func TestRedis_AppendStrlen(t *testing.T) {
	r, _ := newTestEngine(t)

	n, err := r.Append([]byte("key"), []byte("hello"))
	assert.NoError(t, err)
	assert.Equal(t, int32(5), n)

	n, err = r.Append([]byte("key"), []byte(" world"))
	assert.NoError(t, err)
	assert.Equal(t, int32(11), n)

	value, err := r.Get([]byte("key"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("hello world"), value)

	length, err := r.Strlen([]byte("key"))
	assert.NoError(t, err)
	assert.Equal(t, int32(11), length)

	length, err = r.Strlen([]byte("missing"))
	assert.NoError(t, err)
	assert.Equal(t, int32(0), length)
}

func TestRedis_Incrby(t *testing.T) {
	r, _ := newTestEngine(t)

	n, err := r.Incrby([]byte("counter"), 5)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = r.Incrby([]byte("counter"), -3)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = r.Decrby([]byte("counter"), 2)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)

	assert.NoError(t, r.Set([]byte("text"), []byte("abc")))
	_, err = r.Incrby([]byte("text"), 1)
	assert.ErrorIs(t, err, ErrCorruption)
}

func TestRedis_IncrbyOverflow(t *testing.T) {
	r, _ := newTestEngine(t)

	assert.NoError(t, r.Set([]byte("key"), []byte("9223372036854775807")))
	_, err := r.Incrby([]byte("key"), 1)
	assert.ErrorIs(t, err, ErrOverflow)

	// the payload is untouched after the failed increment
	value, err := r.Get([]byte("key"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("9223372036854775807"), value)
}

func TestRedis_Incrbyfloat(t *testing.T) {
	r, _ := newTestEngine(t)

	value, err := r.Incrbyfloat([]byte("key"), []byte("1.5"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("1.5"), value)

	value, err = r.Incrbyfloat([]byte("key"), []byte("2.25"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("3.75"), value)

	_, err = r.Incrbyfloat([]byte("key"), []byte("nope"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRedis_Getrange(t *testing.T) {
	r, _ := newTestEngine(t)

	assert.NoError(t, r.Set([]byte("key"), []byte("This is a string")))

	value, err := r.Getrange([]byte("key"), 0, 3)
	assert.NoError(t, err)
	assert.Equal(t, []byte("This"), value)

	value, err = r.Getrange([]byte("key"), -3, -1)
	assert.NoError(t, err)
	assert.Equal(t, []byte("ing"), value)

	value, err = r.Getrange([]byte("key"), 0, -1)
	assert.NoError(t, err)
	assert.Equal(t, []byte("This is a string"), value)

	value, err = r.Getrange([]byte("key"), 10, 5)
	assert.NoError(t, err)
	assert.Nil(t, value)
}

func TestRedis_Setrange(t *testing.T) {
	r, _ := newTestEngine(t)

	assert.NoError(t, r.Set([]byte("key"), []byte("Hello World")))

	n, err := r.Setrange([]byte("key"), 6, []byte("Redis"))
	assert.NoError(t, err)
	assert.Equal(t, int32(11), n)

	value, err := r.Get([]byte("key"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("Hello Redis"), value)

	// writes past the end zero-pad the gap
	n, err = r.Setrange([]byte("pad"), 3, []byte("x"))
	assert.NoError(t, err)
	assert.Equal(t, int32(4), n)
	value, err = r.Get([]byte("pad"))
	assert.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 'x'}, value)

	_, err = r.Setrange([]byte("key"), -1, []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
