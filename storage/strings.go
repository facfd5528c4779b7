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
	"math"

	"github.com/bigdaronlee163/pika/utils"
)

// A string is a single record in the meta column family; the payload
// rides in the meta value, so every command here is one get or one put.

// getStringsValue fetches and validates key as a live string. It
// returns the parsed view so callers can reach etime as well.
func (r *Redis) getStringsValue(key []byte) (*ParsedStringsValue, error) {
	metaValue, err := r.store.Get(MetaCF, NewBaseMetaKey(key).Encode(), nil)
	if err != nil {
		return nil, err
	}

	if !expectedMetaValue(StringsType, metaValue) {
		if r.expectedStale(metaValue) {
			return nil, ErrKeyNotFound
		}
		return nil, ErrWrongTypeOperation
	}

	parsed, err := ParseStringsValue(metaValue)
	if err != nil {
		return nil, err
	}
	if parsed.IsStale(r.now()) {
		return nil, ErrStaleKey
	}
	return parsed, nil
}

// Set stores value under key, discarding any previous record and any
// previous expiration.
func (r *Redis) Set(key, value []byte) error {
	stringsValue := NewStringsValue(value)
	stringsValue.SetCtime(r.now())

	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	if err := r.store.Put(MetaCF, NewBaseMetaKey(key).Encode(), stringsValue.Encode()); err != nil {
		return err
	}
	r.updateSpecificKeyStatistics(StringsType, string(key), 1)
	return nil
}

// Setex stores value with a relative expiration of ttl seconds.
func (r *Redis) Setex(key, value []byte, ttl int64) error {
	if ttl <= 0 {
		return ErrInvalidArgument
	}

	now := r.now()
	stringsValue := NewStringsValue(value)
	stringsValue.SetCtime(now)
	stringsValue.SetRelativeTimestamp(now, uint64(ttl))

	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	if err := r.store.Put(MetaCF, NewBaseMetaKey(key).Encode(), stringsValue.Encode()); err != nil {
		return err
	}
	r.updateSpecificKeyStatistics(StringsType, string(key), 1)
	return nil
}

// Setnx stores value only when key is absent or stale. Returns 1 when
// the value was written.
func (r *Redis) Setnx(key, value []byte) (int32, error) {
	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	metaKey := NewBaseMetaKey(key).Encode()
	metaValue, err := r.store.Get(MetaCF, metaKey, nil)
	if err == nil {
		if !r.expectedStale(metaValue) {
			return 0, nil
		}
	} else if !IsNotFound(err) {
		return 0, err
	}

	stringsValue := NewStringsValue(value)
	stringsValue.SetCtime(r.now())
	if err := r.store.Put(MetaCF, metaKey, stringsValue.Encode()); err != nil {
		return 0, err
	}
	r.updateSpecificKeyStatistics(StringsType, string(key), 1)
	return 1, nil
}

// Get fetches the payload stored under key.
func (r *Redis) Get(key []byte) ([]byte, error) {
	parsed, err := r.getStringsValue(key)
	if err != nil {
		return nil, err
	}

	value := make([]byte, len(parsed.UserValue()))
	copy(value, parsed.UserValue())
	return value, nil
}

// GetSet stores value and returns the previous payload, nil when key
// was absent.
func (r *Redis) GetSet(key, value []byte) ([]byte, error) {
	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	var oldValue []byte
	parsed, err := r.getStringsValue(key)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}
	if err == nil {
		oldValue = make([]byte, len(parsed.UserValue()))
		copy(oldValue, parsed.UserValue())
	}

	stringsValue := NewStringsValue(value)
	stringsValue.SetCtime(r.now())
	if err := r.store.Put(MetaCF, NewBaseMetaKey(key).Encode(), stringsValue.Encode()); err != nil {
		return nil, err
	}
	r.updateSpecificKeyStatistics(StringsType, string(key), 1)
	return oldValue, nil
}

// Append appends value to the payload and returns the new length; an
// absent key behaves as an empty string. The expiration is preserved.
func (r *Redis) Append(key, value []byte) (int32, error) {
	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	now := r.now()
	var payload []byte
	var etime uint64

	parsed, err := r.getStringsValue(key)
	if err != nil && !IsNotFound(err) {
		return 0, err
	}
	if err == nil {
		payload = parsed.UserValue()
		etime = parsed.Etime()
	}

	next := make([]byte, 0, len(payload)+len(value))
	next = append(next, payload...)
	next = append(next, value...)

	stringsValue := NewStringsValue(next)
	stringsValue.SetCtime(now)
	stringsValue.SetEtime(etime)
	if err := r.store.Put(MetaCF, NewBaseMetaKey(key).Encode(), stringsValue.Encode()); err != nil {
		return 0, err
	}
	r.updateSpecificKeyStatistics(StringsType, string(key), 1)
	return int32(len(next)), nil
}

// Strlen reports the payload length, 0 for an absent key.
func (r *Redis) Strlen(key []byte) (int32, error) {
	parsed, err := r.getStringsValue(key)
	if err != nil {
		if IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return int32(len(parsed.UserValue())), nil
}

// Incrby adds delta to the integer payload and returns the new value.
// A non-integer payload is a corruption error; crossing the 64-bit
// bounds is an overflow error. The expiration is preserved.
func (r *Redis) Incrby(key []byte, delta int64) (int64, error) {
	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	now := r.now()
	var current int64
	var etime uint64

	parsed, err := r.getStringsValue(key)
	if err != nil && !IsNotFound(err) {
		return 0, err
	}
	if err == nil {
		n, ok := utils.StrToInt64(parsed.UserValue())
		if !ok {
			return 0, ErrCorruption
		}
		current = n
		etime = parsed.Etime()
	}

	if (delta >= 0 && current > math.MaxInt64-delta) ||
		(delta < 0 && current < math.MinInt64-delta) {
		return 0, ErrOverflow
	}
	next := current + delta

	stringsValue := NewStringsValue(utils.Int64ToStr(next))
	stringsValue.SetCtime(now)
	stringsValue.SetEtime(etime)
	if err := r.store.Put(MetaCF, NewBaseMetaKey(key).Encode(), stringsValue.Encode()); err != nil {
		return 0, err
	}
	r.updateSpecificKeyStatistics(StringsType, string(key), 1)
	return next, nil
}

// Decrby subtracts delta from the integer payload.
func (r *Redis) Decrby(key []byte, delta int64) (int64, error) {
	if delta == math.MinInt64 {
		return 0, ErrOverflow
	}
	return r.Incrby(key, -delta)
}

// Incrbyfloat adds the float by to the payload and returns the new
// formatted value.
func (r *Redis) Incrbyfloat(key, by []byte) ([]byte, error) {
	delta, ok := utils.StrToFloat64(by)
	if !ok {
		return nil, ErrInvalidArgument
	}

	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	now := r.now()
	var current float64
	var etime uint64

	parsed, err := r.getStringsValue(key)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}
	if err == nil {
		f, ok := utils.StrToFloat64(parsed.UserValue())
		if !ok {
			return nil, ErrCorruption
		}
		current = f
		etime = parsed.Etime()
	}

	next := current + delta
	if math.IsNaN(next) || math.IsInf(next, 0) {
		return nil, ErrOverflow
	}
	formatted := utils.Float64ToStr(next)

	stringsValue := NewStringsValue(formatted)
	stringsValue.SetCtime(now)
	stringsValue.SetEtime(etime)
	if err := r.store.Put(MetaCF, NewBaseMetaKey(key).Encode(), stringsValue.Encode()); err != nil {
		return nil, err
	}
	r.updateSpecificKeyStatistics(StringsType, string(key), 1)
	return formatted, nil
}

// Getrange fetches the payload slice [start, end], both inclusive and
// possibly negative offsets from the end.
func (r *Redis) Getrange(key []byte, start, end int64) ([]byte, error) {
	parsed, err := r.getStringsValue(key)
	if err != nil {
		return nil, err
	}

	size := int64(len(parsed.UserValue()))
	if start < 0 {
		start += size
	}
	if end < 0 {
		end += size
	}
	if start < 0 {
		start = 0
	}
	if end >= size {
		end = size - 1
	}
	if size == 0 || start > end {
		return nil, nil
	}

	out := make([]byte, end-start+1)
	copy(out, parsed.UserValue()[start:end+1])
	return out, nil
}

// Setrange overwrites the payload starting at offset, zero-padding any
// gap, and returns the new length. The expiration is preserved.
func (r *Redis) Setrange(key []byte, offset int64, value []byte) (int32, error) {
	if offset < 0 {
		return 0, ErrInvalidArgument
	}

	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	now := r.now()
	var payload []byte
	var etime uint64

	parsed, err := r.getStringsValue(key)
	if err != nil && !IsNotFound(err) {
		return 0, err
	}
	if err == nil {
		payload = parsed.UserValue()
		etime = parsed.Etime()
	}

	size := int64(len(payload))
	needed := offset + int64(len(value))
	if needed < size {
		needed = size
	}
	next := make([]byte, needed)
	copy(next, payload)
	copy(next[offset:], value)

	stringsValue := NewStringsValue(next)
	stringsValue.SetCtime(now)
	stringsValue.SetEtime(etime)
	if err := r.store.Put(MetaCF, NewBaseMetaKey(key).Encode(), stringsValue.Encode()); err != nil {
		return 0, err
	}
	r.updateSpecificKeyStatistics(StringsType, string(key), 1)
	return int32(len(next)), nil
}
