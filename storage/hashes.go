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
	"bytes"
	"math"

	"github.com/bigdaronlee163/pika/utils"
)

// Hash layout:
//
//	meta:  key                      => | type | count | version | reserve | ctime | etime |
//	data:  | key | version | field | => | value | reserve | ctime | etime |
//
// Deleting or expiring the hash bumps the meta version; the orphaned
// field records stay behind until compaction drops them.

// HSet stores value under field. Returns 1 when the field is new.
func (r *Redis) HSet(key, field, value []byte) (int32, error) {
	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	now := r.now()
	batch := r.store.NewWriteBatch()
	metaKey := NewBaseMetaKey(key).Encode()

	var res int32
	var statistic uint64
	metaValue, err := r.loadMeta(key, HashesType, nil)
	switch {
	case err == nil:
		parsedMeta, perr := ParseBaseMetaValue(metaValue)
		if perr != nil {
			return 0, perr
		}
		if parsedMeta.IsStale(now) || parsedMeta.Count() == 0 {
			version := parsedMeta.InitialMetaValue(now)
			parsedMeta.SetCount(1)
			batch.Put(MetaCF, metaKey, parsedMeta.Encode())

			internal := NewBaseDataValue(value)
			internal.SetCtime(now)
			batch.Put(HashesDataCF, NewBaseDataKey(key, version, field).Encode(), internal.Encode())
			res = 1
		} else {
			version := parsedMeta.Version()
			dataKey := NewBaseDataKey(key, version, field).Encode()
			dataValue, derr := r.store.Get(HashesDataCF, dataKey, nil)
			switch {
			case derr == nil:
				parsedData, perr := ParseBaseDataValue(dataValue)
				if perr != nil {
					return 0, perr
				}
				if bytes.Equal(parsedData.UserValue(), value) {
					return 0, nil
				}
				internal := NewBaseDataValue(value)
				internal.SetCtime(now)
				batch.Put(HashesDataCF, dataKey, internal.Encode())
				statistic++
			case IsNotFound(derr):
				if !parsedMeta.CheckModifyCount(1) {
					return 0, ErrOverflow
				}
				parsedMeta.ModifyCount(1)
				batch.Put(MetaCF, metaKey, parsedMeta.Encode())

				internal := NewBaseDataValue(value)
				internal.SetCtime(now)
				batch.Put(HashesDataCF, dataKey, internal.Encode())
				res = 1
			default:
				return 0, derr
			}
		}
	case IsNotFound(err):
		meta := NewCollectionMetaValue(HashesType, 1)
		version := meta.UpdateVersion(now)
		meta.SetCtime(now)
		batch.Put(MetaCF, metaKey, meta.Encode())

		internal := NewBaseDataValue(value)
		internal.SetCtime(now)
		batch.Put(HashesDataCF, NewBaseDataKey(key, version, field).Encode(), internal.Encode())
		res = 1
	default:
		return 0, err
	}

	if err := batch.Commit(); err != nil {
		return 0, err
	}
	r.updateSpecificKeyStatistics(HashesType, string(key), statistic+1)
	return res, nil
}

// HSetnx stores value only when field is absent. Returns 1 when the
// field was written.
func (r *Redis) HSetnx(key, field, value []byte) (int32, error) {
	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	now := r.now()
	batch := r.store.NewWriteBatch()
	metaKey := NewBaseMetaKey(key).Encode()

	internal := NewBaseDataValue(value)
	internal.SetCtime(now)

	var res int32
	metaValue, err := r.loadMeta(key, HashesType, nil)
	switch {
	case err == nil:
		parsedMeta, perr := ParseBaseMetaValue(metaValue)
		if perr != nil {
			return 0, perr
		}
		if parsedMeta.IsStale(now) || parsedMeta.Count() == 0 {
			version := parsedMeta.InitialMetaValue(now)
			parsedMeta.SetCount(1)
			batch.Put(MetaCF, metaKey, parsedMeta.Encode())
			batch.Put(HashesDataCF, NewBaseDataKey(key, version, field).Encode(), internal.Encode())
			res = 1
		} else {
			version := parsedMeta.Version()
			dataKey := NewBaseDataKey(key, version, field).Encode()
			_, derr := r.store.Get(HashesDataCF, dataKey, nil)
			switch {
			case derr == nil:
				return 0, nil
			case IsNotFound(derr):
				if !parsedMeta.CheckModifyCount(1) {
					return 0, ErrOverflow
				}
				parsedMeta.ModifyCount(1)
				batch.Put(MetaCF, metaKey, parsedMeta.Encode())
				batch.Put(HashesDataCF, dataKey, internal.Encode())
				res = 1
			default:
				return 0, derr
			}
		}
	case IsNotFound(err):
		meta := NewCollectionMetaValue(HashesType, 1)
		version := meta.UpdateVersion(now)
		meta.SetCtime(now)
		batch.Put(MetaCF, metaKey, meta.Encode())
		batch.Put(HashesDataCF, NewBaseDataKey(key, version, field).Encode(), internal.Encode())
		res = 1
	default:
		return 0, err
	}

	if err := batch.Commit(); err != nil {
		return 0, err
	}
	r.updateSpecificKeyStatistics(HashesType, string(key), 1)
	return res, nil
}

// HGet fetches the value stored under field.
func (r *Redis) HGet(key, field []byte) ([]byte, error) {
	snapshot := NewScopeSnapshot(r.store)
	defer snapshot.Close()

	metaValue, err := r.loadMeta(key, HashesType, snapshot.Snapshot())
	if err != nil {
		return nil, err
	}

	now := r.now()
	parsedMeta, err := ParseBaseMetaValue(metaValue)
	if err != nil {
		return nil, err
	}
	if parsedMeta.IsStale(now) {
		return nil, ErrStaleKey
	}
	if parsedMeta.Count() == 0 {
		return nil, ErrKeyNotFound
	}

	dataKey := NewBaseDataKey(key, parsedMeta.Version(), field).Encode()
	dataValue, err := r.store.Get(HashesDataCF, dataKey, snapshot.Snapshot())
	if err != nil {
		return nil, err
	}
	parsedData, err := ParseBaseDataValue(dataValue)
	if err != nil {
		return nil, err
	}
	return parsedData.UserValue(), nil
}

// HExists reports whether field exists.
func (r *Redis) HExists(key, field []byte) (bool, error) {
	_, err := r.HGet(key, field)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// HDel removes the given fields, duplicates ignored. Returns the number
// of fields actually removed.
func (r *Redis) HDel(key []byte, fields [][]byte) (int32, error) {
	filtered := make([][]byte, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if _, ok := seen[string(field)]; ok {
			continue
		}
		seen[string(field)] = struct{}{}
		filtered = append(filtered, field)
	}

	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	snapshot := NewScopeSnapshot(r.store)
	defer snapshot.Close()

	metaValue, err := r.loadMeta(key, HashesType, snapshot.Snapshot())
	if err != nil {
		if IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}

	now := r.now()
	parsedMeta, err := ParseBaseMetaValue(metaValue)
	if err != nil {
		return 0, err
	}
	if parsedMeta.IsStale(now) || parsedMeta.Count() == 0 {
		return 0, nil
	}

	batch := r.store.NewWriteBatch()
	version := parsedMeta.Version()
	var delCnt int32
	for _, field := range filtered {
		dataKey := NewBaseDataKey(key, version, field).Encode()
		_, derr := r.store.Get(HashesDataCF, dataKey, snapshot.Snapshot())
		switch {
		case derr == nil:
			delCnt++
			batch.Delete(HashesDataCF, dataKey)
		case IsNotFound(derr):
			continue
		default:
			return 0, derr
		}
	}
	if delCnt == 0 {
		return 0, nil
	}

	if !parsedMeta.CheckModifyCount(-delCnt) {
		return 0, ErrOverflow
	}
	parsedMeta.ModifyCount(-delCnt)
	batch.Put(MetaCF, NewBaseMetaKey(key).Encode(), parsedMeta.Encode())

	if err := batch.Commit(); err != nil {
		return 0, err
	}
	r.updateSpecificKeyStatistics(HashesType, string(key), uint64(delCnt))
	return delCnt, nil
}

// HLen reports the number of fields.
func (r *Redis) HLen(key []byte) (int32, error) {
	metaValue, err := r.loadMeta(key, HashesType, nil)
	if err != nil {
		if IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}

	parsedMeta, err := ParseBaseMetaValue(metaValue)
	if err != nil {
		return 0, err
	}
	if !parsedMeta.IsValid(r.now()) {
		return 0, nil
	}
	return parsedMeta.Count(), nil
}

// HMSet stores every field-value pair; duplicated fields keep the last
// occurrence.
func (r *Redis) HMSet(key []byte, fvs []FieldValue) error {
	filtered := make([]FieldValue, 0, len(fvs))
	seen := make(map[string]struct{}, len(fvs))
	for i := len(fvs) - 1; i >= 0; i-- {
		if _, ok := seen[string(fvs[i].Field)]; ok {
			continue
		}
		seen[string(fvs[i].Field)] = struct{}{}
		filtered = append(filtered, fvs[i])
	}

	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	now := r.now()
	batch := r.store.NewWriteBatch()
	metaKey := NewBaseMetaKey(key).Encode()

	var statistic uint64
	metaValue, err := r.loadMeta(key, HashesType, nil)
	switch {
	case err == nil:
		parsedMeta, perr := ParseBaseMetaValue(metaValue)
		if perr != nil {
			return perr
		}
		if parsedMeta.IsStale(now) || parsedMeta.Count() == 0 {
			if len(filtered) > math.MaxInt32 {
				return ErrOverflow
			}
			version := parsedMeta.InitialMetaValue(now)
			parsedMeta.SetCount(int32(len(filtered)))
			batch.Put(MetaCF, metaKey, parsedMeta.Encode())
			for _, fv := range filtered {
				internal := NewBaseDataValue(fv.Value)
				internal.SetCtime(now)
				batch.Put(HashesDataCF, NewBaseDataKey(key, version, fv.Field).Encode(), internal.Encode())
			}
		} else {
			var count int32
			version := parsedMeta.Version()
			for _, fv := range filtered {
				dataKey := NewBaseDataKey(key, version, fv.Field).Encode()
				internal := NewBaseDataValue(fv.Value)
				internal.SetCtime(now)
				_, derr := r.store.Get(HashesDataCF, dataKey, nil)
				switch {
				case derr == nil:
					statistic++
					batch.Put(HashesDataCF, dataKey, internal.Encode())
				case IsNotFound(derr):
					count++
					batch.Put(HashesDataCF, dataKey, internal.Encode())
				default:
					return derr
				}
			}
			if !parsedMeta.CheckModifyCount(count) {
				return ErrOverflow
			}
			parsedMeta.ModifyCount(count)
			batch.Put(MetaCF, metaKey, parsedMeta.Encode())
		}
	case IsNotFound(err):
		if len(filtered) > math.MaxInt32 {
			return ErrOverflow
		}
		meta := NewCollectionMetaValue(HashesType, uint32(len(filtered)))
		version := meta.UpdateVersion(now)
		meta.SetCtime(now)
		batch.Put(MetaCF, metaKey, meta.Encode())
		for _, fv := range filtered {
			internal := NewBaseDataValue(fv.Value)
			internal.SetCtime(now)
			batch.Put(HashesDataCF, NewBaseDataKey(key, version, fv.Field).Encode(), internal.Encode())
		}
	default:
		return err
	}

	if err := batch.Commit(); err != nil {
		return err
	}
	r.updateSpecificKeyStatistics(HashesType, string(key), statistic+uint64(len(filtered)))
	return nil
}

// HMGet fetches the given fields under one snapshot; absent fields get
// a not-found slot.
func (r *Redis) HMGet(key []byte, fields [][]byte) ([]ValueStatus, error) {
	snapshot := NewScopeSnapshot(r.store)
	defer snapshot.Close()

	vss := make([]ValueStatus, 0, len(fields))

	metaValue, err := r.loadMeta(key, HashesType, snapshot.Snapshot())
	if err != nil {
		if IsNotFound(err) {
			for range fields {
				vss = append(vss, ValueStatus{Err: ErrKeyNotFound})
			}
			return vss, nil
		}
		return nil, err
	}

	now := r.now()
	parsedMeta, err := ParseBaseMetaValue(metaValue)
	if err != nil {
		return nil, err
	}
	if parsedMeta.IsStale(now) || parsedMeta.Count() == 0 {
		for range fields {
			vss = append(vss, ValueStatus{Err: ErrKeyNotFound})
		}
		return vss, nil
	}

	version := parsedMeta.Version()
	for _, field := range fields {
		dataKey := NewBaseDataKey(key, version, field).Encode()
		dataValue, derr := r.store.Get(HashesDataCF, dataKey, snapshot.Snapshot())
		switch {
		case derr == nil:
			parsedData, perr := ParseBaseDataValue(dataValue)
			if perr != nil {
				return nil, perr
			}
			vss = append(vss, ValueStatus{Value: parsedData.UserValue()})
		case IsNotFound(derr):
			vss = append(vss, ValueStatus{Err: ErrKeyNotFound})
		default:
			return nil, derr
		}
	}
	return vss, nil
}

// HKeys lists every field in lexicographic order.
func (r *Redis) HKeys(key []byte) ([][]byte, error) {
	var fields [][]byte
	err := r.scanHashData(key, func(parsedKey ParsedBaseDataKey, _ *ParsedBaseDataValue) {
		fields = append(fields, parsedKey.Field())
	})
	return fields, err
}

// HVals lists every value in field order.
func (r *Redis) HVals(key []byte) ([][]byte, error) {
	var values [][]byte
	err := r.scanHashData(key, func(_ ParsedBaseDataKey, parsedValue *ParsedBaseDataValue) {
		values = append(values, parsedValue.UserValue())
	})
	return values, err
}

// HGetall lists every field-value pair in field order.
func (r *Redis) HGetall(key []byte) ([]FieldValue, error) {
	var fvs []FieldValue
	err := r.scanHashData(key, func(parsedKey ParsedBaseDataKey, parsedValue *ParsedBaseDataValue) {
		fvs = append(fvs, FieldValue{Field: parsedKey.Field(), Value: parsedValue.UserValue()})
	})
	return fvs, err
}

// HGetallWithTTL lists every field-value pair plus the key's remaining
// TTL: -1 without expiration. A key whose expiration has already passed
// returns ErrStaleKey.
func (r *Redis) HGetallWithTTL(key []byte) ([]FieldValue, int64, error) {
	snapshot := NewScopeSnapshot(r.store)
	defer snapshot.Close()

	metaValue, err := r.loadMeta(key, HashesType, snapshot.Snapshot())
	if err != nil {
		return nil, 0, err
	}

	now := r.now()
	parsedMeta, err := ParseBaseMetaValue(metaValue)
	if err != nil {
		return nil, 0, err
	}
	if parsedMeta.Count() == 0 {
		return nil, 0, ErrKeyNotFound
	}
	if parsedMeta.IsStale(now) {
		return nil, 0, ErrStaleKey
	}

	var ttl int64
	if parsedMeta.Etime() == 0 {
		ttl = -1
	} else if parsedMeta.Etime() >= now {
		ttl = int64(parsedMeta.Etime() - now)
	} else {
		ttl = -2
	}

	var fvs []FieldValue
	version := parsedMeta.Version()
	prefix := NewBaseDataKey(key, version, nil).EncodeSeekKey()
	iter := r.store.NewIterator(HashesDataCF, snapshot.Snapshot())
	defer iter.Close()
	for iter.Seek(prefix); iter.Valid() && bytes.HasPrefix(iter.Key(), prefix); iter.Next() {
		parsedKey, kerr := ParseBaseDataKey(iter.Key())
		if kerr != nil {
			return nil, 0, kerr
		}
		parsedValue, verr := ParseBaseDataValue(iter.Value())
		if verr != nil {
			return nil, 0, verr
		}
		fvs = append(fvs, FieldValue{Field: parsedKey.Field(), Value: parsedValue.UserValue()})
	}
	return fvs, ttl, nil
}

// scanHashData runs fn over every live field record of key under one
// snapshot.
func (r *Redis) scanHashData(key []byte, fn func(ParsedBaseDataKey, *ParsedBaseDataValue)) error {
	snapshot := NewScopeSnapshot(r.store)
	defer snapshot.Close()

	metaValue, err := r.loadMeta(key, HashesType, snapshot.Snapshot())
	if err != nil {
		return err
	}

	now := r.now()
	parsedMeta, err := ParseBaseMetaValue(metaValue)
	if err != nil {
		return err
	}
	if parsedMeta.IsStale(now) {
		return ErrStaleKey
	}
	if parsedMeta.Count() == 0 {
		return ErrKeyNotFound
	}

	prefix := NewBaseDataKey(key, parsedMeta.Version(), nil).EncodeSeekKey()
	iter := r.store.NewIterator(HashesDataCF, snapshot.Snapshot())
	defer iter.Close()
	for iter.Seek(prefix); iter.Valid() && bytes.HasPrefix(iter.Key(), prefix); iter.Next() {
		parsedKey, kerr := ParseBaseDataKey(iter.Key())
		if kerr != nil {
			return kerr
		}
		parsedValue, verr := ParseBaseDataValue(iter.Value())
		if verr != nil {
			return verr
		}
		fn(parsedKey, parsedValue)
	}
	return nil
}

// HIncrby adds delta to the integer value of field and returns the new
// value. A non-integer value is a corruption error; crossing the 64-bit
// bounds is an overflow error and leaves the field unchanged.
func (r *Redis) HIncrby(key, field []byte, delta int64) (int64, error) {
	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	now := r.now()
	batch := r.store.NewWriteBatch()
	metaKey := NewBaseMetaKey(key).Encode()

	var ret int64
	var statistic uint64
	metaValue, err := r.loadMeta(key, HashesType, nil)
	switch {
	case err == nil:
		parsedMeta, perr := ParseBaseMetaValue(metaValue)
		if perr != nil {
			return 0, perr
		}
		if parsedMeta.IsStale(now) || parsedMeta.Count() == 0 {
			version := parsedMeta.InitialMetaValue(now)
			parsedMeta.SetCount(1)
			batch.Put(MetaCF, metaKey, parsedMeta.Encode())

			internal := NewBaseDataValue(utils.Int64ToStr(delta))
			internal.SetCtime(now)
			batch.Put(HashesDataCF, NewBaseDataKey(key, version, field).Encode(), internal.Encode())
			ret = delta
		} else {
			version := parsedMeta.Version()
			dataKey := NewBaseDataKey(key, version, field).Encode()
			dataValue, derr := r.store.Get(HashesDataCF, dataKey, nil)
			switch {
			case derr == nil:
				parsedData, perr := ParseBaseDataValue(dataValue)
				if perr != nil {
					return 0, perr
				}
				ival, ok := utils.StrToInt64(parsedData.UserValue())
				if !ok {
					return 0, ErrCorruption
				}
				if (delta >= 0 && ival > math.MaxInt64-delta) ||
					(delta < 0 && ival < math.MinInt64-delta) {
					return 0, ErrOverflow
				}
				ret = ival + delta
				internal := NewBaseDataValue(utils.Int64ToStr(ret))
				internal.SetCtime(now)
				batch.Put(HashesDataCF, dataKey, internal.Encode())
				statistic++
			case IsNotFound(derr):
				if !parsedMeta.CheckModifyCount(1) {
					return 0, ErrOverflow
				}
				parsedMeta.ModifyCount(1)
				batch.Put(MetaCF, metaKey, parsedMeta.Encode())

				internal := NewBaseDataValue(utils.Int64ToStr(delta))
				internal.SetCtime(now)
				batch.Put(HashesDataCF, dataKey, internal.Encode())
				ret = delta
			default:
				return 0, derr
			}
		}
	case IsNotFound(err):
		meta := NewCollectionMetaValue(HashesType, 1)
		version := meta.UpdateVersion(now)
		meta.SetCtime(now)
		batch.Put(MetaCF, metaKey, meta.Encode())

		internal := NewBaseDataValue(utils.Int64ToStr(delta))
		internal.SetCtime(now)
		batch.Put(HashesDataCF, NewBaseDataKey(key, version, field).Encode(), internal.Encode())
		ret = delta
	default:
		return 0, err
	}

	if err := batch.Commit(); err != nil {
		return 0, err
	}
	r.updateSpecificKeyStatistics(HashesType, string(key), statistic+1)
	return ret, nil
}

// HIncrbyfloat adds the float by to field and returns the new formatted
// value.
func (r *Redis) HIncrbyfloat(key, field, by []byte) ([]byte, error) {
	delta, ok := utils.StrToFloat64(by)
	if !ok {
		return nil, ErrInvalidArgument
	}

	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	now := r.now()
	batch := r.store.NewWriteBatch()
	metaKey := NewBaseMetaKey(key).Encode()

	var newValue []byte
	var statistic uint64
	metaValue, err := r.loadMeta(key, HashesType, nil)
	switch {
	case err == nil:
		parsedMeta, perr := ParseBaseMetaValue(metaValue)
		if perr != nil {
			return nil, perr
		}
		if parsedMeta.IsStale(now) || parsedMeta.Count() == 0 {
			version := parsedMeta.InitialMetaValue(now)
			parsedMeta.SetCount(1)
			batch.Put(MetaCF, metaKey, parsedMeta.Encode())

			newValue = utils.Float64ToStr(delta)
			internal := NewBaseDataValue(newValue)
			internal.SetCtime(now)
			batch.Put(HashesDataCF, NewBaseDataKey(key, version, field).Encode(), internal.Encode())
		} else {
			version := parsedMeta.Version()
			dataKey := NewBaseDataKey(key, version, field).Encode()
			dataValue, derr := r.store.Get(HashesDataCF, dataKey, nil)
			switch {
			case derr == nil:
				parsedData, perr := ParseBaseDataValue(dataValue)
				if perr != nil {
					return nil, perr
				}
				old, ok := utils.StrToFloat64(parsedData.UserValue())
				if !ok {
					return nil, ErrCorruption
				}
				total := old + delta
				if math.IsNaN(total) || math.IsInf(total, 0) {
					return nil, ErrOverflow
				}
				newValue = utils.Float64ToStr(total)
				internal := NewBaseDataValue(newValue)
				internal.SetCtime(now)
				batch.Put(HashesDataCF, dataKey, internal.Encode())
				statistic++
			case IsNotFound(derr):
				if !parsedMeta.CheckModifyCount(1) {
					return nil, ErrOverflow
				}
				parsedMeta.ModifyCount(1)
				batch.Put(MetaCF, metaKey, parsedMeta.Encode())

				newValue = utils.Float64ToStr(delta)
				internal := NewBaseDataValue(newValue)
				internal.SetCtime(now)
				batch.Put(HashesDataCF, dataKey, internal.Encode())
			default:
				return nil, derr
			}
		}
	case IsNotFound(err):
		meta := NewCollectionMetaValue(HashesType, 1)
		version := meta.UpdateVersion(now)
		meta.SetCtime(now)
		batch.Put(MetaCF, metaKey, meta.Encode())

		newValue = utils.Float64ToStr(delta)
		internal := NewBaseDataValue(newValue)
		internal.SetCtime(now)
		batch.Put(HashesDataCF, NewBaseDataKey(key, version, field).Encode(), internal.Encode())
	default:
		return nil, err
	}

	if err := batch.Commit(); err != nil {
		return nil, err
	}
	r.updateSpecificKeyStatistics(HashesType, string(key), statistic+1)
	return newValue, nil
}

// HStrlen reports the length of the value stored under field.
func (r *Redis) HStrlen(key, field []byte) (int32, error) {
	value, err := r.HGet(key, field)
	if err != nil {
		if IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return int32(len(value)), nil
}

// HashesExpire sets the whole-key expiration to ttl seconds from now; a
// non-positive ttl logically deletes the hash.
func (r *Redis) HashesExpire(key []byte, ttl int64) error {
	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	metaValue, err := r.loadMeta(key, HashesType, nil)
	if err != nil {
		return err
	}

	now := r.now()
	parsedMeta, err := ParseBaseMetaValue(metaValue)
	if err != nil {
		return err
	}
	if parsedMeta.IsStale(now) {
		return ErrStaleKey
	}
	if parsedMeta.Count() == 0 {
		return ErrKeyNotFound
	}

	if ttl > 0 {
		parsedMeta.SetRelativeTimestamp(now, uint64(ttl))
	} else {
		parsedMeta.InitialMetaValue(now)
		r.cursors.InvalidateKey(HashesType, key)
	}

	if err := r.store.Put(MetaCF, NewBaseMetaKey(key).Encode(), parsedMeta.Encode()); err != nil {
		return err
	}
	r.updateSpecificKeyStatistics(HashesType, string(key), 1)
	return nil
}

// HashesTTL reports the remaining TTL in seconds: -2 for an absent key,
// -1 without expiration.
func (r *Redis) HashesTTL(key []byte) (int64, error) {
	metaValue, err := r.loadMeta(key, HashesType, nil)
	if err != nil {
		if IsNotFound(err) {
			return -2, nil
		}
		return -2, err
	}

	now := r.now()
	parsedMeta, err := ParseBaseMetaValue(metaValue)
	if err != nil {
		return -2, err
	}
	if !parsedMeta.IsValid(now) {
		return -2, nil
	}
	if parsedMeta.Etime() == 0 {
		return -1, nil
	}
	return int64(parsedMeta.Etime() - now), nil
}

// HashesPersist clears the whole-key expiration. Returns 1 when an
// expiration was removed.
func (r *Redis) HashesPersist(key []byte) (int32, error) {
	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	metaValue, err := r.loadMeta(key, HashesType, nil)
	if err != nil {
		return 0, err
	}

	now := r.now()
	parsedMeta, err := ParseBaseMetaValue(metaValue)
	if err != nil {
		return 0, err
	}
	if !parsedMeta.IsValid(now) {
		return 0, ErrKeyNotFound
	}
	if parsedMeta.Etime() == 0 {
		return 0, nil
	}

	parsedMeta.SetEtime(0)
	if err := r.store.Put(MetaCF, NewBaseMetaKey(key).Encode(), parsedMeta.Encode()); err != nil {
		return 0, err
	}
	r.updateSpecificKeyStatistics(HashesType, string(key), 1)
	return 1, nil
}
