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

import "bytes"

// A pkhash is a hash whose fields carry independent expirations in the
// etime suffix of their data records. Field reads treat a passed etime
// as absence; the TTL commands rewrite etime in place through the
// parsed view and commit all touched fields as one batch.

// Per-field status codes returned by the TTL command family.
const (
	// pkhFieldOk marks a field that was found live and acted upon.
	pkhFieldOk int32 = 1

	// pkhFieldNoTTL marks a live field without an expiration.
	pkhFieldNoTTL int32 = -1

	// pkhFieldMissing marks an absent or already expired field.
	pkhFieldMissing int32 = -2
)

// pkhashLiveMeta fetches and validates key as a live pkhash.
func (r *Redis) pkhashLiveMeta(key []byte, snap *ScopeSnapshot) (*ParsedBaseMetaValue, error) {
	var metaValue []byte
	var err error
	if snap != nil {
		metaValue, err = r.loadMeta(key, PKHashesType, snap.Snapshot())
	} else {
		metaValue, err = r.loadMeta(key, PKHashesType, nil)
	}
	if err != nil {
		return nil, err
	}

	now := r.now()
	parsedMeta, perr := ParseBaseMetaValue(metaValue)
	if perr != nil {
		return nil, perr
	}
	if parsedMeta.IsStale(now) {
		return nil, ErrStaleKey
	}
	if parsedMeta.Count() == 0 {
		return nil, ErrKeyNotFound
	}
	return parsedMeta, nil
}

// PKHSet stores value under field with no expiration. Returns 1 when
// the field is new.
func (r *Redis) PKHSet(key, field, value []byte) (int32, error) {
	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	now := r.now()
	batch := r.store.NewWriteBatch()
	metaKey := NewBaseMetaKey(key).Encode()

	var res int32
	var statistic uint64
	metaValue, err := r.loadMeta(key, PKHashesType, nil)
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

			internal := NewPKHashDataValue(value)
			internal.SetCtime(now)
			batch.Put(PKHashDataCF, NewBaseDataKey(key, version, field).Encode(), internal.Encode())
			res = 1
		} else {
			version := parsedMeta.Version()
			dataKey := NewBaseDataKey(key, version, field).Encode()
			dataValue, derr := r.store.Get(PKHashDataCF, dataKey, nil)
			switch {
			case derr == nil:
				parsedData, perr := ParsePKHashDataValue(dataValue)
				if perr != nil {
					return 0, perr
				}
				if bytes.Equal(parsedData.UserValue(), value) && !parsedData.IsStale(now) {
					return 0, nil
				}
				internal := NewPKHashDataValue(value)
				internal.SetCtime(now)
				batch.Put(PKHashDataCF, dataKey, internal.Encode())
				statistic++
			case IsNotFound(derr):
				if !parsedMeta.CheckModifyCount(1) {
					return 0, ErrOverflow
				}
				parsedMeta.ModifyCount(1)
				batch.Put(MetaCF, metaKey, parsedMeta.Encode())

				internal := NewPKHashDataValue(value)
				internal.SetCtime(now)
				batch.Put(PKHashDataCF, dataKey, internal.Encode())
				res = 1
			default:
				return 0, derr
			}
		}
	case IsNotFound(err):
		meta := NewCollectionMetaValue(PKHashesType, 1)
		version := meta.UpdateVersion(now)
		meta.SetCtime(now)
		batch.Put(MetaCF, metaKey, meta.Encode())

		internal := NewPKHashDataValue(value)
		internal.SetCtime(now)
		batch.Put(PKHashDataCF, NewBaseDataKey(key, version, field).Encode(), internal.Encode())
		res = 1
	default:
		return 0, err
	}

	if err := batch.Commit(); err != nil {
		return 0, err
	}
	r.updateSpecificKeyStatistics(PKHashesType, string(key), statistic+1)
	return res, nil
}

// PKHGet fetches the value stored under field; an expired field reads
// as stale not-found.
func (r *Redis) PKHGet(key, field []byte) ([]byte, error) {
	snapshot := NewScopeSnapshot(r.store)
	defer snapshot.Close()

	parsedMeta, err := r.pkhashLiveMeta(key, snapshot)
	if err != nil {
		return nil, err
	}

	dataKey := NewBaseDataKey(key, parsedMeta.Version(), field).Encode()
	dataValue, err := r.store.Get(PKHashDataCF, dataKey, snapshot.Snapshot())
	if err != nil {
		return nil, err
	}
	parsedData, err := ParsePKHashDataValue(dataValue)
	if err != nil {
		return nil, err
	}
	if parsedData.IsStale(r.now()) {
		return nil, ErrStaleKey
	}
	return parsedData.UserValue(), nil
}

// PKHExists reports whether field exists and is live.
func (r *Redis) PKHExists(key, field []byte) (bool, error) {
	_, err := r.PKHGet(key, field)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PKHDel removes the given fields, duplicates ignored. Returns the
// number of records removed, expired ones included.
func (r *Redis) PKHDel(key []byte, fields [][]byte) (int32, error) {
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

	metaValue, err := r.loadMeta(key, PKHashesType, nil)
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
		_, derr := r.store.Get(PKHashDataCF, dataKey, nil)
		switch {
		case derr == nil:
			delCnt++
			batch.Delete(PKHashDataCF, dataKey)
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
	r.updateSpecificKeyStatistics(PKHashesType, string(key), uint64(delCnt))
	return delCnt, nil
}

// PKHLen reports the field count kept in the meta record. Expired
// fields stay counted; neither expiry nor compaction lowers the count.
func (r *Redis) PKHLen(key []byte) (int32, error) {
	metaValue, err := r.loadMeta(key, PKHashesType, nil)
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

// PKHGetall lists every live field with its value and remaining TTL,
// -1 for fields without an expiration.
func (r *Redis) PKHGetall(key []byte) ([]FieldValueTTL, error) {
	snapshot := NewScopeSnapshot(r.store)
	defer snapshot.Close()

	parsedMeta, err := r.pkhashLiveMeta(key, snapshot)
	if err != nil {
		return nil, err
	}

	now := r.now()
	var fvts []FieldValueTTL
	prefix := NewBaseDataKey(key, parsedMeta.Version(), nil).EncodeSeekKey()
	iter := r.store.NewIterator(PKHashDataCF, snapshot.Snapshot())
	defer iter.Close()
	for iter.Seek(prefix); iter.Valid() && bytes.HasPrefix(iter.Key(), prefix); iter.Next() {
		parsedKey, kerr := ParseBaseDataKey(iter.Key())
		if kerr != nil {
			return nil, kerr
		}
		parsedValue, verr := ParsePKHashDataValue(iter.Value())
		if verr != nil {
			return nil, verr
		}
		if parsedValue.IsStale(now) {
			continue
		}

		ttl := int64(-1)
		if parsedValue.Etime() != 0 {
			ttl = int64(parsedValue.Etime() - now)
		}
		fvts = append(fvts, FieldValueTTL{Field: parsedKey.Field(), Value: parsedValue.UserValue(), TTL: ttl})
	}
	return fvts, nil
}

// pkhashFieldWalk runs fn over the requested fields of a live pkhash
// under the record lock; fn appends the per-field status and may stage
// batch writes, which are committed once after the walk.
func (r *Redis) pkhashFieldWalk(key []byte, fields [][]byte, fn func(dataKey []byte, parsed *ParsedPKHashDataValue, stale bool)) error {
	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	parsedMeta, err := r.pkhashLiveMeta(key, nil)
	if err != nil {
		return err
	}

	now := r.now()
	version := parsedMeta.Version()
	for _, field := range fields {
		dataKey := NewBaseDataKey(key, version, field).Encode()
		dataValue, derr := r.store.Get(PKHashDataCF, dataKey, nil)
		switch {
		case derr == nil:
			parsedData, perr := ParsePKHashDataValue(dataValue)
			if perr != nil {
				return perr
			}
			fn(dataKey, parsedData, parsedData.IsStale(now))
		case IsNotFound(derr):
			fn(dataKey, nil, true)
		default:
			return derr
		}
	}
	return nil
}

// PKHExpire sets each field's expiration ttl seconds past now. Returns
// 1 per field updated, -2 per absent or already expired field.
func (r *Redis) PKHExpire(key []byte, ttl int64, fields [][]byte) ([]int32, error) {
	if ttl <= 0 {
		return nil, ErrInvalidArgument
	}

	now := r.now()
	batch := r.store.NewWriteBatch()
	rets := make([]int32, 0, len(fields))

	err := r.pkhashFieldWalk(key, fields, func(dataKey []byte, parsed *ParsedPKHashDataValue, stale bool) {
		if stale {
			rets = append(rets, pkhFieldMissing)
			return
		}
		parsed.SetRelativeTimestamp(now, uint64(ttl))
		batch.Put(PKHashDataCF, dataKey, parsed.Encode())
		rets = append(rets, pkhFieldOk)
	})
	if err != nil {
		return nil, err
	}

	if err := batch.Commit(); err != nil {
		return nil, err
	}
	r.updateSpecificKeyStatistics(PKHashesType, string(key), uint64(len(fields)))
	return rets, nil
}

// PKHExpireat sets each field's expiration to an absolute timestamp; a
// past timestamp is rejected.
func (r *Redis) PKHExpireat(key []byte, timestamp int64, fields [][]byte) ([]int32, error) {
	if timestamp <= 0 || uint64(timestamp) < r.now() {
		return nil, ErrInvalidArgument
	}

	batch := r.store.NewWriteBatch()
	rets := make([]int32, 0, len(fields))

	err := r.pkhashFieldWalk(key, fields, func(dataKey []byte, parsed *ParsedPKHashDataValue, stale bool) {
		if stale {
			rets = append(rets, pkhFieldMissing)
			return
		}
		parsed.SetEtime(uint64(timestamp))
		batch.Put(PKHashDataCF, dataKey, parsed.Encode())
		rets = append(rets, pkhFieldOk)
	})
	if err != nil {
		return nil, err
	}

	if err := batch.Commit(); err != nil {
		return nil, err
	}
	r.updateSpecificKeyStatistics(PKHashesType, string(key), uint64(len(fields)))
	return rets, nil
}

// PKHExpiretime reports each field's absolute expiration timestamp:
// -1 without expiration, -2 for absent or expired fields.
func (r *Redis) PKHExpiretime(key []byte, fields [][]byte) ([]int64, []int32, error) {
	timestamps := make([]int64, 0, len(fields))
	rets := make([]int32, 0, len(fields))

	err := r.pkhashFieldWalk(key, fields, func(_ []byte, parsed *ParsedPKHashDataValue, stale bool) {
		if stale {
			rets = append(rets, pkhFieldMissing)
			timestamps = append(timestamps, -2)
			return
		}
		if parsed.Etime() == 0 {
			rets = append(rets, pkhFieldNoTTL)
			timestamps = append(timestamps, -1)
			return
		}
		rets = append(rets, pkhFieldOk)
		timestamps = append(timestamps, int64(parsed.Etime()))
	})
	if err != nil {
		return nil, nil, err
	}
	return timestamps, rets, nil
}

// PKHTTL reports each field's remaining TTL in seconds: -1 without
// expiration, -2 for absent or expired fields.
func (r *Redis) PKHTTL(key []byte, fields [][]byte) ([]int64, []int32, error) {
	now := r.now()
	ttls := make([]int64, 0, len(fields))
	rets := make([]int32, 0, len(fields))

	err := r.pkhashFieldWalk(key, fields, func(_ []byte, parsed *ParsedPKHashDataValue, stale bool) {
		if stale {
			rets = append(rets, pkhFieldMissing)
			ttls = append(ttls, -2)
			return
		}
		if parsed.Etime() == 0 {
			rets = append(rets, pkhFieldNoTTL)
			ttls = append(ttls, -1)
			return
		}
		rets = append(rets, pkhFieldOk)
		ttls = append(ttls, int64(parsed.Etime()-now))
	})
	if err != nil {
		return nil, nil, err
	}
	return ttls, rets, nil
}

// PKHPersist clears each field's expiration. Returns 1 per field
// cleared, -1 per field without an expiration, -2 per absent or expired
// field.
func (r *Redis) PKHPersist(key []byte, fields [][]byte) ([]int32, error) {
	batch := r.store.NewWriteBatch()
	rets := make([]int32, 0, len(fields))

	err := r.pkhashFieldWalk(key, fields, func(dataKey []byte, parsed *ParsedPKHashDataValue, stale bool) {
		if stale {
			rets = append(rets, pkhFieldMissing)
			return
		}
		if parsed.Etime() == 0 {
			rets = append(rets, pkhFieldNoTTL)
			return
		}
		parsed.SetEtime(0)
		batch.Put(PKHashDataCF, dataKey, parsed.Encode())
		rets = append(rets, pkhFieldOk)
	})
	if err != nil {
		return nil, err
	}

	if err := batch.Commit(); err != nil {
		return nil, err
	}
	r.updateSpecificKeyStatistics(PKHashesType, string(key), uint64(len(fields)))
	return rets, nil
}
