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

// Set layout:
//
//	meta:  key                       => | type | count | version | reserve | ctime | etime |
//	data:  | key | version | member | => | (empty) | reserve | ctime | etime |

// SAdd inserts members, duplicates ignored. Returns the number of
// members actually added.
func (r *Redis) SAdd(key []byte, members [][]byte) (int32, error) {
	filtered := make([][]byte, 0, len(members))
	seen := make(map[string]struct{}, len(members))
	for _, member := range members {
		if _, ok := seen[string(member)]; ok {
			continue
		}
		seen[string(member)] = struct{}{}
		filtered = append(filtered, member)
	}

	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	now := r.now()
	batch := r.store.NewWriteBatch()
	metaKey := NewBaseMetaKey(key).Encode()

	var added int32
	metaValue, err := r.loadMeta(key, SetsType, nil)
	switch {
	case err == nil:
		parsedMeta, perr := ParseBaseMetaValue(metaValue)
		if perr != nil {
			return 0, perr
		}
		if parsedMeta.IsStale(now) || parsedMeta.Count() == 0 {
			version := parsedMeta.InitialMetaValue(now)
			parsedMeta.SetCount(int32(len(filtered)))
			batch.Put(MetaCF, metaKey, parsedMeta.Encode())
			for _, member := range filtered {
				internal := NewBaseDataValue(nil)
				internal.SetCtime(now)
				batch.Put(SetsDataCF, NewBaseDataKey(key, version, member).Encode(), internal.Encode())
			}
			added = int32(len(filtered))
		} else {
			version := parsedMeta.Version()
			for _, member := range filtered {
				dataKey := NewBaseDataKey(key, version, member).Encode()
				_, derr := r.store.Get(SetsDataCF, dataKey, nil)
				switch {
				case IsNotFound(derr):
					added++
					internal := NewBaseDataValue(nil)
					internal.SetCtime(now)
					batch.Put(SetsDataCF, dataKey, internal.Encode())
				case derr == nil:
					continue
				default:
					return 0, derr
				}
			}
			if added == 0 {
				return 0, nil
			}
			if !parsedMeta.CheckModifyCount(added) {
				return 0, ErrOverflow
			}
			parsedMeta.ModifyCount(added)
			batch.Put(MetaCF, metaKey, parsedMeta.Encode())
		}
	case IsNotFound(err):
		meta := NewCollectionMetaValue(SetsType, uint32(len(filtered)))
		version := meta.UpdateVersion(now)
		meta.SetCtime(now)
		batch.Put(MetaCF, metaKey, meta.Encode())
		for _, member := range filtered {
			internal := NewBaseDataValue(nil)
			internal.SetCtime(now)
			batch.Put(SetsDataCF, NewBaseDataKey(key, version, member).Encode(), internal.Encode())
		}
		added = int32(len(filtered))
	default:
		return 0, err
	}

	if err := batch.Commit(); err != nil {
		return 0, err
	}
	r.updateSpecificKeyStatistics(SetsType, string(key), uint64(added))
	return added, nil
}

// SRem removes members, duplicates ignored. Returns the number of
// members actually removed.
func (r *Redis) SRem(key []byte, members [][]byte) (int32, error) {
	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	metaValue, err := r.loadMeta(key, SetsType, nil)
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

	seen := make(map[string]struct{}, len(members))
	batch := r.store.NewWriteBatch()
	version := parsedMeta.Version()
	var removed int32
	for _, member := range members {
		if _, ok := seen[string(member)]; ok {
			continue
		}
		seen[string(member)] = struct{}{}

		dataKey := NewBaseDataKey(key, version, member).Encode()
		_, derr := r.store.Get(SetsDataCF, dataKey, nil)
		switch {
		case derr == nil:
			removed++
			batch.Delete(SetsDataCF, dataKey)
		case IsNotFound(derr):
			continue
		default:
			return 0, derr
		}
	}
	if removed == 0 {
		return 0, nil
	}

	if !parsedMeta.CheckModifyCount(-removed) {
		return 0, ErrOverflow
	}
	parsedMeta.ModifyCount(-removed)
	batch.Put(MetaCF, NewBaseMetaKey(key).Encode(), parsedMeta.Encode())

	if err := batch.Commit(); err != nil {
		return 0, err
	}
	r.updateSpecificKeyStatistics(SetsType, string(key), uint64(removed))
	return removed, nil
}

// SIsMember reports whether member is in the set.
func (r *Redis) SIsMember(key, member []byte) (bool, error) {
	snapshot := NewScopeSnapshot(r.store)
	defer snapshot.Close()

	metaValue, err := r.loadMeta(key, SetsType, snapshot.Snapshot())
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	parsedMeta, err := ParseBaseMetaValue(metaValue)
	if err != nil {
		return false, err
	}
	if !parsedMeta.IsValid(r.now()) {
		return false, nil
	}

	dataKey := NewBaseDataKey(key, parsedMeta.Version(), member).Encode()
	_, err = r.store.Get(SetsDataCF, dataKey, snapshot.Snapshot())
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// SMembers lists every member in lexicographic order.
func (r *Redis) SMembers(key []byte) ([][]byte, error) {
	snapshot := NewScopeSnapshot(r.store)
	defer snapshot.Close()

	metaValue, err := r.loadMeta(key, SetsType, snapshot.Snapshot())
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

	var members [][]byte
	prefix := NewBaseDataKey(key, parsedMeta.Version(), nil).EncodeSeekKey()
	iter := r.store.NewIterator(SetsDataCF, snapshot.Snapshot())
	defer iter.Close()
	for iter.Seek(prefix); iter.Valid() && bytes.HasPrefix(iter.Key(), prefix); iter.Next() {
		parsedKey, kerr := ParseBaseDataKey(iter.Key())
		if kerr != nil {
			return nil, kerr
		}
		members = append(members, parsedKey.Field())
	}
	return members, nil
}

// SCard reports the number of members.
func (r *Redis) SCard(key []byte) (int32, error) {
	metaValue, err := r.loadMeta(key, SetsType, nil)
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

// SPop removes and returns up to count members in iteration order.
func (r *Redis) SPop(key []byte, count int64) ([][]byte, error) {
	if count <= 0 {
		return nil, ErrInvalidArgument
	}

	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	metaValue, err := r.loadMeta(key, SetsType, nil)
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

	batch := r.store.NewWriteBatch()
	version := parsedMeta.Version()
	prefix := NewBaseDataKey(key, version, nil).EncodeSeekKey()

	var popped [][]byte
	iter := r.store.NewIterator(SetsDataCF, nil)
	for iter.Seek(prefix); iter.Valid() && int64(len(popped)) < count && bytes.HasPrefix(iter.Key(), prefix); iter.Next() {
		parsedKey, kerr := ParseBaseDataKey(iter.Key())
		if kerr != nil {
			iter.Close()
			return nil, kerr
		}
		popped = append(popped, parsedKey.Field())
		batch.Delete(SetsDataCF, iter.Key())
	}
	iter.Close()

	if !parsedMeta.CheckModifyCount(int32(-len(popped))) {
		return nil, ErrOverflow
	}
	parsedMeta.ModifyCount(int32(-len(popped)))
	batch.Put(MetaCF, NewBaseMetaKey(key).Encode(), parsedMeta.Encode())

	if err := batch.Commit(); err != nil {
		return nil, err
	}
	r.updateSpecificKeyStatistics(SetsType, string(key), uint64(len(popped)))
	return popped, nil
}
