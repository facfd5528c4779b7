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

// Type-agnostic key commands dispatch on the meta tag byte. Deleting a
// collection never touches its element records: the version bump alone
// orphans them and compaction reclaims the space later.

// metaView is the common read surface over the two meta layouts.
type metaView interface {
	Version() uint64
	Etime() uint64
	IsStale(now uint64) bool
	IsValid(now uint64) bool
	SetEtime(etime uint64)
	SetRelativeTimestamp(now, ttl uint64)
	Encode() []byte
}

// parseMetaByType parses metaValue according to its own tag byte.
func parseMetaByType(metaValue []byte) (DataType, metaView, error) {
	switch metaValueType(metaValue) {
	case ListsType:
		parsed, err := ParseListsMetaValue(metaValue)
		return ListsType, parsed, err
	case StringsType:
		parsed, err := ParseStringsValue(metaValue)
		if err != nil {
			return StringsType, nil, err
		}
		return StringsType, stringsMetaView{parsed}, nil
	case HashesType, SetsType, ZSetsType, PKHashesType:
		parsed, err := ParseBaseMetaValue(metaValue)
		return metaValueType(metaValue), parsed, err
	default:
		return NoneType, nil, ErrCorruption
	}
}

// stringsMetaView makes a string record look valid whenever it is not
// stale, since strings have no element count.
type stringsMetaView struct {
	*ParsedStringsValue
}

func (v stringsMetaView) IsValid(now uint64) bool {
	return !v.IsStale(now)
}

// initialMetaByType logically deletes a collection meta in place and
// reports whether the record needs a re-put (false asks for a physical
// delete, used for strings).
func initialMetaByType(dataType DataType, view metaView, now uint64) bool {
	switch dataType {
	case ListsType:
		view.(*ParsedListsMetaValue).InitialMetaValue(now)
		return true
	case StringsType:
		return false
	default:
		view.(*ParsedBaseMetaValue).InitialMetaValue(now)
		return true
	}
}

// Del logically deletes key whatever its type.
func (r *Redis) Del(key []byte) error {
	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	return r.delLocked(key)
}

func (r *Redis) delLocked(key []byte) error {
	metaKey := NewBaseMetaKey(key).Encode()
	metaValue, err := r.store.Get(MetaCF, metaKey, nil)
	if err != nil {
		return err
	}

	now := r.now()
	dataType, view, err := parseMetaByType(metaValue)
	if err != nil {
		return err
	}
	if !view.IsValid(now) {
		return ErrKeyNotFound
	}

	if initialMetaByType(dataType, view, now) {
		if err := r.store.Put(MetaCF, metaKey, view.Encode()); err != nil {
			return err
		}
	} else {
		if err := r.store.Delete(MetaCF, metaKey); err != nil {
			return err
		}
	}

	r.cursors.InvalidateKey(dataType, key)
	r.updateSpecificKeyStatistics(dataType, string(key), 1)
	return nil
}

// MDel deletes several keys, locking them in lexicographic order.
// Returns the number of keys that existed.
func (r *Redis) MDel(keys [][]byte) (int64, error) {
	lock := NewMultiScopeRecordLock(r.lockMgr, keys)
	defer lock.Unlock()

	var deleted int64
	for _, key := range keys {
		err := r.delLocked(key)
		switch {
		case err == nil:
			deleted++
		case IsNotFound(err):
			continue
		default:
			return deleted, err
		}
	}
	return deleted, nil
}

// Exists reports whether key holds a live record of any type.
func (r *Redis) Exists(key []byte) (bool, error) {
	metaValue, err := r.store.Get(MetaCF, NewBaseMetaKey(key).Encode(), nil)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	_, view, err := parseMetaByType(metaValue)
	if err != nil {
		return false, err
	}
	return view.IsValid(r.now()), nil
}

// Type reports the live type bound to key.
func (r *Redis) Type(key []byte) (DataType, error) {
	metaValue, err := r.store.Get(MetaCF, NewBaseMetaKey(key).Encode(), nil)
	if err != nil {
		return NoneType, err
	}

	dataType, view, err := parseMetaByType(metaValue)
	if err != nil {
		return NoneType, err
	}
	if !view.IsValid(r.now()) {
		return NoneType, ErrKeyNotFound
	}
	return dataType, nil
}

// Expire sets key's expiration ttl seconds from now whatever its type;
// a non-positive ttl deletes the key.
func (r *Redis) Expire(key []byte, ttl int64) error {
	if ttl <= 0 {
		return r.Del(key)
	}

	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	metaKey := NewBaseMetaKey(key).Encode()
	metaValue, err := r.store.Get(MetaCF, metaKey, nil)
	if err != nil {
		return err
	}

	now := r.now()
	dataType, view, err := parseMetaByType(metaValue)
	if err != nil {
		return err
	}
	if !view.IsValid(now) {
		return ErrKeyNotFound
	}

	view.SetRelativeTimestamp(now, uint64(ttl))
	if err := r.store.Put(MetaCF, metaKey, view.Encode()); err != nil {
		return err
	}
	r.updateSpecificKeyStatistics(dataType, string(key), 1)
	return nil
}

// TTL reports key's remaining TTL in seconds: -2 for an absent key,
// -1 without expiration.
func (r *Redis) TTL(key []byte) (int64, error) {
	metaValue, err := r.store.Get(MetaCF, NewBaseMetaKey(key).Encode(), nil)
	if err != nil {
		if IsNotFound(err) {
			return -2, nil
		}
		return -2, err
	}

	now := r.now()
	_, view, err := parseMetaByType(metaValue)
	if err != nil {
		return -2, err
	}
	if !view.IsValid(now) {
		return -2, nil
	}
	if view.Etime() == 0 {
		return -1, nil
	}
	return int64(view.Etime() - now), nil
}

// Persist clears key's expiration. Returns 1 when an expiration was
// removed.
func (r *Redis) Persist(key []byte) (int32, error) {
	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	metaKey := NewBaseMetaKey(key).Encode()
	metaValue, err := r.store.Get(MetaCF, metaKey, nil)
	if err != nil {
		return 0, err
	}

	now := r.now()
	dataType, view, err := parseMetaByType(metaValue)
	if err != nil {
		return 0, err
	}
	if !view.IsValid(now) {
		return 0, ErrKeyNotFound
	}
	if view.Etime() == 0 {
		return 0, nil
	}

	view.SetEtime(0)
	if err := r.store.Put(MetaCF, metaKey, view.Encode()); err != nil {
		return 0, err
	}
	r.updateSpecificKeyStatistics(dataType, string(key), 1)
	return 1, nil
}

// ScanKeyNum sweeps the meta column family and summarizes the key space
// of one data type.
func (r *Redis) ScanKeyNum(dataType DataType) (KeyInfo, error) {
	snapshot := NewScopeSnapshot(r.store)
	defer snapshot.Close()

	now := r.now()
	var info KeyInfo
	var ttlSum uint64

	iter := r.store.NewIterator(MetaCF, snapshot.Snapshot())
	defer iter.Close()
	for iter.SeekToFirst(); iter.Valid(); iter.Next() {
		if metaValueType(iter.Value()) != dataType {
			continue
		}
		_, view, err := parseMetaByType(iter.Value())
		if err != nil {
			continue
		}
		if !view.IsValid(now) {
			info.InvalidKeys++
			continue
		}

		info.Keys++
		if view.Etime() != 0 {
			info.Expires++
			ttlSum += view.Etime() - now
		}
	}

	if info.Expires != 0 {
		info.AvgTTL = ttlSum / info.Expires
	}
	return info, nil
}
