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

// List layout:
//
//	meta:  key                      => | type | count | version | left | right | ... |
//	data:  | key | version | index | => | value | reserve | ctime | etime |
//
// Elements live in the index window [left+1, right-1]; pushes write at
// the boundary slot and move it outward, pops read the innermost slot
// and move the boundary inward.

// LPush prepends values to the list and returns the new length.
func (r *Redis) LPush(key []byte, values [][]byte) (uint64, error) {
	return r.push(key, values, true)
}

// RPush appends values to the list and returns the new length.
func (r *Redis) RPush(key []byte, values [][]byte) (uint64, error) {
	return r.push(key, values, false)
}

func (r *Redis) push(key []byte, values [][]byte, left bool) (uint64, error) {
	if len(values) == 0 {
		return 0, ErrInvalidArgument
	}

	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	now := r.now()
	batch := r.store.NewWriteBatch()
	metaKey := NewBaseMetaKey(key).Encode()

	metaValue, err := r.loadMeta(key, ListsType, nil)
	var parsedMeta *ParsedListsMetaValue
	switch {
	case err == nil:
		parsedMeta, err = ParseListsMetaValue(metaValue)
		if err != nil {
			return 0, err
		}
		if parsedMeta.IsStale(now) || parsedMeta.Count() == 0 {
			parsedMeta.InitialMetaValue(now)
		}
	case IsNotFound(err):
		meta := NewListsMetaValue(0)
		meta.UpdateVersion(now)
		meta.SetCtime(now)
		parsedMeta, err = ParseListsMetaValue(meta.Encode())
		if err != nil {
			return 0, err
		}
	default:
		return 0, err
	}

	version := parsedMeta.Version()
	for _, value := range values {
		var index uint64
		if left {
			index = parsedMeta.LeftIndex()
			parsedMeta.ModifyLeftIndex(1)
		} else {
			index = parsedMeta.RightIndex()
			parsedMeta.ModifyRightIndex(1)
		}

		internal := NewBaseDataValue(value)
		internal.SetCtime(now)
		batch.Put(ListsDataCF, NewListsDataKey(key, version, index).Encode(), internal.Encode())
	}
	parsedMeta.ModifyCount(int64(len(values)))
	batch.Put(MetaCF, metaKey, parsedMeta.Encode())

	if err := batch.Commit(); err != nil {
		return 0, err
	}
	r.updateSpecificKeyStatistics(ListsType, string(key), uint64(len(values)))
	return parsedMeta.Count(), nil
}

// LPop removes and returns the first element.
func (r *Redis) LPop(key []byte) ([]byte, error) {
	return r.pop(key, true)
}

// RPop removes and returns the last element.
func (r *Redis) RPop(key []byte) ([]byte, error) {
	return r.pop(key, false)
}

func (r *Redis) pop(key []byte, left bool) ([]byte, error) {
	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	metaValue, err := r.loadMeta(key, ListsType, nil)
	if err != nil {
		return nil, err
	}

	now := r.now()
	parsedMeta, err := ParseListsMetaValue(metaValue)
	if err != nil {
		return nil, err
	}
	if parsedMeta.IsStale(now) {
		return nil, ErrStaleKey
	}
	if parsedMeta.Count() == 0 {
		return nil, ErrKeyNotFound
	}

	var index uint64
	if left {
		index = parsedMeta.LeftIndex() + 1
	} else {
		index = parsedMeta.RightIndex() - 1
	}

	dataKey := NewListsDataKey(key, parsedMeta.Version(), index).Encode()
	dataValue, err := r.store.Get(ListsDataCF, dataKey, nil)
	if err != nil {
		return nil, err
	}
	parsedData, err := ParseBaseDataValue(dataValue)
	if err != nil {
		return nil, err
	}
	element := parsedData.UserValue()

	batch := r.store.NewWriteBatch()
	parsedMeta.ModifyCount(-1)
	if left {
		parsedMeta.SetLeftIndex(index)
	} else {
		parsedMeta.SetRightIndex(index)
	}
	batch.Put(MetaCF, NewBaseMetaKey(key).Encode(), parsedMeta.Encode())
	batch.Delete(ListsDataCF, dataKey)

	if err := batch.Commit(); err != nil {
		return nil, err
	}
	r.updateSpecificKeyStatistics(ListsType, string(key), 1)
	return element, nil
}

// LLen reports the list length.
func (r *Redis) LLen(key []byte) (uint64, error) {
	metaValue, err := r.loadMeta(key, ListsType, nil)
	if err != nil {
		if IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}

	parsedMeta, err := ParseListsMetaValue(metaValue)
	if err != nil {
		return 0, err
	}
	if !parsedMeta.IsValid(r.now()) {
		return 0, nil
	}
	return parsedMeta.Count(), nil
}

// listAbsoluteIndex translates a possibly negative logical position
// into a slot inside the live window; ok is false when out of range.
func listAbsoluteIndex(parsedMeta *ParsedListsMetaValue, pos int64) (uint64, bool) {
	count := int64(parsedMeta.Count())
	if pos < 0 {
		pos += count
	}
	if pos < 0 || pos >= count {
		return 0, false
	}
	return parsedMeta.LeftIndex() + 1 + uint64(pos), true
}

// LIndex fetches the element at a logical position, negatives counting
// from the tail.
func (r *Redis) LIndex(key []byte, pos int64) ([]byte, error) {
	snapshot := NewScopeSnapshot(r.store)
	defer snapshot.Close()

	metaValue, err := r.loadMeta(key, ListsType, snapshot.Snapshot())
	if err != nil {
		return nil, err
	}

	now := r.now()
	parsedMeta, err := ParseListsMetaValue(metaValue)
	if err != nil {
		return nil, err
	}
	if parsedMeta.IsStale(now) {
		return nil, ErrStaleKey
	}
	if parsedMeta.Count() == 0 {
		return nil, ErrKeyNotFound
	}

	index, ok := listAbsoluteIndex(parsedMeta, pos)
	if !ok {
		return nil, ErrKeyNotFound
	}

	dataKey := NewListsDataKey(key, parsedMeta.Version(), index).Encode()
	dataValue, err := r.store.Get(ListsDataCF, dataKey, snapshot.Snapshot())
	if err != nil {
		return nil, err
	}
	parsedData, err := ParseBaseDataValue(dataValue)
	if err != nil {
		return nil, err
	}
	return parsedData.UserValue(), nil
}

// LRange lists the elements between the logical positions start and
// stop, both inclusive, clamped to the list bounds.
func (r *Redis) LRange(key []byte, start, stop int64) ([][]byte, error) {
	snapshot := NewScopeSnapshot(r.store)
	defer snapshot.Close()

	metaValue, err := r.loadMeta(key, ListsType, snapshot.Snapshot())
	if err != nil {
		return nil, err
	}

	now := r.now()
	parsedMeta, err := ParseListsMetaValue(metaValue)
	if err != nil {
		return nil, err
	}
	if parsedMeta.IsStale(now) {
		return nil, ErrStaleKey
	}
	if parsedMeta.Count() == 0 {
		return nil, ErrKeyNotFound
	}

	count := int64(parsedMeta.Count())
	if start < 0 {
		start += count
	}
	if stop < 0 {
		stop += count
	}
	if start < 0 {
		start = 0
	}
	if stop >= count {
		stop = count - 1
	}
	if start > stop {
		return nil, nil
	}

	version := parsedMeta.Version()
	startSlot := parsedMeta.LeftIndex() + 1 + uint64(start)
	stopSlot := parsedMeta.LeftIndex() + 1 + uint64(stop)

	elements := make([][]byte, 0, stop-start+1)
	startKey := NewListsDataKey(key, version, startSlot).Encode()
	stopKey := NewListsDataKey(key, version, stopSlot).Encode()
	iter := r.store.NewIterator(ListsDataCF, snapshot.Snapshot())
	defer iter.Close()
	for iter.Seek(startKey); iter.Valid() && bytes.Compare(iter.Key(), stopKey) <= 0; iter.Next() {
		parsedData, perr := ParseBaseDataValue(iter.Value())
		if perr != nil {
			return nil, perr
		}
		elements = append(elements, parsedData.UserValue())
	}
	return elements, nil
}

// LSet overwrites the element at a logical position.
func (r *Redis) LSet(key []byte, pos int64, value []byte) error {
	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	metaValue, err := r.loadMeta(key, ListsType, nil)
	if err != nil {
		return err
	}

	now := r.now()
	parsedMeta, err := ParseListsMetaValue(metaValue)
	if err != nil {
		return err
	}
	if parsedMeta.IsStale(now) {
		return ErrStaleKey
	}
	if parsedMeta.Count() == 0 {
		return ErrKeyNotFound
	}

	index, ok := listAbsoluteIndex(parsedMeta, pos)
	if !ok {
		return ErrInvalidArgument
	}

	internal := NewBaseDataValue(value)
	internal.SetCtime(now)
	dataKey := NewListsDataKey(key, parsedMeta.Version(), index).Encode()
	if err := r.store.Put(ListsDataCF, dataKey, internal.Encode()); err != nil {
		return err
	}
	r.updateSpecificKeyStatistics(ListsType, string(key), 1)
	return nil
}

// LRem removes up to |count| occurrences of value: count > 0 scans from
// the head, count < 0 from the tail, count == 0 removes them all.
// Returns the number removed. The surviving elements are re-packed into
// a fresh version so the index window stays dense.
func (r *Redis) LRem(key []byte, count int64, value []byte) (uint64, error) {
	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	metaValue, err := r.loadMeta(key, ListsType, nil)
	if err != nil {
		if IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}

	now := r.now()
	parsedMeta, err := ParseListsMetaValue(metaValue)
	if err != nil {
		return 0, err
	}
	if parsedMeta.IsStale(now) || parsedMeta.Count() == 0 {
		return 0, nil
	}

	version := parsedMeta.Version()
	prefix := NewListsDataKey(key, version, 0).EncodeSeekKey()

	var elements [][]byte
	iter := r.store.NewIterator(ListsDataCF, nil)
	for iter.Seek(prefix); iter.Valid() && bytes.HasPrefix(iter.Key(), prefix); iter.Next() {
		parsedData, perr := ParseBaseDataValue(iter.Value())
		if perr != nil {
			iter.Close()
			return 0, perr
		}
		elements = append(elements, parsedData.UserValue())
	}
	iter.Close()

	limit := count
	if limit < 0 {
		limit = -limit
	}

	keep := make([][]byte, 0, len(elements))
	var removed uint64
	if count >= 0 {
		for _, element := range elements {
			if bytes.Equal(element, value) && (count == 0 || removed < uint64(limit)) {
				removed++
				continue
			}
			keep = append(keep, element)
		}
	} else {
		for i := len(elements) - 1; i >= 0; i-- {
			if bytes.Equal(elements[i], value) && removed < uint64(limit) {
				removed++
				continue
			}
			keep = append(keep, elements[i])
		}
		// restore head-to-tail order
		for i, j := 0, len(keep)-1; i < j; i, j = i+1, j-1 {
			keep[i], keep[j] = keep[j], keep[i]
		}
	}
	if removed == 0 {
		return 0, nil
	}

	batch := r.store.NewWriteBatch()
	newVersion := parsedMeta.InitialMetaValue(now)
	parsedMeta.SetCount(uint64(len(keep)))
	slot := parsedMeta.RightIndex()
	for _, element := range keep {
		internal := NewBaseDataValue(element)
		internal.SetCtime(now)
		batch.Put(ListsDataCF, NewListsDataKey(key, newVersion, slot).Encode(), internal.Encode())
		slot++
	}
	parsedMeta.SetRightIndex(slot)
	batch.Put(MetaCF, NewBaseMetaKey(key).Encode(), parsedMeta.Encode())

	if err := batch.Commit(); err != nil {
		return 0, err
	}
	r.updateSpecificKeyStatistics(ListsType, string(key), removed)
	return removed, nil
}

// LTrim keeps only the elements between the logical positions start and
// stop, both inclusive. The survivors are re-packed into a fresh
// version.
func (r *Redis) LTrim(key []byte, start, stop int64) error {
	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	metaValue, err := r.loadMeta(key, ListsType, nil)
	if err != nil {
		return err
	}

	now := r.now()
	parsedMeta, err := ParseListsMetaValue(metaValue)
	if err != nil {
		return err
	}
	if parsedMeta.IsStale(now) {
		return ErrStaleKey
	}
	if parsedMeta.Count() == 0 {
		return ErrKeyNotFound
	}

	count := int64(parsedMeta.Count())
	if start < 0 {
		start += count
	}
	if stop < 0 {
		stop += count
	}
	if start < 0 {
		start = 0
	}
	if stop >= count {
		stop = count - 1
	}

	version := parsedMeta.Version()
	prefix := NewListsDataKey(key, version, 0).EncodeSeekKey()

	var elements [][]byte
	iter := r.store.NewIterator(ListsDataCF, nil)
	for iter.Seek(prefix); iter.Valid() && bytes.HasPrefix(iter.Key(), prefix); iter.Next() {
		parsedData, perr := ParseBaseDataValue(iter.Value())
		if perr != nil {
			iter.Close()
			return perr
		}
		elements = append(elements, parsedData.UserValue())
	}
	iter.Close()

	var keep [][]byte
	if start <= stop {
		keep = elements[start : stop+1]
	}

	batch := r.store.NewWriteBatch()
	newVersion := parsedMeta.InitialMetaValue(now)
	parsedMeta.SetCount(uint64(len(keep)))
	slot := parsedMeta.RightIndex()
	for _, element := range keep {
		internal := NewBaseDataValue(element)
		internal.SetCtime(now)
		batch.Put(ListsDataCF, NewListsDataKey(key, newVersion, slot).Encode(), internal.Encode())
		slot++
	}
	parsedMeta.SetRightIndex(slot)
	batch.Put(MetaCF, NewBaseMetaKey(key).Encode(), parsedMeta.Encode())

	if err := batch.Commit(); err != nil {
		return err
	}
	r.updateSpecificKeyStatistics(ListsType, string(key), uint64(len(elements)-len(keep)))
	return nil
}
