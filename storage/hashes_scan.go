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

	"github.com/bigdaronlee163/pika/utils"
)

// isTailWildcard reports whether pattern is a plain prefix followed by
// a single trailing '*', which lets a scan seek straight to the prefix.
func isTailWildcard(pattern string) bool {
	if len(pattern) < 2 || pattern[len(pattern)-1] != '*' {
		return false
	}
	for i := 0; i < len(pattern)-1; i++ {
		switch pattern[i] {
		case '*', '?', '[', ']', '\\':
			return false
		}
	}
	return true
}

// HScan pages through the hash with an opaque numeric cursor. The
// boundary behind each returned cursor is remembered in a side table so
// the next call resumes at the exact field where this one stopped.
func (r *Redis) HScan(key []byte, cursor int64, pattern string, count int64) ([]FieldValue, int64, error) {
	if cursor < 0 {
		return nil, 0, nil
	}
	if count <= 0 {
		count = 10
	}

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
	if parsedMeta.IsStale(now) || parsedMeta.Count() == 0 {
		return nil, 0, ErrKeyNotFound
	}

	var subField []byte
	var startPoint []byte
	version := parsedMeta.Version()

	point, found := r.cursors.GetScanStartPoint(HashesType, key, pattern, cursor)
	if found {
		startPoint = point
	} else {
		cursor = 0
		if isTailWildcard(pattern) {
			startPoint = []byte(pattern[:len(pattern)-1])
		}
	}
	if isTailWildcard(pattern) {
		subField = []byte(pattern[:len(pattern)-1])
	}

	prefix := append(NewBaseDataKey(key, version, nil).EncodeSeekKey(), subField...)
	startKey := NewBaseDataKey(key, version, startPoint).Encode()

	var fvs []FieldValue
	rest := count
	iter := r.store.NewIterator(HashesDataCF, snapshot.Snapshot())
	defer iter.Close()
	for iter.Seek(startKey); iter.Valid() && rest > 0 && bytes.HasPrefix(iter.Key(), prefix); iter.Next() {
		parsedKey, kerr := ParseBaseDataKey(iter.Key())
		if kerr != nil {
			return nil, 0, kerr
		}
		field := parsedKey.Field()
		if utils.StringMatch([]byte(pattern), field) {
			parsedValue, verr := ParseBaseDataValue(iter.Value())
			if verr != nil {
				return nil, 0, verr
			}
			fvs = append(fvs, FieldValue{Field: field, Value: parsedValue.UserValue()})
		}
		rest--
	}

	var nextCursor int64
	if iter.Valid() && bytes.HasPrefix(iter.Key(), prefix) {
		nextCursor = cursor + count
		parsedKey, kerr := ParseBaseDataKey(iter.Key())
		if kerr != nil {
			return nil, 0, kerr
		}
		r.cursors.StoreScanNextPoint(HashesType, key, pattern, nextCursor, parsedKey.Field())
	}
	return fvs, nextCursor, nil
}

// HScanx pages through the hash from an explicit start field, returning
// the next field to resume from, empty when exhausted.
func (r *Redis) HScanx(key, startField []byte, pattern string, count int64) ([]FieldValue, []byte, error) {
	if count <= 0 {
		count = 10
	}

	snapshot := NewScopeSnapshot(r.store)
	defer snapshot.Close()

	metaValue, err := r.loadMeta(key, HashesType, snapshot.Snapshot())
	if err != nil {
		return nil, nil, err
	}

	now := r.now()
	parsedMeta, err := ParseBaseMetaValue(metaValue)
	if err != nil {
		return nil, nil, err
	}
	if parsedMeta.IsStale(now) || parsedMeta.Count() == 0 {
		return nil, nil, ErrKeyNotFound
	}

	version := parsedMeta.Version()
	prefix := NewBaseDataKey(key, version, nil).EncodeSeekKey()
	startKey := NewBaseDataKey(key, version, startField).Encode()

	var fvs []FieldValue
	rest := count
	iter := r.store.NewIterator(HashesDataCF, snapshot.Snapshot())
	defer iter.Close()
	for iter.Seek(startKey); iter.Valid() && rest > 0 && bytes.HasPrefix(iter.Key(), prefix); iter.Next() {
		parsedKey, kerr := ParseBaseDataKey(iter.Key())
		if kerr != nil {
			return nil, nil, kerr
		}
		field := parsedKey.Field()
		if utils.StringMatch([]byte(pattern), field) {
			parsedValue, verr := ParseBaseDataValue(iter.Value())
			if verr != nil {
				return nil, nil, verr
			}
			fvs = append(fvs, FieldValue{Field: field, Value: parsedValue.UserValue()})
		}
		rest--
	}

	var nextField []byte
	if iter.Valid() && bytes.HasPrefix(iter.Key(), prefix) {
		parsedKey, kerr := ParseBaseDataKey(iter.Key())
		if kerr != nil {
			return nil, nil, kerr
		}
		nextField = parsedKey.Field()
	}
	return fvs, nextField, nil
}

// PKHScanRange scans fields inside [fieldStart, fieldEnd] forward; an
// empty bound is unbounded on that side. Limit caps the fields visited,
// and the field after the visited window comes back as the resume point.
func (r *Redis) PKHScanRange(key, fieldStart, fieldEnd []byte, pattern string, limit int32) ([]FieldValue, []byte, error) {
	startNoLimit := len(fieldStart) == 0
	endNoLimit := len(fieldEnd) == 0
	if !startNoLimit && !endNoLimit && bytes.Compare(fieldStart, fieldEnd) > 0 {
		return nil, nil, ErrInvalidArgument
	}
	if limit <= 0 {
		limit = 10
	}

	snapshot := NewScopeSnapshot(r.store)
	defer snapshot.Close()

	metaValue, err := r.loadMeta(key, HashesType, snapshot.Snapshot())
	if err != nil {
		return nil, nil, err
	}

	now := r.now()
	parsedMeta, err := ParseBaseMetaValue(metaValue)
	if err != nil {
		return nil, nil, err
	}
	if parsedMeta.IsStale(now) || parsedMeta.Count() == 0 {
		return nil, nil, ErrKeyNotFound
	}

	version := parsedMeta.Version()
	prefix := NewBaseDataKey(key, version, nil).EncodeSeekKey()

	seekTarget := prefix
	if !startNoLimit {
		seekTarget = NewBaseDataKey(key, version, fieldStart).Encode()
	}

	var fvs []FieldValue
	remain := int64(limit)
	iter := r.store.NewIterator(HashesDataCF, snapshot.Snapshot())
	defer iter.Close()
	for iter.Seek(seekTarget); iter.Valid() && remain > 0 && bytes.HasPrefix(iter.Key(), prefix); iter.Next() {
		parsedKey, kerr := ParseBaseDataKey(iter.Key())
		if kerr != nil {
			return nil, nil, kerr
		}
		field := parsedKey.Field()
		if !endNoLimit && bytes.Compare(field, fieldEnd) > 0 {
			break
		}
		if utils.StringMatch([]byte(pattern), field) {
			parsedValue, verr := ParseBaseDataValue(iter.Value())
			if verr != nil {
				return nil, nil, verr
			}
			fvs = append(fvs, FieldValue{Field: field, Value: parsedValue.UserValue()})
		}
		remain--
	}

	var nextField []byte
	if iter.Valid() && bytes.HasPrefix(iter.Key(), prefix) {
		parsedKey, kerr := ParseBaseDataKey(iter.Key())
		if kerr != nil {
			return nil, nil, kerr
		}
		if endNoLimit || bytes.Compare(parsedKey.Field(), fieldEnd) <= 0 {
			nextField = parsedKey.Field()
		}
	}
	return fvs, nextField, nil
}

// PKHRScanRange scans fields inside [fieldEnd, fieldStart] backward; an
// empty bound is unbounded on that side.
func (r *Redis) PKHRScanRange(key, fieldStart, fieldEnd []byte, pattern string, limit int32) ([]FieldValue, []byte, error) {
	startNoLimit := len(fieldStart) == 0
	endNoLimit := len(fieldEnd) == 0
	if !startNoLimit && !endNoLimit && bytes.Compare(fieldStart, fieldEnd) < 0 {
		return nil, nil, ErrInvalidArgument
	}
	if limit <= 0 {
		limit = 10
	}

	snapshot := NewScopeSnapshot(r.store)
	defer snapshot.Close()

	metaValue, err := r.loadMeta(key, HashesType, snapshot.Snapshot())
	if err != nil {
		return nil, nil, err
	}

	now := r.now()
	parsedMeta, err := ParseBaseMetaValue(metaValue)
	if err != nil {
		return nil, nil, err
	}
	if parsedMeta.IsStale(now) || parsedMeta.Count() == 0 {
		return nil, nil, ErrKeyNotFound
	}

	version := parsedMeta.Version()
	prefix := NewBaseDataKey(key, version, nil).EncodeSeekKey()

	// with no start bound, aim one version past the prefix so the
	// backward seek lands on the hash's last field
	seekTarget := NewBaseDataKey(key, version+1, nil).EncodeSeekKey()
	if !startNoLimit {
		seekTarget = NewBaseDataKey(key, version, fieldStart).Encode()
	}

	var fvs []FieldValue
	remain := int64(limit)
	iter := r.store.NewIterator(HashesDataCF, snapshot.Snapshot())
	defer iter.Close()
	for iter.SeekForPrev(seekTarget); iter.Valid() && remain > 0 && bytes.HasPrefix(iter.Key(), prefix); iter.Prev() {
		parsedKey, kerr := ParseBaseDataKey(iter.Key())
		if kerr != nil {
			return nil, nil, kerr
		}
		field := parsedKey.Field()
		if !endNoLimit && bytes.Compare(field, fieldEnd) < 0 {
			break
		}
		if utils.StringMatch([]byte(pattern), field) {
			parsedValue, verr := ParseBaseDataValue(iter.Value())
			if verr != nil {
				return nil, nil, verr
			}
			fvs = append(fvs, FieldValue{Field: field, Value: parsedValue.UserValue()})
		}
		remain--
	}

	var nextField []byte
	if iter.Valid() && bytes.HasPrefix(iter.Key(), prefix) {
		parsedKey, kerr := ParseBaseDataKey(iter.Key())
		if kerr != nil {
			return nil, nil, kerr
		}
		if endNoLimit || bytes.Compare(parsedKey.Field(), fieldEnd) >= 0 {
			nextField = parsedKey.Field()
		}
	}
	return fvs, nextField, nil
}
