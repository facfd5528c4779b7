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

// Sorted set layout:
//
//	meta:   key                               => | type | count | version | ... |
//	member: | key | version | member |         => | score (8B) | reserve | ctime | etime |
//	score:  | key | version | score | member | => | (empty) | reserve | ctime | etime |
//
// The member column family answers point lookups; the score column
// family keeps members in numeric score order for range scans. Both
// entries of one member are written in the same batch.

func encodeScorePayload(score float64) []byte {
	payload := make([]byte, scoreLength)
	EncodeScore(payload, score)
	return payload
}

func decodeScorePayload(payload []byte) (float64, error) {
	if len(payload) != scoreLength {
		return 0, ErrCorruption
	}
	return DecodeScore(payload), nil
}

// ZAdd upserts the given members. Re-scoring an existing member drops
// its old score-index entry in the same batch. Returns the number of
// members newly added.
func (r *Redis) ZAdd(key []byte, members []ScoreMember) (int32, error) {
	filtered := make([]ScoreMember, 0, len(members))
	seen := make(map[string]struct{}, len(members))
	for i := len(members) - 1; i >= 0; i-- {
		if _, ok := seen[string(members[i].Member)]; ok {
			continue
		}
		seen[string(members[i].Member)] = struct{}{}
		filtered = append(filtered, members[i])
	}

	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	now := r.now()
	batch := r.store.NewWriteBatch()
	metaKey := NewBaseMetaKey(key).Encode()

	var added int32
	var statistic uint64

	writeMember := func(version uint64, sm ScoreMember) {
		memberValue := NewBaseDataValue(encodeScorePayload(sm.Score))
		memberValue.SetCtime(now)
		batch.Put(ZSetsMemberCF, NewBaseDataKey(key, version, sm.Member).Encode(), memberValue.Encode())

		scoreValue := NewBaseDataValue(nil)
		scoreValue.SetCtime(now)
		batch.Put(ZSetsScoreCF, NewZSetsScoreKey(key, version, sm.Score, sm.Member).Encode(), scoreValue.Encode())
	}

	metaValue, err := r.loadMeta(key, ZSetsType, nil)
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
			for _, sm := range filtered {
				writeMember(version, sm)
			}
			added = int32(len(filtered))
		} else {
			version := parsedMeta.Version()
			for _, sm := range filtered {
				memberKey := NewBaseDataKey(key, version, sm.Member).Encode()
				memberValue, derr := r.store.Get(ZSetsMemberCF, memberKey, nil)
				switch {
				case derr == nil:
					parsedData, perr := ParseBaseDataValue(memberValue)
					if perr != nil {
						return 0, perr
					}
					oldScore, perr2 := decodeScorePayload(parsedData.UserValue())
					if perr2 != nil {
						return 0, perr2
					}
					if oldScore == sm.Score {
						continue
					}
					batch.Delete(ZSetsScoreCF, NewZSetsScoreKey(key, version, oldScore, sm.Member).Encode())
					writeMember(version, sm)
					statistic++
				case IsNotFound(derr):
					added++
					writeMember(version, sm)
				default:
					return 0, derr
				}
			}
			if added != 0 {
				if !parsedMeta.CheckModifyCount(added) {
					return 0, ErrOverflow
				}
				parsedMeta.ModifyCount(added)
				batch.Put(MetaCF, metaKey, parsedMeta.Encode())
			}
		}
	case IsNotFound(err):
		meta := NewCollectionMetaValue(ZSetsType, uint32(len(filtered)))
		version := meta.UpdateVersion(now)
		meta.SetCtime(now)
		batch.Put(MetaCF, metaKey, meta.Encode())
		for _, sm := range filtered {
			writeMember(version, sm)
		}
		added = int32(len(filtered))
	default:
		return 0, err
	}

	if err := batch.Commit(); err != nil {
		return 0, err
	}
	r.updateSpecificKeyStatistics(ZSetsType, string(key), statistic+uint64(added))
	return added, nil
}

// zsetsLiveMeta fetches and validates key as a live sorted set.
func (r *Redis) zsetsLiveMeta(key []byte, snap *ScopeSnapshot) (*ParsedBaseMetaValue, error) {
	metaValue, err := r.loadMeta(key, ZSetsType, snap.Snapshot())
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
	return parsedMeta, nil
}

// ZScore fetches member's score.
func (r *Redis) ZScore(key, member []byte) (float64, error) {
	snapshot := NewScopeSnapshot(r.store)
	defer snapshot.Close()

	parsedMeta, err := r.zsetsLiveMeta(key, snapshot)
	if err != nil {
		return 0, err
	}

	memberKey := NewBaseDataKey(key, parsedMeta.Version(), member).Encode()
	memberValue, err := r.store.Get(ZSetsMemberCF, memberKey, snapshot.Snapshot())
	if err != nil {
		return 0, err
	}
	parsedData, err := ParseBaseDataValue(memberValue)
	if err != nil {
		return 0, err
	}
	return decodeScorePayload(parsedData.UserValue())
}

// ZCard reports the number of members.
func (r *Redis) ZCard(key []byte) (int32, error) {
	metaValue, err := r.loadMeta(key, ZSetsType, nil)
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

// scanScoreRange runs fn over the score index between min and max, both
// inclusive.
func (r *Redis) scanScoreRange(key []byte, min, max float64, fn func(ParsedZSetsScoreKey) bool) error {
	snapshot := NewScopeSnapshot(r.store)
	defer snapshot.Close()

	parsedMeta, err := r.zsetsLiveMeta(key, snapshot)
	if err != nil {
		return err
	}

	version := parsedMeta.Version()
	prefix := NewZSetsScoreKey(key, version, 0, nil).EncodeSeekKey()
	seekTarget := NewZSetsScoreKey(key, version, min, nil).EncodeScoreSeekKey()

	iter := r.store.NewIterator(ZSetsScoreCF, snapshot.Snapshot())
	defer iter.Close()
	for iter.Seek(seekTarget); iter.Valid() && bytes.HasPrefix(iter.Key(), prefix); iter.Next() {
		parsedKey, kerr := ParseZSetsScoreKey(iter.Key())
		if kerr != nil {
			return kerr
		}
		if parsedKey.Score() > max {
			break
		}
		if !fn(parsedKey) {
			break
		}
	}
	return nil
}

// ZCount reports the number of members with scores inside [min, max].
func (r *Redis) ZCount(key []byte, min, max float64) (int32, error) {
	var count int32
	err := r.scanScoreRange(key, min, max, func(ParsedZSetsScoreKey) bool {
		count++
		return true
	})
	if err != nil {
		if IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

// ZRangebyscore lists members with scores inside [min, max] in
// ascending score order.
func (r *Redis) ZRangebyscore(key []byte, min, max float64) ([]ScoreMember, error) {
	var sms []ScoreMember
	err := r.scanScoreRange(key, min, max, func(parsedKey ParsedZSetsScoreKey) bool {
		sms = append(sms, ScoreMember{Score: parsedKey.Score(), Member: parsedKey.Member()})
		return true
	})
	if err != nil {
		return nil, err
	}
	return sms, nil
}

// ZRange lists the members between the rank positions start and stop,
// both inclusive and possibly negative from the highest rank.
func (r *Redis) ZRange(key []byte, start, stop int32) ([]ScoreMember, error) {
	snapshot := NewScopeSnapshot(r.store)
	defer snapshot.Close()

	parsedMeta, err := r.zsetsLiveMeta(key, snapshot)
	if err != nil {
		return nil, err
	}

	count := parsedMeta.Count()
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

	var sms []ScoreMember
	var rank int32
	prefix := NewZSetsScoreKey(key, parsedMeta.Version(), 0, nil).EncodeSeekKey()
	iter := r.store.NewIterator(ZSetsScoreCF, snapshot.Snapshot())
	defer iter.Close()
	for iter.Seek(prefix); iter.Valid() && rank <= stop && bytes.HasPrefix(iter.Key(), prefix); iter.Next() {
		if rank >= start {
			parsedKey, kerr := ParseZSetsScoreKey(iter.Key())
			if kerr != nil {
				return nil, kerr
			}
			sms = append(sms, ScoreMember{Score: parsedKey.Score(), Member: parsedKey.Member()})
		}
		rank++
	}
	return sms, nil
}

// ZRank reports member's ascending rank, counting through the ordered
// score index.
func (r *Redis) ZRank(key, member []byte) (int32, error) {
	snapshot := NewScopeSnapshot(r.store)
	defer snapshot.Close()

	parsedMeta, err := r.zsetsLiveMeta(key, snapshot)
	if err != nil {
		return -1, err
	}

	var rank int32
	found := false
	prefix := NewZSetsScoreKey(key, parsedMeta.Version(), 0, nil).EncodeSeekKey()
	iter := r.store.NewIterator(ZSetsScoreCF, snapshot.Snapshot())
	defer iter.Close()
	for iter.Seek(prefix); iter.Valid() && bytes.HasPrefix(iter.Key(), prefix); iter.Next() {
		parsedKey, kerr := ParseZSetsScoreKey(iter.Key())
		if kerr != nil {
			return -1, kerr
		}
		if bytes.Equal(parsedKey.Member(), member) {
			found = true
			break
		}
		rank++
	}
	if !found {
		return -1, ErrKeyNotFound
	}
	return rank, nil
}

// ZRem removes members, duplicates ignored. Returns the number removed.
func (r *Redis) ZRem(key []byte, members [][]byte) (int32, error) {
	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	metaValue, err := r.loadMeta(key, ZSetsType, nil)
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

		memberKey := NewBaseDataKey(key, version, member).Encode()
		memberValue, derr := r.store.Get(ZSetsMemberCF, memberKey, nil)
		switch {
		case derr == nil:
			parsedData, perr := ParseBaseDataValue(memberValue)
			if perr != nil {
				return 0, perr
			}
			score, perr2 := decodeScorePayload(parsedData.UserValue())
			if perr2 != nil {
				return 0, perr2
			}
			removed++
			batch.Delete(ZSetsMemberCF, memberKey)
			batch.Delete(ZSetsScoreCF, NewZSetsScoreKey(key, version, score, member).Encode())
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
	r.updateSpecificKeyStatistics(ZSetsType, string(key), uint64(removed))
	return removed, nil
}

// ZRemrangebyrank removes the members between the rank positions start
// and stop, both inclusive. Returns the number removed.
func (r *Redis) ZRemrangebyrank(key []byte, start, stop int32) (int32, error) {
	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	metaValue, err := r.loadMeta(key, ZSetsType, nil)
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

	count := parsedMeta.Count()
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
		return 0, nil
	}

	batch := r.store.NewWriteBatch()
	version := parsedMeta.Version()
	prefix := NewZSetsScoreKey(key, version, 0, nil).EncodeSeekKey()

	var rank, removed int32
	iter := r.store.NewIterator(ZSetsScoreCF, nil)
	for iter.Seek(prefix); iter.Valid() && rank <= stop && bytes.HasPrefix(iter.Key(), prefix); iter.Next() {
		if rank >= start {
			parsedKey, kerr := ParseZSetsScoreKey(iter.Key())
			if kerr != nil {
				iter.Close()
				return 0, kerr
			}
			removed++
			batch.Delete(ZSetsScoreCF, iter.Key())
			batch.Delete(ZSetsMemberCF, NewBaseDataKey(key, version, parsedKey.Member()).Encode())
		}
		rank++
	}
	iter.Close()

	if !parsedMeta.CheckModifyCount(-removed) {
		return 0, ErrOverflow
	}
	parsedMeta.ModifyCount(-removed)
	batch.Put(MetaCF, NewBaseMetaKey(key).Encode(), parsedMeta.Encode())

	if err := batch.Commit(); err != nil {
		return 0, err
	}
	r.updateSpecificKeyStatistics(ZSetsType, string(key), uint64(removed))
	return removed, nil
}

// ZIncrby adds increment to member's score, inserting it at increment
// when absent. Returns the new score.
func (r *Redis) ZIncrby(key, member []byte, increment float64) (float64, error) {
	lock := NewScopeRecordLock(r.lockMgr, key)
	defer lock.Unlock()

	now := r.now()
	batch := r.store.NewWriteBatch()
	metaKey := NewBaseMetaKey(key).Encode()

	var score float64

	writeMember := func(version uint64) {
		memberValue := NewBaseDataValue(encodeScorePayload(score))
		memberValue.SetCtime(now)
		batch.Put(ZSetsMemberCF, NewBaseDataKey(key, version, member).Encode(), memberValue.Encode())

		scoreValue := NewBaseDataValue(nil)
		scoreValue.SetCtime(now)
		batch.Put(ZSetsScoreCF, NewZSetsScoreKey(key, version, score, member).Encode(), scoreValue.Encode())
	}

	metaValue, err := r.loadMeta(key, ZSetsType, nil)
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
			score = increment
			writeMember(version)
		} else {
			version := parsedMeta.Version()
			memberKey := NewBaseDataKey(key, version, member).Encode()
			memberValue, derr := r.store.Get(ZSetsMemberCF, memberKey, nil)
			switch {
			case derr == nil:
				parsedData, perr := ParseBaseDataValue(memberValue)
				if perr != nil {
					return 0, perr
				}
				oldScore, perr2 := decodeScorePayload(parsedData.UserValue())
				if perr2 != nil {
					return 0, perr2
				}
				score = oldScore + increment
				batch.Delete(ZSetsScoreCF, NewZSetsScoreKey(key, version, oldScore, member).Encode())
				writeMember(version)
			case IsNotFound(derr):
				if !parsedMeta.CheckModifyCount(1) {
					return 0, ErrOverflow
				}
				parsedMeta.ModifyCount(1)
				batch.Put(MetaCF, metaKey, parsedMeta.Encode())
				score = increment
				writeMember(version)
			default:
				return 0, derr
			}
		}
	case IsNotFound(err):
		meta := NewCollectionMetaValue(ZSetsType, 1)
		version := meta.UpdateVersion(now)
		meta.SetCtime(now)
		batch.Put(MetaCF, metaKey, meta.Encode())
		score = increment
		writeMember(version)
	default:
		return 0, err
	}

	if err := batch.Commit(); err != nil {
		return 0, err
	}
	r.updateSpecificKeyStatistics(ZSetsType, string(key), 1)
	return score, nil
}
