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
	"github.com/bigdaronlee163/pika/kv"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Compaction filters physically reclaim what the command layer only
// deletes logically: stale meta records past their grace period, and
// data records orphaned by a version bump or their own expiration.

// metaFilterFactory drops meta records whose expiration passed more
// than gracePeriod seconds ago. The grace window keeps records visible
// to snapshots opened shortly before the compaction.
type metaFilterFactory struct {
	gracePeriod uint64
}

type metaFilter struct {
	gracePeriod uint64
}

func (f *metaFilterFactory) NewFilter() kv.CompactionFilter {
	return &metaFilter{gracePeriod: f.gracePeriod}
}

func (f *metaFilter) ShouldDrop(_ kv.Reader, _, value []byte, now uint64) bool {
	var etime uint64
	switch metaValueType(value) {
	case ListsType:
		parsed, err := ParseListsMetaValue(value)
		if err != nil {
			return false
		}
		etime = parsed.Etime()
	case StringsType, HashesType, SetsType, ZSetsType, PKHashesType:
		parsed, err := ParseBaseMetaValue(value)
		if err != nil {
			return false
		}
		etime = parsed.Etime()
	default:
		return false
	}

	return etime != 0 && etime < now && now-etime > f.gracePeriod
}

// parentMeta is one resolved meta record in the version cache.
type parentMeta struct {
	found   bool
	stale   bool
	version uint64
}

// versionCache resolves the parent meta of data records through a
// bounded LRU, populated from meta reads during the compaction run.
//
// refer to [https://github.com/hashicorp/golang-lru]
type versionCache struct {
	dataType DataType
	cache    *lru.Cache[string, parentMeta]
}

func newVersionCache(dataType DataType, size int) *versionCache {
	cache, _ := lru.New[string, parentMeta](size)
	return &versionCache{dataType: dataType, cache: cache}
}

func (vc *versionCache) lookup(r kv.Reader, userKey []byte, now uint64) parentMeta {
	if meta, ok := vc.cache.Get(string(userKey)); ok {
		return meta
	}

	var meta parentMeta
	metaValue, err := r.Get(MetaCF, NewBaseMetaKey(userKey).Encode())
	if err == nil && expectedMetaValue(vc.dataType, metaValue) {
		switch vc.dataType {
		case ListsType:
			if parsed, perr := ParseListsMetaValue(metaValue); perr == nil {
				meta = parentMeta{found: true, stale: parsed.IsStale(now), version: parsed.Version()}
			}
		default:
			if parsed, perr := ParseBaseMetaValue(metaValue); perr == nil {
				meta = parentMeta{found: true, stale: parsed.IsStale(now), version: parsed.Version()}
			}
		}
	}

	vc.cache.Add(string(userKey), meta)
	return meta
}

// baseDataFilterFactory drops element records whose parent meta is
// absent or stale, whose embedded version no longer matches the parent,
// or whose own expiration passed (pkhash fields).
type baseDataFilterFactory struct {
	dataType  DataType
	cacheSize int
}

type baseDataFilter struct {
	versions *versionCache
}

func (f *baseDataFilterFactory) NewFilter() kv.CompactionFilter {
	return &baseDataFilter{versions: newVersionCache(f.dataType, f.cacheSize)}
}

func (f *baseDataFilter) ShouldDrop(r kv.Reader, key, value []byte, now uint64) bool {
	parsedKey, err := ParseBaseDataKey(key)
	if err != nil {
		return false
	}

	meta := f.versions.lookup(r, parsedKey.Key(), now)
	if !meta.found || meta.stale || meta.version != parsedKey.Version() {
		return true
	}

	parsedValue, err := ParseBaseDataValue(value)
	if err != nil {
		return false
	}
	return parsedValue.IsStale(now)
}

// zsetsScoreFilterFactory applies the data predicate to score-index
// entries and additionally drops entries whose member record is gone.
type zsetsScoreFilterFactory struct {
	cacheSize int
}

type zsetsScoreFilter struct {
	versions *versionCache
}

func (f *zsetsScoreFilterFactory) NewFilter() kv.CompactionFilter {
	return &zsetsScoreFilter{versions: newVersionCache(ZSetsType, f.cacheSize)}
}

func (f *zsetsScoreFilter) ShouldDrop(r kv.Reader, key, _ []byte, now uint64) bool {
	parsedKey, err := ParseZSetsScoreKey(key)
	if err != nil {
		return false
	}

	meta := f.versions.lookup(r, parsedKey.Key(), now)
	if !meta.found || meta.stale || meta.version != parsedKey.Version() {
		return true
	}

	memberKey := NewBaseDataKey(parsedKey.Key(), parsedKey.Version(), parsedKey.Member())
	if _, err := r.Get(ZSetsMemberCF, memberKey.Encode()); err != nil {
		return true
	}
	return false
}

func (r *Redis) registerCompactionFilters() {
	cacheSize := r.options.VersionCacheSize

	r.store.RegisterCompactionFilter(MetaCF, &metaFilterFactory{gracePeriod: r.options.MetaFilterGracePeriod})
	r.store.RegisterCompactionFilter(HashesDataCF, &baseDataFilterFactory{dataType: HashesType, cacheSize: cacheSize})
	r.store.RegisterCompactionFilter(SetsDataCF, &baseDataFilterFactory{dataType: SetsType, cacheSize: cacheSize})
	r.store.RegisterCompactionFilter(PKHashDataCF, &baseDataFilterFactory{dataType: PKHashesType, cacheSize: cacheSize})
	r.store.RegisterCompactionFilter(ZSetsMemberCF, &baseDataFilterFactory{dataType: ZSetsType, cacheSize: cacheSize})
	r.store.RegisterCompactionFilter(ZSetsScoreCF, &zsetsScoreFilterFactory{cacheSize: cacheSize})
	r.store.RegisterCompactionFilter(ListsDataCF, &listsDataFilterFactory{cacheSize: cacheSize})
}

// listsDataFilterFactory drops list element records by the same parent
// predicate, parsing the 8-byte index suffix key layout.
type listsDataFilterFactory struct {
	cacheSize int
}

type listsDataFilter struct {
	versions *versionCache
}

func (f *listsDataFilterFactory) NewFilter() kv.CompactionFilter {
	return &listsDataFilter{versions: newVersionCache(ListsType, f.cacheSize)}
}

func (f *listsDataFilter) ShouldDrop(r kv.Reader, key, _ []byte, now uint64) bool {
	parsedKey, err := ParseListsDataKey(key)
	if err != nil {
		return false
	}

	meta := f.versions.lookup(r, parsedKey.Key(), now)
	return !meta.found || meta.stale || meta.version != parsedKey.Version()
}
