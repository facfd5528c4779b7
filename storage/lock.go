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
	"hash/fnv"
	"sort"
	"sync"
)

const lockShardCount = 32

// LockMgr hands out one exclusive lock per user key. Entries are
// refcounted and removed once the last holder or waiter is gone, so the
// table stays proportional to the number of contended keys.
type LockMgr struct {
	shards [lockShardCount]lockShard
}

type lockShard struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewLockMgr() *LockMgr {
	mgr := &LockMgr{}
	for i := range mgr.shards {
		mgr.shards[i].entries = make(map[string]*lockEntry)
	}
	return mgr
}

func (mgr *LockMgr) shard(key []byte) *lockShard {
	h := fnv.New32a()
	_, _ = h.Write(key)
	return &mgr.shards[h.Sum32()%lockShardCount]
}

// Lock blocks until no other holder of key exists.
// Re-acquiring a held key from the same goroutine deadlocks; command
// paths must acquire each key at most once.
func (mgr *LockMgr) Lock(key []byte) {
	shard := mgr.shard(key)

	shard.mu.Lock()
	entry, ok := shard.entries[string(key)]
	if !ok {
		entry = &lockEntry{}
		shard.entries[string(key)] = entry
	}
	entry.refs++
	shard.mu.Unlock()

	entry.mu.Lock()
}

// Unlock releases key and drops the entry once nobody waits on it.
func (mgr *LockMgr) Unlock(key []byte) {
	shard := mgr.shard(key)

	shard.mu.Lock()
	entry, ok := shard.entries[string(key)]
	if !ok {
		shard.mu.Unlock()
		return
	}
	entry.refs--
	if entry.refs == 0 {
		delete(shard.entries, string(key))
	}
	shard.mu.Unlock()

	entry.mu.Unlock()
}

// ScopeRecordLock holds one key's record lock for the span of a
// read-modify-write; release with a deferred Unlock on every exit path.
type ScopeRecordLock struct {
	mgr *LockMgr
	key []byte
}

func NewScopeRecordLock(mgr *LockMgr, key []byte) *ScopeRecordLock {
	mgr.Lock(key)
	return &ScopeRecordLock{mgr: mgr, key: key}
}

func (l *ScopeRecordLock) Unlock() {
	if l.mgr != nil {
		l.mgr.Unlock(l.key)
		l.mgr = nil
	}
}

// MultiScopeRecordLock locks several keys at once; keys are deduped and
// acquired in lexicographic order to rule out deadlocks between
// concurrent multi-key commands.
type MultiScopeRecordLock struct {
	mgr  *LockMgr
	keys [][]byte
}

func NewMultiScopeRecordLock(mgr *LockMgr, keys [][]byte) *MultiScopeRecordLock {
	sorted := make([][]byte, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := seen[string(key)]; ok {
			continue
		}
		seen[string(key)] = struct{}{}
		sorted = append(sorted, key)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i], sorted[j]) < 0
	})

	for _, key := range sorted {
		mgr.Lock(key)
	}
	return &MultiScopeRecordLock{mgr: mgr, keys: sorted}
}

func (l *MultiScopeRecordLock) Unlock() {
	if l.mgr == nil {
		return
	}
	for i := len(l.keys) - 1; i >= 0; i-- {
		l.mgr.Unlock(l.keys[i])
	}
	l.mgr = nil
}
