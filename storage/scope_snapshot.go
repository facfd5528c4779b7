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

import "github.com/bigdaronlee163/pika/kv"

// ScopeSnapshot acquires a read snapshot on construction and releases
// it on Close; every multi-read of one key runs under a single scope so
// meta and data are observed at the same point in time.
type ScopeSnapshot struct {
	store kv.Store
	snap  kv.Snapshot
}

func NewScopeSnapshot(store kv.Store) *ScopeSnapshot {
	return &ScopeSnapshot{store: store, snap: store.NewSnapshot()}
}

func (s *ScopeSnapshot) Snapshot() kv.Snapshot {
	return s.snap
}

func (s *ScopeSnapshot) Close() {
	if s.snap != nil {
		s.store.ReleaseSnapshot(s.snap)
		s.snap = nil
	}
}
