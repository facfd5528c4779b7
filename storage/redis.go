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
	"github.com/bigdaronlee163/pika/stats"
	"go.uber.org/zap"
)

// Options defines the engine configuration options
type Options struct {
	// DBName labels this engine instance in the statistics tables
	DBName string

	// Logger receives engine lifecycle events; nil disables logging
	Logger *zap.Logger

	// MetaFilterGracePeriod is how many seconds a stale meta record
	// survives compaction, protecting in-flight snapshot readers
	MetaFilterGracePeriod uint64

	// VersionCacheSize bounds the per-compaction meta lookup cache
	VersionCacheSize int

	// ScanCursorMaxSize bounds the scan cursor side table
	ScanCursorMaxSize int
}

var DefaultOptions = Options{
	DBName:                "db0",
	MetaFilterGracePeriod: 60 * 60 * 24,
	VersionCacheSize:      1 << 14,
	ScanCursorMaxSize:     defaultScanCursorMaxSize,
}

// Redis maps the redis data model onto a flat ordered key-value store.
// All commands of one user key are serialized by the record lock for
// writes and snapshot-isolated for reads.
type Redis struct {
	store   kv.Store
	options Options

	lockMgr   *LockMgr
	logger    *zap.Logger
	statistic *stats.Statistic
	keyStats  *stats.KeyStatistics
	cursors   *scanCursorStore
}

// Open wires the engine onto store and registers the compaction filters
// that physically reclaim stale and orphaned records.
func Open(store kv.Store, options Options) (*Redis, error) {
	if options.DBName == "" {
		options.DBName = DefaultOptions.DBName
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.VersionCacheSize <= 0 {
		options.VersionCacheSize = DefaultOptions.VersionCacheSize
	}

	r := &Redis{
		store:     store,
		options:   options,
		lockMgr:   NewLockMgr(),
		logger:    options.Logger,
		statistic: stats.NewStatistic(),
		keyStats:  stats.NewKeyStatistics(0),
		cursors:   newScanCursorStore(options.ScanCursorMaxSize),
	}
	r.registerCompactionFilters()

	r.logger.Info("storage engine opened",
		zap.String("db", options.DBName),
		zap.Uint64("meta_filter_grace_period", options.MetaFilterGracePeriod))
	return r, nil
}

// Close releases the engine and the underlying store.
func (r *Redis) Close() error {
	r.logger.Info("storage engine closed", zap.String("db", r.options.DBName))
	return r.store.Close()
}

// Compact asks the underlying store to rewrite itself through the
// registered filters, reclaiming stale and orphaned records.
func (r *Redis) Compact() error {
	return r.store.Compact()
}

// Statistic exposes the per-table query counters.
func (r *Redis) Statistic() *stats.Statistic {
	return r.statistic
}

// KeyStatistics exposes the per-key modification counters.
func (r *Redis) KeyStatistics() *stats.KeyStatistics {
	return r.keyStats
}

func (r *Redis) now() uint64 {
	return r.store.CurrentTime()
}

// metaValueType reads the authoritative type tag of an encoded meta
// value.
func metaValueType(metaValue []byte) DataType {
	if len(metaValue) == 0 {
		return NoneType
	}
	return DataType(metaValue[0])
}

// expectedMetaValue reports whether the meta record carries the type the
// command expects.
func expectedMetaValue(dataType DataType, metaValue []byte) bool {
	return metaValueType(metaValue) == dataType
}

// expectedStale reports whether a mistyped meta record is already stale,
// in which case the command treats the key as absent instead of failing
// with a type error.
func (r *Redis) expectedStale(metaValue []byte) bool {
	now := r.now()
	switch metaValueType(metaValue) {
	case ListsType:
		parsed, err := ParseListsMetaValue(metaValue)
		if err != nil {
			return false
		}
		return parsed.IsStale(now)
	case StringsType:
		parsed, err := ParseStringsValue(metaValue)
		if err != nil {
			return false
		}
		return parsed.IsStale(now)
	case HashesType, SetsType, ZSetsType, PKHashesType:
		parsed, err := ParseBaseMetaValue(metaValue)
		if err != nil {
			return false
		}
		return parsed.IsStale(now)
	default:
		return false
	}
}

// loadMeta fetches key's meta record expecting dataType. A mistyped but
// stale record coerces to ErrKeyNotFound; a mistyped live record is a
// wrong-type error.
func (r *Redis) loadMeta(key []byte, dataType DataType, snap kv.Snapshot) ([]byte, error) {
	metaKey := NewBaseMetaKey(key).Encode()
	metaValue, err := r.store.Get(MetaCF, metaKey, snap)
	if err != nil {
		return nil, err
	}

	if !expectedMetaValue(dataType, metaValue) {
		if r.expectedStale(metaValue) {
			return nil, ErrKeyNotFound
		}
		return nil, ErrWrongTypeOperation
	}
	return metaValue, nil
}

// updateSpecificKeyStatistics records n modifications against key and
// counts the command as one write query.
func (r *Redis) updateSpecificKeyStatistics(dataType DataType, key string, n uint64) {
	r.keyStats.Add(dataType.String()+"_"+key, n)
	r.statistic.UpdateDBQps(r.options.DBName, "", true)
}
