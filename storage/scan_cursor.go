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
	"strconv"
	"sync"

	goART "github.com/plar/go-adaptive-radix-tree"
)

const defaultScanCursorMaxSize = 5000

// scanCursorStore maps opaque numeric scan cursors back to the string
// boundary where the previous page ended. Entries are keyed by
// (type, key, pattern, cursor) in a radix tree so that every cursor of
// one user key shares a prefix and can be invalidated in one sweep.
//
// refer to [https://github.com/plar/go-adaptive-radix-tree]
type scanCursorStore struct {
	mu      sync.Mutex
	tree    goART.Tree
	maxSize int
}

func newScanCursorStore(maxSize int) *scanCursorStore {
	if maxSize <= 0 {
		maxSize = defaultScanCursorMaxSize
	}
	return &scanCursorStore{tree: goART.New(), maxSize: maxSize}
}

func cursorKeyPrefix(dataType DataType, key []byte) []byte {
	prefix := make([]byte, 0, 2+len(key))
	prefix = append(prefix, byte(dataType))
	prefix = append(prefix, key...)
	prefix = append(prefix, 0)
	return prefix
}

func cursorKey(dataType DataType, key []byte, pattern string, cursor int64) []byte {
	k := cursorKeyPrefix(dataType, key)
	k = append(k, pattern...)
	k = append(k, 0)
	return strconv.AppendInt(k, cursor, 10)
}

// StoreScanNextPoint remembers the resume boundary for cursor.
func (c *scanCursorStore) StoreScanNextPoint(dataType DataType, key []byte, pattern string, cursor int64, nextPoint []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// the table is a cache of resume points; dropping it only costs a
	// restarted scan, so overflow resets instead of evicting
	if c.tree.Size() >= c.maxSize {
		c.tree = goART.New()
	}

	point := make([]byte, len(nextPoint))
	copy(point, nextPoint)
	c.tree.Insert(cursorKey(dataType, key, pattern, cursor), point)
}

// GetScanStartPoint fetches the resume boundary stored for cursor.
func (c *scanCursorStore) GetScanStartPoint(dataType DataType, key []byte, pattern string, cursor int64) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, found := c.tree.Search(cursorKey(dataType, key, pattern, cursor))
	if !found {
		return nil, false
	}
	return value.([]byte), true
}

// InvalidateKey forgets every cursor recorded for (dataType, key);
// called when the key is logically deleted so stale cursors cannot
// resume into a reinitialized collection.
func (c *scanCursorStore) InvalidateKey(dataType DataType, key []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stale []goART.Key
	c.tree.ForEachPrefix(cursorKeyPrefix(dataType, key), func(node goART.Node) bool {
		if node.Kind() == goART.Leaf {
			k := make(goART.Key, len(node.Key()))
			copy(k, node.Key())
			stale = append(stale, k)
		}
		return true
	})

	for _, k := range stale {
		c.tree.Delete(k)
	}
}
