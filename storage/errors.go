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
	"errors"
	"fmt"

	"github.com/bigdaronlee163/pika/kv"
)

var (
	// ErrKeyNotFound covers both truly absent keys and records that are
	// stale but not yet compacted away.
	ErrKeyNotFound = kv.ErrKeyNotFound

	// ErrStaleKey marks a not-found caused by a passed expiration time;
	// errors.Is(err, ErrKeyNotFound) also holds for it.
	ErrStaleKey = fmt.Errorf("%w: stale", kv.ErrKeyNotFound)

	ErrWrongTypeOperation = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOverflow marks count or 64-bit numeric range violations;
	// errors.Is(err, ErrInvalidArgument) also holds for it.
	ErrOverflow = fmt.Errorf("%w: overflow", ErrInvalidArgument)

	ErrCorruption = errors.New("corrupted record")
)

// IsNotFound reports whether err represents an absent or stale key.
func IsNotFound(err error) bool {
	return errors.Is(err, kv.ErrKeyNotFound)
}
