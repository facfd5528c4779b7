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
	"encoding/binary"
	"math"
)

// Encoded values use little-endian fixed-width integers; composite keys
// use big-endian so that byte order equals numeric order.

func EncodeFixed32(dst []byte, v uint32) {
	binary.LittleEndian.PutUint32(dst, v)
}

func DecodeFixed32(src []byte) uint32 {
	return binary.LittleEndian.Uint32(src)
}

func EncodeFixed64(dst []byte, v uint64) {
	binary.LittleEndian.PutUint64(dst, v)
}

func DecodeFixed64(src []byte) uint64 {
	return binary.LittleEndian.Uint64(src)
}

func encodeBigFixed32(dst []byte, v uint32) {
	binary.BigEndian.PutUint32(dst, v)
}

func decodeBigFixed32(src []byte) uint32 {
	return binary.BigEndian.Uint32(src)
}

func encodeBigFixed64(dst []byte, v uint64) {
	binary.BigEndian.PutUint64(dst, v)
}

func decodeBigFixed64(src []byte) uint64 {
	return binary.BigEndian.Uint64(src)
}

// EncodeScore writes score as 8 sign-flipped IEEE-754 big-endian bytes,
// so lexicographic key order equals numeric score order, negatives
// included.
func EncodeScore(dst []byte, score float64) {
	bits := math.Float64bits(score)
	if bits&(1<<63) == 0 {
		bits ^= 1 << 63
	} else {
		bits = ^bits
	}
	binary.BigEndian.PutUint64(dst, bits)
}

// DecodeScore reverses EncodeScore.
func DecodeScore(src []byte) float64 {
	bits := binary.BigEndian.Uint64(src)
	if bits&(1<<63) != 0 {
		bits ^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits)
}
