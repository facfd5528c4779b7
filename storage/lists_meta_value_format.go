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

// List meta layout:
//
//	| type | count | version | left index | right index | reserve | ctime | etime |
//	|  1B  |  8B   |   8B    |     8B     |     8B      |   16B   |  8B   |  8B   |
//
// Live elements occupy the index window [left+1, right-1]; pushes move
// the boundary outward, pops move it inward. The initial boundaries
// leave the whole 64-bit space available in both directions.

const (
	// InitialLeftIndex is 2^63-1; InitialRightIndex is 2^63, so a fresh
	// list has the empty window [2^63, 2^63-1].
	InitialLeftIndex  uint64 = 1<<63 - 1
	InitialRightIndex uint64 = 1 << 63

	listCountLength            = 8
	listsMetaValueSuffixLength = versionLength + 2*listIndexLength + suffixReserveLength + 2*timestampLength
	listsMetaValueLength       = typeLength + listCountLength + listsMetaValueSuffixLength
)

// ListsMetaValue builds a fresh list meta record for encoding.
type ListsMetaValue struct {
	count      uint64
	version    uint64
	leftIndex  uint64
	rightIndex uint64
	reserve    [suffixReserveLength]byte
	ctime      uint64
	etime      uint64
}

func NewListsMetaValue(count uint64) *ListsMetaValue {
	return &ListsMetaValue{
		count:      count,
		leftIndex:  InitialLeftIndex,
		rightIndex: InitialRightIndex,
	}
}

// UpdateVersion advances the version to max(old+1, now) and returns it.
func (v *ListsMetaValue) UpdateVersion(now uint64) uint64 {
	if v.version >= now {
		v.version++
	} else {
		v.version = now
	}
	return v.version
}

func (v *ListsMetaValue) SetCtime(ctime uint64) {
	v.ctime = ctime
}

func (v *ListsMetaValue) Encode() []byte {
	buffer := make([]byte, listsMetaValueLength)

	buffer[0] = byte(ListsType)
	index := typeLength

	EncodeFixed64(buffer[index:], v.count)
	index += listCountLength

	EncodeFixed64(buffer[index:], v.version)
	index += versionLength

	EncodeFixed64(buffer[index:], v.leftIndex)
	index += listIndexLength

	EncodeFixed64(buffer[index:], v.rightIndex)
	index += listIndexLength

	copy(buffer[index:], v.reserve[:])
	index += suffixReserveLength

	EncodeFixed64(buffer[index:], v.ctime)
	index += timestampLength

	EncodeFixed64(buffer[index:], v.etime)
	return buffer
}

// ParsedListsMetaValue is a typed view over an encoded list meta value
// supporting in-place mutation of all fixed-width fields.
type ParsedListsMetaValue struct {
	buf        []byte
	count      uint64
	version    uint64
	leftIndex  uint64
	rightIndex uint64
	ctime      uint64
	etime      uint64
}

func ParseListsMetaValue(buf []byte) (*ParsedListsMetaValue, error) {
	if len(buf) != listsMetaValueLength || DataType(buf[0]) != ListsType {
		return nil, ErrCorruption
	}

	p := &ParsedListsMetaValue{buf: buf}
	index := typeLength
	p.count = DecodeFixed64(buf[index:])
	index += listCountLength
	p.version = DecodeFixed64(buf[index:])
	index += versionLength
	p.leftIndex = DecodeFixed64(buf[index:])
	index += listIndexLength
	p.rightIndex = DecodeFixed64(buf[index:])
	index += listIndexLength + suffixReserveLength
	p.ctime = DecodeFixed64(buf[index:])
	index += timestampLength
	p.etime = DecodeFixed64(buf[index:])
	return p, nil
}

func (p *ParsedListsMetaValue) Count() uint64 {
	return p.count
}

func (p *ParsedListsMetaValue) Version() uint64 {
	return p.version
}

func (p *ParsedListsMetaValue) LeftIndex() uint64 {
	return p.leftIndex
}

func (p *ParsedListsMetaValue) RightIndex() uint64 {
	return p.rightIndex
}

func (p *ParsedListsMetaValue) Ctime() uint64 {
	return p.ctime
}

func (p *ParsedListsMetaValue) Etime() uint64 {
	return p.etime
}

func (p *ParsedListsMetaValue) IsStale(now uint64) bool {
	return p.etime != 0 && p.etime <= now
}

func (p *ParsedListsMetaValue) IsValid(now uint64) bool {
	return !p.IsStale(now) && p.count != 0
}

func (p *ParsedListsMetaValue) IsPermanentSurvival() bool {
	return p.etime == 0
}

func (p *ParsedListsMetaValue) SetCount(count uint64) {
	p.count = count
	EncodeFixed64(p.buf[typeLength:], count)
}

// ModifyCount adjusts count by delta; the caller validates the range.
func (p *ParsedListsMetaValue) ModifyCount(delta int64) {
	p.SetCount(uint64(int64(p.count) + delta))
}

// CheckModifyCount reports whether count+delta stays non-negative.
func (p *ParsedListsMetaValue) CheckModifyCount(delta int64) bool {
	return int64(p.count)+delta >= 0
}

func (p *ParsedListsMetaValue) SetLeftIndex(index uint64) {
	p.leftIndex = index
	EncodeFixed64(p.buf[typeLength+listCountLength+versionLength:], index)
}

// ModifyLeftIndex moves the left boundary outward by delta slots.
func (p *ParsedListsMetaValue) ModifyLeftIndex(delta uint64) {
	p.SetLeftIndex(p.leftIndex - delta)
}

func (p *ParsedListsMetaValue) SetRightIndex(index uint64) {
	p.rightIndex = index
	EncodeFixed64(p.buf[typeLength+listCountLength+versionLength+listIndexLength:], index)
}

// ModifyRightIndex moves the right boundary outward by delta slots.
func (p *ParsedListsMetaValue) ModifyRightIndex(delta uint64) {
	p.SetRightIndex(p.rightIndex + delta)
}

func (p *ParsedListsMetaValue) SetCtime(ctime uint64) {
	p.ctime = ctime
	EncodeFixed64(p.buf[len(p.buf)-2*timestampLength:], ctime)
}

func (p *ParsedListsMetaValue) SetEtime(etime uint64) {
	p.etime = etime
	EncodeFixed64(p.buf[len(p.buf)-timestampLength:], etime)
}

// SetRelativeTimestamp sets the expiration ttl seconds past now.
func (p *ParsedListsMetaValue) SetRelativeTimestamp(now, ttl uint64) {
	p.SetEtime(now + ttl)
}

// UpdateVersion advances the version to max(old+1, now), writes it into
// the buffer and returns it.
func (p *ParsedListsMetaValue) UpdateVersion(now uint64) uint64 {
	if p.version >= now {
		p.version++
	} else {
		p.version = now
	}
	EncodeFixed64(p.buf[typeLength+listCountLength:], p.version)
	return p.version
}

// InitialMetaValue resets the record for reuse by a fresh list: count
// and expiration cleared, index window re-centered, version bumped.
func (p *ParsedListsMetaValue) InitialMetaValue(now uint64) uint64 {
	p.SetCount(0)
	p.SetEtime(0)
	p.SetLeftIndex(InitialLeftIndex)
	p.SetRightIndex(InitialRightIndex)
	return p.UpdateVersion(now)
}

// Encode returns the (possibly mutated) underlying buffer.
func (p *ParsedListsMetaValue) Encode() []byte {
	return p.buf
}
