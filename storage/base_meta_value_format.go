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

import "math"

// Meta value layout for strings, hashes, sets, zsets and pkhashes:
//
//	| type | user value | version | reserve | ctime | etime |
//	|  1B  |            |   8B    |   16B   |  8B   |  8B   |
//
// Collections store their 32-bit element count as the user value;
// strings store the payload itself.

const (
	typeLength          = 1
	countLength         = 4
	suffixReserveLength = 16
	timestampLength     = 8

	baseMetaValueSuffixLength = versionLength + suffixReserveLength + 2*timestampLength
)

// BaseMetaValue builds a fresh meta record for encoding.
type BaseMetaValue struct {
	dataType  DataType
	userValue []byte
	version   uint64
	reserve   [suffixReserveLength]byte
	ctime     uint64
	etime     uint64
}

func NewBaseMetaValue(dataType DataType, userValue []byte) *BaseMetaValue {
	return &BaseMetaValue{dataType: dataType, userValue: userValue}
}

// NewCollectionMetaValue builds a collection meta record carrying count.
func NewCollectionMetaValue(dataType DataType, count uint32) *BaseMetaValue {
	userValue := make([]byte, countLength)
	EncodeFixed32(userValue, count)
	return NewBaseMetaValue(dataType, userValue)
}

// UpdateVersion advances the version to max(old+1, now) and returns it.
func (v *BaseMetaValue) UpdateVersion(now uint64) uint64 {
	if v.version >= now {
		v.version++
	} else {
		v.version = now
	}
	return v.version
}

func (v *BaseMetaValue) Version() uint64 {
	return v.version
}

func (v *BaseMetaValue) SetCtime(ctime uint64) {
	v.ctime = ctime
}

func (v *BaseMetaValue) SetEtime(etime uint64) {
	v.etime = etime
}

// SetRelativeTimestamp sets the expiration ttl seconds past now.
func (v *BaseMetaValue) SetRelativeTimestamp(now, ttl uint64) {
	v.etime = now + ttl
}

func (v *BaseMetaValue) Encode() []byte {
	buffer := make([]byte, typeLength+len(v.userValue)+baseMetaValueSuffixLength)

	buffer[0] = byte(v.dataType)
	index := typeLength

	copy(buffer[index:], v.userValue)
	index += len(v.userValue)

	EncodeFixed64(buffer[index:], v.version)
	index += versionLength

	copy(buffer[index:], v.reserve[:])
	index += suffixReserveLength

	EncodeFixed64(buffer[index:], v.ctime)
	index += timestampLength

	EncodeFixed64(buffer[index:], v.etime)
	return buffer
}

// ParsedBaseMetaValue is a typed view over an encoded meta value. It
// keeps the underlying buffer so the fixed-width fields can be mutated
// in place and the buffer re-put without a re-encode round trip.
type ParsedBaseMetaValue struct {
	buf       []byte
	dataType  DataType
	userValue []byte
	version   uint64
	ctime     uint64
	etime     uint64
	count     int32
}

func ParseBaseMetaValue(buf []byte) (*ParsedBaseMetaValue, error) {
	if len(buf) < typeLength+baseMetaValueSuffixLength {
		return nil, ErrCorruption
	}

	p := &ParsedBaseMetaValue{buf: buf}
	p.dataType = DataType(buf[0])
	p.userValue = buf[typeLength : len(buf)-baseMetaValueSuffixLength]
	p.version = DecodeFixed64(buf[len(buf)-baseMetaValueSuffixLength:])
	p.ctime = DecodeFixed64(buf[len(buf)-2*timestampLength:])
	p.etime = DecodeFixed64(buf[len(buf)-timestampLength:])
	if len(p.userValue) >= countLength {
		p.count = int32(DecodeFixed32(p.userValue))
	}
	return p, nil
}

func (p *ParsedBaseMetaValue) DataType() DataType {
	return p.dataType
}

func (p *ParsedBaseMetaValue) UserValue() []byte {
	return p.userValue
}

func (p *ParsedBaseMetaValue) Version() uint64 {
	return p.version
}

func (p *ParsedBaseMetaValue) Ctime() uint64 {
	return p.ctime
}

func (p *ParsedBaseMetaValue) Etime() uint64 {
	return p.etime
}

func (p *ParsedBaseMetaValue) Count() int32 {
	return p.count
}

// IsStale reports whether the record's expiration has passed.
func (p *ParsedBaseMetaValue) IsStale(now uint64) bool {
	return p.etime != 0 && p.etime <= now
}

// IsValid reports whether the record is live and non-empty.
func (p *ParsedBaseMetaValue) IsValid(now uint64) bool {
	return !p.IsStale(now) && p.count != 0
}

// IsPermanentSurvival reports whether the record carries no expiration.
func (p *ParsedBaseMetaValue) IsPermanentSurvival() bool {
	return p.etime == 0
}

func (p *ParsedBaseMetaValue) SetCount(count int32) {
	p.count = count
	EncodeFixed32(p.buf[typeLength:], uint32(count))
}

// CheckModifyCount reports whether count+delta stays within [0, 2^31-1].
func (p *ParsedBaseMetaValue) CheckModifyCount(delta int32) bool {
	count := int64(p.count) + int64(delta)
	return count >= 0 && count <= math.MaxInt32
}

func (p *ParsedBaseMetaValue) ModifyCount(delta int32) {
	p.SetCount(p.count + delta)
}

func (p *ParsedBaseMetaValue) SetCtime(ctime uint64) {
	p.ctime = ctime
	EncodeFixed64(p.buf[len(p.buf)-2*timestampLength:], ctime)
}

func (p *ParsedBaseMetaValue) SetEtime(etime uint64) {
	p.etime = etime
	EncodeFixed64(p.buf[len(p.buf)-timestampLength:], etime)
}

// SetRelativeTimestamp sets the expiration ttl seconds past now.
func (p *ParsedBaseMetaValue) SetRelativeTimestamp(now, ttl uint64) {
	p.SetEtime(now + ttl)
}

// UpdateVersion advances the version to max(old+1, now), writes it into
// the buffer and returns it.
func (p *ParsedBaseMetaValue) UpdateVersion(now uint64) uint64 {
	if p.version >= now {
		p.version++
	} else {
		p.version = now
	}
	EncodeFixed64(p.buf[len(p.buf)-baseMetaValueSuffixLength:], p.version)
	return p.version
}

// InitialMetaValue resets the record for reuse by a fresh collection:
// count and expiration cleared, version bumped. Returns the new version.
func (p *ParsedBaseMetaValue) InitialMetaValue(now uint64) uint64 {
	p.SetCount(0)
	p.SetEtime(0)
	return p.UpdateVersion(now)
}

// Encode returns the (possibly mutated) underlying buffer.
func (p *ParsedBaseMetaValue) Encode() []byte {
	return p.buf
}
