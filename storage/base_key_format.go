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

// Meta keys and data keys share one composite builder:
//
//	meta key:  | key_len (4B BE) | user key |
//	data key:  | key_len (4B BE) | user key | version (8B BE) | suffix |
//
// Big-endian widths keep every entry of one (user key, version) pair
// contiguous and sorted by suffix, which is what prefix iteration
// relies on.

const (
	keyLenLength  = 4
	versionLength = 8
)

// BaseMetaKey addresses the per-key meta record in the meta column
// family.
type BaseMetaKey struct {
	key []byte
}

func NewBaseMetaKey(key []byte) BaseMetaKey {
	return BaseMetaKey{key: key}
}

func (mk BaseMetaKey) Encode() []byte {
	buffer := make([]byte, keyLenLength+len(mk.key))
	encodeBigFixed32(buffer, uint32(len(mk.key)))
	copy(buffer[keyLenLength:], mk.key)
	return buffer
}

// ParsedBaseMetaKey decodes an encoded meta key back into the user key.
type ParsedBaseMetaKey struct {
	key []byte
}

func ParseBaseMetaKey(raw []byte) (ParsedBaseMetaKey, error) {
	if len(raw) < keyLenLength {
		return ParsedBaseMetaKey{}, ErrCorruption
	}
	size := int(decodeBigFixed32(raw))
	if len(raw) < keyLenLength+size {
		return ParsedBaseMetaKey{}, ErrCorruption
	}
	return ParsedBaseMetaKey{key: raw[keyLenLength : keyLenLength+size]}, nil
}

func (pk ParsedBaseMetaKey) Key() []byte {
	return pk.key
}

// BaseDataKey addresses one element record: a hash or pkhash field, a
// set member, or a sorted-set member.
type BaseDataKey struct {
	key     []byte
	version uint64
	field   []byte
}

// HashesDataKey and ZSetsMemberKey share the BaseDataKey layout.
type (
	HashesDataKey  = BaseDataKey
	ZSetsMemberKey = BaseDataKey
)

func NewBaseDataKey(key []byte, version uint64, field []byte) BaseDataKey {
	return BaseDataKey{key: key, version: version, field: field}
}

func (dk BaseDataKey) Encode() []byte {
	buffer := make([]byte, keyLenLength+len(dk.key)+versionLength+len(dk.field))

	index := 0
	encodeBigFixed32(buffer[index:], uint32(len(dk.key)))
	index += keyLenLength

	copy(buffer[index:], dk.key)
	index += len(dk.key)

	encodeBigFixed64(buffer[index:], dk.version)
	index += versionLength

	copy(buffer[index:], dk.field)
	return buffer
}

// EncodeSeekKey builds the prefix addressing every element of
// (key, version), used as the iterator seek target.
func (dk BaseDataKey) EncodeSeekKey() []byte {
	buffer := make([]byte, keyLenLength+len(dk.key)+versionLength)

	index := 0
	encodeBigFixed32(buffer[index:], uint32(len(dk.key)))
	index += keyLenLength

	copy(buffer[index:], dk.key)
	index += len(dk.key)

	encodeBigFixed64(buffer[index:], dk.version)
	return buffer
}

// ParsedBaseDataKey decodes an encoded data key.
type ParsedBaseDataKey struct {
	key     []byte
	version uint64
	field   []byte
}

type ParsedHashesDataKey = ParsedBaseDataKey

func ParseBaseDataKey(raw []byte) (ParsedBaseDataKey, error) {
	if len(raw) < keyLenLength {
		return ParsedBaseDataKey{}, ErrCorruption
	}
	size := int(decodeBigFixed32(raw))
	if len(raw) < keyLenLength+size+versionLength {
		return ParsedBaseDataKey{}, ErrCorruption
	}

	index := keyLenLength
	key := raw[index : index+size]
	index += size
	version := decodeBigFixed64(raw[index:])
	index += versionLength

	return ParsedBaseDataKey{key: key, version: version, field: raw[index:]}, nil
}

func (pk ParsedBaseDataKey) Key() []byte {
	return pk.key
}

func (pk ParsedBaseDataKey) Version() uint64 {
	return pk.version
}

func (pk ParsedBaseDataKey) Field() []byte {
	return pk.field
}
