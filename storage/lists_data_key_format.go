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

const listIndexLength = 8

// ListsDataKey addresses one list element by its 64-bit slot index:
//
//	| key_len (4B BE) | user key | version (8B BE) | index (8B BE) |
type ListsDataKey struct {
	key     []byte
	version uint64
	index   uint64
}

func NewListsDataKey(key []byte, version, index uint64) ListsDataKey {
	return ListsDataKey{key: key, version: version, index: index}
}

func (dk ListsDataKey) Encode() []byte {
	buffer := make([]byte, keyLenLength+len(dk.key)+versionLength+listIndexLength)

	index := 0
	encodeBigFixed32(buffer[index:], uint32(len(dk.key)))
	index += keyLenLength

	copy(buffer[index:], dk.key)
	index += len(dk.key)

	encodeBigFixed64(buffer[index:], dk.version)
	index += versionLength

	encodeBigFixed64(buffer[index:], dk.index)
	return buffer
}

// EncodeSeekKey builds the (key, version) prefix for list iteration.
func (dk ListsDataKey) EncodeSeekKey() []byte {
	return BaseDataKey{key: dk.key, version: dk.version}.EncodeSeekKey()
}

// ParsedListsDataKey decodes an encoded list data key.
type ParsedListsDataKey struct {
	key     []byte
	version uint64
	index   uint64
}

func ParseListsDataKey(raw []byte) (ParsedListsDataKey, error) {
	if len(raw) < keyLenLength {
		return ParsedListsDataKey{}, ErrCorruption
	}
	size := int(decodeBigFixed32(raw))
	if len(raw) != keyLenLength+size+versionLength+listIndexLength {
		return ParsedListsDataKey{}, ErrCorruption
	}

	index := keyLenLength
	key := raw[index : index+size]
	index += size
	version := decodeBigFixed64(raw[index:])
	index += versionLength

	return ParsedListsDataKey{key: key, version: version, index: decodeBigFixed64(raw[index:])}, nil
}

func (pk ParsedListsDataKey) Key() []byte {
	return pk.key
}

func (pk ParsedListsDataKey) Version() uint64 {
	return pk.version
}

func (pk ParsedListsDataKey) Index() uint64 {
	return pk.index
}
