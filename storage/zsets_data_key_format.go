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

const scoreLength = 8

// ZSetsScoreKey addresses the score-ordered index entry of one member:
//
//	| key_len (4B BE) | user key | version (8B BE) | score (8B) | member |
//
// The score bytes are sign-flipped IEEE-754 big-endian, so iterating the
// score column family yields members in ascending numeric score order.
type ZSetsScoreKey struct {
	key     []byte
	version uint64
	score   float64
	member  []byte
}

func NewZSetsScoreKey(key []byte, version uint64, score float64, member []byte) ZSetsScoreKey {
	return ZSetsScoreKey{key: key, version: version, score: score, member: member}
}

func (sk ZSetsScoreKey) Encode() []byte {
	buffer := make([]byte, keyLenLength+len(sk.key)+versionLength+scoreLength+len(sk.member))

	index := 0
	encodeBigFixed32(buffer[index:], uint32(len(sk.key)))
	index += keyLenLength

	copy(buffer[index:], sk.key)
	index += len(sk.key)

	encodeBigFixed64(buffer[index:], sk.version)
	index += versionLength

	EncodeScore(buffer[index:], sk.score)
	index += scoreLength

	copy(buffer[index:], sk.member)
	return buffer
}

// EncodeSeekKey builds the (key, version) prefix for score iteration.
func (sk ZSetsScoreKey) EncodeSeekKey() []byte {
	return BaseDataKey{key: sk.key, version: sk.version}.EncodeSeekKey()
}

// EncodeScoreSeekKey builds the (key, version, score) prefix, used to
// start a range-by-score scan at the lower bound.
func (sk ZSetsScoreKey) EncodeScoreSeekKey() []byte {
	buffer := make([]byte, keyLenLength+len(sk.key)+versionLength+scoreLength)

	index := 0
	encodeBigFixed32(buffer[index:], uint32(len(sk.key)))
	index += keyLenLength

	copy(buffer[index:], sk.key)
	index += len(sk.key)

	encodeBigFixed64(buffer[index:], sk.version)
	index += versionLength

	EncodeScore(buffer[index:], sk.score)
	return buffer
}

// ParsedZSetsScoreKey decodes an encoded score key.
type ParsedZSetsScoreKey struct {
	key     []byte
	version uint64
	score   float64
	member  []byte
}

func ParseZSetsScoreKey(raw []byte) (ParsedZSetsScoreKey, error) {
	if len(raw) < keyLenLength {
		return ParsedZSetsScoreKey{}, ErrCorruption
	}
	size := int(decodeBigFixed32(raw))
	if len(raw) < keyLenLength+size+versionLength+scoreLength {
		return ParsedZSetsScoreKey{}, ErrCorruption
	}

	index := keyLenLength
	key := raw[index : index+size]
	index += size
	version := decodeBigFixed64(raw[index:])
	index += versionLength
	score := DecodeScore(raw[index:])
	index += scoreLength

	return ParsedZSetsScoreKey{key: key, version: version, score: score, member: raw[index:]}, nil
}

func (pk ParsedZSetsScoreKey) Key() []byte {
	return pk.key
}

func (pk ParsedZSetsScoreKey) Version() uint64 {
	return pk.version
}

func (pk ParsedZSetsScoreKey) Score() float64 {
	return pk.score
}

func (pk ParsedZSetsScoreKey) Member() []byte {
	return pk.member
}
