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

// DataType is the per-key type tag stored as the first byte of every
// meta value; it is authoritative for which commands a key accepts.
type DataType byte

const (
	StringsType DataType = iota
	HashesType
	SetsType
	ZSetsType
	ListsType
	PKHashesType
	NoneType
)

var dataTypeStrings = [...]string{"string", "hash", "set", "zset", "list", "pkhash", "none"}

func (t DataType) String() string {
	if int(t) >= len(dataTypeStrings) {
		return "unknown"
	}
	return dataTypeStrings[t]
}

// Column families used by the engine. String records keep their payload
// inside the meta record, so they have no data column family.
const (
	MetaCF        kv.ColumnFamily = "meta_cf"
	HashesDataCF  kv.ColumnFamily = "hashes_data_cf"
	SetsDataCF    kv.ColumnFamily = "sets_data_cf"
	ListsDataCF   kv.ColumnFamily = "lists_data_cf"
	ZSetsMemberCF kv.ColumnFamily = "zsets_member_cf"
	ZSetsScoreCF  kv.ColumnFamily = "zsets_score_cf"
	PKHashDataCF  kv.ColumnFamily = "pkhash_data_cf"
)

// ColumnFamilies lists every column family the engine touches, in the
// order persistent stores should create them.
func ColumnFamilies() []kv.ColumnFamily {
	return []kv.ColumnFamily{
		MetaCF,
		HashesDataCF,
		SetsDataCF,
		ListsDataCF,
		ZSetsMemberCF,
		ZSetsScoreCF,
		PKHashDataCF,
	}
}

// FieldValue is one hash field with its value.
type FieldValue struct {
	Field []byte
	Value []byte
}

// FieldValueTTL is one hash field with its value and remaining TTL in
// seconds (-1 when the field carries no expiration).
type FieldValueTTL struct {
	Field []byte
	Value []byte
	TTL   int64
}

// ValueStatus is one multi-get result slot.
type ValueStatus struct {
	Value []byte
	Err   error
}

// ScoreMember is one sorted-set member with its score.
type ScoreMember struct {
	Score  float64
	Member []byte
}

// KeyInfo summarizes a key-space scan for one data type.
type KeyInfo struct {
	Keys        uint64
	Expires     uint64
	AvgTTL      uint64
	InvalidKeys uint64
}
