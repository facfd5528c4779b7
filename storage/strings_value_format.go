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

// Strings reuse the meta layout with the payload as the user value, so
// a string occupies a single record in the meta column family.
type (
	StringsValue       = BaseMetaValue
	ParsedStringsValue = ParsedBaseMetaValue
)

func NewStringsValue(value []byte) *StringsValue {
	return NewBaseMetaValue(StringsType, value)
}

func ParseStringsValue(buf []byte) (*ParsedStringsValue, error) {
	p, err := ParseBaseMetaValue(buf)
	if err != nil {
		return nil, err
	}
	if p.DataType() != StringsType {
		return nil, ErrCorruption
	}
	return p, nil
}
