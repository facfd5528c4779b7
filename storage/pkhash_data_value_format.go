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

// PKHash fields share the element-record wire shape; the etime suffix is
// the per-field expiration the PKH commands read and mutate in place.
type (
	PKHashDataValue       = BaseDataValue
	ParsedPKHashDataValue = ParsedBaseDataValue
)

func NewPKHashDataValue(userValue []byte) *PKHashDataValue {
	return NewBaseDataValue(userValue)
}

func ParsePKHashDataValue(buf []byte) (*ParsedPKHashDataValue, error) {
	return ParseBaseDataValue(buf)
}
