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

package utils

import (
	"math"
	"strconv"
)

// StrToInt64 parses value as a canonical base-10 signed integer.
// Leading or trailing junk, empty input and 64-bit overflow are rejected.
func StrToInt64(value []byte) (int64, bool) {
	if len(value) == 0 {
		return 0, false
	}

	n, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return 0, false
	}
	// reject forms ParseInt accepts but that are not canonical, such as
	// a leading '+' or leading zeros
	if string(Int64ToStr(n)) != string(value) {
		return 0, false
	}
	return n, true
}

// StrToFloat64 parses value as a finite float; NaN and Inf are rejected.
func StrToFloat64(value []byte) (float64, bool) {
	if len(value) == 0 {
		return 0, false
	}

	f, err := strconv.ParseFloat(string(value), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Int64ToStr formats n the way the command surface returns integers.
func Int64ToStr(n int64) []byte {
	return strconv.AppendInt(nil, n, 10)
}

// Float64ToStr formats f with the shortest representation that
// round-trips, matching the reply format for float results.
func Float64ToStr(f float64) []byte {
	return strconv.AppendFloat(nil, f, 'f', -1, 64)
}
