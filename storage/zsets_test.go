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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_ZAddZScore(t *testing.T) {
	r, _ := newTestEngine(t)

	n, err := r.ZAdd([]byte("z"), []ScoreMember{
		{Score: 1, Member: []byte("a")},
		{Score: 2, Member: []byte("b")},
	})
	assert.NoError(t, err)
	assert.Equal(t, int32(2), n)

	score, err := r.ZScore([]byte("z"), []byte("a"))
	assert.NoError(t, err)
	assert.Equal(t, float64(1), score)

	_, err = r.ZScore([]byte("z"), []byte("missing"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedis_ZAddRescore(t *testing.T) {
	r, _ := newTestEngine(t)

	n, err := r.ZAdd([]byte("z"), []ScoreMember{{Score: 1, Member: []byte("m")}})
	assert.NoError(t, err)
	assert.Equal(t, int32(1), n)

	// re-scoring is an update, not an addition
	n, err = r.ZAdd([]byte("z"), []ScoreMember{{Score: 2, Member: []byte("m")}})
	assert.NoError(t, err)
	assert.Equal(t, int32(0), n)

	card, err := r.ZCard([]byte("z"))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), card)

	score, err := r.ZScore([]byte("z"), []byte("m"))
	assert.NoError(t, err)
	assert.Equal(t, float64(2), score)

	// exactly one score-index entry survives the re-score
	sms, err := r.ZRangebyscore([]byte("z"), -100, 100)
	assert.NoError(t, err)
	require.Len(t, sms, 1)
	assert.Equal(t, float64(2), sms[0].Score)
	assert.Equal(t, []byte("m"), sms[0].Member)
}

func TestRedis_ZRangebyscore(t *testing.T) {
	r, _ := newTestEngine(t)

	_, err := r.ZAdd([]byte("z"), []ScoreMember{
		{Score: 1, Member: []byte("a")},
		{Score: 2, Member: []byte("b")},
		{Score: 3, Member: []byte("c")},
	})
	require.NoError(t, err)

	sms, err := r.ZRangebyscore([]byte("z"), 2, 3)
	assert.NoError(t, err)
	require.Len(t, sms, 2)
	assert.Equal(t, []byte("b"), sms[0].Member)
	assert.Equal(t, []byte("c"), sms[1].Member)
}

func TestRedis_ZRangebyscoreNegativeScores(t *testing.T) {
	r, _ := newTestEngine(t)

	_, err := r.ZAdd([]byte("z"), []ScoreMember{
		{Score: -10, Member: []byte("neg")},
		{Score: 0, Member: []byte("zero")},
		{Score: 2.5, Member: []byte("pos")},
	})
	require.NoError(t, err)

	// sign-flipped score encoding keeps numeric order across zero
	sms, err := r.ZRangebyscore([]byte("z"), -100, 100)
	assert.NoError(t, err)
	require.Len(t, sms, 3)
	assert.Equal(t, []byte("neg"), sms[0].Member)
	assert.Equal(t, []byte("zero"), sms[1].Member)
	assert.Equal(t, []byte("pos"), sms[2].Member)

	sms, err = r.ZRangebyscore([]byte("z"), -100, -1)
	assert.NoError(t, err)
	require.Len(t, sms, 1)
	assert.Equal(t, []byte("neg"), sms[0].Member)
}

func TestRedis_ZRangeZRank(t *testing.T) {
	r, _ := newTestEngine(t)

	_, err := r.ZAdd([]byte("z"), []ScoreMember{
		{Score: 3, Member: []byte("c")},
		{Score: 1, Member: []byte("a")},
		{Score: 2, Member: []byte("b")},
	})
	require.NoError(t, err)

	sms, err := r.ZRange([]byte("z"), 0, -1)
	assert.NoError(t, err)
	require.Len(t, sms, 3)
	assert.Equal(t, []byte("a"), sms[0].Member)
	assert.Equal(t, []byte("c"), sms[2].Member)

	sms, err = r.ZRange([]byte("z"), 1, 1)
	assert.NoError(t, err)
	require.Len(t, sms, 1)
	assert.Equal(t, []byte("b"), sms[0].Member)

	rank, err := r.ZRank([]byte("z"), []byte("b"))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), rank)

	_, err = r.ZRank([]byte("z"), []byte("missing"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedis_ZCount(t *testing.T) {
	r, _ := newTestEngine(t)

	_, err := r.ZAdd([]byte("z"), []ScoreMember{
		{Score: 1, Member: []byte("a")},
		{Score: 2, Member: []byte("b")},
		{Score: 3, Member: []byte("c")},
	})
	require.NoError(t, err)

	n, err := r.ZCount([]byte("z"), 2, 3)
	assert.NoError(t, err)
	assert.Equal(t, int32(2), n)

	n, err = r.ZCount([]byte("missing"), 0, 10)
	assert.NoError(t, err)
	assert.Equal(t, int32(0), n)
}

func TestRedis_ZRem(t *testing.T) {
	r, _ := newTestEngine(t)

	_, err := r.ZAdd([]byte("z"), []ScoreMember{
		{Score: 1, Member: []byte("a")},
		{Score: 2, Member: []byte("b")},
	})
	require.NoError(t, err)

	n, err := r.ZRem([]byte("z"), [][]byte{[]byte("a"), []byte("missing")})
	assert.NoError(t, err)
	assert.Equal(t, int32(1), n)

	card, err := r.ZCard([]byte("z"))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), card)

	// both column families forget the removed member
	sms, err := r.ZRangebyscore([]byte("z"), 0, 10)
	assert.NoError(t, err)
	require.Len(t, sms, 1)
	assert.Equal(t, []byte("b"), sms[0].Member)
}

func TestRedis_ZRemrangebyrank(t *testing.T) {
	r, _ := newTestEngine(t)

	_, err := r.ZAdd([]byte("z"), []ScoreMember{
		{Score: 1, Member: []byte("a")},
		{Score: 2, Member: []byte("b")},
		{Score: 3, Member: []byte("c")},
		{Score: 4, Member: []byte("d")},
	})
	require.NoError(t, err)

	n, err := r.ZRemrangebyrank([]byte("z"), 0, 1)
	assert.NoError(t, err)
	assert.Equal(t, int32(2), n)

	sms, err := r.ZRange([]byte("z"), 0, -1)
	assert.NoError(t, err)
	require.Len(t, sms, 2)
	assert.Equal(t, []byte("c"), sms[0].Member)
	assert.Equal(t, []byte("d"), sms[1].Member)
}

func TestRedis_ZIncrby(t *testing.T) {
	r, _ := newTestEngine(t)

	score, err := r.ZIncrby([]byte("z"), []byte("m"), 2.5)
	assert.NoError(t, err)
	assert.Equal(t, 2.5, score)

	score, err = r.ZIncrby([]byte("z"), []byte("m"), -1)
	assert.NoError(t, err)
	assert.Equal(t, 1.5, score)

	card, err := r.ZCard([]byte("z"))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), card)

	sms, err := r.ZRangebyscore([]byte("z"), 0, 10)
	assert.NoError(t, err)
	require.Len(t, sms, 1)
	assert.Equal(t, 1.5, sms[0].Score)
}
