package folds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Partition(t *testing.T) {
	for _, tc := range []struct{ n, k int }{
		{10, 2}, {10, 5}, {10, 10}, {101, 5}, {7, 3},
	} {
		a, err := Generate(tc.n, tc.k, Options{Seed: 1})
		require.NoError(t, err)

		assert.Equal(t, tc.k, a.K())
		assert.Equal(t, tc.n, a.Len())

		// Every fold nonempty, sizes near-equal.
		counts := a.Counts()
		require.Len(t, counts, tc.k)
		min, max := counts[0], counts[0]
		for _, c := range counts {
			assert.Positive(t, c)
			if c < min {
				min = c
			}
			if c > max {
				max = c
			}
		}
		assert.LessOrEqual(t, max-min, 1, "n=%d k=%d", tc.n, tc.k)

		// Union of splits covers all indices with no overlap.
		seen := make([]int, tc.n)
		for f := 0; f < tc.k; f++ {
			train, test := a.Split(f)
			assert.Equal(t, tc.n, len(train)+len(test))
			for _, i := range test {
				seen[i]++
			}
		}
		for i, c := range seen {
			assert.Equal(t, 1, c, "index %d", i)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a1, err := Generate(50, 5, Options{Seed: 42})
	require.NoError(t, err)
	a2, err := Generate(50, 5, Options{Seed: 42})
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		assert.Equal(t, a1.Fold(i), a2.Fold(i))
	}

	a3, err := Generate(50, 5, Options{Seed: 43})
	require.NoError(t, err)
	same := true
	for i := 0; i < 50; i++ {
		if a1.Fold(i) != a3.Fold(i) {
			same = false
			break
		}
	}
	assert.False(t, same, "different seeds should give different assignments")
}

func TestGenerate_Errors(t *testing.T) {
	_, err := Generate(10, 1, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 2")

	_, err = Generate(3, 4, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds record count")
}

func TestGenerate_Stratified(t *testing.T) {
	// 40 records in stratum 0, 40 in stratum 1.
	strat := func(i int) int {
		if i < 40 {
			return 0
		}
		return 1
	}
	a, err := Generate(80, 4, Options{Seed: 7, StratifyBy: strat})
	require.NoError(t, err)

	// Each fold should hold exactly 10 records of each stratum.
	perFold := make(map[int]map[int]int)
	for i := 0; i < 80; i++ {
		f := a.Fold(i)
		if perFold[f] == nil {
			perFold[f] = map[int]int{}
		}
		perFold[f][strat(i)]++
	}
	for f := 0; f < 4; f++ {
		assert.Equal(t, 10, perFold[f][0], "fold %d stratum 0", f)
		assert.Equal(t, 10, perFold[f][1], "fold %d stratum 1", f)
	}
}

func TestSplit_ComplementUsesActualLength(t *testing.T) {
	// Train set must be derived from the assignment length, not any
	// assumed dataset size.
	a, err := Generate(17, 4, Options{Seed: 3})
	require.NoError(t, err)

	for f := 0; f < 4; f++ {
		train, test := a.Split(f)
		assert.Equal(t, 17-len(test), len(train))
		for _, i := range train {
			assert.NotEqual(t, f, a.Fold(i))
		}
	}
}
