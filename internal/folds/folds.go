// Package folds partitions record indices for k-fold cross-validation.
package folds

import (
	"math/rand"
	"sort"

	"github.com/rotisserie/eris"
)

// Options configures fold assignment.
type Options struct {
	Seed int64
	// StratifyBy maps a record index to a stratum. When set, each fold
	// receives a near-equal share of every stratum. Nil disables
	// stratification.
	StratifyBy func(i int) int
}

// Assignment maps each record index to its fold.
type Assignment struct {
	folds []int
	k     int
}

// Generate partitions n record indices into k disjoint near-equal folds.
// The assignment is deterministic for a fixed seed.
func Generate(n, k int, opts Options) (*Assignment, error) {
	if k < 2 {
		return nil, eris.Errorf("folds: k must be at least 2, got %d", k)
	}
	if k > n {
		return nil, eris.Errorf("folds: k (%d) exceeds record count (%d)", k, n)
	}

	// Group indices by stratum; a single group when unstratified.
	groups := map[int][]int{}
	for i := 0; i < n; i++ {
		s := 0
		if opts.StratifyBy != nil {
			s = opts.StratifyBy(i)
		}
		groups[s] = append(groups[s], i)
	}

	keys := make([]int, 0, len(groups))
	for s := range groups {
		keys = append(keys, s)
	}
	sort.Ints(keys)

	// Shuffle within each stratum, then deal round-robin across folds.
	// The fold counter runs across strata so overall sizes stay balanced.
	rng := rand.New(rand.NewSource(opts.Seed))
	assign := make([]int, n)
	next := 0
	for _, s := range keys {
		g := groups[s]
		rng.Shuffle(len(g), func(a, b int) { g[a], g[b] = g[b], g[a] })
		for _, idx := range g {
			assign[idx] = next % k
			next++
		}
	}

	return &Assignment{folds: assign, k: k}, nil
}

// K returns the number of folds.
func (a *Assignment) K() int { return a.k }

// Len returns the number of assigned records.
func (a *Assignment) Len() int { return len(a.folds) }

// Fold returns the fold of record i.
func (a *Assignment) Fold(i int) int { return a.folds[i] }

// Split returns the training and held-out index sets for fold f. The
// training set is the complement of fold f over the full index range.
func (a *Assignment) Split(f int) (train, test []int) {
	for i, fold := range a.folds {
		if fold == f {
			test = append(test, i)
		} else {
			train = append(train, i)
		}
	}
	return train, test
}

// Counts returns the number of records per fold.
func (a *Assignment) Counts() []int {
	counts := make([]int, a.k)
	for _, f := range a.folds {
		counts[f]++
	}
	return counts
}
