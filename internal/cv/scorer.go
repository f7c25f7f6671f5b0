// Package cv scores model specifications by k-fold cross-validation.
package cv

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/fieldepi/geostat-cli/internal/dataset"
	"github.com/fieldepi/geostat-cli/internal/fit"
	"github.com/fieldepi/geostat-cli/internal/folds"
	"github.com/fieldepi/geostat-cli/internal/modelspec"
)

// FoldError is a scoring failure carrying the offending fold and formula.
type FoldError struct {
	Fold    int
	Formula string
	Err     error
}

func (e *FoldError) Error() string {
	return fmt.Sprintf("cv: fold %d (%s): %v", e.Fold, e.Formula, e.Err)
}

func (e *FoldError) Unwrap() error { return e.Err }

// Scorer computes the mean out-of-fold squared error of a model spec.
// Fold fits share no mutable state and run concurrently.
type Scorer struct {
	Fitter      fit.Fitter
	Concurrency int           // fold fits in flight; <=0 runs all folds at once
	FitTimeout  time.Duration // per-fold fit budget; 0 disables
}

// Score fits the spec once per fold and returns the mean of the per-fold
// mean squared errors between predicted expected counts (probability times
// examined) and observed positives. A failed fit propagates as a FoldError;
// it is never scored.
func (s *Scorer) Score(ctx context.Context, ds *dataset.Dataset, spec modelspec.Spec, assign *folds.Assignment) (float64, error) {
	if assign.Len() != ds.Len() {
		return 0, eris.Errorf("cv: assignment covers %d records, dataset has %d", assign.Len(), ds.Len())
	}

	k := assign.K()
	mses := make([]float64, k)

	g, gctx := errgroup.WithContext(ctx)
	limit := s.Concurrency
	if limit <= 0 {
		limit = k
	}
	g.SetLimit(limit)

	for f := 0; f < k; f++ {
		g.Go(func() error {
			mse, err := s.scoreFold(gctx, ds, spec, assign, f)
			if err != nil {
				return err
			}
			mses[f] = mse
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	score := stat.Mean(mses, nil)
	zap.L().Debug("cv: scored",
		zap.String("formula", spec.Formula()),
		zap.Int("folds", k),
		zap.Float64("score", score),
	)
	return score, nil
}

// scoreFold fits on the complement of fold f and returns the held-out MSE.
func (s *Scorer) scoreFold(ctx context.Context, ds *dataset.Dataset, spec modelspec.Spec, assign *folds.Assignment, f int) (float64, error) {
	fctx := ctx
	if s.FitTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, s.FitTimeout)
		defer cancel()
	}

	train, test := assign.Split(f)

	model, err := s.Fitter.Fit(fctx, ds, spec, train)
	if err != nil {
		return 0, &FoldError{Fold: f, Formula: spec.Formula(), Err: err}
	}

	probs, err := model.PredictProb(ds, test)
	if err != nil {
		return 0, &FoldError{Fold: f, Formula: spec.Formula(), Err: err}
	}

	var sum float64
	for i, idx := range test {
		rec := ds.Records[idx]
		diff := probs[i]*rec.Examined - rec.Positive
		sum += diff * diff
	}
	return sum / float64(len(test)), nil
}
