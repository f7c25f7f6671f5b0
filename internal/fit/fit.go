// Package fit defines the model-fitting capability for binomial spatial
// regression and provides a GLM implementation of it.
package fit

import (
	"context"
	"fmt"

	"github.com/fieldepi/geostat-cli/internal/dataset"
	"github.com/fieldepi/geostat-cli/internal/modelspec"
)

// Model is a fitted binomial spatial regression model.
type Model interface {
	// PredictProb returns the predicted positive probability for the given
	// record indices of ds.
	PredictProb(ds *dataset.Dataset, idx []int) ([]float64, error)
	// Residuals returns the training-set response residuals (observed
	// minus fitted prevalence), in training order.
	Residuals() []float64
	// Coefficients returns the fitted linear coefficients on the original
	// covariate scale, keyed by covariate name plus "(intercept)".
	Coefficients() map[string]float64
}

// Fitter fits a model spec against a training subset of a dataset.
type Fitter interface {
	Fit(ctx context.Context, ds *dataset.Dataset, spec modelspec.Spec, train []int) (Model, error)
}

// Error is a fit failure carrying the formula that failed.
type Error struct {
	Formula string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fit %s: %v", e.Formula, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
