package cv

import (
	"context"

	"github.com/fieldepi/geostat-cli/internal/dataset"
	"github.com/fieldepi/geostat-cli/internal/fit"
	"github.com/fieldepi/geostat-cli/internal/modelspec"
)

// fakeFitter returns a model predicting a constant probability, or fails
// on configured folds (identified by held-out record membership).
type fakeFitter struct {
	prob    float64
	failFor map[int]error // training-set size -> error
	fitErr  error
}

func (f *fakeFitter) Fit(ctx context.Context, ds *dataset.Dataset, spec modelspec.Spec, train []int) (fit.Model, error) {
	if f.fitErr != nil {
		return nil, f.fitErr
	}
	if err, ok := f.failFor[len(train)]; ok {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &constModel{prob: f.prob}, nil
}

type constModel struct {
	prob float64
}

func (m *constModel) PredictProb(ds *dataset.Dataset, idx []int) ([]float64, error) {
	out := make([]float64, len(idx))
	for i := range out {
		out[i] = m.prob
	}
	return out, nil
}

func (m *constModel) Residuals() []float64 { return nil }

func (m *constModel) Coefficients() map[string]float64 {
	return map[string]float64{"(intercept)": m.prob}
}
