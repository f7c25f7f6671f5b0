package fit

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldepi/geostat-cli/internal/dataset"
	"github.com/fieldepi/geostat-cli/internal/kernel"
	"github.com/fieldepi/geostat-cli/internal/modelspec"
)

func interceptSpec() modelspec.Spec {
	return modelspec.Spec{
		Outcome: modelspec.Outcome{Positive: "pos", Examined: "examined"},
		Spatial: modelspec.SpatialTerm{Lat: "latitude", Lon: "longitude", Kernel: "matern32", RangeKM: 50},
	}
}

func allIdx(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func TestGLMFitter_InterceptOnly(t *testing.T) {
	// Constant prevalence 0.25 everywhere; the fitted intercept must be
	// logit(0.25) and predictions must return 0.25.
	ds := &dataset.Dataset{}
	for i := 0; i < 8; i++ {
		ds.Records = append(ds.Records, dataset.Record{
			Lat: 9 + float64(i)*0.1, Lon: 38 + float64(i)*0.1,
			Positive: 5, Examined: 20,
		})
	}

	f := &GLMFitter{}
	m, err := f.Fit(context.Background(), ds, interceptSpec(), allIdx(8))
	require.NoError(t, err)

	coef := m.Coefficients()
	assert.InDelta(t, math.Log(0.25/0.75), coef["(intercept)"], 1e-6)

	probs, err := m.PredictProb(ds, allIdx(8))
	require.NoError(t, err)
	for _, p := range probs {
		assert.InDelta(t, 0.25, p, 1e-6)
	}

	for _, r := range m.Residuals() {
		assert.InDelta(t, 0.0, r, 1e-6)
	}
}

func TestGLMFitter_CovariateSign(t *testing.T) {
	// Prevalence increases with the covariate; the fitted slope must be
	// positive and predictions must rank accordingly.
	spec := interceptSpec()
	spec.Covariates = []string{"x"}

	ds := &dataset.Dataset{}
	for i := 0; i < 20; i++ {
		x := -2 + 4*float64(i)/19
		p := 1 / (1 + math.Exp(-(0.3 + 1.2*x)))
		ds.Records = append(ds.Records, dataset.Record{
			Lat: 9, Lon: 38 + float64(i)*0.05,
			Positive: math.Round(100 * p), Examined: 100,
			Covariates: map[string]float64{"x": x},
		})
	}

	f := &GLMFitter{}
	m, err := f.Fit(context.Background(), ds, spec, allIdx(20))
	require.NoError(t, err)

	coef := m.Coefficients()
	assert.Positive(t, coef["x"])

	probs, err := m.PredictProb(ds, []int{0, 19})
	require.NoError(t, err)
	assert.Less(t, probs[0], probs[1])
}

func TestGLMFitter_SpatialSmoothing(t *testing.T) {
	// Two distant clusters with opposite prevalence. The intercept-only
	// GLM predicts the pooled 0.5 everywhere; the spatial effect must pull
	// predictions toward the local cluster prevalence.
	ds := &dataset.Dataset{}
	for i := 0; i < 5; i++ {
		ds.Records = append(ds.Records, dataset.Record{ // northern cluster, prevalence 0.8
			Lat: 12 + float64(i)*0.01, Lon: 39,
			Positive: 80, Examined: 100,
		})
		ds.Records = append(ds.Records, dataset.Record{ // southern cluster, prevalence 0.2
			Lat: 5 + float64(i)*0.01, Lon: 39,
			Positive: 20, Examined: 100,
		})
	}

	plain := &GLMFitter{}
	mPlain, err := plain.Fit(context.Background(), ds, interceptSpec(), allIdx(10))
	require.NoError(t, err)

	spatial := &GLMFitter{Kernel: kernel.Exponential{Range: 100}}
	mSpatial, err := spatial.Fit(context.Background(), ds, interceptSpec(), allIdx(10))
	require.NoError(t, err)

	north := []int{0}
	south := []int{1}

	pPlain, err := mPlain.PredictProb(ds, north)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, pPlain[0], 1e-6)

	pNorth, err := mSpatial.PredictProb(ds, north)
	require.NoError(t, err)
	pSouth, err := mSpatial.PredictProb(ds, south)
	require.NoError(t, err)

	assert.Greater(t, pNorth[0], 0.6)
	assert.Less(t, pSouth[0], 0.4)
}

func TestGLMFitter_ConstantCovariate(t *testing.T) {
	spec := interceptSpec()
	spec.Covariates = []string{"flat"}

	ds := &dataset.Dataset{}
	for i := 0; i < 10; i++ {
		ds.Records = append(ds.Records, dataset.Record{
			Lat: 9, Lon: 38, Positive: 5, Examined: 20,
			Covariates: map[string]float64{"flat": 7},
		})
	}

	f := &GLMFitter{}
	_, err := f.Fit(context.Background(), ds, spec, allIdx(10))
	require.Error(t, err)

	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, spec.Formula(), fe.Formula)
	assert.Contains(t, err.Error(), "constant")
}

func TestGLMFitter_TooFewObservations(t *testing.T) {
	spec := interceptSpec()
	spec.Covariates = []string{"a", "b", "c"}

	ds := &dataset.Dataset{Records: []dataset.Record{
		{Lat: 9, Lon: 38, Positive: 1, Examined: 10, Covariates: map[string]float64{"a": 1, "b": 2, "c": 3}},
		{Lat: 9, Lon: 39, Positive: 2, Examined: 10, Covariates: map[string]float64{"a": 2, "b": 1, "c": 4}},
	}}

	f := &GLMFitter{}
	_, err := f.Fit(context.Background(), ds, spec, allIdx(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "observations for")
}

func TestGLMFitter_Cancelled(t *testing.T) {
	ds := &dataset.Dataset{}
	for i := 0; i < 8; i++ {
		ds.Records = append(ds.Records, dataset.Record{Lat: 9, Lon: 38, Positive: 5, Examined: 20})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &GLMFitter{}
	_, err := f.Fit(ctx, ds, interceptSpec(), allIdx(8))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestGLMFitter_MissingCovariateAtPredict(t *testing.T) {
	spec := interceptSpec()
	spec.Covariates = []string{"x"}

	ds := &dataset.Dataset{}
	for i := 0; i < 10; i++ {
		ds.Records = append(ds.Records, dataset.Record{
			Lat: 9, Lon: 38 + float64(i)*0.1, Positive: float64(i), Examined: 20,
			Covariates: map[string]float64{"x": float64(i)},
		})
	}
	// Target record without the covariate.
	ds.Records = append(ds.Records, dataset.Record{Lat: 9, Lon: 40, Positive: 0, Examined: 20})

	f := &GLMFitter{}
	m, err := f.Fit(context.Background(), ds, spec, allIdx(10))
	require.NoError(t, err)

	_, err = m.PredictProb(ds, []int{10})
	require.Error(t, err)

	var de *dataset.DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "x", de.Column)
	assert.Equal(t, 10, de.Row)
}
