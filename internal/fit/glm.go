package fit

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/fieldepi/geostat-cli/internal/dataset"
	"github.com/fieldepi/geostat-cli/internal/kernel"
	"github.com/fieldepi/geostat-cli/internal/modelspec"
)

// GLMFitter fits binomial-logit regression by iteratively reweighted least
// squares. When Kernel is set, predictions add a kernel-weighted smoothing
// of the training residuals, a low-rank stand-in for the full
// geostatistical random effect.
type GLMFitter struct {
	Kernel    kernel.Kernel
	MaxIter   int     // default 50
	Tolerance float64 // default 1e-8
}

const (
	defaultMaxIter   = 50
	defaultTolerance = 1e-8
	minWeight        = 1e-10
	probFloor        = 1e-9
)

// Fit implements Fitter.
func (f *GLMFitter) Fit(ctx context.Context, ds *dataset.Dataset, spec modelspec.Spec, train []int) (Model, error) {
	formula := spec.Formula()
	n := len(train)
	p := len(spec.Covariates) + 1

	if n == 0 {
		return nil, &Error{Formula: formula, Err: eris.New("empty training set")}
	}
	if n < p {
		return nil, &Error{Formula: formula, Err: eris.Errorf("%d observations for %d parameters", n, p)}
	}

	// Standardize covariates on the training set for numerical stability.
	means := make([]float64, len(spec.Covariates))
	sds := make([]float64, len(spec.Covariates))
	cols := make([][]float64, len(spec.Covariates))
	for j, name := range spec.Covariates {
		col := make([]float64, n)
		for i, idx := range train {
			v, ok := ds.Records[idx].Covariates[name]
			if !ok || math.IsNaN(v) {
				return nil, &Error{Formula: formula, Err: &dataset.DataError{Row: idx, Column: name, Reason: "missing covariate value"}}
			}
			col[i] = v
		}
		means[j] = stat.Mean(col, nil)
		sds[j] = stat.StdDev(col, nil)
		if sds[j] == 0 || math.IsNaN(sds[j]) {
			return nil, &Error{Formula: formula, Err: eris.Errorf("covariate %q is constant on the training set", name)}
		}
		for i := range col {
			col[i] = (col[i] - means[j]) / sds[j]
		}
		cols[j] = col
	}

	// Design matrix with intercept column.
	x := mat.NewDense(n, p, nil)
	y := make([]float64, n)     // positives
	trials := make([]float64, n) // examined
	for i, idx := range train {
		rec := ds.Records[idx]
		x.Set(i, 0, 1)
		for j := range cols {
			x.Set(i, j+1, cols[j][i])
		}
		y[i] = rec.Positive
		trials[i] = rec.Examined
	}

	beta, err := irls(ctx, x, y, trials, f.maxIter(), f.tolerance())
	if err != nil {
		return nil, &Error{Formula: formula, Err: err}
	}

	// Fitted probabilities and response residuals on the training set.
	fitted := make([]float64, n)
	resid := make([]float64, n)
	lats := make([]float64, n)
	lons := make([]float64, n)
	for i, idx := range train {
		eta := 0.0
		for j := 0; j < p; j++ {
			eta += x.At(i, j) * beta[j]
		}
		fitted[i] = logistic(eta)
		resid[i] = y[i]/trials[i] - fitted[i]
		lats[i] = ds.Records[idx].Lat
		lons[i] = ds.Records[idx].Lon
	}

	zap.L().Debug("fit: glm converged",
		zap.String("formula", formula),
		zap.Int("n", n),
		zap.Int("p", p),
	)

	return &glmModel{
		spec:   spec,
		beta:   beta,
		means:  means,
		sds:    sds,
		kernel: f.Kernel,
		lats:   lats,
		lons:   lons,
		resid:  resid,
	}, nil
}

func (f *GLMFitter) maxIter() int {
	if f.MaxIter > 0 {
		return f.MaxIter
	}
	return defaultMaxIter
}

func (f *GLMFitter) tolerance() float64 {
	if f.Tolerance > 0 {
		return f.Tolerance
	}
	return defaultTolerance
}

// irls solves the binomial-logit weighted least squares iteration.
func irls(ctx context.Context, x *mat.Dense, y, trials []float64, maxIter int, tol float64) ([]float64, error) {
	n, p := x.Dims()

	// Start from the pooled prevalence on the intercept.
	var sumY, sumM float64
	for i := range y {
		sumY += y[i]
		sumM += trials[i]
	}
	pooled := clampProb(sumY / sumM)
	beta := make([]float64, p)
	beta[0] = logit(pooled)

	next := make([]float64, p)
	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "cancelled")
		}

		a := mat.NewSymDense(p, nil)
		b := mat.NewVecDense(p, nil)
		for i := 0; i < n; i++ {
			eta := 0.0
			for j := 0; j < p; j++ {
				eta += x.At(i, j) * beta[j]
			}
			mu := clampProb(logistic(eta))
			w := trials[i] * mu * (1 - mu)
			if w < minWeight {
				w = minWeight
			}
			z := eta + (y[i]-trials[i]*mu)/w

			for j := 0; j < p; j++ {
				xj := x.At(i, j)
				b.SetVec(j, b.AtVec(j)+w*xj*z)
				for l := j; l < p; l++ {
					a.SetSym(j, l, a.At(j, l)+w*xj*x.At(i, l))
				}
			}
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(a); !ok {
			return nil, eris.New("singular weighted design matrix")
		}
		var sol mat.VecDense
		if err := chol.SolveVecTo(&sol, b); err != nil {
			return nil, eris.Wrap(err, "solve normal equations")
		}

		delta := 0.0
		for j := 0; j < p; j++ {
			next[j] = sol.AtVec(j)
			delta = math.Max(delta, math.Abs(next[j]-beta[j]))
		}
		copy(beta, next)

		if delta < tol {
			return beta, nil
		}
	}

	return nil, eris.Errorf("IRLS did not converge in %d iterations", maxIter)
}

// glmModel is a fitted GLM with an optional spatial residual smoother.
type glmModel struct {
	spec   modelspec.Spec
	beta   []float64
	means  []float64
	sds    []float64
	kernel kernel.Kernel
	lats   []float64
	lons   []float64
	resid  []float64
}

func (m *glmModel) PredictProb(ds *dataset.Dataset, idx []int) ([]float64, error) {
	out := make([]float64, len(idx))
	for i, rec := range idx {
		r := ds.Records[rec]

		eta := m.beta[0]
		for j, name := range m.spec.Covariates {
			v, ok := r.Covariates[name]
			if !ok || math.IsNaN(v) {
				return nil, &dataset.DataError{Row: rec, Column: name, Reason: "missing covariate value"}
			}
			eta += m.beta[j+1] * (v - m.means[j]) / m.sds[j]
		}
		prob := logistic(eta)

		if m.kernel != nil {
			prob += m.smoothResidual(r.Lat, r.Lon)
			prob = math.Min(1, math.Max(0, prob))
		}
		out[i] = prob
	}
	return out, nil
}

// smoothResidual is the kernel-weighted average of training residuals at
// the target location.
func (m *glmModel) smoothResidual(lat, lon float64) float64 {
	var num, den float64
	for i := range m.resid {
		w := m.kernel.Cov(kernel.Haversine(lat, lon, m.lats[i], m.lons[i]))
		num += w * m.resid[i]
		den += w
	}
	if den < minWeight {
		return 0
	}
	return num / den
}

func (m *glmModel) Residuals() []float64 {
	out := make([]float64, len(m.resid))
	copy(out, m.resid)
	return out
}

func (m *glmModel) Coefficients() map[string]float64 {
	// De-standardize back to the original covariate scale.
	coef := make(map[string]float64, len(m.spec.Covariates)+1)
	intercept := m.beta[0]
	for j, name := range m.spec.Covariates {
		raw := m.beta[j+1] / m.sds[j]
		coef[name] = raw
		intercept -= raw * m.means[j]
	}
	coef["(intercept)"] = intercept
	return coef
}

func logistic(eta float64) float64 {
	return 1 / (1 + math.Exp(-eta))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

func clampProb(p float64) float64 {
	return math.Min(1-probFloor, math.Max(probFloor, p))
}
