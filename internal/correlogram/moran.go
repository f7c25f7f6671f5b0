// Package correlogram computes Moran's I spatial autocorrelation of model
// residuals across distance bins.
package correlogram

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"

	"github.com/fieldepi/geostat-cli/internal/kernel"
)

// Bin is one distance class of a correlogram.
type Bin struct {
	MinKM float64 `json:"min_km"`
	MaxKM float64 `json:"max_km"`
	MidKM float64 `json:"mid_km"`
	I     float64 `json:"moran_i"`
	Pairs int     `json:"pairs"`
}

// Compute returns Moran's I per distance bin for values observed at
// (lat, lon) locations. Pair weights are 1 inside the bin and 0 outside.
// Bins with no pairs report I as NaN.
func Compute(values, lats, lons []float64, breaks []float64) ([]Bin, error) {
	n := len(values)
	if n < 2 {
		return nil, eris.Errorf("correlogram: need at least 2 values, got %d", n)
	}
	if len(lats) != n || len(lons) != n {
		return nil, eris.Errorf("correlogram: %d values but %d/%d coordinates", n, len(lats), len(lons))
	}
	if len(breaks) < 2 {
		return nil, eris.New("correlogram: need at least 2 distance breaks")
	}
	for i := 1; i < len(breaks); i++ {
		if breaks[i] <= breaks[i-1] {
			return nil, eris.New("correlogram: breaks must be strictly increasing")
		}
	}

	mean := stat.Mean(values, nil)
	dev := make([]float64, n)
	var denom float64
	for i, v := range values {
		dev[i] = v - mean
		denom += dev[i] * dev[i]
	}
	if denom == 0 {
		return nil, eris.New("correlogram: values have zero variance")
	}

	nBins := len(breaks) - 1
	num := make([]float64, nBins)
	pairs := make([]int, nBins)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := kernel.Haversine(lats[i], lons[i], lats[j], lons[j])
			b := binIndex(d, breaks)
			if b < 0 {
				continue
			}
			// Both (i,j) and (j,i) contribute in the Moran sum.
			num[b] += 2 * dev[i] * dev[j]
			pairs[b] += 2
		}
	}

	bins := make([]Bin, nBins)
	for b := 0; b < nBins; b++ {
		bins[b] = Bin{
			MinKM: breaks[b],
			MaxKM: breaks[b+1],
			MidKM: (breaks[b] + breaks[b+1]) / 2,
			Pairs: pairs[b],
			I:     math.NaN(),
		}
		if pairs[b] > 0 {
			bins[b].I = float64(n) / float64(pairs[b]) * num[b] / denom
		}
	}
	return bins, nil
}

// binIndex places d into a half-open [min, max) bin; the last bin is
// closed on the right so the maximum distance is not dropped.
func binIndex(d float64, breaks []float64) int {
	if d < breaks[0] {
		return -1
	}
	for b := 0; b < len(breaks)-1; b++ {
		if d < breaks[b+1] {
			return b
		}
	}
	if d == breaks[len(breaks)-1] {
		return len(breaks) - 2
	}
	return -1
}

// DefaultBreaks builds m equal-width distance bins spanning the pairwise
// distance extent of the locations.
func DefaultBreaks(lats, lons []float64, m int) ([]float64, error) {
	if m < 1 {
		return nil, eris.Errorf("correlogram: need at least 1 bin, got %d", m)
	}
	if len(lats) < 2 || len(lats) != len(lons) {
		return nil, eris.New("correlogram: need at least 2 locations")
	}

	var maxD float64
	for i := 0; i < len(lats); i++ {
		for j := i + 1; j < len(lats); j++ {
			d := kernel.Haversine(lats[i], lons[i], lats[j], lons[j])
			if d > maxD {
				maxD = d
			}
		}
	}
	if maxD == 0 {
		return nil, eris.New("correlogram: all locations coincide")
	}

	breaks := make([]float64, m+1)
	for i := range breaks {
		breaks[i] = maxD * float64(i) / float64(m)
	}
	return breaks, nil
}
