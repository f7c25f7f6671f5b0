// Package kernel provides stationary spatial covariance functions over
// great-circle distances.
package kernel

import (
	"math"

	"github.com/rotisserie/eris"
)

// Kernel is a spatial correlation function of separation distance in
// kilometers. Cov(0) is 1 and values decay toward 0 with distance.
type Kernel interface {
	Cov(d float64) float64
	Name() string
}

// EarthRadiusKM is the mean Earth radius used for great-circle distances.
const EarthRadiusKM = 6371.0

// Haversine returns the great-circle distance in kilometers between two
// (latitude, longitude) points given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lon2 - lon1) * degToRad

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)

	return 2 * EarthRadiusKM * math.Asin(math.Min(1, math.Sqrt(a)))
}

// Exponential is the Matérn kernel with smoothness 1/2.
type Exponential struct {
	Range float64
}

func (k Exponential) Cov(d float64) float64 { return math.Exp(-d / k.Range) }
func (k Exponential) Name() string          { return "exponential" }

// Matern32 is the Matérn kernel with smoothness 3/2.
type Matern32 struct {
	Range float64
}

func (k Matern32) Cov(d float64) float64 {
	s := math.Sqrt(3) * d / k.Range
	return (1 + s) * math.Exp(-s)
}
func (k Matern32) Name() string { return "matern32" }

// Matern52 is the Matérn kernel with smoothness 5/2.
type Matern52 struct {
	Range float64
}

func (k Matern52) Cov(d float64) float64 {
	s := math.Sqrt(5) * d / k.Range
	return (1 + s + s*s/3) * math.Exp(-s)
}
func (k Matern52) Name() string { return "matern52" }

// Gaussian is the squared-exponential kernel, the infinite-smoothness
// limit of the Matérn family.
type Gaussian struct {
	Range float64
}

func (k Gaussian) Cov(d float64) float64 {
	s := d / k.Range
	return math.Exp(-s * s)
}
func (k Gaussian) Name() string { return "gaussian" }

// New returns the named kernel with the given range parameter in kilometers.
func New(name string, rangeKM float64) (Kernel, error) {
	if rangeKM <= 0 {
		return nil, eris.Errorf("kernel: range must be positive, got %g", rangeKM)
	}
	switch name {
	case "exponential", "matern12":
		return Exponential{Range: rangeKM}, nil
	case "matern32":
		return Matern32{Range: rangeKM}, nil
	case "matern52":
		return Matern52{Range: rangeKM}, nil
	case "gaussian":
		return Gaussian{Range: rangeKM}, nil
	default:
		return nil, eris.Errorf("kernel: unknown kernel %q", name)
	}
}
