// Package modelspec describes binomial geostatistical regression models as
// structured values rather than formula strings.
package modelspec

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// Outcome names the binomial outcome columns.
type Outcome struct {
	Positive string `json:"positive"`
	Examined string `json:"examined"`
}

// SpatialTerm describes the spatial random-effect term.
type SpatialTerm struct {
	Lat     string  `json:"lat"`
	Lon     string  `json:"lon"`
	Kernel  string  `json:"kernel"`
	RangeKM float64 `json:"range_km"`
}

// Spec is a structured model formula: an outcome, a spatial term, and an
// ordered covariate subset. The covariate order is the fixed enumeration
// order used wherever a deterministic scan is required (tie-breaks in
// selection resolve to the first minimum in this order).
type Spec struct {
	Outcome    Outcome     `json:"outcome"`
	Spatial    SpatialTerm `json:"spatial"`
	Covariates []string    `json:"covariates"`
}

// Validate checks that the spec names all required columns exactly once.
func (s Spec) Validate() error {
	if s.Outcome.Positive == "" || s.Outcome.Examined == "" {
		return eris.New("modelspec: outcome columns are required")
	}
	if s.Spatial.Lat == "" || s.Spatial.Lon == "" {
		return eris.New("modelspec: spatial term coordinate columns are required")
	}
	seen := make(map[string]bool, len(s.Covariates))
	for _, c := range s.Covariates {
		if c == "" {
			return eris.New("modelspec: empty covariate name")
		}
		if seen[c] {
			return eris.Errorf("modelspec: duplicate covariate %q", c)
		}
		seen[c] = true
	}
	return nil
}

// Drop returns a copy of the spec with the named covariate removed,
// preserving the order of the rest. ok reports whether it was present.
func (s Spec) Drop(name string) (Spec, bool) {
	i := slices.Index(s.Covariates, name)
	if i < 0 {
		return s, false
	}
	out := s
	out.Covariates = make([]string, 0, len(s.Covariates)-1)
	out.Covariates = append(out.Covariates, s.Covariates[:i]...)
	out.Covariates = append(out.Covariates, s.Covariates[i+1:]...)
	return out, true
}

// Formula renders a compact human-readable label for logs and the score
// board, e.g. "pf_pos/examined ~ elev + precip + matern32(lat, lon)".
func (s Spec) Formula() string {
	var b strings.Builder
	b.WriteString(s.Outcome.Positive)
	b.WriteByte('/')
	b.WriteString(s.Outcome.Examined)
	b.WriteString(" ~ ")

	if len(s.Covariates) == 0 {
		b.WriteString("1")
	} else {
		b.WriteString(strings.Join(s.Covariates, " + "))
	}

	if s.Spatial.Kernel != "" {
		b.WriteString(" + ")
		b.WriteString(s.Spatial.Kernel)
		b.WriteByte('(')
		b.WriteString(s.Spatial.Lat)
		b.WriteString(", ")
		b.WriteString(s.Spatial.Lon)
		b.WriteByte(')')
	}

	return b.String()
}
