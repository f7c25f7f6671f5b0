// Package dataset loads and validates point-referenced prevalence surveys.
package dataset

import (
	"fmt"
	"math"
)

// Schema maps input columns onto record fields.
type Schema struct {
	Lat        string
	Lon        string
	Positive   string
	Examined   string
	Covariates []string
}

// Record is a single survey location with its binomial outcome.
type Record struct {
	Lat        float64
	Lon        float64
	Positive   float64
	Examined   float64
	Covariates map[string]float64
}

// Prevalence returns the observed positive fraction.
func (r Record) Prevalence() float64 {
	if r.Examined == 0 {
		return 0
	}
	return r.Positive / r.Examined
}

// Dataset is an ordered collection of records sharing a schema.
type Dataset struct {
	Label   string
	Schema  Schema
	Records []Record
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.Records) }

// DataError identifies an invalid value in the input.
type DataError struct {
	Row    int
	Column string
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("dataset: row %d, column %q: %s", e.Row, e.Column, e.Reason)
}

// Validate checks that every record carries valid coordinates, a sane
// binomial outcome, and a defined value for every schema covariate.
// Violations fail loudly rather than being coerced.
func (d *Dataset) Validate() error {
	for i, r := range d.Records {
		if math.IsNaN(r.Lat) || r.Lat < -90 || r.Lat > 90 {
			return &DataError{Row: i, Column: d.Schema.Lat, Reason: "latitude out of range"}
		}
		if math.IsNaN(r.Lon) || r.Lon < -180 || r.Lon > 180 {
			return &DataError{Row: i, Column: d.Schema.Lon, Reason: "longitude out of range"}
		}
		if math.IsNaN(r.Examined) || r.Examined <= 0 {
			return &DataError{Row: i, Column: d.Schema.Examined, Reason: "examined count must be positive"}
		}
		if math.IsNaN(r.Positive) || r.Positive < 0 || r.Positive > r.Examined {
			return &DataError{Row: i, Column: d.Schema.Positive, Reason: "positive count outside [0, examined]"}
		}
		for _, c := range d.Schema.Covariates {
			v, ok := r.Covariates[c]
			if !ok || math.IsNaN(v) {
				return &DataError{Row: i, Column: c, Reason: "missing covariate value"}
			}
		}
	}
	return nil
}

// Summary describes a dataset for logs and reports.
type Summary struct {
	Records    int      `json:"records"`
	Covariates []string `json:"covariates"`
	Positives  float64  `json:"positives"`
	Examined   float64  `json:"examined"`
	Prevalence float64  `json:"prevalence"`
	MinLat     float64  `json:"min_lat"`
	MaxLat     float64  `json:"max_lat"`
	MinLon     float64  `json:"min_lon"`
	MaxLon     float64  `json:"max_lon"`
}

// Summarize computes record count, overall prevalence, and the bounding box.
func (d *Dataset) Summarize() Summary {
	s := Summary{
		Records:    len(d.Records),
		Covariates: d.Schema.Covariates,
		MinLat:     math.Inf(1),
		MaxLat:     math.Inf(-1),
		MinLon:     math.Inf(1),
		MaxLon:     math.Inf(-1),
	}
	for _, r := range d.Records {
		s.Positives += r.Positive
		s.Examined += r.Examined
		s.MinLat = math.Min(s.MinLat, r.Lat)
		s.MaxLat = math.Max(s.MaxLat, r.Lat)
		s.MinLon = math.Min(s.MinLon, r.Lon)
		s.MaxLon = math.Max(s.MaxLon, r.Lon)
	}
	if s.Examined > 0 {
		s.Prevalence = s.Positives / s.Examined
	}
	return s
}
