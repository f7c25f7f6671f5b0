package main

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fieldepi/geostat-cli/internal/boundary"
	"github.com/fieldepi/geostat-cli/internal/config"
	"github.com/fieldepi/geostat-cli/internal/cv"
	"github.com/fieldepi/geostat-cli/internal/dataset"
	"github.com/fieldepi/geostat-cli/internal/fit"
	"github.com/fieldepi/geostat-cli/internal/folds"
	"github.com/fieldepi/geostat-cli/internal/kernel"
	"github.com/fieldepi/geostat-cli/internal/modelspec"
	"github.com/fieldepi/geostat-cli/internal/store"
)

// initStore opens the run store configured in cfg and runs migrations.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// datasetSchema builds the survey schema from config, with an optional
// covariate override from the command line.
func datasetSchema(covariates []string) dataset.Schema {
	covs := covariates
	if len(covs) == 0 {
		covs = cfg.Dataset.Covariates
	}
	return dataset.Schema{
		Lat:        cfg.Dataset.LatColumn,
		Lon:        cfg.Dataset.LonColumn,
		Positive:   cfg.Dataset.PositiveColumn,
		Examined:   cfg.Dataset.ExaminedColumn,
		Covariates: covs,
	}
}

// loadDataset reads a survey file by extension, crops it to the configured
// boundary when one is set, and validates the result.
func loadDataset(path string, covariates []string) (*dataset.Dataset, error) {
	schema := datasetSchema(covariates)

	var ds *dataset.Dataset
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		ds, err = dataset.LoadCSV(path, schema)
	case ".xlsx":
		ds, err = dataset.LoadXLSX(path, schema, dataset.XLSXOptions{SheetName: cfg.Dataset.SheetName})
	default:
		return nil, eris.Errorf("unsupported dataset format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	if cfg.Dataset.BoundaryPath != "" {
		polys, err := boundary.Load(cfg.Dataset.BoundaryPath)
		if err != nil {
			return nil, err
		}
		ds = boundary.Crop(ds, polys)
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}

	zap.L().Info("dataset loaded",
		zap.String("path", path),
		zap.Int("records", ds.Len()),
		zap.Strings("covariates", schema.Covariates),
	)
	return ds, nil
}

// buildSpec assembles the full model spec from the dataset schema and the
// configured spatial term.
func buildSpec(ds *dataset.Dataset) modelspec.Spec {
	spec := modelspec.Spec{
		Outcome: modelspec.Outcome{
			Positive: ds.Schema.Positive,
			Examined: ds.Schema.Examined,
		},
		Spatial: modelspec.SpatialTerm{
			Lat: ds.Schema.Lat,
			Lon: ds.Schema.Lon,
		},
		Covariates: ds.Schema.Covariates,
	}
	if cfg.Fit.Spatial {
		spec.Spatial.Kernel = cfg.Fit.Kernel
		spec.Spatial.RangeKM = cfg.Fit.RangeKM
	}
	return spec
}

// buildFitter constructs the GLM fitter from config.
func buildFitter(fc config.FitConfig) (*fit.GLMFitter, error) {
	f := &fit.GLMFitter{
		MaxIter:   fc.MaxIter,
		Tolerance: fc.Tolerance,
	}
	if fc.Spatial {
		k, err := kernel.New(fc.Kernel, fc.RangeKM)
		if err != nil {
			return nil, err
		}
		f.Kernel = k
	}
	return f, nil
}

// buildScorer constructs the cross-validation scorer from config.
func buildScorer(fc config.FitConfig) (*cv.Scorer, error) {
	fitter, err := buildFitter(fc)
	if err != nil {
		return nil, err
	}
	return &cv.Scorer{
		Fitter:      fitter,
		Concurrency: fc.Concurrency,
		FitTimeout:  time.Duration(fc.TimeoutSecs) * time.Second,
	}, nil
}

// generateFolds partitions the dataset per the folds config, stratifying
// on zero versus non-zero positives when enabled.
func generateFolds(ds *dataset.Dataset, fc config.FoldsConfig) (*folds.Assignment, error) {
	opts := folds.Options{Seed: fc.Seed}
	if fc.Stratified {
		opts.StratifyBy = func(i int) int {
			if ds.Records[i].Positive > 0 {
				return 1
			}
			return 0
		}
	}
	return folds.Generate(ds.Len(), fc.K, opts)
}

// splitCovariates parses a comma-separated covariate list, trimming blanks.
func splitCovariates(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
