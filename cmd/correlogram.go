package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fieldepi/geostat-cli/internal/correlogram"
	"github.com/fieldepi/geostat-cli/internal/report"
)

var correlogramCmd = &cobra.Command{
	Use:   "correlogram <file>",
	Short: "Moran's I correlogram of model residuals",
	Long:  "Fits the configured model on the full dataset and reports residual spatial autocorrelation per distance bin.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		covs, _ := cmd.Flags().GetString("covariates")
		bins, _ := cmd.Flags().GetInt("bins")
		maxKM, _ := cmd.Flags().GetFloat64("max-km")

		ds, err := loadDataset(args[0], splitCovariates(covs))
		if err != nil {
			return err
		}

		spec := buildSpec(ds)
		if err := spec.Validate(); err != nil {
			return err
		}

		fitter, err := buildFitter(cfg.Fit)
		if err != nil {
			return err
		}

		all := make([]int, ds.Len())
		for i := range all {
			all[i] = i
		}
		m, err := fitter.Fit(ctx, ds, spec, all)
		if err != nil {
			return err
		}

		lats := make([]float64, ds.Len())
		lons := make([]float64, ds.Len())
		for i, r := range ds.Records {
			lats[i] = r.Lat
			lons[i] = r.Lon
		}

		var breaks []float64
		if maxKM > 0 {
			breaks = make([]float64, bins+1)
			for i := range breaks {
				breaks[i] = maxKM * float64(i) / float64(bins)
			}
		} else {
			breaks, err = correlogram.DefaultBreaks(lats, lons, bins)
			if err != nil {
				return err
			}
		}

		out, err := correlogram.Compute(m.Residuals(), lats, lons, breaks)
		if err != nil {
			return err
		}

		zap.L().Info("correlogram computed",
			zap.String("formula", spec.Formula()),
			zap.Int("bins", len(out)),
		)
		return report.RenderCorrelogram(os.Stdout, out)
	},
}

func init() {
	correlogramCmd.Flags().String("covariates", "", "comma-separated covariate columns (default from config)")
	correlogramCmd.Flags().Int("bins", 10, "number of distance bins")
	correlogramCmd.Flags().Float64("max-km", 0, "upper distance bound in km (default: max pairwise distance)")
	rootCmd.AddCommand(correlogramCmd)
}
