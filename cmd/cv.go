package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cvCmd = &cobra.Command{
	Use:   "cv <file>",
	Short: "Cross-validate a single model specification",
	Long:  "Fits the configured model once per fold and reports the mean out-of-fold squared error.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		covs, _ := cmd.Flags().GetString("covariates")
		ds, err := loadDataset(args[0], splitCovariates(covs))
		if err != nil {
			return err
		}

		spec := buildSpec(ds)
		if err := spec.Validate(); err != nil {
			return err
		}

		assign, err := generateFolds(ds, cfg.Folds)
		if err != nil {
			return err
		}

		scorer, err := buildScorer(cfg.Fit)
		if err != nil {
			return err
		}

		score, err := scorer.Score(ctx, ds, spec, assign)
		if err != nil {
			return err
		}

		zap.L().Info("cross-validation complete",
			zap.String("formula", spec.Formula()),
			zap.Int("folds", assign.K()),
			zap.Float64("score", score),
		)
		fmt.Printf("%s\n%d-fold CV score: %.6f\n", spec.Formula(), assign.K(), score)
		return nil
	},
}

func init() {
	cvCmd.Flags().String("covariates", "", "comma-separated covariate columns (default from config)")
	rootCmd.AddCommand(cvCmd)
}
