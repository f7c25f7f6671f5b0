package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Inspect survey datasets",
}

var datasetValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a survey file against the configured schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		covs, _ := cmd.Flags().GetString("covariates")
		ds, err := loadDataset(args[0], splitCovariates(covs))
		if err != nil {
			return err
		}
		fmt.Printf("OK: %d records, %d covariates\n", ds.Len(), len(ds.Schema.Covariates))
		return nil
	},
}

var datasetSummaryCmd = &cobra.Command{
	Use:   "summary <file>",
	Short: "Print record count, prevalence, and bounding box",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		covs, _ := cmd.Flags().GetString("covariates")
		ds, err := loadDataset(args[0], splitCovariates(covs))
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ds.Summarize())
	},
}

func init() {
	datasetValidateCmd.Flags().String("covariates", "", "comma-separated covariate columns (default from config)")
	datasetSummaryCmd.Flags().String("covariates", "", "comma-separated covariate columns (default from config)")

	datasetCmd.AddCommand(datasetValidateCmd)
	datasetCmd.AddCommand(datasetSummaryCmd)
	rootCmd.AddCommand(datasetCmd)
}
