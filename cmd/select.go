package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fieldepi/geostat-cli/internal/dataset"
	"github.com/fieldepi/geostat-cli/internal/model"
	"github.com/fieldepi/geostat-cli/internal/report"
	"github.com/fieldepi/geostat-cli/internal/selection"
)

var selectCmd = &cobra.Command{
	Use:   "select <file>",
	Short: "Run backward covariate elimination",
	Long:  "Scores the full covariate set, then greedily drops covariates while the cross-validated score improves. The run and its score board are persisted.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		covs, _ := cmd.Flags().GetString("covariates")
		outPath, _ := cmd.Flags().GetString("out")
		format, _ := cmd.Flags().GetString("format")

		ds, err := loadDataset(args[0], splitCovariates(covs))
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.CreateRun(ctx, model.DatasetRef{
			Path:    args[0],
			Label:   ds.Label,
			Records: ds.Len(),
		})
		if err != nil {
			return err
		}
		if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusSelecting); err != nil {
			return err
		}

		result, err := runSelection(ctx, ds)
		if err != nil {
			if failErr := st.FailRun(ctx, run.ID, err); failErr != nil {
				zap.L().Error("persist failure", zap.String("run", run.ID), zap.Error(failErr))
			}
			return err
		}

		if err := st.CompleteRun(ctx, run.ID, result); err != nil {
			return err
		}

		zap.L().Info("selection complete",
			zap.String("run", run.ID),
			zap.Strings("selected", result.Selected),
			zap.Int("rounds", len(result.Board)),
		)

		if err := report.RenderBoard(os.Stdout, result.Board); err != nil {
			return err
		}

		if outPath != "" {
			if err := exportResult(outPath, format, result); err != nil {
				return err
			}
		}
		return nil
	},
}

// runSelection wires folds, scorer, and selector together and runs the
// search. A partial board from an aborted round is still returned.
func runSelection(ctx context.Context, ds *dataset.Dataset) (*model.RunResult, error) {
	spec := buildSpec(ds)
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	assign, err := generateFolds(ds, cfg.Folds)
	if err != nil {
		return nil, err
	}

	scorer, err := buildScorer(cfg.Fit)
	if err != nil {
		return nil, err
	}

	sel := &selection.Selector{Scorer: scorer, Floor: cfg.Selection.Floor}
	board, err := sel.Run(ctx, ds, spec, assign)

	result := &model.RunResult{
		Board: board,
		Folds: assign.K(),
		Seed:  cfg.Folds.Seed,
	}
	if len(board) > 0 {
		result.Selected = board.Final().Covariates
	}
	return result, err
}

// exportResult writes the run result to path as yaml or json.
func exportResult(path, format string, result *model.RunResult) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer f.Close() //nolint:errcheck

	switch format {
	case "yaml", "":
		return report.WriteYAML(f, result)
	case "json":
		return report.WriteJSON(f, result)
	default:
		return eris.Errorf("unknown export format %q", format)
	}
}

func init() {
	selectCmd.Flags().String("covariates", "", "comma-separated covariate columns (default from config)")
	selectCmd.Flags().String("out", "", "write the run result to this file")
	selectCmd.Flags().String("format", "yaml", "export format: yaml or json")
	rootCmd.AddCommand(selectCmd)
}
