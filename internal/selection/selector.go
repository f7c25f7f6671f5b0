// Package selection implements cross-validated backward covariate
// elimination over binomial geostatistical model specs.
package selection

import (
	"context"
	"math"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fieldepi/geostat-cli/internal/dataset"
	"github.com/fieldepi/geostat-cli/internal/folds"
	"github.com/fieldepi/geostat-cli/internal/model"
	"github.com/fieldepi/geostat-cli/internal/modelspec"
)

// Scorer evaluates a model spec against a fold partition. Implemented by
// cv.Scorer.
type Scorer interface {
	Score(ctx context.Context, ds *dataset.Dataset, spec modelspec.Spec, assign *folds.Assignment) (float64, error)
}

// Board is the append-only selection trace: the baseline row followed by
// one row per accepted elimination round. Each row's covariate set is the
// previous row's minus exactly one, and scores strictly decrease.
type Board []model.BoardEntry

// Final returns the last accepted entry, the search's selected state.
func (b Board) Final() model.BoardEntry {
	return b[len(b)-1]
}

// Best returns the entry with the lowest score. The board is not
// guaranteed to end at its minimum, so callers wanting the overall best
// subset use this rather than Final.
func (b Board) Best() model.BoardEntry {
	best := b[0]
	for _, e := range b[1:] {
		if e.Score < best.Score {
			best = e
		}
	}
	return best
}

// Selector runs greedy backward elimination scored by cross-validation.
type Selector struct {
	Scorer Scorer
	// Floor is the minimum covariate count the search may reach. Zero
	// means the default of 2; set 1 to allow single-covariate models.
	Floor int
}

// DefaultFloor is the minimum covariate count when Selector.Floor is unset.
const DefaultFloor = 2

// Run scores the full spec as the baseline, then repeatedly drops the one
// covariate whose removal lowers the cross-validated score the most.
// Candidates are enumerated in the spec's covariate order and ties resolve
// to the first minimum. The search halts when no drop strictly improves on
// the last recorded score or when the floor is reached.
//
// Any candidate fit failure aborts the round: the board accumulated so far
// is returned together with an error naming the round and candidate
// formula. A failed fit is never treated as a score.
func (s *Selector) Run(ctx context.Context, ds *dataset.Dataset, spec modelspec.Spec, assign *folds.Assignment) (Board, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	floor := s.Floor
	if floor <= 0 {
		floor = DefaultFloor
	}
	if len(spec.Covariates) == 0 {
		return nil, eris.New("selection: spec has no covariates")
	}
	if floor > len(spec.Covariates) {
		return nil, eris.Errorf("selection: floor %d exceeds covariate count %d", floor, len(spec.Covariates))
	}

	baseline, err := s.Scorer.Score(ctx, ds, spec, assign)
	if err != nil {
		return nil, eris.Wrap(err, "selection: baseline score")
	}
	board := Board{{Score: baseline, Covariates: slices.Clone(spec.Covariates)}}
	zap.L().Info("selection: baseline",
		zap.Float64("score", baseline),
		zap.Strings("covariates", spec.Covariates),
	)

	current := spec
	currentScore := baseline
	for len(current.Covariates) > floor {
		round := len(board)

		bestScore := math.Inf(1)
		var bestSpec modelspec.Spec
		for _, name := range current.Covariates {
			cand, _ := current.Drop(name)
			score, err := s.Scorer.Score(ctx, ds, cand, assign)
			if err != nil {
				return board, eris.Wrapf(err, "selection: round %d, candidate %s", round, cand.Formula())
			}
			zap.L().Debug("selection: candidate",
				zap.Int("round", round),
				zap.String("dropped", name),
				zap.Float64("score", score),
			)
			// Strict comparison keeps the first minimum on ties.
			if score < bestScore {
				bestScore = score
				bestSpec = cand
			}
		}

		if bestScore >= currentScore {
			zap.L().Info("selection: no improving drop, stopping",
				zap.Int("round", round),
				zap.Float64("best_candidate", bestScore),
				zap.Float64("current", currentScore),
			)
			break
		}

		current = bestSpec
		currentScore = bestScore
		board = append(board, model.BoardEntry{Score: bestScore, Covariates: slices.Clone(current.Covariates)})
		zap.L().Info("selection: accepted drop",
			zap.Int("round", round),
			zap.Float64("score", bestScore),
			zap.Strings("covariates", current.Covariates),
		)
	}

	return board, nil
}
