package workbench

import (
	"fmt"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/sklearn/boosting"
	"github.com/YuminosukeSato/automl/sklearn/ensemble"
	"github.com/YuminosukeSato/automl/sklearn/linear_model"
	"github.com/YuminosukeSato/automl/sklearn/pipeline"
)

// ProblemType applies to every model of a training run.
type ProblemType string

const (
	Classification ProblemType = "Classification"
	Regression     ProblemType = "Regression"
)

// ParseProblemType validates a form value.
func ParseProblemType(s string) (ProblemType, error) {
	switch ProblemType(s) {
	case Classification, Regression:
		return ProblemType(s), nil
	}
	return "", errors.NewValidationError("problem_type", "must be Classification or Regression", s)
}

// Display names of the selectable models.
const (
	ModelLinear            = "Logistic/Linear Regression"
	ModelRandomForest      = "Random Forest"
	ModelGradientBoosting  = "Gradient Boosting"
	ModelSymmetricBoosting = "Symmetric Boosting"
)

// ModelNames is the canonical model order. Trained models always follow it.
var ModelNames = []string{ModelLinear, ModelRandomForest, ModelGradientBoosting, ModelSymmetricBoosting}

// Bounds of the single hyperparameter every model exposes.
const (
	MinHyperParam     = 100
	MaxHyperParam     = 10000
	DefaultHyperParam = 1000
)

// HyperParamLabel is the form label of a model's hyperparameter.
func HyperParamLabel(name string) string {
	if name == ModelLinear {
		return "Maximum number of iterations"
	}
	return "Number of estimators"
}

// newEstimator builds an unfitted estimator for a display name. For the linear
// model the hyperparameter is max_iter and is ignored by LinearRegression.
func newEstimator(name string, problem ProblemType, n int, seed int64) (model.Estimator, error) {
	if n < MinHyperParam || n > MaxHyperParam {
		return nil, errors.NewValidationError(HyperParamLabel(name),
			fmt.Sprintf("must be in [%d, %d]", MinHyperParam, MaxHyperParam), n)
	}
	clf := problem == Classification

	switch name {
	case ModelLinear:
		if clf {
			return pipeline.New(linear_model.NewLogisticRegression(linear_model.WithLRMaxIter(n))), nil
		}
		return pipeline.New(linear_model.NewLinearRegression()), nil
	case ModelRandomForest:
		if clf {
			return ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(n), ensemble.WithRandomState(seed)), nil
		}
		return ensemble.NewRandomForestRegressor(ensemble.WithNEstimators(n), ensemble.WithRandomState(seed)), nil
	case ModelGradientBoosting:
		if clf {
			return boosting.NewGradientBoostingClassifier(boosting.WithNEstimators(n)), nil
		}
		return boosting.NewGradientBoostingRegressor(boosting.WithNEstimators(n)), nil
	case ModelSymmetricBoosting:
		if clf {
			return boosting.NewSymmetricBoostingClassifier(boosting.WithNEstimators(n)), nil
		}
		return boosting.NewSymmetricBoostingRegressor(boosting.WithNEstimators(n)), nil
	}
	return nil, errors.NewValidationError("model", "unknown model", name)
}

// orderedSelection returns the selected names in canonical order, without
// duplicates. Unknown names are an error.
func orderedSelection(selected []string) ([]string, error) {
	want := make(map[string]bool, len(selected))
	for _, s := range selected {
		known := false
		for _, n := range ModelNames {
			if s == n {
				known = true
				break
			}
		}
		if !known {
			return nil, errors.NewValidationError("model", "unknown model", s)
		}
		want[s] = true
	}
	var out []string
	for _, n := range ModelNames {
		if want[n] {
			out = append(out, n)
		}
	}
	return out, nil
}
