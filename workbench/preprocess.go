package workbench

import (
	"fmt"
	"strconv"
	"time"

	"github.com/YuminosukeSato/automl/dataframe"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
	"github.com/YuminosukeSato/automl/preprocessing"
	"github.com/YuminosukeSato/automl/sklearn/decomposition"
	"github.com/YuminosukeSato/automl/sklearn/imbalance"
)

// Balancing techniques.
const (
	OverSampling  = "Over Sampling"
	UnderSampling = "Under Sampling"
	Combined      = "Combined"
)

// Techniques lists the balancing choices in form order.
var Techniques = []string{OverSampling, UnderSampling, Combined}

// balanceSeed is the fixed random_state of every balancing technique.
const balanceSeed = 0

// PreprocessOptions selects the transforms. When both are set, balancing runs
// before PCA. Target serves both and becomes the session target.
type PreprocessOptions struct {
	Balance    bool
	Technique  string
	PCA        bool
	Components int
	Target     string
}

// PreprocessResult is the transformed dataset. TargetCounts is set when
// balancing ran.
type PreprocessResult struct {
	TableView
	Target       string
	TargetCounts []dataframe.ValueCount
}

// Preprocess balances and/or projects the dataset. On error the session is
// unchanged.
func (w *Workbench) Preprocess(sess *Session, opts PreprocessOptions) (res *PreprocessResult, err error) {
	start := time.Now()
	defer func() { w.finish(sess, StagePreprocess, start, err) }()

	if sess.Data == nil {
		return nil, ErrNoDataset
	}
	if !opts.Balance && !opts.PCA {
		return nil, errors.NewValidationError("preprocessing", "select at least one option", "")
	}
	if !sess.Data.Has(opts.Target) {
		return nil, errors.NewKeyError("Preprocess", opts.Target)
	}

	f := sess.Data
	res = &PreprocessResult{Target: opts.Target}
	if opts.Balance {
		if f, err = balance(f, opts.Target, opts.Technique); err != nil {
			return nil, err
		}
		target, _ := f.Column(opts.Target)
		res.TargetCounts = target.ValueCounts()
	}
	if opts.PCA {
		if f, err = project(f, opts.Target, opts.Components); err != nil {
			return nil, err
		}
	}

	sess.Data = f
	sess.Target = opts.Target
	res.TableView = w.view(f)
	w.logger.Debug("Dataset preprocessed",
		log.SessionKey, sess.ID,
		"preprocess.balance", opts.Technique,
		"preprocess.pca", opts.Components,
		log.SamplesKey, res.Rows,
	)
	return res, nil
}

// balance resamples rows so that target classes have equal counts. The
// features keep their names and the target is moved to the last column.
func balance(f *dataframe.Frame, target, technique string) (*dataframe.Frame, error) {
	y, err := f.Column(target)
	if err != nil {
		return nil, err
	}
	codes, err := encodeColumn(f, target)
	if err != nil {
		return nil, err
	}
	features, err := f.Drop(target)
	if err != nil {
		return nil, err
	}

	var sampler imbalance.Sampler
	switch technique {
	case OverSampling:
		sampler = imbalance.NewRandomOverSampler(balanceSeed)
	case UnderSampling:
		sampler = imbalance.NewRandomUnderSampler(balanceSeed)
	case Combined:
		return smoteenn(features, y, codes)
	default:
		return nil, errors.NewValidationError("sampling technique", "unknown technique", technique)
	}

	idx, err := sampler.SampleIndices(codes)
	if err != nil {
		return nil, err
	}
	return features.Take(idx).WithColumn(y.Take(idx))
}

// smoteenn synthesises numeric feature rows. The synthetic target values are
// copied from a representative row of their class so the column keeps its type.
func smoteenn(features *dataframe.Frame, y *dataframe.Series, codes []float64) (*dataframe.Frame, error) {
	X, err := features.Matrix()
	if err != nil {
		return nil, err
	}
	Xr, yr, err := imbalance.NewSMOTEENN(balanceSeed).FitResample(X, codes)
	if err != nil {
		return nil, err
	}

	rep := make(map[float64]int)
	for i, c := range codes {
		if _, ok := rep[c]; !ok {
			rep[c] = i
		}
	}
	idx := make([]int, len(yr))
	for i, c := range yr {
		idx[i] = rep[c]
	}

	out, err := dataframe.FromMatrix(features.Columns(), Xr)
	if err != nil {
		return nil, err
	}
	return out.WithColumn(y.Take(idx))
}

// project ordinal-encodes every column, replaces the non-target columns with
// k principal components named "0".."k-1" and reattaches the unencoded target.
func project(f *dataframe.Frame, target string, k int) (*dataframe.Frame, error) {
	rows, cols := f.Shape()
	if limit := min(rows, cols); k < 1 || k > limit {
		return nil, errors.NewValidationError("Number of PCA components", fmt.Sprintf("must be in [1, %d]", limit), k)
	}
	y, err := f.Column(target)
	if err != nil {
		return nil, err
	}

	encoded, err := preprocessing.NewOrdinalEncoder().FitTransform(f)
	if err != nil {
		return nil, err
	}
	features, err := encoded.Drop(target)
	if err != nil {
		return nil, err
	}
	X, err := features.Matrix()
	if err != nil {
		return nil, err
	}
	Z, err := decomposition.NewPCA(k).FitTransform(X)
	if err != nil {
		return nil, err
	}

	names := make([]string, k)
	for i := range names {
		names[i] = strconv.Itoa(i)
		if names[i] == target {
			return nil, errors.NewValueError("Preprocess",
				fmt.Sprintf("target column %q collides with a component name", target))
		}
	}
	out, err := dataframe.FromMatrix(names, Z)
	if err != nil {
		return nil, err
	}
	return out.WithColumn(y)
}

// encodeColumn returns the ordinal codes of one column.
func encodeColumn(f *dataframe.Frame, name string) ([]float64, error) {
	col, err := f.Select(name)
	if err != nil {
		return nil, err
	}
	enc, err := preprocessing.NewOrdinalEncoder().FitTransform(col)
	if err != nil {
		return nil, err
	}
	return enc.At(0).Floats, nil
}
