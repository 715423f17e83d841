package workbench

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/dataframe"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
	"github.com/YuminosukeSato/automl/preprocessing"
	"github.com/YuminosukeSato/automl/sklearn/model_selection"
)

// ErrNoModels is the only user-facing error message of the workflow.
var ErrNoModels = errors.New("Please select at least one model to train")

// Test fraction bounds, in percent.
const (
	MinTestPercent     = 10
	MaxTestPercent     = 90
	TestPercentStep    = 5
	DefaultTestPercent = 20
)

// TrainOptions are the training form values.
type TrainOptions struct {
	Target      string
	ProblemType ProblemType
	TestPercent int
	Models      []string

	// HyperParams maps a display name to its hyperparameter. Missing entries
	// use DefaultHyperParam.
	HyperParams map[string]int
}

// TrainedModel is a fitted estimator paired with its display name.
type TrainedModel struct {
	Name        string
	Estimator   model.Estimator
	HyperParam  int
	FitDuration time.Duration
}

// TrainingRun is everything Evaluation and Download need from one Train
// action. It is replaced wholesale by the next successful run.
type TrainingRun struct {
	ProblemType ProblemType
	Target      string
	Features    []string
	NClasses    int
	TestPercent int
	Seed        int64

	Split  *model_selection.Split
	XTrain *mat.Dense
	XTest  *mat.Dense
	YTrain *mat.Dense
	YTest  *mat.Dense

	Models    []TrainedModel
	CreatedAt time.Time

	// evaluation is filled by the first Evaluate call.
	evaluation *evaluation
}

// TrainResult reports each fitted model.
type TrainResult struct {
	Messages []string
	Run      *TrainingRun
}

func (w *Workbench) seed() int64 {
	if w.opts.RandomSeed != 0 {
		return w.opts.RandomSeed
	}
	return time.Now().UnixNano()
}

func encode(f *dataframe.Frame) (*dataframe.Frame, error) {
	return preprocessing.NewOrdinalEncoder().FitTransform(f)
}

// TrainingData previews the ordinal-encoded dataset that Train fits on.
func (w *Workbench) TrainingData(sess *Session) (*TableView, error) {
	if sess.Data == nil {
		return nil, ErrNoDataset
	}
	encoded, err := encode(sess.Data)
	if err != nil {
		return nil, err
	}
	view := w.view(encoded)
	return &view, nil
}

// Train ordinal-encodes the dataset, splits it and fits every selected model
// in canonical order on the same split. A failing fit aborts the run and the
// previous run is kept.
func (w *Workbench) Train(sess *Session, opts TrainOptions) (res *TrainResult, err error) {
	start := time.Now()
	defer func() { w.finish(sess, StageTrain, start, err) }()

	if sess.Data == nil {
		return nil, ErrNoDataset
	}
	if len(opts.Models) == 0 {
		return nil, ErrNoModels
	}
	names, err := orderedSelection(opts.Models)
	if err != nil {
		return nil, err
	}
	if _, err := ParseProblemType(string(opts.ProblemType)); err != nil {
		return nil, err
	}
	if p := opts.TestPercent; p < MinTestPercent || p > MaxTestPercent || p%TestPercentStep != 0 {
		return nil, errors.NewValidationError("Test data size (%)",
			fmt.Sprintf("must be %d-%d in steps of %d", MinTestPercent, MaxTestPercent, TestPercentStep), p)
	}
	if !sess.Data.Has(opts.Target) {
		return nil, errors.NewKeyError("Train", opts.Target)
	}

	encoded, err := encode(sess.Data)
	if err != nil {
		return nil, err
	}
	features, err := encoded.Drop(opts.Target)
	if err != nil {
		return nil, err
	}
	X, err := features.Matrix()
	if err != nil {
		return nil, err
	}
	y, err := encoded.Matrix(opts.Target)
	if err != nil {
		return nil, err
	}
	target, _ := encoded.Column(opts.Target)

	run := &TrainingRun{
		ProblemType: opts.ProblemType,
		Target:      opts.Target,
		Features:    features.Columns(),
		NClasses:    target.NUnique(),
		TestPercent: opts.TestPercent,
		Seed:        w.seed(),
		CreatedAt:   time.Now(),
	}
	run.XTrain, run.XTest, run.YTrain, run.YTest, run.Split, err = model_selection.TrainTestSplit(
		X, y, float64(opts.TestPercent)/100, run.Seed)
	if err != nil {
		return nil, err
	}

	logger := w.logger.With(log.SessionKey, sess.ID, log.ProblemTypeKey, string(opts.ProblemType))
	logger.Info("Training started",
		log.SamplesKey, len(run.Split.Train),
		log.FeaturesKey, len(run.Features),
		log.ClassesKey, run.NClasses,
		log.RandomSeedKey, run.Seed,
	)

	res = &TrainResult{Run: run}
	for _, name := range names {
		n := DefaultHyperParam
		if v, ok := opts.HyperParams[name]; ok {
			n = v
		}
		est, err := newEstimator(name, opts.ProblemType, n, run.Seed)
		if err != nil {
			return nil, err
		}

		fitStart := time.Now()
		if err := est.Fit(run.XTrain, run.YTrain); err != nil {
			logger.Error("Model fit failed", log.ModelNameKey, name, log.ErrAttr(err))
			return nil, err
		}
		d := time.Since(fitStart)
		w.obs.ModelFitted(name, opts.ProblemType, d)
		logger.Info("Model fitted", log.ModelNameKey, name, log.DurationMsKey, d.Milliseconds())

		run.Models = append(run.Models, TrainedModel{Name: name, Estimator: est, HyperParam: n, FitDuration: d})
		res.Messages = append(res.Messages, fmt.Sprintf("%s model training complete! (%s)", name, d.Round(time.Millisecond)))
	}

	sess.Run = run
	sess.Target = opts.Target
	return res, nil
}
