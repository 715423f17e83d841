package workbench

import (
	"fmt"
	"strings"
	"time"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/metrics"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// ModelScores is one row of the evaluation table. Exactly one of
// Classification and Regression is set.
type ModelScores struct {
	Name           string
	Classification *metrics.ClassificationScores
	Regression     *metrics.RegressionScores
}

// Evaluation is the metrics table of the stored training run.
type Evaluation struct {
	ProblemType ProblemType
	Average     metrics.Average
	TestRows    int
	Models      []ModelScores
}

type evaluation struct {
	ev  *Evaluation
	err error
}

// Evaluate scores every model of the last training run on its held-out split.
// It returns nil when there is no run. The result is computed once per run;
// later calls return it without predicting or reporting the stage again.
func (w *Workbench) Evaluate(sess *Session) (*Evaluation, error) {
	run := sess.Run
	if run == nil || len(run.Models) == 0 {
		return nil, nil
	}
	if run.evaluation == nil {
		start := time.Now()
		ev, err := w.evaluate(run)
		w.finish(sess, StageEvaluate, start, err)
		run.evaluation = &evaluation{ev: ev, err: err}
	}
	return run.evaluation.ev, run.evaluation.err
}

func (w *Workbench) evaluate(run *TrainingRun) (*Evaluation, error) {
	yTrue, err := metrics.VecFromMatrix(run.YTest)
	if err != nil {
		return nil, err
	}
	testRows, _ := run.XTest.Dims()
	ev := &Evaluation{ProblemType: run.ProblemType, TestRows: testRows}
	if run.ProblemType == Classification {
		ev.Average = metrics.AverageFor(run.NClasses)
	}

	for _, m := range run.Models {
		pred, err := m.Estimator.Predict(run.XTest)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", m.Name)
		}
		yPred, err := metrics.VecFromMatrix(pred)
		if err != nil {
			return nil, err
		}

		row := ModelScores{Name: m.Name}
		if run.ProblemType == Classification {
			if row.Classification, err = metrics.ClassificationReport(yTrue, yPred, ev.Average); err != nil {
				return nil, err
			}
			w.logger.Debug("Model evaluated", log.ModelNameKey, m.Name, log.AccuracyKey, row.Classification.Accuracy)
		} else {
			if row.Regression, err = metrics.RegressionReport(yTrue, yPred); err != nil {
				return nil, err
			}
			w.logger.Debug("Model evaluated", log.ModelNameKey, m.Name, log.R2ScoreKey, row.Regression.R2)
		}
		ev.Models = append(ev.Models, row)
	}
	return ev, nil
}

// ArtifactContentType is the MIME type of every download.
const ArtifactContentType = "application/octet-stream"

// ArtifactFile is a serialised model ready to download.
type ArtifactFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ArtifactFilename returns "<display name>_model.gob", with path separators
// replaced by "-". Compressed artifacts end in ".gob.zst".
func ArtifactFilename(name string, compressed bool) string {
	safe := strings.NewReplacer("/", "-", "\\", "-").Replace(name)
	if compressed {
		return safe + "_model.gob.zst"
	}
	return safe + "_model.gob"
}

// Artifact serialises the index-th model of the stored run.
func (w *Workbench) Artifact(sess *Session, index int) (file *ArtifactFile, err error) {
	run := sess.Run
	if run == nil || index < 0 || index >= len(run.Models) {
		return nil, errors.NewValidationError("model index", "no such trained model", index)
	}
	start := time.Now()
	defer func() { w.finish(sess, StageDownload, start, err) }()

	m := run.Models[index]
	b := &model.Bundle{
		Name:        m.Name,
		ProblemType: string(run.ProblemType),
		Target:      run.Target,
		Features:    run.Features,
		Params:      stringParams(m),
		CreatedAt:   run.CreatedAt,
		Estimator:   m.Estimator,
	}

	var opts []model.CodecOption
	if w.opts.Compress {
		opts = append(opts, model.WithCompression(w.opts.CompressLevel))
	}
	data, err := model.Marshal(b, opts...)
	if err != nil {
		return nil, err
	}
	return &ArtifactFile{
		Filename:    ArtifactFilename(m.Name, w.opts.Compress),
		ContentType: ArtifactContentType,
		Data:        data,
	}, nil
}

func stringParams(m TrainedModel) map[string]string {
	out := map[string]string{HyperParamLabel(m.Name): fmt.Sprint(m.HyperParam)}
	if g, ok := m.Estimator.(model.ParameterGetter); ok {
		for k, v := range g.GetParams() {
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}
