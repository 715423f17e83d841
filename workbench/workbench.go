// Package workbench sequences the stages of the AutoML workflow over a
// server-held session: upload, clean, preprocess, train, evaluate and
// download. Each stage reads the session dataset, calls into the ML packages
// and writes the result back wholesale.
package workbench

import (
	"io"
	"time"

	"github.com/YuminosukeSato/automl/dataframe"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// Stage names used for logging and metrics.
const (
	StageUpload     = "upload"
	StageClean      = "clean"
	StagePreprocess = "preprocess"
	StageTrain      = "train"
	StageEvaluate   = "evaluate"
	StageDownload   = "download"
)

// ErrNoDataset is returned by stages that need an uploaded dataset.
var ErrNoDataset = errors.New("no dataset uploaded")

// Observer receives workflow events, e.g. to export metrics.
type Observer interface {
	StageCompleted(stage string, err error)
	ModelFitted(name string, problem ProblemType, d time.Duration)
	RowsUploaded(n int)
}

type nopObserver struct{}

func (nopObserver) StageCompleted(string, error) {}
func (nopObserver) ModelFitted(string, ProblemType, time.Duration) {}
func (nopObserver) RowsUploaded(int) {}

// Options configures a Workbench.
type Options struct {
	// RandomSeed seeds the train/test split and the forests. Zero picks a
	// time-based seed on every run.
	RandomSeed int64

	// Compress wraps artifacts in zstd at CompressLevel.
	Compress      bool
	CompressLevel int

	// PreviewRows is the number of rows shown after a stage.
	PreviewRows int

	Observer Observer

	// Logger defaults to the "workbench" component logger.
	Logger log.Logger
}

// Workbench runs stages against sessions.
type Workbench struct {
	opts   Options
	logger log.Logger
	obs    Observer
}

// New creates a Workbench.
func New(opts Options) *Workbench {
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = 10
	}
	obs := opts.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.GetLoggerWithName("workbench")
	}
	return &Workbench{opts: opts, logger: logger, obs: obs}
}

func (w *Workbench) finish(sess *Session, stage string, start time.Time, err error) {
	w.obs.StageCompleted(stage, err)
	if err != nil {
		w.logger.Warn("Stage failed", log.SessionKey, sess.ID, log.StageKey, stage, log.ErrAttr(err))
		return
	}
	w.logger.Info("Stage completed",
		log.SessionKey, sess.ID,
		log.StageKey, stage,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
}

// TableView is a rendered slice of a dataset.
type TableView struct {
	Rows    int
	Cols    int
	Columns []string
	Preview [][]string
}

// Compressed reports whether artifacts are zstd-wrapped.
func (w *Workbench) Compressed() bool { return w.opts.Compress }

func (w *Workbench) view(f *dataframe.Frame) TableView {
	return NewTableView(f, w.opts.PreviewRows)
}

// NewTableView returns the shape of f and its first n rows as display strings.
func NewTableView(f *dataframe.Frame, n int) TableView {
	r, c := f.Shape()
	head := f.Head(n)
	hr, _ := head.Shape()
	preview := make([][]string, hr)
	for i := range preview {
		preview[i] = head.Row(i)
	}
	return TableView{Rows: r, Cols: c, Columns: f.Columns(), Preview: preview}
}

// Upload parses a .csv or .xlsx file and replaces the session dataset. The
// previous training run is kept.
func (w *Workbench) Upload(sess *Session, filename string, r io.Reader) (view *TableView, err error) {
	start := time.Now()
	defer func() { w.finish(sess, StageUpload, start, err) }()

	f, err := dataframe.Read(filename, r)
	if err != nil {
		return nil, err
	}
	sess.Data = f
	sess.Filename = filename

	rows, cols := f.Shape()
	w.obs.RowsUploaded(rows)
	w.logger.Debug("Dataset uploaded", log.SessionKey, sess.ID, log.SamplesKey, rows, log.FeaturesKey, cols)

	v := w.view(f)
	return &v, nil
}

// CleanOptions are the cleaning checkboxes. They are applied in field order.
type CleanOptions struct {
	DropNARows     bool
	DropNAColumns  bool
	DropDuplicates bool
	DropColumns    []string
}

// CleanResult is the cleaned dataset and its remaining missing cells.
type CleanResult struct {
	TableView
	Missing int
}

// Clean applies the selected cleaning steps. On error the dataset is unchanged.
func (w *Workbench) Clean(sess *Session, opts CleanOptions) (res *CleanResult, err error) {
	start := time.Now()
	defer func() { w.finish(sess, StageClean, start, err) }()

	if sess.Data == nil {
		return nil, ErrNoDataset
	}
	f := sess.Data
	if opts.DropNARows {
		f = f.DropNARows()
	}
	if opts.DropNAColumns {
		f = f.DropNAColumns()
	}
	if opts.DropDuplicates {
		f = f.DropDuplicates()
	}
	if len(opts.DropColumns) > 0 {
		if f, err = f.Drop(opts.DropColumns...); err != nil {
			return nil, err
		}
	}

	sess.Data = f
	return &CleanResult{TableView: w.view(f), Missing: f.MissingCount()}, nil
}
