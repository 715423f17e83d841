package server

import (
	"bytes"
	"net/http"

	"github.com/YuminosukeSato/automl/dataframe"
	"github.com/YuminosukeSato/automl/workbench"
)

// panel is the outcome of one stage action.
type panel struct {
	Err     string
	Notices []string
}

type hyperField struct {
	Index int
	Name  string
	Label string
	Value int
}

type evalRow struct {
	Name      string
	Scores    []float64
	Labels    []float64
	Confusion [][]float64
}

type evalView struct {
	Classification bool
	Average        string
	TestRows       int
	Headers        []string
	Rows           []evalRow
}

type download struct {
	Index    int
	Name     string
	Filename string
}

type page struct {
	Filename string
	Data     *workbench.TableView
	Missing  int
	Summary  *dataframe.Description

	HasCorrelation bool
	CountChoices   []string
	Counts         []string

	Columns       []string
	Target        string
	MaxComponents int
	Techniques    []string
	ModelNames    []string
	HyperParams   []hyperField
	MinHyperParam int
	MaxHyperParam int
	TestPercents  []int
	TestPercent   int

	Upload     panel
	Clean      panel
	Preprocess panel
	Train      panel

	CleanResult      *workbench.CleanResult
	PreprocessResult *workbench.PreprocessResult
	TrainingData     *workbench.TableView
	TrainingDataErr  string

	Eval      *evalView
	EvalErr   string
	Downloads []download
}

// render fills the dataset-derived fields of p from the session and writes
// the page. The caller holds the session lock.
func (s *Server) render(w http.ResponseWriter, r *http.Request, sess *workbench.Session, p *page, status int) {
	p.ModelNames = workbench.ModelNames
	p.Techniques = workbench.Techniques
	p.MinHyperParam = workbench.MinHyperParam
	p.MaxHyperParam = workbench.MaxHyperParam
	for pct := workbench.MinTestPercent; pct <= workbench.MaxTestPercent; pct += workbench.TestPercentStep {
		p.TestPercents = append(p.TestPercents, pct)
	}
	p.TestPercent = workbench.DefaultTestPercent
	for i, name := range workbench.ModelNames {
		p.HyperParams = append(p.HyperParams, hyperField{
			Index: i, Name: name, Label: workbench.HyperParamLabel(name), Value: workbench.DefaultHyperParam,
		})
	}

	if f := sess.Data; f != nil {
		p.Filename = sess.Filename
		view := workbench.NewTableView(f, 10)
		p.Data = &view
		p.Missing = f.MissingCount()
		p.Summary = f.Describe()
		p.HasCorrelation = len(f.NumericColumns()) > 0
		p.CountChoices = f.LowCardinalityColumns(CountsLimit)
		p.Counts = selectCounts(r.URL.Query()["counts"], p.CountChoices)
		p.Columns = f.Columns()
		p.Target = sess.DefaultTarget()
		rows, cols := f.Shape()
		p.MaxComponents = min(rows, cols)
		if td, err := s.wb.TrainingData(sess); err != nil {
			p.TrainingDataErr = err.Error()
		} else {
			p.TrainingData = td
		}
	}

	if run := sess.Run; run != nil {
		p.TestPercent = run.TestPercent
		for i, m := range run.Models {
			p.Downloads = append(p.Downloads, download{
				Index: i, Name: m.Name, Filename: workbench.ArtifactFilename(m.Name, s.wb.Compressed()),
			})
		}
		ev, err := s.wb.Evaluate(sess)
		if err != nil {
			p.EvalErr = err.Error()
		} else if ev != nil {
			p.Eval = newEvalView(ev)
		}
	}

	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "index.html", p); err != nil {
		s.log.Error().Err(err).Msg("template error")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func selectCounts(requested, choices []string) []string {
	ok := make(map[string]bool, len(choices))
	for _, c := range choices {
		ok[c] = true
	}
	var out []string
	for _, c := range requested {
		if ok[c] {
			out = append(out, c)
		}
	}
	return out
}

func newEvalView(ev *workbench.Evaluation) *evalView {
	v := &evalView{
		Classification: ev.ProblemType == workbench.Classification,
		TestRows:       ev.TestRows,
	}
	if v.Classification {
		v.Average = ev.Average.String()
		v.Headers = []string{"Accuracy", "Precision", "Recall", "F1"}
	} else {
		v.Headers = []string{"R2", "MAE", "MSE", "RMSE"}
	}
	for _, m := range ev.Models {
		row := evalRow{Name: m.Name}
		if c := m.Classification; c != nil {
			row.Scores = []float64{c.Accuracy, c.Precision, c.Recall, c.F1}
			row.Labels = c.Labels
			r, _ := c.Confusion.Dims()
			for i := 0; i < r; i++ {
				row.Confusion = append(row.Confusion, c.Confusion.RawRowView(i))
			}
		} else if g := m.Regression; g != nil {
			row.Scores = []float64{g.R2, g.MAE, g.MSE, g.RMSE}
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}
