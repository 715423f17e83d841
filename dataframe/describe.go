package dataframe

import (
	"math"
	"sort"
	"strconv"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Description is the result of Describe: one row per statistic, one column
// per described frame column.
type Description struct {
	Index   []string
	Columns []string
	Cells   [][]string
	// Values holds the numeric statistics (nil for a text description).
	Values [][]float64
}

var numericIndex = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// Describe summarises numeric columns with count, mean, std, min, quartiles
// and max. Frames without numeric columns are summarised with count, unique,
// top and freq over their text columns instead.
func (f *Frame) Describe() *Description {
	numeric := f.NumericColumns()
	if len(numeric) == 0 {
		return f.describeText()
	}

	d := &Description{Index: numericIndex, Columns: numeric}
	d.Values = make([][]float64, len(numericIndex))
	for r := range d.Values {
		d.Values[r] = make([]float64, len(numeric))
	}
	for j, name := range numeric {
		c, _ := f.Column(name)
		for r, v := range describeNumeric(c.NonNullFloats()) {
			d.Values[r][j] = v
		}
	}
	d.Cells = make([][]string, len(d.Values))
	for r, row := range d.Values {
		d.Cells[r] = make([]string, len(row))
		for j, v := range row {
			d.Cells[r][j] = formatStat(v)
		}
	}
	return d
}

func describeNumeric(data stats.Float64Data) []float64 {
	out := []float64{float64(len(data)), math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()}
	if len(data) == 0 {
		return out
	}
	out[1], _ = stats.Mean(data)
	if len(data) > 1 {
		out[2], _ = stats.StandardDeviationSample(data)
	}
	out[3], _ = stats.Min(data)
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	out[4] = quantile(sorted, 0.25)
	out[5], _ = stats.Median(data)
	out[6] = quantile(sorted, 0.75)
	out[7], _ = stats.Max(data)
	return out
}

// quantile uses linear interpolation between closest ranks (numpy "linear").
func quantile(sorted []float64, q float64) float64 {
	h := q * float64(len(sorted)-1)
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func (f *Frame) describeText() *Description {
	d := &Description{Index: []string{"count", "unique", "top", "freq"}}
	d.Cells = make([][]string, 4)
	for _, c := range f.columns {
		d.Columns = append(d.Columns, c.Name)
		counts := c.ValueCounts()
		top, freq := "NaN", "NaN"
		if len(counts) > 0 {
			top, freq = counts[0].Value, strconv.Itoa(counts[0].Count)
		}
		d.Cells[0] = append(d.Cells[0], strconv.Itoa(c.Len()-c.NullCount()))
		d.Cells[1] = append(d.Cells[1], strconv.Itoa(len(counts)))
		d.Cells[2] = append(d.Cells[2], top)
		d.Cells[3] = append(d.Cells[3], freq)
	}
	return d
}

// Correlation is a Pearson correlation matrix over the numeric columns.
type Correlation struct {
	Columns []string
	Values  *mat.SymDense
}

// Correlation computes pairwise Pearson correlation between numeric columns,
// using only rows where both values are present. Pairs with fewer than two
// complete rows are NaN.
func (f *Frame) Correlation() *Correlation {
	names := f.NumericColumns()
	n := len(names)
	corr := &Correlation{Columns: names}
	if n == 0 {
		return corr
	}
	corr.Values = mat.NewSymDense(n, nil)

	series := make([]*Series, n)
	for i, name := range names {
		series[i], _ = f.Column(name)
	}
	x := make([]float64, 0, f.rows)
	y := make([]float64, 0, f.rows)
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			x, y = x[:0], y[:0]
			for i := 0; i < f.rows; i++ {
				va, vb := series[a].Floats[i], series[b].Floats[i]
				if math.IsNaN(va) || math.IsNaN(vb) {
					continue
				}
				x = append(x, va)
				y = append(y, vb)
			}
			r := math.NaN()
			if len(x) > 1 {
				r = stat.Correlation(x, y, nil)
				if a == b && !math.IsNaN(r) {
					r = 1
				}
			}
			corr.Values.SetSym(a, b, r)
		}
	}
	return corr
}
