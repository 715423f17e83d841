// Package dataframe is the in-memory table behind the workbench: a set of
// equally long named columns, each either numeric or text, with the pandas
// operations the workbench stages need.
package dataframe

import (
	"fmt"

	"github.com/YuminosukeSato/automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Frame is an immutable-by-convention table. Operations return new frames.
type Frame struct {
	columns []*Series
	index   map[string]int
	rows    int
}

// New builds a frame from columns of equal length with unique names.
func New(columns ...*Series) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(columns))}
	for i, c := range columns {
		if i == 0 {
			f.rows = c.Len()
		} else if c.Len() != f.rows {
			return nil, errors.NewDimensionError("dataframe.New", f.rows, c.Len(), 0)
		}
		if _, dup := f.index[c.Name]; dup {
			return nil, errors.NewValueError("dataframe.New", fmt.Sprintf("duplicate column name %q", c.Name))
		}
		f.index[c.Name] = i
		f.columns = append(f.columns, c)
	}
	return f, nil
}

func mustNew(columns []*Series) *Frame {
	f, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return f
}

// FromMatrix builds a numeric frame from X with the given column names.
func FromMatrix(names []string, X mat.Matrix) (*Frame, error) {
	r, c := X.Dims()
	if len(names) != c {
		return nil, errors.NewDimensionError("dataframe.FromMatrix", c, len(names), 1)
	}
	cols := make([]*Series, c)
	for j := 0; j < c; j++ {
		vals := make([]float64, r)
		for i := 0; i < r; i++ {
			vals[i] = X.At(i, j)
		}
		cols[j] = NewNumericSeries(names[j], vals)
	}
	return New(cols...)
}

// Shape returns (rows, columns).
func (f *Frame) Shape() (int, int) {
	return f.rows, len(f.columns)
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether a column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the named column.
func (f *Frame) Column(name string) (*Series, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, errors.NewKeyError("Frame.Column", name)
	}
	return f.columns[i], nil
}

// At returns the i-th column.
func (f *Frame) At(i int) *Series {
	return f.columns[i]
}

// Row renders row i for display.
func (f *Frame) Row(i int) []string {
	out := make([]string, len(f.columns))
	for j, c := range f.columns {
		out[j] = c.Format(i)
	}
	return out
}

// Head returns the first n rows.
func (f *Frame) Head(n int) *Frame {
	if n > f.rows {
		n = f.rows
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return f.Take(idx)
}

// Take returns the given rows in order. Indices may repeat.
func (f *Frame) Take(idx []int) *Frame {
	cols := make([]*Series, len(f.columns))
	for j, c := range f.columns {
		cols[j] = c.Take(idx)
	}
	out := mustNew(cols)
	out.rows = len(idx)
	return out
}

// Select returns the named columns in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]*Series, 0, len(names))
	var missing []string
	for _, n := range names {
		i, ok := f.index[n]
		if !ok {
			missing = append(missing, n)
			continue
		}
		cols = append(cols, f.columns[i])
	}
	if len(missing) > 0 {
		return nil, errors.NewKeyError("Frame.Select", missing...)
	}
	out := mustNew(cols)
	out.rows = f.rows
	return out, nil
}

// Drop removes the named columns. Unknown names are an error and leave f untouched.
func (f *Frame) Drop(names ...string) (*Frame, error) {
	drop := make(map[string]bool, len(names))
	var missing []string
	for _, n := range names {
		if !f.Has(n) {
			missing = append(missing, n)
		}
		drop[n] = true
	}
	if len(missing) > 0 {
		return nil, errors.NewKeyError("Frame.Drop", missing...)
	}
	cols := make([]*Series, 0, len(f.columns))
	for _, c := range f.columns {
		if !drop[c.Name] {
			cols = append(cols, c)
		}
	}
	out := mustNew(cols)
	out.rows = f.rows
	return out, nil
}

// WithColumn returns a frame with s appended, or replacing the column of the same name.
func (f *Frame) WithColumn(s *Series) (*Frame, error) {
	if len(f.columns) > 0 && s.Len() != f.rows {
		return nil, errors.NewDimensionError("Frame.WithColumn", f.rows, s.Len(), 0)
	}
	cols := make([]*Series, len(f.columns), len(f.columns)+1)
	copy(cols, f.columns)
	if i, ok := f.index[s.Name]; ok {
		cols[i] = s
	} else {
		cols = append(cols, s)
	}
	return New(cols...)
}

// MissingCount returns the total number of missing cells.
func (f *Frame) MissingCount() int {
	n := 0
	for _, c := range f.columns {
		n += c.NullCount()
	}
	return n
}

// NumericColumns returns the names of numeric columns.
func (f *Frame) NumericColumns() []string {
	var names []string
	for _, c := range f.columns {
		if c.Kind == Numeric {
			names = append(names, c.Name)
		}
	}
	return names
}

// LowCardinalityColumns returns columns with fewer than limit distinct values.
func (f *Frame) LowCardinalityColumns(limit int) []string {
	var names []string
	for _, c := range f.columns {
		if c.NUnique() < limit {
			names = append(names, c.Name)
		}
	}
	return names
}

// Matrix returns the named columns (all columns when names is empty) as a
// dense matrix. Text columns cannot be converted and produce a ValueError.
func (f *Frame) Matrix(names ...string) (*mat.Dense, error) {
	if len(names) == 0 {
		names = f.Columns()
	}
	if f.rows == 0 || len(names) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "Frame.Matrix: shape (%d, %d)", f.rows, len(names))
	}
	X := mat.NewDense(f.rows, len(names), nil)
	for j, n := range names {
		c, err := f.Column(n)
		if err != nil {
			return nil, err
		}
		if c.Kind != Numeric {
			first := ""
			for i := 0; i < c.Len(); i++ {
				if !c.IsNull(i) {
					first = c.Strings[i]
					break
				}
			}
			return nil, errors.NewValueError("Frame.Matrix", fmt.Sprintf("could not convert string to float: '%s'", first))
		}
		for i, v := range c.Floats {
			X.Set(i, j, v)
		}
	}
	return X, nil
}
