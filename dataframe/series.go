package dataframe

import (
	"math"
	"sort"
	"strconv"
)

// Kind is the storage type of a column.
type Kind int

const (
	// Numeric columns hold float64 values; NaN marks a missing cell.
	Numeric Kind = iota
	// Text columns hold strings with a separate null mask.
	Text
)

func (k Kind) String() string {
	if k == Numeric {
		return "float64"
	}
	return "object"
}

// Series is a single named column.
type Series struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Strings []string
	Null    []bool
}

// NewNumericSeries creates a numeric column. NaN values are missing.
func NewNumericSeries(name string, values []float64) *Series {
	return &Series{Name: name, Kind: Numeric, Floats: values}
}

// NewTextSeries creates a text column. null may be nil when nothing is missing.
func NewTextSeries(name string, values []string, null []bool) *Series {
	if null == nil {
		null = make([]bool, len(values))
	}
	return &Series{Name: name, Kind: Text, Strings: values, Null: null}
}

// Len returns the number of rows.
func (s *Series) Len() int {
	if s.Kind == Numeric {
		return len(s.Floats)
	}
	return len(s.Strings)
}

// IsNull reports whether row i is missing.
func (s *Series) IsNull(i int) bool {
	if s.Kind == Numeric {
		return math.IsNaN(s.Floats[i])
	}
	return s.Null[i]
}

// NullCount returns the number of missing cells.
func (s *Series) NullCount() int {
	n := 0
	for i := 0; i < s.Len(); i++ {
		if s.IsNull(i) {
			n++
		}
	}
	return n
}

// Key returns a canonical string for row i, used for grouping and labels.
// Missing cells map to "NaN".
func (s *Series) Key(i int) string {
	if s.IsNull(i) {
		return "NaN"
	}
	if s.Kind == Numeric {
		return strconv.FormatFloat(s.Floats[i], 'g', -1, 64)
	}
	return s.Strings[i]
}

// Format renders row i for display.
func (s *Series) Format(i int) string {
	if s.IsNull(i) {
		return "NaN"
	}
	if s.Kind == Numeric {
		return FormatFloat(s.Floats[i])
	}
	return s.Strings[i]
}

// FormatFloat renders v the way tables in the UI show numbers.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case v == math.Trunc(v) && math.Abs(v) < 1e15:
		return strconv.FormatFloat(v, 'f', 1, 64)
	default:
		return strconv.FormatFloat(v, 'g', 6, 64)
	}
}

// Labels returns Key for every row.
func (s *Series) Labels() []string {
	out := make([]string, s.Len())
	for i := range out {
		out[i] = s.Key(i)
	}
	return out
}

// NUnique counts distinct non-missing values.
func (s *Series) NUnique() int {
	seen := make(map[string]struct{})
	for i := 0; i < s.Len(); i++ {
		if !s.IsNull(i) {
			seen[s.Key(i)] = struct{}{}
		}
	}
	return len(seen)
}

// ValueCount is one entry of ValueCounts.
type ValueCount struct {
	Value string
	Count int
}

// ValueCounts counts non-missing values, most frequent first. Ties keep the
// order in which values first appear. Values are grouped at full precision;
// Value is the display form, or the full Key when two groups would display
// alike.
func (s *Series) ValueCounts() []ValueCount {
	pos := make(map[string]int)
	var (
		counts []ValueCount
		keys   []string
	)
	for i := 0; i < s.Len(); i++ {
		if s.IsNull(i) {
			continue
		}
		k := s.Key(i)
		if p, ok := pos[k]; ok {
			counts[p].Count++
			continue
		}
		pos[k] = len(counts)
		keys = append(keys, k)
		counts = append(counts, ValueCount{Value: s.Format(i), Count: 1})
	}

	shown := make(map[string]int, len(counts))
	for _, c := range counts {
		shown[c.Value]++
	}
	for p := range counts {
		if shown[counts[p].Value] > 1 {
			counts[p].Value = keys[p]
		}
	}

	sort.SliceStable(counts, func(a, b int) bool { return counts[a].Count > counts[b].Count })
	return counts
}

// Take returns a new series with the given rows, in order. Indices may repeat.
func (s *Series) Take(idx []int) *Series {
	out := &Series{Name: s.Name, Kind: s.Kind}
	if s.Kind == Numeric {
		out.Floats = make([]float64, len(idx))
		for j, i := range idx {
			out.Floats[j] = s.Floats[i]
		}
		return out
	}
	out.Strings = make([]string, len(idx))
	out.Null = make([]bool, len(idx))
	for j, i := range idx {
		out.Strings[j] = s.Strings[i]
		out.Null[j] = s.Null[i]
	}
	return out
}

// Rename returns a shallow copy of s under a new name.
func (s *Series) Rename(name string) *Series {
	c := *s
	c.Name = name
	return &c
}

// NonNullFloats returns the numeric values without NaN.
func (s *Series) NonNullFloats() []float64 {
	out := make([]float64, 0, len(s.Floats))
	for _, v := range s.Floats {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func (s *Series) equalAt(i, j int) bool {
	ni, nj := s.IsNull(i), s.IsNull(j)
	if ni || nj {
		return ni && nj
	}
	if s.Kind == Numeric {
		return s.Floats[i] == s.Floats[j]
	}
	return s.Strings[i] == s.Strings[j]
}
