package preprocessing

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/YuminosukeSato/automl/dataframe"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// OrdinalEncoder はscikit-learn互換の順序エンコーダー
// 各列のユニーク値を昇順に並べ、その位置 (0, 1, 2, ...) に置き換える。
// 数値列も同様にランクへ変換される。欠損値はNaNのまま残す。
type OrdinalEncoder struct {
	// Columns は学習時の列名
	Columns []string

	// Categories は列ごとのカテゴリ (Series.Key 表現、昇順)
	Categories [][]string

	Fitted bool

	lookup []map[string]int
}

// NewOrdinalEncoder は新しいOrdinalEncoderを作成する
func NewOrdinalEncoder() *OrdinalEncoder {
	return &OrdinalEncoder{}
}

// Fit は列ごとのカテゴリを学習する
func (e *OrdinalEncoder) Fit(f *dataframe.Frame) error {
	rows, cols := f.Shape()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("OrdinalEncoder.Fit", "empty data", errors.ErrEmptyData)
	}

	e.Columns = f.Columns()
	e.Categories = make([][]string, cols)
	for j := 0; j < cols; j++ {
		e.Categories[j] = categories(f.At(j))
	}
	e.buildLookup()
	e.Fitted = true
	return nil
}

func categories(s *dataframe.Series) []string {
	if s.Kind == dataframe.Numeric {
		vals := s.NonNullFloats()
		sort.Float64s(vals)
		out := make([]string, 0, len(vals))
		for i, v := range vals {
			if i > 0 && v == vals[i-1] {
				continue
			}
			out = append(out, strconv.FormatFloat(v, 'g', -1, 64))
		}
		return out
	}

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for i := 0; i < s.Len(); i++ {
		if s.IsNull(i) {
			continue
		}
		k := s.Key(i)
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (e *OrdinalEncoder) buildLookup() {
	e.lookup = make([]map[string]int, len(e.Categories))
	for j, cats := range e.Categories {
		m := make(map[string]int, len(cats))
		for code, k := range cats {
			m[k] = code
		}
		e.lookup[j] = m
	}
}

// Transform は各セルをカテゴリ番号に置き換えた数値フレームを返す
func (e *OrdinalEncoder) Transform(f *dataframe.Frame) (*dataframe.Frame, error) {
	if !e.Fitted {
		return nil, errors.NewNotFittedError("OrdinalEncoder", "Transform")
	}
	rows, cols := f.Shape()
	if cols != len(e.Columns) {
		return nil, errors.NewDimensionError("OrdinalEncoder.Transform", len(e.Columns), cols, 1)
	}
	if e.lookup == nil {
		e.buildLookup()
	}

	out := make([]*dataframe.Series, cols)
	for j := 0; j < cols; j++ {
		s := f.At(j)
		codes := make([]float64, rows)
		for i := 0; i < rows; i++ {
			if s.IsNull(i) {
				codes[i] = math.NaN()
				continue
			}
			code, ok := e.lookup[j][s.Key(i)]
			if !ok {
				return nil, errors.NewValueError("OrdinalEncoder.Transform",
					fmt.Sprintf("Found unknown categories ['%s'] in column %d during transform", s.Key(i), j))
			}
			codes[i] = float64(code)
		}
		out[j] = dataframe.NewNumericSeries(s.Name, codes)
	}
	return dataframe.New(out...)
}

// FitTransform は学習と変換を同時に行う
func (e *OrdinalEncoder) FitTransform(f *dataframe.Frame) (*dataframe.Frame, error) {
	if err := e.Fit(f); err != nil {
		return nil, err
	}
	return e.Transform(f)
}
