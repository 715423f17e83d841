package dataframe

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const irisLike = `sepal,petal,species,note
5.1,1.4,setosa,a
4.9,1.4,setosa,
6.3,6.0,virginica,b
5.8,5.1,virginica,NA
5.1,1.4,setosa,a
`

func mustReadCSV(t *testing.T, s string) *Frame {
	t.Helper()
	f, err := ReadCSV(strings.NewReader(s))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	return f
}

func TestReadCSV_ShapeAndKinds(t *testing.T) {
	f := mustReadCSV(t, irisLike)

	rows, cols := f.Shape()
	if rows != 5 || cols != 4 {
		t.Fatalf("Shape() = (%d, %d), want (5, 4)", rows, cols)
	}

	wantKinds := map[string]Kind{"sepal": Numeric, "petal": Numeric, "species": Text, "note": Text}
	for name, want := range wantKinds {
		c, err := f.Column(name)
		if err != nil {
			t.Fatalf("Column(%q) error = %v", name, err)
		}
		if c.Kind != want {
			t.Errorf("%s kind = %v, want %v", name, c.Kind, want)
		}
	}

	if got := f.MissingCount(); got != 2 {
		t.Errorf("MissingCount() = %d, want 2", got)
	}
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "row longer than header", input: "a,b\n1,2\n3,4,5\n"},
		{name: "unterminated quote", input: "a,b\n\"1,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			if err == nil || !strings.Contains(err.Error(), "read csv") {
				t.Errorf("ReadCSV() error = %v, want a read csv error", err)
			}
		})
	}
}

func TestReadCSV_ShortRowsPadded(t *testing.T) {
	f := mustReadCSV(t, "a,b,c\n1,2\n3,4,5\n")

	rows, cols := f.Shape()
	if rows != 2 || cols != 3 {
		t.Fatalf("Shape() = (%d, %d), want (2, 3)", rows, cols)
	}
	c, err := f.Column("c")
	if err != nil {
		t.Fatal(err)
	}
	if c.Kind != Numeric || !c.IsNull(0) || c.Floats[1] != 5 {
		t.Errorf("c = %+v, want numeric [NaN 5]", c)
	}
	if got := f.MissingCount(); got != 1 {
		t.Errorf("MissingCount() = %d, want 1", got)
	}
}

func TestReadCSV_DuplicateHeaders(t *testing.T) {
	f := mustReadCSV(t, "x,x,x\n1,2,3\n")
	got := strings.Join(f.Columns(), ",")
	if got != "x,x.1,x.2" {
		t.Errorf("Columns() = %s, want x,x.1,x.2", got)
	}
}

func TestDropNARows_LeavesNoMissing(t *testing.T) {
	f := mustReadCSV(t, irisLike).DropNARows()

	if got := f.MissingCount(); got != 0 {
		t.Errorf("MissingCount() = %d, want 0", got)
	}
	if rows, _ := f.Shape(); rows != 3 {
		t.Errorf("rows = %d, want 3", rows)
	}
}

func TestDropNAColumns(t *testing.T) {
	f := mustReadCSV(t, irisLike).DropNAColumns()

	if got := strings.Join(f.Columns(), ","); got != "sepal,petal,species" {
		t.Errorf("Columns() = %s", got)
	}
	if rows, _ := f.Shape(); rows != 5 {
		t.Errorf("rows = %d, want 5", rows)
	}
}

func TestDropDuplicates_KeepsFirst(t *testing.T) {
	f := mustReadCSV(t, irisLike+"4.9,1.4,setosa,\n").DropDuplicates()

	rows, _ := f.Shape()
	if rows != 4 {
		t.Fatalf("rows = %d, want 4", rows)
	}
	note, _ := f.Column("note")
	if !note.IsNull(1) {
		t.Error("row with missing note should be kept once")
	}
}

func TestDrop_UnknownColumn(t *testing.T) {
	f := mustReadCSV(t, irisLike)

	_, err := f.Drop("sepal", "missing")
	var keyErr *errors.KeyError
	if !errors.As(err, &keyErr) {
		t.Fatalf("Drop() error = %v, want KeyError", err)
	}
	if _, cols := f.Shape(); cols != 4 {
		t.Error("original frame must be untouched")
	}

	out, err := f.Drop("note")
	if err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	if _, cols := out.Shape(); cols != 3 {
		t.Errorf("cols = %d, want 3", cols)
	}
}

func TestDescribe_Numeric(t *testing.T) {
	f := mustReadCSV(t, "v,label\n1,a\n2,b\n3,a\n4,b\nNaN,a\n")
	d := f.Describe()

	if strings.Join(d.Columns, ",") != "v" {
		t.Fatalf("described columns = %v, want [v]", d.Columns)
	}
	want := []float64{4, 2.5, math.Sqrt(5.0 / 3.0), 1, 1.75, 2.5, 3.25, 4}
	for r, w := range want {
		if got := d.Values[r][0]; math.Abs(got-w) > 1e-9 {
			t.Errorf("%s = %v, want %v", d.Index[r], got, w)
		}
	}
	if d.Cells[1][0] != "2.500000" {
		t.Errorf("mean cell = %q", d.Cells[1][0])
	}
}

func TestDescribe_TextOnly(t *testing.T) {
	f := mustReadCSV(t, "c\nx\ny\nx\n")
	d := f.Describe()

	if d.Values != nil {
		t.Error("text description should not carry numeric values")
	}
	if d.Cells[2][0] != "x" || d.Cells[3][0] != "2" {
		t.Errorf("top/freq = %s/%s, want x/2", d.Cells[2][0], d.Cells[3][0])
	}
}

func TestCorrelation(t *testing.T) {
	f := mustReadCSV(t, "a,b,c,s\n1,2,3,x\n2,4,1,y\n3,6,2,z\n4,8,,w\n")
	corr := f.Correlation()

	if len(corr.Columns) != 3 {
		t.Fatalf("columns = %v, want 3 numeric", corr.Columns)
	}
	if got := corr.Values.At(0, 1); math.Abs(got-1) > 1e-12 {
		t.Errorf("corr(a,b) = %v, want 1", got)
	}
	if got := corr.Values.At(2, 2); got != 1 {
		t.Errorf("corr(c,c) = %v, want 1", got)
	}
	// c is paired with a over the first three rows only
	if got := corr.Values.At(0, 2); math.Abs(got-(-0.5)) > 1e-12 {
		t.Errorf("corr(a,c) = %v, want -0.5", got)
	}
}

func TestValueCountsAndCardinality(t *testing.T) {
	f := mustReadCSV(t, irisLike)
	species, _ := f.Column("species")

	counts := species.ValueCounts()
	if len(counts) != 2 || counts[0].Value != "setosa" || counts[0].Count != 3 {
		t.Errorf("ValueCounts() = %+v", counts)
	}

	low := f.LowCardinalityColumns(3)
	if strings.Join(low, ",") != "species,note" {
		t.Errorf("LowCardinalityColumns(3) = %v", low)
	}
}

func TestValueCounts_FullPrecision(t *testing.T) {
	s := NewNumericSeries("x", []float64{1.0000001, 1.0000002, 1.0000003, 1.0000002, 2})
	counts := s.ValueCounts()
	if len(counts) != s.NUnique() {
		t.Fatalf("len(ValueCounts()) = %d, want NUnique() = %d", len(counts), s.NUnique())
	}
	if counts[0].Value != "1.0000002" || counts[0].Count != 2 {
		t.Errorf("counts[0] = %+v, want {1.0000002 2}", counts[0])
	}
	seen := make(map[string]bool)
	for _, c := range counts {
		if seen[c.Value] {
			t.Errorf("label %q shown twice", c.Value)
		}
		seen[c.Value] = true
	}
	if counts[len(counts)-1].Value != "2.0" {
		t.Errorf("last label = %q, want the display form 2.0", counts[len(counts)-1].Value)
	}
}

func TestMatrix_TextColumn(t *testing.T) {
	f := mustReadCSV(t, irisLike)

	if _, err := f.Matrix("sepal", "species"); err == nil || !strings.Contains(err.Error(), "could not convert string to float: 'setosa'") {
		t.Errorf("Matrix() error = %v", err)
	}

	X, err := f.Matrix("sepal", "petal")
	if err != nil {
		t.Fatalf("Matrix() error = %v", err)
	}
	if X.At(2, 1) != 6.0 {
		t.Errorf("X[2,1] = %v, want 6", X.At(2, 1))
	}
}

func TestReadXLSX(t *testing.T) {
	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	rows := [][]interface{}{{"a", "b"}, {1, "x"}, {2, nil}}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f, err := Read("data.xlsx", &buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	r, c := f.Shape()
	if r != 2 || c != 2 {
		t.Fatalf("Shape() = (%d, %d), want (2, 2)", r, c)
	}
	b, _ := f.Column("b")
	if !b.IsNull(1) {
		t.Error("trailing empty cell should be missing")
	}
}
