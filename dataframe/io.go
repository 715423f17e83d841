package dataframe

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// naValues are the cell strings read as missing, matching pandas.read_csv.
var naValues = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true,
	"-1.#QNAN": true, "-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true,
	"<NA>": true, "N/A": true, "NA": true, "NULL": true, "NaN": true, "None": true,
	"n/a": true, "nan": true, "null": true,
}

// IsNA reports whether a raw cell is read as missing.
func IsNA(cell string) bool {
	return naValues[cell]
}

// Read parses a CSV or XLSX upload, chosen by the file extension.
func Read(filename string, r io.Reader) (*Frame, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	default:
		return ReadCSV(r)
	}
}

// ReadCSV parses CSV with a header row. Short rows are padded with missing
// values; rows longer than the header are an error.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	f, err := FromRecords(records)
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	return f, nil
}

// ReadXLSX reads the first sheet of a workbook; the first row is the header.
func ReadXLSX(r io.Reader) (*Frame, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open xlsx")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %q", sheets[0])
	}
	return FromRecords(rows)
}

// FromRecords builds a frame from a header row followed by data rows. Rows
// shorter than the header end in missing cells. A column is numeric when every
// non-missing cell parses as a float.
func FromRecords(records [][]string) (*Frame, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "no columns to parse from file")
	}
	header := dedupeHeader(records[0])
	body := records[1:]
	for i, row := range body {
		switch {
		case len(row) > len(header):
			return nil, errors.NewValueError("FromRecords",
				fmt.Sprintf("expected %d fields in line %d, saw %d", len(header), i+2, len(row)))
		case len(row) < len(header):
			padded := make([]string, len(header))
			copy(padded, row)
			body[i] = padded
		}
	}

	cols := make([]*Series, len(header))
	for j, name := range header {
		cols[j] = parseColumn(name, body, j)
	}
	f, err := New(cols...)
	if err != nil {
		return nil, err
	}
	f.rows = len(body)
	return f, nil
}

func parseColumn(name string, body [][]string, j int) *Series {
	floats := make([]float64, len(body))
	numeric := true
	for i, row := range body {
		cell := strings.TrimSpace(row[j])
		if IsNA(cell) {
			floats[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			numeric = false
			break
		}
		floats[i] = v
	}
	if numeric {
		return NewNumericSeries(name, floats)
	}

	values := make([]string, len(body))
	null := make([]bool, len(body))
	for i, row := range body {
		if IsNA(row[j]) {
			null[i] = true
			continue
		}
		values[i] = row[j]
	}
	return NewTextSeries(name, values, null)
}

// dedupeHeader renames repeated headers to name.1, name.2, ...
func dedupeHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	suffix := make(map[string]int)
	for i, h := range header {
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for used[name] {
			suffix[h]++
			name = fmt.Sprintf("%s.%d", h, suffix[h])
		}
		used[name] = true
		out[i] = name
	}
	return out
}
