package dataframe

import (
	"encoding/binary"
	"math"

	"github.com/zeebo/xxh3"
)

// DropNARows removes every row that has at least one missing cell.
func (f *Frame) DropNARows() *Frame {
	keep := make([]int, 0, f.rows)
	for i := 0; i < f.rows; i++ {
		complete := true
		for _, c := range f.columns {
			if c.IsNull(i) {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, i)
		}
	}
	return f.Take(keep)
}

// DropNAColumns removes every column that has at least one missing cell.
func (f *Frame) DropNAColumns() *Frame {
	cols := make([]*Series, 0, len(f.columns))
	for _, c := range f.columns {
		if c.NullCount() == 0 {
			cols = append(cols, c)
		}
	}
	out := mustNew(cols)
	out.rows = f.rows
	return out
}

// DropDuplicates keeps the first occurrence of every distinct row. Missing
// cells compare equal to each other.
func (f *Frame) DropDuplicates() *Frame {
	buckets := make(map[uint64][]int, f.rows)
	keep := make([]int, 0, f.rows)
	buf := make([]byte, 0, 64)

	for i := 0; i < f.rows; i++ {
		buf = f.appendRowKey(buf[:0], i)
		h := xxh3.Hash(buf)

		dup := false
		for _, j := range buckets[h] {
			if f.rowsEqual(i, j) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		buckets[h] = append(buckets[h], i)
		keep = append(keep, i)
	}
	return f.Take(keep)
}

// appendRowKey serialises row i for hashing. Each cell is a null flag plus its
// value, with text length-prefixed so that boundaries are unambiguous.
func (f *Frame) appendRowKey(buf []byte, i int) []byte {
	for _, c := range f.columns {
		if c.IsNull(i) {
			buf = append(buf, 0)
			continue
		}
		buf = append(buf, 1)
		if c.Kind == Numeric {
			v := c.Floats[i]
			if v == 0 {
				v = 0 // -0 and +0 hash alike
			}
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
			continue
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(c.Strings[i])))
		buf = append(buf, c.Strings[i]...)
	}
	return buf
}

func (f *Frame) rowsEqual(i, j int) bool {
	for _, c := range f.columns {
		if !c.equalAt(i, j) {
			return false
		}
	}
	return true
}
