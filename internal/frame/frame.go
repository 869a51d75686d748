package frame

import (
	"errors"
	"fmt"
	"sort"
)

// ErrSchemaMismatch is returned when an operation combines frames whose
// column names, order, or kinds differ.
var ErrSchemaMismatch = errors.New("schema mismatch")

// ErrUnknownColumn is returned when a named column does not exist.
var ErrUnknownColumn = errors.New("unknown column")

// Kind identifies the value type stored in a column.
type Kind string

const (
	KindInt64   Kind = "int64"
	KindFloat64 Kind = "float64"
	KindString  Kind = "string"
)

// Column is a named, typed vector of values. Exactly one of the value
// slices is populated, matching Kind. Columns marshal to JSON directly,
// which is how buckets travel between workers.
type Column struct {
	Name    string    `json:"name"`
	Kind    Kind      `json:"kind"`
	Ints    []int64   `json:"ints,omitempty"`
	Floats  []float64 `json:"floats,omitempty"`
	Strings []string  `json:"strings,omitempty"`
}

// Len returns the number of values in the column.
func (c *Column) Len() int {
	switch c.Kind {
	case KindInt64:
		return len(c.Ints)
	case KindFloat64:
		return len(c.Floats)
	default:
		return len(c.Strings)
	}
}

// Frame is an ordered collection of rows with a fixed schema, stored
// column-wise. A frame with zero rows still carries its schema, which is
// what lets empty buckets and empty output partitions round-trip cleanly.
type Frame struct {
	Cols []Column `json:"cols"`
}

// IntCol builds an int64 column.
func IntCol(name string, vals ...int64) Column {
	return Column{Name: name, Kind: KindInt64, Ints: vals}
}

// FloatCol builds a float64 column.
func FloatCol(name string, vals ...float64) Column {
	return Column{Name: name, Kind: KindFloat64, Floats: vals}
}

// StringCol builds a string column.
func StringCol(name string, vals ...string) Column {
	return Column{Name: name, Kind: KindString, Strings: vals}
}

// New creates a frame from columns. All columns must have the same length
// and distinct names.
func New(cols ...Column) (*Frame, error) {
	seen := make(map[string]bool, len(cols))
	n := -1
	for _, c := range cols {
		if c.Name == "" {
			return nil, errors.New("column name cannot be empty")
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		if n == -1 {
			n = c.Len()
		} else if c.Len() != n {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name, c.Len(), n)
		}
	}
	return &Frame{Cols: cols}, nil
}

// NumRows returns the row count. A nil frame has zero rows.
func (f *Frame) NumRows() int {
	if f == nil || len(f.Cols) == 0 {
		return 0
	}
	return f.Cols[0].Len()
}

// Column returns the column with the given name.
func (f *Frame) Column(name string) (*Column, error) {
	for i := range f.Cols {
		if f.Cols[i].Name == name {
			return &f.Cols[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

// ColumnNames returns the column names in schema order.
func (f *Frame) ColumnNames() []string {
	names := make([]string, len(f.Cols))
	for i, c := range f.Cols {
		names[i] = c.Name
	}
	return names
}

// sameSchema reports whether two frames have identical column names,
// order, and kinds.
func sameSchema(a, b *Frame) bool {
	if len(a.Cols) != len(b.Cols) {
		return false
	}
	for i := range a.Cols {
		if a.Cols[i].Name != b.Cols[i].Name || a.Cols[i].Kind != b.Cols[i].Kind {
			return false
		}
	}
	return true
}

// Empty returns a zero-row frame with the same schema as f.
func (f *Frame) Empty() *Frame {
	cols := make([]Column, len(f.Cols))
	for i, c := range f.Cols {
		cols[i] = Column{Name: c.Name, Kind: c.Kind}
	}
	return &Frame{Cols: cols}
}

// Take returns a new frame containing the rows of f at the given indices,
// in index order. Indices may repeat. Out-of-range indices are an error.
func (f *Frame) Take(indices []int) (*Frame, error) {
	n := f.NumRows()
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return nil, fmt.Errorf("row index %d out of range [0, %d)", idx, n)
		}
	}
	out := f.Empty()
	for i := range out.Cols {
		src := &f.Cols[i]
		dst := &out.Cols[i]
		switch src.Kind {
		case KindInt64:
			dst.Ints = make([]int64, 0, len(indices))
			for _, idx := range indices {
				dst.Ints = append(dst.Ints, src.Ints[idx])
			}
		case KindFloat64:
			dst.Floats = make([]float64, 0, len(indices))
			for _, idx := range indices {
				dst.Floats = append(dst.Floats, src.Floats[idx])
			}
		default:
			dst.Strings = make([]string, 0, len(indices))
			for _, idx := range indices {
				dst.Strings = append(dst.Strings, src.Strings[idx])
			}
		}
	}
	return out, nil
}

// Filter returns the rows of f for which mask is true. The mask length
// must equal the row count.
func (f *Frame) Filter(mask []bool) (*Frame, error) {
	if len(mask) != f.NumRows() {
		return nil, fmt.Errorf("mask length %d does not match %d rows", len(mask), f.NumRows())
	}
	var indices []int
	for i, keep := range mask {
		if keep {
			indices = append(indices, i)
		}
	}
	return f.Take(indices)
}

// Concat concatenates same-schema frames in argument order. At least one
// frame is required so the result has a schema even when all inputs are
// empty.
func Concat(frames ...*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return nil, errors.New("concat requires at least one frame")
	}
	out := frames[0].Empty()
	for _, f := range frames {
		if !sameSchema(out, f) {
			return nil, fmt.Errorf("%w: cannot concat %v with %v",
				ErrSchemaMismatch, out.ColumnNames(), f.ColumnNames())
		}
		for i := range out.Cols {
			src := &f.Cols[i]
			dst := &out.Cols[i]
			switch src.Kind {
			case KindInt64:
				dst.Ints = append(dst.Ints, src.Ints...)
			case KindFloat64:
				dst.Floats = append(dst.Floats, src.Floats...)
			default:
				dst.Strings = append(dst.Strings, src.Strings...)
			}
		}
	}
	return out, nil
}

// SortByColumn returns a copy of f with rows ordered by the named column
// (ascending), breaking ties by original row position. Used by callers
// that compare frames ignoring row order.
func (f *Frame) SortByColumn(name string) (*Frame, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	indices := make([]int, f.NumRows())
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(i, j int) bool {
		a, b := indices[i], indices[j]
		switch col.Kind {
		case KindInt64:
			return col.Ints[a] < col.Ints[b]
		case KindFloat64:
			return col.Floats[a] < col.Floats[b]
		default:
			return col.Strings[a] < col.Strings[b]
		}
	})
	return f.Take(indices)
}

// Equal reports whether two frames have identical schemas and identical
// rows in identical order.
func Equal(a, b *Frame) bool {
	if !sameSchema(a, b) || a.NumRows() != b.NumRows() {
		return false
	}
	for i := range a.Cols {
		ca, cb := &a.Cols[i], &b.Cols[i]
		switch ca.Kind {
		case KindInt64:
			for j := range ca.Ints {
				if ca.Ints[j] != cb.Ints[j] {
					return false
				}
			}
		case KindFloat64:
			for j := range ca.Floats {
				if ca.Floats[j] != cb.Floats[j] {
					return false
				}
			}
		default:
			for j := range ca.Strings {
				if ca.Strings[j] != cb.Strings[j] {
					return false
				}
			}
		}
	}
	return true
}

// NumBytes returns a rough payload size for stats reporting: 8 bytes per
// numeric value plus string lengths.
func (f *Frame) NumBytes() int {
	total := 0
	for i := range f.Cols {
		c := &f.Cols[i]
		switch c.Kind {
		case KindInt64, KindFloat64:
			total += 8 * c.Len()
		default:
			for _, s := range c.Strings {
				total += len(s)
			}
		}
	}
	return total
}
