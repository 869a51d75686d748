package frame

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
)

// appendValueBytes writes a canonical byte encoding of the value at row
// idx into buf. The encoding is tagged by kind and framed so that distinct
// value sequences never collide byte-wise; it must stay stable, since every
// worker recomputes it independently and the results have to agree.
func appendValueBytes(buf []byte, c *Column, idx int) []byte {
	switch c.Kind {
	case KindInt64:
		buf = append(buf, 'i')
		buf = binary.LittleEndian.AppendUint64(buf, uint64(c.Ints[idx]))
	case KindFloat64:
		buf = append(buf, 'f')
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(c.Floats[idx]))
	default:
		buf = append(buf, 's')
		buf = binary.LittleEndian.AppendUint64(buf, uint64(len(c.Strings[idx])))
		buf = append(buf, c.Strings[idx]...)
	}
	return buf
}

// PartitionIDs maps every row of f to a destination bucket id in
// [0, modulus) by hashing the named columns with FNV-1a. The result has
// one id per row, in row order. An empty frame yields an empty slice.
//
// The function is pure and deterministic: the same rows, columns, and
// modulus produce the same ids on every worker, which is what makes the
// ids usable as routing keys in an exchange.
func PartitionIDs(f *Frame, columns []string, modulus int) ([]int, error) {
	if modulus <= 0 {
		return nil, fmt.Errorf("modulus must be positive, got %d", modulus)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("at least one hash column is required")
	}
	cols := make([]*Column, len(columns))
	for i, name := range columns {
		c, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}

	n := f.NumRows()
	ids := make([]int, n)
	var buf []byte
	for row := 0; row < n; row++ {
		buf = buf[:0]
		for _, c := range cols {
			buf = appendValueBytes(buf, c, row)
		}
		h := fnv.New64a()
		h.Write(buf)
		ids[row] = int(h.Sum64() % uint64(modulus))
	}
	return ids, nil
}

// Split partitions f into n frames by the given per-row bucket ids, as
// produced by PartitionIDs with modulus n. Every returned frame preserves
// the schema; buckets with no rows are empty frames, not nil. Row order
// within each bucket follows row order in f.
func Split(f *Frame, ids []int, n int) ([]*Frame, error) {
	if len(ids) != f.NumRows() {
		return nil, fmt.Errorf("got %d bucket ids for %d rows", len(ids), f.NumRows())
	}
	groups := make([][]int, n)
	for row, id := range ids {
		if id < 0 || id >= n {
			return nil, fmt.Errorf("bucket id %d out of range [0, %d)", id, n)
		}
		groups[id] = append(groups[id], row)
	}
	out := make([]*Frame, n)
	for i, rows := range groups {
		bucket, err := f.Take(rows)
		if err != nil {
			return nil, err
		}
		out[i] = bucket
	}
	return out, nil
}

// rowKey returns a canonical byte-string key for the values of cols at row
// idx, usable as a hash-join map key.
func rowKey(cols []*Column, idx int) string {
	var buf []byte
	for _, c := range cols {
		buf = appendValueBytes(buf, c, idx)
	}
	return string(buf)
}
