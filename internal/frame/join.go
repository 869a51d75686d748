package frame

import (
	"fmt"
)

// Join performs a local inner equi-join of left and right on the named key
// columns. The key columns must exist in both frames with matching kinds.
//
// Output schema: all left columns followed by the right columns that are
// not key columns. Output row order is deterministic: left rows in order,
// and for each left row its right matches in right-row order. Rows with
// the same key on both sides produce the full cross product for that key,
// which is what a centralized equi-join would produce.
func Join(left, right *Frame, on []string) (*Frame, error) {
	if len(on) == 0 {
		return nil, fmt.Errorf("at least one join column is required")
	}
	leftKeys := make([]*Column, len(on))
	rightKeys := make([]*Column, len(on))
	for i, name := range on {
		lc, err := left.Column(name)
		if err != nil {
			return nil, fmt.Errorf("left: %w", err)
		}
		rc, err := right.Column(name)
		if err != nil {
			return nil, fmt.Errorf("right: %w", err)
		}
		if lc.Kind != rc.Kind {
			return nil, fmt.Errorf("%w: join column %q is %s on the left, %s on the right",
				ErrSchemaMismatch, name, lc.Kind, rc.Kind)
		}
		leftKeys[i] = lc
		rightKeys[i] = rc
	}

	isKey := make(map[string]bool, len(on))
	for _, name := range on {
		isKey[name] = true
	}

	// Build side: right rows grouped by key.
	build := make(map[string][]int)
	for row := 0; row < right.NumRows(); row++ {
		k := rowKey(rightKeys, row)
		build[k] = append(build[k], row)
	}

	// Probe side: left rows in order.
	var leftRows, rightRows []int
	for row := 0; row < left.NumRows(); row++ {
		for _, match := range build[rowKey(leftKeys, row)] {
			leftRows = append(leftRows, row)
			rightRows = append(rightRows, match)
		}
	}

	leftOut, err := left.Take(leftRows)
	if err != nil {
		return nil, err
	}
	rightOut, err := right.Take(rightRows)
	if err != nil {
		return nil, err
	}

	cols := leftOut.Cols
	for i := range rightOut.Cols {
		if !isKey[rightOut.Cols[i].Name] {
			cols = append(cols, rightOut.Cols[i])
		}
	}
	return New(cols...)
}
