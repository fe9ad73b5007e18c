package cpu

import (
	"fmt"
	"math"
)

// The gather kernels walk a padded, marked buffer and read the neighbourhood
// of every marked origin through a neighbour offset set. They never bounds
// check origin+offset beyond what the slice access does: the caller pads the
// buffer by at least the window's half extent and marks only interior cells.

// fillCol writes the im2col matrix: one row per marked origin, in ascending
// buffer order, holding the origin's neighbourhood in offset order.
// col must hold exactly origins*len(offsets) elements.
// Returns the number of origins gathered.
func fillCol(strategy Strategy, marked []uint32, offsets []int, col []float32) (int, error) {
	if strategy == StrategyBatch {
		return fillColBatch(marked, offsets, col)
	}
	return fillColScalar(marked, offsets, col)
}

func fillColScalar(marked []uint32, offsets []int, col []float32) (int, error) {
	s, rows := 0, 0
	for i, v := range marked {
		if !IsMarked(v) {
			continue
		}
		if s+len(offsets) > len(col) {
			return rows, fmt.Errorf("fill col: %w: origin %d needs %d elements, buffer has %d",
				ErrBufferTooSmall, rows, s+len(offsets), len(col))
		}
		for _, off := range offsets {
			col[s] = unmark(marked[i+off])
			s++
		}
		rows++
	}
	if s != len(col) {
		return rows, fmt.Errorf("fill col: %w: filled %d of %d elements", ErrBufferTooSmall, s, len(col))
	}
	return rows, nil
}

func fillColBatch(marked []uint32, offsets []int, col []float32) (int, error) {
	origins := markedOrigins(marked)
	k := len(offsets)
	if len(origins)*k != len(col) {
		return 0, fmt.Errorf("fill col: %w: %d origins x %d offsets != %d elements",
			ErrBufferTooSmall, len(origins), k, len(col))
	}
	for r, origin := range origins {
		row := col[r*k : (r+1)*k]
		for c, off := range offsets {
			row[c] = unmark(marked[origin+off])
		}
	}
	return len(origins), nil
}

// fillMax writes, for every marked origin in ascending buffer order, the
// maximum over its neighbourhood. The running maximum starts at the first
// offset's value, so out's previous contents never leak into the result.
// out must hold exactly one element per origin.
func fillMax(strategy Strategy, marked []uint32, offsets []int, out []float32) (int, error) {
	if strategy == StrategyBatch {
		return fillMaxBatch(marked, offsets, out)
	}
	return fillMaxScalar(marked, offsets, out)
}

func fillMaxScalar(marked []uint32, offsets []int, out []float32) (int, error) {
	s := 0
	for i, v := range marked {
		if !IsMarked(v) {
			continue
		}
		if s >= len(out) {
			return s, fmt.Errorf("fill max: %w: more than %d origins", ErrBufferTooSmall, len(out))
		}
		out[s] = windowMax(marked, i, offsets)
		s++
	}
	if s != len(out) {
		return s, fmt.Errorf("fill max: %w: filled %d of %d elements", ErrBufferTooSmall, s, len(out))
	}
	return s, nil
}

func fillMaxBatch(marked []uint32, offsets []int, out []float32) (int, error) {
	origins := markedOrigins(marked)
	if len(origins) != len(out) {
		return 0, fmt.Errorf("fill max: %w: %d origins for %d elements", ErrBufferTooSmall, len(origins), len(out))
	}

	// Gather the whole [origins, offsets] grid, then reduce each row.
	k := len(offsets)
	grid := make([]float32, len(origins)*k)
	for r, origin := range origins {
		for c, off := range offsets {
			grid[r*k+c] = unmark(marked[origin+off])
		}
	}
	for r := range out {
		row := grid[r*k : (r+1)*k]
		m := row[0]
		for _, v := range row[1:] {
			if v > m {
				m = v
			}
		}
		out[r] = m
	}
	return len(origins), nil
}

func windowMax(marked []uint32, origin int, offsets []int) float32 {
	m := unmark(marked[origin+offsets[0]])
	for _, off := range offsets[1:] {
		if v := unmark(marked[origin+off]); v > m {
			m = v
		}
	}
	return m
}

// markedOrigins returns the indices of all marked elements in ascending order.
func markedOrigins(marked []uint32) []int {
	origins := make([]int, 0, CountMarks(marked))
	for i, v := range marked {
		if IsMarked(v) {
			origins = append(origins, i)
		}
	}
	return origins
}

// unmark decodes a marked bit pattern as the float it carries.
func unmark(v uint32) float32 {
	return math.Float32frombits(v &^ markBit)
}
