// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dsm implements the Distributed Graph & Sparse Matrix (DSM):
// a 1D row-block partition of an N×N structurally symmetric matrix, with
// an assembly state machine modeled on github.com/cpmech/gosl/la.Triplet
// (Init/Put/ToMatrix) generalized across a process row-block layout.
package dsm

import (
	"sort"

	"github.com/cpmech/gosl/chk"

	"github.com/Solertis/Clique/field"
)

// state is the assembly lifecycle: Insert is only legal between
// StartAssembly and StopAssembly (spec.md §7, AssemblyState error kind).
type state int

const (
	stateIdle state = iota
	stateAssembling
	stateAssembled
)

// entry is one (row, col, value) contribution before dedup.
type entry[F field.Scalar] struct {
	i, j int
	v    F
}

// Matrix is a row-block-distributed structurally symmetric sparse matrix.
// Rows [firstLocalRow, firstLocalRow+numLocalRows) are owned locally; the
// layout follows the DistMap invariant: B = N/P everywhere except the
// last process, which owns the remainder (spec.md §3).
type Matrix[F field.Scalar] struct {
	n          int
	rank, size int
	blockSize  int // N/P

	st      state
	entries []entry[F]

	// populated by StopAssembly: sorted, deduped, row-major within each
	// locally owned row.
	rowStart []int // length numLocalRows+1, into cols/vals
	cols     []int
	vals     []F
}

// New returns an empty DSM of order n over a team of the given rank/size.
func New[F field.Scalar](n, rank, size int) *Matrix[F] {
	chk.IntAssertLessThan(-1, n) // 0 <= n, i.e. n > -1
	return &Matrix[F]{
		n:         n,
		rank:      rank,
		size:      size,
		blockSize: n / size,
		st:        stateIdle,
	}
}

// N returns the global order of the matrix.
func (m *Matrix[F]) N() int { return m.n }

// FirstLocalRow returns the first global row index owned by this process.
func (m *Matrix[F]) FirstLocalRow() int {
	return m.rank * m.blockSize
}

// NumLocalRows returns how many rows this process owns.
func (m *Matrix[F]) NumLocalRows() int {
	if m.rank == m.size-1 {
		return m.n - m.FirstLocalRow()
	}
	return m.blockSize
}

// RowToProcess returns the owner of global row i, per the DistMap
// invariant B = floor(N/P), last process taking the remainder.
func RowToProcess(i, blockSize, size int) int {
	p := i / blockSize
	if p >= size {
		p = size - 1
	}
	return p
}

// Reserve pre-allocates storage for nLocalEntries upcoming Insert calls.
func (m *Matrix[F]) Reserve(nLocalEntries int) {
	m.entries = make([]entry[F], 0, nLocalEntries)
}

// StartAssembly opens the assembly window.
func (m *Matrix[F]) StartAssembly() error {
	if m.st == stateAssembling {
		return chk.Err("dsm: StartAssembly called while already assembling")
	}
	m.st = stateAssembling
	m.entries = m.entries[:0]
	return nil
}

// Insert (alias Update) records a contribution to entry (i,j). i and j
// are global indices owned by any process; only the local row-range
// (i in [FirstLocalRow, FirstLocalRow+NumLocalRows)) is meaningful here —
// callers are responsible for routing cross-process contributions before
// calling Insert (mirrors la.Triplet.Put, generalized to row ownership).
func (m *Matrix[F]) Insert(i, j int, v F) error {
	if m.st != stateAssembling {
		return chk.Err("dsm: Insert called outside StartAssembly/StopAssembly")
	}
	if i < 0 || i >= m.n || j < 0 || j >= m.n {
		return chk.Err("dsm: Insert index out of range: (%d,%d) not in [0,%d)", i, j, m.n)
	}
	m.entries = append(m.entries, entry[F]{i, j, v})
	return nil
}

// Update is an alias for Insert (spec.md §6 External Interfaces).
func (m *Matrix[F]) Update(i, j int, v F) error { return m.Insert(i, j, v) }

// StopAssembly sorts and deduplicates the local entries (summing
// duplicate (i,j) pairs), building the row-major local CSR-equivalent
// representation. Calling it twice, or without a prior StartAssembly, is
// an AssemblyState error (spec.md §7, testable property 3).
func (m *Matrix[F]) StopAssembly() error {
	if m.st != stateAssembling {
		return chk.Err("dsm: StopAssembly called without a prior StartAssembly")
	}
	first := m.FirstLocalRow()
	nrows := m.NumLocalRows()

	sort.Slice(m.entries, func(a, b int) bool {
		if m.entries[a].i != m.entries[b].i {
			return m.entries[a].i < m.entries[b].i
		}
		return m.entries[a].j < m.entries[b].j
	})

	m.rowStart = make([]int, nrows+1)
	m.cols = m.cols[:0]
	m.vals = m.vals[:0]

	idx := 0
	for r := 0; r < nrows; r++ {
		row := first + r
		m.rowStart[r] = len(m.cols)
		for idx < len(m.entries) && m.entries[idx].i == row {
			j := m.entries[idx].j
			v := m.entries[idx].v
			idx++
			for idx < len(m.entries) && m.entries[idx].i == row && m.entries[idx].j == j {
				v = v + m.entries[idx].v
				idx++
			}
			m.cols = append(m.cols, j)
			m.vals = append(m.vals, v)
		}
	}
	m.rowStart[nrows] = len(m.cols)
	m.st = stateAssembled
	return nil
}

// Row returns the (sorted, deduped) column indices and values of global
// row i, which must be locally owned.
func (m *Matrix[F]) Row(i int) (cols []int, vals []F) {
	first := m.FirstLocalRow()
	r := i - first
	if r < 0 || r >= m.NumLocalRows() {
		chk.Panic("dsm: Row(%d) is not locally owned (first=%d, n=%d)", i, first, m.NumLocalRows())
	}
	return m.cols[m.rowStart[r]:m.rowStart[r+1]], m.vals[m.rowStart[r]:m.rowStart[r+1]]
}

// because F does not natively support "+", we rely on Go generics'
// operator support for the underlying ~float64 | ~complex128 types: both
// permit "+" directly, so entry accumulation above uses "+" rather than a
// field.Add helper (there is no ambiguity to abstract over).
