// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dpm implements the Distributed Permutation Map (DPM): a 1D
// row-block map m: [0,N) -> [0,N) with its inverse, supporting in-place
// Translate and FormInverse via two-phase all-to-all-v exchange. The
// calling convention (global N, local row-block ownership, all-to-all
// request/answer) follows the DSM layout of package dsm and the teacher's
// distributed-assembly idiom (fem/domain.go's Vid2node / equation maps
// generalized across processes instead of within one).
package dpm

import (
	"github.com/cpmech/gosl/chk"

	"github.com/Solertis/Clique/comm"
)

// Map is a distributed permutation: m.values[s] holds m(s+firstLocalSource)
// for each locally owned source index s.
type Map struct {
	n         int
	c         comm.Comm
	blockSize int
	values    []int // length NumLocalSources(); values[s] = m(first+s)
}

// New allocates an uninitialized map of order n over comm c. Callers fill
// Values() (e.g. from a partitioner's output) before using Translate.
func New(n int, c comm.Comm) *Map {
	blockSize := n / c.Size()
	return &Map{n: n, c: c, blockSize: blockSize, values: make([]int, numLocal(n, blockSize, c.Rank(), c.Size()))}
}

func numLocal(n, blockSize, rank, size int) int {
	if rank == size-1 {
		return n - rank*blockSize
	}
	return blockSize
}

// RowToProcess returns the owner of global index i under a row-block
// layout with the given blockSize and team size (shared invariant with
// package dsm).
func RowToProcess(i, blockSize, size int) int {
	p := i / blockSize
	if p >= size {
		p = size - 1
	}
	return p
}

func (m *Map) rowToProcess(i int) int { return RowToProcess(i, m.blockSize, m.c.Size()) }

// N returns the global order of the map.
func (m *Map) N() int { return m.n }

// FirstLocalSource returns the first global source index owned locally.
func (m *Map) FirstLocalSource() int { return m.c.Rank() * m.blockSize }

// NumLocalSources returns how many source indices this process owns.
func (m *Map) NumLocalSources() int {
	return numLocal(m.n, m.blockSize, m.c.Rank(), m.c.Size())
}

// Values exposes the local backing slice (value for source
// FirstLocalSource()+s is Values()[s]); callers populate it directly.
func (m *Map) Values() []int { return m.values }

// StoreOwners builds a map whose value at index i is the owning process,
// given that each process holds some set of global indices it owns
// (localIndices). Implementation: each process ships, for every index it
// owns, a (index, myRank) pair to the index's row-block owner; the owner
// writes the result into its slice.
func StoreOwners(n int, localIndices []int, c comm.Comm) (*Map, error) {
	m := New(n, c)
	size := c.Size()

	sendCounts := make([]int, size)
	for _, idx := range localIndices {
		if idx < 0 || idx >= n {
			return nil, chk.Err("dpm: StoreOwners index out of range: %d not in [0,%d)", idx, n)
		}
		sendCounts[m.rowToProcess(idx)]++
	}
	sendIdx := make([]float64, len(localIndices))
	sendVal := make([]float64, len(localIndices))
	offsets := make([]int, size)
	cursor := make([]int, size)
	off := 0
	for p := 0; p < size; p++ {
		offsets[p] = off
		off += sendCounts[p]
		cursor[p] = offsets[p]
	}
	for _, idx := range localIndices {
		p := m.rowToProcess(idx)
		sendIdx[cursor[p]] = float64(idx)
		sendVal[cursor[p]] = float64(c.Rank())
		cursor[p]++
	}

	_, recvIdx := c.AllToAllV(sendCounts, sendIdx)
	_, recvVal := c.AllToAllV(sendCounts, sendVal)

	first := m.FirstLocalSource()
	for k := range recvIdx {
		i := int(recvIdx[k])
		m.values[i-first] = int(recvVal[k])
	}
	return m, nil
}

// Translate replaces each input index i (0 <= i < N; negative rejected)
// by m(i), in place, preserving order. Indices >= N pass through
// unchanged (phantom/boundary indices). Implemented as two back-to-back
// all-to-all-v exchanges: the request ships each index to its owner, the
// owner substitutes m[i-firstLocalSource], then the answer ships back.
func (m *Map) Translate(indices []int) error {
	size := m.c.Size()
	sendCounts := make([]int, size)
	order := make([]int, len(indices)) // destination process per input slot
	for k, i := range indices {
		if i >= m.n {
			order[k] = -1
			continue
		}
		if i < 0 {
			return chk.Err("dpm: Translate rejects negative index %d", i)
		}
		p := m.rowToProcess(i)
		order[k] = p
		sendCounts[p]++
	}

	offsets := make([]int, size)
	cursor := make([]int, size)
	off := 0
	for p := 0; p < size; p++ {
		offsets[p] = off
		off += sendCounts[p]
		cursor[p] = offsets[p]
	}

	sendReq := make([]float64, off)
	// slot[k] records where input k's request landed in sendReq, so the
	// answer can be scattered back to the original order.
	slot := make([]int, len(indices))
	for k, i := range indices {
		if order[k] < 0 {
			continue
		}
		p := order[k]
		slot[k] = cursor[p]
		sendReq[cursor[p]] = float64(i)
		cursor[p]++
	}

	recvCounts, recvReq := m.c.AllToAllV(sendCounts, sendReq)

	// answer in place: owner substitutes m[i-first]
	first := m.FirstLocalSource()
	answer := make([]float64, len(recvReq))
	for k, f := range recvReq {
		i := int(f)
		answer[k] = float64(m.values[i-first])
	}

	_, recvAns := m.c.AllToAllV(recvCounts, answer)

	for k, i := range indices {
		if order[k] < 0 {
			continue
		}
		indices[k] = int(recvAns[slot[k]])
		_ = i
	}
	return nil
}

// FormInverse returns the inverse map m⁻¹ such that m⁻¹(m(s)) = s for all
// s in [0,N). Each process emits (s+firstLocalSource, m[s]) pairs routed
// by RowToProcess(m[s]); destinations write out[m[s]-first] = s+first.
func (m *Map) FormInverse() (*Map, error) {
	out := New(m.n, m.c)
	size := m.c.Size()
	first := m.FirstLocalSource()

	sendCounts := make([]int, size)
	for _, v := range m.values {
		if v < 0 || v >= m.n {
			return nil, chk.Err("dpm: FormInverse found out-of-range value %d", v)
		}
		sendCounts[m.rowToProcess(v)]++
	}
	cursor := make([]int, size)
	off := 0
	offsets := make([]int, size)
	for p := 0; p < size; p++ {
		offsets[p] = off
		off += sendCounts[p]
		cursor[p] = offsets[p]
	}
	sendKey := make([]float64, off) // m[s] (destination row)
	sendVal := make([]float64, off) // s+first (source)
	for s, v := range m.values {
		p := m.rowToProcess(v)
		sendKey[cursor[p]] = float64(v)
		sendVal[cursor[p]] = float64(s + first)
		cursor[p]++
	}

	_, recvKey := m.c.AllToAllV(sendCounts, sendKey)
	_, recvVal := m.c.AllToAllV(sendCounts, sendVal)

	outFirst := out.FirstLocalSource()
	for k := range recvKey {
		row := int(recvKey[k])
		out.values[row-outFirst] = int(recvVal[k])
	}
	return out, nil
}

// Extend composes this map with first: the result, applied to a source s
// already mapped once by first, is (m ∘ first)(s) = m(first(s)). Sizes of
// the two maps must agree, or Extend reports a SizeMismatch error.
func (m *Map) Extend(first *Map) (*Map, error) {
	if first.n != m.n {
		return nil, chk.Err("dpm: Extend size mismatch: %d != %d", first.n, m.n)
	}
	composite := New(m.n, m.c)
	copy(composite.values, first.values)
	if err := m.Translate(composite.values); err != nil {
		return nil, err
	}
	return composite, nil
}
