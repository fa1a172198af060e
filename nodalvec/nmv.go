// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nodalvec implements the Nodal Multi-Vector (NMV): per-node
// right-hand-side slabs aligned with the front tree, gathered from
// (Pull) and scattered back to (Push) a DSM-laid-out multivector via the
// inverse permutation map, per spec.md §4.6. Routing mirrors
// dpm.Map.Translate's two-phase all-to-all-v exactly, generalized from a
// single value per index to a width-wide row (fem/domain.go's
// Solution.Y gather / s_linimp.go's Wb-into-Sol.Y scatter are the
// teacher's nearest analogue: per-equation vectors gathered into a
// dense work buffer and scattered back after solve).
package nodalvec

import (
	"github.com/cpmech/gosl/chk"

	"github.com/Solertis/Clique/comm"
	"github.com/Solertis/Clique/dpm"
	"github.com/Solertis/Clique/elimtree"
	"github.com/Solertis/Clique/field"
)

// Multivec is a NMV slab set: one row of Width values per local NMV row
// index, laid out in the node-id order of the Info slice (a local node
// contributes its whole [Off,Off+Size) block; a distributed node
// contributes the rows Off+r, Off+r+s, ... for this process's team rank r
// and team size s).
type Multivec[F field.Scalar] struct {
	Width int
	Rows  [][]F // len(Rows) == len(localRowIndices(infos, c))
}

// localRowIndices enumerates, in tree order, the global row indices this
// process owns in the NMV layout (spec.md §4.6 step 1): all of every
// local node's own rows, plus for distributed nodes the rows owned by
// the local process of that node's team.
func localRowIndices(infos []*elimtree.Info, c comm.Comm) []int {
	var out []int
	for _, info := range infos {
		if !info.Distributed {
			for i := 0; i < info.Size; i++ {
				out = append(out, info.Off+i)
			}
			continue
		}
		rank := info.Team.Rank()
		size := info.Team.Size()
		for i := rank; i < info.Size; i += size {
			out = append(out, info.Off+i)
		}
	}
	return out
}

// NewMultivec allocates a zeroed NMV slab set of the given row width.
func NewMultivec[F field.Scalar](infos []*elimtree.Info, c comm.Comm, width int) *Multivec[F] {
	idx := localRowIndices(infos, c)
	rows := make([][]F, len(idx))
	for i := range rows {
		rows[i] = make([]F, width)
	}
	return &Multivec[F]{Width: width, Rows: rows}
}

// Pull gathers the rows of a DSM-laid-out multivector X (X.Rows[k] holds
// the values for the k-th locally-owned DSM row, first row being
// x.FirstLocalRow) into m, translating NMV row indices through invMap to
// original-ordering DSM indices, then routing by DSM's row-block owner
// (spec.md §4.6 steps 1-4).
func Pull[F field.Scalar](m *Multivec[F], infos []*elimtree.Info, invMap *dpm.Map, dsmBlockSize int, x *DSMVec[F], c comm.Comm) error {
	return route(m, infos, invMap, dsmBlockSize, x, c, true)
}

// Push is Pull's inverse: it scatters m's rows back into x, overwriting
// x's local rows, via the same routing reversed (spec.md §4.6 "Push is
// the inverse: exactly the same routing, with roles reversed").
func Push[F field.Scalar](m *Multivec[F], infos []*elimtree.Info, invMap *dpm.Map, dsmBlockSize int, x *DSMVec[F], c comm.Comm) error {
	return route(m, infos, invMap, dsmBlockSize, x, c, false)
}

// DSMVec is a DSM-laid-out multivector: Rows[k] is the width-wide row for
// local DSM row k (global index FirstLocalRow+k).
type DSMVec[F field.Scalar] struct {
	FirstLocalRow int
	Rows          [][]F
}

func route[F field.Scalar](m *Multivec[F], infos []*elimtree.Info, invMap *dpm.Map, dsmBlockSize int, x *DSMVec[F], c comm.Comm, pulling bool) error {
	size := c.Size()
	width := m.Width

	nmvIdx := localRowIndices(infos, c)
	if len(nmvIdx) != len(m.Rows) {
		return chk.Err("nodalvec: Multivec row count %d does not match NMV layout %d", len(m.Rows), len(nmvIdx))
	}

	// step 2: translate through invMap to original DSM ordering.
	dsmIdx := append([]int(nil), nmvIdx...)
	if err := invMap.Translate(dsmIdx); err != nil {
		return chk.Err("nodalvec: translate failed: %v", err)
	}

	// step 3: route each index to its DSM row-block owner.
	sendCounts := make([]int, size)
	for _, i := range dsmIdx {
		sendCounts[dpm.RowToProcess(i, dsmBlockSize, size)]++
	}
	offsets := make([]int, size)
	cursor := make([]int, size)
	off := 0
	for p := 0; p < size; p++ {
		offsets[p] = off
		off += sendCounts[p]
		cursor[p] = offsets[p]
	}
	sendIdx := make([]float64, off)
	slot := make([]int, len(dsmIdx))
	for k, i := range dsmIdx {
		p := dpm.RowToProcess(i, dsmBlockSize, size)
		slot[k] = cursor[p]
		sendIdx[cursor[p]] = float64(i)
		cursor[p]++
	}

	recvCounts, recvIdx := c.AllToAllV(sendCounts, sendIdx)

	if pulling {
		// owner replies with the width-long row of values, each entry
		// shipped as a (real, imaginary) pair so complex rows survive the
		// float64-only transport intact (spec.md §4.6, §8 scenario S1).
		sendRe := make([]float64, len(recvIdx)*width)
		sendIm := make([]float64, len(recvIdx)*width)
		for k, f := range recvIdx {
			row := int(f) - x.FirstLocalRow
			for w := 0; w < width; w++ {
				sendRe[k*width+w], sendIm[k*width+w] = field.Parts(x.Rows[row][w])
			}
		}
		widthCounts := make([]int, size)
		for p := range recvCounts {
			widthCounts[p] = recvCounts[p] * width
		}
		_, recvRe := c.AllToAllV(widthCounts, sendRe)
		_, recvIm := c.AllToAllV(widthCounts, sendIm)

		sendBackCounts := make([]int, size)
		for p, n := range sendCounts {
			sendBackCounts[p] = n * width
		}
		_, gatheredRe := c.AllToAllV(sendBackCounts, recvRe)
		_, gatheredIm := c.AllToAllV(sendBackCounts, recvIm)

		for k := range nmvIdx {
			for w := 0; w < width; w++ {
				idx := slot[k]*width + w
				m.Rows[k][w] = field.FromRealImag[F](gatheredRe[idx], gatheredIm[idx])
			}
		}
		return nil
	}

	// pushing: ship m's local rows keyed by the same request/answer
	// pattern, reversed — request carries the values, owner overwrites.
	sendRe := make([]float64, off*width)
	sendIm := make([]float64, off*width)
	for k := range nmvIdx {
		for w := 0; w < width; w++ {
			sendRe[slot[k]*width+w], sendIm[slot[k]*width+w] = field.Parts(m.Rows[k][w])
		}
	}
	sendValCounts := make([]int, size)
	for p, n := range sendCounts {
		sendValCounts[p] = n * width
	}
	_, recvRe := c.AllToAllV(sendValCounts, sendRe)
	_, recvIm := c.AllToAllV(sendValCounts, sendIm)

	for k, f := range recvIdx {
		row := int(f) - x.FirstLocalRow
		for w := 0; w < width; w++ {
			idx := k*width + w
			x.Rows[row][w] = field.FromRealImag[F](recvRe[idx], recvIm[idx])
		}
	}
	return nil
}
