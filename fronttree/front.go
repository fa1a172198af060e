// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fronttree implements the Front Tree (FT): numeric storage for
// each elimination-tree node, keyed by the same node id as the
// septree.Tree / elimtree.Info arrays it was built from. Local nodes get
// a dense front (grounded on `la.MatAlloc`'s row-major allocation,
// fem/e_beam.go); distributed nodes get a panel/2D-grid front, tagged by
// a monotonically-advancing FrontType (spec.md §3 invariant).
package fronttree

import (
	"github.com/cpmech/gosl/chk"

	"github.com/Solertis/Clique/comm"
	"github.com/Solertis/Clique/dpm"
	"github.com/Solertis/Clique/dsm"
	"github.com/Solertis/Clique/elimtree"
	"github.com/Solertis/Clique/field"
	"github.com/Solertis/Clique/frontalg"
)

// FrontType tags a front's current representation. Transitions are
// monotonic: INIT -> LDL_1D -> LDL_SELINV_1D -> LDL_SELINV_2D, or
// INIT -> BLOCK_LDL_2D; no front ever regresses to an earlier type.
type FrontType int

const (
	INIT FrontType = iota
	LDL_1D
	LDL_SELINV_1D
	LDL_SELINV_2D
	BLOCK_LDL_2D
)

// monotoneRank orders FrontType for the transition check; BLOCK_LDL_2D is
// its own track, ranked level with LDL_1D rather than above
// LDL_SELINV_2D: it can follow INIT or LDL_1D, but not either SELINV type.
func monotoneRank(t FrontType) int {
	switch t {
	case INIT:
		return 0
	case LDL_1D:
		return 1
	case LDL_SELINV_1D:
		return 2
	case LDL_SELINV_2D:
		return 3
	case BLOCK_LDL_2D:
		return 1
	}
	return -1
}

// Front is one node's numeric storage. Local nodes use L (+ scratch
// Work); distributed nodes additionally carry the 2D-grid panel L2D and
// Work1D. Which fields are populated is decided by whether the owning
// elimtree.Info node is Distributed.
type Front[F field.Scalar] struct {
	Type FrontType

	L    *frontalg.Dense[F] // local dense front (INIT/LDL_1D/LDL_SELINV_1D on a local node)
	Work *frontalg.Dense[F] // scratch of matching shape

	// Distributed front storage: L2D is this process's local panel of
	// the front under the node's 2D MC/MR grid; Work1D is the column-
	// panel scratch used while unwinding extend-add.
	L2D    *frontalg.Dense[F]
	Work1D *frontalg.Dense[F]
}

// setType advances t's type, panicking if the requested type is not
// reachable from the current one (spec.md monotonicity invariant — a
// violation here is a solver bug, not a runtime condition).
func (f *Front[F]) setType(next FrontType) {
	if monotoneRank(next) < monotoneRank(f.Type) && f.Type != INIT {
		chk.Panic("fronttree: front type must advance monotonically, got %d after %d", next, f.Type)
	}
	f.Type = next
}

// SetType is the exported form used by numeric factorization once a
// front's representation has genuinely changed.
func (f *Front[F]) SetType(next FrontType) { f.setType(next) }

// Tree holds one Front per elimtree node plus the Hermitian/symmetric
// flag decided once at construction (SPEC_FULL.md supplemented feature,
// grounded on dist_front_block.hpp's IsHermitian-at-construction pattern).
type Tree[F field.Scalar] struct {
	Fronts      []*Front[F]
	IsHermitian bool
}

// New initializes a front tree from elimination-tree info: one Front per
// node, dense for local nodes, zero-initialized L2D/Work1D panels for
// distributed ones (Scatter does not fill these).
func New[F field.Scalar](infos []*elimtree.Info, isHermitian bool) *Tree[F] {
	t := &Tree[F]{Fronts: make([]*Front[F], len(infos)), IsHermitian: isHermitian}
	for i, info := range infos {
		order := info.FrontOrder()
		f := &Front[F]{Type: INIT}
		if !info.Distributed {
			m := order - info.Size
			f.L = frontalg.NewDense[F](order, info.Size)
			f.Work = frontalg.NewDense[F](m, m)
		} else {
			rows := order / info.GridHeight
			if rows*info.GridHeight < order {
				rows++
			}
			cols := info.Size / info.GridWidth
			if cols*info.GridWidth < info.Size {
				cols++
			}
			f.L2D = frontalg.NewDense[F](rows, cols)
			f.Work1D = frontalg.NewDense[F](rows, cols)
		}
		t.Fronts[i] = f
	}
	return t
}

// Scatter populates every local front's dense storage from a distributed
// sparse matrix, mechanically identical to nodalvec.Pull but keyed by
// matrix entries rather than vector entries (spec.md §4.3): each process
// ships every (global row, global col, value) triple it holds to the
// row's owner under a ceil(N/P) row-block split, and every recipient
// writes the value into its local front at the relative position given
// by the node's assembled index list. Entries keep the row and column
// indices they have in m: inv supplies only the order N, and no
// permutation is applied to the entries.
func Scatter[F field.Scalar](t *Tree[F], infos []*elimtree.Info, m *dsm.Matrix[F], inv *dpm.Map, c comm.Comm) error {
	size := c.Size()

	type triple struct {
		row, col int
		val      F
	}
	owner := func(globalRow int) int {
		// row-block owner of globalRow with block size ceil(N/P), N
		// taken from the inverse map.
		return dpm.RowToProcess(globalRow, (inv.N()+size-1)/size, size)
	}

	sendCounts := make([]int, size)
	var triples []triple
	for local := m.FirstLocalRow(); local < m.FirstLocalRow()+m.NumLocalRows(); local++ {
		cols, vals := m.Row(local)
		for k, col := range cols {
			triples = append(triples, triple{row: local, col: col, val: vals[k]})
			sendCounts[owner(local)]++
		}
	}

	offsets := make([]int, size)
	cursor := make([]int, size)
	off := 0
	for p := 0; p < size; p++ {
		offsets[p] = off
		off += sendCounts[p]
		cursor[p] = offsets[p]
	}
	sendRow := make([]float64, off)
	sendCol := make([]float64, off)
	sendRe := make([]float64, off)
	sendIm := make([]float64, off)
	for _, tr := range triples {
		p := owner(tr.row)
		idx := cursor[p]
		sendRow[idx] = float64(tr.row)
		sendCol[idx] = float64(tr.col)
		sendRe[idx], sendIm[idx] = field.Parts(tr.val)
		cursor[p]++
	}

	_, recvRow := c.AllToAllV(sendCounts, sendRow)
	_, recvCol := c.AllToAllV(sendCounts, sendCol)
	_, recvRe := c.AllToAllV(sendCounts, sendRe)
	_, recvIm := c.AllToAllV(sendCounts, sendIm)

	for k := range recvRow {
		row := int(recvRow[k])
		col := int(recvCol[k])
		val := field.FromRealImag[F](recvRe[k], recvIm[k])
		nodeID, rowOff, colOff := locate(infos, row, col)
		if nodeID < 0 {
			continue
		}
		front := t.Fronts[nodeID]
		if front.L != nil {
			front.L.Set(rowOff, colOff, val)
		}
	}
	return nil
}

// locate finds which front (node id, local row offset, local col offset)
// a global (row,col) pair belongs to, given each node's assembled index
// list. Returns nodeID -1 if neither axis is covered locally (should not
// happen for a correctly routed entry).
func locate(infos []*elimtree.Info, row, col int) (nodeID, rowOff, colOff int) {
	for id, info := range infos {
		if col < info.Off || col >= info.Off+info.Size {
			continue
		}
		assembled := info.AssembledIndexList()
		for r, v := range assembled {
			if v == row {
				return id, r, col - info.Off
			}
		}
	}
	return -1, 0, 0
}
