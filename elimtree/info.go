// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package elimtree holds the Symmetric Elimination-Tree Information
// (ETI): per-node metadata produced by symbolic analysis (package
// symbolic) and consumed by the front tree, numeric factorization, and
// triangular solve packages. Shaped after fem/domain.go's per-stage
// bookkeeping arrays (o.NnzKb, o.Ny, o.T1eqs, ...), generalized from "one
// flat equation system" to "one entry per elimination-tree node".
package elimtree

import "github.com/Solertis/Clique/comm"

// Info is one node's symbolic metadata, indexed the same way as the
// septree.Tree it was built from (NodeID, not repeated here to avoid an
// import cycle between elimtree and septree; callers keep the two arenas
// in lockstep by index).
type Info struct {
	Size int // number of variables this node eliminates
	Off  int // starting global index

	// LowerStruct is the sorted, strictly increasing list of row indices
	// below the diagonal in the assembled front (spec.md §3 invariant:
	// every entry >= Off+Size).
	LowerStruct []int

	// LeftRelIndices/RightRelIndices map each entry of a child's
	// LowerStruct into its position within this node's assembled index
	// list (sorted union of [Off,Off+Size) with LowerStruct); nil for
	// leaves without the corresponding child.
	LeftRelIndices, RightRelIndices []int

	// Distributed-node fields (zero value for local nodes):
	Distributed bool
	Team        comm.Comm

	// GridHeight/GridWidth describe the 2D MC/MR process grid this node's
	// front is distributed over; a subgrid of the parent's of exactly
	// half the size (spec.md §3).
	GridHeight, GridWidth int

	// LeftChildColIndices/LeftChildRowIndices and their right-child
	// counterparts: the subsets of child-update rows/columns owned by the
	// local process of the parent grid (spec.md §4.2 step 6). symbolic.
	// Analyze does not fill these; they stay nil.
	LeftChildColIndices, LeftChildRowIndices   []int
	RightChildColIndices, RightChildRowIndices []int
}

// AssembledIndexList returns the sorted union of [Off,Off+Size) with
// LowerStruct — the parent's full assembled index list (spec.md §3).
func (n *Info) AssembledIndexList() []int {
	out := make([]int, 0, n.Size+len(n.LowerStruct))
	for i := 0; i < n.Size; i++ {
		out = append(out, n.Off+i)
	}
	out = append(out, n.LowerStruct...)
	return out
}

// FrontOrder is the order of the dense front matrix: Size + |LowerStruct|.
func (n *Info) FrontOrder() int { return n.Size + len(n.LowerStruct) }
