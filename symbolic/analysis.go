// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package symbolic implements Symbolic Analysis (SA): the bottom-up walk
// over a septree.Tree that produces one elimtree.Info per node (spec.md
// §4.2). Grounded on fem/domain.go's SetStage bottom-up equation-numbering
// walk (union of element equation sets feeding into node-level struct)
// and gosl/utl's sorted-set helpers for the union/relative-index steps.
package symbolic

import (
	"sort"

	"github.com/cpmech/gosl/chk"

	"github.com/Solertis/Clique/elimtree"
	"github.com/Solertis/Clique/septree"
)

// Analyze walks t in post-order and returns one elimtree.Info per node,
// indexed identically to t.Nodes (spec.md §4.2 steps 1-5). For a
// distributed node it records the team and grid shape only: the
// per-process child row/column index sets (LeftChildColIndices and the
// like) are not computed and stay nil, and no partner exchange is made.
func Analyze(t *septree.Tree) ([]*elimtree.Info, error) {
	infos := make([]*elimtree.Info, len(t.Nodes))
	for _, id := range t.PostOrder() {
		n := &t.Nodes[id]
		info := &elimtree.Info{Size: n.Size, Off: n.Off}

		var leftStruct, rightStruct []int
		var leftInfo, rightInfo *elimtree.Info
		if n.Left != septree.NoNode {
			leftInfo = infos[n.Left]
			leftStruct = filterAbove(leftInfo.LowerStruct, n.Off+n.Size)
		}
		if n.Right != septree.NoNode {
			rightInfo = infos[n.Right]
			rightStruct = filterAbove(rightInfo.LowerStruct, n.Off+n.Size)
		}

		// step 2: union of own original struct with both children's
		// filtered lower structures (spec.md §4.2 step 2).
		merged := unionSorted(unionSorted(dedupSorted(n.OriginalLowerStruct), leftStruct), rightStruct)
		info.LowerStruct = merged

		// step 3: relative indices map each child's *lowerStruct* (length
		// |childLowerStruct|, spec.md §3/§4.2 step 5 — not the child's
		// full assembled list) into this node's assembled index list (own
		// vars + LowerStruct), used by the extend-add step of numeric
		// factorization (spec.md §4.4).
		assembled := info.AssembledIndexList()
		if leftInfo != nil {
			info.LeftRelIndices = relativeIndices(leftInfo.LowerStruct, assembled)
		}
		if rightInfo != nil {
			info.RightRelIndices = relativeIndices(rightInfo.LowerStruct, assembled)
		}

		if !n.Local {
			info.Distributed = true
			info.Team = n.Team
			h, w := gridShape(n.Team.Size())
			info.GridHeight, info.GridWidth = h, w
		}

		infos[id] = info
	}
	return infos, nil
}

// filterAbove returns the subset of a sorted slice strictly >= bound.
func filterAbove(sorted []int, bound int) []int {
	i := sort.SearchInts(sorted, bound)
	out := make([]int, len(sorted)-i)
	copy(out, sorted[i:])
	return out
}

// dedupSorted returns a sorted copy of in with duplicates removed.
func dedupSorted(in []int) []int {
	cp := append([]int(nil), in...)
	sort.Ints(cp)
	out := cp[:0]
	for i, v := range cp {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// unionSorted merges two sorted, duplicate-free slices into a sorted,
// duplicate-free slice (DESIGN NOTES: stdlib merge, no third-party set
// type in the corpus covers this; justified in DESIGN.md).
func unionSorted(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// relativeIndices returns, for each entry of child (sorted subset of
// parent), its position within parent (also sorted). Panics if an entry
// of child is not present in parent — a symbolic-analysis invariant
// violation, not a runtime condition callers should handle.
func relativeIndices(child, parent []int) []int {
	out := make([]int, len(child))
	for k, v := range child {
		pos := sort.SearchInts(parent, v)
		if pos >= len(parent) || parent[pos] != v {
			chk.Panic("symbolic: relative index %d not found in parent assembled list", v)
		}
		out[k] = pos
	}
	return out
}

// gridShape factors a team size into a near-square MC x MR grid, following
// the halving rule of spec.md §3: at the root this is the full team;
// children take subgrids of half the size at each level.
func gridShape(size int) (h, w int) {
	h = 1
	for c := 1; c*c <= size; c++ {
		if size%c == 0 {
			h = c
		}
	}
	w = size / h
	return h, w
}

