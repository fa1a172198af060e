// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trisolve implements Triangular Solve (TS): the forward
// (leaves→root, additive unpack) and backward (root→leaves, pull
// unpack) sweeps of spec.md §4.5, dispatching per front type. Grounded
// on s_linimp.go's d.LinSol.SolveR(d.Wb, d.Fb, false) step and the
// primary-variable update loop immediately following it.
package trisolve

import (
	"github.com/cpmech/gosl/chk"

	"github.com/Solertis/Clique/elimtree"
	"github.com/Solertis/Clique/field"
	"github.com/Solertis/Clique/frontalg"
	"github.com/Solertis/Clique/fronttree"
	"github.com/Solertis/Clique/septree"
)

// Forward runs the forward sweep (applies L^-1) over t bottom-up,
// overwriting x's per-node slabs in place. x[id] must already hold the
// node's slab of the RHS in its top Size rows before calling.
func Forward[F field.Scalar](t *septree.Tree, infos []*elimtree.Info, ft *fronttree.Tree[F], x []*frontalg.Dense[F]) error {
	for _, id := range t.PostOrder() {
		n := &t.Nodes[id]
		info := infos[id]
		front := ft.Fronts[id]
		slab := x[id]

		if n.Left != septree.NoNode {
			if err := axpyChildUpdate(slab, x[n.Left], info.LeftRelIndices, info.Size); err != nil {
				return err
			}
		}
		if n.Right != septree.NoNode {
			if err := axpyChildUpdate(slab, x[n.Right], info.RightRelIndices, info.Size); err != nil {
				return err
			}
		}

		if err := forwardFront(front, info.Size, ft.IsHermitian, slab); err != nil {
			return err
		}
	}
	return nil
}

// axpyChildUpdate additively unpacks a child's update slab (the rows
// below the child's own Size, i.e. its lowerStruct contribution) into
// this node's slab at the rows given by relIndices, per spec.md §4.5
// step 2 ("unpack additively into work1d ... Axpy, not overwrite").
func axpyChildUpdate[F field.Scalar](slab, childSlab *frontalg.Dense[F], relIndices []int, parentSize int) error {
	width := slab.Cols
	for i, ri := range relIndices {
		childRow := childSlab.Rows - len(relIndices) + i
		if childRow < 0 || childRow >= childSlab.Rows {
			return chk.Err("trisolve: child row %d out of range", childRow)
		}
		for w := 0; w < width; w++ {
			slab.Set(ri, w, slab.At(ri, w)+childSlab.At(childRow, w))
		}
	}
	return nil
}

// forwardFront applies the front's forward solve, dispatching on Type
// per spec.md §4.5 step 3.
func forwardFront[F field.Scalar](f *fronttree.Front[F], size int, isHermitian bool, slab *frontalg.Dense[F]) error {
	switch f.Type {
	case fronttree.LDL_1D:
		return frontLowerForwardSolve(f, size, slab)
	case fronttree.LDL_SELINV_1D, fronttree.LDL_SELINV_2D:
		return frontFastLowerForwardSolve(f, size, slab)
	case fronttree.BLOCK_LDL_2D:
		return frontBlockLowerForwardSolve(f, size, slab)
	default:
		return chk.Err("trisolve: unsupported front type %d for forward solve", f.Type)
	}
}

// frontLowerForwardSolve is the LDL_1D kernel: a unit-lower TRSM on the
// top size rows of slab, followed by a GEMM to propagate into the rest.
func frontLowerForwardSolve[F field.Scalar](f *fronttree.Front[F], size int, slab *frontalg.Dense[F]) error {
	top := sub(f.L, 0, size, 0, size)
	frontalg.Trsm(false, true, field.FromFloat64[F](1), top, subSlab(slab, 0, size))

	m := f.L.Rows - size
	if m == 0 {
		return nil
	}
	l21 := sub(f.L, size, f.L.Rows, 0, size)
	bot := subSlab(slab, size, slab.Rows)
	frontalg.Gemm(false, false, negOne[F](), l21, subSlab(slab, 0, size), field.FromFloat64[F](1), bot)
	return nil
}

// frontFastLowerForwardSolve is the SELINV kernel (spec.md §4.5 step 3,
// LDL_SELINV_* branch): the diagonal block already stores its inverse,
// so the top rows become a direct GEMM rather than a TRSM.
func frontFastLowerForwardSolve[F field.Scalar](f *fronttree.Front[F], size int, slab *frontalg.Dense[F]) error {
	top := sub(f.L, 0, size, 0, size)
	topSlab := subSlab(slab, 0, size)
	tmp := frontalg.NewDense[F](size, slab.Cols)
	frontalg.Gemm(false, false, field.FromFloat64[F](1), top, topSlab, field.FromFloat64[F](0), tmp)
	for i := 0; i < size; i++ {
		for w := 0; w < slab.Cols; w++ {
			slab.Set(i, w, tmp.At(i, w))
		}
	}

	m := f.L.Rows - size
	if m == 0 {
		return nil
	}
	l21 := sub(f.L, size, f.L.Rows, 0, size)
	bot := subSlab(slab, size, slab.Rows)
	frontalg.Gemm(false, false, negOne[F](), l21, tmp, field.FromFloat64[F](1), bot)
	return nil
}

// frontBlockLowerForwardSolve is the BLOCK_LDL_2D kernel: one GEMM with
// the already-inverted top block for the top rows, then, when the front
// has a lower structure, a second GEMM with the stored L21 panel to
// update the bottom rows (spec.md §4.5 step 3, BLOCK_LDL_2D branch).
func frontBlockLowerForwardSolve[F field.Scalar](f *fronttree.Front[F], size int, slab *frontalg.Dense[F]) error {
	topSlab := subSlab(slab, 0, size)
	tmp := frontalg.NewDense[F](size, slab.Cols)
	frontalg.Gemm(false, false, field.FromFloat64[F](1), sub(f.L, 0, size, 0, size), topSlab, field.FromFloat64[F](0), tmp)
	for i := 0; i < size; i++ {
		for w := 0; w < slab.Cols; w++ {
			slab.Set(i, w, tmp.At(i, w))
		}
	}
	m := f.L.Rows - size
	if m == 0 {
		return nil
	}
	l21 := sub(f.L, size, f.L.Rows, 0, size)
	bot := subSlab(slab, size, slab.Rows)
	frontalg.Gemm(false, false, negOne[F](), l21, tmp, field.FromFloat64[F](1), bot)
	return nil
}

// Backward runs the backward sweep over t top-down: on an LDL_1D front it
// applies D1^-1 to the top rows and then L^-T (L^-H for Hermitian
// fronts), so Forward followed by Backward solves L D L^T x = b. The
// root's slab is initialized in place, and for each step
// the parent's update is *pulled* (not added) into the node's bottom
// rows before the backward front solve.
func Backward[F field.Scalar](t *septree.Tree, infos []*elimtree.Info, ft *fronttree.Tree[F], x []*frontalg.Dense[F]) error {
	for _, id := range t.PreOrder() {
		n := &t.Nodes[id]
		info := infos[id]
		front := ft.Fronts[id]
		slab := x[id]

		if err := backwardFront(front, info.Size, ft.IsHermitian, slab); err != nil {
			return err
		}

		if n.Left != septree.NoNode {
			pullParentUpdate(x[n.Left], slab, infos[id].LeftRelIndices)
		}
		if n.Right != septree.NoNode {
			pullParentUpdate(x[n.Right], slab, infos[id].RightRelIndices)
		}
	}
	return nil
}

// pullParentUpdate overwrites (not adds) childSlab's bottom rows with
// the parent's slab rows at relIndices, per spec.md §4.5 backward pass.
func pullParentUpdate[F field.Scalar](childSlab, parentSlab *frontalg.Dense[F], relIndices []int) {
	width := childSlab.Cols
	for i, ri := range relIndices {
		childRow := childSlab.Rows - len(relIndices) + i
		for w := 0; w < width; w++ {
			childSlab.Set(childRow, w, parentSlab.At(ri, w))
		}
	}
}

func backwardFront[F field.Scalar](f *fronttree.Front[F], size int, isHermitian bool, slab *frontalg.Dense[F]) error {
	m := f.L.Rows - size
	top := subSlab(slab, 0, size)

	if f.Type == fronttree.LDL_1D {
		// D1 sits on the diagonal of the top block: apply D1^-1 first.
		for i := 0; i < size; i++ {
			for w := 0; w < top.Cols; w++ {
				top.Set(i, w, top.At(i, w)*field.Inv(f.L.At(i, i)))
			}
		}
	}

	if m > 0 {
		l21 := sub(f.L, size, f.L.Rows, 0, size)
		bot := subSlab(slab, size, slab.Rows)
		var l21t *frontalg.Dense[F]
		if isHermitian {
			l21t = frontalg.Adjoint(l21)
		} else {
			l21t = frontalg.Transpose(l21)
		}
		frontalg.Gemm(false, false, negOne[F](), l21t, bot, field.FromFloat64[F](1), top)
	}

	switch f.Type {
	case fronttree.LDL_1D:
		t := sub(f.L, 0, size, 0, size)
		if isHermitian {
			t = frontalg.Transpose(frontalg.Adjoint(t))
		}
		frontalg.Trsm(true, true, field.FromFloat64[F](1), t, top)
	case fronttree.LDL_SELINV_1D, fronttree.LDL_SELINV_2D:
		t := sub(f.L, 0, size, 0, size)
		var tt *frontalg.Dense[F]
		if isHermitian {
			tt = frontalg.Adjoint(t)
		} else {
			tt = frontalg.Transpose(t)
		}
		tmp := frontalg.NewDense[F](size, slab.Cols)
		frontalg.Gemm(false, false, field.FromFloat64[F](1), tt, top, field.FromFloat64[F](0), tmp)
		for i := 0; i < size; i++ {
			for w := 0; w < slab.Cols; w++ {
				top.Set(i, w, tmp.At(i, w))
			}
		}
	case fronttree.BLOCK_LDL_2D:
		return chk.Err("trisolve: BLOCK_LDL_2D fronts are unsupported for backward solve")
	default:
		return chk.Err("trisolve: unsupported front type %d for backward solve", f.Type)
	}
	return nil
}

// sub returns a view-by-copy of a's [r0,r1) x [c0,c1) block (copy rather
// than a true view, since frontalg.Dense stores row-major contiguous
// data and front blocks are not generally contiguous sub-ranges).
func sub[F field.Scalar](a *frontalg.Dense[F], r0, r1, c0, c1 int) *frontalg.Dense[F] {
	out := frontalg.NewDense[F](r1-r0, c1-c0)
	for i := r0; i < r1; i++ {
		for j := c0; j < c1; j++ {
			out.Set(i-r0, j-c0, a.At(i, j))
		}
	}
	return out
}

// subSlab returns a true view onto rows [r0,r1) of a (full-width, so the
// row-major backing array is contiguous): writes through the returned
// Dense are writes through a, unlike sub's copy-based column slicing.
func subSlab[F field.Scalar](a *frontalg.Dense[F], r0, r1 int) *frontalg.Dense[F] {
	return &frontalg.Dense[F]{Rows: r1 - r0, Cols: a.Cols, Data: a.Data[r0*a.Cols : r1*a.Cols]}
}

func negOne[F field.Scalar]() F {
	return field.FromFloat64[F](-1)
}
