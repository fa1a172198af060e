// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package clique is the top-level library API (spec.md §6): idempotent
// InitLibrary/FinalizeLibrary, SymmetricAnalysis, LDL, and Solve, wiring
// together dsm/dpm/septree/elimtree/symbolic/fronttree/numfact/trisolve.
// Grounded on fem.FEM/NewFEM/FEM.Run's top-level orchestration shape and
// main.go's mpi.Start/Stop + recover idiom, generalized into a reusable
// library entry point rather than a CLI driver (the CLI itself is a
// declared Non-goal).
package clique

import (
	"sync"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/mpi"

	"github.com/Solertis/Clique/comm"
	"github.com/Solertis/Clique/dpm"
	"github.com/Solertis/Clique/dsm"
	"github.com/Solertis/Clique/elimtree"
	"github.com/Solertis/Clique/field"
	"github.com/Solertis/Clique/frontalg"
	"github.com/Solertis/Clique/fronttree"
	"github.com/Solertis/Clique/nodalvec"
	"github.com/Solertis/Clique/numfact"
	"github.com/Solertis/Clique/septree"
	"github.com/Solertis/Clique/symbolic"
	"github.com/Solertis/Clique/trisolve"
)

// Config mirrors inp.Simulation/inp.Stage.Control's read-once-at-start
// shape (SPEC_FULL.md "AMBIENT STACK").
type Config struct {
	Sequential         bool
	Cutoff             int
	NumDistSeps        int
	NumSeqSeps         int
	Analytic           bool
	UseCustomAllToAllV bool
	BarrierInAllToAllV bool
	CheckIfSingular    bool
	StoreFactRecvInds  bool
	Verbose            bool
}

var (
	initMu    sync.Mutex
	initCount int
)

// InitLibrary starts the collective transport and bumps a reference
// count so nested Init/Finalize pairs (e.g. a caller embedding this
// library inside a larger MPI application) are safe, per SUPPLEMENTED
// FEATURES' numCliqueInits (SPEC_FULL.md).
func InitLibrary() {
	initMu.Lock()
	defer initMu.Unlock()
	if initCount == 0 {
		mpi.Start(false)
	}
	initCount++
}

// FinalizeLibrary decrements the reference count, stopping the transport
// only when the last caller releases it.
func FinalizeLibrary() {
	initMu.Lock()
	defer initMu.Unlock()
	if initCount == 0 {
		return
	}
	initCount--
	if initCount == 0 {
		mpi.Stop(false)
	}
}

// Run wraps a library-level operation in the recover+log pattern of
// main.go: any panic is converted into a logged error on rank 0 before
// propagating as a returned error, so callers never see a raw panic
// escape a collective call.
func Run(c comm.Comm, cfg Config, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if c.Rank() == 0 {
				io.Pfred("ERROR: %v\n", r)
			}
			err = chk.Err("clique: %v", r)
		}
	}()
	err = fn()
	return
}

// Context bundles the objects SymmetricAnalysis/LDL/Solve thread through:
// the separator tree from the (external) partitioner, its elimination-
// tree info, and the front tree once allocated.
type Context[F field.Scalar] struct {
	Tree   *septree.Tree
	Infos  []*elimtree.Info
	Fronts *fronttree.Tree[F]
}

// SymmetricAnalysis runs bottom-up symbolic analysis over a separator
// tree produced by the (external, non-goal) partitioner, producing one
// elimtree.Info per node (spec.md §6 "Analysis: SymmetricAnalysis(eTree,
// info, storeFactRecvInds?)").
func SymmetricAnalysis[F field.Scalar](t *septree.Tree) (*Context[F], error) {
	infos, err := symbolic.Analyze(t)
	if err != nil {
		return nil, err
	}
	return &Context[F]{Tree: t, Infos: infos}, nil
}

// InitFrontTree allocates the front tree's numeric storage and scatters
// the assembled matrix A into it with fronttree.Scatter (spec.md §4.3),
// marking IsHermitian as a first-class property decided once here
// (SPEC_FULL.md supplemented feature). Entries keep the indices they
// have in m; inv supplies only the order N, and no permutation is
// applied.
func InitFrontTree[F field.Scalar](ctx *Context[F], m *dsm.Matrix[F], inv *dpm.Map, c comm.Comm, isHermitian bool) error {
	ctx.Fronts = fronttree.New[F](ctx.Infos, isHermitian)
	return fronttree.Scatter(ctx.Fronts, ctx.Infos, m, inv, c)
}

// LDL factors ctx.Fronts in place: local phase then distributed phase,
// per spec.md §4.4. It takes no mode: local fronts are always factored
// with FrontLDL and tagged LDL_1D (FrontBlockLDL is not used here), and a
// distributed front is factored and tagged LDL_1D only when its team has
// a single process.
func LDL[F field.Scalar](ctx *Context[F], cfg Config) error {
	nfCfg := numfact.Config{BlockLDL: false, CheckIfSingular: cfg.CheckIfSingular}
	if err := numfact.LocalLDL(ctx.Tree, ctx.Infos, ctx.Fronts, nfCfg); err != nil {
		return err
	}
	return numfact.DistLDL(ctx.Tree, ctx.Infos, ctx.Fronts, nfCfg)
}

// Solve runs the forward and backward triangular-solve sweeps over the
// per-node slabs x (already in tree order, one Dense per node; see
// nodalvec.Pull to build x from a DSM-laid-out RHS and nodalvec.Push to
// scatter the result back), per spec.md §4.5.
func Solve[F field.Scalar](ctx *Context[F], x []*frontalg.Dense[F]) error {
	if err := trisolve.Forward(ctx.Tree, ctx.Infos, ctx.Fronts, x); err != nil {
		return err
	}
	return trisolve.Backward(ctx.Tree, ctx.Infos, ctx.Fronts, x)
}

// NewRHS builds a per-node slab set from a DSM-laid-out multivector,
// gathering through the inverse permutation via nodalvec.Pull, and
// returns it in the layout Solve expects.
func NewRHS[F field.Scalar](ctx *Context[F], inv *dpm.Map, dsmBlockSize int, rhs *nodalvec.DSMVec[F], c comm.Comm, width int) ([]*frontalg.Dense[F], error) {
	m := nodalvec.NewMultivec[F](ctx.Infos, c, width)
	if err := nodalvec.Pull(m, ctx.Infos, inv, dsmBlockSize, rhs, c); err != nil {
		return nil, err
	}
	out := make([]*frontalg.Dense[F], len(ctx.Infos))
	cursor := 0
	for id, info := range ctx.Infos {
		order := info.FrontOrder()
		d := frontalg.NewDense[F](order, width)
		for i := 0; i < info.Size; i++ {
			for w := 0; w < width; w++ {
				d.Set(i, w, m.Rows[cursor][w])
			}
			cursor++
		}
		out[id] = d
	}
	return out, nil
}
