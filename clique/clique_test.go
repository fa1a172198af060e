// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package clique

import (
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/Solertis/Clique/comm/localcomm"
	"github.com/Solertis/Clique/dpm"
	"github.com/Solertis/Clique/dsm"
	"github.com/Solertis/Clique/nodalvec"
	"github.com/Solertis/Clique/septree"
)

// Test_clique01 is spec.md §8 property 6 (factor-solve consistency) on a
// tiny single-process 3x3 SPD system: Ax=b via LDL+Solve reproduces x.
func Test_clique01(tst *testing.T) {

	chk.PrintTitle("clique01: factor-solve consistency on a 3x3 SPD system")

	world := localcomm.NewWorld(1)
	c := world.Comm(0)

	a := [][]float64{
		{4, 2, 2},
		{2, 5, 3},
		{2, 3, 6},
	}

	m := dsm.New[float64](3, c.Rank(), c.Size())
	if err := m.StartAssembly(); err != nil {
		tst.Fatalf("StartAssembly failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if err := m.Insert(i, j, a[i][j]); err != nil {
				tst.Fatalf("Insert failed: %v", err)
			}
		}
	}
	if err := m.StopAssembly(); err != nil {
		tst.Fatalf("StopAssembly failed: %v", err)
	}

	inv := dpm.New(3, c)
	copy(inv.Values(), []int{0, 1, 2})

	t := septree.New()
	leaf := t.AddLeaf(3, 0, nil)
	t.SetRoot(leaf)

	ctx, err := SymmetricAnalysis[float64](t)
	if err != nil {
		tst.Fatalf("SymmetricAnalysis failed: %v", err)
	}

	if err := InitFrontTree(ctx, m, inv, c, false); err != nil {
		tst.Fatalf("InitFrontTree failed: %v", err)
	}

	if err := LDL(ctx, Config{CheckIfSingular: true}); err != nil {
		tst.Fatalf("LDL failed: %v", err)
	}

	b := []float64{1, 2, 3}
	rhs := &nodalvec.DSMVec[float64]{FirstLocalRow: 0, Rows: [][]float64{{b[0]}, {b[1]}, {b[2]}}}

	x, err := NewRHS(ctx, inv, 3, rhs, c, 1)
	if err != nil {
		tst.Fatalf("NewRHS failed: %v", err)
	}
	if err := Solve(ctx, x); err != nil {
		tst.Fatalf("Solve failed: %v", err)
	}

	sol := []float64{x[0].At(0, 0), x[0].At(1, 0), x[0].At(2, 0)}
	for i := 0; i < 3; i++ {
		var sum float64
		for j := 0; j < 3; j++ {
			sum += a[i][j] * sol[j]
		}
		if diff := sum - b[i]; diff > 1e-9 || diff < -1e-9 {
			tst.Errorf("Ax=b residual too large at row %d: got %v want %v", i, sum, b[i])
		}
	}
}

// Test_clique02 checks InitLibrary/FinalizeLibrary reference counting is
// idempotent across nested calls.
func Test_clique02(tst *testing.T) {

	chk.PrintTitle("clique02: InitLibrary/FinalizeLibrary ref counting")

	InitLibrary()
	InitLibrary()
	if initCount != 2 {
		tst.Errorf("expected ref count 2, got %d", initCount)
	}
	FinalizeLibrary()
	if initCount != 1 {
		tst.Errorf("expected ref count 1, got %d", initCount)
	}
	FinalizeLibrary()
	if initCount != 0 {
		tst.Errorf("expected ref count 0, got %d", initCount)
	}
}
