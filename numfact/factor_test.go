// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package numfact

import (
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/Solertis/Clique/comm/localcomm"
	"github.com/Solertis/Clique/frontalg"
	"github.com/Solertis/Clique/fronttree"
	"github.com/Solertis/Clique/septree"
	"github.com/Solertis/Clique/symbolic"
)

// Test_numfact01 factors a tiny 3x3 SPD matrix (no lower structure, a
// single leaf front) and checks L*D*L^T reproduces A.
func Test_numfact01(tst *testing.T) {

	chk.PrintTitle("numfact01: single-front LDL reproduces A")

	a := [][]float64{
		{4, 2, 2},
		{2, 5, 3},
		{2, 3, 6},
	}
	f := &fronttree.Front[float64]{L: frontalg.NewDense[float64](3, 3), Work: frontalg.NewDense[float64](0, 0)}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			f.L.Set(i, j, a[i][j])
		}
	}

	if err := FrontLDL(f, 3, false, true); err != nil {
		tst.Fatalf("FrontLDL failed: %v", err)
	}

	// reconstruct L*D*L^T from the packed front and compare to A.
	l := frontalg.NewDense[float64](3, 3)
	d := make([]float64, 3)
	for i := 0; i < 3; i++ {
		d[i] = f.L.At(i, i)
		l.Set(i, i, 1)
		for j := 0; j < i; j++ {
			l.Set(i, j, f.L.At(i, j))
		}
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k <= i && k <= j; k++ {
				sum += l.At(i, k) * d[k] * l.At(j, k)
			}
			if diff := sum - a[i][j]; diff > 1e-9 || diff < -1e-9 {
				tst.Errorf("LDL^T mismatch at (%d,%d): got %v want %v", i, j, sum, a[i][j])
			}
		}
	}
}

// Test_numfact02 checks singular-pivot detection.
func Test_numfact02(tst *testing.T) {

	chk.PrintTitle("numfact02: singular pivot detected")

	f := &fronttree.Front[float64]{L: frontalg.NewDense[float64](2, 2), Work: frontalg.NewDense[float64](0, 0)}
	// first pivot is exactly zero.
	f.L.Set(0, 0, 0)
	f.L.Set(1, 0, 1)
	f.L.Set(1, 1, 1)

	if err := FrontLDL(f, 2, false, true); err == nil {
		tst.Errorf("expected a singular-matrix error")
	}
}

// Test_numfact03 runs LocalLDL over two leaves and DistLDL over a
// team-size-1 distributed root, and checks the root's pivots against the
// values hand-derived from nested-dissection elimination of the full 6x6
// matrix (spec.md §4.4: this exercises packUnpackChild actually shipping
// non-zero child Schur-complement entries into the parent front, not the
// previously all-zero buffer).
func Test_numfact03(tst *testing.T) {

	chk.PrintTitle("numfact03: DistLDL root pivots match hand-derived nested dissection")

	t := septree.New()
	left := t.AddLeaf(2, 0, []int{4, 5})
	right := t.AddLeaf(2, 2, []int{4, 5})
	world := localcomm.NewWorld(1)
	root, err := t.AddDistributed(2, 4, nil, left, right, world.Comm(0))
	if err != nil {
		tst.Fatalf("AddDistributed failed: %v", err)
	}
	t.SetRoot(root)

	infos, err := symbolic.Analyze(t)
	if err != nil {
		tst.Fatalf("Analyze failed: %v", err)
	}

	ft := fronttree.New[float64](infos, false)

	// leaf0 (vars 0,1), connected to vars 4,5 with diag 5, coupling 1.
	leaf0 := ft.Fronts[left]
	leaf0.L.Set(0, 0, 5)
	leaf0.L.Set(1, 0, 1)
	leaf0.L.Set(2, 0, 1)
	leaf0.L.Set(3, 0, 0)
	leaf0.L.Set(1, 1, 5)
	leaf0.L.Set(2, 1, 0)
	leaf0.L.Set(3, 1, 1)

	// leaf1 (vars 2,3): identical structure.
	leaf1 := ft.Fronts[right]
	leaf1.L.Set(0, 0, 5)
	leaf1.L.Set(1, 0, 1)
	leaf1.L.Set(2, 0, 1)
	leaf1.L.Set(3, 0, 0)
	leaf1.L.Set(1, 1, 5)
	leaf1.L.Set(2, 1, 0)
	leaf1.L.Set(3, 1, 1)

	// root's own diagonal block (vars 4,5), diag 10, no coupling.
	rootFront := ft.Fronts[root]
	rootFront.L2D.Set(0, 0, 10)
	rootFront.L2D.Set(1, 0, 0)
	rootFront.L2D.Set(1, 1, 10)

	cfg := Config{}
	if err := LocalLDL(t, infos, ft, cfg); err != nil {
		tst.Fatalf("LocalLDL failed: %v", err)
	}
	if err := DistLDL(t, infos, ft, cfg); err != nil {
		tst.Fatalf("DistLDL failed: %v", err)
	}

	wantD0 := 115.0 / 12.0
	wantD1 := 1102.0 / 115.0
	gotD0 := rootFront.L2D.At(0, 0)
	gotD1 := rootFront.L2D.At(1, 1)
	if diff := gotD0 - wantD0; diff > 1e-9 || diff < -1e-9 {
		tst.Errorf("root pivot 0: got %v want %v", gotD0, wantD0)
	}
	if diff := gotD1 - wantD1; diff > 1e-9 || diff < -1e-9 {
		tst.Errorf("root pivot 1: got %v want %v", gotD1, wantD1)
	}
}
