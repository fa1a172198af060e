// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trisolve

import (
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/Solertis/Clique/elimtree"
	"github.com/Solertis/Clique/frontalg"
	"github.com/Solertis/Clique/fronttree"
	"github.com/Solertis/Clique/septree"
)

// Test_trisolve01 checks backward(forward(x)) recovers x on an identity
// factor (spec.md §8 testable property 7): a single leaf node, L == I.
func Test_trisolve01(tst *testing.T) {

	chk.PrintTitle("trisolve01: backward(forward(x)) == x on identity factor")

	t := septree.New()
	leaf := t.AddLeaf(3, 0, nil)
	t.SetRoot(leaf)

	infos := []*elimtree.Info{{Size: 3, Off: 0}}

	ft := &fronttree.Tree[float64]{Fronts: []*fronttree.Front[float64]{
		{Type: fronttree.LDL_1D, L: frontalg.NewDense[float64](3, 3), Work: frontalg.NewDense[float64](0, 0)},
	}}
	for i := 0; i < 3; i++ {
		ft.Fronts[0].L.Set(i, i, 1)
	}

	slab := frontalg.NewDense[float64](3, 1)
	slab.Set(0, 0, 2)
	slab.Set(1, 0, 3)
	slab.Set(2, 0, 5)
	original := []float64{2, 3, 5}

	x := []*frontalg.Dense[float64]{slab}

	if err := Forward(t, infos, ft, x); err != nil {
		tst.Fatalf("Forward failed: %v", err)
	}
	if err := Backward(t, infos, ft, x); err != nil {
		tst.Fatalf("Backward failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if got, want := slab.At(i, 0), original[i]; got != want {
			tst.Errorf("row %d: got %v want %v", i, got, want)
		}
	}
}

// Test_trisolve02 checks the unsupported-mode error for INIT front type.
func Test_trisolve02(tst *testing.T) {

	chk.PrintTitle("trisolve02: unsupported front type rejected")

	t := septree.New()
	leaf := t.AddLeaf(2, 0, nil)
	t.SetRoot(leaf)
	infos := []*elimtree.Info{{Size: 2, Off: 0}}
	ft := &fronttree.Tree[float64]{Fronts: []*fronttree.Front[float64]{
		{Type: fronttree.INIT, L: frontalg.NewDense[float64](2, 2), Work: frontalg.NewDense[float64](0, 0)},
	}}
	x := []*frontalg.Dense[float64]{frontalg.NewDense[float64](2, 1)}

	if err := Forward(t, infos, ft, x); err == nil {
		tst.Errorf("expected an unsupported-mode error")
	}
}
