// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nodalvec

import (
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/Solertis/Clique/comm/localcomm"
	"github.com/Solertis/Clique/dpm"
	"github.com/Solertis/Clique/elimtree"
)

// Test_nmv01 checks the Pull/Push round-trip invariant (spec.md §8
// testable property 2) on a single-process identity permutation: two
// local nodes, no distributed node, width-2 rows.
func Test_nmv01(tst *testing.T) {

	chk.PrintTitle("nmv01: pull/push round trip")

	world := localcomm.NewWorld(1)
	c := world.Comm(0)

	infos := []*elimtree.Info{
		{Size: 2, Off: 0},
		{Size: 2, Off: 2},
	}

	// identity permutation map
	invMap := dpm.New(4, c)
	copy(invMap.Values(), []int{0, 1, 2, 3})

	x := &DSMVec[float64]{FirstLocalRow: 0, Rows: [][]float64{
		{1, 10}, {2, 20}, {3, 30}, {4, 40},
	}}

	m := NewMultivec[float64](infos, c, 2)
	if err := Pull(m, infos, invMap, 4, x, c); err != nil {
		tst.Fatalf("Pull failed: %v", err)
	}

	y := &DSMVec[float64]{FirstLocalRow: 0, Rows: make([][]float64, 4)}
	for i := range y.Rows {
		y.Rows[i] = make([]float64, 2)
	}
	if err := Push(m, infos, invMap, 4, y, c); err != nil {
		tst.Fatalf("Push failed: %v", err)
	}

	for i := range x.Rows {
		chk.Vector(tst, "row", 1e-15, y.Rows[i], x.Rows[i])
	}
}

// Test_nmv02 is Test_nmv01's complex128 analogue (spec.md §8 testable
// property 2, scenario S1): Pull/Push must round-trip the imaginary part
// too, not just the real part, over the float64-only collective
// transport.
func Test_nmv02(tst *testing.T) {

	chk.PrintTitle("nmv02: complex128 pull/push round trip")

	world := localcomm.NewWorld(1)
	c := world.Comm(0)

	infos := []*elimtree.Info{
		{Size: 2, Off: 0},
		{Size: 2, Off: 2},
	}

	invMap := dpm.New(4, c)
	copy(invMap.Values(), []int{0, 1, 2, 3})

	x := &DSMVec[complex128]{FirstLocalRow: 0, Rows: [][]complex128{
		{complex(1, -1), complex(10, 2)},
		{complex(2, 3), complex(20, -4)},
		{complex(3, 0), complex(30, 5)},
		{complex(4, -6), complex(40, 7)},
	}}

	m := NewMultivec[complex128](infos, c, 2)
	if err := Pull(m, infos, invMap, 4, x, c); err != nil {
		tst.Fatalf("Pull failed: %v", err)
	}

	y := &DSMVec[complex128]{FirstLocalRow: 0, Rows: make([][]complex128, 4)}
	for i := range y.Rows {
		y.Rows[i] = make([]complex128, 2)
	}
	if err := Push(m, infos, invMap, 4, y, c); err != nil {
		tst.Fatalf("Push failed: %v", err)
	}

	for i := range x.Rows {
		for w := range x.Rows[i] {
			if y.Rows[i][w] != x.Rows[i][w] {
				tst.Errorf("row %d col %d: got %v want %v", i, w, y.Rows[i][w], x.Rows[i][w])
			}
		}
	}
}
