// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fronttree

import (
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/Solertis/Clique/comm/localcomm"
	"github.com/Solertis/Clique/dpm"
	"github.com/Solertis/Clique/dsm"
	"github.com/Solertis/Clique/elimtree"
)

func Test_fronttree01(tst *testing.T) {

	chk.PrintTitle("fronttree01: local dense allocation shape")

	infos := []*elimtree.Info{
		{Size: 2, Off: 0, LowerStruct: []int{4, 5}},
	}
	ft := New[float64](infos, false)
	f := ft.Fronts[0]
	if f.L.Rows != 4 || f.L.Cols != 2 {
		tst.Errorf("expected a 4x2 local front, got %dx%d", f.L.Rows, f.L.Cols)
	}
	if f.Type != INIT {
		tst.Errorf("new front must start at INIT")
	}
}

func Test_fronttree02(tst *testing.T) {

	chk.PrintTitle("fronttree02: monotonic type transitions")

	infos := []*elimtree.Info{{Size: 2, Off: 0}}
	ft := New[float64](infos, false)
	f := ft.Fronts[0]

	f.SetType(LDL_1D)
	f.SetType(LDL_SELINV_1D)
	f.SetType(LDL_SELINV_2D)

	defer func() {
		if r := recover(); r == nil {
			tst.Errorf("regressing a front's type must panic")
		}
	}()
	f.SetType(LDL_1D)
}

// Test_fronttree03 is Scatter's complex128 analogue (spec.md §8 scenario
// S1, a Helmholtz front with a complex diagonal term): every entry's
// imaginary part must survive the float64-only collective transport, not
// just its real part.
func Test_fronttree03(tst *testing.T) {

	chk.PrintTitle("fronttree03: complex128 scatter preserves imaginary part")

	world := localcomm.NewWorld(1)
	c := world.Comm(0)

	a := [][]complex128{
		{complex(2, -1), complex(0, 0)},
		{complex(0, 0), complex(3, 4)},
	}

	m := dsm.New[complex128](2, c.Rank(), c.Size())
	if err := m.StartAssembly(); err != nil {
		tst.Fatalf("StartAssembly failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if err := m.Insert(i, j, a[i][j]); err != nil {
				tst.Fatalf("Insert failed: %v", err)
			}
		}
	}
	if err := m.StopAssembly(); err != nil {
		tst.Fatalf("StopAssembly failed: %v", err)
	}

	inv := dpm.New(2, c)
	copy(inv.Values(), []int{0, 1})

	infos := []*elimtree.Info{{Size: 2, Off: 0}}
	ft := New[complex128](infos, true)

	if err := Scatter(ft, infos, m, inv, c); err != nil {
		tst.Fatalf("Scatter failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if got := ft.Fronts[0].L.At(i, j); got != a[i][j] {
				tst.Errorf("front[%d][%d]: got %v want %v", i, j, got, a[i][j])
			}
		}
	}
}
