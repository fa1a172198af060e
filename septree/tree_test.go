// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package septree

import (
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/Solertis/Clique/comm/localcomm"
)

func buildSmallTree() *Tree {
	t := New()
	left := t.AddLeaf(2, 0, nil)
	right := t.AddLeaf(2, 2, nil)
	world := localcomm.NewWorld(2)
	root, _ := t.AddDistributed(2, 4, nil, left, right, world.Comm(0))
	t.SetRoot(root)
	return t
}

func Test_septree01(tst *testing.T) {

	chk.PrintTitle("septree01: traversal order")

	t := buildSmallTree()
	post := t.PostOrder()
	chk.IntAssert(len(post), 3)
	if post[2] != t.Root {
		tst.Errorf("post-order must visit root last")
	}
	pre := t.PreOrder()
	if pre[0] != t.Root {
		tst.Errorf("pre-order must visit root first")
	}
}

func Test_septree02(tst *testing.T) {

	chk.PrintTitle("septree02: team split requires power-of-two size")

	defer func() {
		if r := recover(); r == nil {
			tst.Errorf("SplitTeam should panic on a non-power-of-two team size")
		}
	}()
	world := localcomm.NewWorld(3)
	SplitTeam(world.Comm(0), 0)
}
