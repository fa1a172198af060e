// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package septree models the Separator Tree (ST): the output of nested
// dissection fed into symbolic analysis. The partitioner itself (graph
// algorithm) is an external collaborator (spec.md §1); this package only
// holds the tree shape it produces. Nodes live in a single arena indexed
// by id, following DESIGN NOTES §9 ("cyclic references ... model as tree
// nodes in a single arena"), generalizing fem/domain.go's Vid2node /
// Cid2elem index-arena idiom from mesh entities to elimination-tree nodes.
package septree

import (
	"github.com/cpmech/gosl/chk"

	"github.com/Solertis/Clique/comm"
)

// NodeID indexes a node within a Tree's arena; -1 denotes "no node".
type NodeID int

const NoNode NodeID = -1

// Node is one separator: either a local leaf (owned by a single process)
// or a distributed node shared by a shrinking team as the tree climbs.
type Node struct {
	Parent      NodeID
	Left, Right NodeID // NoNode for leaves

	Size int // number of variables this separator eliminates
	Off  int // starting global index

	// OriginalLowerStruct is the row indices of A strictly below Off+Size
	// that this separator's own variables connect to, before any fill-in
	// from children (spec.md §4.2 step 2 input).
	OriginalLowerStruct []int

	// Local reports whether this node is owned entirely by one process.
	// Distributed nodes additionally carry the team communicator for
	// their level (spec.md §3: "the 2D process grid of node k is a
	// subgrid of node k-1's grid of exactly half the size").
	Local bool
	Team  comm.Comm
}

// Tree is the arena of separator nodes produced by nested dissection.
type Tree struct {
	Nodes []Node
	Root  NodeID
}

// New returns an empty tree arena.
func New() *Tree {
	return &Tree{Root: NoNode}
}

// AddLeaf appends a local leaf node and returns its id.
func (t *Tree) AddLeaf(size, off int, originalLowerStruct []int) NodeID {
	id := NodeID(len(t.Nodes))
	t.Nodes = append(t.Nodes, Node{
		Parent: NoNode, Left: NoNode, Right: NoNode,
		Size: size, Off: off, OriginalLowerStruct: originalLowerStruct,
		Local: true,
	})
	return id
}

// AddDistributed appends a distributed separator over the given team,
// with two children (already present in the arena) merging into it.
func (t *Tree) AddDistributed(size, off int, originalLowerStruct []int, left, right NodeID, team comm.Comm) (NodeID, error) {
	if int(left) >= len(t.Nodes) || int(right) >= len(t.Nodes) {
		return NoNode, chk.Err("septree: AddDistributed children out of range")
	}
	id := NodeID(len(t.Nodes))
	t.Nodes = append(t.Nodes, Node{
		Parent: NoNode, Left: left, Right: right,
		Size: size, Off: off, OriginalLowerStruct: originalLowerStruct,
		Local: false, Team: team,
	})
	t.Nodes[left].Parent = id
	t.Nodes[right].Parent = id
	return id, nil
}

// SetRoot marks id as the tree's root.
func (t *Tree) SetRoot(id NodeID) { t.Root = id }

// PostOrder returns node ids in post-order (children before parent), the
// traversal order numeric factorization uses (spec.md §5).
func (t *Tree) PostOrder() []NodeID {
	var order []NodeID
	var walk func(id NodeID)
	walk = func(id NodeID) {
		if id == NoNode {
			return
		}
		n := &t.Nodes[id]
		walk(n.Left)
		walk(n.Right)
		order = append(order, id)
	}
	walk(t.Root)
	return order
}

// PreOrder returns node ids in pre-order (parent before children), the
// traversal order the backward solve uses (spec.md §5).
func (t *Tree) PreOrder() []NodeID {
	var order []NodeID
	var walk func(id NodeID)
	walk = func(id NodeID) {
		if id == NoNode {
			return
		}
		order = append(order, id)
		n := &t.Nodes[id]
		walk(n.Left)
		walk(n.Right)
	}
	walk(t.Root)
	return order
}

// SplitTeam splits comm c into a two-way team assignment keyed by the
// (level-1)-th bit of the rank, per spec.md §3's invariant that a node's
// grid is a subgrid of its parent's of exactly half the size. Panics if
// c's size is not a power of two (open question 1: team-size
// generalization is explicitly out of scope, per SPEC_FULL.md).
func SplitTeam(c comm.Comm, bit uint) comm.Comm {
	size := c.Size()
	if size&(size-1) != 0 {
		chk.Panic("septree: SplitTeam requires a power-of-two team size, got %d", size)
	}
	key := (uint(c.Rank())>>bit)&1 == 0
	return c.Split(key)
}
