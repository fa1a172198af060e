// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dpm

import (
	"math/rand"
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/Solertis/Clique/comm/localcomm"
)

// buildRandomPermutation returns a random permutation of [0,n) distributed
// across a localcomm.World of the given size, one *Map per rank.
func buildRandomPermutation(n, size int, seed int64) []*Map {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	world := localcomm.NewWorld(size)
	maps := make([]*Map, size)
	for r := 0; r < size; r++ {
		m := New(n, world.Comm(r))
		first := m.FirstLocalSource()
		for s := range m.values {
			m.values[s] = perm[first+s]
		}
		maps[r] = m
	}
	return maps
}

// Test_dpm01 is S3 from spec.md §8: map round-trip property on N=200, P=4.
func Test_dpm01(tst *testing.T) {

	chk.PrintTitle("dpm01: map round-trip (S3)")

	n, size := 200, 4
	maps := buildRandomPermutation(n, size, 42)

	invs := make([]*Map, size)
	done := make(chan error, size)
	for r := 0; r < size; r++ {
		r := r
		go func() {
			inv, err := maps[r].FormInverse()
			invs[r] = inv
			done <- err
		}()
	}
	for i := 0; i < size; i++ {
		if err := <-done; err != nil {
			tst.Fatalf("FormInverse failed: %v", err)
		}
	}

	// m.FormInverse().Translate(m.map_) == identity
	results := make([][]int, size)
	errs := make(chan error, size)
	for r := 0; r < size; r++ {
		r := r
		go func() {
			idx := append([]int(nil), maps[r].Values()...)
			err := invs[r].Translate(idx)
			results[r] = idx
			errs <- err
		}()
	}
	for i := 0; i < size; i++ {
		if err := <-errs; err != nil {
			tst.Fatalf("Translate failed: %v", err)
		}
	}

	for r := 0; r < size; r++ {
		first := maps[r].FirstLocalSource()
		for s, v := range results[r] {
			if v != first+s {
				tst.Errorf("round-trip mismatch at rank %d source %d: got %d want %d", r, s, v, first+s)
			}
		}
	}
}

// Test_dpm02 checks Translate's pass-through and negative-index rejection.
func Test_dpm02(tst *testing.T) {

	chk.PrintTitle("dpm02: translate edge cases")

	world := localcomm.NewWorld(1)
	m := New(4, world.Comm(0))
	copy(m.Values(), []int{3, 2, 1, 0})

	idx := []int{0, 1, 2, 3, 100}
	if err := m.Translate(idx); err != nil {
		tst.Fatalf("Translate failed: %v", err)
	}
	chk.Ints(tst, "translated", idx, []int{3, 2, 1, 0, 100})

	if err := m.Translate([]int{-1}); err == nil {
		tst.Errorf("Translate should reject negative index")
	}
}

// Test_dpm03 checks Extend's size-mismatch error.
func Test_dpm03(tst *testing.T) {

	chk.PrintTitle("dpm03: extend size mismatch")

	world := localcomm.NewWorld(1)
	a := New(4, world.Comm(0))
	b := New(6, world.Comm(0))
	if _, err := a.Extend(b); err == nil {
		tst.Errorf("Extend should reject mismatched map sizes")
	}
}
