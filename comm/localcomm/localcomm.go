// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package localcomm is a single-process loopback implementation of
// comm.Comm, used by tests the way fem's own test suite runs domains
// serially (fem.NewFEM(..., allowParallel=false, ...)) instead of
// launching real MPI ranks. Each emulated rank runs in its own goroutine;
// collectives rendezvous through a shared World so the same SPMD code
// under test observes real cross-rank exchange without an MPI runtime.
package localcomm

import (
	"sync"

	"github.com/Solertis/Clique/comm"
)

// World is the shared rendezvous point for one team of emulated ranks.
type World struct {
	size    int
	mu      sync.Mutex
	current *round
}

type round struct {
	contrib []any
	count   int
	done    chan struct{}
	result  any
}

// NewWorld creates a loopback world of the given team size.
func NewWorld(size int) *World {
	return &World{size: size}
}

// Comm returns the comm.Comm handle for one rank of this world.
func (w *World) Comm(rank int) comm.Comm {
	return &localComm{world: w, rank: rank}
}

// gather blocks every rank's call until all `size` ranks have contributed,
// then invokes compute exactly once (by whichever rank completes the
// round) and hands every rank the same result. contrib is indexed by rank
// so compute can rely on positional (not arrival) order.
func (w *World) gather(rank int, contribution any, compute func([]any) any) any {
	w.mu.Lock()
	if w.current == nil {
		w.current = &round{contrib: make([]any, w.size), done: make(chan struct{})}
	}
	r := w.current
	r.contrib[rank] = contribution
	r.count++
	finishing := r.count == w.size
	if finishing {
		r.result = compute(r.contrib)
		w.current = nil
	}
	w.mu.Unlock()
	if finishing {
		close(r.done)
	} else {
		<-r.done
	}
	return r.result
}

type localComm struct {
	world *World
	rank  int
}

func (c *localComm) Rank() int { return c.rank }
func (c *localComm) Size() int { return c.world.size }

func (c *localComm) Barrier() {
	c.world.gather(c.rank, struct{}{}, func(all []any) any { return struct{}{} })
}

func (c *localComm) Broadcast(root int, buf []float64) {
	// root's buffer is the canonical value; every rank copies it in.
	rootBuf := c.world.gather(c.rank, buf, func(all []any) any {
		return append([]float64(nil), all[root].([]float64)...)
	}).([]float64)
	copy(buf, rootBuf)
}

func (c *localComm) AllGatherInts(send []int) []int {
	return c.world.gather(c.rank, send, func(all []any) any {
		var out []int
		for _, a := range all {
			out = append(out, a.([]int)...)
		}
		return out
	}).([]int)
}

func (c *localComm) AllToAllV(sendCounts []int, sendBuf []float64) ([]int, []float64) {
	type req struct {
		counts []int
		buf    []float64
	}
	res := c.world.gather(c.rank, req{sendCounts, sendBuf}, func(all []any) any {
		size := len(all)
		recvCounts := make([][]int, size)
		recvBufs := make([][]float64, size)
		for r := 0; r < size; r++ {
			recvCounts[r] = make([]int, size)
			recvBufs[r] = nil
		}
		// offsets[p] into sender p's buffer, one slot per destination.
		offsets := make([][]int, size)
		for p := 0; p < size; p++ {
			offsets[p] = make([]int, size)
			off := 0
			for q := 0; q < size; q++ {
				offsets[p][q] = off
				off += all[p].(req).counts[q]
			}
		}
		for p := 0; p < size; p++ {
			for q := 0; q < size; q++ {
				n := all[p].(req).counts[q]
				recvCounts[q][p] = n
				start := offsets[p][q]
				recvBufs[q] = append(recvBufs[q], all[p].(req).buf[start:start+n]...)
			}
		}
		return struct {
			counts [][]int
			bufs   [][]float64
		}{recvCounts, recvBufs}
	}).(struct {
		counts [][]int
		bufs   [][]float64
	})
	return res.counts[c.rank], res.bufs[c.rank]
}

func (c *localComm) AllToAllVInts(sendCounts []int, sendBuf []int) ([]int, []int) {
	// reuse the float64 path by round-tripping through float64.
	f := make([]float64, len(sendBuf))
	for i, v := range sendBuf {
		f[i] = float64(v)
	}
	rc, rf := c.AllToAllV(sendCounts, f)
	ri := make([]int, len(rf))
	for i, v := range rf {
		ri[i] = int(v)
	}
	return rc, ri
}

func (c *localComm) SendRecv(dest int, sendBuf []int, source int) []int {
	type req struct {
		dest, source int
		buf          []int
	}
	res := c.world.gather(c.rank, req{dest, source, sendBuf}, func(all []any) any {
		out := make([][]int, len(all))
		for p := range all {
			// out[p] receives from whichever rank addressed p as dest.
			for _, a := range all {
				if a.(req).dest == p {
					out[p] = a.(req).buf
				}
			}
		}
		return out
	}).([][]int)
	return res[c.rank]
}

func (c *localComm) SumScatterFloats(sendBuf []float64, recvCounts []int) []float64 {
	type req struct {
		buf    []float64
		counts []int
	}
	res := c.world.gather(c.rank, req{sendBuf, recvCounts}, func(all []any) any {
		size := len(all)
		total := 0
		for _, n := range all[0].(req).counts {
			total += n
		}
		sum := make([]float64, total)
		for _, a := range all {
			r := a.(req)
			for i := range sum {
				sum[i] += r.buf[i]
			}
		}
		out := make([][]float64, size)
		off := 0
		for r := 0; r < size; r++ {
			n := all[r].(req).counts[r]
			out[r] = append([]float64(nil), sum[off:off+n]...)
			off += n
		}
		return out
	}).([][]float64)
	return res[c.rank]
}

type splitResult struct {
	trueMembers, falseMembers []int
	trueWorld, falseWorld     *World
}

func (c *localComm) Split(key bool) comm.Comm {
	type req struct {
		rank int
		key  bool
	}
	res := c.world.gather(c.rank, req{c.rank, key}, func(all []any) any {
		var trueMembers, falseMembers []int
		for _, a := range all {
			r := a.(req)
			if r.key {
				trueMembers = append(trueMembers, r.rank)
			} else {
				falseMembers = append(falseMembers, r.rank)
			}
		}
		return &splitResult{
			trueMembers:  trueMembers,
			falseMembers: falseMembers,
			trueWorld:    NewWorld(len(trueMembers)),
			falseWorld:   NewWorld(len(falseMembers)),
		}
	}).(*splitResult)

	group, sub := res.falseMembers, res.falseWorld
	if key {
		group, sub = res.trueMembers, res.trueWorld
	}
	for i, r := range group {
		if r == c.rank {
			return sub.Comm(i)
		}
	}
	panic("localcomm: rank not found in its own split group")
}
