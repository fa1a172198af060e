// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package comm declares the collective transport layer the solver consumes
// from an external collaborator (spec.md §1: "a collective transport layer
// with typed buffers"). Production code talks to MPI through mpicomm;
// tests run against localcomm, a single-process loopback, exactly the way
// fem.FEM falls back to serial execution when mpi.IsOn() is false.
package comm

// Comm is one process's handle on its team's collective operations. A
// node's team communicator (spec.md §5, "CommSplit keyed by the rank's
// tree position") is itself a Comm, split off a parent Comm.
type Comm interface {
	Rank() int
	Size() int

	// Barrier blocks until every rank in the team has called it.
	Barrier()

	// Broadcast sends buf from root to every other rank, in place.
	Broadcast(root int, buf []float64)

	// AllGatherInts concatenates one []int per rank, ordered by rank.
	AllGatherInts(send []int) []int

	// AllToAllV ships sendBuf, partitioned into sendCounts[p] contiguous
	// floats per destination p, to every rank, and returns the receive
	// side with symmetric structure.
	AllToAllV(sendCounts []int, sendBuf []float64) (recvCounts []int, recvBuf []float64)

	// AllToAllVInts is AllToAllV specialized to integer index payloads
	// (used to ship relative-index requests before the float64 exchange).
	AllToAllVInts(sendCounts []int, sendBuf []int) (recvCounts []int, recvBuf []int)

	// SendRecv exchanges a single message with a named partner (used for
	// the rank-XOR sibling exchange in symbolic analysis).
	SendRecv(dest int, sendBuf []int, source int) []int

	// SumScatterFloats reduces (sums) sendBuf across the team and scatters
	// recvCounts[r] contiguous floats of the result to each rank r; this
	// is the essential collective behind the MC/MR extend-add (spec.md
	// §4.5 "Concurrency inside solves").
	SumScatterFloats(sendBuf []float64, recvCounts []int) []float64

	// Split partitions the team into two halves by the boolean key
	// (true/false), mirroring the "(k-1)-th bit of the process rank"
	// team-split invariant in spec.md §3. Returns the sub-team this rank
	// belongs to.
	Split(key bool) Comm
}
