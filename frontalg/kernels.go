// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package frontalg wraps the dense-matrix kernels a single front needs
// (Gemm, Trsm, triangular inversion, transpose/adjoint, trapezoidal
// masking, axpy) behind a small interface. It holds no process-grid type
// and no SumScatter; those collectives live in comm.Comm. The dense substrate
// itself is declared out of scope by spec.md §1 ("the dense linear
// algebra kernels ... and the 2D process grid are external
// collaborators"); this package is the thin adapter spec.md asks for,
// grounded on `la.MatAlloc`'s row-major `[][]float64` front storage
// (fem/e_beam.go) and backed by gonum's BLAS for the real case.
package frontalg

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/Solertis/Clique/field"
)

// Dense is a row-major dense matrix of order rows x cols, the same shape
// la.MatAlloc produces ([][]float64 conceptually; stored flat here so it
// converts directly to blas64.General without a copy for the float64
// instantiation).
type Dense[F field.Scalar] struct {
	Rows, Cols int
	Data       []F // row-major, length Rows*Cols
}

// NewDense allocates a zeroed dense matrix.
func NewDense[F field.Scalar](rows, cols int) *Dense[F] {
	return &Dense[F]{Rows: rows, Cols: cols, Data: make([]F, rows*cols)}
}

func (d *Dense[F]) At(i, j int) F     { return d.Data[i*d.Cols+j] }
func (d *Dense[F]) Set(i, j int, v F) { d.Data[i*d.Cols+j] = v }

// asFloat64General views a Dense[float64] as a blas64.General without
// copying (same backing array).
func asFloat64General(d *Dense[float64]) blas64.General {
	return blas64.General{Rows: d.Rows, Cols: d.Cols, Stride: d.Cols, Data: d.Data}
}

// Gemm computes c := alpha*op(a)*op(b) + beta*c, dispatching to gonum's
// blas64 for float64 and a direct triple loop for complex128 (no complex
// BLAS example is grounded in the pack; see DESIGN.md).
func Gemm[F field.Scalar](transA, transB bool, alpha F, a, b *Dense[F], beta F, c *Dense[F]) {
	switch any(alpha).(type) {
	case float64:
		aa := asFloat64General(any(a).(*Dense[float64]))
		bb := asFloat64General(any(b).(*Dense[float64]))
		cc := asFloat64General(any(c).(*Dense[float64]))
		ta, tb := blas.NoTrans, blas.NoTrans
		if transA {
			ta = blas.Trans
		}
		if transB {
			tb = blas.Trans
		}
		blas64.Implementation().Dgemm(ta, tb, cc.Rows, cc.Cols, inner(transA, a), float64(any(alpha).(float64)), aa.Data, aa.Stride, bb.Data, bb.Stride, float64(any(beta).(float64)), cc.Data, cc.Stride)
	default:
		gemmGeneric(transA, transB, alpha, a, b, beta, c)
	}
}

func inner(transA bool, a *Dense[float64]) int {
	if transA {
		return a.Rows
	}
	return a.Cols
}

// gemmGeneric is the portable fallback used for complex128 (and available
// for float64 in tests that want to cross-check against Dgemm).
func gemmGeneric[F field.Scalar](transA, transB bool, alpha F, a, b *Dense[F], beta F, c *Dense[F]) {
	m, n := c.Rows, c.Cols
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum F
			k := a.Cols
			if transA {
				k = a.Rows
			}
			for p := 0; p < k; p++ {
				var av, bv F
				if transA {
					av = a.At(p, i)
				} else {
					av = a.At(i, p)
				}
				if transB {
					bv = b.At(j, p)
				} else {
					bv = b.At(p, j)
				}
				sum += av * bv
			}
			c.Set(i, j, alpha*sum+beta*c.At(i, j))
		}
	}
}

// TriangularInverse inverts the lower-triangular matrix a in place
// (spec.md SELINV front types). No triangular-inverse LAPACK binding is
// grounded anywhere in the pack (lapack64's observed surface covers
// Potrf/Getrf/Geqrf/Gelqf/Gels, not Trtri), so this is a direct
// row-by-row forward substitution for both float64 and complex128
// (stdlib-justified, see DESIGN.md).
func TriangularInverse[F field.Scalar](a *Dense[F]) error {
	return triangularInverseGeneric(a)
}

func triangularInverseGeneric[F field.Scalar](a *Dense[F]) error {
	n := a.Rows
	inv := NewDense[F](n, n)
	for i := 0; i < n; i++ {
		d := a.At(i, i)
		if field.IsZero(d, 1e-300) {
			return errSingular
		}
		inv.Set(i, i, field.Inv(d))
		for j := 0; j < i; j++ {
			var sum F
			for k := j; k < i; k++ {
				sum += a.At(i, k) * inv.At(k, j)
			}
			inv.Set(i, j, field.Inv(d)*(-sum))
		}
	}
	copy(a.Data, inv.Data)
	return nil
}

var errSingular = newErr("frontalg: matrix is singular to working precision")

func newErr(msg string) error { return simpleErr(msg) }

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

// Trsm solves op(a)*x = alpha*b (left, lower, optionally transposed) in
// place on b, the forward/backward substitution kernel the LDL_1D front
// type uses (spec.md §4.5).
func Trsm[F field.Scalar](trans bool, unitDiag bool, alpha F, a, b *Dense[F]) {
	switch any(alpha).(type) {
	case float64:
		af := asFloat64General(any(a).(*Dense[float64]))
		bf := asFloat64General(any(b).(*Dense[float64]))
		tr := blas.NoTrans
		if trans {
			tr = blas.Trans
		}
		diag := blas.NonUnit
		if unitDiag {
			diag = blas.Unit
		}
		blas64.Implementation().Dtrsm(blas.Left, blas.Lower, tr, diag, bf.Rows, bf.Cols, float64(any(alpha).(float64)), af.Data, af.Stride, bf.Data, bf.Stride)
	default:
		trsmGeneric(trans, unitDiag, alpha, a, b)
	}
}

func trsmGeneric[F field.Scalar](trans bool, unitDiag bool, alpha F, a, b *Dense[F]) {
	n, nrhs := b.Rows, b.Cols
	for col := 0; col < nrhs; col++ {
		if !trans {
			for i := 0; i < n; i++ {
				var sum F
				for k := 0; k < i; k++ {
					sum += a.At(i, k) * b.At(k, col)
				}
				v := alpha*b.At(i, col) - sum
				if !unitDiag {
					v = v * field.Inv(a.At(i, i))
				}
				b.Set(i, col, v)
			}
		} else {
			for i := n - 1; i >= 0; i-- {
				var sum F
				for k := i + 1; k < n; k++ {
					sum += a.At(k, i) * b.At(k, col)
				}
				v := alpha*b.At(i, col) - sum
				if !unitDiag {
					v = v * field.Inv(a.At(i, i))
				}
				b.Set(i, col, v)
			}
		}
	}
}

// Transpose returns aᵀ; Adjoint returns a* (conjugate transpose, equal to
// Transpose for real scalars). Hermitian front types use Adjoint, plain
// symmetric ones use Transpose (SPEC_FULL.md "isHermitian" supplement).
func Transpose[F field.Scalar](a *Dense[F]) *Dense[F] {
	out := NewDense[F](a.Cols, a.Rows)
	for i := 0; i < a.Rows; i++ {
		for j := 0; j < a.Cols; j++ {
			out.Set(j, i, a.At(i, j))
		}
	}
	return out
}

func Adjoint[F field.Scalar](a *Dense[F]) *Dense[F] {
	out := NewDense[F](a.Cols, a.Rows)
	for i := 0; i < a.Rows; i++ {
		for j := 0; j < a.Cols; j++ {
			out.Set(j, i, field.Conj(a.At(i, j)))
		}
	}
	return out
}

// MakeTrapezoidal keeps the lower (lower=true) or upper trapezoid of a
// relative to diagonal offset and zeroes the rest: entries with
// j > i+offset when lower, entries with j < i+offset otherwise. This is
// the mask FrontBlockLDL uses to keep the lower triangle of the diagonal
// block.
func MakeTrapezoidal[F field.Scalar](lower bool, a *Dense[F], offset int) {
	for i := 0; i < a.Rows; i++ {
		for j := 0; j < a.Cols; j++ {
			if lower {
				if j > i+offset {
					a.Set(i, j, *new(F))
				}
			} else {
				if j < i+offset {
					a.Set(i, j, *new(F))
				}
			}
		}
	}
}

// Axpy computes y += alpha*x elementwise.
func Axpy[F field.Scalar](alpha F, x, y []F) {
	for i := range x {
		y[i] += alpha * x[i]
	}
}
