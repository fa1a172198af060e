// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package field abstracts the numeric element type F used throughout the
// solver (real or complex double precision) behind a minimal capability
// set: +, -, *, /, conjugate, abs, isZero. Every other package is generic
// over a Scalar so the multifrontal LDL/LDLᴴ code is written once.
package field

import (
	"math"
	"math/cmplx"
)

// Scalar is the set of element types the solver can factor and solve over.
type Scalar interface {
	~float64 | ~complex128
}

// Conj returns the conjugate of x; for real types it is the identity.
func Conj[T Scalar](x T) T {
	switch v := any(x).(type) {
	case complex128:
		return any(cmplx.Conj(v)).(T)
	default:
		return x
	}
}

// Abs returns the modulus of x.
func Abs[T Scalar](x T) float64 {
	switch v := any(x).(type) {
	case complex128:
		return cmplx.Abs(v)
	case float64:
		return math.Abs(v)
	default:
		return 0
	}
}

// IsZero reports whether x is zero within tol.
func IsZero[T Scalar](x T, tol float64) bool {
	return Abs(x) <= tol
}

// Inv returns 1/x.
func Inv[T Scalar](x T) T {
	switch v := any(x).(type) {
	case complex128:
		return any(1 / v).(T)
	case float64:
		return any(1 / v).(T)
	default:
		var zero T
		return zero
	}
}

// FromFloat64 lifts a real value into T (used for D diagonal scaling).
func FromFloat64[T Scalar](x float64) T {
	switch any(*new(T)).(type) {
	case complex128:
		return any(complex(x, 0)).(T)
	default:
		return any(x).(T)
	}
}

// Parts splits x into the (real, imaginary) pair shipped over the
// float64-only collective transport (comm.Comm); imag is always 0 for a
// real T. FromRealImag is its inverse.
func Parts[T Scalar](x T) (re, im float64) {
	switch v := any(x).(type) {
	case complex128:
		return real(v), imag(v)
	case float64:
		return v, 0
	default:
		return 0, 0
	}
}

// FromRealImag reconstructs a T from the (real, imaginary) pair Parts
// produced on the sending side; im is ignored when T is real.
func FromRealImag[T Scalar](re, im float64) T {
	switch any(*new(T)).(type) {
	case complex128:
		return any(complex(re, im)).(T)
	default:
		return any(re).(T)
	}
}
