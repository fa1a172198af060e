// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package field

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func Test_field01(tst *testing.T) {

	chk.PrintTitle("field01: real scalar")

	x := 3.0
	chk.Scalar(tst, "conj(x)", 1e-15, Conj(x), 3.0)
	chk.Scalar(tst, "abs(-4)", 1e-15, Abs(-4.0), 4.0)
	if IsZero(1e-20, 1e-12) != true {
		tst.Errorf("IsZero should detect near-zero real value")
	}
}

func Test_field02(tst *testing.T) {

	chk.PrintTitle("field02: complex scalar")

	z := complex(1, 2)
	if Conj(z) != complex(1, -2) {
		tst.Errorf("Conj(1+2i) should be 1-2i, got %v", Conj(z))
	}
	chk.Scalar(tst, "abs(3+4i)", 1e-15, Abs(complex(3, 4)), 5.0)
	chk.Scalar(tst, "abs(inv(2))", 1e-15, Abs(Inv(complex(2, 0)))*2, 1.0)
}
