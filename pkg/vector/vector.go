// Package vector provides the elementwise arithmetic the reconstruction
// operators need on complex and real vectors.
//
// Complex vectors are plain []complex128 slices and real vectors are plain
// []float64 slices. Sub-vectors are obtained by slicing, so an operation on
// data[offset:offset+n] works in place on the larger buffer. All functions
// panic when lengths disagree; callers validate geometry at their boundary.
package vector

import (
	"math/cmplx"

	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/floats"
)

func checkLen(n int, others ...int) {
	for _, m := range others {
		if m != n {
			panic("vector: length mismatch")
		}
	}
}

func view(x []complex128) cblas128.Vector {
	return cblas128.Vector{N: len(x), Inc: 1, Data: x}
}

// MultiplyElementwise sets dst[i] = a[i]·b[i]. dst may alias a or b.
func MultiplyElementwise(dst, a, b []complex128) {
	cmplxs.MulTo(dst, a, b)
}

// MultiplyConjElementwise sets dst[i] = conj(a[i])·b[i]. dst may alias a or b.
func MultiplyConjElementwise(dst, a, b []complex128) {
	// cmplxs conjugates its second operand
	cmplxs.MulConjTo(dst, b, a)
}

// MultiplyReal sets dst[i] = a[i]·w[i] for a real weight vector w.
func MultiplyReal(dst, a []complex128, w []float64) {
	checkLen(len(dst), len(a), len(w))
	for i := range dst {
		dst[i] = complex(real(a[i])*w[i], imag(a[i])*w[i])
	}
}

// Add sets dst[i] = a[i] + b[i].
func Add(dst, a, b []complex128) {
	cmplxs.AddTo(dst, a, b)
}

// Sub sets dst[i] = a[i] - b[i].
func Sub(dst, a, b []complex128) {
	cmplxs.SubTo(dst, a, b)
}

// Axpy computes y += alpha·x.
func Axpy(alpha complex128, x, y []complex128) {
	checkLen(len(x), len(y))
	if len(x) == 0 {
		return
	}
	cblas128.Axpy(alpha, view(x), view(y))
}

// Scale multiplies x by alpha in place.
func Scale(alpha complex128, x []complex128) {
	if len(x) == 0 {
		return
	}
	cblas128.Scal(alpha, view(x))
}

// Dot returns Σ conj(a[i])·b[i].
func Dot(a, b []complex128) complex128 {
	checkLen(len(a), len(b))
	if len(a) == 0 {
		return 0
	}
	return cblas128.Dotc(view(a), view(b))
}

// Norm2 returns the Euclidean norm of x.
func Norm2(x []complex128) float64 {
	if len(x) == 0 {
		return 0
	}
	return cblas128.Nrm2(view(x))
}

// RealNorm2 returns the Euclidean norm of a real vector.
func RealNorm2(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return floats.Norm(x, 2)
}

// Norm1 returns Σ|x[i]|.
func Norm1(x []complex128) float64 {
	if len(x) == 0 {
		return 0
	}
	return cmplxs.Norm(x, 1)
}

// Fill sets every element of x to v.
func Fill(x []complex128, v complex128) {
	for i := range x {
		x[i] = v
	}
}

// Ones returns a complex vector of length n filled with 1.
func Ones(n int) []complex128 {
	x := make([]complex128, n)
	Fill(x, 1)
	return x
}

// Clone returns a copy of x.
func Clone(x []complex128) []complex128 {
	y := make([]complex128, len(x))
	copy(y, x)
	return y
}

// SetSubVector copies src (length n) into the idx-th block of length n of dst.
func SetSubVector(src, dst []complex128, idx, n int) {
	checkLen(len(src), n)
	copy(dst[idx*n:(idx+1)*n], src)
}

// Abs returns the magnitude of every element of x.
func Abs(x []complex128) []float64 {
	out := make([]float64, len(x))
	cmplxs.Abs(out, x)
	return out
}

// Phase returns the argument of every element of x.
func Phase(x []complex128) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = cmplx.Phase(v)
	}
	return out
}
