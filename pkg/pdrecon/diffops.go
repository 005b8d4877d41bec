package pdrecon

import (
	"math"

	"mrirecon/pkg/vector"
)

// field is a vector field over the image series: one component per axis
// (x, y, t).
type field [3][]complex128

// tensor holds the symmetric second-order derivatives of a field in the
// order xx, yy, tt, xy, xt, yt. Off-diagonal entries count twice in norms
// and inner products.
type tensor [6][]complex128

// offDiagonal lists the axis pairs of the off-diagonal tensor components.
var offDiagonal = [3][2]int{{0, 1}, {0, 2}, {1, 2}}

func newField(n int) field {
	var f field
	for k := range f {
		f[k] = make([]complex128, n)
	}
	return f
}

func newTensor(n int) tensor {
	var q tensor
	for k := range q {
		q[k] = make([]complex128, n)
	}
	return q
}

// grid applies weighted forward differences with Neumann boundaries on a
// width×height×frames series stored frame-major, row-major.
type grid struct {
	width, height, frames int
	weights               [3]float64
}

// newGrid builds the difference operators for spatial step ds and
// temporal step dt.
func newGrid(width, height, frames int, ds, dt float64) grid {
	return grid{
		width:   width,
		height:  height,
		frames:  frames,
		weights: [3]float64{1 / ds, 1 / ds, 1 / dt},
	}
}

func (g grid) len() int { return g.width * g.height * g.frames }

func (g grid) axis(k int) (stride, size int) {
	switch k {
	case 0:
		return 1, g.width
	case 1:
		return g.width, g.height
	default:
		return g.width * g.height, g.frames
	}
}

// normBound is an upper bound of ‖∇‖².
func (g grid) normBound() float64 {
	var s float64
	for k, w := range g.weights {
		if _, size := g.axis(k); size > 1 {
			s += 4 * w * w
		}
	}
	return s
}

// diff writes (or adds, if accumulate) the weighted forward difference of src
// along axis k into dst.
func (g grid) diff(dst, src []complex128, k int, scale complex128, accumulate bool) {
	stride, size := g.axis(k)
	w := complex(g.weights[k], 0) * scale
	for i := range src {
		var d complex128
		if (i/stride)%size < size-1 {
			d = (src[i+stride] - src[i]) * w
		}
		if accumulate {
			dst[i] += d
		} else {
			dst[i] = d
		}
	}
}

// diffAdj writes (or adds) the adjoint of diff along axis k, i.e. a weighted
// negative backward difference.
func (g grid) diffAdj(dst, src []complex128, k int, scale complex128, accumulate bool) {
	stride, size := g.axis(k)
	w := complex(g.weights[k], 0) * scale
	for i := range src {
		pos := (i / stride) % size
		var d complex128
		if pos > 0 {
			d += src[i-stride]
		}
		if pos < size-1 {
			d -= src[i]
		}
		d *= w
		if accumulate {
			dst[i] += d
		} else {
			dst[i] = d
		}
	}
}

// grad computes dst = ∇u.
func (g grid) grad(dst field, u []complex128) {
	for k := range dst {
		g.diff(dst[k], u, k, 1, false)
	}
}

// gradAdj computes dst = ∇ᴴp (the negative divergence).
func (g grid) gradAdj(dst []complex128, p field) {
	g.diffAdj(dst, p[0], 0, 1, false)
	g.diffAdj(dst, p[1], 1, 1, true)
	g.diffAdj(dst, p[2], 2, 1, true)
}

// symGrad computes the symmetrized derivative ε(v) = ½(∇v + ∇vᵀ).
func (g grid) symGrad(dst tensor, v field) {
	for k := 0; k < 3; k++ {
		g.diff(dst[k], v[k], k, 1, false)
	}
	for j, pair := range offDiagonal {
		k, l := pair[0], pair[1]
		g.diff(dst[3+j], v[k], l, 0.5, false)
		g.diff(dst[3+j], v[l], k, 0.5, true)
	}
}

// symGradAdj computes dst = εᴴq with respect to the weighted tensor inner
// product.
func (g grid) symGradAdj(dst field, q tensor) {
	for k := 0; k < 3; k++ {
		g.diffAdj(dst[k], q[k], k, 1, false)
	}
	for j, pair := range offDiagonal {
		k, l := pair[0], pair[1]
		g.diffAdj(dst[k], q[3+j], l, 1, true)
		g.diffAdj(dst[l], q[3+j], k, 1, true)
	}
}

func abs2(z complex128) float64 {
	return real(z)*real(z) + imag(z)*imag(z)
}

// projectField scales every pointwise vector of p onto the ball of radius alpha.
func projectField(p field, alpha float64) {
	for i := range p[0] {
		n := math.Sqrt(abs2(p[0][i])+abs2(p[1][i])+abs2(p[2][i])) / alpha
		if n > 1 {
			s := complex(1/n, 0)
			p[0][i] *= s
			p[1][i] *= s
			p[2][i] *= s
		}
	}
}

func tensorNorm(q tensor, i int) float64 {
	return math.Sqrt(abs2(q[0][i]) + abs2(q[1][i]) + abs2(q[2][i]) +
		2*(abs2(q[3][i])+abs2(q[4][i])+abs2(q[5][i])))
}

// projectTensor scales every pointwise tensor of q onto the ball of radius alpha.
func projectTensor(q tensor, alpha float64) {
	for i := range q[0] {
		n := tensorNorm(q, i) / alpha
		if n > 1 {
			s := complex(1/n, 0)
			for k := range q {
				q[k][i] *= s
			}
		}
	}
}

// fieldL1 returns Σ_i |p(i)|₂.
func fieldL1(p field) float64 {
	var s float64
	for i := range p[0] {
		s += math.Sqrt(abs2(p[0][i]) + abs2(p[1][i]) + abs2(p[2][i]))
	}
	return s
}

// tensorL1 returns Σ_i |q(i)|_F.
func tensorL1(q tensor) float64 {
	var s float64
	for i := range q[0] {
		s += tensorNorm(q, i)
	}
	return s
}

// l1 returns Σ|x[i]|.
func l1(x []complex128) float64 {
	return vector.Norm1(x)
}
