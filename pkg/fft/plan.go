// Package fft provides 2-D complex Fourier transforms over row-major images,
// in plain and centered form.
//
// Both directions are scaled by 1/sqrt(width·height), which makes the
// transform unitary: the inverse is the adjoint of the forward transform and
// a forward/inverse round trip reproduces the input exactly (scale factor 1).
package fft

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Plan2D holds the 1-D transforms and work buffers for one image size.
// A Plan2D is not safe for concurrent use; give each goroutine its own plan.
type Plan2D struct {
	width, height int

	rows *fourier.CmplxFFT // length width
	cols *fourier.CmplxFFT // length height

	rowIn, rowOut []complex128
	colIn, colOut []complex128
	shift         []complex128

	scale float64
}

// NewPlan2D creates a plan for height×width images stored row-major
// (index y*width + x).
func NewPlan2D(height, width int) (*Plan2D, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("fft: invalid plan size %dx%d", height, width)
	}
	return &Plan2D{
		width:  width,
		height: height,
		rows:   fourier.NewCmplxFFT(width),
		cols:   fourier.NewCmplxFFT(height),
		rowIn:  make([]complex128, width),
		rowOut: make([]complex128, width),
		colIn:  make([]complex128, height),
		colOut: make([]complex128, height),
		shift:  make([]complex128, width*height),
		scale:  1 / math.Sqrt(float64(width*height)),
	}, nil
}

// Width returns the number of columns of the plan.
func (p *Plan2D) Width() int { return p.width }

// Height returns the number of rows of the plan.
func (p *Plan2D) Height() int { return p.height }

// Len returns width·height.
func (p *Plan2D) Len() int { return p.width * p.height }

func (p *Plan2D) check(dst, src []complex128) {
	n := p.Len()
	if len(dst) != n || len(src) != n {
		panic(fmt.Sprintf("fft: length mismatch: plan %d, src %d, dst %d", n, len(src), len(dst)))
	}
}

// Forward writes the forward transform of src into dst. dst may alias src.
func (p *Plan2D) Forward(dst, src []complex128) {
	p.check(dst, src)
	p.transform(dst, src, false)
}

// Inverse writes the inverse transform of src into dst. dst may alias src.
func (p *Plan2D) Inverse(dst, src []complex128) {
	p.check(dst, src)
	p.transform(dst, src, true)
}

// CenteredForward transforms with the zero frequency at the image center:
// dst = fftshift(F(ifftshift(src))).
func (p *Plan2D) CenteredForward(dst, src []complex128) {
	p.check(dst, src)
	p.ifftshift(p.shift, src)
	p.transform(p.shift, p.shift, false)
	p.fftshift(dst, p.shift)
}

// CenteredInverse is the inverse (and adjoint) of CenteredForward:
// dst = fftshift(F⁻¹(ifftshift(src))).
func (p *Plan2D) CenteredInverse(dst, src []complex128) {
	p.check(dst, src)
	p.ifftshift(p.shift, src)
	p.transform(p.shift, p.shift, true)
	p.fftshift(dst, p.shift)
}

// transform runs the row transforms followed by the column transforms.
func (p *Plan2D) transform(dst, src []complex128, inverse bool) {
	w, h := p.width, p.height

	for y := 0; y < h; y++ {
		copy(p.rowIn, src[y*w:(y+1)*w])
		if inverse {
			p.rows.Sequence(p.rowOut, p.rowIn)
		} else {
			p.rows.Coefficients(p.rowOut, p.rowIn)
		}
		copy(dst[y*w:(y+1)*w], p.rowOut)
	}

	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			p.colIn[y] = dst[y*w+x]
		}
		if inverse {
			p.cols.Sequence(p.colOut, p.colIn)
		} else {
			p.cols.Coefficients(p.colOut, p.colIn)
		}
		for y := 0; y < h; y++ {
			dst[y*w+x] = p.colOut[y] * complex(p.scale, 0)
		}
	}
}

// fftshift moves the zero frequency from index 0 to index n/2 along both axes.
// dst must not alias src.
func (p *Plan2D) fftshift(dst, src []complex128) {
	w, h := p.width, p.height
	for y := 0; y < h; y++ {
		sy := (y + h/2) % h
		for x := 0; x < w; x++ {
			dst[sy*w+(x+w/2)%w] = src[y*w+x]
		}
	}
}

// ifftshift undoes fftshift. dst must not alias src.
func (p *Plan2D) ifftshift(dst, src []complex128) {
	w, h := p.width, p.height
	for y := 0; y < h; y++ {
		sy := (y + h/2) % h
		for x := 0; x < w; x++ {
			dst[y*w+x] = src[sy*w+(x+w/2)%w]
		}
	}
}
