package operator

import (
	"fmt"
	"sync"

	"mrirecon/internal/models"
	"mrirecon/pkg/fft"
	"mrirecon/pkg/vector"
)

// Cartesian is the encoding operator for Cartesian sampling: a per-frame
// sampling mask, a 2-D Fourier transform and coil sensitivity weighting.
//
// The sampling mask and the sensitivity maps are only read. The FFT plans are
// owned by the operator and released by Close. Calls on one Cartesian are
// serialized; frames are spread over NumCores goroutines, each with its own
// plan, while coils inside a frame are always processed in order so the
// coil sum does not depend on the number of cores.
type Cartesian struct {
	dims     models.Dimension
	mask     []float64
	centered bool

	mu      sync.Mutex
	workers []*frameWorker
	closed  bool
}

type frameWorker struct {
	plan *fft.Plan2D
	in   []complex128
	out  []complex128
}

func newFrameWorker(height, width int) (*frameWorker, error) {
	plan, err := fft.NewPlan2D(height, width)
	if err != nil {
		return nil, err
	}
	return &frameWorker{
		plan: plan,
		in:   make([]complex128, width*height),
		out:  make([]complex128, width*height),
	}, nil
}

// NewCartesian creates a centered Cartesian operator. A nil or empty mask
// means fully sampled.
func NewCartesian(width, height, coils, frames int, mask []float64) (*Cartesian, error) {
	return NewCartesianCentering(width, height, coils, frames, mask, true)
}

// NewCartesianCentering creates a Cartesian operator with an explicit
// centering convention for the Fourier transform.
func NewCartesianCentering(width, height, coils, frames int, mask []float64, centered bool) (*Cartesian, error) {
	dims := models.Dimension{Width: width, Height: height, Coils: coils, Frames: frames}
	if err := dims.Validate2D(); err != nil {
		return nil, err
	}
	if len(mask) > 0 {
		if err := checkLen("mask", len(mask), dims.SeriesLen()); err != nil {
			return nil, err
		}
	} else {
		mask = nil
	}

	w, err := newFrameWorker(height, width)
	if err != nil {
		return nil, err
	}

	return &Cartesian{
		dims:     dims,
		mask:     mask,
		centered: centered,
		workers:  []*frameWorker{w},
	}, nil
}

// SetNumCores sets how many frames may be transformed concurrently.
// Every additional core gets its own FFT plan.
func (c *Cartesian) SetNumCores(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if n < 1 {
		n = 1
	}
	if n > c.dims.Frames {
		n = c.dims.Frames
	}
	for len(c.workers) < n {
		w, err := newFrameWorker(c.dims.Height, c.dims.Width)
		if err != nil {
			return err
		}
		c.workers = append(c.workers, w)
	}
	c.workers = c.workers[:n]
	return nil
}

// Dims returns the operator geometry.
func (c *Cartesian) Dims() models.Dimension { return c.dims }

// Centered reports whether the transform is centered.
func (c *Cartesian) Centered() bool { return c.centered }

// Masked reports whether a sampling mask is applied.
func (c *Cartesian) Masked() bool { return c.mask != nil }

// Close releases the FFT plans.
func (c *Cartesian) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workers = nil
	c.closed = true
	return nil
}

// Forward combines per-coil data x into one image per frame and returns it.
func (c *Cartesian) Forward(x, b1 []complex128) ([]complex128, error) {
	dst := make([]complex128, c.dims.SeriesLen())
	if err := c.ForwardTo(dst, x, b1); err != nil {
		return nil, err
	}
	return dst, nil
}

// ForwardTo computes, for every frame f,
//
//	dst_f = Σ_coil conj(b1_coil) ⊙ FFT(mask_f ⊙ x_{f,coil})
//
// x is not modified; the mask is applied to a copy of each coil slice.
func (c *Cartesian) ForwardTo(dst, x, b1 []complex128) error {
	if err := c.checkArgs(dst, x, b1, c.dims.SeriesLen(), c.dims.DataLen()); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	n := c.dims.ImageSize()
	coils := c.dims.Coils

	c.eachFrame(func(w *frameWorker, frame int) {
		sum := dst[n*frame : n*(frame+1)]
		vector.Fill(sum, 0)
		offset := n * coils * frame

		for coil := 0; coil < coils; coil++ {
			xc := x[offset+n*coil : offset+n*(coil+1)]
			if c.mask != nil {
				vector.MultiplyReal(w.in, xc, c.mask[n*frame:n*(frame+1)])
			} else {
				copy(w.in, xc)
			}

			if c.centered {
				w.plan.CenteredForward(w.out, w.in)
			} else {
				w.plan.Forward(w.out, w.in)
			}

			vector.MultiplyConjElementwise(w.out, b1[n*coil:n*(coil+1)], w.out)
			vector.Add(sum, sum, w.out)
		}
	})
	return nil
}

// Backward distributes the per-frame images y over the coils and returns
// the per-coil result.
func (c *Cartesian) Backward(y, b1 []complex128) ([]complex128, error) {
	dst := make([]complex128, c.dims.DataLen())
	if err := c.BackwardTo(dst, y, b1); err != nil {
		return nil, err
	}
	return dst, nil
}

// BackwardTo computes, for every frame f and coil,
//
//	dst_{f,coil} = mask_f ⊙ IFFT(b1_coil ⊙ y_f)
//
// written at offset frame·coils·width·height + coil·width·height. The mask
// on the output makes BackwardTo the exact adjoint of ForwardTo.
func (c *Cartesian) BackwardTo(dst, y, b1 []complex128) error {
	if err := c.checkArgs(dst, y, b1, c.dims.DataLen(), c.dims.SeriesLen()); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	n := c.dims.ImageSize()
	coils := c.dims.Coils

	c.eachFrame(func(w *frameWorker, frame int) {
		yf := y[n*frame : n*(frame+1)]

		for coil := 0; coil < coils; coil++ {
			vector.MultiplyElementwise(w.in, yf, b1[n*coil:n*(coil+1)])

			offset := frame*coils*n + coil*n
			out := dst[offset : offset+n]
			if c.centered {
				w.plan.CenteredInverse(out, w.in)
			} else {
				w.plan.Inverse(out, w.in)
			}

			if c.mask != nil {
				vector.MultiplyReal(out, out, c.mask[n*frame:n*(frame+1)])
			}
		}
	})
	return nil
}

// AccelerationFactor returns width·height·frames / ‖mask‖₂², or 1 without mask.
func (c *Cartesian) AccelerationFactor() (float64, error) {
	if c.mask == nil {
		return 1, nil
	}
	norm := vector.RealNorm2(c.mask)
	energy := norm * norm
	if energy == 0 {
		return 0, ErrDegenerateMask
	}
	return float64(c.dims.SeriesLen()) / energy, nil
}

// AdaptLambda returns AccelerationFactor()·k + d.
func (c *Cartesian) AdaptLambda(k, d float64) (float64, error) {
	subfac, err := c.AccelerationFactor()
	if err != nil {
		return 0, err
	}
	return subfac*k + d, nil
}

func (c *Cartesian) checkArgs(dst, src, b1 []complex128, dstLen, srcLen int) error {
	if err := checkLen("input", len(src), srcLen); err != nil {
		return err
	}
	if err := checkLen("output", len(dst), dstLen); err != nil {
		return err
	}
	if err := checkLen("sensitivities", len(b1), c.dims.SensitivityLen()); err != nil {
		return err
	}
	return nil
}

// eachFrame runs fn once per frame. With more than one worker, frames are
// handed out over a channel and every goroutine keeps to its own worker.
func (c *Cartesian) eachFrame(fn func(w *frameWorker, frame int)) {
	frames := c.dims.Frames
	if len(c.workers) <= 1 || frames == 1 {
		for frame := 0; frame < frames; frame++ {
			fn(c.workers[0], frame)
		}
		return
	}

	jobs := make(chan int, frames)
	for frame := 0; frame < frames; frame++ {
		jobs <- frame
	}
	close(jobs)

	var wg sync.WaitGroup
	for _, w := range c.workers {
		wg.Add(1)
		go func(w *frameWorker) {
			defer wg.Done()
			for frame := range jobs {
				fn(w, frame)
			}
		}(w)
	}
	wg.Wait()
}

func (c *Cartesian) String() string {
	return fmt.Sprintf("cartesian(%s, centered=%t, masked=%t)", c.dims, c.centered, c.mask != nil)
}
