// Package operator defines the MR encoding operators: the linear map between an
// image series and multi-coil samples, and its adjoint.
package operator

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"mrirecon/internal/models"
	"mrirecon/pkg/vector"
)

var (
	// ErrDimensionMismatch is returned when a vector length disagrees with the
	// operator geometry.
	ErrDimensionMismatch = errors.New("operator: dimension mismatch")

	// ErrDegenerateMask is returned when a sampling mask has zero energy.
	ErrDegenerateMask = errors.New("operator: sampling mask has zero energy")

	// ErrClosed is returned when an operator is used after Close.
	ErrClosed = errors.New("operator: use of closed operator")
)

// Operator is the encoding operator contract used by the iterative solvers.
//
// Forward reduces per-coil, per-frame data (length width·height·coils·frames)
// to one image per frame (length width·height·frames) by combining coils with
// the conjugate sensitivities. Backward distributes a per-frame image over the
// coils. The two are adjoint to each other.
type Operator interface {
	// Dims returns the geometry the operator was built for.
	Dims() models.Dimension

	// ForwardTo writes the coil-combined result for x into dst.
	ForwardTo(dst, x, b1 []complex128) error

	// BackwardTo writes the per-coil result for y into dst.
	BackwardTo(dst, y, b1 []complex128) error

	// AdaptLambda scales a regularization weight k by the acceleration
	// factor of the sampling pattern and adds d.
	AdaptLambda(k, d float64) (float64, error)
}

func checkLen(name string, got, want int) error {
	if got != want {
		return fmt.Errorf("%w: %s has length %d, want %d", ErrDimensionMismatch, name, got, want)
	}
	return nil
}

// EstimateNorm approximates the operator norm ‖Backward‖ (equal to ‖Forward‖)
// by power iteration on Forward∘Backward. The estimate approaches the true
// norm from below.
func EstimateNorm(op Operator, b1 []complex128, iterations int) (float64, error) {
	dims := op.Dims()
	rng := rand.New(rand.NewPCG(1, 2))

	x := make([]complex128, dims.SeriesLen())
	for i := range x {
		x[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	z := make([]complex128, dims.DataLen())

	if iterations < 1 {
		iterations = 1
	}

	var norm float64
	for i := 0; i < iterations; i++ {
		n := vector.Norm2(x)
		if n == 0 {
			return 0, nil
		}
		vector.Scale(complex(1/n, 0), x)

		if err := op.BackwardTo(z, x, b1); err != nil {
			return 0, err
		}
		if err := op.ForwardTo(x, z, b1); err != nil {
			return 0, err
		}
		// x is unit length, so ‖EᴴE x‖ → ‖E‖².
		norm = math.Sqrt(vector.Norm2(x))
	}
	return norm, nil
}
