// Package pdrecon implements regularized iterative reconstruction with a
// first-order primal-dual algorithm on top of an encoding operator.
//
// Every solver minimizes
//
//	λ/2 ‖E u − f‖² + R(u)
//
// where E is the operator's Backward (one image per frame to per-coil
// samples), Eᴴ its Forward, f the measured samples and R the regularizer of
// the chosen Method. λ is obtained from Operator.AdaptLambda so that
// undersampled data is weighted accordingly.
package pdrecon

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"mrirecon/internal/models"
	"mrirecon/pkg/operator"
	"mrirecon/pkg/vector"
)

var (
	// ErrNotSupported is returned for geometries or methods this module cannot run.
	ErrNotSupported = errors.New("pdrecon: not supported")

	// ErrUnknownMethod is returned for a method name or tag that does not exist.
	ErrUnknownMethod = errors.New("pdrecon: unknown method")

	// ErrInvalidParams is returned for solver settings out of range.
	ErrInvalidParams = errors.New("pdrecon: invalid parameters")
)

// Method selects the regularizer.
type Method int

const (
	TV Method = iota
	TGV2
	TGV2_3D
	ICTGV2
)

var methodNames = map[Method]string{
	TV:      "TV",
	TGV2:    "TGV2",
	TGV2_3D: "TGV2_3D",
	ICTGV2:  "ICTGV2",
}

func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod converts a name such as "tgv2" or "ICTGV2" into a Method.
func ParseMethod(s string) (Method, error) {
	for m, name := range methodNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	if _, ok := methodNames[m]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Exporter persists named result vectors.
type Exporter interface {
	ExportReal(name string, data []float64) error
	ExportComplex(name string, data []complex128) error
}

// Recon is an iterative reconstruction.
type Recon interface {
	// IterativeReconstruction runs the solver. x holds the initial guess on
	// entry and the reconstruction on return; kdata and b1 are only read.
	IterativeReconstruction(kdata, x, b1 []complex128) error

	// SetVerbose enables progress output.
	SetVerbose(verbose bool)

	// SetDebug enables recording of diagnostics every step iterations.
	SetDebug(enabled bool, step int)

	// ExportAdditionalResults hands the recorded diagnostics to export.
	ExportAdditionalResults(export Exporter) error
}

// New creates the solver for method. The operator geometry must match dims.
func New(method Method, dims models.Dimension, params Params, op operator.Operator) (Recon, error) {
	if op == nil {
		return nil, fmt.Errorf("pdrecon: nil operator")
	}
	if method == TGV2_3D {
		return nil, fmt.Errorf("%w: %s needs a 3-D Cartesian operator", ErrNotSupported, method)
	}
	if err := dims.Validate2D(); err != nil {
		return nil, err
	}
	od := op.Dims()
	if od.Width != dims.Width || od.Height != dims.Height || od.Coils != dims.Coils || od.Frames != dims.Frames {
		return nil, fmt.Errorf("%w: operator is %s, reconstruction is %s",
			operator.ErrDimensionMismatch, od, dims)
	}

	b := base{dims: dims, op: op, debugStep: 1}
	switch method {
	case TV:
		if err := params.TV.Validate(); err != nil {
			return nil, err
		}
		return &TVRecon{base: b, params: params.TV}, nil
	case TGV2:
		if err := params.TGV2.Validate(); err != nil {
			return nil, err
		}
		return &TGV2Recon{base: b, params: params.TGV2}, nil
	case ICTGV2:
		if err := params.ICTGV2.Validate(); err != nil {
			return nil, err
		}
		return &ICTGV2Recon{base: b, params: params.ICTGV2}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
}

// base carries what all primal-dual solvers share: geometry, operator,
// diagnostics and the data term.
type base struct {
	dims models.Dimension
	op   operator.Operator

	verbose   bool
	debug     bool
	debugStep int

	pdGap []float64
}

func (b *base) SetVerbose(verbose bool) { b.verbose = verbose }

func (b *base) SetDebug(enabled bool, step int) {
	b.debug = enabled
	if step < 1 {
		step = 1
	}
	b.debugStep = step
}

// PDGap returns the gaps recorded during the last run.
func (b *base) PDGap() []float64 { return b.pdGap }

func (b *base) ExportAdditionalResults(export Exporter) error {
	if err := export.ExportReal("pdgap.bin", b.pdGap); err != nil {
		return fmt.Errorf("failed to export primal-dual gap: %w", err)
	}
	return nil
}

func (b *base) checkInputs(kdata, x, b1 []complex128) error {
	check := func(name string, got, want int) error {
		if got != want {
			return fmt.Errorf("%w: %s has length %d, want %d", operator.ErrDimensionMismatch, name, got, want)
		}
		return nil
	}
	if err := check("k-space data", len(kdata), b.dims.DataLen()); err != nil {
		return err
	}
	if err := check("image series", len(x), b.dims.SeriesLen()); err != nil {
		return err
	}
	return check("sensitivities", len(b1), b.dims.SensitivityLen())
}

// prepare resets diagnostics and returns λ and the step sizes τ = σ for a
// regularizer whose stacked operator norm, excluding E, is bounded by
// bound(‖E‖²).
func (b *base) prepare(b1 []complex128, lambda, offset float64, bound func(e float64) float64) (adapted, tau, sigma float64, err error) {
	b.pdGap = b.pdGap[:0]

	adapted, err = b.op.AdaptLambda(lambda, offset)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to adapt lambda: %w", err)
	}
	if !(adapted > 0) || math.IsInf(adapted, 0) {
		return 0, 0, 0, fmt.Errorf("%w: adapted lambda %g", ErrInvalidParams, adapted)
	}

	norm, err := operator.EstimateNorm(b.op, b1, 20)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to estimate operator norm: %w", err)
	}
	// power iteration approaches from below
	e := 1.1 * norm * norm

	l2 := bound(e)
	tau = 1 / math.Sqrt(l2)
	sigma = tau

	if b.verbose {
		fmt.Printf("lambda=%g, |E|=%.4f, tau=sigma=%.4f\n", adapted, norm, tau)
	}
	return adapted, tau, sigma, nil
}

// dataDual performs r ← (r + σ(E ū − f)) / (1 + σ/λ), using eu as scratch.
func (b *base) dataDual(r, eu, ubar, kdata, b1 []complex128, sigma, lambda float64) error {
	if err := b.op.BackwardTo(eu, ubar, b1); err != nil {
		return err
	}
	vector.Sub(eu, eu, kdata)
	vector.Axpy(complex(sigma, 0), eu, r)
	vector.Scale(complex(1/(1+sigma/lambda), 0), r)
	return nil
}

// dataGap returns λ/2‖E u − f‖² + ‖r‖²/(2λ) + Re⟨r, f⟩, the data term's
// contribution to the primal-dual gap. eu is scratch.
func (b *base) dataGap(u, r, eu, kdata, b1 []complex128, lambda float64) (float64, error) {
	if err := b.op.BackwardTo(eu, u, b1); err != nil {
		return 0, err
	}
	vector.Sub(eu, eu, kdata)
	res := vector.Norm2(eu)
	rn := vector.Norm2(r)
	return lambda/2*res*res + rn*rn/(2*lambda) + real(vector.Dot(r, kdata)), nil
}

// checkpoint reports whether diagnostics are due after iteration it.
func (b *base) checkpoint(it int, stop float64) bool {
	if b.debug {
		return (it+1)%b.debugStep == 0
	}
	if stop > 0 || b.verbose {
		return (it+1)%10 == 0
	}
	return false
}

// record stores the normalized gap and reports whether to stop.
func (b *base) record(it int, gap, stop float64) bool {
	gap /= float64(b.dims.SeriesLen())
	if b.debug {
		b.pdGap = append(b.pdGap, gap)
	}
	if b.verbose {
		fmt.Printf("iteration %d: pdgap=%g\n", it+1, gap)
	}
	return stop > 0 && math.Abs(gap) < stop
}

// extrapolate sets u ← u − τ·g and ubar ← 2u_new − u_old.
func extrapolate(u, ubar, g []complex128, tau float64) {
	copy(ubar, u)
	vector.Axpy(complex(-tau, 0), g, u)
	vector.Scale(-1, ubar)
	vector.Axpy(2, u, ubar)
}
