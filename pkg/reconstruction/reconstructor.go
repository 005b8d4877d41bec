// Package reconstruction runs a complete reconstruction: it loads the
// measured data, builds the encoding operator and solver from a
// configuration, runs the solver and writes the results.
package reconstruction

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"mrirecon/internal/models"
	"mrirecon/pkg/config"
	"mrirecon/pkg/dataio"
	"mrirecon/pkg/metrics"
	"mrirecon/pkg/operator"
	"mrirecon/pkg/pdrecon"
	"mrirecon/pkg/vector"
	"mrirecon/pkg/visualization"
)

// Reconstructor drives a single reconstruction described by a Config.
//
// The pipeline consists of these steps:
// 1. Loading k-space, sampling mask, coil sensitivities and initial guess
// 2. Building the Cartesian encoding operator
// 3. Running the primal-dual solver of the configured method
// 4. Writing the image series and the additional results
// 5. Comparing against a reference, if one is configured
type Reconstructor struct {
	cfg *config.Config

	kdata []complex128
	mask  []float64
	b1    []complex128

	// result holds the image series after Process
	result []complex128

	metrics    metrics.Metrics
	hasMetrics bool

	elapsed time.Duration
}

// NewReconstructor creates a reconstructor for cfg.
func NewReconstructor(cfg *config.Config) *Reconstructor {
	return &Reconstructor{cfg: cfg}
}

// Result returns the reconstructed image series (width·height·frames).
func (r *Reconstructor) Result() []complex128 {
	return r.result
}

// Metrics returns the quality metrics and whether a reference was available.
func (r *Reconstructor) Metrics() (metrics.Metrics, bool) {
	return r.metrics, r.hasMetrics
}

// Elapsed returns the time spent in the solver.
func (r *Reconstructor) Elapsed() time.Duration {
	return r.elapsed
}

// Process runs the complete reconstruction pipeline. When the k-space file
// is .cfl and no width or height is configured, the geometry is taken from
// its header and stored in the configuration.
func (r *Reconstructor) Process() error {
	cfg := r.cfg
	if err := r.dimsFromHeader(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Method == pdrecon.TGV2_3D {
		return fmt.Errorf("%w: %s", pdrecon.ErrNotSupported, cfg.Method)
	}
	if !outputSupported(cfg.Files.Output) {
		return fmt.Errorf("%w: %s", dataio.ErrUnsupportedFormat, cfg.Files.Output)
	}
	dims := cfg.Dims
	verbose := cfg.Output.Verbose

	if verbose {
		fmt.Printf("Step 1: Loading data (%s)...\n", dims)
	}
	if err := r.loadData(); err != nil {
		return err
	}
	x, err := r.initialGuess()
	if err != nil {
		return err
	}

	if verbose {
		fmt.Println("Step 2: Creating Cartesian operator...")
	}
	op, err := operator.NewCartesianCentering(dims.Width, dims.Height, dims.Coils, dims.Frames, r.mask, cfg.Processing.Centered)
	if err != nil {
		return fmt.Errorf("failed to create operator: %w", err)
	}
	defer op.Close()
	if err := op.SetNumCores(cfg.Processing.NumCores); err != nil {
		return err
	}
	if verbose {
		fmt.Printf("Operator: centered=%v, masked=%v, cores=%d\n", op.Centered(), op.Masked(), cfg.Processing.NumCores)
		if acc, err := op.AccelerationFactor(); err == nil {
			fmt.Printf("Acceleration factor: %.2f\n", acc)
		}
	}

	solver, err := pdrecon.New(cfg.Method, dims, cfg.Params, op)
	if err != nil {
		return fmt.Errorf("failed to create %s reconstruction: %w", cfg.Method, err)
	}
	solver.SetVerbose(verbose)
	solver.SetDebug(cfg.Output.DebugStep > 0, cfg.Output.DebugStep)

	if verbose {
		fmt.Printf("Step 3: Running %s reconstruction...\n", cfg.Method)
	}
	start := time.Now()
	if err := solver.IterativeReconstruction(r.kdata, x, r.b1); err != nil {
		return fmt.Errorf("%s reconstruction failed: %w", cfg.Method, err)
	}
	r.elapsed = time.Since(start)
	r.result = x
	if verbose {
		fmt.Printf("Reconstruction finished in %.2f seconds\n", r.elapsed.Seconds())
	}

	if verbose {
		fmt.Printf("Step 4: Writing results to %s...\n", cfg.Files.Output)
	}
	if err := WriteOutput(cfg.Files.Output, x, dims); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if cfg.Output.ExtraData != "" {
		exp, err := dataio.NewDirExporter(cfg.Output.ExtraData)
		if err != nil {
			return err
		}
		if err := solver.ExportAdditionalResults(exp); err != nil {
			return err
		}
	}

	if cfg.Files.Reference != "" {
		if verbose {
			fmt.Println("Step 5: Comparing with reference...")
		}
		ref, err := dataio.LoadComplex(cfg.Files.Reference)
		if err != nil {
			return fmt.Errorf("failed to load reference: %w", err)
		}
		m, err := metrics.Compare(ref, x)
		if err != nil {
			return err
		}
		r.metrics = m
		r.hasMetrics = true
		if verbose {
			fmt.Printf("Metrics: %s\n", m)
		}
	}
	return nil
}

// dimsFromHeader fills an unset geometry from the header of .cfl k-space data.
func (r *Reconstructor) dimsFromHeader() error {
	cfg := r.cfg
	ext := strings.ToLower(filepath.Ext(cfg.Files.KData))
	if ext != ".cfl" && ext != ".hdr" {
		return nil
	}
	if cfg.Dims.Width != 0 || cfg.Dims.Height != 0 {
		return nil
	}

	hdr, err := dataio.ReadCFLHeader(cfg.Files.KData)
	if err != nil {
		return fmt.Errorf("failed to read k-space header: %w", err)
	}
	dims := dataio.DimensionFromCFL(hdr)
	if dims.Depth > 0 {
		return fmt.Errorf("%w: volumetric k-space with %d partitions", pdrecon.ErrNotSupported, dims.Depth)
	}
	cfg.Dims = dims
	if cfg.Output.Verbose {
		fmt.Printf("Dimensions from %s: %s\n", cfg.Files.KData, dims)
	}
	return nil
}

// loadData reads k-space, mask and sensitivities and applies the mask to
// the k-space data.
func (r *Reconstructor) loadData() error {
	files := r.cfg.Files
	dims := r.cfg.Dims

	kdata, err := dataio.LoadComplex(files.KData)
	if err != nil {
		return fmt.Errorf("failed to load k-space data: %w", err)
	}
	if len(kdata) != dims.DataLen() {
		return fmt.Errorf("%w: k-space data has %d samples, want %d", dataio.ErrLengthMismatch, len(kdata), dims.DataLen())
	}
	r.kdata = kdata

	if files.Mask != "" {
		mask, err := dataio.LoadReal(files.Mask)
		if err != nil {
			return fmt.Errorf("failed to load mask: %w", err)
		}
		// a single image is shared by all frames
		if len(mask) == dims.ImageSize() && dims.Frames > 1 {
			mask = replicateReal(mask, dims.Frames)
		}
		if err := dataio.ApplyMask(r.kdata, mask, dims); err != nil {
			return err
		}
		r.mask = mask
	}

	switch {
	case files.Sensitivities != "":
		b1, err := dataio.LoadComplex(files.Sensitivities)
		if err != nil {
			return fmt.Errorf("failed to load coil sensitivities: %w", err)
		}
		if len(b1) != dims.SensitivityLen() {
			return fmt.Errorf("%w: sensitivities have %d values, want %d", dataio.ErrLengthMismatch, len(b1), dims.SensitivityLen())
		}
		r.b1 = b1
	case dims.Coils == 1:
		r.b1 = vector.Ones(dims.SensitivityLen())
	default:
		return fmt.Errorf("%w: %d coils without sensitivity maps", pdrecon.ErrNotSupported, dims.Coils)
	}
	return nil
}

// initialGuess returns the starting image series. A single image u0 is
// copied into every frame; without u0 the series starts at zero.
func (r *Reconstructor) initialGuess() ([]complex128, error) {
	dims := r.cfg.Dims
	x := make([]complex128, dims.SeriesLen())
	if r.cfg.Files.U0 == "" {
		return x, nil
	}

	u0, err := dataio.LoadComplex(r.cfg.Files.U0)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial guess: %w", err)
	}
	switch len(u0) {
	case dims.SeriesLen():
		copy(x, u0)
	case dims.ImageSize():
		for frame := 0; frame < dims.Frames; frame++ {
			vector.SetSubVector(u0, x, frame, dims.ImageSize())
		}
	default:
		return nil, fmt.Errorf("%w: initial guess has %d values, want %d or %d", dataio.ErrLengthMismatch,
			len(u0), dims.ImageSize(), dims.SeriesLen())
	}
	return x, nil
}

func replicateReal(src []float64, n int) []float64 {
	out := make([]float64, 0, len(src)*n)
	for i := 0; i < n; i++ {
		out = append(out, src...)
	}
	return out
}

func outputSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bin", ".cfl", ".hdr", ".jpg", ".jpeg", "":
		return true
	}
	return false
}

// WriteOutput writes an image series according to the extension of path:
// .bin and .cfl write the raw vector, .jpg writes one magnitude and one
// phase image per frame next to path, and a path without extension is
// used as a directory of such images.
func WriteOutput(path string, x []complex128, dims models.Dimension) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".bin":
		return dataio.WriteComplexBin(path, x)
	case ".cfl", ".hdr":
		return dataio.WriteCFL(path, dataio.CFLDims(dims.Width, dims.Height, dims.Frames), x)
	case ".jpg", ".jpeg", "":
		viewer, err := visualization.NewViewer(x, dims.Width, dims.Height, dims.Frames)
		if err != nil {
			return err
		}
		if ext == "" {
			return viewer.SaveFrameSequence(path, "recon")
		}
		return viewer.SaveFrameSequence(filepath.Dir(path), strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	}
	return fmt.Errorf("%w: %s", dataio.ErrUnsupportedFormat, path)
}
