package pdrecon

import (
	"fmt"
	"math"
)

// TVParams configures the total variation solver.
type TVParams struct {
	// MaxIt is the number of primal-dual iterations
	MaxIt int `yaml:"maxIt"`

	// StopPDGap stops early once the normalized primal-dual gap falls below it (0 disables)
	StopPDGap float64 `yaml:"stopPDGap"`

	// Lambda is the base data fidelity weight, adapted to the sampling density
	Lambda float64 `yaml:"lambda"`

	// LambdaOffset is added after adaptation
	LambdaOffset float64 `yaml:"lambdaOffset"`

	// Ds and Dt are the spatial and temporal grid steps
	Ds float64 `yaml:"ds"`
	Dt float64 `yaml:"dt"`
}

// TGV2Params configures the second-order total generalized variation solver.
type TGV2Params struct {
	MaxIt        int     `yaml:"maxIt"`
	StopPDGap    float64 `yaml:"stopPDGap"`
	Lambda       float64 `yaml:"lambda"`
	LambdaOffset float64 `yaml:"lambdaOffset"`

	// Alpha0 weights the second-order term, Alpha1 the first-order term
	Alpha0 float64 `yaml:"alpha0"`
	Alpha1 float64 `yaml:"alpha1"`

	Ds float64 `yaml:"ds"`
	Dt float64 `yaml:"dt"`
}

// ICTGV2Params configures the infimal convolution of two TGV2 functionals
// with different space-time weightings.
type ICTGV2Params struct {
	MaxIt        int     `yaml:"maxIt"`
	StopPDGap    float64 `yaml:"stopPDGap"`
	Lambda       float64 `yaml:"lambda"`
	LambdaOffset float64 `yaml:"lambdaOffset"`

	Alpha0 float64 `yaml:"alpha0"`
	Alpha1 float64 `yaml:"alpha1"`

	// Alpha in (0, 1) splits the regularization between the two components
	Alpha float64 `yaml:"alpha"`

	// Ds, Dt are the grid steps of the first component, Ds2, Dt2 of the second
	Ds  float64 `yaml:"ds"`
	Dt  float64 `yaml:"dt"`
	Ds2 float64 `yaml:"ds2"`
	Dt2 float64 `yaml:"dt2"`
}

// Params bundles the settings of every method; New picks the one it needs.
type Params struct {
	TV     TVParams     `yaml:"tv"`
	TGV2   TGV2Params   `yaml:"tgv2"`
	ICTGV2 ICTGV2Params `yaml:"ictgv2"`
}

// DefaultParams returns the default settings for all methods.
func DefaultParams() Params {
	return Params{
		TV: TVParams{
			MaxIt:  500,
			Lambda: 1,
			Ds:     1,
			Dt:     1,
		},
		TGV2: TGV2Params{
			MaxIt:  500,
			Lambda: 1,
			Alpha0: math.Sqrt2,
			Alpha1: 1,
			Ds:     1,
			Dt:     1,
		},
		ICTGV2: ICTGV2Params{
			MaxIt:  500,
			Lambda: 1,
			Alpha0: math.Sqrt2,
			Alpha1: 1,
			Alpha:  0.5,
			Ds:     1,
			Dt:     1,
			Ds2:    1,
			Dt2:    4,
		},
	}
}

func positive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be positive and finite, got %g", ErrInvalidParams, name, v)
	}
	return nil
}

func checkCommon(maxIt int, stop, lambda float64) error {
	if maxIt < 0 {
		return fmt.Errorf("%w: maxIt must not be negative, got %d", ErrInvalidParams, maxIt)
	}
	if stop < 0 {
		return fmt.Errorf("%w: stopPDGap must not be negative, got %g", ErrInvalidParams, stop)
	}
	return positive("lambda", lambda)
}

// Validate checks the TV settings.
func (p TVParams) Validate() error {
	if err := checkCommon(p.MaxIt, p.StopPDGap, p.Lambda); err != nil {
		return err
	}
	if err := positive("ds", p.Ds); err != nil {
		return err
	}
	return positive("dt", p.Dt)
}

// Validate checks the TGV2 settings.
func (p TGV2Params) Validate() error {
	if err := checkCommon(p.MaxIt, p.StopPDGap, p.Lambda); err != nil {
		return err
	}
	for name, v := range map[string]float64{"alpha0": p.Alpha0, "alpha1": p.Alpha1, "ds": p.Ds, "dt": p.Dt} {
		if err := positive(name, v); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the ICTGV2 settings.
func (p ICTGV2Params) Validate() error {
	if err := checkCommon(p.MaxIt, p.StopPDGap, p.Lambda); err != nil {
		return err
	}
	for name, v := range map[string]float64{
		"alpha0": p.Alpha0, "alpha1": p.Alpha1,
		"ds": p.Ds, "dt": p.Dt, "ds2": p.Ds2, "dt2": p.Dt2,
	} {
		if err := positive(name, v); err != nil {
			return err
		}
	}
	if !(p.Alpha > 0 && p.Alpha < 1) {
		return fmt.Errorf("%w: alpha must lie in (0, 1), got %g", ErrInvalidParams, p.Alpha)
	}
	return nil
}
