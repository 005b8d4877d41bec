package pdrecon

import "mrirecon/pkg/vector"

// TVRecon minimizes λ/2‖E u − f‖² + ‖∇u‖₁ over the image series, with
// spatial and temporal finite differences.
type TVRecon struct {
	base
	params TVParams
}

// IterativeReconstruction implements Recon.
func (r *TVRecon) IterativeReconstruction(kdata, x, b1 []complex128) error {
	if err := r.checkInputs(kdata, x, b1); err != nil {
		return err
	}

	d := r.dims
	g := newGrid(d.Width, d.Height, d.Frames, r.params.Ds, r.params.Dt)
	lambda, tau, sigma, err := r.prepare(b1, r.params.Lambda, r.params.LambdaOffset, func(e float64) float64 {
		return g.normBound() + e
	})
	if err != nil {
		return err
	}

	n := d.SeriesLen()
	u := x
	ubar := make([]complex128, n)
	copy(ubar, u)

	p := newField(n)
	gradU := newField(n)
	dual := make([]complex128, d.DataLen())
	eu := make([]complex128, d.DataLen())
	divP := make([]complex128, n)
	ehr := make([]complex128, n)

	for it := 0; it < r.params.MaxIt; it++ {
		// p ← proj(p + σ∇ū)
		g.grad(gradU, ubar)
		for k := range p {
			vector.Axpy(complex(sigma, 0), gradU[k], p[k])
		}
		projectField(p, 1)

		if err := r.dataDual(dual, eu, ubar, kdata, b1, sigma, lambda); err != nil {
			return err
		}

		// u ← u − τ(∇ᴴp + Eᴴr)
		g.gradAdj(divP, p)
		if err := r.op.ForwardTo(ehr, dual, b1); err != nil {
			return err
		}
		vector.Add(divP, divP, ehr)
		extrapolate(u, ubar, divP, tau)

		if r.checkpoint(it, r.params.StopPDGap) {
			gap, err := r.dataGap(u, dual, eu, kdata, b1, lambda)
			if err != nil {
				return err
			}
			g.grad(gradU, u)
			// divP still holds ∇ᴴp + Eᴴr, the residual of the dual constraint
			gap += fieldL1(gradU) + l1(divP)
			if r.record(it, gap, r.params.StopPDGap) {
				break
			}
		}
	}
	return nil
}
