package pdrecon

import "mrirecon/pkg/vector"

// tgvTerm holds the variables of one TGV2 functional
//
//	α1‖∇z − v‖₁ + α0‖ε(v)‖₁
//
// applied to some image z: the auxiliary field v, its extrapolation and the
// dual variables p and q.
type tgvTerm struct {
	g              grid
	alpha0, alpha1 float64

	v, vbar field
	p       field
	q       tensor

	// adjP holds ∇ᴴp after dualStep; it enters the image update.
	adjP []complex128

	tmpF field
	tmpT tensor
}

func newTGVTerm(g grid, alpha0, alpha1 float64) *tgvTerm {
	n := g.len()
	return &tgvTerm{
		g:      g,
		alpha0: alpha0,
		alpha1: alpha1,
		v:      newField(n),
		vbar:   newField(n),
		p:      newField(n),
		q:      newTensor(n),
		adjP:   make([]complex128, n),
		tmpF:   newField(n),
		tmpT:   newTensor(n),
	}
}

// dualStep updates p and q from the extrapolated image zbar.
func (t *tgvTerm) dualStep(zbar []complex128, sigma float64) {
	s := complex(sigma, 0)

	t.g.grad(t.tmpF, zbar)
	for k := range t.p {
		vector.Sub(t.tmpF[k], t.tmpF[k], t.vbar[k])
		vector.Axpy(s, t.tmpF[k], t.p[k])
	}
	projectField(t.p, t.alpha1)

	t.g.symGrad(t.tmpT, t.vbar)
	for k := range t.q {
		vector.Axpy(s, t.tmpT[k], t.q[k])
	}
	projectTensor(t.q, t.alpha0)

	t.g.gradAdj(t.adjP, t.p)
}

// primalStep updates v ← v − τ(εᴴq − p) and its extrapolation.
func (t *tgvTerm) primalStep(tau float64) {
	t.vResidual(t.tmpF)
	for k := range t.v {
		extrapolate(t.v[k], t.vbar[k], t.tmpF[k], tau)
	}
}

// vResidual writes εᴴq − p, the gradient of the saddle function in v.
func (t *tgvTerm) vResidual(dst field) {
	t.g.symGradAdj(dst, t.q)
	for k := range dst {
		vector.Sub(dst[k], dst[k], t.p[k])
	}
}

// energy returns α1‖∇z − v‖₁ + α0‖ε(v)‖₁.
func (t *tgvTerm) energy(z []complex128) float64 {
	t.g.grad(t.tmpF, z)
	for k := range t.tmpF {
		vector.Sub(t.tmpF[k], t.tmpF[k], t.v[k])
	}
	e := t.alpha1 * fieldL1(t.tmpF)
	t.g.symGrad(t.tmpT, t.v)
	return e + t.alpha0*tensorL1(t.tmpT)
}

// dualResidual returns ‖εᴴq − p‖₁, the violation of the dual constraint in v.
func (t *tgvTerm) dualResidual() float64 {
	t.vResidual(t.tmpF)
	return fieldL1(t.tmpF)
}

// TGV2Recon minimizes λ/2‖E u − f‖² + TGV²_α(u).
type TGV2Recon struct {
	base
	params TGV2Params
}

// IterativeReconstruction implements Recon.
func (r *TGV2Recon) IterativeReconstruction(kdata, x, b1 []complex128) error {
	if err := r.checkInputs(kdata, x, b1); err != nil {
		return err
	}

	d := r.dims
	g := newGrid(d.Width, d.Height, d.Frames, r.params.Ds, r.params.Dt)
	lambda, tau, sigma, err := r.prepare(b1, r.params.Lambda, r.params.LambdaOffset, func(e float64) float64 {
		return 2*g.normBound() + e + 2
	})
	if err != nil {
		return err
	}

	n := d.SeriesLen()
	u := x
	ubar := make([]complex128, n)
	copy(ubar, u)

	term := newTGVTerm(g, r.params.Alpha0, r.params.Alpha1)
	dual := make([]complex128, d.DataLen())
	eu := make([]complex128, d.DataLen())
	ehr := make([]complex128, n)
	step := make([]complex128, n)

	for it := 0; it < r.params.MaxIt; it++ {
		term.dualStep(ubar, sigma)
		if err := r.dataDual(dual, eu, ubar, kdata, b1, sigma, lambda); err != nil {
			return err
		}

		if err := r.op.ForwardTo(ehr, dual, b1); err != nil {
			return err
		}
		for i := range step {
			step[i] = term.adjP[i] + ehr[i]
		}
		extrapolate(u, ubar, step, tau)
		term.primalStep(tau)

		if r.checkpoint(it, r.params.StopPDGap) {
			gap, err := r.dataGap(u, dual, eu, kdata, b1, lambda)
			if err != nil {
				return err
			}
			gap += term.energy(u) + l1(step) + term.dualResidual()
			if r.record(it, gap, r.params.StopPDGap) {
				break
			}
		}
	}
	return nil
}
