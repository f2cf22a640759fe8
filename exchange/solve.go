/*
Copyright © 2024 the IXBed authors.
This file is part of IXBed.

IXBed is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

IXBed is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with IXBed.  If not, see <http://www.gnu.org/licenses/>.
*/

package exchange

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	defaultTolerance     = 1e-10
	defaultMaxIterations = 60

	// daviesA is the Debye-Hückel A parameter at 25 °C.
	daviesA = 0.509

	// interiorMargin keeps Newton iterates strictly inside the feasible
	// region: no occupancy or dissolved remainder is ever driven more
	// than 95% of the way to zero in a single step.
	interiorMargin = 0.95
)

// SolveError indicates that the equilibrium Newton iteration exhausted
// its budget without meeting the convergence tolerance.
type SolveError struct {
	Iterations int
	Residual   float64
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("exchange: equilibrium iteration did not converge after %d iterations (residual %g)",
		e.Iterations, e.Residual)
}

// LastResidual returns the residual norm when the solve gave up.
func (e *SolveError) LastResidual() float64 { return e.Residual }

// IterationCount returns the number of iterations used.
func (e *SolveError) IterationCount() int { return e.Iterations }

// logActivityCoefficients fills lng with the natural-log activity
// coefficient of each species for the given solution composition
// [eq/m³], using the configured activity model.
func (m *Mechanism) logActivityCoefficients(conc, lng []float64) {
	if m.activity == Ideal {
		for i := range lng {
			lng[i] = 0
		}
		return
	}
	// Ionic strength I = ½ Σ cᵢzᵢ² [mol/L]; conc/(1000|z|) is mol/L.
	var ionicStrength float64
	for i, s := range m.species {
		ionicStrength += 0.5 * conc[i] / 1000 * math.Abs(s.Valence)
	}
	if ionicStrength == 0 {
		for i := range lng {
			lng[i] = 0
		}
		return
	}
	sq := math.Sqrt(ionicStrength)
	f := -math.Ln10 * daviesA * (sq/(1+sq) - 0.3*ionicStrength)
	for i, s := range m.species {
		lng[i] = f * s.Valence * s.Valence
	}
}

// Equilibrate partitions the exchangeable cations of one well-mixed
// volume between the solution (conc, [eq/m³]) and exchanger (occ, [eq])
// phases. It modifies conc and occ in place and returns the number of
// Newton iterations used.
//
// The nonlinear system is the Gaines-Thomas mass-action relation between
// each active species and a pivot species, with the pivot occupancy
// eliminated through exchanger electroneutrality (occupancies sum to the
// capacity) and each species' total inventory conserved exactly by
// construction. Activity coefficients are lagged one iteration, so the
// Jacobian is that of the ideal system.
func (m *Mechanism) Equilibrate(conc, occ []float64, waterVolume, capacity float64) (int, error) {
	n := len(m.species)
	if len(conc) != n || len(occ) != n {
		return 0, fmt.Errorf("exchange: got %d concentrations and %d occupancies for %d species",
			len(conc), len(occ), n)
	}
	if waterVolume <= 0 {
		return 0, fmt.Errorf("exchange: water volume must be positive, got %g m³", waterVolume)
	}
	if capacity < 0 {
		return 0, fmt.Errorf("exchange: capacity must not be negative, got %g eq", capacity)
	}
	if capacity == 0 {
		// No sites: everything stays in solution.
		for i, s := range m.species {
			if s.Exchangeable {
				occ[i] = 0
			}
		}
		return 0, nil
	}

	// Total inventory per species; the active set is the exchangeable
	// species actually present in this volume.
	tot := make([]float64, n)
	var active []int
	var totActive float64
	for i, s := range m.species {
		tot[i] = conc[i]*waterVolume + occ[i]
		if s.Exchangeable && tot[i] > 0 {
			active = append(active, i)
			totActive += tot[i]
		}
	}
	if totActive < capacity*(1-1e-9) {
		return 0, fmt.Errorf("exchange: %g eq of exchangeable ions cannot fill %g eq of sites",
			totActive, capacity)
	}
	if len(active) == 1 {
		// One species fills all sites; the remainder stays dissolved.
		i := active[0]
		occ[i] = capacity
		conc[i] = (tot[i] - capacity) / waterVolume
		if conc[i] < 0 {
			conc[i] = 0
		}
		return 0, nil
	}

	// Pivot on the most abundant active species; its occupancy is
	// eliminated, leaving len(active)-1 unknowns.
	p := active[0]
	for _, i := range active {
		if tot[i] > tot[p] {
			p = i
		}
	}
	unk := make([]int, 0, len(active)-1)
	for _, i := range active {
		if i != p {
			unk = append(unk, i)
		}
	}
	na := len(unk)

	x := m.seed(unk, p, tot, occ, capacity)
	cw := make([]float64, n)
	copy(cw, conc)
	lng := make([]float64, n)

	// g is the per-equivalent exchange potential of species i holding
	// xi equivalents of sites; the residual for each unknown is
	// g(i) − g(pivot), which vanishes when the Gaines-Thomas relation
	// ln K(i/p) = (ln Eᵢ − ln aᵢ)/zᵢ − (ln Eₚ − ln aₚ)/zₚ holds.
	g := func(i int, xi float64) float64 {
		s := &m.species[i]
		lnMolar := math.Log(cw[i] / (1000 * s.Valence))
		return (math.Log(xi/capacity)-lng[i]-lnMolar)/s.Valence - math.Ln10*s.LogK
	}
	eval := func(x, f *mat.VecDense) float64 {
		xp := capacity
		for k, i := range unk {
			xi := x.AtVec(k)
			xp -= xi
			cw[i] = (tot[i] - xi) / waterVolume
		}
		cw[p] = (tot[p] - xp) / waterVolume
		m.logActivityCoefficients(cw, lng)
		gp := g(p, xp)
		for k, i := range unk {
			f.SetVec(k, g(i, x.AtVec(k))-gp)
		}
		return mat.Norm(f, 2)
	}

	f := mat.NewVecDense(na, nil)
	fTrial := mat.NewVecDense(na, nil)
	xTrial := mat.NewVecDense(na, nil)
	nf := mat.NewVecDense(na, nil)
	dx := mat.NewVecDense(na, nil)
	jac := mat.NewDense(na, na, nil)

	norm := eval(x, f)
	for iter := 0; iter < m.maxIter; iter++ {
		if norm < m.tol {
			m.writeBack(conc, occ, unk, p, tot, x, waterVolume, capacity)
			return iter, nil
		}

		// Analytic Jacobian of the ideal system. Every unknown couples
		// to every residual through the eliminated pivot occupancy.
		xp := capacity
		for k := range unk {
			xp -= x.AtVec(k)
		}
		dp := (1/xp + 1/(tot[p]-xp)) / m.species[p].Valence
		for k, i := range unk {
			xi := x.AtVec(k)
			di := (1/xi + 1/(tot[i]-xi)) / m.species[i].Valence
			for l := 0; l < na; l++ {
				jac.Set(k, l, dp)
			}
			jac.Set(k, k, dp+di)
		}

		nf.ScaleVec(-1, f)
		if err := dx.SolveVec(jac, nf); err != nil {
			return iter, &SolveError{Iterations: iter, Residual: norm}
		}

		// Clip the step so occupancies and dissolved remainders stay
		// strictly positive, then halve until the residual improves.
		lambda := 1.0
		var sumD float64
		for k, i := range unk {
			xi, di := x.AtVec(k), dx.AtVec(k)
			sumD += di
			if di < 0 {
				if lim := interiorMargin * xi / -di; lim < lambda {
					lambda = lim
				}
			} else if di > 0 {
				if lim := interiorMargin * (tot[i] - xi) / di; lim < lambda {
					lambda = lim
				}
			}
		}
		if sumD > 0 {
			if lim := interiorMargin * xp / sumD; lim < lambda {
				lambda = lim
			}
		} else if sumD < 0 {
			if lim := interiorMargin * (tot[p] - xp) / -sumD; lim < lambda {
				lambda = lim
			}
		}
		for try := 0; ; try++ {
			xTrial.AddScaledVec(x, lambda, dx)
			trialNorm := eval(xTrial, fTrial)
			if trialNorm < norm || try == 8 {
				x.CopyVec(xTrial)
				f.CopyVec(fTrial)
				norm = trialNorm
				break
			}
			lambda /= 2
		}
	}
	if norm < m.tol {
		m.writeBack(conc, occ, unk, p, tot, x, waterVolume, capacity)
		return m.maxIter, nil
	}
	return m.maxIter, &SolveError{Iterations: m.maxIter, Residual: norm}
}

// seed builds the initial Newton iterate from the caller's occupancies
// (typically last shift's solution), nudged into the interior of the
// feasible region so that every log term is finite.
func (m *Mechanism) seed(unk []int, p int, tot, occ []float64, capacity float64) *mat.VecDense {
	x := mat.NewVecDense(len(unk), nil)
	var sum, room float64
	for k, i := range unk {
		lo := 1e-8 * math.Min(tot[i], capacity)
		hi := math.Min(tot[i], capacity) - lo
		xi := occ[i]
		if xi < lo {
			xi = lo
		}
		if xi > hi {
			xi = hi
		}
		x.SetVec(k, xi)
		sum += xi
		room += hi - xi
	}
	// The pivot occupancy capacity−sum must itself be positive and
	// must leave some of the pivot species dissolved.
	hiP := math.Min(tot[p], capacity) * (1 - 1e-8)
	if deficit := capacity - hiP - sum; deficit > 0 && room > 0 {
		scale := deficit / room
		for k, i := range unk {
			hi := math.Min(tot[i], capacity) * (1 - 1e-8)
			x.SetVec(k, x.AtVec(k)+scale*(hi-x.AtVec(k)))
		}
		sum = 0
		for k := range unk {
			sum += x.AtVec(k)
		}
	}
	if sum > capacity*(1-1e-8) {
		scale := capacity * (1 - 1e-8) / sum
		for k := range unk {
			x.SetVec(k, x.AtVec(k)*scale)
		}
	}
	return x
}

// writeBack stores the converged occupancies and the implied solution
// concentrations, clamping roundoff-scale negatives to zero.
func (m *Mechanism) writeBack(conc, occ []float64, unk []int, p int, tot []float64, x *mat.VecDense, waterVolume, capacity float64) {
	xp := capacity
	for k, i := range unk {
		xi := x.AtVec(k)
		xp -= xi
		occ[i] = xi
		conc[i] = (tot[i] - xi) / waterVolume
		if conc[i] < 0 {
			conc[i] = 0
		}
	}
	occ[p] = xp
	conc[p] = (tot[p] - xp) / waterVolume
	if conc[p] < 0 {
		conc[p] = 0
	}
	for i, s := range m.species {
		if s.Exchangeable && tot[i] == 0 {
			occ[i] = 0
			conc[i] = 0
		}
	}
}
