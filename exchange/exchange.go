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

// Package exchange implements a multi-species Gaines-Thomas ion-exchange
// equilibrium mechanism for the ixbed column simulator.
//
// Selectivity coefficients are given per species relative to a single
// reference cation (the regenerant ion, e.g. Na⁺ for a softening resin),
// whose own log K is zero by definition. Pairwise coefficients compose:
// log K(A/B) = log K(A/ref) − log K(B/ref), so any two species can be
// compared without tabulating the full matrix.
package exchange

import "fmt"

// Species describes one dissolved species.
type Species struct {
	Name string

	// Valence is the ionic charge. Cations are positive, anions
	// negative. It must not be zero.
	Valence float64

	// MolarMass [g/mol] is carried for unit conversion by callers; the
	// equilibrium solve itself works in equivalents.
	MolarMass float64

	// LogK is the base-10 Gaines-Thomas selectivity coefficient of this
	// species relative to the reference cation. It must be zero for the
	// reference itself and is ignored for non-exchangeable species.
	LogK float64

	// Exchangeable reports whether the species competes for exchange
	// sites. Non-exchangeable species (e.g. chloride) are transported
	// but pass through the equilibrium solve untouched.
	Exchangeable bool
}

// ActivityModel selects the solution-phase activity correction.
type ActivityModel int

const (
	// Davies applies the Davies equation at 25 °C. It is the default
	// and is adequate up to ionic strengths of roughly 0.5 mol/L.
	Davies ActivityModel = iota

	// Ideal uses unit activity coefficients. Useful for testing against
	// closed-form solutions and for very dilute waters.
	Ideal
)

// Mechanism is a set of species and selectivity coefficients. It
// implements the ixbed.Mechanism interface. A Mechanism is immutable
// after creation and safe for concurrent use.
type Mechanism struct {
	species []Species
	names   []string
	ref     int

	activity ActivityModel
	tol      float64
	maxIter  int
}

// Option configures a Mechanism.
type Option func(*Mechanism)

// Activity sets the solution-phase activity model.
func Activity(model ActivityModel) Option {
	return func(m *Mechanism) { m.activity = model }
}

// Tolerance sets the residual norm below which the equilibrium iteration
// is considered converged.
func Tolerance(tol float64) Option {
	return func(m *Mechanism) { m.tol = tol }
}

// MaxIterations sets the iteration budget of the equilibrium solve.
func MaxIterations(n int) Option {
	return func(m *Mechanism) { m.maxIter = n }
}

// New creates a Mechanism from the given species. The first exchangeable
// species is the reference cation and must have a log K of zero.
func New(species []Species, opts ...Option) (*Mechanism, error) {
	if len(species) == 0 {
		return nil, fmt.Errorf("exchange: no species given")
	}
	m := &Mechanism{
		species: make([]Species, len(species)),
		names:   make([]string, len(species)),
		ref:     -1,
		tol:     defaultTolerance,
		maxIter: defaultMaxIterations,
	}
	copy(m.species, species)
	seen := make(map[string]bool)
	for i, s := range m.species {
		if s.Name == "" {
			return nil, fmt.Errorf("exchange: species %d has no name", i)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("exchange: duplicate species %q", s.Name)
		}
		seen[s.Name] = true
		m.names[i] = s.Name
		if s.Valence == 0 {
			return nil, fmt.Errorf("exchange: species %q has zero valence", s.Name)
		}
		if s.MolarMass < 0 {
			return nil, fmt.Errorf("exchange: species %q has negative molar mass", s.Name)
		}
		if s.Exchangeable {
			if s.Valence < 0 {
				return nil, fmt.Errorf("exchange: exchangeable species %q must be a cation, got valence %g",
					s.Name, s.Valence)
			}
			if m.ref < 0 {
				if s.LogK != 0 {
					return nil, fmt.Errorf("exchange: reference species %q must have log K = 0, got %g",
						s.Name, s.LogK)
				}
				m.ref = i
			}
		}
	}
	if m.ref < 0 {
		return nil, fmt.Errorf("exchange: no exchangeable species given")
	}
	for _, o := range opts {
		o(m)
	}
	if m.tol <= 0 {
		return nil, fmt.Errorf("exchange: tolerance must be positive, got %g", m.tol)
	}
	if m.maxIter < 1 {
		return nil, fmt.Errorf("exchange: iteration budget must be at least 1, got %d", m.maxIter)
	}
	return m, nil
}

// Len returns the number of species in the mechanism.
func (m *Mechanism) Len() int { return len(m.species) }

// Species returns the species names in concentration-array index order.
func (m *Mechanism) Species() []string { return m.names }

// Valence returns the charge of species i.
func (m *Mechanism) Valence(i int) float64 { return m.species[i].Valence }

// Exchangeable reports whether species i competes for exchange sites.
func (m *Mechanism) Exchangeable(i int) bool { return m.species[i].Exchangeable }

// Reference returns the index of the reference (regenerant) cation.
func (m *Mechanism) Reference() int { return m.ref }

// Index returns the concentration-array index of the named species, or
// -1 if the mechanism does not contain it.
func (m *Mechanism) Index(name string) int {
	for i, n := range m.names {
		if n == name {
			return i
		}
	}
	return -1
}
