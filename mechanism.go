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

package ixbed

// Mechanism is an interface for ion-exchange equilibrium mechanisms.
type Mechanism interface {
	// Len returns the number of chemical species in the mechanism.
	Len() int

	// Species returns the names of the species in the mechanism, in
	// concentration-array index order.
	Species() []string

	// Valence returns the charge of species i.
	Valence(i int) float64

	// Exchangeable reports whether species i participates in ion
	// exchange.
	Exchangeable(i int) bool

	// Reference returns the index of the reference (regenerant)
	// cation, the species that initially occupies all exchange sites
	// on a freshly regenerated bed.
	Reference() int

	// Equilibrate partitions each exchangeable cation between the
	// solution (conc, [eq/m³]) and exchanger (occ, [eq]) phases of a
	// single well-mixed volume so that the mass-action relations,
	// per-species mass balance, and exchanger electroneutrality all
	// hold. It modifies conc and occ in place and returns the number
	// of solver iterations used. It must be a pure function of its
	// arguments so that cells can be equilibrated concurrently.
	Equilibrate(conc, occ []float64, waterVolume, capacity float64) (int, error)
}
