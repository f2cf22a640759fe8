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

// Cell holds the state of a single well-mixed column segment.
type Cell struct {
	// Index is the position of the cell along the flow axis
	// (0 = feed-proximal, N-1 = outlet).
	Index int

	WaterVolume float64 // pore-water volume held by the cell [m³]
	Capacity    float64 // total exchange-site capacity [eq]

	Ci []float64 // solution concentrations at the start of the shift [eq/m³]
	Cf []float64 // solution concentrations at the end of the shift [eq/m³]

	// Occ holds the exchanger-phase inventory of each species [eq].
	// The occupancies sum to Capacity after every equilibration
	// (electroneutrality on the exchanger phase).
	Occ []float64

	// SolveIterations is the iteration count of the most recent
	// equilibrium solve in this cell.
	SolveIterations int
}

func (c *Cell) prepare(nSpecies int) {
	c.Ci = make([]float64, nSpecies)
	c.Cf = make([]float64, nSpecies)
	c.Occ = make([]float64, nSpecies)
}

// commit makes the end-of-shift state the new start-of-shift snapshot.
func (c *Cell) commit() {
	copy(c.Ci, c.Cf)
}
