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

// ShiftAdvection returns a function that advects the pore solution one cell
// downstream: every cell's new working state (Cf) becomes the previous
// state (Ci) of its upstream neighbor, the inlet cell receives the feed,
// and the outlet cell's previous state is captured as the effluent parcel
// for this shift.
//
// All reads are from the Ci snapshot of the previous shift and all writes
// go to Cf, so no cell ever observes a partially updated neighbor.
func ShiftAdvection() ColumnManipulator {
	return func(d *IXBed) error {
		last := len(d.cells) - 1
		if d.effluent == nil {
			d.effluent = make([]float64, d.nSpecies)
		}
		copy(d.effluent, d.cells[last].Ci)
		for j := last; j > 0; j-- {
			copy(d.cells[j].Cf, d.cells[j-1].Ci)
		}
		copy(d.cells[0].Cf, d.feed)
		return nil
	}
}

// Dispersion returns a function that blends a fraction α of each cell's
// post-advection solute load with each of its neighbors, emulating
// sub-cell mixing without requiring a finer discretization. The blend is
// internal to the column: no dispersive flux crosses the inlet or outlet
// boundary (the inlet concentration is fixed by the feed and nothing
// diffuses back out of the outlet), so total column mass changes only
// through advection.
//
// The blend is computed from a scratch snapshot of the post-advection
// state, so ordering within the pass does not matter.
func Dispersion(α float64) ColumnManipulator {
	var scratch [][]float64
	return func(d *IXBed) error {
		if α == 0 || len(d.cells) < 2 {
			return nil
		}
		if scratch == nil {
			scratch = make([][]float64, len(d.cells))
			for j := range scratch {
				scratch[j] = make([]float64, d.nSpecies)
			}
		}
		for j, c := range d.cells {
			copy(scratch[j], c.Cf)
		}
		last := len(d.cells) - 1
		for j, c := range d.cells {
			for i := 0; i < d.nSpecies; i++ {
				v := scratch[j][i]
				if j > 0 {
					v += α * (scratch[j-1][i] - scratch[j][i])
				}
				if j < last {
					v += α * (scratch[j+1][i] - scratch[j][i])
				}
				c.Cf[i] = v
			}
		}
		return nil
	}
}

// CommitShift returns a function that makes each cell's end-of-shift state
// the snapshot for the next shift and advances the shift and bed-volume
// counters. One shift displaces exactly one cell's water volume through
// the column.
func CommitShift() ColumnManipulator {
	return func(d *IXBed) error {
		for _, c := range d.cells {
			c.commit()
		}
		d.Shift++
		d.BV += d.bvPerShift
		return nil
	}
}
