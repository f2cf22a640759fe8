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

// ColumnConfig holds the physical parameters of the column, as provided by
// the hydraulic sizing collaborator.
type ColumnConfig struct {
	// PoreVolume is the total pore-water volume of the column [m³].
	PoreVolume float64

	// BedVolume is the total pore+resin volume of the column [m³].
	// One bed volume (BV) of throughput corresponds to this much
	// treated water, independent of the cell count.
	BedVolume float64

	// Capacity is the total exchange-site capacity of the column [eq].
	Capacity float64

	// Cells is the number of well-mixed cells the column is divided
	// into along the flow axis.
	Cells int

	// Dispersivity is the fraction of each cell's post-advection solute
	// load blended with each adjacent cell to emulate sub-cell mixing.
	// Zero disables dispersion. Must be less than 0.5.
	Dispersivity float64
}

// Check returns an error if the configuration is not physically meaningful.
func (cfg *ColumnConfig) Check() error {
	if !(cfg.PoreVolume > 0) {
		return configErr("PoreVolume", "must be positive, got %g m³", cfg.PoreVolume)
	}
	if !(cfg.BedVolume > 0) {
		return configErr("BedVolume", "must be positive, got %g m³", cfg.BedVolume)
	}
	if cfg.BedVolume < cfg.PoreVolume {
		return configErr("BedVolume", "must be at least the pore volume; got %g m³ < %g m³",
			cfg.BedVolume, cfg.PoreVolume)
	}
	if cfg.Capacity < 0 {
		return configErr("Capacity", "must not be negative, got %g eq", cfg.Capacity)
	}
	if cfg.Cells < 1 {
		return configErr("Cells", "must be at least 1, got %d", cfg.Cells)
	}
	if cfg.Dispersivity < 0 || cfg.Dispersivity >= 0.5 {
		return configErr("Dispersivity", "must be in [0, 0.5), got %g", cfg.Dispersivity)
	}
	return nil
}

// DiscretizeColumn returns a function that partitions the column into
// cfg.Cells equal cells and sets the initial condition. Each cell receives
// pore volume and capacity total/N.
//
// The cells are initialized with the given initial pore-water composition,
// NOT with the feed: a bed entering service still holds whatever solution
// it was pre-equilibrated with (typically a regenerant solution), and that
// pore water must be physically displaced before feed chemistry governs
// the outlet. The exchange sites start in the reference-cation form and
// are equilibrated once against the initial pore water.
func (cfg *ColumnConfig) DiscretizeColumn(m Mechanism, feed, initial []float64) ColumnManipulator {
	return func(d *IXBed) error {
		if err := cfg.Check(); err != nil {
			return err
		}
		n := m.Len()
		if len(feed) != n {
			return configErr("Feed", "has %d species but the mechanism has %d", len(feed), n)
		}
		if len(initial) != n {
			return configErr("InitialPoreWater", "has %d species but the mechanism has %d", len(initial), n)
		}
		for i, v := range feed {
			if v < 0 {
				return configErr("Feed", "%s concentration must not be negative, got %g eq/m³",
					m.Species()[i], v)
			}
		}
		for i, v := range initial {
			if v < 0 {
				return configErr("InitialPoreWater", "%s concentration must not be negative, got %g eq/m³",
					m.Species()[i], v)
			}
		}

		d.nSpecies = n
		d.waterVolumePerCell = cfg.PoreVolume / float64(cfg.Cells)
		d.bedVolume = cfg.BedVolume
		d.bvPerShift = d.waterVolumePerCell / cfg.BedVolume
		d.feed = make([]float64, n)
		copy(d.feed, feed)

		capPerCell := cfg.Capacity / float64(cfg.Cells)

		// Pre-equilibrate a prototype cell: regenerated sites plus the
		// initial pore water. All cells start identical, so one solve
		// suffices.
		conc0 := make([]float64, n)
		occ0 := make([]float64, n)
		copy(conc0, initial)
		if capPerCell > 0 {
			occ0[m.Reference()] = capPerCell
			if _, err := m.Equilibrate(conc0, occ0, d.waterVolumePerCell, capPerCell); err != nil {
				return wrapCellError(0, &Cell{Index: 0}, err)
			}
		}

		d.cells = make([]*Cell, cfg.Cells)
		for j := range d.cells {
			c := &Cell{
				Index:       j,
				WaterVolume: d.waterVolumePerCell,
				Capacity:    capPerCell,
			}
			c.prepare(n)
			copy(c.Ci, conc0)
			copy(c.Cf, conc0)
			copy(c.Occ, occ0)
			d.cells[j] = c
		}
		return nil
	}
}
