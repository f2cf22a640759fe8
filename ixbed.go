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

// Package ixbed implements a one-dimensional, multi-species breakthrough
// simulator for fixed-bed ion-exchange columns. The column is discretized
// into a train of well-mixed cells; each simulation "shift" advects the
// pore solution one cell downstream and then re-equilibrates every cell
// with its exchange-site inventory.
package ixbed

import "fmt"

// IXBed holds the current state of the column model.
type IXBed struct {
	// InitFuncs are functions to be called in the given order
	// at the beginning of the simulation.
	InitFuncs []ColumnManipulator

	// RunFuncs are functions to be called in the given order repeatedly
	// until "Done" is true. One pass through RunFuncs is one shift.
	RunFuncs []ColumnManipulator

	// CleanupFuncs are functions to be run in the given order after the
	// simulation has completed.
	CleanupFuncs []ColumnManipulator

	// Done specifies whether the simulation is finished.
	Done bool

	// Shift is the number of completed shifts.
	Shift int

	// BV is the cumulative bed volumes of water processed. One shift
	// pushes one cell's water volume through the column.
	BV float64

	cells []*Cell

	feed     []float64 // feed composition [eq/m³]
	effluent []float64 // parcel that left the outlet during the last shift [eq/m³]

	nSpecies           int
	waterVolumePerCell float64 // [m³]
	bedVolume          float64 // pore+resin volume of the whole column [m³]; 1 BV
	bvPerShift         float64
}

// ColumnManipulator is a class of functions that operate on the whole
// column at once.
type ColumnManipulator func(d *IXBed) error

// CellManipulator is a class of functions that operate on a single cell.
// Within one shift a cell is exclusively owned by the manipulator
// operating on it, so CellManipulators may run concurrently across cells.
type CellManipulator func(c *Cell) error

// Init initializes the simulation by running the InitFuncs.
func (d *IXBed) Init() error {
	for _, f := range d.InitFuncs {
		if err := f(d); err != nil {
			return err
		}
	}
	if len(d.cells) == 0 {
		return fmt.Errorf("ixbed: no cells were created during initialization")
	}
	return nil
}

// Run carries out the simulation by running the RunFuncs until Done is true.
func (d *IXBed) Run() error {
	for !d.Done {
		for _, f := range d.RunFuncs {
			if err := f(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// Cleanup runs the CleanupFuncs.
func (d *IXBed) Cleanup() error {
	for _, f := range d.CleanupFuncs {
		if err := f(d); err != nil {
			return err
		}
	}
	return nil
}

// Cells returns the cells in the column, ordered from inlet to outlet.
func (d *IXBed) Cells() []*Cell {
	return d.cells
}

// Feed returns the feed composition [eq/m³].
func (d *IXBed) Feed() []float64 {
	return d.feed
}

// Effluent returns the solution parcel that left the outlet during the
// most recent shift [eq/m³]. It is nil before the first shift.
func (d *IXBed) Effluent() []float64 {
	return d.effluent
}

// BedVolume returns the pore+resin volume of the column [m³]; one bed
// volume of throughput corresponds to this much treated water.
func (d *IXBed) BedVolume() float64 {
	return d.bedVolume
}

// WaterVolumePerCell returns the pore-water volume held by each cell [m³].
func (d *IXBed) WaterVolumePerCell() float64 {
	return d.waterVolumePerCell
}

// SpeciesInventory returns the total amount of each species currently held
// in the column, solution plus exchanger phase [eq].
func (d *IXBed) SpeciesInventory() []float64 {
	o := make([]float64, d.nSpecies)
	for _, c := range d.cells {
		for i := 0; i < d.nSpecies; i++ {
			o[i] += c.Ci[i]*c.WaterVolume + c.Occ[i]
		}
	}
	return o
}
