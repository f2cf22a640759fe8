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

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"
)

// Calculations returns a function that concurrently runs a series of
// calculations on all of the column cells. The cells are striped across
// GOMAXPROCS workers and joined with a barrier, so the next manipulator
// in the shift never observes a partially equilibrated column. If any
// per-cell calculation fails, the shift is aborted and the first error
// (by cell order) is returned with cell and shift context attached.
func Calculations(calculators ...CellManipulator) ColumnManipulator {
	nprocs := runtime.GOMAXPROCS(0)

	return func(d *IXBed) error {
		errs := make([]error, len(d.cells))
		var wg sync.WaitGroup
		wg.Add(nprocs)
		for pp := 0; pp < nprocs; pp++ {
			go func(pp int) {
				defer wg.Done()
				for ii := pp; ii < len(d.cells); ii += nprocs {
					c := d.cells[ii]
					for _, f := range calculators {
						if err := f(c); err != nil {
							errs[ii] = wrapCellError(d.Shift, c, err)
							break
						}
					}
				}
			}(pp)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return err
			}
		}
		return nil
	}
}

// EquilibrateCells returns a function that re-equilibrates one cell's
// post-advection solution with its exchange-site inventory using
// mechanism m.
func EquilibrateCells(m Mechanism) CellManipulator {
	return func(c *Cell) error {
		iter, err := m.Equilibrate(c.Cf, c.Occ, c.WaterVolume, c.Capacity)
		c.SolveIterations = iter
		return err
	}
}

// Log returns a function that writes simulation status messages to w
// after every shift.
func Log(w io.Writer) ColumnManipulator {
	startTime := time.Now()
	shiftTime := time.Now()

	return func(d *IXBed) error {
		fmt.Fprintf(w, "Shift %-6d  BV=%8.4f  walltime=%6.3gs  Δwalltime=%4.2gms\n",
			d.Shift, d.BV, time.Since(startTime).Seconds(),
			float64(time.Since(shiftTime).Microseconds())/1000)
		shiftTime = time.Now()
		return nil
	}
}
