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
	"errors"
	"fmt"
)

// ConfigurationError indicates non-physical or malformed simulation inputs.
// It is returned before any simulation work is performed; a run that fails
// this way has not been partially executed.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("ixbed: invalid configuration: %s: %s", e.Field, e.Reason)
}

func configErr(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ConvergenceError indicates that the equilibrium solver failed to converge
// within its iteration and tolerance budget for one cell during one shift.
// It is fatal to the simulation; no partial or interpolated results are
// substituted.
type ConvergenceError struct {
	Cell       int     // index of the failing cell
	Shift      int     // shift during which the failure occurred
	Iterations int     // iterations used before giving up
	Residual   float64 // last residual norm
	Err        error   // underlying solver error
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("ixbed: equilibrium solve failed in cell %d, shift %d "+
		"after %d iterations (residual %g): %v",
		e.Cell, e.Shift, e.Iterations, e.Residual, e.Err)
}

func (e *ConvergenceError) Unwrap() error { return e.Err }

// solveDiagnostics is implemented by solver errors that can report their
// final residual and iteration count (see the exchange package).
type solveDiagnostics interface {
	LastResidual() float64
	IterationCount() int
}

// wrapCellError attaches cell and shift context to an error from a
// per-cell calculation.
func wrapCellError(shift int, c *Cell, err error) error {
	ce := &ConvergenceError{Cell: c.Index, Shift: shift, Err: err}
	var diag solveDiagnostics
	if errors.As(err, &diag) {
		ce.Residual = diag.LastResidual()
		ce.Iterations = diag.IterationCount()
	}
	return ce
}
