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

import "testing"

func syntheticCurve() *Curve {
	cv := &Curve{
		Species: []string{"Ca"},
		Feed:    []float64{4},
	}
	for i, frac := range []float64{0, 0, 0.25, 0.75, 1} {
		cv.Samples = append(cv.Samples, Sample{
			Shift: i + 1,
			BV:    float64(i + 1),
			Conc:  []float64{4 * frac},
			Frac:  []float64{frac},
		})
	}
	return cv
}

func TestCrossingInterpolation(t *testing.T) {
	cv := syntheticCurve()
	bv, ok := cv.Crossing(0, 0.5)
	if !ok {
		t.Fatal("crossing not found")
	}
	// Halfway between the samples at fractions 0.25 and 0.75.
	if different(bv, 3.5, testTolerance) {
		t.Errorf("crossing at %g BV, want 3.5", bv)
	}

	bv, ok = cv.CrossingConc(0, 3)
	if !ok {
		t.Fatal("concentration crossing not found")
	}
	if different(bv, 3.5, testTolerance) {
		t.Errorf("concentration crossing at %g BV, want 3.5", bv)
	}
}

func TestCrossingExactSample(t *testing.T) {
	cv := syntheticCurve()
	bv, ok := cv.Crossing(0, 0.75)
	if !ok {
		t.Fatal("crossing not found")
	}
	if different(bv, 4, testTolerance) {
		t.Errorf("crossing at %g BV, want 4", bv)
	}
}

func TestCrossingNotReached(t *testing.T) {
	cv := syntheticCurve()
	if _, ok := cv.Crossing(0, 1.5); ok {
		t.Error("found a crossing that never happens")
	}
}

func TestCrossingFirstSample(t *testing.T) {
	cv := syntheticCurve()
	cv.Samples[0].Frac[0] = 0.9
	bv, ok := cv.Crossing(0, 0.5)
	if !ok {
		t.Fatal("crossing not found")
	}
	// No bracketing sample exists; the first sample's BV is reported.
	if bv != 1 {
		t.Errorf("crossing at %g BV, want 1", bv)
	}
}

func TestMaxFraction(t *testing.T) {
	cv := syntheticCurve()
	cv.Samples[3].Frac[0] = 1.4 // chromatographic peak
	if got := cv.MaxFraction(0); got != 1.4 {
		t.Errorf("max fraction = %g, want 1.4", got)
	}
}

func TestTrackBreakthrough(t *testing.T) {
	d, m := inertColumn(t, 4, []float64{2}, []float64{0})
	cv := NewCurve(m, []float64{2})
	d.RunFuncs = []ColumnManipulator{
		ShiftAdvection(),
		Calculations(EquilibrateCells(m)),
		CommitShift(),
		TrackBreakthrough(cv),
		stopAfter(6),
	}
	if err := d.Run(); err != nil {
		t.Fatal(err)
	}

	if cv.Len() != 6 {
		t.Fatalf("curve has %d samples, want 6", cv.Len())
	}
	// First four parcels are the initial pore water; then the feed.
	for k, want := range []float64{0, 0, 0, 0, 1, 1} {
		s := cv.Samples[k]
		if s.Shift != k+1 {
			t.Errorf("sample %d has shift %d", k, s.Shift)
		}
		if s.Frac[0] != want {
			t.Errorf("sample %d fraction = %g, want %g", k, s.Frac[0], want)
		}
	}
	// Ledgers: 6 shifts in at feed strength, 2 shifts out.
	vw := d.WaterVolumePerCell()
	if different(cv.In[0], 6*2*vw, testTolerance) {
		t.Errorf("In = %g, want %g", cv.In[0], 6*2*vw)
	}
	if different(cv.Out[0], 2*2*vw, testTolerance) {
		t.Errorf("Out = %g, want %g", cv.Out[0], 2*2*vw)
	}
}

func TestFracZeroFeed(t *testing.T) {
	m := &inertMechanism{names: []string{"a", "b"}}
	cv := NewCurve(m, []float64{2, 0})
	d := &IXBed{
		Shift:              1,
		BV:                 0.1,
		nSpecies:           2,
		waterVolumePerCell: 0.01,
		effluent:           []float64{1, 3},
	}
	if err := TrackBreakthrough(cv)(d); err != nil {
		t.Fatal(err)
	}
	s := cv.Last()
	if s.Frac[0] != 0.5 {
		t.Errorf("fraction = %g, want 0.5", s.Frac[0])
	}
	// Species absent from the feed report fraction zero, not Inf.
	if s.Frac[1] != 0 {
		t.Errorf("zero-feed fraction = %g, want 0", s.Frac[1])
	}
}
