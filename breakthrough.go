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

// Sample is one point on a breakthrough curve: the composition of the
// solution parcel that left the column outlet during one shift.
type Sample struct {
	Shift int     // shift index (1-based: the sample recorded after shift k has Shift == k)
	BV    float64 // cumulative bed volumes processed through this shift

	Conc []float64 // outlet concentrations [eq/m³]

	// Frac is the outlet concentration as a fraction of the feed
	// concentration. It is zero for species absent from the feed.
	// Fractions above one are expected physical behavior for competing
	// ions displaced by more-selective ones (chromatographic peaking)
	// and are recorded untouched.
	Frac []float64
}

// Curve is an append-only record of outlet composition versus cumulative
// bed volumes processed.
type Curve struct {
	Species []string
	Feed    []float64 // feed concentrations [eq/m³]

	Samples []Sample

	// In and Out are the cumulative equivalents of each species that
	// have entered at the inlet and left at the outlet [eq]. Together
	// with the column inventory they close the species mass balance.
	In, Out []float64

	waterVolumePerShift float64 // [m³]
}

// NewCurve creates an empty breakthrough curve for the species of
// mechanism m and the given feed composition [eq/m³].
func NewCurve(m Mechanism, feed []float64) *Curve {
	cv := &Curve{
		Species: m.Species(),
		Feed:    make([]float64, m.Len()),
		In:      make([]float64, m.Len()),
		Out:     make([]float64, m.Len()),
	}
	copy(cv.Feed, feed)
	return cv
}

// TrackBreakthrough returns a function that appends the effluent parcel of
// the just-completed shift to cv. It must be placed after CommitShift in
// the shift sequence.
func TrackBreakthrough(cv *Curve) ColumnManipulator {
	return func(d *IXBed) error {
		cv.waterVolumePerShift = d.waterVolumePerCell
		s := Sample{
			Shift: d.Shift,
			BV:    d.BV,
			Conc:  make([]float64, d.nSpecies),
			Frac:  make([]float64, d.nSpecies),
		}
		copy(s.Conc, d.effluent)
		for i := 0; i < d.nSpecies; i++ {
			if cv.Feed[i] > 0 {
				s.Frac[i] = s.Conc[i] / cv.Feed[i]
			}
			cv.In[i] += cv.Feed[i] * d.waterVolumePerCell
			cv.Out[i] += s.Conc[i] * d.waterVolumePerCell
		}
		cv.Samples = append(cv.Samples, s)
		return nil
	}
}

// Len returns the number of samples on the curve.
func (cv *Curve) Len() int { return len(cv.Samples) }

// Last returns the most recent sample, or nil if the curve is empty.
func (cv *Curve) Last() *Sample {
	if len(cv.Samples) == 0 {
		return nil
	}
	return &cv.Samples[len(cv.Samples)-1]
}

// Crossing scans the curve for the first sample at which species i's
// outlet fraction of feed meets or exceeds target, and returns the
// bed-volume value linearly interpolated between the bracketing samples.
// Interpolating reduces the sensitivity of the reported breakthrough
// volume to the shift discretization. The second return value is false
// if the curve never reaches the target.
func (cv *Curve) Crossing(i int, target float64) (float64, bool) {
	return cv.crossing(i, target, func(s *Sample) float64 { return s.Frac[i] })
}

// CrossingConc is like Crossing but with an absolute concentration
// target [eq/m³].
func (cv *Curve) CrossingConc(i int, target float64) (float64, bool) {
	return cv.crossing(i, target, func(s *Sample) float64 { return s.Conc[i] })
}

func (cv *Curve) crossing(i int, target float64, value func(*Sample) float64) (float64, bool) {
	for k := range cv.Samples {
		v := value(&cv.Samples[k])
		if v < target {
			continue
		}
		if k == 0 {
			return cv.Samples[0].BV, true
		}
		prev := &cv.Samples[k-1]
		vPrev := value(prev)
		if v == vPrev {
			return cv.Samples[k].BV, true
		}
		t := (target - vPrev) / (v - vPrev)
		return prev.BV + t*(cv.Samples[k].BV-prev.BV), true
	}
	return 0, false
}

// MaxFraction returns the largest outlet fraction of feed recorded for
// species i. Values above one indicate chromatographic peaking.
func (cv *Curve) MaxFraction(i int) float64 {
	var m float64
	for k := range cv.Samples {
		if f := cv.Samples[k].Frac[i]; f > m {
			m = f
		}
	}
	return m
}

// Retained returns the net equivalents of species i removed from the
// water over the first `through` samples (inlet minus outlet) [eq].
// Negative values indicate net elution, as when a previously retained
// competing ion is displaced.
func (cv *Curve) Retained(i, through int) float64 {
	if through > len(cv.Samples) {
		through = len(cv.Samples)
	}
	var o float64
	for k := 0; k < through; k++ {
		o += (cv.Feed[i] - cv.Samples[k].Conc[i]) * cv.waterVolumePerShift
	}
	return o
}
