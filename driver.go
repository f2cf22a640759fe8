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
	"context"
	"math"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/sirupsen/logrus"
)

const (
	defaultHorizonFactor   = 1.2
	defaultExtensionFactor = 2
)

// SimConfig specifies one service run of a column.
type SimConfig struct {
	Column    ColumnConfig
	Mechanism Mechanism

	// Feed and InitialPoreWater are species concentrations [eq/m³]
	// indexed per Mechanism.Species. InitialPoreWater is the solution
	// the bed holds when it enters service, typically a dilute
	// regenerant solution rather than the feed.
	Feed             []float64
	InitialPoreWater []float64

	// TrackedSpecies is the index of the species the service threshold
	// applies to.
	TrackedSpecies int

	// TargetFraction ends the run when the tracked species' outlet
	// concentration reaches this fraction of its feed concentration.
	// TargetConcentration instead ends the run at an absolute outlet
	// concentration [eq/m³]. Set exactly one of them; with neither set
	// the run continues to the simulation horizon.
	TargetFraction      float64
	TargetConcentration float64

	// HorizonFactor sets the simulation horizon as a multiple of the
	// theoretical exhaustion throughput (total capacity divided by the
	// exchangeable feed concentration, plus one pore-volume flush).
	// Zero means the default of 1.2.
	HorizonFactor float64

	// ExtensionFactor is the multiple by which the horizon is extended,
	// once, if the threshold has not been reached when the horizon is
	// hit. Zero means the default of 2.
	ExtensionFactor float64

	// Log is the logger to send simulation status messages to. If it is
	// nil, the logrus standard logger will be used.
	Log logrus.FieldLogger
}

// Summary holds the headline numbers of a completed run.
type Summary struct {
	// ThresholdBV is the cumulative bed volumes processed when the
	// tracked species reached the service threshold, interpolated
	// between samples. It is only meaningful when ThresholdFound is
	// true.
	ThresholdBV    float64
	ThresholdFound bool

	// HorizonExceeded reports that the run ended at the (extended)
	// simulation horizon without reaching the threshold.
	HorizonExceeded bool

	FinalBV       float64 // bed volumes processed when the run ended
	FinalConc     float64 // outlet concentration of the tracked species at the end [eq/m³]
	FinalFraction float64 // FinalConc as a fraction of the feed concentration

	// CapacityUtilization is the net equivalents of feed ions removed
	// from the water up to the threshold crossing (or the end of the
	// run), relative to the total exchange capacity.
	CapacityUtilization float64

	Shifts         int     // total shifts simulated
	IterationsMean float64 // mean equilibrium-solver iterations per cell-shift
	IterationsMax  float64 // worst-case equilibrium-solver iterations
}

// Result holds the outcome of a simulation: the full breakthrough curve
// and a summary of it.
type Result struct {
	Curve   *Curve
	Summary Summary
}

// crossed reports whether sample s meets the configured service threshold.
func (cfg *SimConfig) crossed(s *Sample) bool {
	if cfg.TargetFraction > 0 {
		return s.Frac[cfg.TrackedSpecies] >= cfg.TargetFraction
	}
	if cfg.TargetConcentration > 0 {
		return s.Conc[cfg.TrackedSpecies] >= cfg.TargetConcentration
	}
	return false
}

func (cfg *SimConfig) check() error {
	if cfg.Mechanism == nil {
		return configErr("Mechanism", "must not be nil")
	}
	if err := cfg.Column.Check(); err != nil {
		return err
	}
	n := cfg.Mechanism.Len()
	if len(cfg.Feed) != n {
		return configErr("Feed", "has %d species but the mechanism has %d", len(cfg.Feed), n)
	}
	if cfg.TrackedSpecies < 0 || cfg.TrackedSpecies >= n {
		return configErr("TrackedSpecies", "index %d out of range for %d species", cfg.TrackedSpecies, n)
	}
	if cfg.TargetFraction < 0 {
		return configErr("TargetFraction", "must not be negative, got %g", cfg.TargetFraction)
	}
	if cfg.TargetConcentration < 0 {
		return configErr("TargetConcentration", "must not be negative, got %g eq/m³", cfg.TargetConcentration)
	}
	if cfg.TargetFraction > 0 && cfg.TargetConcentration > 0 {
		return configErr("TargetFraction", "TargetFraction and TargetConcentration are mutually exclusive")
	}
	if cfg.TargetFraction > 0 && cfg.Feed[cfg.TrackedSpecies] <= 0 {
		return configErr("TargetFraction", "species %s is absent from the feed; use TargetConcentration",
			cfg.Mechanism.Species()[cfg.TrackedSpecies])
	}
	return nil
}

// horizonShifts estimates how many shifts it takes to exhaust the bed:
// the throughput that delivers Capacity equivalents of exchangeable feed
// ions, plus one pore-volume flush, scaled by the horizon factor. For a
// feed with no exchangeable ions (a pure flush) the pore volume alone
// sets the scale.
func (cfg *SimConfig) horizonShifts(factor float64) int {
	var cEx float64
	ref := cfg.Mechanism.Reference()
	for i, v := range cfg.Feed {
		if cfg.Mechanism.Exchangeable(i) && i != ref {
			cEx += v
		}
	}
	vol := cfg.Column.PoreVolume
	if cEx > 0 {
		vol += cfg.Column.Capacity / cEx
	}
	vw := cfg.Column.PoreVolume / float64(cfg.Column.Cells)
	h := int(math.Ceil(factor * vol / vw))
	if h < cfg.Column.Cells {
		h = cfg.Column.Cells // never stop before one full pore-volume flush
	}
	return h
}

// Simulate runs the column to its service threshold (or the simulation
// horizon) and returns the breakthrough curve and summary. The context
// is checked between shifts, so a cancelled run returns promptly with
// ctx.Err().
func (cfg *SimConfig) Simulate(ctx context.Context) (*Result, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	hf := cfg.HorizonFactor
	if hf <= 0 {
		hf = defaultHorizonFactor
	}
	ef := cfg.ExtensionFactor
	if ef <= 0 {
		ef = defaultExtensionFactor
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	horizon := cfg.horizonShifts(hf)
	curve := NewCurve(cfg.Mechanism, cfg.Feed)
	iterStats := &stats.Stats{}
	extended := false
	horizonExceeded := false

	checkDone := func(d *IXBed) error {
		for _, c := range d.cells {
			iterStats.Update(float64(c.SolveIterations))
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if cfg.crossed(curve.Last()) {
			d.Done = true
			return nil
		}
		if d.Shift < horizon {
			return nil
		}
		if !extended && (cfg.TargetFraction > 0 || cfg.TargetConcentration > 0) {
			extended = true
			horizon = int(math.Ceil(float64(horizon) * ef))
			log.WithFields(logrus.Fields{
				"shift":      d.Shift,
				"newHorizon": horizon,
			}).Info("threshold not reached at horizon; extending once")
			return nil
		}
		horizonExceeded = true
		d.Done = true
		return nil
	}

	d := &IXBed{
		InitFuncs: []ColumnManipulator{
			cfg.Column.DiscretizeColumn(cfg.Mechanism, cfg.Feed, cfg.InitialPoreWater),
		},
		RunFuncs: []ColumnManipulator{
			ShiftAdvection(),
			Dispersion(cfg.Column.Dispersivity),
			Calculations(EquilibrateCells(cfg.Mechanism)),
			CommitShift(),
			TrackBreakthrough(curve),
			checkDone,
		},
	}

	log.WithFields(logrus.Fields{
		"cells":         cfg.Column.Cells,
		"species":       len(cfg.Feed),
		"horizonShifts": horizon,
	}).Info("starting breakthrough simulation")

	if err := d.Init(); err != nil {
		return nil, err
	}
	if err := d.Run(); err != nil {
		return nil, err
	}
	if err := d.Cleanup(); err != nil {
		return nil, err
	}

	r := &Result{Curve: curve}
	r.Summary = cfg.summarize(curve, horizonExceeded, iterStats)
	log.WithFields(logrus.Fields{
		"shifts":         r.Summary.Shifts,
		"finalBV":        r.Summary.FinalBV,
		"thresholdFound": r.Summary.ThresholdFound,
		"thresholdBV":    r.Summary.ThresholdBV,
		"utilization":    r.Summary.CapacityUtilization,
	}).Info("breakthrough simulation finished")
	return r, nil
}

func (cfg *SimConfig) summarize(curve *Curve, horizonExceeded bool, iterStats *stats.Stats) Summary {
	s := Summary{
		HorizonExceeded: horizonExceeded,
		Shifts:          curve.Len(),
	}
	if iterStats.Count() > 0 {
		s.IterationsMean = iterStats.Mean()
		s.IterationsMax = iterStats.Max()
	}
	if last := curve.Last(); last != nil {
		s.FinalBV = last.BV
		s.FinalConc = last.Conc[cfg.TrackedSpecies]
		s.FinalFraction = last.Frac[cfg.TrackedSpecies]
	}
	switch {
	case cfg.TargetFraction > 0:
		s.ThresholdBV, s.ThresholdFound = curve.Crossing(cfg.TrackedSpecies, cfg.TargetFraction)
	case cfg.TargetConcentration > 0:
		s.ThresholdBV, s.ThresholdFound = curve.CrossingConc(cfg.TrackedSpecies, cfg.TargetConcentration)
	}

	// Utilization is accounted through the sample where the threshold
	// was met, or the whole run if it never was.
	through := curve.Len()
	if s.ThresholdFound {
		for k := range curve.Samples {
			if cfg.crossed(&curve.Samples[k]) {
				through = k + 1
				break
			}
		}
	}
	if cfg.Column.Capacity > 0 {
		var retained float64
		ref := cfg.Mechanism.Reference()
		for i := 0; i < cfg.Mechanism.Len(); i++ {
			if cfg.Mechanism.Exchangeable(i) && i != ref {
				retained += curve.Retained(i, through)
			}
		}
		s.CapacityUtilization = retained / cfg.Column.Capacity
	}
	return s
}
