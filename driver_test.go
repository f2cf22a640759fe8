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
	"errors"
	"math"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/watermodel/ixbed/exchange"
)

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// softeningConfig is a 250 L softener with 100 L of pore water treating
// 5 meq/L of calcium chloride. Its theoretical exhaustion throughput is
// (24.5 eq / 5 eq/m³ + 0.1 m³) / 0.25 m³ = 20 bed volumes.
func softeningConfig(t *testing.T, cells int) *SimConfig {
	return &SimConfig{
		Column: ColumnConfig{
			PoreVolume: 0.1,
			BedVolume:  0.25,
			Capacity:   24.5,
			Cells:      cells,
		},
		Mechanism:        softeningMechanism(t, exchange.Ideal),
		Feed:             []float64{0, 5, 5},
		InitialPoreWater: []float64{1, 0, 1},
		TrackedSpecies:   1, // Ca
		TargetFraction:   0.5,
		Log:              quietLogger(),
	}
}

func TestSofteningBreakthrough(t *testing.T) {
	cfg := softeningConfig(t, 50)
	result, err := cfg.Simulate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	s := result.Summary

	if !s.ThresholdFound {
		t.Fatal("threshold not found")
	}
	if s.HorizonExceeded {
		t.Error("horizon should not have been exceeded")
	}
	// The stoichiometric center of the front arrives at the theoretical
	// exhaustion throughput of 20 BV; numerical mixing spreads the
	// crossing around it but not far.
	if s.ThresholdBV < 18 || s.ThresholdBV > 21 {
		t.Errorf("threshold at %g BV, want near 20", s.ThresholdBV)
	}
	if s.CapacityUtilization < 0.9 || s.CapacityUtilization > 1.1 {
		t.Errorf("capacity utilization = %g, want near 1", s.CapacityUtilization)
	}
	if s.IterationsMax < 1 {
		t.Error("expected the equilibrium solver to iterate at least once somewhere")
	}
	if s.IterationsMean > s.IterationsMax {
		t.Errorf("mean iterations %g exceeds max %g", s.IterationsMean, s.IterationsMax)
	}
}

// The reported breakthrough volume is a physical property of the column
// and must not depend much on how finely it is discretized.
func TestResolutionIndependence(t *testing.T) {
	if testing.Short() {
		t.Skip("takes several seconds")
	}
	var bvs [2]float64
	for i, cells := range []int{25, 100} {
		result, err := softeningConfig(t, cells).Simulate(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !result.Summary.ThresholdFound {
			t.Fatalf("%d cells: threshold not found", cells)
		}
		bvs[i] = result.Summary.ThresholdBV
	}
	if rel := math.Abs(bvs[0]-bvs[1]) / bvs[1]; rel > 0.05 {
		t.Errorf("threshold BV %g at 25 cells vs %g at 100 cells (%.1f%% apart)",
			bvs[0], bvs[1], rel*100)
	}
}

// With no exchange capacity the tracked ion arrives after exactly one
// pore volume of throughput: breakthrough is pure flushing.
func TestZeroCapacityFlush(t *testing.T) {
	m, err := exchange.New([]exchange.Species{
		{Name: "Na", Valence: 1, MolarMass: 22.99, LogK: 0, Exchangeable: true},
		{Name: "Cl", Valence: -1, MolarMass: 35.45, LogK: 0, Exchangeable: false},
	})
	if err != nil {
		t.Fatal(err)
	}
	cfg := &SimConfig{
		Column: ColumnConfig{
			PoreVolume: 0.1,
			BedVolume:  0.25,
			Capacity:   0,
			Cells:      40,
		},
		Mechanism:        m,
		Feed:             []float64{1, 1},
		InitialPoreWater: []float64{0, 0},
		TrackedSpecies:   0,
		TargetFraction:   0.5,
		Log:              quietLogger(),
	}
	result, err := cfg.Simulate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	s := result.Summary
	if !s.ThresholdFound {
		t.Fatal("threshold not found")
	}
	porevolBV := 0.1 / 0.25
	bvPerShift := (0.1 / 40) / 0.25
	if math.Abs(s.ThresholdBV-porevolBV) > 2*bvPerShift {
		t.Errorf("threshold at %g BV, want within a shift of %g", s.ThresholdBV, porevolBV)
	}
}

// Enlarging the pore volume delays breakthrough by exactly the added
// flush volume: the initial pore water must be displaced before feed
// chemistry governs the outlet.
func TestFlushAdditivity(t *testing.T) {
	run := func(poreVolume float64) float64 {
		cfg := softeningConfig(t, 30)
		cfg.Column.PoreVolume = poreVolume
		result, err := cfg.Simulate(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !result.Summary.ThresholdFound {
			t.Fatalf("pore volume %g: threshold not found", poreVolume)
		}
		return result.Summary.ThresholdBV
	}
	small, large := run(0.05), run(0.15)
	wantDelay := (0.15 - 0.05) / 0.25 // added flush volume in bed volumes
	if delay := large - small; math.Abs(delay-wantDelay) > 0.1 {
		t.Errorf("extra pore volume delayed breakthrough by %g BV, want %g", delay, wantDelay)
	}
}

// More competing sodium in the feed must not increase the calcium
// throughput.
func TestCompetitionMonotonicity(t *testing.T) {
	run := func(sodium float64) float64 {
		cfg := softeningConfig(t, 30)
		cfg.Feed = []float64{sodium, 5, 5 + sodium}
		result, err := cfg.Simulate(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !result.Summary.ThresholdFound {
			t.Fatalf("sodium %g: threshold not found", sodium)
		}
		return result.Summary.ThresholdBV
	}
	low, high := run(1), run(20)
	if high >= low {
		t.Errorf("threshold BV rose from %g to %g when sodium competition increased", low, high)
	}
}

// Sodium displaced from the exchanger elutes at concentrations above its
// feed concentration (chromatographic peaking).
func TestSodiumPeaking(t *testing.T) {
	cfg := softeningConfig(t, 30)
	cfg.Feed = []float64{1, 4, 5}
	result, err := cfg.Simulate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if peak := result.Curve.MaxFraction(0); peak <= 1 {
		t.Errorf("sodium peak fraction = %g, want above 1", peak)
	}
}

func TestHorizonExceeded(t *testing.T) {
	cfg := softeningConfig(t, 20)
	cfg.Column.Capacity = 2.45
	// Chloride passes through, so an absurd target is never reached.
	cfg.TrackedSpecies = 2
	cfg.TargetFraction = 0
	cfg.TargetConcentration = 100
	result, err := cfg.Simulate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	s := result.Summary
	if s.ThresholdFound {
		t.Error("threshold should not have been found")
	}
	if !s.HorizonExceeded {
		t.Error("HorizonExceeded should be set")
	}
	// The horizon is extended exactly once before giving up.
	base := cfg.horizonShifts(defaultHorizonFactor)
	if s.Shifts <= base {
		t.Errorf("ran %d shifts; expected more than the base horizon of %d", s.Shifts, base)
	}
	if s.Shifts > 2*base+1 {
		t.Errorf("ran %d shifts; expected at most one doubling of %d", s.Shifts, base)
	}
}

func TestContextCancel(t *testing.T) {
	cfg := softeningConfig(t, 20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := cfg.Simulate(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestSimConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		modify func(*SimConfig)
	}{
		{"nil mechanism", func(c *SimConfig) { c.Mechanism = nil }},
		{"bad column", func(c *SimConfig) { c.Column.Cells = 0 }},
		{"short feed", func(c *SimConfig) { c.Feed = []float64{1} }},
		{"tracked species out of range", func(c *SimConfig) { c.TrackedSpecies = 9 }},
		{"negative fraction", func(c *SimConfig) { c.TargetFraction = -0.5 }},
		{"both targets", func(c *SimConfig) { c.TargetConcentration = 1 }},
		{"fraction of absent species", func(c *SimConfig) { c.TrackedSpecies = 0 }},
	}
	for _, c := range cases {
		cfg := softeningConfig(t, 10)
		c.modify(cfg)
		_, err := cfg.Simulate(context.Background())
		if err == nil {
			t.Errorf("%s: expected an error", c.name)
			continue
		}
		var ce *ConfigurationError
		if !errors.As(err, &ce) {
			t.Errorf("%s: error type %T, want *ConfigurationError", c.name, err)
		}
	}
}

// A run with no threshold configured goes to the horizon and reports the
// final state without a threshold crossing.
func TestNoThreshold(t *testing.T) {
	cfg := softeningConfig(t, 10)
	cfg.Column.Capacity = 2.45
	cfg.TargetFraction = 0
	result, err := cfg.Simulate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	s := result.Summary
	if s.ThresholdFound {
		t.Error("no threshold was configured; none should be found")
	}
	if s.Shifts != cfg.horizonShifts(defaultHorizonFactor) {
		t.Errorf("ran %d shifts, want the horizon of %d", s.Shifts, cfg.horizonShifts(defaultHorizonFactor))
	}
	if s.FinalFraction < 0.7 {
		t.Errorf("final calcium fraction = %g; the bed should be nearly exhausted", s.FinalFraction)
	}
}
