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
	"math"
	"testing"

	"github.com/watermodel/ixbed/exchange"
)

const testTolerance = 1e-8

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

// inertMechanism transports species without any exchange chemistry. It
// is used to test the advection machinery in isolation.
type inertMechanism struct {
	names []string
}

func (m *inertMechanism) Len() int            { return len(m.names) }
func (m *inertMechanism) Species() []string   { return m.names }
func (m *inertMechanism) Valence(int) float64 { return 1 }
func (m *inertMechanism) Exchangeable(i int) bool {
	return i == 0
}
func (m *inertMechanism) Reference() int { return 0 }
func (m *inertMechanism) Equilibrate(conc, occ []float64, waterVolume, capacity float64) (int, error) {
	return 0, nil
}

// softeningMechanism is a sodium-form resin removing calcium from a
// calcium chloride feed.
func softeningMechanism(t *testing.T, model exchange.ActivityModel) *exchange.Mechanism {
	t.Helper()
	m, err := exchange.New([]exchange.Species{
		{Name: "Na", Valence: 1, MolarMass: 22.99, LogK: 0, Exchangeable: true},
		{Name: "Ca", Valence: 2, MolarMass: 40.08, LogK: 0.8, Exchangeable: true},
		{Name: "Cl", Valence: -1, MolarMass: 35.45, LogK: 0, Exchangeable: false},
	}, exchange.Activity(model))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// stopAfter ends the simulation after n shifts.
func stopAfter(n int) ColumnManipulator {
	return func(d *IXBed) error {
		if d.Shift >= n {
			d.Done = true
		}
		return nil
	}
}

// Everything that enters at the inlet and does not leave at the outlet
// must still be in the column, dissolved or on the exchanger, for every
// species independently. Dispersion must not open a leak.
func TestMassConservation(t *testing.T) {
	m := softeningMechanism(t, exchange.Davies)
	cfg := ColumnConfig{
		PoreVolume:   0.1,
		BedVolume:    0.25,
		Capacity:     10,
		Cells:        20,
		Dispersivity: 0.1,
	}
	feed := []float64{1, 4, 5}
	initial := []float64{1, 0, 1}
	curve := NewCurve(m, feed)
	d := &IXBed{
		InitFuncs: []ColumnManipulator{cfg.DiscretizeColumn(m, feed, initial)},
		RunFuncs: []ColumnManipulator{
			ShiftAdvection(),
			Dispersion(cfg.Dispersivity),
			Calculations(EquilibrateCells(m)),
			CommitShift(),
			TrackBreakthrough(curve),
			stopAfter(300),
		},
	}
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	before := d.SpeciesInventory()
	if err := d.Run(); err != nil {
		t.Fatal(err)
	}
	after := d.SpeciesInventory()

	for i, name := range m.Species() {
		gained := after[i] - before[i]
		net := curve.In[i] - curve.Out[i]
		if different(gained, net, 1e-9) && math.Abs(gained-net) > 1e-12 {
			t.Errorf("%s: column gained %g eq but boundary ledger says %g eq", name, gained, net)
		}
	}
}

func TestInitWithoutCells(t *testing.T) {
	d := &IXBed{}
	if err := d.Init(); err == nil {
		t.Error("expected an error initializing with no cells")
	}
}
