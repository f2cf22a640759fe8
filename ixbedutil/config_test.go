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

package ixbedutil

import (
	"math"
	"testing"
)

func TestDefaultMechanism(t *testing.T) {
	m, err := MechanismFromCfg(Cfg)
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 4 {
		t.Fatalf("default mechanism has %d species, want 4", m.Len())
	}
	if m.Reference() != 0 || m.Species()[0] != "Na" {
		t.Errorf("reference should be Na at index 0; got %q at %d",
			m.Species()[m.Reference()], m.Reference())
	}
	if i := m.Index("Ca"); i != 1 || m.Valence(i) != 2 {
		t.Errorf("calcium should be a divalent at index 1")
	}
	if m.Exchangeable(3) {
		t.Error("chloride should not be exchangeable")
	}
}

func TestDefaultSimConfig(t *testing.T) {
	cfg, m, err := SimConfigFromCfg(Cfg)
	if err != nil {
		t.Fatal(err)
	}
	// 100 L of pore water in a 250 L bed.
	if math.Abs(cfg.Column.PoreVolume-0.1) > 1e-12 {
		t.Errorf("pore volume = %g m³, want 0.1", cfg.Column.PoreVolume)
	}
	if math.Abs(cfg.Column.BedVolume-0.25) > 1e-12 {
		t.Errorf("bed volume = %g m³, want 0.25", cfg.Column.BedVolume)
	}
	// 3 meq/L of feed calcium is 3 eq/m³.
	if ca := cfg.Feed[m.Index("Ca")]; ca != 3 {
		t.Errorf("feed calcium = %g eq/m³, want 3", ca)
	}
	if na := cfg.InitialPoreWater[m.Index("Na")]; na != 1 {
		t.Errorf("initial sodium = %g eq/m³, want 1", na)
	}
	if cfg.TrackedSpecies != m.Index("Ca") {
		t.Errorf("tracked species index = %d, want calcium", cfg.TrackedSpecies)
	}
	if cfg.TargetFraction != 0.1 {
		t.Errorf("target fraction = %g, want 0.1", cfg.TargetFraction)
	}
}

func TestBadActivityModel(t *testing.T) {
	Cfg.Set("Activity", "bogus")
	defer Cfg.Set("Activity", "davies")
	if _, err := MechanismFromCfg(Cfg); err == nil {
		t.Error("expected an error for an unknown activity model")
	}
}

func TestUnknownFeedSpecies(t *testing.T) {
	Cfg.Set("Feed", map[string]string{"K": "1"})
	defer Cfg.Set("Feed", map[string]string{"Na": "1", "Ca": "3", "Mg": "1", "Cl": "5"})
	if _, _, err := SimConfigFromCfg(Cfg); err == nil {
		t.Error("expected an error for a feed species not in the mechanism")
	}
}

func TestUnknownTrackedSpecies(t *testing.T) {
	Cfg.Set("TrackedSpecies", "K")
	defer Cfg.Set("TrackedSpecies", "Ca")
	if _, _, err := SimConfigFromCfg(Cfg); err == nil {
		t.Error("expected an error for an unknown tracked species")
	}
}
