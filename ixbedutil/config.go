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
	"encoding/json"
	"fmt"

	"github.com/ctessum/unit"
	"github.com/lnashier/viper"
	"github.com/spf13/cast"

	"github.com/watermodel/ixbed"
	"github.com/watermodel/ixbed/exchange"
)

// literToMeter3 converts a volume given in liters in the configuration
// to the SI volume the simulator works in.
func literToMeter3(liters float64) (float64, error) {
	v := unit.New(liters*1e-3, unit.Meter3)
	if err := v.Check(unit.Meter3); err != nil {
		return 0, err
	}
	return v.Value(), nil
}

// MechanismFromCfg builds the ion-exchange mechanism from the "Species",
// "Activity" and "Solver.*" configuration variables.
func MechanismFromCfg(cfg *viper.Viper) (*exchange.Mechanism, error) {
	species, err := speciesFromCfg(cfg)
	if err != nil {
		return nil, err
	}
	var model exchange.ActivityModel
	switch s := cfg.GetString("Activity"); s {
	case "davies", "":
		model = exchange.Davies
	case "ideal":
		model = exchange.Ideal
	default:
		return nil, fmt.Errorf("ixbed: invalid activity model %q; valid models are \"davies\" and \"ideal\"", s)
	}
	return exchange.New(species,
		exchange.Activity(model),
		exchange.Tolerance(cfg.GetFloat64("Solver.Tolerance")),
		exchange.MaxIterations(cfg.GetInt("Solver.MaxIterations")),
	)
}

// speciesFromCfg reads the species list, which is JSON when it comes from
// a command-line flag and a structured list when it comes from a
// configuration file.
func speciesFromCfg(cfg *viper.Viper) ([]exchange.Species, error) {
	switch v := cfg.Get("Species").(type) {
	case string:
		var species []exchange.Species
		if err := json.Unmarshal([]byte(v), &species); err != nil {
			return nil, fmt.Errorf("ixbed: parsing Species JSON: %v", err)
		}
		return species, nil
	default:
		entries, err := cast.ToSliceE(v)
		if err != nil {
			return nil, fmt.Errorf("ixbed: parsing Species: %v", err)
		}
		species := make([]exchange.Species, len(entries))
		for i, e := range entries {
			m, err := cast.ToStringMapE(e)
			if err != nil {
				return nil, fmt.Errorf("ixbed: parsing Species entry %d: %v", i, err)
			}
			s := &species[i]
			for k, val := range m {
				switch k {
				case "Name":
					s.Name, err = cast.ToStringE(val)
				case "Valence":
					s.Valence, err = cast.ToFloat64E(val)
				case "MolarMass":
					s.MolarMass, err = cast.ToFloat64E(val)
				case "LogK":
					s.LogK, err = cast.ToFloat64E(val)
				case "Exchangeable":
					s.Exchangeable, err = cast.ToBoolE(val)
				default:
					err = fmt.Errorf("unknown field %q", k)
				}
				if err != nil {
					return nil, fmt.Errorf("ixbed: parsing Species entry %d: %v", i, err)
				}
			}
		}
		return species, nil
	}
}

// concentrationsFromCfg reads the named map of species name to
// concentration in meq/L and returns the concentrations indexed per the
// mechanism's species order. meq/L is numerically identical to the eq/m³
// the simulator works in, so no scaling is applied. Species missing from
// the map get zero; names not in the mechanism are an error.
func concentrationsFromCfg(cfg *viper.Viper, key string, m *exchange.Mechanism) ([]float64, error) {
	raw, err := stringMap(cfg.Get(key))
	if err != nil {
		return nil, fmt.Errorf("ixbed: parsing %s: %v", key, err)
	}
	conc := make([]float64, m.Len())
	for name, val := range raw {
		i := m.Index(name)
		if i < 0 {
			return nil, fmt.Errorf("ixbed: %s names species %q, which is not in the Species list", key, name)
		}
		conc[i], err = cast.ToFloat64E(val)
		if err != nil {
			return nil, fmt.Errorf("ixbed: parsing %s[%s]: %v", key, name, err)
		}
	}
	return conc, nil
}

// stringMap handles a map that may be JSON when it comes from a
// command-line flag.
func stringMap(v interface{}) (map[string]string, error) {
	if s, ok := v.(string); ok {
		var m map[string]string
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return nil, err
		}
		return m, nil
	}
	return cast.ToStringMapStringE(v)
}

// ColumnFromCfg builds the physical column description from the
// "Column.*" configuration variables, converting volumes from the liters
// used in configuration files to SI units.
func ColumnFromCfg(cfg *viper.Viper) (ixbed.ColumnConfig, error) {
	var c ixbed.ColumnConfig
	var err error
	if c.PoreVolume, err = literToMeter3(cfg.GetFloat64("Column.PoreVolume")); err != nil {
		return c, fmt.Errorf("ixbed: Column.PoreVolume: %v", err)
	}
	if c.BedVolume, err = literToMeter3(cfg.GetFloat64("Column.BedVolume")); err != nil {
		return c, fmt.Errorf("ixbed: Column.BedVolume: %v", err)
	}
	c.Capacity = cfg.GetFloat64("Column.Capacity")
	c.Cells = cfg.GetInt("Column.Cells")
	c.Dispersivity = cfg.GetFloat64("Column.Dispersivity")
	return c, c.Check()
}

// SimConfigFromCfg assembles a complete simulation configuration. The
// returned mechanism is the one referenced by the SimConfig.
func SimConfigFromCfg(cfg *viper.Viper) (*ixbed.SimConfig, *exchange.Mechanism, error) {
	m, err := MechanismFromCfg(cfg)
	if err != nil {
		return nil, nil, err
	}
	column, err := ColumnFromCfg(cfg)
	if err != nil {
		return nil, nil, err
	}
	feed, err := concentrationsFromCfg(cfg, "Feed", m)
	if err != nil {
		return nil, nil, err
	}
	initial, err := concentrationsFromCfg(cfg, "InitialPoreWater", m)
	if err != nil {
		return nil, nil, err
	}
	tracked := m.Index(cfg.GetString("TrackedSpecies"))
	if tracked < 0 {
		return nil, nil, fmt.Errorf("ixbed: TrackedSpecies %q is not in the Species list",
			cfg.GetString("TrackedSpecies"))
	}
	return &ixbed.SimConfig{
		Column:              column,
		Mechanism:           m,
		Feed:                feed,
		InitialPoreWater:    initial,
		TrackedSpecies:      tracked,
		TargetFraction:      cfg.GetFloat64("TargetFraction"),
		TargetConcentration: cfg.GetFloat64("TargetConcentration"),
		HorizonFactor:       cfg.GetFloat64("HorizonFactor"),
		ExtensionFactor:     cfg.GetFloat64("ExtensionFactor"),
	}, m, nil
}
