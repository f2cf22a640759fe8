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

// Package ixbedutil wires the ixbed column simulator to a command-line
// interface and configuration files.
package ixbedutil

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lnashier/viper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/watermodel/ixbed"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to IXBed.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Column.PoreVolume",
			usage: `
              Column.PoreVolume is the total pore-water volume of the
              column, in liters.`,
			defaultVal: 100.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Column.BedVolume",
			usage: `
              Column.BedVolume is the total pore+resin volume of the
              column, in liters. One bed volume of throughput corresponds
              to this much treated water.`,
			defaultVal: 250.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Column.Capacity",
			usage: `
              Column.Capacity is the total exchange-site capacity of the
              column, in equivalents.`,
			defaultVal: 10.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Column.Cells",
			usage: `
              Column.Cells is the number of well-mixed cells the column is
              divided into along the flow axis. More cells sharpen the
              simulated breakthrough front at the cost of run time.`,
			defaultVal: 40,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Column.Dispersivity",
			usage: `
              Column.Dispersivity is the fraction of each cell's solute
              load blended with each adjacent cell every shift to emulate
              sub-cell mixing. Must be in [0, 0.5).`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Species",
			usage: `
              Species lists the dissolved species in the simulation. Each
              entry has a Name, a Valence (charge; cations positive), a
              MolarMass [g/mol], a LogK (base-10 Gaines-Thomas selectivity
              relative to the reference cation) and an Exchangeable flag.
              The first exchangeable species is the reference (regenerant)
              cation and must have LogK 0. On the command line the list is
              given as JSON.`,
			defaultVal: `[
  {"Name": "Na", "Valence": 1, "MolarMass": 22.99, "LogK": 0, "Exchangeable": true},
  {"Name": "Ca", "Valence": 2, "MolarMass": 40.08, "LogK": 0.8, "Exchangeable": true},
  {"Name": "Mg", "Valence": 2, "MolarMass": 24.31, "LogK": 0.6, "Exchangeable": true},
  {"Name": "Cl", "Valence": -1, "MolarMass": 35.45, "LogK": 0, "Exchangeable": false}
]`,
			flagsets: []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Feed",
			usage: `
              Feed maps species names to feed concentrations in meq/L.
              Species not listed enter at zero concentration.`,
			defaultVal: map[string]string{"Na": "1", "Ca": "3", "Mg": "1", "Cl": "5"},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "InitialPoreWater",
			usage: `
              InitialPoreWater maps species names to the concentrations of
              the solution the bed holds when it enters service, in meq/L.
              This is typically a dilute regenerant solution, not the feed.`,
			defaultVal: map[string]string{"Na": "1", "Cl": "1"},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "TrackedSpecies",
			usage: `
              TrackedSpecies names the species the service threshold
              applies to.`,
			defaultVal: "Ca",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "TargetFraction",
			usage: `
              TargetFraction ends the run when the tracked species' outlet
              concentration reaches this fraction of its feed
              concentration. Mutually exclusive with TargetConcentration.`,
			defaultVal: 0.1,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "TargetConcentration",
			usage: `
              TargetConcentration ends the run when the tracked species'
              outlet concentration reaches this absolute value, in meq/L.
              Mutually exclusive with TargetFraction; set TargetFraction
              to 0 to use it.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "HorizonFactor",
			usage: `
              HorizonFactor sets the simulation horizon as a multiple of
              the theoretical exhaustion throughput.`,
			defaultVal: 1.2,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "ExtensionFactor",
			usage: `
              ExtensionFactor is the multiple by which the horizon is
              extended, once, if the threshold has not been reached when
              the horizon is hit.`,
			defaultVal: 2.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Activity",
			usage: `
              Activity selects the solution-phase activity model: "davies"
              (the default) or "ideal".`,
			defaultVal: "davies",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Solver.Tolerance",
			usage: `
              Solver.Tolerance is the residual norm below which the
              equilibrium iteration is considered converged.`,
			defaultVal: 1e-10,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Solver.MaxIterations",
			usage: `
              Solver.MaxIterations is the iteration budget of each
              equilibrium solve. Exceeding it aborts the simulation.`,
			defaultVal: 60,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path the breakthrough curve is written to.
              A .xlsx extension selects an Excel workbook; anything else
              gets CSV.`,
			defaultVal: "breakthrough.csv",
			shorthand:  "o",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired log file location. If
              blank, the log is written to standard output.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("IXBED")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(b.Bytes())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("ixbed: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "ixbed",
	Short: "A fixed-bed ion-exchange breakthrough simulator.",
	Long: `IXBed simulates multi-species breakthrough curves for fixed-bed
ion-exchange columns: it predicts how many bed volumes of water a column can
treat before a tracked ion leaks through at the service threshold.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'IXBED_var' where 'var' is
the name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of IXBed.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("IXBed v%s\n", ixbed.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a breakthrough simulation.",
	Long: `run simulates one service run of the configured column and writes the
breakthrough curve to the output file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Run(cmd.Context(), Cfg)
	},
	DisableAutoGenTag: true,
}
