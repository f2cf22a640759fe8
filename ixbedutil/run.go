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
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
)

// logger builds the simulation logger, writing to the configured log
// file or to standard output.
func logger(cfg *viper.Viper) (*logrus.Logger, func() error, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	if path := cfg.GetString("LogFile"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return nil, nil, fmt.Errorf("ixbed: creating log file: %v", err)
		}
		log.SetOutput(f)
		return log, f.Close, nil
	}
	return log, func() error { return nil }, nil
}

// Run simulates one service run of the configured column and writes the
// breakthrough curve to the configured output file.
func Run(ctx context.Context, cfg *viper.Viper) error {
	log, closeLog, err := logger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	simCfg, _, err := SimConfigFromCfg(cfg)
	if err != nil {
		return err
	}
	simCfg.Log = log

	result, err := simCfg.Simulate(ctx)
	if err != nil {
		return err
	}

	s := &result.Summary
	if s.ThresholdFound {
		log.WithFields(logrus.Fields{
			"species":     cfg.GetString("TrackedSpecies"),
			"BV":          s.ThresholdBV,
			"utilization": s.CapacityUtilization,
		}).Info("service threshold reached")
	} else {
		log.WithFields(logrus.Fields{
			"species": cfg.GetString("TrackedSpecies"),
			"finalBV": s.FinalBV,
		}).Warn("service threshold not reached within the simulation horizon")
	}

	output := cfg.GetString("OutputFile")
	if filepath.Ext(output) == ".xlsx" {
		err = WriteXLSX(output, result.Curve)
	} else {
		var f *os.File
		f, err = os.Create(output)
		if err != nil {
			return fmt.Errorf("ixbed: creating output file: %v", err)
		}
		err = WriteCSV(f, result.Curve)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"file": output, "samples": result.Curve.Len()}).
		Info("wrote breakthrough curve")
	return nil
}
