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
	"encoding/csv"
	"io"
	"strconv"

	"github.com/tealeg/xlsx"

	"github.com/watermodel/ixbed"
)

// curveHeader builds the column headers shared by the CSV and Excel
// exporters: per species, the outlet concentration [meq/L] and the
// fraction of the feed concentration.
func curveHeader(cv *ixbed.Curve) []string {
	header := []string{"shift", "bed_volumes"}
	for _, name := range cv.Species {
		header = append(header, name+"_meq_per_L", name+"_over_feed")
	}
	return header
}

// WriteCSV writes the breakthrough curve to w in CSV form, one row per
// shift.
func WriteCSV(w io.Writer, cv *ixbed.Curve) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(curveHeader(cv)); err != nil {
		return err
	}
	row := make([]string, 0, 2+2*len(cv.Species))
	for i := range cv.Samples {
		s := &cv.Samples[i]
		row = row[:0]
		row = append(row, strconv.Itoa(s.Shift),
			strconv.FormatFloat(s.BV, 'g', -1, 64))
		for j := range cv.Species {
			row = append(row,
				strconv.FormatFloat(s.Conc[j], 'g', -1, 64),
				strconv.FormatFloat(s.Frac[j], 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the breakthrough curve to path as an Excel workbook
// with one sheet of curve samples and one sheet of feed composition.
func WriteXLSX(path string, cv *ixbed.Curve) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("breakthrough")
	if err != nil {
		return err
	}
	headerRow := sheet.AddRow()
	for _, h := range curveHeader(cv) {
		headerRow.AddCell().SetString(h)
	}
	for i := range cv.Samples {
		s := &cv.Samples[i]
		row := sheet.AddRow()
		row.AddCell().SetInt(s.Shift)
		row.AddCell().SetFloat(s.BV)
		for j := range cv.Species {
			row.AddCell().SetFloat(s.Conc[j])
			row.AddCell().SetFloat(s.Frac[j])
		}
	}

	feedSheet, err := f.AddSheet("feed")
	if err != nil {
		return err
	}
	fh := feedSheet.AddRow()
	fh.AddCell().SetString("species")
	fh.AddCell().SetString("feed_meq_per_L")
	for j, name := range cv.Species {
		row := feedSheet.AddRow()
		row.AddCell().SetString(name)
		row.AddCell().SetFloat(cv.Feed[j])
	}
	return f.Save(path)
}
