/*
Copyright © 2026 the GWFlow authors.
This file is part of GWFlow.

GWFlow is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

GWFlow is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with GWFlow.  If not, see <http://www.gnu.org/licenses/>.*/

package gwflow

import (
	"fmt"
	"io"
	"strings"

	"github.com/ctessum/sparse"
	"github.com/gonum/floats"
)

// A fieldCheck describes the range test for one property field.
// Inactive cells are overridden with inactiveVal before testing, and
// layers the field does not apply to are overridden with neutralVal;
// both overrides act on a scratch copy, never on the record itself.
type fieldCheck struct {
	key         string
	label       string
	inactiveVal float64
	neutralVal  float64
	// strict rejects zero as well as negative values.
	strict bool
	// enabled gates the whole check (storage terms only apply to
	// transient models).
	enabled func(s *layerState) bool
	// layerUsed reports whether the field is meaningful on layer k.
	// Unused layers are neutralized and, if no layer uses the field,
	// no summary line is reported for it.
	layerUsed func(s *layerState, k int) bool
}

var lpfChecks = []fieldCheck{
	{
		key:         "hk",
		label:       "horizontal hydraulic conductivity",
		inactiveVal: 0,
	},
	{
		key:         "hani",
		label:       "horizontal hydraulic conductivity ratio",
		inactiveVal: 0,
		neutralVal:  1,
		layerUsed:   func(s *layerState, k int) bool { return s.chani[k] <= 0 },
	},
	{
		key:         "vka",
		label:       "vertical hydraulic conductivity",
		inactiveVal: 1,
		strict:      true,
	},
	{
		key:         "vkcb",
		label:       "quasi-3D confining bed vertical hydraulic conductivity",
		inactiveVal: 1,
		neutralVal:  1,
		layerUsed:   func(s *layerState, k int) bool { return s.laycbd[k] > 0 },
	},
	{
		key:         "ss",
		label:       "specific storage",
		inactiveVal: 1,
		enabled:     func(s *layerState) bool { return s.transient },
	},
	{
		key:         "sy",
		label:       "specific yield",
		inactiveVal: 1,
		neutralVal:  1,
		enabled:     func(s *layerState) bool { return s.transient },
		layerUsed:   func(s *layerState, k int) bool { return s.laytyp[k] != 0 },
	},
}

// Check validates the package data against the owning model's
// active-cell mask: conductivities must be non-negative (vertical
// strictly positive) and storage terms non-negative on the layers they
// apply to. Out-of-range values are reported, never returned as
// errors; the aggregate flag tells the caller whether any were found.
// The report is written to w when w is non-nil and echoed through the
// package logger when verbose is true. At level 0 only per-field
// summary lines are produced; at level 1 the offending cell
// coordinates and values are listed. The checked record is never
// mutated, so repeated calls produce identical reports.
func (l *LPF) Check(w io.Writer, verbose bool, level int) (bad bool, err error) {
	var summary, detail strings.Builder
	s := l.layerState()

	for _, c := range lpfChecks {
		if c.enabled != nil && !c.enabled(s) {
			continue
		}
		d, err := l.fieldByKey(c.key).Dense()
		if err != nil {
			return false, fmt.Errorf("gwflow.LPF.Check: %v", err)
		}
		used := c.layerUsed == nil
		for k := 0; k < l.model.Nlay; k++ {
			if c.layerUsed != nil {
				if c.layerUsed(s, k) {
					used = true
					continue
				}
				neutralizeLayer(d, k, c.neutralVal)
			}
		}
		overrideInactive(d, l.model.Ibound, c.inactiveVal)

		min := floats.Min(d.Elements)
		violates := min < 0 || (c.strict && min <= 0)
		if violates {
			bad = true
			if c.strict {
				fmt.Fprintf(&summary, "  ERROR: Negative or zero %s specified.\n", c.label)
			} else {
				fmt.Fprintf(&summary, "  ERROR: Negative %s specified.\n", c.label)
			}
			if level > 0 {
				listViolations(&detail, d, l.fieldByKey(c.key), c.strict)
			}
		} else if used {
			fmt.Fprintf(&summary, "  Specified %s is OK.\n", c.label)
		}
	}

	txt := "\nLPF PACKAGE DATA VALIDATION:\n" + summary.String()
	if level > 0 && bad {
		txt += "\n  DETAILED SUMMARY OF LPF ERRORS:\n" + detail.String()
	}

	if w != nil {
		if _, err := fmt.Fprintf(w, "%s\n", txt); err != nil {
			return bad, fmt.Errorf("gwflow.LPF.Check: %v", err)
		}
	}
	if verbose {
		Log.Info(txt)
	}
	return bad, nil
}

func neutralizeLayer(d *sparse.DenseArray, k int, v float64) {
	nrow, ncol := d.Shape[1], d.Shape[2]
	for i := k * nrow * ncol; i < (k+1)*nrow*ncol; i++ {
		d.Elements[i] = v
	}
}

func overrideInactive(d *sparse.DenseArray, ibound *sparse.DenseArrayInt, v float64) {
	for i, b := range ibound.Elements {
		if b == 0 {
			d.Elements[i] = v
		}
	}
}

func listViolations(w io.Writer, d *sparse.DenseArray, f *Field3D, strict bool) {
	for i, v := range d.Elements {
		if v < 0 || (strict && v <= 0) {
			idx := d.IndexNd(i)
			k, r, c := idx[0], idx[1], idx[2]
			fmt.Fprintf(w, "    %s layer %d row %d column %d: %G\n",
				f.Slice(k).Name, k+1, r+1, c+1, v)
		}
	}
}
