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
	"strconv"
	"strings"

	"github.com/ctessum/sparse"
)

// A Cluster applies a parameter to one layer through a multiplier
// array and a zone array. The special multiplier name NONE means a
// multiplier of one everywhere, and the special zone name ALL means
// every cell in the layer belongs.
type Cluster struct {
	// Layer is 1-based.
	Layer int
	Mult  string
	Zone  string
	// IZ lists the zone numbers the cluster applies to; unused when
	// Zone is ALL.
	IZ []int
}

// A Param is one named multiplier/zone parameter: a value applied to a
// property type over one or more layer clusters.
type Param struct {
	Name     string
	Type     string // lower-case property type, e.g. "hk" or "vani"
	Value    float64
	Clusters []Cluster
}

// A ParamSet holds the parameters defined in a package file, in
// definition order.
type ParamSet struct {
	Params []*Param
	types  map[string]bool
}

// LoadParams reads np parameter definitions. Each definition is one
// record "PARNAME PARTYP Parval NCLU" followed by NCLU cluster records
// "Layer Mltarr Zonarr IZ...".
func LoadParams(lr *LineReader, np int) (*ParamSet, error) {
	ps := &ParamSet{types: make(map[string]bool)}
	for n := 0; n < np; n++ {
		line, err := lr.Line()
		if err != nil {
			return nil, err
		}
		t := strings.Fields(line)
		if len(t) < 4 {
			return nil, lr.errf("parameter record needs PARNAME PARTYP Parval NCLU but has %d fields", len(t))
		}
		p := &Param{Name: t[0], Type: strings.ToLower(t[1])}
		if p.Value, err = strconv.ParseFloat(t[2], 64); err != nil {
			return nil, lr.errf("parsing parameter value %q: %v", t[2], err)
		}
		nclu, err := strconv.Atoi(t[3])
		if err != nil {
			return nil, lr.errf("parsing cluster count %q: %v", t[3], err)
		}
		for c := 0; c < nclu; c++ {
			line, err := lr.Line()
			if err != nil {
				return nil, err
			}
			t := strings.Fields(line)
			if len(t) < 3 {
				return nil, lr.errf("cluster record needs Layer Mltarr Zonarr but has %d fields", len(t))
			}
			cl := Cluster{Mult: t[1], Zone: t[2]}
			if cl.Layer, err = strconv.Atoi(t[0]); err != nil {
				return nil, lr.errf("parsing cluster layer %q: %v", t[0], err)
			}
			for _, s := range t[3:] {
				iz, err := strconv.Atoi(s)
				if err != nil {
					return nil, lr.errf("parsing zone number %q: %v", s, err)
				}
				cl.IZ = append(cl.IZ, iz)
			}
			p.Clusters = append(p.Clusters, cl)
		}
		ps.Params = append(ps.Params, p)
		ps.types[p.Type] = true
	}
	return ps, nil
}

// Has reports whether any of the given property types has a parameter
// defined for it.
func (ps *ParamSet) Has(types ...string) bool {
	if ps == nil {
		return false
	}
	for _, t := range types {
		if ps.types[strings.ToLower(t)] {
			return true
		}
	}
	return false
}

// Fill builds the (nrow, ncol) values for property type ptype on
// 0-based layer k by accumulating parval × multiplier over the member
// cells of each matching cluster.
func (ps *ParamSet) Fill(m *Model, ptype string, k int) (*sparse.DenseArray, error) {
	d := sparse.ZerosDense(m.Nrow, m.Ncol)
	ptype = strings.ToLower(ptype)
	for _, p := range ps.Params {
		if p.Type != ptype {
			continue
		}
		for _, cl := range p.Clusters {
			if cl.Layer != k+1 {
				continue
			}
			var mult *sparse.DenseArray
			if !strings.EqualFold(cl.Mult, "NONE") {
				var err error
				if mult, err = m.MultArray(cl.Mult); err != nil {
					return nil, err
				}
			}
			var zone *sparse.DenseArrayInt
			if !strings.EqualFold(cl.Zone, "ALL") {
				var err error
				if zone, err = m.ZoneArray(cl.Zone); err != nil {
					return nil, err
				}
			}
			for i := 0; i < m.Nrow; i++ {
				for j := 0; j < m.Ncol; j++ {
					if zone != nil && !memberZone(zone.Get(i, j), cl.IZ) {
						continue
					}
					v := p.Value
					if mult != nil {
						v *= mult.Get(i, j)
					}
					d.Elements[i*m.Ncol+j] += v
				}
			}
		}
	}
	return d, nil
}

func memberZone(z int, iz []int) bool {
	for _, v := range iz {
		if v == z {
			return true
		}
	}
	return false
}
