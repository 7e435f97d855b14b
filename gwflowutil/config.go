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

package gwflowutil

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/hydromodel/gwflow"
)

// ConfigData holds the model description a package file is read or
// written against: the grid dimensions and the sibling-package state
// the conditional file layout depends on.
type ConfigData struct {
	// Nlay, Nrow, and Ncol are the grid dimensions.
	Nlay, Nrow, Ncol int

	// Nper is the number of stress periods.
	Nper int

	// Steady flags each stress period as steady-state. A single value
	// applies to all periods; an empty list means all steady.
	Steady []bool

	// Laycbd flags, for each layer, whether a quasi-3D confining bed
	// is present below that layer. An empty list means none.
	Laycbd []int

	// IboundFile is the path of an optional whitespace-separated text
	// file holding the (Nlay, Nrow, Ncol) active-cell mask, layer by
	// layer in row-major order. If empty, every cell is active. The
	// path can include environment variables.
	IboundFile string
}

// ReadConfig reads the configuration file at path, expanding any
// environment variables it contains.
func ReadConfig(path string) (*ConfigData, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gwflowutil: reading configuration file: %v", err)
	}
	c := new(ConfigData)
	if _, err := toml.Decode(os.ExpandEnv(string(b)), c); err != nil {
		return nil, fmt.Errorf("gwflowutil: parsing configuration file %s: %v", path, err)
	}
	if c.Nlay <= 0 || c.Nrow <= 0 || c.Ncol <= 0 || c.Nper <= 0 {
		return nil, fmt.Errorf("gwflowutil: configuration file %s: Nlay, Nrow, Ncol, and Nper must all be positive", path)
	}
	return c, nil
}

// Model builds the model container described by the configuration.
func (c *ConfigData) Model() (*gwflow.Model, error) {
	m := gwflow.NewModel(c.Nlay, c.Nrow, c.Ncol, c.Nper)
	switch len(c.Steady) {
	case 0: // all steady
	case 1:
		for p := range m.Steady {
			m.Steady[p] = c.Steady[0]
		}
	case c.Nper:
		copy(m.Steady, c.Steady)
	default:
		return nil, fmt.Errorf("gwflowutil: Steady must have 1 or %d values but has %d", c.Nper, len(c.Steady))
	}
	switch len(c.Laycbd) {
	case 0: // no confining beds
	case c.Nlay:
		copy(m.Laycbd, c.Laycbd)
	default:
		return nil, fmt.Errorf("gwflowutil: Laycbd must have %d values but has %d", c.Nlay, len(c.Laycbd))
	}
	if c.IboundFile != "" {
		if err := readIbound(os.ExpandEnv(c.IboundFile), m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func readIbound(path string, m *gwflow.Model) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("gwflowutil: reading ibound file: %v", err)
	}
	defer f.Close()
	vals, err := gwflow.NewLineReader(f, path).ReadInts(m.Nlay * m.Nrow * m.Ncol)
	if err != nil {
		return err
	}
	copy(m.Ibound.Elements, vals)
	return nil
}
