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

// Package gwflow holds the in-memory representation and text
// serialization of input packages for a finite-difference groundwater
// flow model. The grid is a structured (nlay, nrow, ncol) block of
// cells simulated over nper stress periods.
package gwflow

import (
	"fmt"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// Log receives advisory progress messages. They have no effect on
// control flow and may be silenced by the caller.
var Log = logrus.New()

// A Package is one input package attached to a model, identified by a
// short upper-case kind such as "LPF" or "DIS".
type Package interface {
	PkgName() string
}

// Model is the container that owns the grid dimensions, stress-period
// bookkeeping, and the collection of input packages. It is the
// read-only collaborator that package encoders and decoders query for
// dimensions, transience, and sibling-package state.
type Model struct {
	// Nlay, Nrow, and Ncol are the grid dimensions.
	Nlay, Nrow, Ncol int

	// Nper is the number of stress periods.
	Nper int

	// Steady flags each stress period as steady-state. The model is
	// transient if any period is not steady.
	Steady []bool

	// Laycbd flags, for each layer, whether a quasi-3D confining bed
	// is present below that layer (> 0 means present).
	Laycbd []int

	// Ibound is the active-cell mask, shape (nlay, nrow, ncol).
	// A zero value marks an inactive cell.
	Ibound *sparse.DenseArrayInt

	// Verbose turns on advisory progress messages during loading.
	Verbose bool

	packages map[string]Package
	units    map[int]bool

	mult map[string]*sparse.DenseArray
	zone map[string]*sparse.DenseArrayInt
}

// NewModel creates a model with the given grid dimensions. All stress
// periods start steady, no confining beds are present, and every cell
// is active.
func NewModel(nlay, nrow, ncol, nper int) *Model {
	m := &Model{
		Nlay:     nlay,
		Nrow:     nrow,
		Ncol:     ncol,
		Nper:     nper,
		Steady:   make([]bool, nper),
		Laycbd:   make([]int, nlay),
		Ibound:   sparse.ZerosDenseInt(nlay, nrow, ncol),
		packages: make(map[string]Package),
		units:    make(map[int]bool),
		mult:     make(map[string]*sparse.DenseArray),
		zone:     make(map[string]*sparse.DenseArrayInt),
	}
	for p := range m.Steady {
		m.Steady[p] = true
	}
	for i := range m.Ibound.Elements {
		m.Ibound.Elements[i] = 1
	}
	return m
}

// Transient reports whether any stress period is not steady-state.
func (m *Model) Transient() bool {
	for _, s := range m.Steady {
		if !s {
			return true
		}
	}
	return false
}

// Active reports whether cell (k, i, j) is active.
func (m *Model) Active(k, i, j int) bool {
	return m.Ibound.Get(k, i, j) != 0
}

// AddPackage attaches p to the model. At most one package of each kind
// may be attached; a second registration of the same kind is an error.
func (m *Model) AddPackage(p Package) error {
	name := p.PkgName()
	if _, ok := m.packages[name]; ok {
		return fmt.Errorf("gwflow.Model.AddPackage: package %s already exists in model", name)
	}
	m.packages[name] = p
	return nil
}

// GetPackage returns the attached package of the given kind, or nil.
func (m *Model) GetPackage(name string) Package {
	return m.packages[name]
}

// ReserveUnit records a file unit number as consumed, for example the
// unit a package saves cell-by-cell budget output to.
func (m *Model) ReserveUnit(u int) {
	if u != 0 {
		m.units[u] = true
	}
}

// UnitReserved reports whether unit u has been recorded as consumed.
func (m *Model) UnitReserved(u int) bool { return m.units[u] }

// SetMultArray registers a named (nrow, ncol) multiplier array for use
// by parameterized package input.
func (m *Model) SetMultArray(name string, a *sparse.DenseArray) {
	m.mult[name] = a
}

// MultArray returns the named multiplier array.
func (m *Model) MultArray(name string) (*sparse.DenseArray, error) {
	a, ok := m.mult[name]
	if !ok {
		return nil, fmt.Errorf("gwflow.Model.MultArray: no multiplier array named %s", name)
	}
	return a, nil
}

// SetZoneArray registers a named (nrow, ncol) zone array for use by
// parameterized package input.
func (m *Model) SetZoneArray(name string, a *sparse.DenseArrayInt) {
	m.zone[name] = a
}

// ZoneArray returns the named zone array.
func (m *Model) ZoneArray(name string) (*sparse.DenseArrayInt, error) {
	a, ok := m.zone[name]
	if !ok {
		return nil, fmt.Errorf("gwflow.Model.ZoneArray: no zone array named %s", name)
	}
	return a, nil
}

func (m *Model) debugf(format string, args ...interface{}) {
	if m.Verbose {
		Log.Debugf(format, args...)
	}
}
